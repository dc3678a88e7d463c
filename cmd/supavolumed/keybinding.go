package main

import (
	"context"
	"fmt"
	"log/slog"
)

// KeyGrabber resolves key symbols for the active layout and grabs key codes
// globally.
type KeyGrabber interface {
	// Resolve maps a symbolic key name to a key code. ok is false when the
	// symbol is not mapped on the current keyboard.
	Resolve(symbol string) (code uint32, ok bool)

	// Grab intercepts code regardless of held modifiers.
	Grab(code uint32) error
}

// KeySource is a KeyGrabber that also delivers key presses.
type KeySource interface {
	KeyGrabber

	// Run pumps key presses into events until ctx is canceled or the source
	// is closed.
	Run(ctx context.Context, events chan<- Event) error

	// Close releases all grabs and the underlying handle.
	Close() error
}

// BindingTable maps resolved key codes to actions. It is built once at
// startup and only read afterwards.
type BindingTable map[uint32]KeyBinding

// Lookup returns the binding for code.
func (t BindingTable) Lookup(code uint32) (KeyBinding, bool) {
	b, ok := t[code]
	return b, ok
}

// RegisterBindings resolves every media key symbol and grabs the resulting
// codes. Symbols the layout does not map, and codes that cannot be grabbed,
// are logged and skipped; registration itself never fails.
func RegisterBindings(g KeyGrabber, logger *slog.Logger) BindingTable {
	table := make(BindingTable, len(mediaKeys))

	for _, mk := range mediaKeys {
		code, ok := g.Resolve(mk.Symbol)
		if !ok {
			logger.Warn("key symbol is not mapped on this keyboard", "symbol", mk.Symbol)
			continue
		}
		if prev, dup := table[code]; dup {
			logger.Warn("key code already bound", "symbol", mk.Symbol, "code", code, "bound_to", prev.Symbol)
			continue
		}
		if err := g.Grab(code); err != nil {
			logger.Warn("failed to grab key", "symbol", mk.Symbol, "code", code, "error", err)
			continue
		}

		table[code] = KeyBinding{Action: mk.Action, Symbol: mk.Symbol, Code: code}
		logger.Debug("key bound", "symbol", mk.Symbol, "code", code, "action", mk.Action)
	}

	return table
}

// pumpKeys runs keys until it stops. A source that dies while the daemon is
// still running takes the daemon down with it, and its error becomes the
// exit reason. Errors caused by shutdown itself are not reported.
func pumpKeys(ctx context.Context, keys KeySource, events chan<- Event, shutdown context.CancelFunc, logger *slog.Logger) error {
	err := keys.Run(ctx, events)
	if err == nil || ctx.Err() != nil {
		return nil
	}
	logger.Error("key source stopped", "error", err)
	shutdown()
	return fmt.Errorf("key source: %w", err)
}
