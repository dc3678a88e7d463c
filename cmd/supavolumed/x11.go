package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

var keysymsByName = map[string]xproto.Keysym{
	"XF86AudioRaiseVolume": keysymAudioRaiseVolume,
	"XF86AudioLowerVolume": keysymAudioLowerVolume,
	"XF86AudioMute":        keysymAudioMute,
	"XF86AudioMicMute":     keysymAudioMicMute,
}

// x11KeySource grabs keys on the root window of the default screen.
type x11KeySource struct {
	conn *xgb.Conn
	root xproto.Window

	minKeycode xproto.Keycode
	perKeycode int
	keysyms    []xproto.Keysym

	mu      sync.Mutex
	grabbed []xproto.Keycode
	closed  bool

	logger *slog.Logger
}

// newX11KeySource connects to $DISPLAY and snapshots the keyboard mapping.
func newX11KeySource(logger *slog.Logger) (*x11KeySource, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	count := byte(setup.MaxKeycode - setup.MinKeycode + 1)
	mapping, err := xproto.GetKeyboardMapping(conn, setup.MinKeycode, count).Reply()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("get keyboard mapping: %w", err)
	}

	return &x11KeySource{
		conn:       conn,
		root:       screen.Root,
		minKeycode: setup.MinKeycode,
		perKeycode: int(mapping.KeysymsPerKeycode),
		keysyms:    mapping.Keysyms,
		logger:     logger,
	}, nil
}

// keycodeForKeysym scans a keyboard mapping the way XKeysymToKeycode does:
// column by column, lowest keycode first. It returns 0 when sym is unmapped.
func keycodeForKeysym(minKeycode xproto.Keycode, perKeycode int, keysyms []xproto.Keysym, sym xproto.Keysym) xproto.Keycode {
	if perKeycode <= 0 {
		return 0
	}
	n := len(keysyms) / perKeycode
	for col := 0; col < perKeycode; col++ {
		for i := 0; i < n; i++ {
			if keysyms[i*perKeycode+col] == sym {
				return minKeycode + xproto.Keycode(i)
			}
		}
	}
	return 0
}

// Resolve implements KeyGrabber.
func (s *x11KeySource) Resolve(symbol string) (uint32, bool) {
	sym, ok := keysymsByName[symbol]
	if !ok {
		return 0, false
	}
	code := keycodeForKeysym(s.minKeycode, s.perKeycode, s.keysyms, sym)
	if code == 0 {
		return 0, false
	}
	return uint32(code), true
}

// Grab implements KeyGrabber. AnyModifier matters: media keys often arrive
// with NumLock or Shift state attached and would otherwise slip past the grab.
func (s *x11KeySource) Grab(code uint32) error {
	kc := xproto.Keycode(code)
	err := xproto.GrabKeyChecked(s.conn, false, s.root, xproto.ModMaskAny, kc,
		xproto.GrabModeAsync, xproto.GrabModeAsync).Check()
	if err != nil {
		return fmt.Errorf("grab keycode %d: %w", code, err)
	}

	s.mu.Lock()
	s.grabbed = append(s.grabbed, kc)
	s.mu.Unlock()
	return nil
}

// Run implements KeySource.
func (s *x11KeySource) Run(ctx context.Context, events chan<- Event) error {
	for {
		ev, xerr := s.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			// Connection closed, either by Close or by the server.
			if ctx.Err() != nil || s.isClosed() {
				return nil
			}
			return fmt.Errorf("X server connection closed")
		}
		if xerr != nil {
			s.logger.Debug("X protocol error", "error", xerr)
			continue
		}

		press, ok := ev.(xproto.KeyPressEvent)
		if !ok {
			continue
		}

		select {
		case events <- KeyPressed{Code: uint32(press.Detail)}:
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *x11KeySource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close implements KeySource.
func (s *x11KeySource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	grabbed := s.grabbed
	s.grabbed = nil
	s.mu.Unlock()

	for _, kc := range grabbed {
		if err := xproto.UngrabKeyChecked(s.conn, kc, s.root, xproto.ModMaskAny).Check(); err != nil {
			s.logger.Debug("ungrab failed", "code", kc, "error", err)
		}
	}
	s.conn.Close()
	return nil
}
