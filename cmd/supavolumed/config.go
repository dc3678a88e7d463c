package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
)

// Input backends for the key source.
const (
	inputX11   = "x11"
	inputEvdev = "evdev"
)

// Config holds every runtime knob of the daemon.
//
// There is no config file; all values come from the command line.
// Keep defaults and validation centralized so the rest of the code can
// assume a well-formed config.
type Config struct {
	// Step is the volume change per key press, in percentage points.
	Step int

	// Input selects the key source: "x11" (global grabs on the root window)
	// or "evdev" (raw Linux input devices, for sessions without an X server).
	Input        string
	EvdevDevices []string

	// Server is the PulseAudio server string. Empty means the library default
	// ($PULSE_SERVER, then the per-user runtime socket).
	Server string

	// IPCSocket is the control socket path. Empty disables IPC.
	IPCSocket string

	// StateWSAddr is the listen address of the state websocket. Empty disables it.
	StateWSAddr string

	LogLevel string
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Step:      defaultStep,
		Input:     defaultInputBackend,
		IPCSocket: defaultIPCSocketPath(),
		LogLevel:  string(LogLevelInfo),
	}
}

// defaultIPCSocketPath places the socket in the per-user runtime directory
// so two users on one machine do not collide.
func defaultIPCSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, defaultSocketName)
	}
	return fallbackIPCSocket
}

// bindFlags registers the command-line surface on fs, writing into cfg.
func (c *Config) bindFlags(fs *pflag.FlagSet) {
	fs.IntVarP(&c.Step, "step", "s", c.Step, "percentage points to increase/decrease volume by")
	fs.StringVar(&c.Input, "input", c.Input, "key source: x11|evdev")
	fs.StringSliceVar(&c.EvdevDevices, "evdev-device", c.EvdevDevices, "Linux input device to read media keys from (repeatable, evdev input only)")
	fs.StringVar(&c.Server, "server", c.Server, "PulseAudio server address (default: $PULSE_SERVER or the user runtime socket)")
	fs.StringVar(&c.IPCSocket, "ipc-socket", c.IPCSocket, "Unix domain socket path for IPC (empty disables)")
	fs.StringVar(&c.StateWSAddr, "state-ws-addr", c.StateWSAddr, "listen address for the state websocket, e.g. 127.0.0.1:3011 (empty disables)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: error, warn, info, debug")
}

// Validate checks config invariants and returns a user-friendly error.
func (c *Config) Validate() error {
	if c.Step < 1 || c.Step > maxStep {
		return fmt.Errorf("step must be between 1 and %d, got %d", maxStep, c.Step)
	}

	switch c.Input {
	case inputX11:
	case inputEvdev:
		if len(c.EvdevDevices) == 0 {
			return errors.New("evdev input needs at least one --evdev-device")
		}
		for i, dev := range c.EvdevDevices {
			if dev == "" {
				return fmt.Errorf("evdev-device[%d] is empty", i)
			}
		}
	default:
		return fmt.Errorf("input must be %q or %q, got %q", inputX11, inputEvdev, c.Input)
	}

	if _, err := parseLogLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}
