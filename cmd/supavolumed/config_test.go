package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Step != 5 {
		t.Fatalf("default step = %d, want 5", cfg.Step)
	}
}

func TestDefaultIPCSocketPath_UsesRuntimeDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	if got, want := defaultIPCSocketPath(), filepath.Join("/run/user/1000", defaultSocketName); got != want {
		t.Fatalf("defaultIPCSocketPath() = %q, want %q", got, want)
	}

	t.Setenv("XDG_RUNTIME_DIR", "")
	if got := defaultIPCSocketPath(); got != fallbackIPCSocket {
		t.Fatalf("defaultIPCSocketPath() = %q, want %q", got, fallbackIPCSocket)
	}
}

func TestConfig_BindFlags(t *testing.T) {
	cfg := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.bindFlags(fs)

	args := []string{
		"-s", "2",
		"--input", "evdev",
		"--evdev-device", "/dev/input/event3",
		"--evdev-device", "/dev/input/event7",
		"--ipc-socket", "",
		"--state-ws-addr", "127.0.0.1:3011",
		"--log-level", "debug",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse: %v", err)
	}

	if cfg.Step != 2 || cfg.Input != inputEvdev || cfg.IPCSocket != "" || cfg.StateWSAddr != "127.0.0.1:3011" || cfg.LogLevel != "debug" {
		t.Fatalf("parsed config = %+v", cfg)
	}
	if len(cfg.EvdevDevices) != 2 || cfg.EvdevDevices[1] != "/dev/input/event7" {
		t.Fatalf("evdev devices = %v", cfg.EvdevDevices)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
}

func TestConfig_LongStepFlag(t *testing.T) {
	cfg := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.bindFlags(fs)

	if err := fs.Parse([]string{"--step=10"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Step != 10 {
		t.Fatalf("step = %d, want 10", cfg.Step)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "zero step", mutate: func(c *Config) { c.Step = 0 }, wantErr: "step"},
		{name: "step above 100", mutate: func(c *Config) { c.Step = 101 }, wantErr: "step"},
		{name: "unknown input", mutate: func(c *Config) { c.Input = "wayland" }, wantErr: "input"},
		{name: "evdev without device", mutate: func(c *Config) { c.Input = inputEvdev }, wantErr: "evdev-device"},
		{name: "empty evdev device", mutate: func(c *Config) {
			c.Input = inputEvdev
			c.EvdevDevices = []string{""}
		}, wantErr: "empty"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "trace" }, wantErr: "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
