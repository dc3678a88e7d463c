package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/pflag"
)

// ============================================================================
// supavolumectl - Command-line IPC Client
// ============================================================================
// Sends one request to a running supavolumed over its control socket, e.g.
// from a status bar click handler or a window manager binding.
//
// Usage:
//   supavolumectl raise
//   supavolumectl lower
//   supavolumectl change -2
//   supavolumectl mute
//   supavolumectl mic-mute
// ============================================================================

// Request is the wire envelope understood by the daemon.
type Request struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

const dialTimeout = 2 * time.Second

func defaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "supavolumed.sock")
	}
	return "/tmp/supavolumed.sock"
}

func main() {
	fs := pflag.NewFlagSet("supavolumectl", pflag.ContinueOnError)
	socketPath := fs.String("socket", defaultSocketPath(), "Unix domain socket path of the daemon")
	showHelp := fs.BoolP("help", "h", false, "Show this help message")
	fs.Usage = func() { printUsage(fs) }
	// Options come before the command so "change -2" is not read as a flag.
	fs.SetInterspersed(false)

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	if *showHelp {
		printUsage(fs)
		return
	}

	args := fs.Args()
	if len(args) == 0 {
		printUsage(fs)
		os.Exit(1)
	}
	if args[0] == "help" {
		printUsage(fs)
		return
	}

	req, err := buildRequest(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := send(*socketPath, req); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("ok")
}

// buildRequest translates command-line arguments into a daemon request.
func buildRequest(args []string) (Request, error) {
	switch args[0] {
	case "raise", "up":
		return Request{Type: "raise_volume"}, nil

	case "lower", "down":
		return Request{Type: "lower_volume"}, nil

	case "mute", "toggle-mute":
		return Request{Type: "toggle_mute"}, nil

	case "mic-mute", "toggle-mic-mute":
		return Request{Type: "toggle_mic_mute"}, nil

	case "change":
		if len(args) < 2 {
			return Request{}, errors.New("change requires a signed percentage, e.g. +3 or -2")
		}
		delta, err := strconv.Atoi(args[1])
		if err != nil {
			return Request{}, fmt.Errorf("invalid percentage %q: %w", args[1], err)
		}
		if delta == 0 || delta < -100 || delta > 100 {
			return Request{}, fmt.Errorf("percentage must be non-zero and within [-100, 100], got %d", delta)
		}
		data, err := json.Marshal(struct {
			Delta int `json:"delta"`
		}{delta})
		if err != nil {
			return Request{}, fmt.Errorf("marshal change: %w", err)
		}
		return Request{Type: "change_volume", Data: data}, nil

	default:
		return Request{}, fmt.Errorf("unknown command: %s", args[0])
	}
}

func send(socketPath string, req Request) error {
	conn, err := net.DialTimeout("unix", socketPath, dialTimeout)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(dialTimeout))

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	// Line-delimited JSON
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	var response IPCResponse
	if err := json.NewDecoder(conn).Decode(&response); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if response.Status == "error" {
		return fmt.Errorf("daemon error: %s", response.Error)
	}
	return nil
}

func printUsage(fs *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `supavolumectl - Control a running supavolumed via IPC

Usage:
  supavolumectl [options] <command> [args]

Options:
%s
Commands:
  raise, up                 Raise the default sink volume by one step
  lower, down               Lower the default sink volume by one step
  change <percent>          Change the default sink volume by a signed amount
  mute, toggle-mute         Toggle the default sink mute
  mic-mute                  Toggle the default source mute
  help                      Show this help message

Examples:
  supavolumectl mute
  supavolumectl change -10
  supavolumectl --socket /tmp/supavolumed.sock raise
`, fs.FlagUsages())
}
