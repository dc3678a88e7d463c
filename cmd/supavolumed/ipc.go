package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
)

// ============================================================================
// IPC Control Socket
// ============================================================================
// Scripts and supavolumectl drive the daemon without a keyboard, e.g. from a
// status bar click handler. Requests enter the daemon loop like key presses
// and pass the same readiness gate.
//
// One JSON object per line in each direction:
//   -> {"type": "raise_volume"}
//   -> {"type": "change_volume", "data": {"delta": -2}}
//   <- {"status": "ok"}
//   <- {"status": "error", "error": "unknown event type: \"reboot\""}
// ============================================================================

// IPCResponse answers one request line.
type IPCResponse struct {
	Status string `json:"status"`          // "ok" or "error"
	Error  string `json:"error,omitempty"` // set when Status is "error"
}

func ipcOK() IPCResponse { return IPCResponse{Status: "ok"} }

func ipcError(format string, args ...any) IPCResponse {
	return IPCResponse{Status: "error", Error: fmt.Sprintf(format, args...)}
}

// runIPCServer listens on socketPath and serves clients until ctx is canceled.
// The socket file is owner-only and removed again on return.
func runIPCServer(ctx context.Context, socketPath string, events chan<- Event, logger *slog.Logger) error {
	// A previous run that was killed leaves its socket behind.
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove stale socket %s: %w", socketPath, err)
	}

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer os.Remove(socketPath)
	defer ln.Close()

	if err := os.Chmod(socketPath, 0o600); err != nil {
		return fmt.Errorf("restrict socket permissions: %w", err)
	}
	logger.Info("IPC listening", "socket", socketPath)

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		switch {
		case err == nil:
			go serveIPCClient(conn, events, logger)
		case ctx.Err() != nil, errors.Is(err, net.ErrClosed):
			logger.Debug("IPC listener closed")
			return nil
		default:
			logger.Error("IPC accept failed", "error", err)
		}
	}
}

// serveIPCClient answers every request line on conn until the client hangs up.
func serveIPCClient(conn net.Conn, events chan<- Event, logger *slog.Logger) {
	defer conn.Close()

	enc := json.NewEncoder(conn)
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		resp := submitIPCRequest(line, events, logger)
		if err := enc.Encode(resp); err != nil {
			logger.Debug("IPC reply failed", "error", err)
			return
		}
	}
}

func submitIPCRequest(line string, events chan<- Event, logger *slog.Logger) IPCResponse {
	ev, err := UnmarshalEvent([]byte(line))
	if err != nil {
		logger.Debug("IPC rejected request", "line", line, "error", err)
		return ipcError("parse event: %v", err)
	}

	// Never wait on the loop: a stuck daemon should not hang its clients.
	select {
	case events <- ev:
		logger.Debug("IPC request queued", "event", fmt.Sprintf("%T", ev))
		return ipcOK()
	default:
		return ipcError("event queue full")
	}
}
