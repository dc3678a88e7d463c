package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"
)

// frame mirrors the daemon's state websocket envelope.
type frame struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

type volumeData struct {
	Percent uint32 `json:"percent"`
	Muted   bool   `json:"muted"`
	Icon    string `json:"icon"`
	Known   bool   `json:"known"`
}

func main() {
	var (
		wsURL = pflag.String("ws", "ws://127.0.0.1:3011/ws", "supavolumed state websocket URL")
		raw   = pflag.Bool("raw", false, "Print frames as received instead of one line per state")
	)
	pflag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	// Protects concurrent writes to the websocket
	var writeMu sync.Mutex

	// The daemon pings every 20s; answer and extend the deadline.
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			if *raw {
				fmt.Printf("%s\n", message)
				continue
			}
			printFrame(os.Stdout, message)
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// printFrame writes one human-readable line per volume frame.
func printFrame(w io.Writer, message []byte) {
	var f frame
	if err := json.Unmarshal(message, &f); err != nil {
		fmt.Fprintf(w, "[TEXT] %s\n", message)
		return
	}

	switch f.Type {
	case "state_init", "volume_changed":
		var v volumeData
		if err := json.Unmarshal(f.Data, &v); err != nil {
			fmt.Fprintf(w, "[%s] malformed data: %v\n", f.Type, err)
			return
		}
		if !v.Known {
			fmt.Fprintf(w, "[%s] unknown\n", f.Type)
			return
		}
		status := "UNMUTED"
		if v.Muted {
			status = "MUTED"
		}
		fmt.Fprintf(w, "[%s] %d%% %s (%s)\n", f.Type, v.Percent, status, v.Icon)

	default:
		fmt.Fprintf(w, "[%s] %s\n", f.Type, f.Data)
	}
}
