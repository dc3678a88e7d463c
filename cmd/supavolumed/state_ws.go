package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ============================================================================
// State WebSocket
// ============================================================================
//
// Status bars and OSD widgets can follow the volume without polling the audio
// server: every state the presenter shows is fanned out to websocket clients.
//
//   - Hub tracks connected clients; each client has its own write pump so a
//     slow client never blocks the others, and is dropped when it falls behind.
//   - RunBroadcaster turns presenter snapshots into JSON frames, coalescing
//     bursts (latest wins) to at most one frame per window.
//   - On connect a client gets "state_init" with the last presented state,
//     fetched through the daemon loop so the presenter is never shared.
//
// Frames are JSON text with an envelope: {type, ts, data}.
// ============================================================================

// envelope is the wire format envelope for WS messages.
type envelope struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data any        `json:"data,omitempty"`
}

// wsVolumeData is the `data` payload of "state_init" and "volume_changed".
type wsVolumeData struct {
	Percent uint32 `json:"percent"`
	Muted   bool   `json:"muted"`
	Icon    string `json:"icon"`
	Known   bool   `json:"known"`
}

func encodeVolumeFrame(typ string, s VolumeSnapshot) ([]byte, error) {
	ts := s.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return json.Marshal(envelope{
		Type: typ,
		Ts:   &ts,
		Data: wsVolumeData{Percent: s.Percent, Muted: s.Muted, Icon: s.Icon, Known: s.Known},
	})
}

// ============================================================================
// Hub
// ============================================================================

type Hub struct {
	logger *slog.Logger

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.Mutex
	clients map[*Client]struct{}

	sendBuf int
}

type HubConfig struct {
	// SendBuf is the per-client outbound queue size (default 16).
	SendBuf int
	// BroadcastBuf is the hub inbound broadcast queue size (default 64).
	BroadcastBuf int
}

// NewHub constructs a hub. Call Run(ctx) to start it.
func NewHub(logger *slog.Logger, cfg HubConfig) *Hub {
	if cfg.SendBuf <= 0 {
		cfg.SendBuf = 16
	}
	if cfg.BroadcastBuf <= 0 {
		cfg.BroadcastBuf = 64
	}
	return &Hub{
		logger:     logger,
		broadcast:  make(chan []byte, cfg.BroadcastBuf),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		clients:    make(map[*Client]struct{}),
		sendBuf:    cfg.SendBuf,
	}
}

// Run processes hub events until ctx is canceled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAllClients()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("ws client registered", "remote_addr", c.remoteAddr, "clients", n)

		case c := <-h.unregister:
			h.removeClient(c, "unregister")

		case msg := <-h.broadcast:
			// Collect slow clients first, remove them after unlocking.
			var slow []*Client

			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()

			for _, c := range slow {
				h.removeClient(c, "slow_client")
			}
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.closeSend()
		delete(h.clients, c)
	}
}

func (h *Hub) removeClient(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	// Closing send signals writePump to exit.
	c.closeSend()
	h.logger.Debug("ws client disconnected", "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
}

// BroadcastBytes enqueues a serialized frame for every client.
// It never blocks; if the hub queue is full the frame is dropped.
func (h *Hub) BroadcastBytes(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("ws hub broadcast queue full, dropping message", "bytes", len(msg))
	}
}

// ============================================================================
// Client
// ============================================================================

type Client struct {
	hub *Hub

	conn *websocket.Conn
	send chan []byte

	closeOnce  sync.Once
	remoteAddr string
	logger     *slog.Logger
}

// NewClient creates a client with a buffered send channel.
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, logger *slog.Logger) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, hub.sendBuf),
		remoteAddr: remoteAddr,
		logger:     logger,
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second
)

// wsCoalesceWindow is the minimum spacing between two volume frames.
const wsCoalesceWindow = 50 * time.Millisecond

// writePump writes queued frames and keepalive pings until send is closed or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					c.logger.Debug("ws writePump exiting", "remote_addr", c.remoteAddr, "error", err)
				}
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("ws ping failed", "remote_addr", c.remoteAddr, "error", err)
				return
			}
		}
	}
}

// readPump discards inbound frames to process control frames and detect
// disconnects, then unregisters the client.
func (c *Client) readPump() {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("ws readPump exiting", "remote_addr", c.remoteAddr, "error", err)
			}
			c.hub.unregister <- c
			return
		}
	}
}

// ============================================================================
// HTTP Handler
// ============================================================================

type StateServer struct {
	logger *slog.Logger
	hub    *Hub

	// events reaches the daemon loop for the initial snapshot.
	events chan<- Event
}

func NewStateServer(hub *Hub, events chan<- Event, logger *slog.Logger) *StateServer {
	return &StateServer{logger: logger, hub: hub, events: events}
}

var upgrader = websocket.Upgrader{
	// Local tools only; the listener is expected to bind to loopback.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler returns the HTTP handler serving the websocket at path.
func (s *StateServer) Handler(path string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(path, s.handleStateWS)
	return mux
}

func (s *StateServer) handleStateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	client := NewClient(s.hub, conn, r.RemoteAddr, s.logger)
	s.hub.register <- client

	// The pumps outlive the request; net/http cancels r.Context() when the
	// handler returns.
	go client.writePump()
	go client.readPump()

	snap, ok := s.requestSnapshot(r.Context())
	if !ok {
		return
	}
	msg, err := encodeVolumeFrame("state_init", snap)
	if err != nil {
		s.logger.Warn("ws marshal state_init failed", "error", err)
		return
	}
	select {
	case client.send <- msg:
	default:
		s.hub.unregister <- client
	}
}

// requestSnapshot asks the daemon loop for the last presented state.
func (s *StateServer) requestSnapshot(ctx context.Context) (VolumeSnapshot, bool) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	reply := make(chan VolumeSnapshot, 1)
	select {
	case s.events <- RequestStateSnapshot{Reply: reply}:
	case <-ctx.Done():
		return VolumeSnapshot{}, false
	}

	select {
	case snap := <-reply:
		return snap, true
	case <-ctx.Done():
		s.logger.Debug("ws snapshot request timed out")
		return VolumeSnapshot{}, false
	}
}

// ============================================================================
// Broadcaster
// ============================================================================

// RunBroadcaster forwards presenter snapshots to the hub as "volume_changed"
// frames. Bursts are rate-limited rather than debounced: the latest pending
// snapshot is flushed once per wsCoalesceWindow while updates keep coming.
func RunBroadcaster(ctx context.Context, hub *Hub, src <-chan VolumeSnapshot, logger *slog.Logger) {
	var (
		pending *VolumeSnapshot
		timer   *time.Timer
		timerC  <-chan time.Time
	)

	flush := func() {
		if pending == nil {
			return
		}
		msg, err := encodeVolumeFrame("volume_changed", *pending)
		pending = nil
		if err != nil {
			logger.Warn("ws broadcaster marshal failed", "error", err)
			return
		}
		hub.BroadcastBytes(msg)
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			if timer != nil {
				timer.Stop()
			}
			return

		case <-timerC:
			timer, timerC = nil, nil
			flush()

		case snap, ok := <-src:
			if !ok {
				flush()
				return
			}
			if timer == nil {
				// First update after a quiet period goes out immediately.
				pending = &snap
				flush()
				timer = time.NewTimer(wsCoalesceWindow)
				timerC = timer.C
				continue
			}
			pending = &snap
		}
	}
}
