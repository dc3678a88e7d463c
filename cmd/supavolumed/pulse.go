package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
	"golang.org/x/sys/unix"
)

// pulseServer implements AudioServer over the PulseAudio native protocol.
//
// The client handle is written by the connect goroutine and read by effect
// workers, hence the mutex. Everything else about the connection (its state
// machine) lives in AudioConnection on the daemon loop.
type pulseServer struct {
	mu     sync.Mutex
	client *pulse.Client

	server     string
	probeEvery time.Duration
	logger     *slog.Logger
}

func newPulseServer(server string, probeEvery time.Duration, logger *slog.Logger) *pulseServer {
	if probeEvery <= 0 {
		probeEvery = defaultProbeEvery
	}
	return &pulseServer{
		server:     server,
		probeEvery: probeEvery,
		logger:     logger,
	}
}

// Run connects to the server and then watches the connection, reporting every
// state change through emit. It returns once the connection is terminal or ctx
// is canceled. There is no reconnect.
func (p *pulseServer) Run(ctx context.Context, emit func(Event)) {
	emit(ConnectionStateChanged{State: StateConnecting})

	opts := []pulse.ClientOption{pulse.ClientApplicationName(appName)}
	if p.server != "" {
		opts = append(opts, pulse.ClientServerString(p.server))
	}

	// NewClient performs the whole handshake (auth cookie + client name) before
	// returning, so the intermediate states are not observable here.
	client, err := pulse.NewClient(opts...)
	if err != nil {
		emit(ConnectionStateChanged{State: StateFailed, Err: fmt.Errorf("connect to audio server: %w", err)})
		return
	}

	p.mu.Lock()
	p.client = client
	p.mu.Unlock()

	p.logger.Debug("connected to audio server", "server", p.server)
	emit(ConnectionStateChanged{State: StateReady})

	p.watch(ctx, emit)
}

// watch probes the server until the connection drops or ctx is canceled.
func (p *pulseServer) watch(ctx context.Context, emit func(Event)) {
	ticker := time.NewTicker(p.probeEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			var reply proto.GetServerInfoReply
			err := p.request(&proto.GetServerInfo{}, &reply)
			if err == nil {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			emit(probeFailed(err))
			return
		}
	}
}

// probeFailed maps a liveness probe error to the terminal state. The server
// going away is a failure like any other; only the client ends a connection
// cleanly, and it never does so while the probe is running.
func probeFailed(err error) ConnectionStateChanged {
	if isConnectionClosed(err) {
		return ConnectionStateChanged{State: StateFailed, Err: fmt.Errorf("connection terminated: %w", err)}
	}
	return ConnectionStateChanged{State: StateFailed, Err: fmt.Errorf("probe audio server: %w", err)}
}

// isConnectionClosed reports errors that mean the server closed the connection.
func isConnectionClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, unix.ECONNRESET) ||
		errors.Is(err, unix.EPIPE)
}

// Close releases the client connection.
func (p *pulseServer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
}

func (p *pulseServer) request(req proto.RequestArgs, reply proto.Reply) error {
	p.mu.Lock()
	c := p.client
	p.mu.Unlock()

	if c == nil {
		return errNoClient{}
	}
	return c.RawRequest(req, reply)
}

// GetDeviceInfo implements AudioServer.
func (p *pulseServer) GetDeviceInfo(kind DeviceKind, name string) (*DeviceInfo, error) {
	switch kind {
	case DeviceSink:
		var reply proto.GetSinkInfoReply
		if err := p.request(&proto.GetSinkInfo{SinkIndex: proto.Undefined, SinkName: name}, &reply); err != nil {
			return nil, fmt.Errorf("get sink info %s: %w", name, err)
		}
		return &DeviceInfo{
			Name: reply.SinkName,
			Volume: ChannelVolume{
				Levels: append([]uint32(nil), reply.ChannelVolumes...),
				Muted:  reply.Mute,
			},
		}, nil

	case DeviceSource:
		var reply proto.GetSourceInfoReply
		if err := p.request(&proto.GetSourceInfo{SourceIndex: proto.Undefined, SourceName: name}, &reply); err != nil {
			return nil, fmt.Errorf("get source info %s: %w", name, err)
		}
		return &DeviceInfo{
			Name: reply.SourceName,
			Volume: ChannelVolume{
				Levels: append([]uint32(nil), reply.ChannelVolumes...),
				Muted:  reply.Mute,
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown device kind %v", kind)
	}
}

// SetVolume implements AudioServer.
func (p *pulseServer) SetVolume(kind DeviceKind, name string, levels []uint32) error {
	var err error
	switch kind {
	case DeviceSink:
		err = p.request(&proto.SetSinkVolume{SinkIndex: proto.Undefined, SinkName: name, ChannelVolumes: proto.ChannelVolumes(levels)}, nil)
	case DeviceSource:
		err = p.request(&proto.SetSourceVolume{SourceIndex: proto.Undefined, SourceName: name, ChannelVolumes: proto.ChannelVolumes(levels)}, nil)
	default:
		return fmt.Errorf("unknown device kind %v", kind)
	}
	if err != nil {
		return fmt.Errorf("set %s volume %s: %w", kind, name, err)
	}
	return nil
}

// SetMute implements AudioServer.
func (p *pulseServer) SetMute(kind DeviceKind, name string, muted bool) error {
	var err error
	switch kind {
	case DeviceSink:
		err = p.request(&proto.SetSinkMute{SinkIndex: proto.Undefined, SinkName: name, Mute: muted}, nil)
	case DeviceSource:
		err = p.request(&proto.SetSourceMute{SourceIndex: proto.Undefined, SourceName: name, Mute: muted}, nil)
	default:
		return fmt.Errorf("unknown device kind %v", kind)
	}
	if err != nil {
		return fmt.Errorf("set %s mute %s: %w", kind, name, err)
	}
	return nil
}
