package main

import (
	"errors"
	"fmt"
	"log/slog"
)

// ConnectionState is the lifecycle state of the audio server connection.
type ConnectionState int

const (
	StateConnecting ConnectionState = iota
	StateAuthorizing
	StateSettingName
	StateReady
	StateTerminated
	StateFailed
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthorizing:
		return "authorizing"
	case StateSettingName:
		return "setting_name"
	case StateReady:
		return "ready"
	case StateTerminated:
		return "terminated"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("ConnectionState(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are possible.
func (s ConnectionState) Terminal() bool {
	return s == StateTerminated || s == StateFailed
}

// errConnectionFailed is recorded when the server reports a failure without a reason.
var errConnectionFailed = errors.New("audio server connection failed")

// AudioConnection records the state reported by the audio backend and turns
// the terminal states into a single shutdown request.
//
// It is owned by the daemon loop; other components only read State/Ready.
// There is no reconnect: once terminal, the state never changes again.
type AudioConnection struct {
	state  ConnectionState
	err    error
	stop   func()
	logger *slog.Logger

	shutdownRequested bool
}

// NewAudioConnection starts in StateConnecting. stop is invoked once, when
// the connection reaches a terminal state.
func NewAudioConnection(stop func(), logger *slog.Logger) *AudioConnection {
	return &AudioConnection{
		state:  StateConnecting,
		stop:   stop,
		logger: logger,
	}
}

// State returns the last recorded state.
func (c *AudioConnection) State() ConnectionState { return c.state }

// Ready reports whether audio operations may be issued.
func (c *AudioConnection) Ready() bool { return c.state == StateReady }

// Err returns the failure cause once the connection has failed, nil otherwise.
func (c *AudioConnection) Err() error { return c.err }

// Transition records a state reported by the server.
func (c *AudioConnection) Transition(next ConnectionState, err error) {
	if c.state.Terminal() {
		c.logger.Debug("ignoring connection state after terminal state", "state", c.state, "next", next)
		return
	}

	prev := c.state
	c.state = next

	switch next {
	case StateConnecting, StateAuthorizing, StateSettingName:
		c.logger.Debug("audio connection progress", "from", prev, "to", next)

	case StateReady:
		c.logger.Info("audio connection ready")

	case StateTerminated:
		c.logger.Info("audio connection terminated")
		c.requestShutdown()

	case StateFailed:
		if err == nil {
			err = errConnectionFailed
		}
		c.err = err
		c.logger.Error("audio connection failure", "error", err)
		c.requestShutdown()

	default:
		c.logger.Warn("unknown connection state", "state", next)
	}
}

func (c *AudioConnection) requestShutdown() {
	if c.shutdownRequested {
		return
	}
	c.shutdownRequested = true
	if c.stop != nil {
		c.stop()
	}
}
