package main

import (
	"errors"
	"testing"
)

func TestConnection_StartsConnecting(t *testing.T) {
	c := NewAudioConnection(nil, discardLogger())
	if c.State() != StateConnecting || c.Ready() {
		t.Fatalf("initial state = %s ready=%v", c.State(), c.Ready())
	}
}

func TestConnection_HandshakeReachesReady(t *testing.T) {
	stops := 0
	c := NewAudioConnection(func() { stops++ }, discardLogger())

	for _, s := range []ConnectionState{StateAuthorizing, StateSettingName} {
		c.Transition(s, nil)
		if c.Ready() {
			t.Fatalf("ready during %s", s)
		}
	}
	c.Transition(StateReady, nil)

	if !c.Ready() {
		t.Fatalf("state = %s, want ready", c.State())
	}
	if stops != 0 {
		t.Fatalf("stop called %d times during handshake", stops)
	}
}

func TestConnection_FailedRequestsShutdownOnce(t *testing.T) {
	stops := 0
	c := NewAudioConnection(func() { stops++ }, discardLogger())
	cause := errors.New("connection refused")

	c.Transition(StateReady, nil)
	c.Transition(StateFailed, cause)
	c.Transition(StateFailed, errors.New("again"))
	c.Transition(StateTerminated, nil)
	c.Transition(StateReady, nil)

	if stops != 1 {
		t.Fatalf("stop called %d times, want 1", stops)
	}
	if c.State() != StateFailed {
		t.Fatalf("state = %s, want failed", c.State())
	}
	if !errors.Is(c.Err(), cause) {
		t.Fatalf("Err() = %v, want %v", c.Err(), cause)
	}
}

func TestConnection_FailedWithoutReason(t *testing.T) {
	c := NewAudioConnection(nil, discardLogger())
	c.Transition(StateFailed, nil)

	if !errors.Is(c.Err(), errConnectionFailed) {
		t.Fatalf("Err() = %v, want errConnectionFailed", c.Err())
	}
}

func TestConnection_TerminatedIsClean(t *testing.T) {
	stops := 0
	c := NewAudioConnection(func() { stops++ }, discardLogger())

	c.Transition(StateReady, nil)
	c.Transition(StateTerminated, nil)
	c.Transition(StateTerminated, nil)

	if stops != 1 {
		t.Fatalf("stop called %d times, want 1", stops)
	}
	if c.Err() != nil {
		t.Fatalf("Err() = %v, want nil", c.Err())
	}
	if c.Ready() {
		t.Fatal("ready after termination")
	}
}
