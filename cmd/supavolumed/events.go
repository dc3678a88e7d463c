package main

import (
	"encoding/json"
	"fmt"
)

// ============================================================================
// Events
// ============================================================================
// Everything the daemon loop reacts to arrives as an Event on one channel:
// key presses from the key source, connection state reports from the audio
// backend, completions of audio requests, and actions injected over IPC.
// Only the daemon loop consumes them, so none of the handlers need locks.
// ============================================================================

// Event is the input to the daemon loop.
type Event interface {
	eventMarker()
}

// KeyPressed is a key press reported by the key source.
type KeyPressed struct {
	Code uint32
}

func (KeyPressed) eventMarker() {}

// ConnectionStateChanged reports a new audio server connection state.
// Err carries the server-side reason for StateFailed.
type ConnectionStateChanged struct {
	State ConnectionState
	Err   error
}

func (ConnectionStateChanged) eventMarker() {}

// DeviceInfoReceived is one delivery of a device info request.
//
// A request yields zero or one delivery with Info set, followed by exactly one
// terminal delivery with Last set. A failed request yields only the terminal
// delivery, with Err set.
type DeviceInfoReceived struct {
	TaskID uint64
	Device string
	Info   *DeviceInfo
	Last   bool
	Err    error
}

func (DeviceInfoReceived) eventMarker() {}

// MutationCompleted reports the outcome of a set-volume or set-mute request.
type MutationCompleted struct {
	TaskID uint64
	Device string
	Err    error
}

func (MutationCompleted) eventMarker() {}

// ActionRequested asks for a logical action, as if its key had been pressed.
type ActionRequested struct {
	Action Action
}

func (ActionRequested) eventMarker() {}

// VolumeChangeRequested asks for a volume change by an explicit amount.
type VolumeChangeRequested struct {
	Delta int `json:"delta"` // percentage points, signed
}

func (VolumeChangeRequested) eventMarker() {}

// RequestStateSnapshot asks the daemon loop for the last presented state.
// The loop answers on Reply without blocking.
type RequestStateSnapshot struct {
	Reply chan<- VolumeSnapshot
}

func (RequestStateSnapshot) eventMarker() {}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================
// Only the externally injectable events have a wire form. The envelope uses a
// type discriminator since Go doesn't have union types.
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalEvent deserializes a JSON event envelope into a concrete Event
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "raise_volume":
		return ActionRequested{Action: ActionRaiseVolume}, nil

	case "lower_volume":
		return ActionRequested{Action: ActionLowerVolume}, nil

	case "toggle_mute":
		return ActionRequested{Action: ActionToggleMute}, nil

	case "toggle_mic_mute":
		return ActionRequested{Action: ActionToggleMicMute}, nil

	case "change_volume":
		var a VolumeChangeRequested
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal VolumeChangeRequested: %w", err)
		}
		if a.Delta == 0 {
			return nil, fmt.Errorf("change_volume: delta must be non-zero")
		}
		if a.Delta < -maxStep || a.Delta > maxStep {
			return nil, fmt.Errorf("change_volume: delta %d out of range [-%d, %d]", a.Delta, maxStep, maxStep)
		}
		return a, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}
