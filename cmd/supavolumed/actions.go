package main

import "fmt"

// Action is a logical media-key action.
type Action int

const (
	ActionRaiseVolume Action = iota
	ActionLowerVolume
	ActionToggleMute
	ActionToggleMicMute
)

func (a Action) String() string {
	switch a {
	case ActionRaiseVolume:
		return "RaiseVolume"
	case ActionLowerVolume:
		return "LowerVolume"
	case ActionToggleMute:
		return "ToggleMute"
	case ActionToggleMicMute:
		return "ToggleMicMute"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// KeyBinding ties an action to a key symbol and the code that symbol
// resolved to under the active keyboard layout. Bindings are immutable
// once registered.
type KeyBinding struct {
	Action Action
	Symbol string
	Code   uint32
}

// mediaKeys lists the symbols grabbed at startup, in registration order.
var mediaKeys = []struct {
	Action Action
	Symbol string
}{
	{ActionRaiseVolume, "XF86AudioRaiseVolume"},
	{ActionLowerVolume, "XF86AudioLowerVolume"},
	{ActionToggleMute, "XF86AudioMute"},
	{ActionToggleMicMute, "XF86AudioMicMute"},
}
