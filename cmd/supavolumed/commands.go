package main

import "fmt"

// ==============================
// Commands (side effects)
// ==============================

// Command represents an audio server request to be executed by the effects layer.
// The controller emits commands; their outcomes come back as events.
type Command interface {
	commandMarker()
	String() string
}

// CmdGetDeviceInfo fetches the current state of a device.
type CmdGetDeviceInfo struct {
	TaskID uint64
	Kind   DeviceKind
	Device string
}

func (CmdGetDeviceInfo) commandMarker() {}
func (c CmdGetDeviceInfo) String() string {
	return fmt.Sprintf("CmdGetDeviceInfo(task=%d %s=%s)", c.TaskID, c.Kind, c.Device)
}

// CmdSetVolume sets per-channel levels on a named device.
type CmdSetVolume struct {
	TaskID uint64
	Kind   DeviceKind
	Device string
	Levels []uint32
}

func (CmdSetVolume) commandMarker() {}
func (c CmdSetVolume) String() string {
	return fmt.Sprintf("CmdSetVolume(task=%d %s=%s levels=%v)", c.TaskID, c.Kind, c.Device, c.Levels)
}

// CmdSetMute sets the mute flag on a named device.
type CmdSetMute struct {
	TaskID uint64
	Kind   DeviceKind
	Device string
	Muted  bool
}

func (CmdSetMute) commandMarker() {}
func (c CmdSetMute) String() string {
	return fmt.Sprintf("CmdSetMute(task=%d %s=%s muted=%v)", c.TaskID, c.Kind, c.Device, c.Muted)
}
