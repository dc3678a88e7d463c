package main

import "fmt"

// DeviceKind distinguishes output devices (sinks) from input devices (sources).
type DeviceKind int

const (
	DeviceSink DeviceKind = iota
	DeviceSource
)

func (k DeviceKind) String() string {
	switch k {
	case DeviceSink:
		return "sink"
	case DeviceSource:
		return "source"
	default:
		return fmt.Sprintf("DeviceKind(%d)", int(k))
	}
}

// DeviceInfo is the part of a sink/source description the controller needs.
type DeviceInfo struct {
	Name   string
	Volume ChannelVolume
}

// AudioServer is the request surface of the audio server.
//
// Methods block until the server answers; the effects layer runs them off
// the daemon loop and feeds the results back as events.
type AudioServer interface {
	// GetDeviceInfo looks a device up by name. It returns (nil, nil) when
	// the server knows no such device.
	GetDeviceInfo(kind DeviceKind, name string) (*DeviceInfo, error)

	SetVolume(kind DeviceKind, name string, levels []uint32) error
	SetMute(kind DeviceKind, name string, muted bool) error
}
