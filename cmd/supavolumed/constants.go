package main

import "time"

const appName = "supavolumed"

// Daemon defaults
const (
	defaultStep         = 5                       // Volume step in percentage points
	maxStep             = 100                     // Largest step or IPC delta in percentage points
	defaultEventBuffer  = 64                      // Daemon event channel capacity
	defaultProbeEvery   = 2 * time.Second         // Audio server liveness probe interval
	defaultNotifyWait   = 1 * time.Second         // Upper bound for one notification call
	defaultStateWSPath  = "/ws"                   // Websocket path for state broadcasts
	defaultSocketName   = "supavolumed.sock"      // IPC socket name inside $XDG_RUNTIME_DIR
	fallbackIPCSocket   = "/tmp/supavolumed.sock" // Used when $XDG_RUNTIME_DIR is unset
	defaultInputBackend = inputX11
)

// PulseAudio volume scale (pa_volume_t)
const (
	volumeMuted uint32 = 0
	volumeNorm  uint32 = 0x10000
)

// Names the server resolves to the current default devices
const (
	defaultSinkName   = "@DEFAULT_SINK@"
	defaultSourceName = "@DEFAULT_SOURCE@"
)

// XF86 multimedia keysyms (X11/XF86keysym.h)
const (
	keysymAudioLowerVolume = 0x1008FF11
	keysymAudioMute        = 0x1008FF12
	keysymAudioRaiseVolume = 0x1008FF13
	keysymAudioMicMute     = 0x1008FFB2
)

// Linux input event types and codes (from <linux/input-event-codes.h>)
const (
	evKey = 0x01

	keyMute       = 113
	keyVolumeDown = 114
	keyVolumeUp   = 115
	keyMicMute    = 248
)

// evValuePress is the input event value of a key going down (0 is release, 2 autorepeat).
const evValuePress = 1

// Notification icons, one per volume tier
const (
	iconMuted  = "audio-volume-muted-symbolic"
	iconLow    = "audio-volume-low-symbolic"
	iconMedium = "audio-volume-medium-symbolic"
	iconHigh   = "audio-volume-high-symbolic"
)

// notificationCategory makes notification servers replace rather than stack
// successive volume popups.
const notificationCategory = "volume"
