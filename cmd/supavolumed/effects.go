package main

import (
	"context"
	"log/slog"
)

// runEffect executes a single controller-emitted Command against the audio server
// and reports the outcome via onEvent.
//
// Design rules:
//   - This function is allowed to block on I/O; it never runs on the daemon loop.
//   - It must never touch controller state; it only emits Events for the loop to handle.
//   - Failures are reported, not logged: the controller owns the log line.
func runEffect(server AudioServer, cmd Command, logger *slog.Logger, onEvent func(Event)) {
	if onEvent == nil {
		// No place to report observations/errors; nothing sensible to do.
		return
	}

	switch c := cmd.(type) {
	case CmdGetDeviceInfo:
		if server == nil {
			onEvent(DeviceInfoReceived{TaskID: c.TaskID, Device: c.Device, Last: true, Err: errNoClient{}})
			return
		}
		info, err := server.GetDeviceInfo(c.Kind, c.Device)
		if err != nil {
			onEvent(DeviceInfoReceived{TaskID: c.TaskID, Device: c.Device, Last: true, Err: err})
			return
		}
		if info != nil {
			onEvent(DeviceInfoReceived{TaskID: c.TaskID, Device: c.Device, Info: info})
		}
		onEvent(DeviceInfoReceived{TaskID: c.TaskID, Device: c.Device, Last: true})

	case CmdSetVolume:
		if server == nil {
			onEvent(MutationCompleted{TaskID: c.TaskID, Device: c.Device, Err: errNoClient{}})
			return
		}
		err := server.SetVolume(c.Kind, c.Device, c.Levels)
		onEvent(MutationCompleted{TaskID: c.TaskID, Device: c.Device, Err: err})

	case CmdSetMute:
		if server == nil {
			onEvent(MutationCompleted{TaskID: c.TaskID, Device: c.Device, Err: errNoClient{}})
			return
		}
		err := server.SetMute(c.Kind, c.Device, c.Muted)
		onEvent(MutationCompleted{TaskID: c.TaskID, Device: c.Device, Err: err})

	default:
		logger.Warn("unknown command type", "command", cmd.String())
	}
}

// asyncEffects issues commands fire-and-forget: each command runs on its own
// goroutine and its outcome re-enters the daemon loop through events.
type asyncEffects struct {
	ctx    context.Context
	server AudioServer
	events chan<- Event
	logger *slog.Logger
}

// Issue starts cmd and returns immediately.
func (a *asyncEffects) Issue(cmd Command) {
	a.logger.Debug("issuing audio request", "command", cmd.String())
	go runEffect(a.server, cmd, a.logger, a.emit)
}

// emit delivers ev to the loop unless the daemon is shutting down, so workers
// never block forever on a loop that has stopped reading.
func (a *asyncEffects) emit(ev Event) {
	select {
	case a.events <- ev:
	case <-a.ctx.Done():
	}
}

// errNoClient indicates a request was issued while no audio server client exists.
type errNoClient struct{}

func (errNoClient) Error() string { return "no audio server client" }
