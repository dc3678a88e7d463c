package main

import (
	"context"
	"log/slog"
)

// ============================================================================
// Central Daemon Loop
// ============================================================================
//
// One goroutine owns all daemon state: the connection state machine, the
// binding table, the controller's per-device task queues, and the presenter.
// Key sources, the audio backend, effect workers and IPC clients only ever
// talk to it by sending Events.
//
// Design rules enforced here:
//   - Handlers never block: audio requests are issued through the effects
//     layer and their outcomes come back as events.
//   - There are no locks on daemon state because nothing else touches it.
//
// ============================================================================

// Daemon is the explicit context object shared by the loop's handlers.
type Daemon struct {
	Conn       *AudioConnection
	Controller *VolumeController
	Dispatcher *EventDispatcher
	Presenter  *NotificationPresenter

	logger *slog.Logger
}

// Handle processes one event. It is only called from the daemon loop.
func (d *Daemon) Handle(ev Event) {
	switch e := ev.(type) {
	case KeyPressed:
		d.Dispatcher.HandleKey(e)

	case ActionRequested:
		d.Dispatcher.HandleAction(e.Action)

	case VolumeChangeRequested:
		d.Dispatcher.HandleVolumeChange(e.Delta)

	case ConnectionStateChanged:
		d.Conn.Transition(e.State, e.Err)

	case DeviceInfoReceived:
		d.Controller.HandleDeviceInfo(e)

	case MutationCompleted:
		d.Controller.HandleMutation(e)

	case RequestStateSnapshot:
		if e.Reply == nil {
			d.logger.Warn("state snapshot requested with nil reply channel")
			return
		}
		// Never block the loop on a slow requester.
		select {
		case e.Reply <- d.Presenter.Snapshot():
		default:
			d.logger.Warn("state snapshot reply channel not ready; dropping snapshot")
		}

	default:
		d.logger.Warn("unknown event type", "event", ev)
	}
}

// runDaemon consumes events until ctx is canceled or the events channel is closed.
func runDaemon(ctx context.Context, events <-chan Event, d *Daemon) {
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon stopping (context canceled)")
			return

		case ev, ok := <-events:
			if !ok {
				d.logger.Info("daemon stopping (events channel closed)")
				return
			}
			d.Handle(ev)

			// A terminal connection state cancels ctx from inside Handle;
			// stop before taking another event so nothing runs after shutdown.
			if ctx.Err() != nil {
				d.logger.Info("daemon stopping (shutdown requested)")
				return
			}
		}
	}
}
