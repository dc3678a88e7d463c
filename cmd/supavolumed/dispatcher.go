package main

import "log/slog"

// EventDispatcher routes key presses and injected actions to the controller.
// Nothing is dispatched unless the audio connection is ready; events arriving
// earlier are dropped, not replayed.
type EventDispatcher struct {
	conn     *AudioConnection
	bindings BindingTable
	ctrl     *VolumeController
	step     int
	logger   *slog.Logger
}

func NewEventDispatcher(conn *AudioConnection, bindings BindingTable, ctrl *VolumeController, step int, logger *slog.Logger) *EventDispatcher {
	return &EventDispatcher{
		conn:     conn,
		bindings: bindings,
		ctrl:     ctrl,
		step:     step,
		logger:   logger,
	}
}

// HandleKey dispatches a key press through the binding table.
func (d *EventDispatcher) HandleKey(ev KeyPressed) {
	b, ok := d.bindings.Lookup(ev.Code)
	if !ok {
		return
	}
	if !d.conn.Ready() {
		d.logger.Debug("dropping key press, audio connection not ready", "symbol", b.Symbol, "state", d.conn.State())
		return
	}
	d.logger.Debug("key press", "symbol", b.Symbol, "code", ev.Code, "action", b.Action)
	d.dispatch(b.Action)
}

// HandleAction dispatches an action that did not come from a key.
func (d *EventDispatcher) HandleAction(a Action) {
	if !d.conn.Ready() {
		d.logger.Debug("dropping action, audio connection not ready", "action", a, "state", d.conn.State())
		return
	}
	d.dispatch(a)
}

// HandleVolumeChange applies an explicit volume delta.
func (d *EventDispatcher) HandleVolumeChange(delta int) {
	if !d.conn.Ready() {
		d.logger.Debug("dropping volume change, audio connection not ready", "delta", delta, "state", d.conn.State())
		return
	}
	d.ctrl.ChangeVolume(delta)
}

func (d *EventDispatcher) dispatch(a Action) {
	switch a {
	case ActionRaiseVolume:
		d.ctrl.ChangeVolume(+d.step)
	case ActionLowerVolume:
		d.ctrl.ChangeVolume(-d.step)
	case ActionToggleMute:
		d.ctrl.ToggleMute()
	case ActionToggleMicMute:
		d.ctrl.ToggleMicMute()
	default:
		d.logger.Warn("unknown action", "action", a)
	}
}
