package main

import "log/slog"

// CommandIssuer starts an audio request without waiting for it.
type CommandIssuer interface {
	Issue(cmd Command)
}

// Presenter shows a volume state to the user.
type Presenter interface {
	Show(pct uint32, muted bool)
}

type taskKind int

const (
	taskChangeVolume taskKind = iota
	taskToggleMute
	taskToggleMicMute
)

func (k taskKind) String() string {
	switch k {
	case taskChangeVolume:
		return "change_volume"
	case taskToggleMute:
		return "toggle_mute"
	case taskToggleMicMute:
		return "toggle_mic_mute"
	default:
		return "unknown"
	}
}

// volumeTask is one logical operation: fetch device info, compute the new
// state, issue the mutation, notify.
type volumeTask struct {
	id     uint64
	kind   taskKind
	device DeviceKind
	name   string // device name the fetch is issued for; also the queue key
	delta  int    // percentage points, taskChangeVolume only

	mutating bool
}

// VolumeController turns logical actions into audio server requests.
//
// Tasks for the same device run one at a time, in submission order: the next
// task fetches only after the previous mutation has completed, so rapid key
// presses compose instead of overwriting each other with stale levels.
// Different devices proceed independently.
//
// Owned by the daemon loop; not safe for concurrent use.
type VolumeController struct {
	issuer    CommandIssuer
	presenter Presenter
	logger    *slog.Logger

	nextID uint64
	active map[string]*volumeTask
	queued map[string][]*volumeTask
}

func NewVolumeController(issuer CommandIssuer, presenter Presenter, logger *slog.Logger) *VolumeController {
	return &VolumeController{
		issuer:    issuer,
		presenter: presenter,
		logger:    logger,
		active:    make(map[string]*volumeTask),
		queued:    make(map[string][]*volumeTask),
	}
}

// ChangeVolume adds delta percentage points to every channel of the default sink.
func (vc *VolumeController) ChangeVolume(delta int) {
	vc.submit(&volumeTask{kind: taskChangeVolume, device: DeviceSink, name: defaultSinkName, delta: delta})
}

// ToggleMute flips the mute flag of the default sink.
func (vc *VolumeController) ToggleMute() {
	vc.submit(&volumeTask{kind: taskToggleMute, device: DeviceSink, name: defaultSinkName})
}

// ToggleMicMute flips the mute flag of the default source. It shows no notification.
func (vc *VolumeController) ToggleMicMute() {
	vc.submit(&volumeTask{kind: taskToggleMicMute, device: DeviceSource, name: defaultSourceName})
}

// Pending returns the number of unfinished tasks for a device, including the running one.
func (vc *VolumeController) Pending(device string) int {
	n := len(vc.queued[device])
	if vc.active[device] != nil {
		n++
	}
	return n
}

func (vc *VolumeController) submit(t *volumeTask) {
	vc.nextID++
	t.id = vc.nextID

	if _, busy := vc.active[t.name]; busy {
		vc.queued[t.name] = append(vc.queued[t.name], t)
		vc.logger.Debug("device busy, task queued", "task", t.id, "op", t.kind, "device", t.name, "queued", len(vc.queued[t.name]))
		return
	}
	vc.start(t)
}

func (vc *VolumeController) start(t *volumeTask) {
	vc.active[t.name] = t
	vc.issuer.Issue(CmdGetDeviceInfo{TaskID: t.id, Kind: t.device, Device: t.name})
}

// finish releases the device slot held by t and starts the next queued task.
func (vc *VolumeController) finish(t *volumeTask) {
	delete(vc.active, t.name)

	q := vc.queued[t.name]
	if len(q) == 0 {
		return
	}
	next := q[0]
	if len(q) == 1 {
		delete(vc.queued, t.name)
	} else {
		vc.queued[t.name] = q[1:]
	}
	vc.start(next)
}

func (vc *VolumeController) taskByID(id uint64) *volumeTask {
	for _, t := range vc.active {
		if t.id == id {
			return t
		}
	}
	return nil
}

// HandleDeviceInfo continues a task once its device info arrives.
func (vc *VolumeController) HandleDeviceInfo(ev DeviceInfoReceived) {
	t := vc.taskByID(ev.TaskID)
	if t == nil {
		vc.logger.Debug("device info for finished task", "task", ev.TaskID, "device", ev.Device, "last", ev.Last)
		return
	}

	if ev.Err != nil {
		vc.logger.Error("failed to get device information", "kind", t.device, "device", t.name, "error", ev.Err)
		vc.finish(t)
		return
	}

	if ev.Last {
		// Terminal delivery. If nothing was mutated the server knew no such
		// device, and the slot has to be released here.
		if !t.mutating {
			vc.logger.Warn("no device information received", "kind", t.device, "device", t.name)
			vc.finish(t)
		}
		return
	}

	if ev.Info == nil || t.mutating {
		return
	}
	info := ev.Info

	switch t.kind {
	case taskChangeVolume:
		if len(info.Volume.Levels) == 0 {
			vc.logger.Warn("device reports no channels", "device", info.Name)
			vc.finish(t)
			return
		}
		levels := applyDelta(info.Volume.Levels, levelDelta(t.delta))
		t.mutating = true
		vc.issuer.Issue(CmdSetVolume{TaskID: t.id, Kind: t.device, Device: info.Name, Levels: levels})
		vc.presenter.Show(volumePercent(levels), info.Volume.Muted)

	case taskToggleMute:
		muted := !info.Volume.Muted
		t.mutating = true
		vc.issuer.Issue(CmdSetMute{TaskID: t.id, Kind: t.device, Device: info.Name, Muted: muted})
		vc.presenter.Show(volumePercent(info.Volume.Levels), muted)

	case taskToggleMicMute:
		t.mutating = true
		vc.issuer.Issue(CmdSetMute{TaskID: t.id, Kind: t.device, Device: info.Name, Muted: !info.Volume.Muted})
	}
}

// HandleMutation finishes a task once its mutation has been answered.
// Failures are logged and not retried.
func (vc *VolumeController) HandleMutation(ev MutationCompleted) {
	if ev.Err != nil {
		vc.logger.Error("audio request failed", "task", ev.TaskID, "device", ev.Device, "error", ev.Err)
	}

	t := vc.taskByID(ev.TaskID)
	if t == nil {
		vc.logger.Debug("mutation for finished task", "task", ev.TaskID, "device", ev.Device)
		return
	}
	vc.finish(t)
}
