package main

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingIssuer captures issued commands instead of running them.
type recordingIssuer struct {
	cmds []Command
}

func (r *recordingIssuer) Issue(cmd Command) { r.cmds = append(r.cmds, cmd) }

func (r *recordingIssuer) last(t *testing.T) Command {
	t.Helper()
	if len(r.cmds) == 0 {
		t.Fatal("no commands issued")
	}
	return r.cmds[len(r.cmds)-1]
}

type shown struct {
	pct   uint32
	muted bool
}

type recordingPresenter struct {
	shows []shown
}

func (r *recordingPresenter) Show(pct uint32, muted bool) {
	r.shows = append(r.shows, shown{pct: pct, muted: muted})
}

func newTestController() (*VolumeController, *recordingIssuer, *recordingPresenter) {
	issuer := &recordingIssuer{}
	presenter := &recordingPresenter{}
	return NewVolumeController(issuer, presenter, discardLogger()), issuer, presenter
}

func sinkInfo(name string, muted bool, levels ...uint32) *DeviceInfo {
	return &DeviceInfo{Name: name, Volume: ChannelVolume{Levels: levels, Muted: muted}}
}

func TestController_ChangeVolume_FetchSetNotify(t *testing.T) {
	vc, issuer, presenter := newTestController()

	vc.ChangeVolume(5)

	fetch, ok := issuer.last(t).(CmdGetDeviceInfo)
	if !ok {
		t.Fatalf("first command = %T, want CmdGetDeviceInfo", issuer.last(t))
	}
	if fetch.Kind != DeviceSink || fetch.Device != defaultSinkName {
		t.Fatalf("fetch = %+v, want default sink", fetch)
	}

	vc.HandleDeviceInfo(DeviceInfoReceived{TaskID: fetch.TaskID, Device: defaultSinkName, Info: sinkInfo("alsa_output.pci", false, 1966, 1966)})

	set, ok := issuer.last(t).(CmdSetVolume)
	if !ok {
		t.Fatalf("second command = %T, want CmdSetVolume", issuer.last(t))
	}
	if set.Device != "alsa_output.pci" {
		t.Errorf("set volume targets %q, want the resolved device name", set.Device)
	}
	assertLevels(t, set.Levels, []uint32{5242, 5242})

	if len(presenter.shows) != 1 || presenter.shows[0] != (shown{pct: 7, muted: false}) {
		t.Fatalf("shows = %+v, want one show of 7%% unmuted", presenter.shows)
	}

	// The sentinel does nothing once the mutation is in flight.
	vc.HandleDeviceInfo(DeviceInfoReceived{TaskID: fetch.TaskID, Device: defaultSinkName, Last: true})
	if len(issuer.cmds) != 2 || vc.Pending(defaultSinkName) != 1 {
		t.Fatalf("sentinel changed state: cmds=%d pending=%d", len(issuer.cmds), vc.Pending(defaultSinkName))
	}

	vc.HandleMutation(MutationCompleted{TaskID: fetch.TaskID, Device: "alsa_output.pci"})
	if got := vc.Pending(defaultSinkName); got != 0 {
		t.Fatalf("Pending() = %d after mutation, want 0", got)
	}
}

func TestController_ChangeVolume_ClampsAndKeepsMuteFlag(t *testing.T) {
	vc, issuer, presenter := newTestController()

	vc.ChangeVolume(5)
	fetch := issuer.last(t).(CmdGetDeviceInfo)
	vc.HandleDeviceInfo(DeviceInfoReceived{TaskID: fetch.TaskID, Info: sinkInfo("out", true, 64000, 1000)})

	set := issuer.last(t).(CmdSetVolume)
	assertLevels(t, set.Levels, []uint32{volumeNorm, 4276})

	// (65536 + 4276) * 100 / (2 * 65536) = 53
	if got := presenter.shows[0]; got != (shown{pct: 53, muted: true}) {
		t.Fatalf("show = %+v, want 53%% muted", got)
	}
}

func TestController_ChangeVolume_LowerFloorsAtMuted(t *testing.T) {
	vc, issuer, presenter := newTestController()

	vc.ChangeVolume(-5)
	fetch := issuer.last(t).(CmdGetDeviceInfo)
	vc.HandleDeviceInfo(DeviceInfoReceived{TaskID: fetch.TaskID, Info: sinkInfo("out", false, 1000)})

	assertLevels(t, issuer.last(t).(CmdSetVolume).Levels, []uint32{volumeMuted})
	if got := presenter.shows[0]; got != (shown{pct: 0, muted: false}) {
		t.Fatalf("show = %+v, want 0%%", got)
	}
}

// Two rapid raises from 3% compose: the second fetch is only issued after the
// first mutation completed, so it sees the raised level.
func TestController_RapidRaisesAreSerialized(t *testing.T) {
	vc, issuer, presenter := newTestController()
	initial := levelDelta(3)

	vc.ChangeVolume(5)
	vc.ChangeVolume(5)

	if len(issuer.cmds) != 1 {
		t.Fatalf("issued %d commands, want only the first fetch", len(issuer.cmds))
	}
	if got := vc.Pending(defaultSinkName); got != 2 {
		t.Fatalf("Pending() = %d, want 2", got)
	}

	first := issuer.last(t).(CmdGetDeviceInfo)
	vc.HandleDeviceInfo(DeviceInfoReceived{TaskID: first.TaskID, Info: sinkInfo("out", false, uint32(initial))})
	vc.HandleDeviceInfo(DeviceInfoReceived{TaskID: first.TaskID, Last: true})
	raised := issuer.last(t).(CmdSetVolume).Levels[0]

	vc.HandleMutation(MutationCompleted{TaskID: first.TaskID, Device: "out"})

	second, ok := issuer.last(t).(CmdGetDeviceInfo)
	if !ok {
		t.Fatalf("after first mutation got %T, want the queued fetch", issuer.last(t))
	}
	if second.TaskID == first.TaskID {
		t.Fatal("queued task reused the first task id")
	}

	vc.HandleDeviceInfo(DeviceInfoReceived{TaskID: second.TaskID, Info: sinkInfo("out", false, raised)})
	final := issuer.last(t).(CmdSetVolume).Levels

	want := uint32(initial + 2*levelDelta(5))
	assertLevels(t, final, []uint32{want})

	if n := len(presenter.shows); n != 2 {
		t.Fatalf("shows = %d, want 2", n)
	}
	if got, want := presenter.shows[1].pct, volumePercent([]uint32{want}); got != want {
		t.Fatalf("final percent = %d, want %d", got, want)
	}
}

func TestController_ToggleMute_ShowsPreTogglePercentAndNewFlag(t *testing.T) {
	vc, issuer, presenter := newTestController()

	vc.ToggleMute()
	fetch := issuer.last(t).(CmdGetDeviceInfo)
	if fetch.Kind != DeviceSink || fetch.Device != defaultSinkName {
		t.Fatalf("fetch = %+v, want default sink", fetch)
	}

	vc.HandleDeviceInfo(DeviceInfoReceived{TaskID: fetch.TaskID, Info: sinkInfo("out", false, 32768, 32768)})

	set, ok := issuer.last(t).(CmdSetMute)
	if !ok {
		t.Fatalf("command = %T, want CmdSetMute", issuer.last(t))
	}
	if !set.Muted || set.Device != "out" {
		t.Fatalf("set mute = %+v, want muted on out", set)
	}
	if got := presenter.shows[0]; got != (shown{pct: 50, muted: true}) {
		t.Fatalf("show = %+v, want 50%% muted", got)
	}
	if icon := iconFor(presenter.shows[0].pct, presenter.shows[0].muted); icon != iconMuted {
		t.Fatalf("icon = %q, want muted icon", icon)
	}
}

func TestController_ToggleMicMute_DoesNotNotify(t *testing.T) {
	vc, issuer, presenter := newTestController()

	vc.ToggleMicMute()
	fetch := issuer.last(t).(CmdGetDeviceInfo)
	if fetch.Kind != DeviceSource || fetch.Device != defaultSourceName {
		t.Fatalf("fetch = %+v, want default source", fetch)
	}

	vc.HandleDeviceInfo(DeviceInfoReceived{TaskID: fetch.TaskID, Info: sinkInfo("mic", true, 40000)})

	set := issuer.last(t).(CmdSetMute)
	if set.Muted || set.Kind != DeviceSource || set.Device != "mic" {
		t.Fatalf("set mute = %+v, want unmute of source mic", set)
	}
	if len(presenter.shows) != 0 {
		t.Fatalf("mic mute presented %+v, want nothing", presenter.shows)
	}
}

func TestController_SentinelWithoutDeviceReleasesSlot(t *testing.T) {
	vc, issuer, presenter := newTestController()

	vc.ChangeVolume(5)
	vc.ToggleMute()
	first := issuer.last(t).(CmdGetDeviceInfo)

	vc.HandleDeviceInfo(DeviceInfoReceived{TaskID: first.TaskID, Last: true})

	next, ok := issuer.last(t).(CmdGetDeviceInfo)
	if !ok || next.TaskID == first.TaskID {
		t.Fatalf("queued task not started after empty fetch: %v", issuer.cmds)
	}
	if len(presenter.shows) != 0 {
		t.Fatalf("unexpected shows: %+v", presenter.shows)
	}
}

func TestController_FetchErrorAbandonsTask(t *testing.T) {
	vc, issuer, presenter := newTestController()

	vc.ChangeVolume(5)
	fetch := issuer.last(t).(CmdGetDeviceInfo)

	vc.HandleDeviceInfo(DeviceInfoReceived{TaskID: fetch.TaskID, Last: true, Err: errors.New("no such entity")})

	if len(issuer.cmds) != 1 {
		t.Fatalf("issued %d commands, want no mutation after a failed fetch", len(issuer.cmds))
	}
	if len(presenter.shows) != 0 {
		t.Fatalf("unexpected shows: %+v", presenter.shows)
	}
	if got := vc.Pending(defaultSinkName); got != 0 {
		t.Fatalf("Pending() = %d, want 0", got)
	}
}

func TestController_MutationErrorIsNotRetried(t *testing.T) {
	vc, issuer, _ := newTestController()

	vc.ToggleMute()
	fetch := issuer.last(t).(CmdGetDeviceInfo)
	vc.HandleDeviceInfo(DeviceInfoReceived{TaskID: fetch.TaskID, Info: sinkInfo("out", false, 1000)})
	vc.HandleMutation(MutationCompleted{TaskID: fetch.TaskID, Device: "out", Err: errors.New("access denied")})

	if len(issuer.cmds) != 2 {
		t.Fatalf("issued %d commands, want fetch + one mutation", len(issuer.cmds))
	}
	if got := vc.Pending(defaultSinkName); got != 0 {
		t.Fatalf("Pending() = %d, want 0", got)
	}
}

func TestController_NoChannelsFinishesWithoutMutation(t *testing.T) {
	vc, issuer, presenter := newTestController()

	vc.ChangeVolume(5)
	fetch := issuer.last(t).(CmdGetDeviceInfo)
	vc.HandleDeviceInfo(DeviceInfoReceived{TaskID: fetch.TaskID, Info: sinkInfo("out", false)})

	if len(issuer.cmds) != 1 || len(presenter.shows) != 0 {
		t.Fatalf("cmds=%v shows=%v, want nothing after the fetch", issuer.cmds, presenter.shows)
	}
	if got := vc.Pending(defaultSinkName); got != 0 {
		t.Fatalf("Pending() = %d, want 0", got)
	}

	// A late sentinel for the finished task is ignored.
	vc.HandleDeviceInfo(DeviceInfoReceived{TaskID: fetch.TaskID, Last: true})
	if len(issuer.cmds) != 1 {
		t.Fatalf("late sentinel issued commands: %v", issuer.cmds)
	}
}

func TestController_DevicesProceedIndependently(t *testing.T) {
	vc, issuer, _ := newTestController()

	vc.ChangeVolume(5)
	vc.ToggleMicMute()

	if len(issuer.cmds) != 2 {
		t.Fatalf("issued %d fetches, want one per device", len(issuer.cmds))
	}
	if vc.Pending(defaultSinkName) != 1 || vc.Pending(defaultSourceName) != 1 {
		t.Fatalf("pending sink=%d source=%d, want 1 each", vc.Pending(defaultSinkName), vc.Pending(defaultSourceName))
	}
}
