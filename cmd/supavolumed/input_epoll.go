//go:build linux

package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

var evdevCodesByName = map[string]uint32{
	"XF86AudioRaiseVolume": keyVolumeUp,
	"XF86AudioLowerVolume": keyVolumeDown,
	"XF86AudioMute":        keyMute,
	"XF86AudioMicMute":     keyMicMute,
}

// epollWaitMS bounds each epoll_wait so Run notices cancellation.
const epollWaitMS = 250

// evdevKeySource reads key presses straight from Linux input devices.
//
// Codes are layout-independent, so resolution is a fixed table. Grab is a
// no-op: the devices are not taken exclusively, so the compositor still sees
// the keys too.
type evdevKeySource struct {
	files  []*os.File
	logger *slog.Logger
}

// newEvdevKeySource opens every device read-only.
func newEvdevKeySource(paths []string, logger *slog.Logger) (KeySource, error) {
	if len(paths) == 0 {
		return nil, errors.New("no input devices provided")
	}
	s := &evdevKeySource{logger: logger}
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open input device %s: %w (tip: add user to the 'input' group)", p, err)
		}
		s.files = append(s.files, f)
	}
	return s, nil
}

// Resolve implements KeyGrabber.
func (s *evdevKeySource) Resolve(symbol string) (uint32, bool) {
	code, ok := evdevCodesByName[symbol]
	return code, ok
}

// Grab implements KeyGrabber.
func (s *evdevKeySource) Grab(code uint32) error { return nil }

// Run multiplexes all devices with epoll in a single goroutine and forwards
// key presses. Releases and autorepeat are dropped: one press, one step.
func (s *evdevKeySource) Run(ctx context.Context, events chan<- Event) error {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return fmt.Errorf("epoll_create1: %w", err)
	}
	defer unix.Close(epfd)

	fdToFile := make(map[int]*os.File, len(s.files))
	for _, f := range s.files {
		fd := int(f.Fd())
		fdToFile[fd] = f

		event := unix.EpollEvent{
			Events: unix.EPOLLIN,
			Fd:     int32(fd),
		}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
			return fmt.Errorf("epoll_ctl_add %s: %w", f.Name(), err)
		}
	}

	const maxEvents = 32
	epollEvents := make([]unix.EpollEvent, maxEvents)
	buf := make([]byte, binary.Size(inputEvent{}))
	reader := bytes.NewReader(buf)

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := unix.EpollWait(epfd, epollEvents, epollWaitMS)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			fd := int(epollEvents[i].Fd)
			f := fdToFile[fd]

			if epollEvents[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				return fmt.Errorf("device error/hangup: %s", f.Name())
			}

			if _, err := f.Read(buf); err != nil {
				return fmt.Errorf("read from %s: %w", f.Name(), err)
			}

			reader.Reset(buf)
			var ev inputEvent
			if err := binary.Read(reader, binary.LittleEndian, &ev); err != nil {
				// Skip malformed events
				continue
			}

			if ev.Type != evKey || ev.Value != evValuePress {
				continue
			}

			select {
			case events <- KeyPressed{Code: uint32(ev.Code)}:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// Close implements KeySource.
func (s *evdevKeySource) Close() error {
	var errs []error
	for _, f := range s.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.files = nil
	return errors.Join(errs...)
}
