//go:build !linux

package main

import (
	"errors"
	"log/slog"
)

// newEvdevKeySource is only available on Linux.
func newEvdevKeySource(paths []string, logger *slog.Logger) (KeySource, error) {
	return nil, errors.New("evdev input is only supported on Linux")
}
