package main

import (
	"log/slog"
	"time"
)

// iconFor picks the notification icon tier for a volume state.
func iconFor(pct uint32, muted bool) string {
	switch {
	case muted || pct == 0:
		return iconMuted
	case pct < 33:
		return iconLow
	case pct < 66:
		return iconMedium
	default:
		return iconHigh
	}
}

// Notifier shows or updates the single on-screen volume indicator.
type Notifier interface {
	Update(icon string, value int) error
	Close() error
}

// VolumeSnapshot is the last state the presenter showed.
type VolumeSnapshot struct {
	Percent uint32    `json:"percent"`
	Muted   bool      `json:"muted"`
	Icon    string    `json:"icon"`
	Known   bool      `json:"known"`
	At      time.Time `json:"at"`
}

// NotificationPresenter renders volume state through one long-lived notifier
// handle, so rapid updates replace each other instead of stacking.
// Presentation is best-effort: failures are logged and never reach the caller.
type NotificationPresenter struct {
	notifier Notifier
	logger   *slog.Logger

	// broadcasts, if set, receives every presented state (non-blocking).
	broadcasts chan<- VolumeSnapshot

	last VolumeSnapshot
}

func NewNotificationPresenter(n Notifier, broadcasts chan<- VolumeSnapshot, logger *slog.Logger) *NotificationPresenter {
	return &NotificationPresenter{
		notifier:   n,
		broadcasts: broadcasts,
		logger:     logger,
	}
}

// Show presents pct/muted.
func (p *NotificationPresenter) Show(pct uint32, muted bool) {
	icon := iconFor(pct, muted)
	p.last = VolumeSnapshot{
		Percent: pct,
		Muted:   muted,
		Icon:    icon,
		Known:   true,
		At:      time.Now().UTC(),
	}

	if p.notifier != nil {
		if err := p.notifier.Update(icon, int(pct)); err != nil {
			p.logger.Error("notification update failed", "error", err, "icon", icon, "percent", pct)
		}
	}

	if p.broadcasts != nil {
		select {
		case p.broadcasts <- p.last:
		default:
			p.logger.Debug("state broadcast queue full, dropping update")
		}
	}
}

// Snapshot returns the last presented state.
func (p *NotificationPresenter) Snapshot() VolumeSnapshot { return p.last }

// Close destroys the notifier handle.
func (p *NotificationPresenter) Close() error {
	if p.notifier == nil {
		return nil
	}
	return p.notifier.Close()
}
