package session

import "time"

// Notifier receives state changes for the presentation layer. Calls are made
// while the controller holds its lock, so implementations must not call back
// into the controller.
type Notifier interface {
	PhaseChanged(sessionID uint, phase Phase)
	Countdown(sessionID uint, phase Phase, remaining time.Duration)
	RosterReset(sessionID uint, roster []RosterEntry)
	RosterUpdated(sessionID uint, entry RosterEntry)
}

// NopNotifier discards every notification.
type NopNotifier struct{}

func (NopNotifier) PhaseChanged(uint, Phase) {}
func (NopNotifier) Countdown(uint, Phase, time.Duration) {}
func (NopNotifier) RosterReset(uint, []RosterEntry) {}
func (NopNotifier) RosterUpdated(uint, RosterEntry) {}
