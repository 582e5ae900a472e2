package session

import (
	"fmt"
	"time"

	"github.com/camden-git/attendancebackend/models"
)

// Phase is the sub-state of the controller.
type Phase int

const (
	// PhaseIdle means no session is active.
	PhaseIdle Phase = iota
	// PhaseNormal is the on-time window; scans classify as Present.
	PhaseNormal
	// PhaseLate is the grace window; scans classify as Late.
	PhaseLate
)

func (p Phase) String() string {
	switch p {
	case PhaseNormal:
		return "normal"
	case PhaseLate:
		return "late"
	default:
		return "idle"
	}
}

// MarshalText lets phases appear by name in JSON payloads.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*p = PhaseIdle
	case "normal":
		*p = PhaseNormal
	case "late":
		*p = PhaseLate
	default:
		return fmt.Errorf("unknown phase %q", text)
	}
	return nil
}

// PhaseAt is the phase a session is in at now. It depends only on the
// session's end times, so a test clock and a wall clock behave the same.
func PhaseAt(s models.Session, now time.Time) Phase {
	switch {
	case now.Before(s.NormalEndTime):
		return PhaseNormal
	case now.Before(s.FinalEndTime):
		return PhaseLate
	default:
		return PhaseIdle
	}
}

// Remaining is the time left in phase p, never negative.
func Remaining(s models.Session, p Phase, now time.Time) time.Duration {
	var end time.Time
	switch p {
	case PhaseNormal:
		end = s.NormalEndTime
	case PhaseLate:
		end = s.FinalEndTime
	default:
		return 0
	}
	if d := end.Sub(now); d > 0 {
		return d
	}
	return 0
}

// statusFor maps an admitting phase to the recorded attendance status.
func statusFor(p Phase) models.AttendanceStatus {
	if p == PhaseLate {
		return models.AttendanceLate
	}
	return models.AttendancePresent
}
