// Package session owns the lifecycle of the single active attendance session
// and the policy that admits scans into the ledger.
//
// Every operation takes the current time as an argument. Phase transitions
// are computed from that time and the session's stored end times, so the
// controller behaves the same whether a ticker, a request handler or a test
// drives it.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/camden-git/attendancebackend/apperrors"
	"github.com/camden-git/attendancebackend/logger"
	"github.com/camden-git/attendancebackend/models"
	"github.com/camden-git/attendancebackend/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PersonLookup is the registry view the controller needs.
type PersonLookup interface {
	GetByKey(key string) (*models.Person, error)
	ListAll() ([]models.Person, error)
}

// SessionStore persists session rows.
type SessionStore interface {
	Create(session *models.Session) error
	GetActive() (*models.Session, error)
	MarkClosed(id uint) error
}

// Ledger is the append-only attendance store.
type Ledger interface {
	Record(event *models.AttendanceEvent) error
	Exists(sessionID uint, personKey string) (bool, error)
	EventsForSession(sessionID uint) ([]models.AttendanceEvent, error)
}

// StartInput carries an operator's request to open a session. Exactly one of
// NormalDuration or EndClock ("HH:MM", next occurrence) sets the on-time window.
type StartInput struct {
	StarterKey     string
	Title          string
	Description    string
	NormalDuration time.Duration
	EndClock       string
	LateDuration   time.Duration
}

// State is a snapshot of the controller. Session is nil when Phase is PhaseIdle.
type State struct {
	Phase     Phase           `json:"phase"`
	Session   *models.Session `json:"session,omitempty"`
	Remaining time.Duration   `json:"-"`
}

// ScanOutcome says what happened to a scan. Only ScanRecorded writes anything.
type ScanOutcome string

const (
	ScanRecorded        ScanOutcome = "recorded"
	ScanNoSession       ScanOutcome = "no_active_session"
	ScanUnknownKey      ScanOutcome = "unknown_key"
	ScanAlreadyRecorded ScanOutcome = "already_recorded"
)

// ScanResult reports the outcome of ProcessScan.
type ScanResult struct {
	Outcome ScanOutcome             `json:"outcome"`
	Event   *models.AttendanceEvent `json:"event,omitempty"`
	Entry   *RosterEntry            `json:"entry,omitempty"`
}

// Controller is the session state machine. All methods are serialized by one
// mutex: the single-active-session and one-event-per-person checks are
// check-then-act sequences.
type Controller struct {
	mu       sync.Mutex
	people   PersonLookup
	sessions SessionStore
	ledger   Ledger
	notifier Notifier

	active *models.Session
	phase  Phase
}

// NewController returns an idle controller. A nil notifier discards events.
func NewController(people PersonLookup, sessions SessionStore, ledger Ledger, notifier Notifier) *Controller {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Controller{
		people:   people,
		sessions: sessions,
		ledger:   ledger,
		notifier: notifier,
		phase:    PhaseIdle,
	}
}

// Restore picks up a session left active in storage, for example after a
// restart. A session whose final end time has passed is closed.
func (c *Controller) Restore(now time.Time) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return c.stateLocked(now), nil
	}

	s, err := c.sessions.GetActive()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.stateLocked(now), nil
		}
		return State{}, fmt.Errorf("restore active session: %w", err)
	}

	c.active = s
	c.phase = PhaseNormal
	zap.L().Info("restored active session",
		zap.Uint(logger.FieldSessionID, s.ID),
		zap.String("title", s.Title))

	if err := c.advanceLocked(now); err != nil {
		return State{}, err
	}
	return c.stateLocked(now), nil
}

// Start opens a new session at now.
func (c *Controller) Start(in StartInput, now time.Time) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.advanceLocked(now); err != nil {
		return State{}, err
	}
	if c.active != nil {
		return State{}, &apperrors.ConflictError{
			Code:   apperrors.CodeActiveSession,
			Reason: fmt.Sprintf("session %d is already active", c.active.ID),
		}
	}

	in, normal, err := normalizeStartInput(in, now)
	if err != nil {
		return State{}, err
	}

	if _, err := c.people.GetByKey(in.StarterKey); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return State{}, apperrors.Validation("starter_key", "no person with key %q", in.StarterKey)
		}
		return State{}, fmt.Errorf("look up starter %s: %w", in.StarterKey, err)
	}

	start := now.UTC()
	normalEnd := start.Add(normal)
	s := &models.Session{
		StarterKey:        in.StarterKey,
		Title:             in.Title,
		Description:       in.Description,
		Date:              now.Format("2006-01-02"),
		StartTime:         start,
		NormalEndTime:     normalEnd,
		FinalEndTime:      normalEnd.Add(in.LateDuration),
		NormalDurationSec: int64(normal / time.Second),
		LateDurationSec:   int64(in.LateDuration / time.Second),
		Status:            models.SessionStatusActive,
	}
	if err := c.sessions.Create(s); err != nil {
		return State{}, fmt.Errorf("create session: %w", err)
	}

	c.active = s
	c.phase = PhaseNormal
	zap.L().Info("session started",
		zap.Uint(logger.FieldSessionID, s.ID),
		zap.String("title", s.Title),
		zap.String("starter", s.StarterKey),
		zap.Time("normal_end", s.NormalEndTime),
		zap.Time("final_end", s.FinalEndTime))

	c.notifier.PhaseChanged(s.ID, PhaseNormal)
	if roster, err := buildRoster(c.people, c.ledger, s.ID); err != nil {
		zap.L().Warn("failed to build initial roster", zap.Uint(logger.FieldSessionID, s.ID), zap.Error(err))
	} else {
		c.notifier.RosterReset(s.ID, roster)
	}
	c.notifier.Countdown(s.ID, PhaseNormal, Remaining(*s, PhaseNormal, now))

	return c.stateLocked(now), nil
}

// Advance moves the active session forward to now: Normal becomes Late at
// the normal end time and the session closes at the final end time. It is a
// no-op while idle.
func (c *Controller) Advance(now time.Time) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.advanceLocked(now); err != nil {
		return State{}, err
	}
	return c.stateLocked(now), nil
}

// ProcessScan admits a scanned key. Scans while idle, unknown keys and
// repeat scans are ignored without error; only storage failures are errors.
func (c *Controller) ProcessScan(key string, now time.Time) (ScanResult, error) {
	key = strings.TrimSpace(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.advanceLocked(now); err != nil {
		return ScanResult{}, err
	}
	if c.active == nil {
		return ScanResult{Outcome: ScanNoSession}, nil
	}
	if key == "" {
		return ScanResult{Outcome: ScanUnknownKey}, nil
	}

	person, err := c.people.GetByKey(key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ScanResult{Outcome: ScanUnknownKey}, nil
		}
		return ScanResult{}, fmt.Errorf("look up scanned key %s: %w", key, err)
	}

	sessionID := c.active.ID
	exists, err := c.ledger.Exists(sessionID, key)
	if err != nil {
		return ScanResult{}, err
	}
	if exists {
		return ScanResult{Outcome: ScanAlreadyRecorded}, nil
	}

	event := &models.AttendanceEvent{
		SessionID: sessionID,
		PersonKey: key,
		ScanTime:  now.UTC(),
		Status:    statusFor(c.phase),
	}
	if err := c.ledger.Record(event); err != nil {
		if repository.IsDuplicate(err) {
			return ScanResult{Outcome: ScanAlreadyRecorded}, nil
		}
		return ScanResult{}, err
	}

	entry := entryFor(*person, event)
	zap.L().Debug("scan recorded",
		zap.Uint(logger.FieldSessionID, sessionID),
		zap.String(logger.FieldPersonKey, key),
		zap.String("status", string(event.Status)))
	c.notifier.RosterUpdated(sessionID, entry)

	return ScanResult{Outcome: ScanRecorded, Event: event, Entry: &entry}, nil
}

// Close ends the active session early. Recorded events are kept. Closing
// while idle returns the idle state.
func (c *Controller) Close(now time.Time) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.advanceLocked(now); err != nil {
		return State{}, err
	}
	if c.active != nil {
		if err := c.closeLocked("manual"); err != nil {
			return State{}, err
		}
	}
	return c.stateLocked(now), nil
}

// Current advances to now and returns the resulting state.
func (c *Controller) Current(now time.Time) (State, error) {
	return c.Advance(now)
}

// Roster returns the live roster of the active session, or nil when idle.
func (c *Controller) Roster() ([]RosterEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return nil, nil
	}
	return buildRoster(c.people, c.ledger, c.active.ID)
}

// RefreshRoster pushes the full roster of the active session to the
// notifier. Call it after the registry changes mid-session.
func (c *Controller) RefreshRoster() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return nil
	}
	roster, err := buildRoster(c.people, c.ledger, c.active.ID)
	if err != nil {
		return err
	}
	c.notifier.RosterReset(c.active.ID, roster)
	return nil
}

// ActiveSessionID returns the id of the active session, if any.
func (c *Controller) ActiveSessionID() (uint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return 0, false
	}
	return c.active.ID, true
}

func (c *Controller) advanceLocked(now time.Time) error {
	if c.active == nil {
		return nil
	}

	next := PhaseAt(*c.active, now)
	if next == PhaseIdle {
		return c.closeLocked("expired")
	}
	// phases only move forward; an earlier now never reopens Normal
	if next > c.phase {
		c.phase = next
		zap.L().Info("session phase changed",
			zap.Uint(logger.FieldSessionID, c.active.ID),
			zap.Stringer(logger.FieldPhase, next))
		c.notifier.PhaseChanged(c.active.ID, next)
	}
	c.notifier.Countdown(c.active.ID, c.phase, Remaining(*c.active, c.phase, now))
	return nil
}

func (c *Controller) closeLocked(reason string) error {
	id := c.active.ID
	if err := c.sessions.MarkClosed(id); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("close session %d: %w", id, err)
	}

	c.active.Status = models.SessionStatusClosed
	c.active = nil
	c.phase = PhaseIdle
	zap.L().Info("session closed", zap.Uint(logger.FieldSessionID, id), zap.String("reason", reason))
	c.notifier.PhaseChanged(id, PhaseIdle)
	return nil
}

func (c *Controller) stateLocked(now time.Time) State {
	if c.active == nil {
		return State{Phase: PhaseIdle}
	}
	s := *c.active
	return State{Phase: c.phase, Session: &s, Remaining: Remaining(s, c.phase, now)}
}

func normalizeStartInput(in StartInput, now time.Time) (StartInput, time.Duration, error) {
	in.StarterKey = strings.TrimSpace(in.StarterKey)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.EndClock = strings.TrimSpace(in.EndClock)

	if in.StarterKey == "" {
		return in, 0, apperrors.Validation("starter_key", "is required")
	}
	if in.Title == "" {
		return in, 0, apperrors.Validation("title", "is required")
	}
	if in.LateDuration < 0 {
		return in, 0, apperrors.Validation("late_duration", "must not be negative")
	}
	in.LateDuration = in.LateDuration.Truncate(time.Second)

	var normal time.Duration
	switch {
	case in.EndClock != "" && in.NormalDuration != 0:
		return in, 0, apperrors.Validation("normal_duration", "set either a duration or an end clock, not both")
	case in.EndClock != "":
		d, err := DurationUntilClock(in.EndClock, now)
		if err != nil {
			return in, 0, err
		}
		normal = d
	default:
		normal = in.NormalDuration.Truncate(time.Second)
	}
	if normal <= 0 {
		return in, 0, apperrors.Validation("normal_duration", "must be at least one second")
	}
	return in, normal, nil
}

// DurationUntilClock returns the time from now until the next occurrence of
// the wall-clock time "HH:MM" in now's location, rounded down to whole
// seconds. A clock equal to or before now means tomorrow.
func DurationUntilClock(clock string, now time.Time) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(clock))
	if err != nil {
		return 0, apperrors.Validation("end_clock", "must be HH:MM")
	}
	end := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
	if !end.After(now) {
		end = end.AddDate(0, 0, 1)
	}
	return end.Sub(now).Truncate(time.Second), nil
}
