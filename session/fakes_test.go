package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/camden-git/attendancebackend/models"
	"gorm.io/gorm"
)

type fakePeople struct {
	byKey   map[string]models.Person
	listErr error
}

func newFakePeople(people ...models.Person) *fakePeople {
	f := &fakePeople{byKey: map[string]models.Person{}}
	for _, p := range people {
		f.byKey[p.Key] = p
	}
	return f
}

func (f *fakePeople) GetByKey(key string) (*models.Person, error) {
	p, ok := f.byKey[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (f *fakePeople) ListAll() ([]models.Person, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Person, 0, len(f.byKey))
	for _, p := range f.byKey {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

type fakeSessions struct {
	rows     []*models.Session
	createErr error
	closeErr error
}

func (f *fakeSessions) Create(s *models.Session) error {
	if f.createErr != nil {
		return f.createErr
	}
	s.ID = uint(len(f.rows) + 1)
	row := *s
	f.rows = append(f.rows, &row)
	return nil
}

func (f *fakeSessions) GetActive() (*models.Session, error) {
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].Status == models.SessionStatusActive {
			s := *f.rows[i]
			return &s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSessions) MarkClosed(id uint) error {
	if f.closeErr != nil {
		return f.closeErr
	}
	for _, s := range f.rows {
		if s.ID == id {
			s.Status = models.SessionStatusClosed
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeSessions) status(id uint) models.SessionStatus {
	for _, s := range f.rows {
		if s.ID == id {
			return s.Status
		}
	}
	return ""
}

type fakeLedger struct {
	events []models.AttendanceEvent
	// hideExisting makes Exists report false so Record's uniqueness check is exercised
	hideExisting bool
	recordErr    error
}

func (f *fakeLedger) Record(e *models.AttendanceEvent) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	for _, existing := range f.events {
		if existing.SessionID == e.SessionID && existing.PersonKey == e.PersonKey {
			return fmt.Errorf("failed to record attendance: %w", gorm.ErrDuplicatedKey)
		}
	}
	e.ID = uint(len(f.events) + 1)
	f.events = append(f.events, *e)
	return nil
}

func (f *fakeLedger) Exists(sessionID uint, key string) (bool, error) {
	if f.hideExisting {
		return false, nil
	}
	for _, e := range f.events {
		if e.SessionID == sessionID && e.PersonKey == key {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) EventsForSession(sessionID uint) ([]models.AttendanceEvent, error) {
	var out []models.AttendanceEvent
	for _, e := range f.events {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScanTime.Before(out[j].ScanTime) })
	return out, nil
}

func (f *fakeLedger) forPerson(sessionID uint, key string) []models.AttendanceEvent {
	var out []models.AttendanceEvent
	for _, e := range f.events {
		if e.SessionID == sessionID && e.PersonKey == key {
			out = append(out, e)
		}
	}
	return out
}

type recordingNotifier struct {
	mu         sync.Mutex
	phases     []Phase
	countdowns []time.Duration
	resets     [][]RosterEntry
	updates    []RosterEntry
}

func (r *recordingNotifier) PhaseChanged(_ uint, p Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, p)
}

func (r *recordingNotifier) Countdown(_ uint, _ Phase, remaining time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.countdowns = append(r.countdowns, remaining)
}

func (r *recordingNotifier) RosterReset(_ uint, roster []RosterEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets = append(r.resets, roster)
}

func (r *recordingNotifier) RosterUpdated(_ uint, entry RosterEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, entry)
}

var errStorage = errors.New("storage unavailable")
