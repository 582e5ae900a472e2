package session

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/camden-git/attendancebackend/models"
	"github.com/facette/natsort"
)

// RosterEntry is one person's live attendance status in a session.
type RosterEntry struct {
	Key      string                  `json:"key"`
	Name     string                  `json:"name"`
	Role     string                  `json:"role"`
	Status   models.AttendanceStatus `json:"status"`
	ScanTime *time.Time              `json:"scan_time,omitempty"`
}

func entryFor(p models.Person, event *models.AttendanceEvent) RosterEntry {
	entry := RosterEntry{Key: p.Key, Name: p.Name, Role: p.Role, Status: models.AttendanceAbsent}
	if event != nil {
		scanned := event.ScanTime
		entry.Status = event.Status
		entry.ScanTime = &scanned
	}
	return entry
}

// buildRoster derives the roster from the registry and the ledger; it is
// never stored.
func buildRoster(people PersonLookup, ledger Ledger, sessionID uint) ([]RosterEntry, error) {
	registered, err := people.ListAll()
	if err != nil {
		return nil, fmt.Errorf("list people for roster: %w", err)
	}
	events, err := ledger.EventsForSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("list events for roster: %w", err)
	}

	byKey := make(map[string]*models.AttendanceEvent, len(events))
	for i := range events {
		byKey[events[i].PersonKey] = &events[i]
	}

	roster := make([]RosterEntry, 0, len(registered))
	for _, p := range registered {
		roster = append(roster, entryFor(p, byKey[p.Key]))
	}
	sort.SliceStable(roster, func(i, j int) bool {
		return natsort.Compare(strings.ToLower(roster[i].Name), strings.ToLower(roster[j].Name))
	})
	return roster, nil
}
