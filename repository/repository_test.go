package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/camden-git/attendancebackend/database"
	"github.com/camden-git/attendancebackend/models"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitGormDB(":memory:")
	if err != nil {
		t.Fatalf("InitGormDB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func mustCreatePerson(t *testing.T, repo *PersonRepository, key, name, dob, role string, age int) {
	t.Helper()
	if err := repo.Create(&models.Person{Key: key, Name: name, DOB: dob, Role: role, Age: age}); err != nil {
		t.Fatalf("create person %s: %v", key, err)
	}
}

func mustCreateSession(t *testing.T, repo *SessionRepository, starter string, start time.Time) *models.Session {
	t.Helper()
	s := &models.Session{
		StarterKey:        starter,
		Title:             "Practice",
		Date:              start.Format("2006-01-02"),
		StartTime:         start,
		NormalEndTime:     start.Add(30 * time.Minute),
		FinalEndTime:      start.Add(40 * time.Minute),
		NormalDurationSec: 1800,
		LateDurationSec:   600,
	}
	if err := repo.Create(s); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return s
}

func TestPersonCreateDuplicateKey(t *testing.T) {
	db := openTestDB(t)
	people := NewPersonRepository(db)

	mustCreatePerson(t, people, "A1", "Ada", "1990-01-02", "coach", 34)
	err := people.Create(&models.Person{Key: "A1", Name: "Other", DOB: "1991-01-01"})
	if !IsDuplicate(err) {
		t.Fatalf("second create err = %v, want duplicate", err)
	}
}

func TestPersonUpdateAndNotFound(t *testing.T) {
	db := openTestDB(t)
	people := NewPersonRepository(db)
	mustCreatePerson(t, people, "A1", "Ada", "1990-01-02", "coach", 34)

	if err := people.Update(&models.Person{Key: "A1", Name: "Ada L", DOB: "1990-01-02", Age: 35, Role: ""}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := people.GetByKey("A1")
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if got.Name != "Ada L" || got.Age != 35 || got.Role != "" {
		t.Fatalf("updated person = %+v", got)
	}

	err = people.Update(&models.Person{Key: "missing", Name: "x", DOB: "2000-01-01"})
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("update missing err = %v, want ErrRecordNotFound", err)
	}
	if _, err := people.GetByKey("missing"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("GetByKey missing err = %v", err)
	}
}

func TestPersonFindFilterAndSort(t *testing.T) {
	db := openTestDB(t)
	people := NewPersonRepository(db)
	mustCreatePerson(t, people, "K1", "charlie", "2001-05-05", "Student", 23)
	mustCreatePerson(t, people, "K2", "Alice", "1980-03-03", "Coach", 44)
	mustCreatePerson(t, people, "K3", "bob", "1999-12-12", "student", 24)

	all, err := people.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if got := keys(all); got != "K2,K3,K1" {
		t.Fatalf("default order = %s, want K2,K3,K1", got)
	}

	tests := []struct {
		name   string
		filter string
		sort   string
		dir    string
		want   string
	}{
		{name: "role case-insensitive", filter: "STUDENT", sort: database.SortByName, dir: database.SortAsc, want: "K3,K1"},
		{name: "age substring", filter: "44", sort: "", dir: "", want: "K2"},
		{name: "dob substring", filter: "-12-", sort: database.SortByName, dir: database.SortAsc, want: "K3"},
		{name: "age desc", filter: "", sort: database.SortByAge, dir: database.SortDesc, want: "K2,K3,K1"},
		{name: "dob asc", filter: "", sort: database.SortByDOB, dir: database.SortAsc, want: "K2,K3,K1"},
		{name: "unknown sort falls back", filter: "", sort: "color", dir: "sideways", want: "K2,K3,K1"},
		{name: "like wildcards are literal", filter: "%", sort: "", dir: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := people.Find(tt.filter, tt.sort, tt.dir)
			if err != nil {
				t.Fatalf("Find: %v", err)
			}
			if keys(got) != tt.want {
				t.Fatalf("Find(%q,%q,%q) = %s, want %s", tt.filter, tt.sort, tt.dir, keys(got), tt.want)
			}
		})
	}
}

func TestLedgerIsUniquePerSessionAndOrdered(t *testing.T) {
	db := openTestDB(t)
	people := NewPersonRepository(db)
	sessions := NewSessionRepository(db)
	ledger := NewAttendanceRepository(db)
	mustCreatePerson(t, people, "S", "Starter", "1980-01-01", "", 44)
	mustCreatePerson(t, people, "A1", "Ada", "1990-01-01", "", 34)
	mustCreatePerson(t, people, "A2", "Bea", "1990-01-01", "", 34)

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := mustCreateSession(t, sessions, "S", start)

	if err := ledger.Record(&models.AttendanceEvent{SessionID: s.ID, PersonKey: "A2", ScanTime: start.Add(20 * time.Second), Status: models.AttendancePresent}); err != nil {
		t.Fatalf("record A2: %v", err)
	}
	if err := ledger.Record(&models.AttendanceEvent{SessionID: s.ID, PersonKey: "A1", ScanTime: start.Add(10 * time.Second), Status: models.AttendancePresent}); err != nil {
		t.Fatalf("record A1: %v", err)
	}
	err := ledger.Record(&models.AttendanceEvent{SessionID: s.ID, PersonKey: "A1", ScanTime: start.Add(30 * time.Second), Status: models.AttendanceLate})
	if !IsDuplicate(err) {
		t.Fatalf("second record err = %v, want duplicate", err)
	}

	exists, err := ledger.Exists(s.ID, "A1")
	if err != nil || !exists {
		t.Fatalf("Exists(A1) = %v, %v", exists, err)
	}
	exists, err = ledger.Exists(s.ID, "S")
	if err != nil || exists {
		t.Fatalf("Exists(S) = %v, %v", exists, err)
	}

	events, err := ledger.EventsForSession(s.ID)
	if err != nil {
		t.Fatalf("EventsForSession: %v", err)
	}
	if len(events) != 2 || events[0].PersonKey != "A1" || events[1].PersonKey != "A2" {
		t.Fatalf("events = %+v", events)
	}
	if !events[0].ScanTime.Equal(start.Add(10 * time.Second)) {
		t.Fatalf("scan time = %s", events[0].ScanTime)
	}
}

func TestCascadeDeletes(t *testing.T) {
	db := openTestDB(t)
	people := NewPersonRepository(db)
	sessions := NewSessionRepository(db)
	ledger := NewAttendanceRepository(db)
	mustCreatePerson(t, people, "S", "Starter", "1980-01-01", "", 44)
	mustCreatePerson(t, people, "A1", "Ada", "1990-01-01", "", 34)

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s1 := mustCreateSession(t, sessions, "S", start)
	s2 := mustCreateSession(t, sessions, "S", start.Add(time.Hour))
	for _, s := range []*models.Session{s1, s2} {
		for _, key := range []string{"S", "A1"} {
			if err := ledger.Record(&models.AttendanceEvent{SessionID: s.ID, PersonKey: key, ScanTime: s.StartTime, Status: models.AttendancePresent}); err != nil {
				t.Fatalf("record: %v", err)
			}
		}
	}

	if err := people.Delete("A1"); err != nil {
		t.Fatalf("delete A1: %v", err)
	}
	assertEventCount(t, db, "person_key = ?", "A1", 0)

	if err := sessions.Delete(s1.ID); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	assertEventCount(t, db, "session_id = ?", s1.ID, 0)
	assertEventCount(t, db, "session_id = ?", s2.ID, 1)

	if err := sessions.Delete(s1.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("second delete err = %v, want ErrRecordNotFound", err)
	}
	if err := people.Delete("A1"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("second person delete err = %v, want ErrRecordNotFound", err)
	}

	n, err := people.CountStartedSessions("S")
	if err != nil || n != 1 {
		t.Fatalf("CountStartedSessions = %d, %v", n, err)
	}
	if err := people.Delete("S"); !IsForeignKeyViolation(err) {
		t.Fatalf("deleting a starter err = %v, want foreign key violation", err)
	}
}

func TestSessionActiveAndClose(t *testing.T) {
	db := openTestDB(t)
	people := NewPersonRepository(db)
	sessions := NewSessionRepository(db)
	mustCreatePerson(t, people, "S", "Starter", "1980-01-01", "", 44)

	if _, err := sessions.GetActive(); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("GetActive on empty err = %v", err)
	}
	s := mustCreateSession(t, sessions, "S", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	active, err := sessions.GetActive()
	if err != nil || active.ID != s.ID {
		t.Fatalf("GetActive = %+v, %v", active, err)
	}
	if err := sessions.MarkClosed(s.ID); err != nil {
		t.Fatalf("MarkClosed: %v", err)
	}
	if _, err := sessions.GetActive(); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("GetActive after close err = %v", err)
	}
	got, err := sessions.GetByID(s.ID)
	if err != nil || got.Status != models.SessionStatusClosed {
		t.Fatalf("GetByID = %+v, %v", got, err)
	}
	if err := sessions.MarkClosed(999); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("MarkClosed missing err = %v", err)
	}
}

func assertEventCount(t *testing.T, db *gorm.DB, where string, arg interface{}, want int64) {
	t.Helper()
	var n int64
	if err := db.Model(&models.AttendanceEvent{}).Where(where, arg).Count(&n).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if n != want {
		t.Fatalf("events where %s = %d, want %d", where, n, want)
	}
}

func keys(people []models.Person) string {
	out := ""
	for i, p := range people {
		if i > 0 {
			out += ","
		}
		out += p.Key
	}
	return out
}
