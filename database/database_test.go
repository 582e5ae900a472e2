package database

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/camden-git/attendancebackend/models"
)

func TestSqliteDSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: ":memory:", want: "file::memory:?_foreign_keys=on&_busy_timeout=5000"},
		{in: "/data/attendance.db", want: "file:/data/attendance.db?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"},
		{in: "file:test.db?cache=shared", want: "file:test.db?cache=shared&_foreign_keys=on&_busy_timeout=5000"},
		{in: "file:test.db", want: "file:test.db?_foreign_keys=on&_busy_timeout=5000"},
	}
	for _, tt := range tests {
		if got := sqliteDSN(tt.in); got != tt.want {
			t.Errorf("sqliteDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPersonOrderClause(t *testing.T) {
	tests := []struct {
		key, dir string
		want     string
	}{
		{key: SortByName, dir: SortAsc, want: "name COLLATE NOCASE asc, key ASC"},
		{key: SortByAge, dir: SortDesc, want: "age desc, key ASC"},
		{key: SortByRole, dir: SortDesc, want: "role COLLATE NOCASE desc, key ASC"},
		{key: "key; DROP TABLE people", dir: "sideways", want: "name COLLATE NOCASE asc, key ASC"},
	}
	for _, tt := range tests {
		if got := PersonOrderClause(tt.key, tt.dir); got != tt.want {
			t.Errorf("PersonOrderClause(%q, %q) = %q, want %q", tt.key, tt.dir, got, tt.want)
		}
	}
}

func TestSessionSummaries(t *testing.T) {
	gormDB, err := InitGormDB(":memory:")
	if err != nil {
		t.Fatalf("InitGormDB: %v", err)
	}
	db, err := gormDB.DB()
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	defer db.Close()

	// migrations are idempotent
	if err := Migrate(db); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	start := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	starter := models.Person{Key: "S1", Name: "Sam", DOB: "1980-01-01", CreatedAt: 1, UpdatedAt: 1}
	if err := gormDB.Create(&starter).Error; err != nil {
		t.Fatalf("create person: %v", err)
	}
	s := models.Session{
		StarterKey: "S1", Title: "Practice", Date: "2026-03-02",
		StartTime: start, NormalEndTime: start.Add(time.Minute), FinalEndTime: start.Add(90 * time.Second),
		NormalDurationSec: 60, LateDurationSec: 30, Status: models.SessionStatusClosed,
	}
	if err := gormDB.Create(&s).Error; err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := gormDB.Create(&models.AttendanceEvent{SessionID: s.ID, PersonKey: "S1", ScanTime: start.Add(5 * time.Second), Status: models.AttendancePresent}).Error; err != nil {
		t.Fatalf("create event: %v", err)
	}

	summaries, err := ListSessionSummaries(db)
	if err != nil {
		t.Fatalf("ListSessionSummaries: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("summaries = %+v", summaries)
	}
	got := summaries[0]
	if got.StarterName != "Sam" || got.TotalDurationSec != 90 || got.EventCount != 1 || got.Status != "closed" {
		t.Fatalf("summary = %+v", got)
	}

	if _, err := GetSessionSummary(db, 404); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("missing session err = %v", err)
	}

	rows, err := ListEventRows(db, int64(s.ID))
	if err != nil || len(rows) != 1 || rows[0].Name != "Sam" || !rows[0].ScanTime.Equal(start.Add(5*time.Second)) {
		t.Fatalf("event rows = %+v, %v", rows, err)
	}

	// the schema rejects a second event for the same person
	dup := models.AttendanceEvent{SessionID: s.ID, PersonKey: "S1", ScanTime: start, Status: models.AttendanceLate}
	if err := gormDB.Create(&dup).Error; err == nil {
		t.Fatal("duplicate event was accepted")
	}
}
