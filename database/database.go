package database

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// SessionSummary is a history row: a session joined with its starter's name.
type SessionSummary struct {
	ID               int64     `json:"id"`
	Date             string    `json:"date"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	StarterKey       string    `json:"starter_key"`
	StarterName      string    `json:"starter_name"`
	StartTime        time.Time `json:"start_time"`
	TotalDurationSec int64     `json:"total_duration_sec"`
	Status           string    `json:"status"`
	EventCount       int64     `json:"event_count"`
}

// EventRow is a ledger row joined with the person it belongs to.
type EventRow struct {
	PersonKey string    `json:"person_key"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	ScanTime  time.Time `json:"scan_time"`
	Status    string    `json:"status"`
}

func sessionSummaryQuery() sq.SelectBuilder {
	return psql.Select(
		"s.id", "s.date_str", "s.title", "s.description", "s.starter_key",
		"COALESCE(p.name, '')", "s.start_time",
		"(s.normal_duration_sec + s.late_duration_sec)", "s.status",
		"(SELECT COUNT(*) FROM attendance a WHERE a.session_id = s.id)",
	).
		From("sessions s").
		LeftJoin("people p ON p.key = s.starter_key")
}

func scanSessionSummary(row sq.RowScanner) (SessionSummary, error) {
	var s SessionSummary
	err := row.Scan(&s.ID, &s.Date, &s.Title, &s.Description, &s.StarterKey,
		&s.StarterName, &s.StartTime, &s.TotalDurationSec, &s.Status, &s.EventCount)
	return s, err
}

// ListSessionSummaries returns every session newest-first.
func ListSessionSummaries(db *sql.DB) ([]SessionSummary, error) {
	sqlStr, args, err := sessionSummaryQuery().OrderBy("s.id DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for ListSessionSummaries: %w", err)
	}
	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute ListSessionSummaries query: %w", err)
	}
	defer rows.Close()

	summaries := []SessionSummary{}
	for rows.Next() {
		s, err := scanSessionSummary(rows)
		if err != nil {
			zap.S().Warnf("Error scanning session summary row: %v", err)
			continue
		}
		summaries = append(summaries, s)
	}
	if err = rows.Err(); err != nil {
		return summaries, fmt.Errorf("error iterating session rows: %w", err)
	}
	return summaries, nil
}

// GetSessionSummary returns one history row, or sql.ErrNoRows.
func GetSessionSummary(db *sql.DB, sessionID int64) (SessionSummary, error) {
	sqlStr, args, err := sessionSummaryQuery().Where(sq.Eq{"s.id": sessionID}).Limit(1).ToSql()
	if err != nil {
		return SessionSummary{}, fmt.Errorf("failed to build SQL for GetSessionSummary: %w", err)
	}
	s, err := scanSessionSummary(db.QueryRow(sqlStr, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return SessionSummary{}, sql.ErrNoRows
		}
		return SessionSummary{}, fmt.Errorf("failed to query or scan session %d: %w", sessionID, err)
	}
	return s, nil
}

// ListEventRows returns the ledger of a session joined with person details,
// ordered by scan time.
func ListEventRows(db *sql.DB, sessionID int64) ([]EventRow, error) {
	queryBuilder := psql.Select("a.person_key", "p.name", "p.role", "a.scan_time", "a.status").
		From("attendance a").
		Join("people p ON a.person_key = p.key").
		Where(sq.Eq{"a.session_id": sessionID}).
		OrderBy("a.scan_time ASC", "a.id ASC")
	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for ListEventRows: %w", err)
	}
	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute ListEventRows query for session %d: %w", sessionID, err)
	}
	defer rows.Close()

	events := []EventRow{}
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(&e.PersonKey, &e.Name, &e.Role, &e.ScanTime, &e.Status); err != nil {
			zap.S().Warnf("Error scanning event row for session %d: %v", sessionID, err)
			continue
		}
		events = append(events, e)
	}
	if err = rows.Err(); err != nil {
		return events, fmt.Errorf("error iterating event rows for session %d: %w", sessionID, err)
	}
	return events, nil
}
