package services

import (
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/camden-git/attendancebackend/apperrors"
	"github.com/camden-git/attendancebackend/database"
	"github.com/camden-git/attendancebackend/logger"
	"github.com/camden-git/attendancebackend/repository"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ExportTimeLayout is how scan times are written into exported sheets.
const ExportTimeLayout = "2006-01-02 15:04:05"

const maxSheetNameRunes = 30

var sheetNameReplacer = strings.NewReplacer(
	":", "", `\`, "", "/", "", "?", "", "*", "", "[", "", "]", "",
)

// ExportHeader is the column header written on row 2 of every export sheet.
var ExportHeader = []string{"Name", "Role", "Time", "Status", "Key"}

// ActiveSessionSource reports the session currently accepting scans.
type ActiveSessionSource interface {
	ActiveSessionID() (uint, bool)
}

// HistoryService reads and purges recorded sessions.
type HistoryService struct {
	db       *sql.DB
	sessions repository.SessionRepositoryInterface
	active   ActiveSessionSource
	location *time.Location
}

// NewHistoryService creates a history service. Exported times are rendered
// in loc; nil means time.Local.
func NewHistoryService(db *sql.DB, sessions repository.SessionRepositoryInterface, active ActiveSessionSource, loc *time.Location) *HistoryService {
	if loc == nil {
		loc = time.Local
	}
	return &HistoryService{db: db, sessions: sessions, active: active, location: loc}
}

// ListSessions returns every session newest-first with its starter's name.
func (s *HistoryService) ListSessions() ([]database.SessionSummary, error) {
	return database.ListSessionSummaries(s.db)
}

// Session returns the summary of one session.
func (s *HistoryService) Session(id int64) (database.SessionSummary, error) {
	summary, err := database.GetSessionSummary(s.db, id)
	if err != nil {
		return database.SessionSummary{}, translateStoreError(err, "session", id)
	}
	return summary, nil
}

// Events returns a session's ledger joined with person details.
func (s *HistoryService) Events(id int64) ([]database.EventRow, error) {
	if _, err := s.Session(id); err != nil {
		return nil, err
	}
	return database.ListEventRows(s.db, id)
}

// DeleteSession purges a session and its ledger. The session currently
// accepting scans cannot be deleted.
func (s *HistoryService) DeleteSession(id int64) error {
	summary, err := s.Session(id)
	if err != nil {
		return err
	}
	if activeID, ok := s.activeID(); (ok && int64(activeID) == id) || summary.Status == "active" {
		return &apperrors.ConflictError{
			Code:   apperrors.CodeActiveSession,
			Reason: fmt.Sprintf("session %d is still active; close it first", id),
		}
	}

	if err := s.sessions.Delete(uint(id)); err != nil {
		return translateStoreError(err, "session", id)
	}
	zap.L().Info("session history deleted", zap.Int64(logger.FieldSessionID, id))
	return nil
}

// Export writes one sheet per session into an xlsx workbook. Every id must
// exist; nothing is written otherwise.
func (s *HistoryService) Export(ids []int64, w io.Writer) error {
	if len(ids) == 0 {
		return apperrors.Validation("session_ids", "select at least one session")
	}

	seen := make(map[int64]bool, len(ids))
	summaries := make([]database.SessionSummary, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		summary, err := s.Session(id)
		if err != nil {
			return err
		}
		summaries = append(summaries, summary)
	}

	f := excelize.NewFile()
	defer f.Close()

	for _, summary := range summaries {
		if err := s.writeSessionSheet(f, summary); err != nil {
			return err
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("remove default sheet: %w", err)
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write export workbook: %w", err)
	}
	zap.L().Info("sessions exported", zap.Int("sessions", len(summaries)))
	return nil
}

func (s *HistoryService) writeSessionSheet(f *excelize.File, summary database.SessionSummary) error {
	name := SheetName(summary.ID, summary.Title)
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet for session %d: %w", summary.ID, err)
	}

	title := []interface{}{"Report", summary.Title, summary.Date, summary.StarterName}
	if err := f.SetSheetRow(name, "A1", &title); err != nil {
		return fmt.Errorf("write report row for session %d: %w", summary.ID, err)
	}
	header := make([]interface{}, len(ExportHeader))
	for i, h := range ExportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(name, "A2", &header); err != nil {
		return fmt.Errorf("write header for session %d: %w", summary.ID, err)
	}

	events, err := database.ListEventRows(s.db, summary.ID)
	if err != nil {
		return err
	}
	for i, e := range events {
		cellName, err := excelize.CoordinatesToCellName(1, i+3)
		if err != nil {
			return err
		}
		row := []interface{}{e.Name, e.Role, e.ScanTime.In(s.location).Format(ExportTimeLayout), e.Status, e.PersonKey}
		if err := f.SetSheetRow(name, cellName, &row); err != nil {
			return fmt.Errorf("write event row for session %d: %w", summary.ID, err)
		}
	}
	return nil
}

func (s *HistoryService) activeID() (uint, bool) {
	if s.active == nil {
		return 0, false
	}
	return s.active.ActiveSessionID()
}

// SheetName builds the export sheet title "<id>-<title>" with characters
// that spreadsheets reject removed, cut to 30 characters.
func SheetName(id int64, title string) string {
	name := sheetNameReplacer.Replace(strconv.FormatInt(id, 10) + "-" + strings.TrimSpace(title))
	name = strings.Trim(name, "'")
	runes := []rune(name)
	if len(runes) > maxSheetNameRunes {
		runes = runes[:maxSheetNameRunes]
	}
	return string(runes)
}
