package services

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/camden-git/attendancebackend/apperrors"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ImportHeader is the column layout of the import workbook and its template.
var ImportHeader = []string{"Key", "Name", "DOB", "Role"}

const templateSheet = "People"

// ImportSkip records a workbook row that was not imported. Row is the
// 1-based spreadsheet row number.
type ImportSkip struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportResult summarises a bulk import.
type ImportResult struct {
	Imported int          `json:"imported"`
	Skipped  []ImportSkip `json:"skipped"`
}

// ImportPeople reads people from the first sheet of an xlsx workbook. The
// first row is a header. Each remaining row is imported on its own: a row
// with a blank key, an unreadable date of birth or an existing key is
// skipped and reported, the rest still go in.
func (s *RegistryService) ImportPeople(r io.Reader) (ImportResult, error) {
	result := ImportResult{Skipped: []ImportSkip{}}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return result, apperrors.Validation("file", "not a readable xlsx workbook: %v", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			zap.S().Warnf("Error closing import workbook: %v", err)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return result, apperrors.Validation("file", "workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return result, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	for i, row := range rows {
		if i == 0 {
			continue
		}
		rowNum := i + 1
		if isBlankRow(row) {
			continue
		}

		key := cell(row, 0)
		if key == "" {
			result.Skipped = append(result.Skipped, ImportSkip{Row: rowNum, Reason: "blank key"})
			continue
		}
		dob, err := parseSheetDate(cell(row, 2))
		if err != nil {
			result.Skipped = append(result.Skipped, ImportSkip{Row: rowNum, Reason: fmt.Sprintf("unreadable date of birth %q", cell(row, 2))})
			continue
		}

		_, err = s.AddPerson(PersonInput{
			Key:  key,
			Name: cell(row, 1),
			DOB:  dob.Format(DateLayout),
			Role: cell(row, 3),
		})
		switch {
		case err == nil:
			result.Imported++
		case apperrors.IsDuplicateKey(err):
			result.Skipped = append(result.Skipped, ImportSkip{Row: rowNum, Reason: fmt.Sprintf("key %q already exists", key)})
		case apperrors.IsValidation(err):
			result.Skipped = append(result.Skipped, ImportSkip{Row: rowNum, Reason: err.Error()})
		default:
			return result, fmt.Errorf("import row %d: %w", rowNum, err)
		}
	}

	zap.L().Info("people imported",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

// WriteTemplate writes an empty import workbook containing only the header row.
func (s *RegistryService) WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return fmt.Errorf("rename template sheet: %w", err)
	}
	header := make([]interface{}, len(ImportHeader))
	for i, h := range ImportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(templateSheet, "A1", &header); err != nil {
		return fmt.Errorf("write template header: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(templateSheet, "A1", "D1", style)
	}
	_ = f.SetColWidth(templateSheet, "A", "D", 18)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write template workbook: %w", err)
	}
	return nil
}

// parseSheetDate accepts a YYYY-MM-DD string or an Excel date serial, which
// is how date-formatted cells come back as raw values.
func parseSheetDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, nil
	}
	// datetime text written by other tools
	if t, err := time.Parse("2006-01-02 15:04:05", raw); err == nil {
		return t, nil
	}
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil || serial <= 0 {
		return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
	}
	return excelize.ExcelDateToTime(serial, false)
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
