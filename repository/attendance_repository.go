package repository

import (
	"fmt"

	"github.com/camden-git/attendancebackend/models"
	"gorm.io/gorm"
)

// AttendanceRepository is the append-only ledger of scan events
type AttendanceRepository struct {
	DB *gorm.DB
}

// NewAttendanceRepository creates a new instance of AttendanceRepository
func NewAttendanceRepository(db *gorm.DB) *AttendanceRepository {
	return &AttendanceRepository{DB: db}
}

// Record appends one event. The unique index on (session_id, person_key)
// surfaces a second event for the same person as gorm.ErrDuplicatedKey.
func (r *AttendanceRepository) Record(event *models.AttendanceEvent) error {
	if err := r.DB.Create(event).Error; err != nil {
		return fmt.Errorf("failed to record attendance for %s in session %d: %w", event.PersonKey, event.SessionID, err)
	}
	return nil
}

// Exists reports whether the person already has an event in the session
func (r *AttendanceRepository) Exists(sessionID uint, personKey string) (bool, error) {
	var count int64
	err := r.DB.Model(&models.AttendanceEvent{}).
		Where("session_id = ? AND person_key = ?", sessionID, personKey).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check attendance for %s in session %d: %w", personKey, sessionID, err)
	}
	return count > 0, nil
}

// EventsForSession lists a session's events by scan time
func (r *AttendanceRepository) EventsForSession(sessionID uint) ([]models.AttendanceEvent, error) {
	events := []models.AttendanceEvent{}
	err := r.DB.Where("session_id = ?", sessionID).Order("scan_time ASC, id ASC").Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance for session %d: %w", sessionID, err)
	}
	return events, nil
}
