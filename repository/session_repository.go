package repository

import (
	"errors"
	"fmt"

	"github.com/camden-git/attendancebackend/models"
	"gorm.io/gorm"
)

// SessionRepository handles database operations for sessions
type SessionRepository struct {
	DB *gorm.DB
}

// NewSessionRepository creates a new instance of SessionRepository
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

// Create inserts a new session row
func (r *SessionRepository) Create(session *models.Session) error {
	if session.Status == "" {
		session.Status = models.SessionStatusActive
	}
	if err := r.DB.Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session '%s': %w", session.Title, err)
	}
	return nil
}

// GetByID retrieves a session by ID
func (r *SessionRepository) GetByID(id uint) (*models.Session, error) {
	var session models.Session
	err := r.DB.First(&session, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get session by ID %d: %w", id, err)
	}
	return &session, nil
}

// GetActive returns the session still marked active, newest first if storage
// somehow holds more than one.
func (r *SessionRepository) GetActive() (*models.Session, error) {
	var session models.Session
	err := r.DB.Where("status = ?", models.SessionStatusActive).Order("id DESC").First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	return &session, nil
}

// MarkClosed moves an active session to closed. Closing an already closed
// session is not an error.
func (r *SessionRepository) MarkClosed(id uint) error {
	result := r.DB.Model(&models.Session{}).
		Where("id = ?", id).
		Update("status", models.SessionStatusClosed)
	if result.Error != nil {
		return fmt.Errorf("failed to close session ID %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete purges a session and its ledger entries
func (r *SessionRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&models.AttendanceEvent{}).Error; err != nil {
			return fmt.Errorf("failed to delete attendance for session ID %d: %w", id, err)
		}
		result := tx.Delete(&models.Session{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete session ID %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
