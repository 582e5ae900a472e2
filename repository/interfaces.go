package repository

import (
	"github.com/camden-git/attendancebackend/models"
)

// PersonRepositoryInterface defines the methods for person data operations
type PersonRepositoryInterface interface {
	Create(person *models.Person) error
	GetByKey(key string) (*models.Person, error)
	ListAll() ([]models.Person, error)
	Find(filter, sortKey, direction string) ([]models.Person, error)
	Update(person *models.Person) error
	Delete(key string) error
	CountStartedSessions(key string) (int64, error)
}

// SessionRepositoryInterface defines the methods for session data operations
type SessionRepositoryInterface interface {
	Create(session *models.Session) error
	GetByID(id uint) (*models.Session, error)
	GetActive() (*models.Session, error)
	MarkClosed(id uint) error
	Delete(id uint) error
}

// AttendanceRepositoryInterface defines the ledger operations. Record is the
// only write path and fails with gorm.ErrDuplicatedKey when the person already
// has an event in the session.
type AttendanceRepositoryInterface interface {
	Record(event *models.AttendanceEvent) error
	Exists(sessionID uint, personKey string) (bool, error)
	EventsForSession(sessionID uint) ([]models.AttendanceEvent, error)
}
