package models

import "time"

// SessionStatus is the persisted lifecycle status of a session.
type SessionStatus string

const (
	SessionStatusActive SessionStatus = "active"
	SessionStatusClosed SessionStatus = "closed"
)

// Session is one bounded attendance window. It corresponds to the 'sessions' table.
type Session struct {
	ID                uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	StarterKey        string        `gorm:"not null;index" json:"starter_key"`
	Title             string        `gorm:"not null" json:"title"`
	Description       string        `json:"description"`
	Date              string        `gorm:"column:date_str" json:"date"` // YYYY-MM-DD of StartTime
	StartTime         time.Time     `gorm:"not null" json:"start_time"`
	NormalEndTime     time.Time     `gorm:"not null" json:"normal_end_time"`
	FinalEndTime      time.Time     `gorm:"not null" json:"final_end_time"`
	NormalDurationSec int64         `gorm:"not null" json:"normal_duration_sec"`
	LateDurationSec   int64         `gorm:"not null" json:"late_duration_sec"`
	Status            SessionStatus `gorm:"not null;default:active;index" json:"status"`

	Starter *Person           `gorm:"foreignKey:StarterKey;references:Key;constraint:OnDelete:RESTRICT" json:"starter,omitempty"`
	Events  []AttendanceEvent `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"events,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (Session) TableName() string {
	return "sessions"
}

// NormalDuration returns the length of the on-time window.
func (s Session) NormalDuration() time.Duration {
	return time.Duration(s.NormalDurationSec) * time.Second
}

// LateDuration returns the length of the late-grace window.
func (s Session) LateDuration() time.Duration {
	return time.Duration(s.LateDurationSec) * time.Second
}

// TotalDurationSec is the full admission window in seconds.
func (s Session) TotalDurationSec() int64 {
	return s.NormalDurationSec + s.LateDurationSec
}

func (s Session) IsActive() bool {
	return s.Status == SessionStatusActive
}
