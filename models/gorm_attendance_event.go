package models

import "time"

// AttendanceStatus classifies an accepted scan.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "Present"
	AttendanceLate    AttendanceStatus = "Late"
	// AttendanceAbsent is never persisted; it is the roster value for people
	// without an event.
	AttendanceAbsent AttendanceStatus = "Absent"
)

// AttendanceEvent is one accepted scan. It corresponds to the 'attendance'
// table, which holds at most one row per (session_id, person_key).
type AttendanceEvent struct {
	ID        uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID uint             `gorm:"not null;uniqueIndex:idx_attendance_session_person" json:"session_id"`
	PersonKey string           `gorm:"not null;uniqueIndex:idx_attendance_session_person;index" json:"person_key"`
	ScanTime  time.Time        `gorm:"not null" json:"scan_time"`
	Status    AttendanceStatus `gorm:"not null" json:"status"`
}

// TableName explicitly sets the table name for GORM.
func (AttendanceEvent) TableName() string {
	return "attendance"
}
