package models

// Person represents a registered attendee using GORM.
// It corresponds to the 'people' table. Key is the scanned or typed
// identifier and never changes once created.
type Person struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Key       string `gorm:"not null;uniqueIndex" json:"key"`
	Name      string `gorm:"not null" json:"name"`
	DOB       string `gorm:"column:dob;not null" json:"dob"` // YYYY-MM-DD
	Age       int    `json:"age"`                            // derived from DOB at write time
	Role      string `json:"role"`
	CreatedAt int64  `gorm:"not null" json:"created_at"` // Unix timestamp
	UpdatedAt int64  `gorm:"not null" json:"updated_at"` // Unix timestamp

	Attendance []AttendanceEvent `gorm:"foreignKey:PersonKey;references:Key;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName explicitly sets the table name for GORM.
func (Person) TableName() string {
	return "people"
}
