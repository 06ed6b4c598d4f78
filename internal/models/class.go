package models

import "time"

// Class is an academic course section a placement is registered under. Each
// class is bound to the faculty member who teaches it, which may differ from
// the faculty assigned to a given student.
type Class struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"size:32;not null;uniqueIndex" json:"code"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	FacultyID uint      `gorm:"not null;index" json:"faculty_id"`
	Term      string    `gorm:"size:32" json:"term"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
