package models

import "time"

// Role values recognised by the authorization layer.
const (
	RoleStudent    = "student"
	RoleSupervisor = "supervisor"
	RoleFaculty    = "faculty"
	RoleAdmin      = "admin"
)

// User represents any account that can act on a placement: students,
// site supervisors, faculty members, and administrators.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role      string    `gorm:"size:32;not null;index" json:"role"`
	Phone     string    `gorm:"size:64" json:"phone"`
	Title     string    `gorm:"size:128" json:"title"`
	FacultyID *uint     `gorm:"index" json:"faculty_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
