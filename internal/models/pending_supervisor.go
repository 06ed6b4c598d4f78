package models

import "time"

// PendingSupervisor statuses. A row is resolved exactly once.
const (
	PendingSupervisorStatusPending  = "PENDING"
	PendingSupervisorStatusApproved = "APPROVED"
	PendingSupervisorStatusRejected = "REJECTED"
)

// PendingSupervisor is a supervisor identity requested by a student before
// the person has an account. Approval materializes a real User and links it
// back to the parent placement; rejection leaves the placement
// supervisor-less for faculty to reconcile.
type PendingSupervisor struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	PlacementID uint   `gorm:"not null;uniqueIndex" json:"placement_id"`
	SiteID      uint   `gorm:"not null;index" json:"site_id"`
	Name        string `gorm:"size:255;not null" json:"name"`
	Email       string `gorm:"size:255;not null;index" json:"email"`
	Phone       string `gorm:"size:64" json:"phone"`
	Title       string `gorm:"size:128" json:"title"`
	Licensure   string `gorm:"size:255" json:"licensure"`
	Status      string `gorm:"size:16;not null;index" json:"status"`

	ResolvedAt *time.Time `json:"resolved_at"`
	ResolvedBy *uint      `json:"resolved_by"`
	Reason     string     `gorm:"type:text" json:"reason"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Placement Placement `gorm:"foreignKey:PlacementID" json:"placement"`
}

// IsResolved reports whether the request has already been decided.
func (p PendingSupervisor) IsResolved() bool {
	return p.Status != PendingSupervisorStatusPending
}
