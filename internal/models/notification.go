package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification kinds emitted by the workflow components.
const (
	NotificationKindPlacementSubmitted     = "placement_submitted"
	NotificationKindPlacementApproved      = "placement_approved"
	NotificationKindPlacementActivated     = "placement_activated"
	NotificationKindPlacementRejected      = "placement_rejected"
	NotificationKindPlacementCompleted     = "placement_completed"
	NotificationKindFacultyClassMismatch   = "faculty_class_mismatch"
	NotificationKindSupervisorRequested    = "supervisor_requested"
	NotificationKindSupervisorApproved     = "supervisor_approved"
	NotificationKindSupervisorRejected     = "supervisor_rejected"
	NotificationKindTimesheetSubmitted     = "timesheet_submitted"
	NotificationKindTimesheetSupervisorOK  = "timesheet_supervisor_approved"
	NotificationKindTimesheetApproved      = "timesheet_approved"
	NotificationKindTimesheetRejected      = "timesheet_rejected"
)

// Notification priorities.
const (
	NotificationPriorityLow    = "LOW"
	NotificationPriorityMedium = "MEDIUM"
	NotificationPriorityHigh   = "HIGH"
	NotificationPriorityUrgent = "URGENT"
)

// Notification is the append-only audit record of a workflow event targeted
// at one user. Only Read/ReadAt ever change after creation.
type Notification struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	RecipientID       uint              `gorm:"not null;index" json:"recipient_id"`
	Kind              string            `gorm:"size:64;not null" json:"kind"`
	Title             string            `gorm:"size:255;not null" json:"title"`
	Message           string            `gorm:"type:text" json:"message"`
	Priority          string            `gorm:"size:16;not null;default:MEDIUM" json:"priority"`
	RelatedEntityID   *uint             `json:"related_entity_id"`
	RelatedEntityType string            `gorm:"size:64" json:"related_entity_type"`
	Metadata          datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	Read              bool              `gorm:"not null;default:false" json:"read"`
	ReadAt            *time.Time        `json:"read_at"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}
