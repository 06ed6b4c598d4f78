package models

import "time"

// Timesheet entry statuses. Entries move through the pipeline only as a
// week-group (all entries of one placement within the same Sunday–Saturday
// week), never individually.
const (
	TimesheetStatusDraft             = "DRAFT"
	TimesheetStatusPendingSupervisor = "PENDING_SUPERVISOR"
	TimesheetStatusPendingFaculty    = "PENDING_FACULTY"
	TimesheetStatusApproved          = "APPROVED"
	TimesheetStatusRejected          = "REJECTED"
)

// TimesheetEntry records one day of worked hours within a placement.
// Locked is true exactly when Status is APPROVED; a locked entry is
// immutable.
type TimesheetEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PlacementID uint      `gorm:"not null;index:idx_timesheet_placement_week" json:"placement_id"`
	Date        time.Time `gorm:"not null" json:"date"`
	WeekStart   time.Time `gorm:"not null;index:idx_timesheet_placement_week" json:"week_start"`
	Hours       float64   `gorm:"not null" json:"hours"`
	Category    string    `gorm:"size:64" json:"category"`
	Notes       string    `gorm:"type:text" json:"notes"`
	Status      string    `gorm:"size:32;not null;index" json:"status"`
	Locked      bool      `gorm:"not null;default:false" json:"locked"`

	SubmittedAt          *time.Time `json:"submitted_at"`
	SupervisorApprovedAt *time.Time `json:"supervisor_approved_at"`
	SupervisorApprovedBy *uint      `json:"supervisor_approved_by"`
	FacultyApprovedAt    *time.Time `json:"faculty_approved_at"`
	FacultyApprovedBy    *uint      `json:"faculty_approved_by"`
	RejectedAt           *time.Time `json:"rejected_at"`
	RejectedBy           *uint      `json:"rejected_by"`
	RejectionReason      *string    `gorm:"type:text" json:"rejection_reason"`

	// FacultyViewedAt suppresses repeat surfacing of a rejection the faculty
	// member has already seen; cleared whenever a supervisor rejects.
	FacultyViewedAt *time.Time `json:"faculty_viewed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Placement Placement `gorm:"foreignKey:PlacementID" json:"placement"`
}

// Editable reports whether the student may still change the entry.
func (e TimesheetEntry) Editable() bool {
	if e.Locked {
		return false
	}
	return e.Status == TimesheetStatusDraft || e.Status == TimesheetStatusRejected
}

// TimesheetJournal is the weekly narrative reflection that must accompany a
// week-group submission. Exactly one journal exists per placement per week;
// resubmission overwrites it.
type TimesheetJournal struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PlacementID uint      `gorm:"not null;uniqueIndex:idx_journal_placement_week" json:"placement_id"`
	WeekStart   time.Time `gorm:"not null;uniqueIndex:idx_journal_placement_week" json:"week_start"`
	WeekEnd     time.Time `gorm:"not null" json:"week_end"`

	TasksSummary      string `gorm:"type:text;not null" json:"tasks_summary"`
	HighLowPoints     string `gorm:"type:text" json:"high_low_points"`
	Competencies      string `gorm:"type:text;not null" json:"competencies"`
	PracticeBehaviors string `gorm:"type:text;not null" json:"practice_behaviors"`
	Reaction          string `gorm:"type:text;not null" json:"reaction"`
	OtherComments     string `gorm:"type:text" json:"other_comments"`

	SubmittedAt time.Time `json:"submitted_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WeekStartFor truncates a date to the Sunday that opens its week, in UTC.
func WeekStartFor(date time.Time) time.Time {
	d := date.UTC()
	d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// WeekEndFor returns the Saturday that closes the week containing date.
func WeekEndFor(date time.Time) time.Time {
	return WeekStartFor(date).AddDate(0, 0, 6)
}
