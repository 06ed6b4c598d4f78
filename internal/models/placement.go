package models

import "time"

// Placement statuses. Transitions are monotonic: PENDING →
// APPROVED_PENDING_CHECKLIST → ACTIVE → COMPLETE, with DECLINED reachable
// from the first two states only. A declined placement is never revived; the
// student applies again with a fresh row.
const (
	PlacementStatusPending           = "PENDING"
	PlacementStatusApprovedChecklist = "APPROVED_PENDING_CHECKLIST"
	PlacementStatusActive            = "ACTIVE"
	PlacementStatusComplete          = "COMPLETE"
	PlacementStatusDeclined          = "DECLINED"
)

// Document slots tracked on the compliance checklist.
const (
	DocumentSlotPolicy           = "policy"
	DocumentSlotLearningContract = "learning_contract"
	DocumentSlotChecklist        = "checklist"
)

// Placement assigns one student to one site for one class term.
type Placement struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	// A partial unique index backs the one-open-placement-per-class rule so
	// concurrent applications cannot both slip past the service-level count.
	StudentID    uint   `gorm:"not null;uniqueIndex:uniq_open_placement_per_class,where:status <> 'DECLINED'" json:"student_id"`
	SiteID       uint   `gorm:"not null;index" json:"site_id"`
	FacultyID    uint   `gorm:"not null;index" json:"faculty_id"`
	ClassID      uint   `gorm:"not null;uniqueIndex:uniq_open_placement_per_class,where:status <> 'DECLINED'" json:"class_id"`
	SupervisorID *uint  `gorm:"index" json:"supervisor_id"`
	Status       string `gorm:"size:32;not null;index" json:"status"`

	StartDate     time.Time `gorm:"not null" json:"start_date"`
	EndDate       time.Time `gorm:"not null" json:"end_date"`
	RequiredHours float64   `gorm:"not null" json:"required_hours"`

	// Compliance checklist flags, maintained by faculty as the student
	// completes onboarding requirements.
	OrientationDone     bool `gorm:"not null;default:false" json:"orientation_done"`
	SafetyTrainingDone  bool `gorm:"not null;default:false" json:"safety_training_done"`
	ConfidentialityDone bool `gorm:"not null;default:false" json:"confidentiality_done"`
	SupervisionSchedule bool `gorm:"not null;default:false" json:"supervision_schedule"`

	PolicyDocumentURL           *string `gorm:"size:512" json:"policy_document_url"`
	LearningContractDocumentURL *string `gorm:"size:512" json:"learning_contract_document_url"`
	ChecklistDocumentURL        *string `gorm:"size:512" json:"checklist_document_url"`

	// FacultyNotes carries the rejection reason while the placement sits in
	// DECLINED; cleared when the student re-applies for the same class.
	FacultyNotes *string `gorm:"type:text" json:"faculty_notes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Student    User  `gorm:"foreignKey:StudentID" json:"student"`
	Supervisor *User `gorm:"foreignKey:SupervisorID" json:"supervisor,omitempty"`
}

// HasPolicyDocument reports whether the safety/cell-phone policy document has
// been uploaded. Approval is gated on it.
func (p Placement) HasPolicyDocument() bool {
	return p.PolicyDocumentURL != nil && *p.PolicyDocumentURL != ""
}

// IsTerminal reports whether no further lifecycle transition is possible.
func (p Placement) IsTerminal() bool {
	return p.Status == PlacementStatusComplete || p.Status == PlacementStatusDeclined
}

// AcceptsTimesheets reports whether students may log and submit hours.
func (p Placement) AcceptsTimesheets() bool {
	return p.Status == PlacementStatusActive
}
