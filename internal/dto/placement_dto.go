package dto

import (
	"time"

	"github.com/noah-isme/fieldwork-go-api/internal/models"
)

// NewSupervisorRequest carries the contact details of a supervisor who does
// not yet have an account, submitted alongside a placement application.
type NewSupervisorRequest struct {
	Name      string `json:"name" validate:"required,min=2"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"omitempty,min=7"`
	Title     string `json:"title" validate:"omitempty,max=128"`
	Licensure string `json:"licensure" validate:"omitempty,max=255"`
}

// PlacementApplyRequest is the payload for a placement application. Exactly
// one of SupervisorID and NewSupervisor must be provided.
type PlacementApplyRequest struct {
	StudentID     uint                  `json:"student_id" validate:"required,gt=0"`
	SiteID        uint                  `json:"site_id" validate:"required,gt=0"`
	ClassID       uint                  `json:"class_id" validate:"required,gt=0"`
	StartDate     time.Time             `json:"start_date" validate:"required"`
	EndDate       time.Time             `json:"end_date" validate:"required,gtfield=StartDate"`
	RequiredHours float64               `json:"required_hours" validate:"required,gt=0"`
	SupervisorID  *uint                 `json:"supervisor_id" validate:"omitempty,gt=0"`
	NewSupervisor *NewSupervisorRequest `json:"new_supervisor"`
}

// PlacementRejectRequest carries the mandatory rejection reason.
type PlacementRejectRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

// ChecklistUpdateRequest toggles the four compliance flags.
type ChecklistUpdateRequest struct {
	OrientationDone     *bool `json:"orientation_done"`
	SafetyTrainingDone  *bool `json:"safety_training_done"`
	ConfidentialityDone *bool `json:"confidentiality_done"`
	SupervisionSchedule *bool `json:"supervision_schedule"`
}

// PlacementFilter narrows placement listings.
type PlacementFilter struct {
	StudentID *uint   `query:"student_id"`
	FacultyID *uint   `query:"faculty_id"`
	Status    *string `query:"status" validate:"omitempty,oneof=PENDING APPROVED_PENDING_CHECKLIST ACTIVE COMPLETE DECLINED"`
}

// ChecklistResponse reports compliance progress for a placement.
type ChecklistResponse struct {
	OrientationDone     bool `json:"orientation_done"`
	SafetyTrainingDone  bool `json:"safety_training_done"`
	ConfidentialityDone bool `json:"confidentiality_done"`
	SupervisionSchedule bool `json:"supervision_schedule"`
	PolicyDocument      bool `json:"policy_document"`
	LearningContract    bool `json:"learning_contract"`
	ChecklistDocument   bool `json:"checklist_document"`
}

// PlacementResponse is the API representation of a placement.
type PlacementResponse struct {
	ID            uint              `json:"id"`
	StudentID     uint              `json:"student_id"`
	SiteID        uint              `json:"site_id"`
	FacultyID     uint              `json:"faculty_id"`
	ClassID       uint              `json:"class_id"`
	SupervisorID  *uint             `json:"supervisor_id"`
	Status        string            `json:"status"`
	StartDate     time.Time         `json:"start_date"`
	EndDate       time.Time         `json:"end_date"`
	RequiredHours float64           `json:"required_hours"`
	Checklist     ChecklistResponse `json:"checklist"`
	FacultyNotes  *string           `json:"faculty_notes"`
	Student       *UserLite         `json:"student,omitempty"`
	Supervisor    *UserLite         `json:"supervisor,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// UserLite summarizes a user without exposing full profile data.
type UserLite struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// NewPlacementResponse converts a Placement model into a DTO.
func NewPlacementResponse(model models.Placement) PlacementResponse {
	response := PlacementResponse{
		ID:            model.ID,
		StudentID:     model.StudentID,
		SiteID:        model.SiteID,
		FacultyID:     model.FacultyID,
		ClassID:       model.ClassID,
		SupervisorID:  model.SupervisorID,
		Status:        model.Status,
		StartDate:     model.StartDate,
		EndDate:       model.EndDate,
		RequiredHours: model.RequiredHours,
		FacultyNotes:  model.FacultyNotes,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
		Checklist: ChecklistResponse{
			OrientationDone:     model.OrientationDone,
			SafetyTrainingDone:  model.SafetyTrainingDone,
			ConfidentialityDone: model.ConfidentialityDone,
			SupervisionSchedule: model.SupervisionSchedule,
			PolicyDocument:      model.PolicyDocumentURL != nil && *model.PolicyDocumentURL != "",
			LearningContract:    model.LearningContractDocumentURL != nil && *model.LearningContractDocumentURL != "",
			ChecklistDocument:   model.ChecklistDocumentURL != nil && *model.ChecklistDocumentURL != "",
		},
	}

	if model.Student.ID != 0 {
		response.Student = &UserLite{
			ID:    model.Student.ID,
			Name:  model.Student.Name,
			Email: model.Student.Email,
			Role:  model.Student.Role,
		}
	}

	if model.Supervisor != nil && model.Supervisor.ID != 0 {
		response.Supervisor = &UserLite{
			ID:    model.Supervisor.ID,
			Name:  model.Supervisor.Name,
			Email: model.Supervisor.Email,
			Role:  model.Supervisor.Role,
		}
	}

	return response
}

// NewPlacementResponseSlice converts placement models into DTOs.
func NewPlacementResponseSlice(placements []models.Placement) []PlacementResponse {
	responses := make([]PlacementResponse, 0, len(placements))
	for _, placement := range placements {
		responses = append(responses, NewPlacementResponse(placement))
	}

	return responses
}
