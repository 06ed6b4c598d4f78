package dto

import (
	"time"

	"github.com/noah-isme/fieldwork-go-api/internal/models"
)

// TimesheetEntryCreateRequest logs one day's hours as a draft.
type TimesheetEntryCreateRequest struct {
	PlacementID uint      `json:"placement_id" validate:"required,gt=0"`
	Date        time.Time `json:"date" validate:"required"`
	Hours       float64   `json:"hours" validate:"required,gt=0,lte=24"`
	Category    string    `json:"category" validate:"omitempty,max=64"`
	Notes       string    `json:"notes" validate:"omitempty,max=2000"`
}

// TimesheetEntryUpdateRequest edits a draft or rejected entry.
type TimesheetEntryUpdateRequest struct {
	Date     *time.Time `json:"date"`
	Hours    *float64   `json:"hours" validate:"omitempty,gt=0,lte=24"`
	Category *string    `json:"category" validate:"omitempty,max=64"`
	Notes    *string    `json:"notes" validate:"omitempty,max=2000"`
}

// JournalRequest carries the weekly narrative fields required at submission.
type JournalRequest struct {
	TasksSummary      string   `json:"tasks_summary" validate:"required,min=10"`
	HighLowPoints     string   `json:"high_low_points"`
	Competencies      []string `json:"competencies" validate:"required,min=1,dive,required"`
	PracticeBehaviors []string `json:"practice_behaviors" validate:"required,min=1,dive,required"`
	Reaction          string   `json:"reaction" validate:"required"`
	OtherComments     string   `json:"other_comments"`
}

// SubmitWeekRequest submits a week-group of entries with its journal.
type SubmitWeekRequest struct {
	PlacementID uint           `json:"placement_id" validate:"required,gt=0"`
	WeekStart   time.Time      `json:"week_start" validate:"required"`
	Journal     JournalRequest `json:"journal" validate:"required"`
}

// DecisionRequest resolves a week-group at either approval stage.
type DecisionRequest struct {
	EntryIDs []uint `json:"entry_ids" validate:"required,min=1,dive,gt=0"`
	Action   string `json:"action" validate:"required,oneof=approve reject"`
	Notes    string `json:"notes" validate:"omitempty,max=2000"`
}

// TimesheetEntryResponse is the API representation of one entry.
type TimesheetEntryResponse struct {
	ID                   uint       `json:"id"`
	PlacementID          uint       `json:"placement_id"`
	Date                 time.Time  `json:"date"`
	WeekStart            time.Time  `json:"week_start"`
	Hours                float64    `json:"hours"`
	Category             string     `json:"category"`
	Notes                string     `json:"notes"`
	Status               string     `json:"status"`
	Locked               bool       `json:"locked"`
	SubmittedAt          *time.Time `json:"submitted_at"`
	SupervisorApprovedAt *time.Time `json:"supervisor_approved_at"`
	SupervisorApprovedBy *uint      `json:"supervisor_approved_by"`
	FacultyApprovedAt    *time.Time `json:"faculty_approved_at"`
	FacultyApprovedBy    *uint      `json:"faculty_approved_by"`
	RejectedAt           *time.Time `json:"rejected_at"`
	RejectedBy           *uint      `json:"rejected_by"`
	RejectionReason      *string    `json:"rejection_reason"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// JournalResponse serializes a weekly journal.
type JournalResponse struct {
	ID                uint      `json:"id"`
	PlacementID       uint      `json:"placement_id"`
	WeekStart         time.Time `json:"week_start"`
	WeekEnd           time.Time `json:"week_end"`
	TasksSummary      string    `json:"tasks_summary"`
	HighLowPoints     string    `json:"high_low_points"`
	Competencies      string    `json:"competencies"`
	PracticeBehaviors string    `json:"practice_behaviors"`
	Reaction          string    `json:"reaction"`
	OtherComments     string    `json:"other_comments"`
	SubmittedAt       time.Time `json:"submitted_at"`
}

// WeekSummaryResponse groups a week's entries with their journal and totals.
type WeekSummaryResponse struct {
	PlacementID uint                     `json:"placement_id"`
	WeekStart   time.Time                `json:"week_start"`
	WeekEnd     time.Time                `json:"week_end"`
	TotalHours  float64                  `json:"total_hours"`
	Entries     []TimesheetEntryResponse `json:"entries"`
	Journal     *JournalResponse         `json:"journal,omitempty"`
}

// NewTimesheetEntryResponse converts an entry model into a DTO.
func NewTimesheetEntryResponse(model models.TimesheetEntry) TimesheetEntryResponse {
	return TimesheetEntryResponse{
		ID:                   model.ID,
		PlacementID:          model.PlacementID,
		Date:                 model.Date,
		WeekStart:            model.WeekStart,
		Hours:                model.Hours,
		Category:             model.Category,
		Notes:                model.Notes,
		Status:               model.Status,
		Locked:               model.Locked,
		SubmittedAt:          model.SubmittedAt,
		SupervisorApprovedAt: model.SupervisorApprovedAt,
		SupervisorApprovedBy: model.SupervisorApprovedBy,
		FacultyApprovedAt:    model.FacultyApprovedAt,
		FacultyApprovedBy:    model.FacultyApprovedBy,
		RejectedAt:           model.RejectedAt,
		RejectedBy:           model.RejectedBy,
		RejectionReason:      model.RejectionReason,
		CreatedAt:            model.CreatedAt,
		UpdatedAt:            model.UpdatedAt,
	}
}

// NewTimesheetEntryResponseSlice converts entry models into DTOs.
func NewTimesheetEntryResponseSlice(entries []models.TimesheetEntry) []TimesheetEntryResponse {
	responses := make([]TimesheetEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, NewTimesheetEntryResponse(entry))
	}

	return responses
}

// NewJournalResponse converts a journal model into a DTO.
func NewJournalResponse(model models.TimesheetJournal) JournalResponse {
	return JournalResponse{
		ID:                model.ID,
		PlacementID:       model.PlacementID,
		WeekStart:         model.WeekStart,
		WeekEnd:           model.WeekEnd,
		TasksSummary:      model.TasksSummary,
		HighLowPoints:     model.HighLowPoints,
		Competencies:      model.Competencies,
		PracticeBehaviors: model.PracticeBehaviors,
		Reaction:          model.Reaction,
		OtherComments:     model.OtherComments,
		SubmittedAt:       model.SubmittedAt,
	}
}
