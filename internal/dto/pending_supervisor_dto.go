package dto

import (
	"time"

	"github.com/noah-isme/fieldwork-go-api/internal/models"
)

// PendingSupervisorRejectRequest carries the mandatory rejection reason.
type PendingSupervisorRejectRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

// PendingSupervisorResponse is the API representation of a pending
// supervisor request.
type PendingSupervisorResponse struct {
	ID          uint       `json:"id"`
	PlacementID uint       `json:"placement_id"`
	SiteID      uint       `json:"site_id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	Title       string     `json:"title"`
	Licensure   string     `json:"licensure"`
	Status      string     `json:"status"`
	ResolvedAt  *time.Time `json:"resolved_at"`
	ResolvedBy  *uint      `json:"resolved_by"`
	Reason      string     `json:"reason"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewPendingSupervisorResponse converts the model into a DTO.
func NewPendingSupervisorResponse(model models.PendingSupervisor) PendingSupervisorResponse {
	return PendingSupervisorResponse{
		ID:          model.ID,
		PlacementID: model.PlacementID,
		SiteID:      model.SiteID,
		Name:        model.Name,
		Email:       model.Email,
		Phone:       model.Phone,
		Title:       model.Title,
		Licensure:   model.Licensure,
		Status:      model.Status,
		ResolvedAt:  model.ResolvedAt,
		ResolvedBy:  model.ResolvedBy,
		Reason:      model.Reason,
		CreatedAt:   model.CreatedAt,
	}
}

// NewPendingSupervisorResponseSlice converts models into DTOs.
func NewPendingSupervisorResponseSlice(items []models.PendingSupervisor) []PendingSupervisorResponse {
	responses := make([]PendingSupervisorResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, NewPendingSupervisorResponse(item))
	}

	return responses
}
