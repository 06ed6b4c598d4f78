package dto

import (
	"time"

	"github.com/noah-isme/fieldwork-go-api/internal/models"
)

// NotificationCreateRequest is the internal payload workflow services hand
// to the notification service.
type NotificationCreateRequest struct {
	RecipientID       uint                   `json:"recipient_id" validate:"required,gt=0"`
	Kind              string                 `json:"kind" validate:"required,max=64"`
	Title             string                 `json:"title" validate:"required,max=255"`
	Message           string                 `json:"message" validate:"required"`
	Priority          string                 `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	RelatedEntityID   *uint                  `json:"related_entity_id"`
	RelatedEntityType string                 `json:"related_entity_type" validate:"omitempty,max=64"`
	Metadata          map[string]interface{} `json:"metadata"`
}

// NotificationResponse is returned to API clients.
type NotificationResponse struct {
	ID                uint                   `json:"id"`
	RecipientID       uint                   `json:"recipient_id"`
	Kind              string                 `json:"kind"`
	Title             string                 `json:"title"`
	Message           string                 `json:"message"`
	Priority          string                 `json:"priority"`
	RelatedEntityID   *uint                  `json:"related_entity_id"`
	RelatedEntityType string                 `json:"related_entity_type"`
	Metadata          map[string]interface{} `json:"metadata"`
	Read              bool                   `json:"read"`
	ReadAt            *time.Time             `json:"read_at"`
	CreatedAt         time.Time              `json:"created_at"`
}

// NewNotificationResponse converts a Notification model into a DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:                model.ID,
		RecipientID:       model.RecipientID,
		Kind:              model.Kind,
		Title:             model.Title,
		Message:           model.Message,
		Priority:          model.Priority,
		RelatedEntityID:   model.RelatedEntityID,
		RelatedEntityType: model.RelatedEntityType,
		Metadata:          model.Metadata,
		Read:              model.Read,
		ReadAt:            model.ReadAt,
		CreatedAt:         model.CreatedAt,
	}
}

// NewNotificationResponseSlice converts notification models into DTOs.
func NewNotificationResponseSlice(notifications []models.Notification) []NotificationResponse {
	responses := make([]NotificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		responses = append(responses, NewNotificationResponse(notification))
	}

	return responses
}
