package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/fieldwork-go-api/internal/dto"
	"github.com/noah-isme/fieldwork-go-api/internal/models"
	"github.com/noah-isme/fieldwork-go-api/internal/repository"
)

// ErrPendingSupervisorNotFound indicates the request could not be located.
var ErrPendingSupervisorNotFound = errors.New("pending supervisor request not found")

// ErrPendingSupervisorResolved indicates the request was already decided.
var ErrPendingSupervisorResolved = errors.New("pending supervisor request was already resolved")

// PendingSupervisorService resolves pending supervisor requests. A request
// is decided exactly once; approval materializes a supervisor account and
// links it to the parent placement atomically.
type PendingSupervisorService interface {
	ListPending(ctx context.Context) ([]dto.PendingSupervisorResponse, error)
	Approve(ctx context.Context, id uint, actor PlacementActor) (dto.PendingSupervisorResponse, error)
	Reject(ctx context.Context, id uint, payload dto.PendingSupervisorRejectRequest, actor PlacementActor) (dto.PendingSupervisorResponse, error)
}

type pendingSupervisorService struct {
	pending       repository.PendingSupervisorRepository
	notifications NotificationService
	validator     *validator.Validate
	logger        zerolog.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

// NewPendingSupervisorService constructs the sub-workflow service.
func NewPendingSupervisorService(pending repository.PendingSupervisorRepository, notifications NotificationService, validate *validator.Validate, logger zerolog.Logger) PendingSupervisorService {
	return &pendingSupervisorService{
		pending:       pending,
		notifications: notifications,
		validator:     validate,
		logger:        logger.With().Str("component", "pending_supervisor_service").Logger(),
		tracer:        otel.Tracer("github.com/noah-isme/fieldwork-go-api/internal/service/pending_supervisor"),
		now:           time.Now,
	}
}

func (s *pendingSupervisorService) ListPending(ctx context.Context) ([]dto.PendingSupervisorResponse, error) {
	items, err := s.pending.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	return dto.NewPendingSupervisorResponseSlice(items), nil
}

func (s *pendingSupervisorService) Approve(ctx context.Context, id uint, actor PlacementActor) (dto.PendingSupervisorResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "pending_supervisor.approve", trace.WithAttributes(
		attribute.Int64("pending_supervisor.id", int64(id)),
		attribute.Int64("pending_supervisor.actor_id", int64(actor.ID)),
	))
	defer span.End()

	pending, supervisor, err := s.pending.Approve(spanCtx, id, actor.ID, s.now().UTC())
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return dto.PendingSupervisorResponse{}, ErrPendingSupervisorNotFound
		case errors.Is(err, repository.ErrEmailTaken):
			span.SetStatus(codes.Error, "email_taken")
			return dto.PendingSupervisorResponse{}, ErrSupervisorEmailInUse
		case errors.Is(err, repository.ErrStaleStatus):
			return dto.PendingSupervisorResponse{}, ErrPendingSupervisorResolved
		default:
			return dto.PendingSupervisorResponse{}, err
		}
	}

	s.logger.Info().
		Uint("pending_supervisor_id", pending.ID).
		Uint("supervisor_id", supervisor.ID).
		Uint("placement_id", pending.PlacementID).
		Msg("pending supervisor approved and account materialized")

	s.notify(spanCtx, dto.NotificationCreateRequest{
		RecipientID:       supervisor.ID,
		Kind:              models.NotificationKindSupervisorApproved,
		Title:             "Supervisor account created",
		Message:           fmt.Sprintf("Welcome %s, your supervisor account has been provisioned and linked to a placement.", supervisor.Name),
		Priority:          models.NotificationPriorityHigh,
		RelatedEntityID:   &pending.PlacementID,
		RelatedEntityType: "placement",
	})

	return dto.NewPendingSupervisorResponse(pending), nil
}

func (s *pendingSupervisorService) Reject(ctx context.Context, id uint, payload dto.PendingSupervisorRejectRequest, actor PlacementActor) (dto.PendingSupervisorResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "pending_supervisor.reject", trace.WithAttributes(
		attribute.Int64("pending_supervisor.id", int64(id)),
		attribute.Int64("pending_supervisor.actor_id", int64(actor.ID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		return dto.PendingSupervisorResponse{}, err
	}

	pending, err := s.pending.Reject(spanCtx, id, actor.ID, payload.Reason, s.now().UTC())
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return dto.PendingSupervisorResponse{}, ErrPendingSupervisorNotFound
		case errors.Is(err, repository.ErrEmailTaken):
			return dto.PendingSupervisorResponse{}, ErrSupervisorEmailInUse
		case errors.Is(err, repository.ErrStaleStatus):
			return dto.PendingSupervisorResponse{}, ErrPendingSupervisorResolved
		default:
			return dto.PendingSupervisorResponse{}, err
		}
	}

	s.logger.Info().Uint("pending_supervisor_id", pending.ID).Msg("pending supervisor rejected")

	// The parent placement stays supervisor-less; faculty reconcile by
	// attaching an alternative out-of-band.
	placement := pending.Placement
	if placement.ID != 0 {
		s.notify(spanCtx, dto.NotificationCreateRequest{
			RecipientID:       placement.StudentID,
			Kind:              models.NotificationKindSupervisorRejected,
			Title:             "Supervisor request declined",
			Message:           fmt.Sprintf("Your requested supervisor was declined: %s", payload.Reason),
			Priority:          models.NotificationPriorityHigh,
			RelatedEntityID:   &pending.PlacementID,
			RelatedEntityType: "placement",
		})
	}

	return dto.NewPendingSupervisorResponse(pending), nil
}

func (s *pendingSupervisorService) notify(ctx context.Context, payload dto.NotificationCreateRequest) {
	if s.notifications == nil {
		return
	}
	if _, err := s.notifications.Publish(ctx, payload); err != nil {
		s.logger.Warn().Err(err).Str("kind", payload.Kind).Msg("failed to dispatch notification")
	}
}
