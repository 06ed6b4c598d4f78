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
	"github.com/noah-isme/fieldwork-go-api/internal/observability"
	"github.com/noah-isme/fieldwork-go-api/internal/repository"
)

// ErrPlacementNotFound indicates the placement could not be located.
var ErrPlacementNotFound = errors.New("placement not found")

// ErrDuplicatePlacement indicates the student already has an open placement
// for the chosen class.
var ErrDuplicatePlacement = errors.New("student already has a placement for this class")

// ErrSupervisorChoiceRequired indicates the application named neither an
// existing supervisor nor a new-supervisor payload.
var ErrSupervisorChoiceRequired = errors.New("either supervisor_id or new_supervisor must be provided")

// ErrSupervisorChoiceConflict indicates the application named both an
// existing supervisor and a new-supervisor payload.
var ErrSupervisorChoiceConflict = errors.New("supervisor_id and new_supervisor are mutually exclusive")

// ErrNoFacultyAssigned indicates the applying student has no faculty
// assignment to stamp onto the placement.
var ErrNoFacultyAssigned = errors.New("student has no assigned faculty")

// ErrSupervisorEmailInUse indicates the requested supervisor email collides
// with an existing account or another pending request.
var ErrSupervisorEmailInUse = errors.New("supervisor email already in use")

// ErrPolicyDocumentMissing indicates approval was attempted before the
// safety policy document was uploaded.
var ErrPolicyDocumentMissing = errors.New("policy document has not been uploaded")

// ErrPlacementAlreadyDecided indicates the placement left the expected
// status before the operation applied, meaning it was already acted on.
var ErrPlacementAlreadyDecided = errors.New("placement was already acted on")

// PlacementActor identifies the user driving a lifecycle operation.
type PlacementActor struct {
	ID   uint
	Role string
}

// PlacementService orchestrates the placement lifecycle state machine.
type PlacementService interface {
	Apply(ctx context.Context, payload dto.PlacementApplyRequest) (dto.PlacementResponse, error)
	Get(ctx context.Context, id uint) (dto.PlacementResponse, error)
	List(ctx context.Context, filter dto.PlacementFilter) ([]dto.PlacementResponse, error)
	Approve(ctx context.Context, id uint, actor PlacementActor) (dto.PlacementResponse, error)
	Activate(ctx context.Context, id uint, actor PlacementActor) (dto.PlacementResponse, error)
	Reject(ctx context.Context, id uint, payload dto.PlacementRejectRequest, actor PlacementActor) (dto.PlacementResponse, error)
	Complete(ctx context.Context, id uint, actor PlacementActor) (dto.PlacementResponse, error)
	UpdateChecklist(ctx context.Context, id uint, payload dto.ChecklistUpdateRequest) (dto.PlacementResponse, error)
}

type placementService struct {
	placements    repository.PlacementRepository
	pending       repository.PendingSupervisorRepository
	users         repository.UserRepository
	classes       repository.ClassRepository
	notifications NotificationService
	validator     *validator.Validate
	logger        zerolog.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

// NewPlacementService constructs the placement lifecycle service.
func NewPlacementService(placements repository.PlacementRepository, pending repository.PendingSupervisorRepository, users repository.UserRepository, classes repository.ClassRepository, notifications NotificationService, validate *validator.Validate, logger zerolog.Logger) PlacementService {
	return &placementService{
		placements:    placements,
		pending:       pending,
		users:         users,
		classes:       classes,
		notifications: notifications,
		validator:     validate,
		logger:        logger.With().Str("component", "placement_service").Logger(),
		tracer:        otel.Tracer("github.com/noah-isme/fieldwork-go-api/internal/service/placement"),
		now:           time.Now,
	}
}

func (s *placementService) Apply(ctx context.Context, payload dto.PlacementApplyRequest) (dto.PlacementResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "placement.apply", trace.WithAttributes(
		attribute.Int64("placement.student_id", int64(payload.StudentID)),
		attribute.Int64("placement.class_id", int64(payload.ClassID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		return dto.PlacementResponse{}, err
	}

	if payload.SupervisorID == nil && payload.NewSupervisor == nil {
		return dto.PlacementResponse{}, ErrSupervisorChoiceRequired
	}
	if payload.SupervisorID != nil && payload.NewSupervisor != nil {
		return dto.PlacementResponse{}, ErrSupervisorChoiceConflict
	}

	student, err := s.users.GetByID(spanCtx, payload.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PlacementResponse{}, ErrPlacementNotFound
		}
		return dto.PlacementResponse{}, err
	}
	if student.FacultyID == nil {
		return dto.PlacementResponse{}, ErrNoFacultyAssigned
	}

	open, err := s.placements.CountOpenForClass(spanCtx, payload.StudentID, payload.ClassID)
	if err != nil {
		return dto.PlacementResponse{}, err
	}
	if open > 0 {
		return dto.PlacementResponse{}, ErrDuplicatePlacement
	}

	var pendingRow *models.PendingSupervisor
	if payload.NewSupervisor != nil {
		inUse, err := s.pending.EmailInUse(spanCtx, payload.NewSupervisor.Email)
		if err != nil {
			return dto.PlacementResponse{}, err
		}
		if inUse {
			return dto.PlacementResponse{}, ErrSupervisorEmailInUse
		}

		pendingRow = &models.PendingSupervisor{
			SiteID:    payload.SiteID,
			Name:      payload.NewSupervisor.Name,
			Email:     payload.NewSupervisor.Email,
			Phone:     payload.NewSupervisor.Phone,
			Title:     payload.NewSupervisor.Title,
			Licensure: payload.NewSupervisor.Licensure,
			Status:    models.PendingSupervisorStatusPending,
		}
	}

	placement := models.Placement{
		StudentID:     payload.StudentID,
		SiteID:        payload.SiteID,
		FacultyID:     *student.FacultyID,
		ClassID:       payload.ClassID,
		SupervisorID:  payload.SupervisorID,
		Status:        models.PlacementStatusPending,
		StartDate:     payload.StartDate,
		EndDate:       payload.EndDate,
		RequiredHours: payload.RequiredHours,
	}

	if err := s.placements.CreateWithPendingSupervisor(spanCtx, &placement, pendingRow); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "placement_create_failed")
		// The partial unique index catches applications that raced past the
		// open-placement count.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.PlacementResponse{}, ErrDuplicatePlacement
		}
		return dto.PlacementResponse{}, err
	}

	observability.PlacementTransitionsTotal().WithLabelValues("", models.PlacementStatusPending).Inc()
	s.logger.Info().Uint("placement_id", placement.ID).Uint("student_id", placement.StudentID).Msg("placement application created")

	s.notify(spanCtx, dto.NotificationCreateRequest{
		RecipientID:       placement.FacultyID,
		Kind:              models.NotificationKindPlacementSubmitted,
		Title:             "New placement application",
		Message:           fmt.Sprintf("%s applied for a placement requiring %.1f hours.", student.Name, placement.RequiredHours),
		Priority:          models.NotificationPriorityMedium,
		RelatedEntityID:   &placement.ID,
		RelatedEntityType: "placement",
		Metadata:          map[string]interface{}{"student_id": placement.StudentID, "class_id": placement.ClassID},
	})

	s.notifyFacultyMismatch(spanCtx, placement, student)

	created, err := s.placements.GetByID(spanCtx, placement.ID)
	if err != nil {
		return dto.PlacementResponse{}, err
	}

	return dto.NewPlacementResponse(created), nil
}

// notifyFacultyMismatch alerts both faculty members and all admins when a
// class is bound to a different faculty than the student's assignment. The
// mismatch never blocks the application.
func (s *placementService) notifyFacultyMismatch(ctx context.Context, placement models.Placement, student models.User) {
	class, err := s.classes.GetByID(ctx, placement.ClassID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("class_id", placement.ClassID).Msg("failed to load class for faculty mismatch check")
		return
	}

	if class.FacultyID == placement.FacultyID {
		return
	}

	recipients := []uint{placement.FacultyID, class.FacultyID}
	admins, err := s.users.ListByRole(ctx, models.RoleAdmin)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to list admins for faculty mismatch notification")
	} else {
		for _, admin := range admins {
			recipients = append(recipients, admin.ID)
		}
	}

	for _, recipient := range recipients {
		s.notify(ctx, dto.NotificationCreateRequest{
			RecipientID:       recipient,
			Kind:              models.NotificationKindFacultyClassMismatch,
			Title:             "Faculty and class assignment mismatch",
			Message:           fmt.Sprintf("%s applied under class %s, which is bound to a different faculty member than their assignment.", student.Name, class.Code),
			Priority:          models.NotificationPriorityHigh,
			RelatedEntityID:   &placement.ID,
			RelatedEntityType: "placement",
			Metadata:          map[string]interface{}{"class_id": class.ID, "class_faculty_id": class.FacultyID, "student_faculty_id": placement.FacultyID},
		})
	}
}

func (s *placementService) Get(ctx context.Context, id uint) (dto.PlacementResponse, error) {
	placement, err := s.placements.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PlacementResponse{}, ErrPlacementNotFound
		}
		return dto.PlacementResponse{}, err
	}

	return dto.NewPlacementResponse(placement), nil
}

func (s *placementService) List(ctx context.Context, filter dto.PlacementFilter) ([]dto.PlacementResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	placements, err := s.placements.List(ctx, repository.PlacementFilter{
		StudentID: filter.StudentID,
		FacultyID: filter.FacultyID,
		Status:    filter.Status,
	})
	if err != nil {
		return nil, err
	}

	return dto.NewPlacementResponseSlice(placements), nil
}

func (s *placementService) Approve(ctx context.Context, id uint, actor PlacementActor) (dto.PlacementResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "placement.approve", trace.WithAttributes(
		attribute.Int64("placement.id", int64(id)),
		attribute.Int64("placement.actor_id", int64(actor.ID)),
	))
	defer span.End()

	placement, err := s.getForTransition(spanCtx, id)
	if err != nil {
		return dto.PlacementResponse{}, err
	}

	if placement.Status != models.PlacementStatusPending {
		return dto.PlacementResponse{}, ErrPlacementAlreadyDecided
	}
	if !placement.HasPolicyDocument() {
		span.SetStatus(codes.Error, "policy_document_missing")
		return dto.PlacementResponse{}, ErrPolicyDocumentMissing
	}

	if err := s.transition(spanCtx, id, models.PlacementStatusPending, models.PlacementStatusApprovedChecklist, nil); err != nil {
		span.RecordError(err)
		return dto.PlacementResponse{}, err
	}

	s.notify(spanCtx, dto.NotificationCreateRequest{
		RecipientID:       placement.StudentID,
		Kind:              models.NotificationKindPlacementApproved,
		Title:             "Placement approved",
		Message:           "Your placement application was approved. Complete the compliance checklist to activate it.",
		Priority:          models.NotificationPriorityHigh,
		RelatedEntityID:   &id,
		RelatedEntityType: "placement",
	})

	return s.Get(spanCtx, id)
}

func (s *placementService) Activate(ctx context.Context, id uint, actor PlacementActor) (dto.PlacementResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "placement.activate", trace.WithAttributes(
		attribute.Int64("placement.id", int64(id)),
		attribute.Int64("placement.actor_id", int64(actor.ID)),
	))
	defer span.End()

	placement, err := s.getForTransition(spanCtx, id)
	if err != nil {
		return dto.PlacementResponse{}, err
	}

	if placement.Status != models.PlacementStatusApprovedChecklist {
		return dto.PlacementResponse{}, ErrPlacementAlreadyDecided
	}

	if err := s.transition(spanCtx, id, models.PlacementStatusApprovedChecklist, models.PlacementStatusActive, nil); err != nil {
		span.RecordError(err)
		return dto.PlacementResponse{}, err
	}

	s.notify(spanCtx, dto.NotificationCreateRequest{
		RecipientID:       placement.StudentID,
		Kind:              models.NotificationKindPlacementActivated,
		Title:             "Placement active",
		Message:           "Your placement is now active. You can begin logging hours.",
		Priority:          models.NotificationPriorityHigh,
		RelatedEntityID:   &id,
		RelatedEntityType: "placement",
	})

	return s.Get(spanCtx, id)
}

func (s *placementService) Reject(ctx context.Context, id uint, payload dto.PlacementRejectRequest, actor PlacementActor) (dto.PlacementResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "placement.reject", trace.WithAttributes(
		attribute.Int64("placement.id", int64(id)),
		attribute.Int64("placement.actor_id", int64(actor.ID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		return dto.PlacementResponse{}, err
	}

	placement, err := s.getForTransition(spanCtx, id)
	if err != nil {
		return dto.PlacementResponse{}, err
	}

	if placement.Status != models.PlacementStatusPending && placement.Status != models.PlacementStatusApprovedChecklist {
		return dto.PlacementResponse{}, ErrPlacementAlreadyDecided
	}

	updates := map[string]interface{}{"faculty_notes": payload.Reason}
	if err := s.transition(spanCtx, id, placement.Status, models.PlacementStatusDeclined, updates); err != nil {
		span.RecordError(err)
		return dto.PlacementResponse{}, err
	}

	s.notify(spanCtx, dto.NotificationCreateRequest{
		RecipientID:       placement.StudentID,
		Kind:              models.NotificationKindPlacementRejected,
		Title:             "Placement declined",
		Message:           fmt.Sprintf("Your placement application was declined: %s", payload.Reason),
		Priority:          models.NotificationPriorityUrgent,
		RelatedEntityID:   &id,
		RelatedEntityType: "placement",
	})

	return s.Get(spanCtx, id)
}

func (s *placementService) Complete(ctx context.Context, id uint, actor PlacementActor) (dto.PlacementResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "placement.complete", trace.WithAttributes(
		attribute.Int64("placement.id", int64(id)),
		attribute.Int64("placement.actor_id", int64(actor.ID)),
	))
	defer span.End()

	placement, err := s.getForTransition(spanCtx, id)
	if err != nil {
		return dto.PlacementResponse{}, err
	}

	if placement.Status != models.PlacementStatusActive {
		return dto.PlacementResponse{}, ErrPlacementAlreadyDecided
	}

	if err := s.transition(spanCtx, id, models.PlacementStatusActive, models.PlacementStatusComplete, nil); err != nil {
		span.RecordError(err)
		return dto.PlacementResponse{}, err
	}

	s.notify(spanCtx, dto.NotificationCreateRequest{
		RecipientID:       placement.StudentID,
		Kind:              models.NotificationKindPlacementCompleted,
		Title:             "Placement complete",
		Message:           "Your placement has been marked complete.",
		Priority:          models.NotificationPriorityMedium,
		RelatedEntityID:   &id,
		RelatedEntityType: "placement",
	})

	return s.Get(spanCtx, id)
}

func (s *placementService) UpdateChecklist(ctx context.Context, id uint, payload dto.ChecklistUpdateRequest) (dto.PlacementResponse, error) {
	if _, err := s.getForTransition(ctx, id); err != nil {
		return dto.PlacementResponse{}, err
	}

	updates := map[string]interface{}{}
	if payload.OrientationDone != nil {
		updates["orientation_done"] = *payload.OrientationDone
	}
	if payload.SafetyTrainingDone != nil {
		updates["safety_training_done"] = *payload.SafetyTrainingDone
	}
	if payload.ConfidentialityDone != nil {
		updates["confidentiality_done"] = *payload.ConfidentialityDone
	}
	if payload.SupervisionSchedule != nil {
		updates["supervision_schedule"] = *payload.SupervisionSchedule
	}

	if err := s.placements.UpdateChecklist(ctx, id, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PlacementResponse{}, ErrPlacementNotFound
		}
		return dto.PlacementResponse{}, err
	}

	return s.Get(ctx, id)
}

func (s *placementService) getForTransition(ctx context.Context, id uint) (models.Placement, error) {
	placement, err := s.placements.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Placement{}, ErrPlacementNotFound
		}
		return models.Placement{}, err
	}

	return placement, nil
}

func (s *placementService) transition(ctx context.Context, id uint, from, to string, updates map[string]interface{}) error {
	if err := s.placements.TransitionStatus(ctx, id, from, to, updates); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return ErrPlacementAlreadyDecided
		}
		return err
	}

	observability.PlacementTransitionsTotal().WithLabelValues(from, to).Inc()
	s.logger.Info().Uint("placement_id", id).Str("from", from).Str("to", to).Msg("placement transitioned")

	return nil
}

func (s *placementService) notify(ctx context.Context, payload dto.NotificationCreateRequest) {
	if s.notifications == nil {
		return
	}
	if _, err := s.notifications.Publish(ctx, payload); err != nil {
		s.logger.Warn().Err(err).Str("kind", payload.Kind).Msg("failed to dispatch notification")
	}
}
