package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
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

// minReactionWords is the minimum length of the weekly reflection narrative.
const minReactionWords = 150

// ErrEntryNotFound indicates a timesheet entry could not be located.
var ErrEntryNotFound = errors.New("timesheet entry not found")

// ErrEntryNotEditable indicates the entry left the editable statuses.
var ErrEntryNotEditable = errors.New("timesheet entry can no longer be edited")

// ErrPlacementNotActive indicates hours cannot be logged or submitted until
// the placement reaches ACTIVE.
var ErrPlacementNotActive = errors.New("placement is not active")

// ErrEmptyWeek indicates the submission window contains no entries.
var ErrEmptyWeek = errors.New("no timesheet entries in the selected week")

// ErrWeekNotSubmittable indicates the week mixes entries that already moved
// past DRAFT/REJECTED, so it cannot be submitted as a whole.
var ErrWeekNotSubmittable = errors.New("week contains entries that were already submitted")

// ErrMixedWeekGroup indicates a decision targeted entries spanning more than
// one placement or week.
var ErrMixedWeekGroup = errors.New("entries do not belong to a single week group")

// ErrPartialWeekGroup indicates a decision covered only part of the week's
// entries at the current stage. Weeks move through the pipeline whole.
var ErrPartialWeekGroup = errors.New("decision must cover every entry of the week")

// ErrWeekAlreadyDecided indicates the week-group left the expected status
// before the decision applied, meaning it was already acted on.
var ErrWeekAlreadyDecided = errors.New("week was already acted on")

// ErrReactionTooShort indicates the journal reflection is under the minimum
// word count.
var ErrReactionTooShort = fmt.Errorf("journal reaction must be at least %d words", minReactionWords)

// ErrRejectionNotesRequired indicates a rejection was issued without notes.
var ErrRejectionNotesRequired = errors.New("notes are required when rejecting")

// TimesheetService orchestrates the dual-approval timesheet pipeline. All
// submission and decision operations act on week-groups, never individual
// entries.
type TimesheetService interface {
	LogEntry(ctx context.Context, payload dto.TimesheetEntryCreateRequest) (dto.TimesheetEntryResponse, error)
	UpdateEntry(ctx context.Context, id uint, payload dto.TimesheetEntryUpdateRequest) (dto.TimesheetEntryResponse, error)
	SubmitWeek(ctx context.Context, payload dto.SubmitWeekRequest) (dto.WeekSummaryResponse, error)
	SupervisorDecide(ctx context.Context, payload dto.DecisionRequest, actor PlacementActor) ([]dto.TimesheetEntryResponse, error)
	FacultyDecide(ctx context.Context, payload dto.DecisionRequest, actor PlacementActor) ([]dto.TimesheetEntryResponse, error)
	WeekSummary(ctx context.Context, placementID uint, weekStart time.Time) (dto.WeekSummaryResponse, error)
}

type timesheetService struct {
	timesheets    repository.TimesheetRepository
	placements    repository.PlacementRepository
	notifications NotificationService
	validator     *validator.Validate
	sanitizer     *bluemonday.Policy
	logger        zerolog.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

// NewTimesheetService constructs the timesheet pipeline service.
func NewTimesheetService(timesheets repository.TimesheetRepository, placements repository.PlacementRepository, notifications NotificationService, validate *validator.Validate, logger zerolog.Logger) TimesheetService {
	return &timesheetService{
		timesheets:    timesheets,
		placements:    placements,
		notifications: notifications,
		validator:     validate,
		sanitizer:     bluemonday.StrictPolicy(),
		logger:        logger.With().Str("component", "timesheet_service").Logger(),
		tracer:        otel.Tracer("github.com/noah-isme/fieldwork-go-api/internal/service/timesheet"),
		now:           time.Now,
	}
}

func (s *timesheetService) LogEntry(ctx context.Context, payload dto.TimesheetEntryCreateRequest) (dto.TimesheetEntryResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TimesheetEntryResponse{}, err
	}

	placement, err := s.placements.GetByID(ctx, payload.PlacementID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TimesheetEntryResponse{}, ErrPlacementNotFound
		}
		return dto.TimesheetEntryResponse{}, err
	}
	if !placement.AcceptsTimesheets() {
		return dto.TimesheetEntryResponse{}, ErrPlacementNotActive
	}

	entry := models.TimesheetEntry{
		PlacementID: payload.PlacementID,
		Date:        payload.Date,
		WeekStart:   models.WeekStartFor(payload.Date),
		Hours:       payload.Hours,
		Category:    payload.Category,
		Notes:       strings.TrimSpace(s.sanitizer.Sanitize(payload.Notes)),
		Status:      models.TimesheetStatusDraft,
	}

	if err := s.timesheets.CreateEntry(ctx, &entry); err != nil {
		return dto.TimesheetEntryResponse{}, err
	}

	s.logger.Info().Uint("entry_id", entry.ID).Uint("placement_id", entry.PlacementID).Msg("timesheet entry logged")

	return dto.NewTimesheetEntryResponse(entry), nil
}

func (s *timesheetService) UpdateEntry(ctx context.Context, id uint, payload dto.TimesheetEntryUpdateRequest) (dto.TimesheetEntryResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TimesheetEntryResponse{}, err
	}

	entry, err := s.timesheets.GetEntryByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TimesheetEntryResponse{}, ErrEntryNotFound
		}
		return dto.TimesheetEntryResponse{}, err
	}

	if !entry.Editable() {
		return dto.TimesheetEntryResponse{}, ErrEntryNotEditable
	}

	if payload.Date != nil {
		entry.Date = *payload.Date
		entry.WeekStart = models.WeekStartFor(*payload.Date)
	}
	if payload.Hours != nil {
		entry.Hours = *payload.Hours
	}
	if payload.Category != nil {
		entry.Category = *payload.Category
	}
	if payload.Notes != nil {
		entry.Notes = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Notes))
	}

	if err := s.timesheets.UpdateEntry(ctx, &entry); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return dto.TimesheetEntryResponse{}, ErrEntryNotEditable
		}
		return dto.TimesheetEntryResponse{}, err
	}

	return dto.NewTimesheetEntryResponse(entry), nil
}

// SubmitWeek moves a whole week of draft or rejected entries to
// PENDING_SUPERVISOR and upserts the accompanying journal in the same
// transaction. Resubmission after a rejection overwrites the journal.
func (s *timesheetService) SubmitWeek(ctx context.Context, payload dto.SubmitWeekRequest) (dto.WeekSummaryResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "timesheet.submit_week", trace.WithAttributes(
		attribute.Int64("timesheet.placement_id", int64(payload.PlacementID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		return dto.WeekSummaryResponse{}, err
	}

	if wordCount(payload.Journal.Reaction) < minReactionWords {
		return dto.WeekSummaryResponse{}, ErrReactionTooShort
	}

	placement, err := s.placements.GetByID(spanCtx, payload.PlacementID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.WeekSummaryResponse{}, ErrPlacementNotFound
		}
		return dto.WeekSummaryResponse{}, err
	}
	if !placement.AcceptsTimesheets() {
		span.SetStatus(codes.Error, "placement_not_active")
		return dto.WeekSummaryResponse{}, ErrPlacementNotActive
	}

	weekStart := models.WeekStartFor(payload.WeekStart)
	entries, err := s.timesheets.ListWeek(spanCtx, payload.PlacementID, weekStart)
	if err != nil {
		return dto.WeekSummaryResponse{}, err
	}
	if len(entries) == 0 {
		return dto.WeekSummaryResponse{}, ErrEmptyWeek
	}

	entryIDs := make([]uint, 0, len(entries))
	var totalHours float64
	for _, entry := range entries {
		if entry.Status != models.TimesheetStatusDraft && entry.Status != models.TimesheetStatusRejected {
			return dto.WeekSummaryResponse{}, ErrWeekNotSubmittable
		}
		entryIDs = append(entryIDs, entry.ID)
		totalHours += entry.Hours
	}

	now := s.now().UTC()
	journal := models.TimesheetJournal{
		PlacementID:       payload.PlacementID,
		WeekStart:         weekStart,
		WeekEnd:           models.WeekEndFor(payload.WeekStart),
		TasksSummary:      strings.TrimSpace(s.sanitizer.Sanitize(payload.Journal.TasksSummary)),
		HighLowPoints:     strings.TrimSpace(s.sanitizer.Sanitize(payload.Journal.HighLowPoints)),
		Competencies:      strings.Join(payload.Journal.Competencies, ","),
		PracticeBehaviors: strings.Join(payload.Journal.PracticeBehaviors, ","),
		Reaction:          strings.TrimSpace(s.sanitizer.Sanitize(payload.Journal.Reaction)),
		OtherComments:     strings.TrimSpace(s.sanitizer.Sanitize(payload.Journal.OtherComments)),
		SubmittedAt:       now,
	}

	if err := s.timesheets.SubmitWeek(spanCtx, &journal, entryIDs, now); err != nil {
		span.RecordError(err)
		if errors.Is(err, repository.ErrStaleStatus) {
			return dto.WeekSummaryResponse{}, ErrWeekAlreadyDecided
		}
		return dto.WeekSummaryResponse{}, err
	}

	observability.TimesheetDecisionsTotal().WithLabelValues("student", "submit").Inc()
	s.logger.Info().
		Uint("placement_id", payload.PlacementID).
		Time("week_start", weekStart).
		Int("entries", len(entryIDs)).
		Float64("total_hours", totalHours).
		Msg("timesheet week submitted")

	if placement.SupervisorID != nil {
		s.notify(spanCtx, dto.NotificationCreateRequest{
			RecipientID:       *placement.SupervisorID,
			Kind:              models.NotificationKindTimesheetSubmitted,
			Title:             "Timesheet awaiting your review",
			Message:           fmt.Sprintf("%d entries totaling %.1f hours were submitted for the week of %s.", len(entryIDs), totalHours, weekStart.Format("Jan 2, 2006")),
			Priority:          models.NotificationPriorityMedium,
			RelatedEntityID:   &payload.PlacementID,
			RelatedEntityType: "placement",
			Metadata:          map[string]interface{}{"week_start": weekStart, "total_hours": totalHours, "entry_count": len(entryIDs)},
		})
	}

	return s.WeekSummary(spanCtx, payload.PlacementID, weekStart)
}

// SupervisorDecide applies the first-stage decision to a week-group. Every
// targeted entry must still be PENDING_SUPERVISOR or the whole call fails.
func (s *timesheetService) SupervisorDecide(ctx context.Context, payload dto.DecisionRequest, actor PlacementActor) ([]dto.TimesheetEntryResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "timesheet.supervisor_decide", trace.WithAttributes(
		attribute.String("timesheet.action", payload.Action),
		attribute.Int64("timesheet.actor_id", int64(actor.ID)),
	))
	defer span.End()

	entries, placement, err := s.loadGroup(spanCtx, payload, models.TimesheetStatusPendingSupervisor)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	now := s.now().UTC()
	totalHours := sumHours(entries)

	if payload.Action == "approve" {
		updates := map[string]interface{}{
			"status":                 models.TimesheetStatusPendingFaculty,
			"supervisor_approved_at": now,
			"supervisor_approved_by": actor.ID,
		}
		if err := s.transitionGroup(spanCtx, payload.EntryIDs, models.TimesheetStatusPendingSupervisor, updates, "supervisor", "approve"); err != nil {
			span.RecordError(err)
			return nil, err
		}

		s.notify(spanCtx, dto.NotificationCreateRequest{
			RecipientID:       placement.FacultyID,
			Kind:              models.NotificationKindTimesheetSupervisorOK,
			Title:             "Timesheet approved by supervisor",
			Message:           fmt.Sprintf("A week of %.1f hours was approved by the supervisor and awaits your approval.", totalHours),
			Priority:          models.NotificationPriorityMedium,
			RelatedEntityID:   &placement.ID,
			RelatedEntityType: "placement",
			Metadata:          map[string]interface{}{"total_hours": totalHours, "entry_count": len(entries)},
		})
	} else {
		notes := strings.TrimSpace(payload.Notes)
		if notes == "" {
			return nil, ErrRejectionNotesRequired
		}

		updates := map[string]interface{}{
			"status":            models.TimesheetStatusRejected,
			"rejected_at":       now,
			"rejected_by":       actor.ID,
			"rejection_reason":  notes,
			"faculty_viewed_at": nil,
		}
		if err := s.transitionGroup(spanCtx, payload.EntryIDs, models.TimesheetStatusPendingSupervisor, updates, "supervisor", "reject"); err != nil {
			span.RecordError(err)
			return nil, err
		}

		s.notify(spanCtx, dto.NotificationCreateRequest{
			RecipientID:       placement.StudentID,
			Kind:              models.NotificationKindTimesheetRejected,
			Title:             "Timesheet returned by supervisor",
			Message:           fmt.Sprintf("Your submitted week was returned: %s", notes),
			Priority:          models.NotificationPriorityHigh,
			RelatedEntityID:   &placement.ID,
			RelatedEntityType: "placement",
		})
	}

	updated, err := s.timesheets.GetEntriesByIDs(spanCtx, payload.EntryIDs)
	if err != nil {
		return nil, err
	}

	return dto.NewTimesheetEntryResponseSlice(updated), nil
}

// FacultyDecide applies the final decision. Approval locks every entry in
// the same update that moves it to APPROVED, which is what keeps the lock
// invariant airtight.
func (s *timesheetService) FacultyDecide(ctx context.Context, payload dto.DecisionRequest, actor PlacementActor) ([]dto.TimesheetEntryResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "timesheet.faculty_decide", trace.WithAttributes(
		attribute.String("timesheet.action", payload.Action),
		attribute.Int64("timesheet.actor_id", int64(actor.ID)),
	))
	defer span.End()

	entries, placement, err := s.loadGroup(spanCtx, payload, models.TimesheetStatusPendingFaculty)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	now := s.now().UTC()
	totalHours := sumHours(entries)

	if payload.Action == "approve" {
		updates := map[string]interface{}{
			"status":              models.TimesheetStatusApproved,
			"locked":              true,
			"faculty_approved_at": now,
			"faculty_approved_by": actor.ID,
		}
		if err := s.transitionGroup(spanCtx, payload.EntryIDs, models.TimesheetStatusPendingFaculty, updates, "faculty", "approve"); err != nil {
			span.RecordError(err)
			return nil, err
		}

		s.notify(spanCtx, dto.NotificationCreateRequest{
			RecipientID:       placement.StudentID,
			Kind:              models.NotificationKindTimesheetApproved,
			Title:             "Timesheet approved",
			Message:           fmt.Sprintf("Final approval granted: %.1f hours are now credited toward your placement.", totalHours),
			Priority:          models.NotificationPriorityHigh,
			RelatedEntityID:   &placement.ID,
			RelatedEntityType: "placement",
			Metadata:          map[string]interface{}{"total_hours": totalHours},
		})
	} else {
		notes := strings.TrimSpace(payload.Notes)
		if notes == "" {
			return nil, ErrRejectionNotesRequired
		}

		updates := map[string]interface{}{
			"status":           models.TimesheetStatusRejected,
			"rejected_at":      now,
			"rejected_by":      actor.ID,
			"rejection_reason": notes,
		}
		if err := s.transitionGroup(spanCtx, payload.EntryIDs, models.TimesheetStatusPendingFaculty, updates, "faculty", "reject"); err != nil {
			span.RecordError(err)
			return nil, err
		}

		s.notify(spanCtx, dto.NotificationCreateRequest{
			RecipientID:       placement.StudentID,
			Kind:              models.NotificationKindTimesheetRejected,
			Title:             "Timesheet returned by faculty",
			Message:           fmt.Sprintf("Your submitted week was returned: %s", notes),
			Priority:          models.NotificationPriorityHigh,
			RelatedEntityID:   &placement.ID,
			RelatedEntityType: "placement",
		})
	}

	updated, err := s.timesheets.GetEntriesByIDs(spanCtx, payload.EntryIDs)
	if err != nil {
		return nil, err
	}

	return dto.NewTimesheetEntryResponseSlice(updated), nil
}

func (s *timesheetService) WeekSummary(ctx context.Context, placementID uint, weekStart time.Time) (dto.WeekSummaryResponse, error) {
	weekStart = models.WeekStartFor(weekStart)
	entries, err := s.timesheets.ListWeek(ctx, placementID, weekStart)
	if err != nil {
		return dto.WeekSummaryResponse{}, err
	}

	summary := dto.WeekSummaryResponse{
		PlacementID: placementID,
		WeekStart:   weekStart,
		WeekEnd:     weekStart.AddDate(0, 0, 6),
		TotalHours:  sumHours(entries),
		Entries:     dto.NewTimesheetEntryResponseSlice(entries),
	}

	journal, err := s.timesheets.GetJournal(ctx, placementID, weekStart)
	if err == nil {
		response := dto.NewJournalResponse(journal)
		summary.Journal = &response
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.WeekSummaryResponse{}, err
	}

	return summary, nil
}

// loadGroup validates a decision payload and verifies that the targeted
// entries form one week-group currently sitting in expectedStatus.
func (s *timesheetService) loadGroup(ctx context.Context, payload dto.DecisionRequest, expectedStatus string) ([]models.TimesheetEntry, models.Placement, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, models.Placement{}, err
	}

	entries, err := s.timesheets.GetEntriesByIDs(ctx, payload.EntryIDs)
	if err != nil {
		return nil, models.Placement{}, err
	}
	if len(entries) != len(payload.EntryIDs) {
		return nil, models.Placement{}, ErrEntryNotFound
	}

	first := entries[0]
	for _, entry := range entries {
		if entry.PlacementID != first.PlacementID || !entry.WeekStart.Equal(first.WeekStart) {
			return nil, models.Placement{}, ErrMixedWeekGroup
		}
		if entry.Status != expectedStatus {
			return nil, models.Placement{}, ErrWeekAlreadyDecided
		}
	}

	// The decision must cover every entry of the week still sitting at this
	// stage; a subset would leave the week split across pipeline stages.
	weekEntries, err := s.timesheets.ListWeek(ctx, first.PlacementID, first.WeekStart)
	if err != nil {
		return nil, models.Placement{}, err
	}
	var atStage int
	for _, entry := range weekEntries {
		if entry.Status == expectedStatus {
			atStage++
		}
	}
	if atStage != len(entries) {
		return nil, models.Placement{}, ErrPartialWeekGroup
	}

	placement, err := s.placements.GetByID(ctx, first.PlacementID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.Placement{}, ErrPlacementNotFound
		}
		return nil, models.Placement{}, err
	}

	return entries, placement, nil
}

func (s *timesheetService) transitionGroup(ctx context.Context, ids []uint, fromStatus string, updates map[string]interface{}, stage, action string) error {
	if err := s.timesheets.TransitionGroup(ctx, ids, fromStatus, updates); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return ErrWeekAlreadyDecided
		}
		return err
	}

	observability.TimesheetDecisionsTotal().WithLabelValues(stage, action).Inc()
	s.logger.Info().Str("stage", stage).Str("action", action).Int("entries", len(ids)).Msg("timesheet week decided")

	return nil
}

func (s *timesheetService) notify(ctx context.Context, payload dto.NotificationCreateRequest) {
	if s.notifications == nil {
		return
	}
	if _, err := s.notifications.Publish(ctx, payload); err != nil {
		s.logger.Warn().Err(err).Str("kind", payload.Kind).Msg("failed to dispatch notification")
	}
}

func sumHours(entries []models.TimesheetEntry) float64 {
	var total float64
	for _, entry := range entries {
		total += entry.Hours
	}
	return total
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
