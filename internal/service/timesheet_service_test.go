package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fieldwork-go-api/internal/dto"
	"github.com/noah-isme/fieldwork-go-api/internal/models"
	"github.com/noah-isme/fieldwork-go-api/internal/service"
)

func (e *testEnv) activePlacement(t *testing.T) (models.Placement, models.User, models.User, models.User) {
	t.Helper()

	faculty := e.createUser(t, "Dr. Lee", models.RoleFaculty, nil)
	supervisor := e.createUser(t, "Sam Ortiz", models.RoleSupervisor, nil)
	student := e.createUser(t, "Dana Miles", models.RoleStudent, &faculty.ID)

	placement := models.Placement{
		StudentID:     student.ID,
		SiteID:        7,
		FacultyID:     faculty.ID,
		ClassID:       3,
		SupervisorID:  &supervisor.ID,
		Status:        models.PlacementStatusActive,
		StartDate:     time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 5, 9, 0, 0, 0, 0, time.UTC),
		RequiredHours: 400,
	}
	require.NoError(t, e.db.Create(&placement).Error)

	return placement, student, supervisor, faculty
}

func longReaction() string {
	return strings.TrimSpace(strings.Repeat("insightful ", 150))
}

func journalRequest() dto.JournalRequest {
	return dto.JournalRequest{
		TasksSummary:      "Conducted intake interviews and drafted case notes.",
		HighLowPoints:     "High: first solo interview. Low: missed a deadline.",
		Competencies:      []string{"1", "4"},
		PracticeBehaviors: []string{"2a", "3b"},
		Reaction:          longReaction(),
	}
}

func (e *testEnv) logWeek(t *testing.T, placementID uint, weekStart time.Time, days int) []uint {
	t.Helper()
	ids := make([]uint, 0, days)
	for i := 0; i < days; i++ {
		entry, err := e.timesheets.LogEntry(context.Background(), dto.TimesheetEntryCreateRequest{
			PlacementID: placementID,
			Date:        weekStart.AddDate(0, 0, i+1),
			Hours:       4,
		})
		require.NoError(t, err)
		ids = append(ids, entry.ID)
	}
	return ids
}

func TestLogEntryRequiresActivePlacement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	faculty := env.createUser(t, "Dr. Lee", models.RoleFaculty, nil)
	student := env.createUser(t, "Dana Miles", models.RoleStudent, &faculty.ID)
	class := env.createClass(t, faculty.ID)

	placement, err := env.placements.Apply(ctx, applyPayload(student.ID, class.ID))
	require.NoError(t, err)

	_, err = env.timesheets.LogEntry(ctx, dto.TimesheetEntryCreateRequest{
		PlacementID: placement.ID,
		Date:        time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
		Hours:       6,
	})
	require.ErrorIs(t, err, service.ErrPlacementNotActive)
}

func TestLogEntryDerivesWeekStart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	placement, _, _, _ := env.activePlacement(t)

	// 2026-02-04 is a Wednesday.
	entry, err := env.timesheets.LogEntry(ctx, dto.TimesheetEntryCreateRequest{
		PlacementID: placement.ID,
		Date:        time.Date(2026, 2, 4, 9, 0, 0, 0, time.UTC),
		Hours:       6,
		Notes:       "<script>alert(1)</script>shadowed intake",
	})
	require.NoError(t, err)
	require.Equal(t, models.TimesheetStatusDraft, entry.Status)
	require.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), entry.WeekStart.UTC())
	require.Equal(t, "shadowed intake", entry.Notes, "markup must be stripped")
}

func TestSubmitWeekRejectsShortReaction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	placement, _, _, _ := env.activePlacement(t)
	weekStart := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	env.logWeek(t, placement.ID, weekStart, 2)

	journal := journalRequest()
	journal.Reaction = "too short to count"

	_, err := env.timesheets.SubmitWeek(ctx, dto.SubmitWeekRequest{
		PlacementID: placement.ID,
		WeekStart:   weekStart,
		Journal:     journal,
	})
	require.ErrorIs(t, err, service.ErrReactionTooShort)
}

func TestSubmitWeekRejectsEmptyWeek(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	placement, _, _, _ := env.activePlacement(t)

	_, err := env.timesheets.SubmitWeek(ctx, dto.SubmitWeekRequest{
		PlacementID: placement.ID,
		WeekStart:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Journal:     journalRequest(),
	})
	require.ErrorIs(t, err, service.ErrEmptyWeek)
}

func TestSubmitWeekMovesGroupAndNotifiesSupervisor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	placement, _, supervisor, _ := env.activePlacement(t)
	weekStart := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	env.logWeek(t, placement.ID, weekStart, 3)

	week, err := env.timesheets.SubmitWeek(ctx, dto.SubmitWeekRequest{
		PlacementID: placement.ID,
		WeekStart:   weekStart.AddDate(0, 0, 3), // any day in the week resolves to its Sunday
		Journal:     journalRequest(),
	})
	require.NoError(t, err)
	require.Equal(t, weekStart, week.WeekStart.UTC())
	require.Len(t, week.Entries, 3)
	require.InDelta(t, 12.0, week.TotalHours, 0.001)
	require.NotNil(t, week.Journal)
	for _, entry := range week.Entries {
		require.Equal(t, models.TimesheetStatusPendingSupervisor, entry.Status)
	}

	// Submitting again fails: the group already left DRAFT.
	_, err = env.timesheets.SubmitWeek(ctx, dto.SubmitWeekRequest{
		PlacementID: placement.ID,
		WeekStart:   weekStart,
		Journal:     journalRequest(),
	})
	require.ErrorIs(t, err, service.ErrWeekNotSubmittable)

	inbox := env.notificationsFor(t, supervisor.ID)
	require.NotEmpty(t, inbox)
	require.Equal(t, models.NotificationKindTimesheetSubmitted, inbox[0].Kind)
}

func TestSupervisorRejectRequiresNotes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	placement, _, supervisor, _ := env.activePlacement(t)
	weekStart := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	ids := env.logWeek(t, placement.ID, weekStart, 2)

	_, err := env.timesheets.SubmitWeek(ctx, dto.SubmitWeekRequest{PlacementID: placement.ID, WeekStart: weekStart, Journal: journalRequest()})
	require.NoError(t, err)

	actor := service.PlacementActor{ID: supervisor.ID, Role: models.RoleSupervisor}
	_, err = env.timesheets.SupervisorDecide(ctx, dto.DecisionRequest{EntryIDs: ids, Action: "reject"}, actor)
	require.ErrorIs(t, err, service.ErrRejectionNotesRequired)
}

func TestDualApprovalPipeline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	placement, student, supervisor, faculty := env.activePlacement(t)
	weekStart := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	ids := env.logWeek(t, placement.ID, weekStart, 3)

	_, err := env.timesheets.SubmitWeek(ctx, dto.SubmitWeekRequest{PlacementID: placement.ID, WeekStart: weekStart, Journal: journalRequest()})
	require.NoError(t, err)

	supervisorActor := service.PlacementActor{ID: supervisor.ID, Role: models.RoleSupervisor}
	entries, err := env.timesheets.SupervisorDecide(ctx, dto.DecisionRequest{EntryIDs: ids, Action: "approve"}, supervisorActor)
	require.NoError(t, err)
	for _, entry := range entries {
		require.Equal(t, models.TimesheetStatusPendingFaculty, entry.Status)
		require.NotNil(t, entry.SupervisorApprovedAt)
		require.Equal(t, supervisor.ID, *entry.SupervisorApprovedBy)
		require.False(t, entry.Locked)
	}

	// Replaying the supervisor decision conflicts.
	_, err = env.timesheets.SupervisorDecide(ctx, dto.DecisionRequest{EntryIDs: ids, Action: "approve"}, supervisorActor)
	require.ErrorIs(t, err, service.ErrWeekAlreadyDecided)

	facultyActor := service.PlacementActor{ID: faculty.ID, Role: models.RoleFaculty}
	entries, err = env.timesheets.FacultyDecide(ctx, dto.DecisionRequest{EntryIDs: ids, Action: "approve"}, facultyActor)
	require.NoError(t, err)
	for _, entry := range entries {
		require.Equal(t, models.TimesheetStatusApproved, entry.Status)
		require.True(t, entry.Locked, "final approval must lock in the same update")
		require.NotNil(t, entry.FacultyApprovedAt)
	}

	// Locked entries are immutable.
	hours := 8.0
	_, err = env.timesheets.UpdateEntry(ctx, ids[0], dto.TimesheetEntryUpdateRequest{Hours: &hours})
	require.ErrorIs(t, err, service.ErrEntryNotEditable)

	inbox := env.notificationsFor(t, student.ID)
	var approved bool
	for _, item := range inbox {
		if item.Kind == models.NotificationKindTimesheetApproved {
			approved = true
		}
	}
	require.True(t, approved)
}

func TestSupervisorRejectionAllowsResubmission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	placement, student, supervisor, _ := env.activePlacement(t)
	weekStart := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	ids := env.logWeek(t, placement.ID, weekStart, 2)

	_, err := env.timesheets.SubmitWeek(ctx, dto.SubmitWeekRequest{PlacementID: placement.ID, WeekStart: weekStart, Journal: journalRequest()})
	require.NoError(t, err)

	actor := service.PlacementActor{ID: supervisor.ID, Role: models.RoleSupervisor}
	entries, err := env.timesheets.SupervisorDecide(ctx, dto.DecisionRequest{EntryIDs: ids, Action: "reject", Notes: "hours do not match the site log"}, actor)
	require.NoError(t, err)
	for _, entry := range entries {
		require.Equal(t, models.TimesheetStatusRejected, entry.Status)
		require.NotNil(t, entry.RejectionReason)
	}

	// Rejected entries become editable again and the week can go back up.
	hours := 5.0
	_, err = env.timesheets.UpdateEntry(ctx, ids[0], dto.TimesheetEntryUpdateRequest{Hours: &hours})
	require.NoError(t, err)

	journal := journalRequest()
	journal.TasksSummary = "Corrected hours after site log review."
	week, err := env.timesheets.SubmitWeek(ctx, dto.SubmitWeekRequest{PlacementID: placement.ID, WeekStart: weekStart, Journal: journal})
	require.NoError(t, err)
	require.Equal(t, "Corrected hours after site log review.", week.Journal.TasksSummary)
	for _, entry := range week.Entries {
		require.Equal(t, models.TimesheetStatusPendingSupervisor, entry.Status)
		require.Nil(t, entry.RejectionReason, "resubmission clears the rejection stamps")
	}

	inbox := env.notificationsFor(t, student.ID)
	var rejected bool
	for _, item := range inbox {
		if item.Kind == models.NotificationKindTimesheetRejected {
			rejected = true
		}
	}
	require.True(t, rejected)
}

func TestDecisionRejectsMixedWeekGroup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	placement, _, supervisor, _ := env.activePlacement(t)
	weekA := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	weekB := time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC)

	idsA := env.logWeek(t, placement.ID, weekA, 1)
	idsB := env.logWeek(t, placement.ID, weekB, 1)

	_, err := env.timesheets.SubmitWeek(ctx, dto.SubmitWeekRequest{PlacementID: placement.ID, WeekStart: weekA, Journal: journalRequest()})
	require.NoError(t, err)
	_, err = env.timesheets.SubmitWeek(ctx, dto.SubmitWeekRequest{PlacementID: placement.ID, WeekStart: weekB, Journal: journalRequest()})
	require.NoError(t, err)

	actor := service.PlacementActor{ID: supervisor.ID, Role: models.RoleSupervisor}
	_, err = env.timesheets.SupervisorDecide(ctx, dto.DecisionRequest{EntryIDs: append(idsA, idsB...), Action: "approve"}, actor)
	require.ErrorIs(t, err, service.ErrMixedWeekGroup)
}

func TestWeekSummaryIncludesJournal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	placement, _, _, _ := env.activePlacement(t)
	weekStart := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	env.logWeek(t, placement.ID, weekStart, 2)

	// Before submission there is no journal yet.
	week, err := env.timesheets.WeekSummary(ctx, placement.ID, weekStart)
	require.NoError(t, err)
	require.Nil(t, week.Journal)
	require.Len(t, week.Entries, 2)

	_, err = env.timesheets.SubmitWeek(ctx, dto.SubmitWeekRequest{PlacementID: placement.ID, WeekStart: weekStart, Journal: journalRequest()})
	require.NoError(t, err)

	week, err = env.timesheets.WeekSummary(ctx, placement.ID, weekStart)
	require.NoError(t, err)
	require.NotNil(t, week.Journal)
	require.Equal(t, "1,4", week.Journal.Competencies)
}

func TestDecisionRejectsPartialWeekGroup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	placement, _, supervisor, _ := env.activePlacement(t)
	weekStart := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	ids := env.logWeek(t, placement.ID, weekStart, 5)

	_, err := env.timesheets.SubmitWeek(ctx, dto.SubmitWeekRequest{PlacementID: placement.ID, WeekStart: weekStart, Journal: journalRequest()})
	require.NoError(t, err)

	actor := service.PlacementActor{ID: supervisor.ID, Role: models.RoleSupervisor}
	_, err = env.timesheets.SupervisorDecide(ctx, dto.DecisionRequest{EntryIDs: ids[:2], Action: "approve"}, actor)
	require.ErrorIs(t, err, service.ErrPartialWeekGroup)

	// No entry may have moved; the week stays whole at the first stage.
	week, err := env.timesheets.WeekSummary(ctx, placement.ID, weekStart)
	require.NoError(t, err)
	for _, entry := range week.Entries {
		require.Equal(t, models.TimesheetStatusPendingSupervisor, entry.Status)
	}

	// A draft logged after submission does not block deciding the
	// submitted entries.
	_, err = env.timesheets.LogEntry(ctx, dto.TimesheetEntryCreateRequest{
		PlacementID: placement.ID,
		Date:        weekStart.AddDate(0, 0, 6),
		Hours:       2,
	})
	require.NoError(t, err)

	entries, err := env.timesheets.SupervisorDecide(ctx, dto.DecisionRequest{EntryIDs: ids, Action: "approve"}, actor)
	require.NoError(t, err)
	for _, entry := range entries {
		require.Equal(t, models.TimesheetStatusPendingFaculty, entry.Status)
	}
}
