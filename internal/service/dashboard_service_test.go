package service_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fieldwork-go-api/internal/models"
	"github.com/noah-isme/fieldwork-go-api/internal/service"
)

func newDashboardService(t *testing.T, env *testEnv) service.DashboardService {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return service.NewDashboardService(env.placementRepo, env.timesheetRepo, client, 5*time.Minute, zerolog.New(io.Discard))
}

func seedEntry(t *testing.T, env *testEnv, placementID uint, date time.Time, hours float64, status string) {
	t.Helper()
	entry := models.TimesheetEntry{
		PlacementID: placementID,
		Date:        date,
		WeekStart:   models.WeekStartFor(date),
		Hours:       hours,
		Status:      status,
		Locked:      status == models.TimesheetStatusApproved,
	}
	require.NoError(t, env.db.Create(&entry).Error)
}

func TestStudentDashboardAggregatesHours(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	placement, student, _, _ := env.activePlacement(t)

	weekOne := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	weekTwo := time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC)

	seedEntry(t, env, placement.ID, weekOne.AddDate(0, 0, 1), 8, models.TimesheetStatusApproved)
	seedEntry(t, env, placement.ID, weekOne.AddDate(0, 0, 2), 12, models.TimesheetStatusApproved)
	seedEntry(t, env, placement.ID, weekTwo.AddDate(0, 0, 1), 6, models.TimesheetStatusPendingFaculty)
	seedEntry(t, env, placement.ID, weekTwo.AddDate(0, 0, 3), 4, models.TimesheetStatusDraft)

	journal := models.TimesheetJournal{
		PlacementID:       placement.ID,
		WeekStart:         weekOne,
		WeekEnd:           weekOne.AddDate(0, 0, 6),
		TasksSummary:      "Intake interviews.",
		Competencies:      "1",
		PracticeBehaviors: "2a",
		Reaction:          "reflection",
		SubmittedAt:       weekOne.AddDate(0, 0, 6),
	}
	require.NoError(t, env.db.Create(&journal).Error)

	dashboards := newDashboardService(t, env)

	response, err := dashboards.GetStudentDashboard(ctx, student.ID)
	require.NoError(t, err)
	require.Equal(t, placement.ID, response.PlacementID)
	require.Equal(t, models.PlacementStatusActive, response.PlacementStatus)
	require.InDelta(t, 20.0, response.CreditedHours, 0.001)
	require.InDelta(t, 6.0, response.PendingHours, 0.001, "draft hours are neither credited nor pending")
	require.InDelta(t, 5.0, response.CompletionRate, 0.001)
	require.False(t, response.CacheHit)

	require.Len(t, response.Weeks, 2)
	require.True(t, response.Weeks[0].WeekStart.Before(response.Weeks[1].WeekStart))

	first := response.Weeks[0]
	require.Equal(t, weekOne, first.WeekStart.UTC())
	require.InDelta(t, 20.0, first.TotalHours, 0.001)
	require.Equal(t, models.TimesheetStatusApproved, first.Status)
	require.Equal(t, 2, first.EntryCount)
	require.True(t, first.HasJournal)

	second := response.Weeks[1]
	require.Equal(t, models.TimesheetStatusDraft, second.Status, "a mixed week reads as still drafting")
	require.False(t, second.HasJournal)
}

func TestStudentDashboardServesFromCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	placement, student, _, _ := env.activePlacement(t)
	seedEntry(t, env, placement.ID, time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC), 8, models.TimesheetStatusApproved)

	dashboards := newDashboardService(t, env)

	first, err := dashboards.GetStudentDashboard(ctx, student.ID)
	require.NoError(t, err)
	require.False(t, first.CacheHit)

	// New hours do not surface until the cache expires.
	seedEntry(t, env, placement.ID, time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC), 8, models.TimesheetStatusApproved)

	second, err := dashboards.GetStudentDashboard(ctx, student.ID)
	require.NoError(t, err)
	require.True(t, second.CacheHit)
	require.InDelta(t, first.CreditedHours, second.CreditedHours, 0.001)
}

func TestStudentDashboardIgnoresDeclinedPlacements(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	faculty := env.createUser(t, "Dr. Lee", models.RoleFaculty, nil)
	student := env.createUser(t, "Dana Miles", models.RoleStudent, &faculty.ID)

	declined := models.Placement{
		StudentID:     student.ID,
		SiteID:        7,
		FacultyID:     faculty.ID,
		ClassID:       3,
		Status:        models.PlacementStatusDeclined,
		StartDate:     time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 5, 9, 0, 0, 0, 0, time.UTC),
		RequiredHours: 400,
	}
	require.NoError(t, env.db.Create(&declined).Error)

	dashboards := newDashboardService(t, env)

	_, err := dashboards.GetStudentDashboard(ctx, student.ID)
	require.ErrorIs(t, err, service.ErrPlacementNotFound)
}
