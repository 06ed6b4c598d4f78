package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fieldwork-go-api/internal/models"
)

func journalFor(placementID uint, weekStart time.Time, reaction string) models.TimesheetJournal {
	return models.TimesheetJournal{
		PlacementID:       placementID,
		WeekStart:         weekStart,
		WeekEnd:           weekStart.AddDate(0, 0, 6),
		TasksSummary:      "intake interviews and case notes",
		Competencies:      "1,4",
		PracticeBehaviors: "2a,3b",
		Reaction:          reaction,
		SubmittedAt:       time.Now().UTC(),
	}
}

func TestSubmitWeekFlipsGroupAndUpsertsJournal(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTimesheetRepository(db)
	ctx := context.Background()

	student := seedStudent(t, db, 2)
	placement := seedPlacement(t, db, student.ID, models.PlacementStatusActive)
	weekStart := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	var entries []models.TimesheetEntry
	for i, status := range []string{models.TimesheetStatusDraft, models.TimesheetStatusDraft, models.TimesheetStatusRejected} {
		entry := models.TimesheetEntry{
			PlacementID: placement.ID,
			Date:        weekStart.AddDate(0, 0, i+1),
			WeekStart:   weekStart,
			Hours:       4,
			Status:      status,
		}
		require.NoError(t, db.Create(&entry).Error)
		entries = append(entries, entry)
	}

	ids := []uint{entries[0].ID, entries[1].ID, entries[2].ID}
	now := time.Now().UTC()
	journal := journalFor(placement.ID, weekStart, "first reflection")

	require.NoError(t, repo.SubmitWeek(ctx, &journal, ids, now))

	stored, err := repo.ListWeek(ctx, placement.ID, weekStart)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for _, entry := range stored {
		require.Equal(t, models.TimesheetStatusPendingSupervisor, entry.Status)
		require.NotNil(t, entry.SubmittedAt)
		require.Nil(t, entry.RejectedAt)
		require.Nil(t, entry.RejectionReason)
	}

	// Resubmission overwrites the journal in place.
	require.NoError(t, db.Model(&models.TimesheetEntry{}).
		Where("id IN ?", ids).
		Update("status", models.TimesheetStatusRejected).Error)

	second := journalFor(placement.ID, weekStart, "revised reflection")
	require.NoError(t, repo.SubmitWeek(ctx, &second, ids, now.Add(time.Hour)))

	var count int64
	require.NoError(t, db.Model(&models.TimesheetJournal{}).
		Where("placement_id = ?", placement.ID).
		Where("week_start = ?", weekStart).
		Count(&count).Error)
	require.Equal(t, int64(1), count)

	current, err := repo.GetJournal(ctx, placement.ID, weekStart)
	require.NoError(t, err)
	require.Equal(t, "revised reflection", current.Reaction)
}

func TestSubmitWeekRollsBackWhenEntryAlreadyMoved(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTimesheetRepository(db)
	ctx := context.Background()

	student := seedStudent(t, db, 2)
	placement := seedPlacement(t, db, student.ID, models.PlacementStatusActive)
	weekStart := time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC)

	draft := models.TimesheetEntry{PlacementID: placement.ID, Date: weekStart.AddDate(0, 0, 1), WeekStart: weekStart, Hours: 6, Status: models.TimesheetStatusDraft}
	moved := models.TimesheetEntry{PlacementID: placement.ID, Date: weekStart.AddDate(0, 0, 2), WeekStart: weekStart, Hours: 5, Status: models.TimesheetStatusPendingSupervisor}
	require.NoError(t, db.Create(&draft).Error)
	require.NoError(t, db.Create(&moved).Error)

	journal := journalFor(placement.ID, weekStart, "should not persist")
	err := repo.SubmitWeek(ctx, &journal, []uint{draft.ID, moved.ID}, time.Now().UTC())
	require.ErrorIs(t, err, ErrStaleStatus)

	var stored models.TimesheetEntry
	require.NoError(t, db.First(&stored, draft.ID).Error)
	require.Equal(t, models.TimesheetStatusDraft, stored.Status, "rollback must leave the draft untouched")

	var count int64
	require.NoError(t, db.Model(&models.TimesheetJournal{}).
		Where("placement_id = ?", placement.ID).
		Where("week_start = ?", weekStart).
		Count(&count).Error)
	require.Zero(t, count, "journal upsert must roll back with the group update")
}

func TestTransitionGroupRequiresUniformStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTimesheetRepository(db)
	ctx := context.Background()

	student := seedStudent(t, db, 2)
	placement := seedPlacement(t, db, student.ID, models.PlacementStatusActive)
	weekStart := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)

	pendingA := models.TimesheetEntry{PlacementID: placement.ID, Date: weekStart.AddDate(0, 0, 1), WeekStart: weekStart, Hours: 3, Status: models.TimesheetStatusPendingSupervisor}
	pendingB := models.TimesheetEntry{PlacementID: placement.ID, Date: weekStart.AddDate(0, 0, 2), WeekStart: weekStart, Hours: 3, Status: models.TimesheetStatusPendingSupervisor}
	require.NoError(t, db.Create(&pendingA).Error)
	require.NoError(t, db.Create(&pendingB).Error)

	ids := []uint{pendingA.ID, pendingB.ID}
	updates := map[string]interface{}{"status": models.TimesheetStatusPendingFaculty}
	require.NoError(t, repo.TransitionGroup(ctx, ids, models.TimesheetStatusPendingSupervisor, updates))

	// Replaying the same decision fails because the group already moved.
	err := repo.TransitionGroup(ctx, ids, models.TimesheetStatusPendingSupervisor, updates)
	require.ErrorIs(t, err, ErrStaleStatus)
}

func TestUpdateEntryRefusesMovedEntry(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTimesheetRepository(db)
	ctx := context.Background()

	student := seedStudent(t, db, 2)
	placement := seedPlacement(t, db, student.ID, models.PlacementStatusActive)
	weekStart := time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC)

	entry := models.TimesheetEntry{PlacementID: placement.ID, Date: weekStart.AddDate(0, 0, 1), WeekStart: weekStart, Hours: 4, Status: models.TimesheetStatusDraft}
	require.NoError(t, db.Create(&entry).Error)

	// The stale copy was loaded while the entry was still a draft.
	stale := entry
	stale.Hours = 9

	journal := journalFor(placement.ID, weekStart, "submitted before the edit landed")
	require.NoError(t, repo.SubmitWeek(ctx, &journal, []uint{entry.ID}, time.Now().UTC()))

	err := repo.UpdateEntry(ctx, &stale)
	require.ErrorIs(t, err, ErrStaleStatus)

	var stored models.TimesheetEntry
	require.NoError(t, db.First(&stored, entry.ID).Error)
	require.Equal(t, models.TimesheetStatusPendingSupervisor, stored.Status, "a committed submission must not be reverted by a stale edit")
	require.NotNil(t, stored.SubmittedAt)
	require.InDelta(t, 4.0, stored.Hours, 0.001)
}

func TestSubmitWeekClearsPriorSupervisorStamps(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTimesheetRepository(db)
	ctx := context.Background()

	student := seedStudent(t, db, 2)
	placement := seedPlacement(t, db, student.ID, models.PlacementStatusActive)
	weekStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// The shape of an entry the supervisor approved and faculty then rejected.
	approvedAt := time.Now().UTC().Add(-time.Hour)
	approvedBy := uint(55)
	reason := "hours exceed the site schedule"
	entry := models.TimesheetEntry{
		PlacementID:          placement.ID,
		Date:                 weekStart.AddDate(0, 0, 1),
		WeekStart:            weekStart,
		Hours:                4,
		Status:               models.TimesheetStatusRejected,
		SupervisorApprovedAt: &approvedAt,
		SupervisorApprovedBy: &approvedBy,
		RejectionReason:      &reason,
	}
	require.NoError(t, db.Create(&entry).Error)

	journal := journalFor(placement.ID, weekStart, "corrected after faculty feedback")
	require.NoError(t, repo.SubmitWeek(ctx, &journal, []uint{entry.ID}, time.Now().UTC()))

	var stored models.TimesheetEntry
	require.NoError(t, db.First(&stored, entry.ID).Error)
	require.Equal(t, models.TimesheetStatusPendingSupervisor, stored.Status)
	require.Nil(t, stored.SupervisorApprovedAt, "resubmission must re-enter the first stage without a stale stamp")
	require.Nil(t, stored.SupervisorApprovedBy)
	require.Nil(t, stored.RejectionReason)
}
