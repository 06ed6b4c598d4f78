package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/fieldwork-go-api/internal/models"
)

// TimesheetRepository handles persistence for timesheet entries and weekly
// journals. Week-group transitions are all-or-nothing.
type TimesheetRepository interface {
	CreateEntry(ctx context.Context, entry *models.TimesheetEntry) error
	GetEntryByID(ctx context.Context, id uint) (models.TimesheetEntry, error)
	UpdateEntry(ctx context.Context, entry *models.TimesheetEntry) error
	GetEntriesByIDs(ctx context.Context, ids []uint) ([]models.TimesheetEntry, error)
	ListWeek(ctx context.Context, placementID uint, weekStart time.Time) ([]models.TimesheetEntry, error)
	ListByPlacement(ctx context.Context, placementID uint) ([]models.TimesheetEntry, error)
	SubmitWeek(ctx context.Context, journal *models.TimesheetJournal, entryIDs []uint, now time.Time) error
	TransitionGroup(ctx context.Context, ids []uint, fromStatus string, updates map[string]interface{}) error
	GetJournal(ctx context.Context, placementID uint, weekStart time.Time) (models.TimesheetJournal, error)
	ListJournals(ctx context.Context, placementID uint) ([]models.TimesheetJournal, error)
}

type timesheetRepository struct {
	db *gorm.DB
}

// NewTimesheetRepository constructs a repository backed by GORM.
func NewTimesheetRepository(db *gorm.DB) TimesheetRepository {
	return &timesheetRepository{db: db}
}

func (r *timesheetRepository) CreateEntry(ctx context.Context, entry *models.TimesheetEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *timesheetRepository) GetEntryByID(ctx context.Context, id uint) (models.TimesheetEntry, error) {
	var entry models.TimesheetEntry
	if err := r.db.WithContext(ctx).Preload("Placement").First(&entry, id).Error; err != nil {
		return models.TimesheetEntry{}, err
	}

	return entry, nil
}

// UpdateEntry writes the student-editable columns only, and only while the
// entry is still DRAFT or REJECTED. An entry that moved into the pipeline in
// the meantime is left untouched and reported as stale.
func (r *timesheetRepository) UpdateEntry(ctx context.Context, entry *models.TimesheetEntry) error {
	result := r.db.WithContext(ctx).Model(&models.TimesheetEntry{}).
		Where("id = ?", entry.ID).
		Where("status IN ?", []string{models.TimesheetStatusDraft, models.TimesheetStatusRejected}).
		Where("locked = ?", false).
		Updates(map[string]interface{}{
			"date":       entry.Date,
			"week_start": entry.WeekStart,
			"hours":      entry.Hours,
			"category":   entry.Category,
			"notes":      entry.Notes,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleStatus
	}

	return nil
}

func (r *timesheetRepository) GetEntriesByIDs(ctx context.Context, ids []uint) ([]models.TimesheetEntry, error) {
	var entries []models.TimesheetEntry
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("date ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *timesheetRepository) ListWeek(ctx context.Context, placementID uint, weekStart time.Time) ([]models.TimesheetEntry, error) {
	var entries []models.TimesheetEntry
	if err := r.db.WithContext(ctx).
		Where("placement_id = ?", placementID).
		Where("week_start = ?", weekStart).
		Order("date ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *timesheetRepository) ListByPlacement(ctx context.Context, placementID uint) ([]models.TimesheetEntry, error) {
	var entries []models.TimesheetEntry
	if err := r.db.WithContext(ctx).
		Where("placement_id = ?", placementID).
		Order("date ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}

// SubmitWeek upserts the weekly journal and moves every entry of the group
// to PENDING_SUPERVISOR in one transaction. Entries must currently sit in
// DRAFT or REJECTED; if any of them moved, the whole submission rolls back.
// Resubmission clears both rejection and prior first-stage approval stamps.
func (r *timesheetRepository) SubmitWeek(ctx context.Context, journal *models.TimesheetJournal, entryIDs []uint, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "placement_id"}, {Name: "week_start"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"week_end", "tasks_summary", "high_low_points", "competencies",
				"practice_behaviors", "reaction", "other_comments", "submitted_at",
			}),
		}).Create(journal).Error; err != nil {
			return err
		}

		result := tx.Model(&models.TimesheetEntry{}).
			Where("id IN ?", entryIDs).
			Where("placement_id = ?", journal.PlacementID).
			Where("status IN ?", []string{models.TimesheetStatusDraft, models.TimesheetStatusRejected}).
			Updates(map[string]interface{}{
				"status":                 models.TimesheetStatusPendingSupervisor,
				"submitted_at":           now,
				"rejected_at":            nil,
				"rejected_by":            nil,
				"rejection_reason":       nil,
				"supervisor_approved_at": nil,
				"supervisor_approved_by": nil,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != int64(len(entryIDs)) {
			return ErrStaleStatus
		}

		return nil
	})
}

// TransitionGroup applies one decision to a whole week-group. Every entry
// must still be in fromStatus or the update rolls back, which is what keeps
// partial approvals from ever being observable.
func (r *timesheetRepository) TransitionGroup(ctx context.Context, ids []uint, fromStatus string, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.TimesheetEntry{}).
			Where("id IN ?", ids).
			Where("status = ?", fromStatus).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != int64(len(ids)) {
			return ErrStaleStatus
		}

		return nil
	})
}

func (r *timesheetRepository) GetJournal(ctx context.Context, placementID uint, weekStart time.Time) (models.TimesheetJournal, error) {
	var journal models.TimesheetJournal
	if err := r.db.WithContext(ctx).
		Where("placement_id = ?", placementID).
		Where("week_start = ?", weekStart).
		First(&journal).Error; err != nil {
		return models.TimesheetJournal{}, err
	}

	return journal, nil
}

func (r *timesheetRepository) ListJournals(ctx context.Context, placementID uint) ([]models.TimesheetJournal, error) {
	var journals []models.TimesheetJournal
	if err := r.db.WithContext(ctx).
		Where("placement_id = ?", placementID).
		Order("week_start ASC").
		Find(&journals).Error; err != nil {
		return nil, err
	}

	return journals, nil
}
