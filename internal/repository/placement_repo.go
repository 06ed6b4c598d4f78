package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/fieldwork-go-api/internal/models"
)

// ErrStaleStatus signals that a conditional status update matched no rows:
// the entity moved to another status under the caller.
var ErrStaleStatus = errors.New("status changed concurrently")

// PlacementFilter narrows placement queries.
type PlacementFilter struct {
	StudentID *uint
	FacultyID *uint
	Status    *string
}

// PlacementRepository handles persistence for placements.
type PlacementRepository interface {
	GetByID(ctx context.Context, id uint) (models.Placement, error)
	List(ctx context.Context, filter PlacementFilter) ([]models.Placement, error)
	CountOpenForClass(ctx context.Context, studentID, classID uint) (int64, error)
	CreateWithPendingSupervisor(ctx context.Context, placement *models.Placement, pending *models.PendingSupervisor) error
	TransitionStatus(ctx context.Context, id uint, from, to string, updates map[string]interface{}) error
	UpdateChecklist(ctx context.Context, id uint, updates map[string]interface{}) error
	AttachDocument(ctx context.Context, id uint, column, url string) error
}

type placementRepository struct {
	db *gorm.DB
}

// NewPlacementRepository constructs a repository backed by GORM.
func NewPlacementRepository(db *gorm.DB) PlacementRepository {
	return &placementRepository{db: db}
}

func (r *placementRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Placement{}).
		Preload("Student").
		Preload("Supervisor")
}

func (r *placementRepository) GetByID(ctx context.Context, id uint) (models.Placement, error) {
	var placement models.Placement
	if err := r.baseQuery(ctx).First(&placement, id).Error; err != nil {
		return models.Placement{}, err
	}

	return placement, nil
}

func (r *placementRepository) List(ctx context.Context, filter PlacementFilter) ([]models.Placement, error) {
	query := r.baseQuery(ctx)

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.FacultyID != nil {
		query = query.Where("faculty_id = ?", *filter.FacultyID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var placements []models.Placement
	if err := query.Order("created_at DESC").Find(&placements).Error; err != nil {
		return nil, err
	}

	return placements, nil
}

func (r *placementRepository) CountOpenForClass(ctx context.Context, studentID, classID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Placement{}).
		Where("student_id = ?", studentID).
		Where("class_id = ?", classID).
		Where("status <> ?", models.PlacementStatusDeclined).
		Count(&count).Error

	return count, err
}

// CreateWithPendingSupervisor persists a new placement, optionally with the
// pending supervisor request submitted alongside it, and clears stale
// rejection notes on any previously declined placement for the same class.
// All of it commits or none of it does.
func (r *placementRepository) CreateWithPendingSupervisor(ctx context.Context, placement *models.Placement, pending *models.PendingSupervisor) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Placement{}).
			Where("student_id = ?", placement.StudentID).
			Where("class_id = ?", placement.ClassID).
			Where("status = ?", models.PlacementStatusDeclined).
			Update("faculty_notes", nil).Error; err != nil {
			return err
		}

		if err := tx.Create(placement).Error; err != nil {
			return err
		}

		if pending != nil {
			pending.PlacementID = placement.ID
			if err := tx.Create(pending).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// TransitionStatus performs the conditional update that makes every
// lifecycle transition safe under concurrent attempts. Zero rows affected
// means the placement left the expected status and the caller lost the race.
func (r *placementRepository) TransitionStatus(ctx context.Context, id uint, from, to string, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to

	result := r.db.WithContext(ctx).Model(&models.Placement{}).
		Where("id = ?", id).
		Where("status = ?", from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleStatus
	}

	return nil
}

func (r *placementRepository) UpdateChecklist(ctx context.Context, id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&models.Placement{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *placementRepository) AttachDocument(ctx context.Context, id uint, column, url string) error {
	result := r.db.WithContext(ctx).Model(&models.Placement{}).
		Where("id = ?", id).
		Update(column, url)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
