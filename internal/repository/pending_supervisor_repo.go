package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/fieldwork-go-api/internal/models"
)

// ErrEmailTaken signals that the pending supervisor's email already belongs
// to a real account, so the row cannot be resolved automatically.
var ErrEmailTaken = errors.New("email already belongs to a user")

// PendingSupervisorRepository handles persistence for pending supervisor
// requests, including the transactional resolution steps.
type PendingSupervisorRepository interface {
	GetByID(ctx context.Context, id uint) (models.PendingSupervisor, error)
	ListPending(ctx context.Context) ([]models.PendingSupervisor, error)
	EmailInUse(ctx context.Context, email string) (bool, error)
	Approve(ctx context.Context, id, resolvedBy uint, now time.Time) (models.PendingSupervisor, models.User, error)
	Reject(ctx context.Context, id, resolvedBy uint, reason string, now time.Time) (models.PendingSupervisor, error)
}

type pendingSupervisorRepository struct {
	db *gorm.DB
}

// NewPendingSupervisorRepository constructs a repository backed by GORM.
func NewPendingSupervisorRepository(db *gorm.DB) PendingSupervisorRepository {
	return &pendingSupervisorRepository{db: db}
}

func (r *pendingSupervisorRepository) GetByID(ctx context.Context, id uint) (models.PendingSupervisor, error) {
	var pending models.PendingSupervisor
	if err := r.db.WithContext(ctx).Preload("Placement").First(&pending, id).Error; err != nil {
		return models.PendingSupervisor{}, err
	}

	return pending, nil
}

func (r *pendingSupervisorRepository) ListPending(ctx context.Context) ([]models.PendingSupervisor, error) {
	var items []models.PendingSupervisor
	if err := r.db.WithContext(ctx).
		Where("status = ?", models.PendingSupervisorStatusPending).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}

	return items, nil
}

// EmailInUse checks the address against both real accounts and other
// unresolved requests, so a later materialization cannot collide.
func (r *pendingSupervisorRepository) EmailInUse(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	if err := r.db.WithContext(ctx).Model(&models.PendingSupervisor{}).
		Where("email = ?", email).
		Where("status = ?", models.PendingSupervisorStatusPending).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

// Approve materializes the supervisor account, links it to the parent
// placement, and marks the request APPROVED in a single transaction. A
// request that was already resolved, or whose email was provisioned in the
// meantime, aborts the whole operation.
func (r *pendingSupervisorRepository) Approve(ctx context.Context, id, resolvedBy uint, now time.Time) (models.PendingSupervisor, models.User, error) {
	var pending models.PendingSupervisor
	var supervisor models.User

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&pending, id).Error; err != nil {
			return err
		}

		var taken int64
		if err := tx.Model(&models.User{}).
			Where("email = ?", pending.Email).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return ErrEmailTaken
		}

		supervisor = models.User{
			Name:  pending.Name,
			Email: pending.Email,
			Role:  models.RoleSupervisor,
			Phone: pending.Phone,
			Title: pending.Title,
		}
		if err := tx.Create(&supervisor).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Placement{}).
			Where("id = ?", pending.PlacementID).
			Update("supervisor_id", supervisor.ID).Error; err != nil {
			return err
		}

		result := tx.Model(&models.PendingSupervisor{}).
			Where("id = ?", id).
			Where("status = ?", models.PendingSupervisorStatusPending).
			Updates(map[string]interface{}{
				"status":      models.PendingSupervisorStatusApproved,
				"resolved_at": now,
				"resolved_by": resolvedBy,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStaleStatus
		}

		pending.Status = models.PendingSupervisorStatusApproved
		pending.ResolvedAt = &now
		pending.ResolvedBy = &resolvedBy

		return nil
	})
	if err != nil {
		return models.PendingSupervisor{}, models.User{}, err
	}

	return pending, supervisor, nil
}

// Reject marks the request REJECTED. The parent placement keeps a null
// supervisor; faculty reconcile out-of-band.
func (r *pendingSupervisorRepository) Reject(ctx context.Context, id, resolvedBy uint, reason string, now time.Time) (models.PendingSupervisor, error) {
	var pending models.PendingSupervisor

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Placement").First(&pending, id).Error; err != nil {
			return err
		}

		result := tx.Model(&models.PendingSupervisor{}).
			Where("id = ?", id).
			Where("status = ?", models.PendingSupervisorStatusPending).
			Updates(map[string]interface{}{
				"status":      models.PendingSupervisorStatusRejected,
				"resolved_at": now,
				"resolved_by": resolvedBy,
				"reason":      reason,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStaleStatus
		}

		pending.Status = models.PendingSupervisorStatusRejected
		pending.ResolvedAt = &now
		pending.ResolvedBy = &resolvedBy
		pending.Reason = reason

		return nil
	})
	if err != nil {
		return models.PendingSupervisor{}, err
	}

	return pending, nil
}
