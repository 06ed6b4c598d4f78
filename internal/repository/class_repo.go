package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/fieldwork-go-api/internal/models"
)

// ClassRepository handles persistence for classes.
type ClassRepository interface {
	GetByID(ctx context.Context, id uint) (models.Class, error)
}

type classRepository struct {
	db *gorm.DB
}

// NewClassRepository constructs a repository backed by GORM.
func NewClassRepository(db *gorm.DB) ClassRepository {
	return &classRepository{db: db}
}

func (r *classRepository) GetByID(ctx context.Context, id uint) (models.Class, error) {
	var class models.Class
	if err := r.db.WithContext(ctx).First(&class, id).Error; err != nil {
		return models.Class{}, err
	}

	return class, nil
}
