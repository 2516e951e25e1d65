package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/toeic-import-service/internal/models"
	"github.com/SAP-F-2025/toeic-import-service/internal/repositories"
	"gorm.io/gorm"
)

type PassagePostgreSQL struct {
	db *gorm.DB
}

func NewPassagePostgreSQL(db *gorm.DB) repositories.PassageRepository {
	return &PassagePostgreSQL{db: db}
}

func (p *PassagePostgreSQL) Create(ctx context.Context, passage *models.Passage) error {
	if err := p.db.WithContext(ctx).Create(passage).Error; err != nil {
		return fmt.Errorf("failed to create passage: %w", err)
	}
	return nil
}

func (p *PassagePostgreSQL) GetByID(ctx context.Context, id string) (*models.Passage, error) {
	var passage models.Passage
	if err := p.db.WithContext(ctx).First(&passage, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "passage", id)
	}
	return &passage, nil
}

func (p *PassagePostgreSQL) List(ctx context.Context, filters repositories.PassageFilters) ([]*models.Passage, int64, error) {
	query := p.db.WithContext(ctx).Model(&models.Passage{})

	if filters.Part != nil {
		query = query.Where("part = ?", *filters.Part)
	}
	if filters.Search != "" {
		query = query.Where("LOWER(title) LIKE LOWER(?)", "%"+filters.Search+"%")
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count passages: %w", err)
	}

	var passages []*models.Passage
	if err := paginate(query.Order("created_at DESC"), filters.Limit, filters.Offset).Find(&passages).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list passages: %w", err)
	}

	return passages, total, nil
}

// ExistingIDs checks all ids with a single query
func (p *PassagePostgreSQL) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var found []string
	if err := p.db.WithContext(ctx).
		Model(&models.Passage{}).
		Where("id IN ?", ids).
		Pluck("id", &found).Error; err != nil {
		return nil, fmt.Errorf("failed to check passages: %w", err)
	}

	return found, nil
}
