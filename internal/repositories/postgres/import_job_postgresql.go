package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/toeic-import-service/internal/models"
	"github.com/SAP-F-2025/toeic-import-service/internal/repositories"
	"gorm.io/gorm"
)

type ImportJobPostgreSQL struct {
	db *gorm.DB
}

func NewImportJobPostgreSQL(db *gorm.DB) repositories.ImportJobRepository {
	return &ImportJobPostgreSQL{db: db}
}

func (j *ImportJobPostgreSQL) Create(ctx context.Context, job *models.ImportJob) error {
	if err := j.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create import job: %w", err)
	}
	return nil
}

func (j *ImportJobPostgreSQL) Update(ctx context.Context, job *models.ImportJob) error {
	if err := j.db.WithContext(ctx).Save(job).Error; err != nil {
		return fmt.Errorf("failed to update import job: %w", err)
	}
	return nil
}

func (j *ImportJobPostgreSQL) GetByID(ctx context.Context, id string) (*models.ImportJob, error) {
	var job models.ImportJob
	if err := j.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "import job", id)
	}
	return &job, nil
}

func (j *ImportJobPostgreSQL) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.ImportJob, int64, error) {
	query := j.db.WithContext(ctx).Model(&models.ImportJob{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count import jobs: %w", err)
	}

	var jobs []*models.ImportJob
	if err := paginate(query.Order("created_at DESC"), limit, offset).Find(&jobs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list import jobs: %w", err)
	}

	return jobs, total, nil
}
