package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/toeic-import-service/internal/models"
	"github.com/SAP-F-2025/toeic-import-service/internal/repositories"
	"gorm.io/gorm"
)

var questionSortColumns = map[string]bool{
	"created_at": true,
	"part":       true,
	"difficulty": true,
	"status":     true,
}

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

// GetByID retrieves a question with its passage
func (q *QuestionPostgreSQL) GetByID(ctx context.Context, id string) (*models.Question, error) {
	var question models.Question
	if err := q.db.WithContext(ctx).
		Preload("Passage").
		First(&question, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "question", id)
	}
	return &question, nil
}

// List returns questions matching filters and the total count
func (q *QuestionPostgreSQL) List(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	query := q.db.WithContext(ctx).Model(&models.Question{})

	if filters.Part != nil {
		query = query.Where("part = ?", *filters.Part)
	}
	if filters.Difficulty != nil {
		query = query.Where("difficulty = ?", *filters.Difficulty)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.PassageID != nil {
		query = query.Where("passage_id = ?", *filters.PassageID)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count questions: %w", err)
	}

	var questions []*models.Question
	query = orderBy(query, filters.SortBy, filters.SortOrder, questionSortColumns, "created_at")
	if err := paginate(query, filters.Limit, filters.Offset).Find(&questions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list questions: %w", err)
	}

	return questions, total, nil
}

// CreateBatch inserts the batch atomically: either every row is written or none.
// The driver error is returned as is so callers can show it unchanged.
func (q *QuestionPostgreSQL) CreateBatch(ctx context.Context, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}

	return q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(questions).Error
	})
}
