package repositories

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/toeic-import-service/internal/models"
)

var ErrNotFound = errors.New("record not found")

// IsNotFoundError reports whether err means the record does not exist
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Repository groups every repository used by the services
type Repository interface {
	Question() QuestionRepository
	Passage() PassageRepository
	ImportJob() ImportJobRepository
}

// QuestionRepository interface for question persistence
type QuestionRepository interface {
	GetByID(ctx context.Context, id string) (*models.Question, error)
	List(ctx context.Context, filters QuestionFilters) ([]*models.Question, int64, error)

	// CreateBatch writes all questions in one transaction
	CreateBatch(ctx context.Context, questions []*models.Question) error
}

// PassageRepository interface for passage lookups. The import pipeline only reads passages.
type PassageRepository interface {
	Create(ctx context.Context, passage *models.Passage) error
	GetByID(ctx context.Context, id string) (*models.Passage, error)
	List(ctx context.Context, filters PassageFilters) ([]*models.Passage, int64, error)

	// ExistingIDs returns the subset of ids that exist
	ExistingIDs(ctx context.Context, ids []string) ([]string, error)
}

// ImportJobRepository interface for import history
type ImportJobRepository interface {
	Create(ctx context.Context, job *models.ImportJob) error
	Update(ctx context.Context, job *models.ImportJob) error
	GetByID(ctx context.Context, id string) (*models.ImportJob, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.ImportJob, int64, error)
}

// ===== SHARED FILTER STRUCTS =====

type QuestionFilters struct {
	Part       *models.Part            `json:"part"`
	Difficulty *models.DifficultyLevel `json:"difficulty"`
	Status     *models.QuestionStatus  `json:"status"`
	PassageID  *string                 `json:"passage_id"`
	CreatedBy  *string                 `json:"created_by"`
	Limit      int                     `json:"limit"`
	Offset     int                     `json:"offset"`
	SortBy     string                  `json:"sort_by"`    // "created_at", "part", "difficulty"
	SortOrder  string                  `json:"sort_order"` // "asc", "desc"
}

type PassageFilters struct {
	Part   *models.Part `json:"part"`
	Search string       `json:"search"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}
