package postgres

import (
	"github.com/SAP-F-2025/toeic-import-service/internal/models"
	"github.com/SAP-F-2025/toeic-import-service/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	question  repositories.QuestionRepository
	passage   repositories.PassageRepository
	importJob repositories.ImportJobRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		question:  NewQuestionPostgreSQL(db),
		passage:   NewPassagePostgreSQL(db),
		importJob: NewImportJobPostgreSQL(db),
	}
}

func (r *repository) Question() repositories.QuestionRepository   { return r.question }
func (r *repository) Passage() repositories.PassageRepository     { return r.passage }
func (r *repository) ImportJob() repositories.ImportJobRepository { return r.importJob }

// AutoMigrate creates or updates the tables owned by this service
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Passage{}, &models.Question{}, &models.ImportJob{})
}
