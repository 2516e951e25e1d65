package services

import (
	"context"

	"github.com/SAP-F-2025/toeic-import-service/internal/models"
	"github.com/SAP-F-2025/toeic-import-service/internal/repositories"
	"github.com/stretchr/testify/mock"
)

// MockQuestionRepository is a mock implementation of QuestionRepository
type MockQuestionRepository struct {
	mock.Mock
}

func (m *MockQuestionRepository) GetByID(ctx context.Context, id string) (*models.Question, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *MockQuestionRepository) List(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.Question), args.Get(1).(int64), args.Error(2)
}

func (m *MockQuestionRepository) CreateBatch(ctx context.Context, questions []*models.Question) error {
	args := m.Called(ctx, questions)
	return args.Error(0)
}

// MockPassageRepository is a mock implementation of PassageRepository
type MockPassageRepository struct {
	mock.Mock
}

func (m *MockPassageRepository) Create(ctx context.Context, passage *models.Passage) error {
	args := m.Called(ctx, passage)
	return args.Error(0)
}

func (m *MockPassageRepository) GetByID(ctx context.Context, id string) (*models.Passage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Passage), args.Error(1)
}

func (m *MockPassageRepository) List(ctx context.Context, filters repositories.PassageFilters) ([]*models.Passage, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.Passage), args.Get(1).(int64), args.Error(2)
}

func (m *MockPassageRepository) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]string), args.Error(1)
}

// MockImportJobRepository is a mock implementation of ImportJobRepository
type MockImportJobRepository struct {
	mock.Mock
}

func (m *MockImportJobRepository) Create(ctx context.Context, job *models.ImportJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockImportJobRepository) Update(ctx context.Context, job *models.ImportJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockImportJobRepository) GetByID(ctx context.Context, id string) (*models.ImportJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImportJob), args.Error(1)
}

func (m *MockImportJobRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.ImportJob, int64, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]*models.ImportJob), args.Get(1).(int64), args.Error(2)
}

// MockRepository wires the mocks together
type MockRepository struct {
	questions *MockQuestionRepository
	passages  *MockPassageRepository
	jobs      *MockImportJobRepository
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		questions: &MockQuestionRepository{},
		passages:  &MockPassageRepository{},
		jobs:      &MockImportJobRepository{},
	}
}

func (m *MockRepository) Question() repositories.QuestionRepository   { return m.questions }
func (m *MockRepository) Passage() repositories.PassageRepository     { return m.passages }
func (m *MockRepository) ImportJob() repositories.ImportJobRepository { return m.jobs }
