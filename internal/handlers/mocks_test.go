package handlers

import (
	"context"

	"github.com/SAP-F-2025/toeic-import-service/internal/cache"
	"github.com/SAP-F-2025/toeic-import-service/internal/models"
	"github.com/SAP-F-2025/toeic-import-service/internal/repositories"
	"github.com/SAP-F-2025/toeic-import-service/internal/services"
	"github.com/stretchr/testify/mock"
)

type MockImportService struct {
	mock.Mock
}

func (m *MockImportService) Upload(ctx context.Context, userID string, file services.FileUpload) (*services.SessionState, error) {
	args := m.Called(ctx, userID, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SessionState), args.Error(1)
}

func (m *MockImportService) Replace(ctx context.Context, sessionID, userID string, file services.FileUpload) (*services.SessionState, error) {
	args := m.Called(ctx, sessionID, userID, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SessionState), args.Error(1)
}

func (m *MockImportService) GetSession(ctx context.Context, sessionID, userID string) (*services.SessionState, error) {
	args := m.Called(ctx, sessionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SessionState), args.Error(1)
}

func (m *MockImportService) Subscribe(ctx context.Context, sessionID, userID string, listener services.Listener) (func(), error) {
	args := m.Called(ctx, sessionID, userID, listener)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}

func (m *MockImportService) Progress(ctx context.Context, sessionID, userID string) (*cache.ImportProgress, error) {
	args := m.Called(ctx, sessionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cache.ImportProgress), args.Error(1)
}

func (m *MockImportService) Commit(ctx context.Context, sessionID, userID string) (models.ImportResult, error) {
	args := m.Called(ctx, sessionID, userID)
	return args.Get(0).(models.ImportResult), args.Error(1)
}

func (m *MockImportService) Dispose(ctx context.Context, sessionID, userID string) error {
	args := m.Called(ctx, sessionID, userID)
	return args.Error(0)
}

func (m *MockImportService) History(ctx context.Context, userID string, limit, offset int) ([]*models.ImportJob, int64, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.ImportJob), args.Get(1).(int64), args.Error(2)
}

type MockPassageService struct {
	mock.Mock
}

func (m *MockPassageService) Create(ctx context.Context, req *services.CreatePassageRequest, userID string) (*models.Passage, error) {
	args := m.Called(ctx, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Passage), args.Error(1)
}

func (m *MockPassageService) GetByID(ctx context.Context, id string) (*models.Passage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Passage), args.Error(1)
}

func (m *MockPassageService) List(ctx context.Context, filters repositories.PassageFilters) ([]*models.Passage, int64, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.Passage), args.Get(1).(int64), args.Error(2)
}

type MockExportService struct {
	mock.Mock
}

func (m *MockExportService) ExportQuestions(ctx context.Context, filters repositories.QuestionFilters, fileType services.FileType) ([]byte, error) {
	args := m.Called(ctx, filters, fileType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type fakeVerifier struct {
	users map[string]*AuthUser
}

func (v *fakeVerifier) VerifyToken(token string) (*AuthUser, error) {
	if user, ok := v.users[token]; ok {
		return user, nil
	}
	return nil, errMissingToken
}
