package services

import (
	"context"
	"log/slog"

	"github.com/SAP-F-2025/toeic-import-service/internal/models"
	"github.com/SAP-F-2025/toeic-import-service/internal/repositories"
	"github.com/SAP-F-2025/toeic-import-service/internal/validator"
)

// CreatePassageRequest is the payload for a new passage
type CreatePassageRequest struct {
	Part       models.Part `json:"part" validate:"required,toeic_part"`
	Title      string      `json:"title" validate:"required,max=255"`
	Content    string      `json:"content"`
	AudioURL   *string     `json:"audio_url" validate:"omitempty,url,max=500"`
	ImageURL   *string     `json:"image_url" validate:"omitempty,url,max=500"`
	Transcript *string     `json:"transcript"`
}

type PassageService interface {
	Create(ctx context.Context, req *CreatePassageRequest, userID string) (*models.Passage, error)
	GetByID(ctx context.Context, id string) (*models.Passage, error)
	List(ctx context.Context, filters repositories.PassageFilters) ([]*models.Passage, int64, error)
}

type passageService struct {
	repo      repositories.Repository
	validator *validator.Validator
	logger    *ServiceLogger
}

func NewPassageService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) PassageService {
	return &passageService{
		repo:      repo,
		validator: validator,
		logger: NewServiceLogger(logger, LogConfig{
			Service:   "passage",
			Component: "passage_service",
		}),
	}
}

func (s *passageService) Create(ctx context.Context, req *CreatePassageRequest, userID string) (*models.Passage, error) {
	op := s.logger.WithOperation(ctx, "create_passage", userID)

	if err := s.validator.ValidateStruct(req); err != nil {
		verr := validator.ToValidationErrors(err)
		op.LogResult("", "passage", verr)
		return nil, verr
	}

	passage := &models.Passage{
		Part:       req.Part,
		Title:      req.Title,
		Content:    req.Content,
		AudioURL:   req.AudioURL,
		ImageURL:   req.ImageURL,
		Transcript: req.Transcript,
		CreatedBy:  userID,
	}
	if err := s.repo.Passage().Create(ctx, passage); err != nil {
		op.LogResult("", "passage", err)
		return nil, err
	}

	op.LogResult(passage.ID, "passage", nil)
	return passage, nil
}

func (s *passageService) GetByID(ctx context.Context, id string) (*models.Passage, error) {
	passage, err := s.repo.Passage().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrPassageNotFound
		}
		return nil, err
	}
	return passage, nil
}

func (s *passageService) List(ctx context.Context, filters repositories.PassageFilters) ([]*models.Passage, int64, error) {
	return s.repo.Passage().List(ctx, filters)
}
