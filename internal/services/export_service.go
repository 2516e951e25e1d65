package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/toeic-import-service/internal/models"
	"github.com/SAP-F-2025/toeic-import-service/internal/repositories"
)

const exportPageSize = 500

// ExportService writes stored questions back out in the import layout, so an
// export can be edited and uploaded again
type ExportService interface {
	ExportQuestions(ctx context.Context, filters repositories.QuestionFilters, fileType FileType) ([]byte, error)
}

type exportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		logger: logger,
	}
}

func (s *exportService) ExportQuestions(ctx context.Context, filters repositories.QuestionFilters, fileType FileType) ([]byte, error) {
	questions, err := s.collect(ctx, filters)
	if err != nil {
		return nil, err
	}

	rows := make([]sheetRow, len(questions))
	for i, q := range questions {
		rows[i] = questionToRow(q)
	}

	s.logger.Info("Exporting questions", "count", len(rows), "format", fileType)

	switch fileType {
	case FileTypeCSV:
		return writeQuestionCSV(rows)
	case FileTypeXLSX, "":
		return writeQuestionWorkbook(rows)
	default:
		return nil, ErrUnsupportedFileType
	}
}

// collect pages through the repository until every match is loaded
func (s *exportService) collect(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, error) {
	filters.Limit = exportPageSize
	filters.Offset = 0

	var all []*models.Question
	for {
		page, total, err := s.repo.Question().List(ctx, filters)
		if err != nil {
			return nil, fmt.Errorf("failed to load questions: %w", err)
		}
		all = append(all, page...)

		if len(page) < exportPageSize || int64(len(all)) >= total {
			return all, nil
		}
		filters.Offset += len(page)
	}
}

func writeQuestionCSV(rows []sheetRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(QuestionColumns); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := w.Write(row.strings()); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write CSV: %w", err)
	}
	return buf.Bytes(), nil
}
