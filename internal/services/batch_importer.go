package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/toeic-import-service/internal/config"
	"github.com/SAP-F-2025/toeic-import-service/internal/metrics"
	"github.com/SAP-F-2025/toeic-import-service/internal/models"
	"github.com/SAP-F-2025/toeic-import-service/internal/repositories"
	"github.com/SAP-F-2025/toeic-import-service/internal/validator"
	"golang.org/x/time/rate"
)

const defaultBatchSize = 5

// BatchImporter writes the valid records of a session in fixed-size batches
type BatchImporter struct {
	questions repositories.QuestionRepository
	passages  repositories.PassageRepository
	batchSize int
	limiter   *rate.Limiter
	logger    *ServiceLogger
}

// NewBatchImporter builds an importer. The limiter is shared by every
// session, so BatchInterval bounds the write rate of the whole service.
func NewBatchImporter(repo repositories.Repository, cfg config.ImportConfig, logger *slog.Logger) *BatchImporter {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	limit := rate.Inf
	if cfg.BatchInterval > 0 {
		limit = rate.Every(cfg.BatchInterval)
	}

	return &BatchImporter{
		questions: repo.Question(),
		passages:  repo.Passage(),
		batchSize: batchSize,
		limiter:   rate.NewLimiter(limit, 1),
		logger: NewServiceLogger(logger, LogConfig{
			Service:   "import",
			Component: "batch_importer",
		}),
	}
}

// Import persists the session's valid records on behalf of userID and
// returns how many were written. Records of a failed batch and every later
// batch keep their status; earlier batches stay imported.
func (b *BatchImporter) Import(ctx context.Context, session *ImportSession, userID string) (int, error) {
	if err := session.beginImport(); err != nil {
		return 0, err
	}

	start := time.Now()
	count, err := b.run(ctx, session, userID)
	session.finishImport(err)

	metrics.ObserveImport(time.Since(start), err)
	b.logger.LogOperation(ctx, "import_questions", userID, session.ID(), "import_session", time.Since(start), err)
	return count, err
}

func (b *BatchImporter) run(ctx context.Context, session *ImportSession, userID string) (int, error) {
	valid := session.validRecords()
	if len(valid) == 0 {
		return 0, ErrNothingToImport
	}

	eligible, err := b.checkPassages(ctx, session, valid)
	if err != nil {
		return 0, err
	}
	if len(eligible) == 0 {
		return 0, ErrNoEligibleRecords
	}

	total := len(eligible)
	imported := 0
	for from := 0; from < total; from += b.batchSize {
		if err := b.limiter.Wait(ctx); err != nil {
			return imported, err
		}

		batch := eligible[from:min(from+b.batchSize, total)]
		questions := make([]*models.Question, len(batch))
		indices := make([]int, len(batch))
		for i := range batch {
			questions[i] = recordToQuestion(&batch[i].record, userID)
			indices[i] = batch[i].index
		}

		if err := b.questions.CreateBatch(ctx, questions); err != nil {
			metrics.ObserveBatch(len(batch), err)
			return imported, &BatchWriteError{
				Batch:    from/b.batchSize + 1,
				Imported: imported,
				Err:      err,
			}
		}
		metrics.ObserveBatch(len(batch), nil)

		imported += len(batch)
		session.markImported(indices, float64(imported)/float64(total)*100)

		b.logger.Debug(ctx, "batch written",
			"session_id", session.ID(),
			"batch", from/b.batchSize+1,
			"size", len(batch),
			"imported", imported,
			"total", total)
	}

	return imported, nil
}

// checkPassages verifies every passage reference with one lookup and demotes
// the records whose passage is missing
func (b *BatchImporter) checkPassages(ctx context.Context, session *ImportSession, valid []indexedRecord) ([]indexedRecord, error) {
	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, ir := range valid {
		if ir.record.Part.RequiresPassage() && ir.record.HasPassage() && !seen[ir.record.PassageID] {
			seen[ir.record.PassageID] = true
			ids = append(ids, ir.record.PassageID)
		}
	}

	existing := make(map[string]bool, len(ids))
	if len(ids) > 0 {
		found, err := b.passages.ExistingIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to verify passages: %w", err)
		}
		for _, id := range found {
			existing[id] = true
		}
	}

	demoted := make(map[int]string)
	eligible := make([]indexedRecord, 0, len(valid))
	for _, ir := range valid {
		if ir.record.Part.RequiresPassage() {
			switch {
			case !ir.record.HasPassage():
				demoted[ir.index] = validator.MsgPassageRequired
				continue
			case !existing[ir.record.PassageID]:
				demoted[ir.index] = fmt.Sprintf("Passage %s does not exist", ir.record.PassageID)
				continue
			}
		}
		eligible = append(eligible, ir)
	}

	if len(demoted) > 0 {
		session.demote(demoted)
		b.logger.Warn(ctx, "records dropped by passage check",
			"session_id", session.ID(),
			"dropped", len(demoted),
			"eligible", len(eligible))
	}
	return eligible, nil
}
