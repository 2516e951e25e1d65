package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/toeic-import-service/internal/cache"
	"github.com/SAP-F-2025/toeic-import-service/internal/config"
	"github.com/SAP-F-2025/toeic-import-service/internal/events"
	"github.com/SAP-F-2025/toeic-import-service/internal/metrics"
	"github.com/SAP-F-2025/toeic-import-service/internal/models"
	"github.com/SAP-F-2025/toeic-import-service/internal/repositories"
	"github.com/SAP-F-2025/toeic-import-service/internal/validator"
	"gorm.io/datatypes"
)

// FileUpload is one uploaded spreadsheet
type FileUpload struct {
	FileName string
	Size     int64
	Reader   io.Reader
}

// ImportService drives the upload-review-import cycle of a session
type ImportService interface {
	// Upload parses and validates a file into a new session
	Upload(ctx context.Context, userID string, file FileUpload) (*SessionState, error)
	// Replace loads a new file into an existing session
	Replace(ctx context.Context, sessionID, userID string, file FileUpload) (*SessionState, error)

	GetSession(ctx context.Context, sessionID, userID string) (*SessionState, error)
	Subscribe(ctx context.Context, sessionID, userID string, listener Listener) (func(), error)
	Progress(ctx context.Context, sessionID, userID string) (*cache.ImportProgress, error)

	// Commit writes the valid records of the session
	Commit(ctx context.Context, sessionID, userID string) (models.ImportResult, error)
	Dispose(ctx context.Context, sessionID, userID string) error

	History(ctx context.Context, userID string, limit, offset int) ([]*models.ImportJob, int64, error)
}

type importService struct {
	repo      repositories.Repository
	registry  *SessionRegistry
	parser    QuestionParser
	validator *validator.Validator
	importer  *BatchImporter
	progress  *cache.ProgressCache
	publisher events.EventPublisher
	cfg       config.ImportConfig
	logger    *ServiceLogger
}

func NewImportService(
	repo repositories.Repository,
	registry *SessionRegistry,
	importer *BatchImporter,
	progress *cache.ProgressCache,
	publisher events.EventPublisher,
	validator *validator.Validator,
	cfg config.ImportConfig,
	logger *slog.Logger,
) ImportService {
	return &importService{
		repo:      repo,
		registry:  registry,
		parser:    NewQuestionParser(),
		validator: validator,
		importer:  importer,
		progress:  progress,
		publisher: publisher,
		cfg:       cfg,
		logger: NewServiceLogger(logger, LogConfig{
			Service:   "import",
			Component: "import_service",
		}),
	}
}

// ===== UPLOAD =====

func (s *importService) Upload(ctx context.Context, userID string, file FileUpload) (*SessionState, error) {
	op := s.logger.WithOperation(ctx, "upload_file", userID)

	fileType, err := s.checkFile(file)
	if err != nil {
		op.LogResult("", "import_session", err)
		return nil, err
	}

	session := s.registry.Create(userID)
	s.trackProgress(session)

	job := &models.ImportJob{
		ID:       session.ID(),
		UserID:   userID,
		FileName: file.FileName,
		FileType: string(fileType),
		FileSize: file.Size,
		Status:   models.ImportPending,
	}
	if err := s.repo.ImportJob().Create(ctx, job); err != nil {
		s.logger.Warn(ctx, "failed to record import job", "session_id", session.ID(), "error", err)
	}

	state, err := s.load(ctx, session, file, fileType)
	op.LogResult(session.ID(), "import_session", err)
	return state, err
}

func (s *importService) Replace(ctx context.Context, sessionID, userID string, file FileUpload) (*SessionState, error) {
	op := s.logger.WithOperation(ctx, "replace_file", userID)

	session, err := s.ownedSession(sessionID, userID)
	if err != nil {
		op.LogResult(sessionID, "import_session", err)
		return nil, err
	}

	fileType, err := s.checkFile(file)
	if err != nil {
		op.LogResult(sessionID, "import_session", err)
		return nil, err
	}

	s.updateJob(ctx, sessionID, func(job *models.ImportJob) {
		job.FileName = file.FileName
		job.FileType = string(fileType)
		job.FileSize = file.Size
		job.Status = models.ImportPending
		job.Progress = 0
		job.ImportedCount = 0
		job.LastError = nil
		job.StartedAt = nil
		job.CompletedAt = nil
	})

	state, err := s.load(ctx, session, file, fileType)
	op.LogResult(sessionID, "import_session", err)
	return state, err
}

func (s *importService) checkFile(file FileUpload) (FileType, error) {
	fileType, err := DetectFileType(file.FileName)
	if err != nil {
		return "", err
	}
	if s.cfg.MaxUploadBytes > 0 && file.Size > s.cfg.MaxUploadBytes {
		return "", ErrFileTooLarge
	}
	return fileType, nil
}

// load parses the file and classifies every row. A parse failure leaves the
// session without records.
func (s *importService) load(ctx context.Context, session *ImportSession, file FileUpload, fileType FileType) (*SessionState, error) {
	if err := session.BeginLoad(file.FileName); err != nil {
		return nil, err
	}

	records, err := s.parser.Parse(file.Reader, fileType)
	if err != nil {
		session.FailLoad(err)
		s.finishJob(ctx, session, models.ImportFailed, err)
		return nil, err
	}

	ptrs := make([]*models.ImportedQuestionRecord, len(records))
	for i := range records {
		ptrs[i] = &records[i]
	}
	summary := s.validator.Record().ApplyAll(ptrs)
	session.SetRecords(records)
	metrics.ObserveValidation(summary)

	state := session.Snapshot()
	s.updateJob(ctx, session.ID(), func(job *models.ImportJob) {
		job.Status = models.ImportValidated
		job.TotalRows = summary.Total
		job.ValidCount = summary.Valid
		job.InvalidCount = summary.Invalid
		job.Errors = encodeValidationErrors(state.Records)
	})

	s.publish(ctx, events.EventImportValidated, events.ImportValidatedEvent{
		SessionID:    session.ID(),
		UserID:       session.UserID(),
		FileName:     file.FileName,
		TotalRows:    summary.Total,
		ValidCount:   summary.Valid,
		InvalidCount: summary.Invalid,
	})

	return &state, nil
}

// ===== READ =====

func (s *importService) GetSession(ctx context.Context, sessionID, userID string) (*SessionState, error) {
	session, err := s.ownedSession(sessionID, userID)
	if err != nil {
		return nil, err
	}
	state := session.Snapshot()
	return &state, nil
}

func (s *importService) Subscribe(ctx context.Context, sessionID, userID string, listener Listener) (func(), error) {
	session, err := s.ownedSession(sessionID, userID)
	if err != nil {
		return nil, err
	}
	return session.Subscribe(listener), nil
}

// Progress answers from the local session first, then from the shared cache
// filled by whichever instance holds the session, then from the persisted job
func (s *importService) Progress(ctx context.Context, sessionID, userID string) (*cache.ImportProgress, error) {
	if session, err := s.ownedSession(sessionID, userID); err == nil {
		progress := progressFromState(session.Snapshot())
		return &progress, nil
	} else if !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}

	if s.progress != nil {
		cached, err := s.progress.Get(ctx, sessionID)
		switch {
		case err == nil:
			if cached.UserID != userID {
				return nil, ErrSessionAccessDenied
			}
			return cached, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			s.logger.Warn(ctx, "progress cache unavailable", "session_id", sessionID, "error", err)
		}
	}

	job, err := s.repo.ImportJob().GetByID(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if job.UserID != userID {
		return nil, ErrSessionAccessDenied
	}
	return &cache.ImportProgress{
		SessionID: job.ID,
		UserID:    job.UserID,
		Status:    job.Status,
		Progress:  job.Progress,
		Summary: models.ImportSummary{
			Total:    job.TotalRows,
			Valid:    job.ValidCount,
			Invalid:  job.InvalidCount,
			Imported: job.ImportedCount,
		},
		Error:     deref(job.LastError),
		UpdatedAt: job.UpdatedAt,
	}, nil
}

func (s *importService) History(ctx context.Context, userID string, limit, offset int) ([]*models.ImportJob, int64, error) {
	return s.repo.ImportJob().ListByUser(ctx, userID, limit, offset)
}

// ===== COMMIT =====

func (s *importService) Commit(ctx context.Context, sessionID, userID string) (models.ImportResult, error) {
	op := s.logger.WithOperation(ctx, "commit_import", userID)

	session, err := s.ownedSession(sessionID, userID)
	if err != nil {
		op.LogResult(sessionID, "import_session", err)
		return models.NewImportResult(0, err), err
	}

	startedAt := time.Now()
	s.updateJob(ctx, sessionID, func(job *models.ImportJob) {
		if job.Status == models.ImportRunning {
			return
		}
		job.Status = models.ImportRunning
		job.StartedAt = &startedAt
	})

	count, err := s.importer.Import(ctx, session, userID)
	if errors.Is(err, ErrImportInProgress) {
		op.LogResult(sessionID, "import_session", err)
		return models.NewImportResult(0, err), err
	}

	status := models.ImportCompleted
	eventType := events.EventImportCompleted
	if err != nil {
		status = models.ImportFailed
		eventType = events.EventImportFailed
	}
	state := s.finishJob(ctx, session, status, err)

	finished := events.ImportFinishedEvent{
		SessionID:     sessionID,
		UserID:        userID,
		ImportedCount: count,
		InvalidCount:  state.Summary.Invalid,
		Progress:      state.Progress,
	}
	if err != nil {
		finished.Error = err.Error()
	}
	s.publish(ctx, eventType, finished)

	op.LogResult(sessionID, "import_session", err)
	return models.NewImportResult(count, err), err
}

func (s *importService) Dispose(ctx context.Context, sessionID, userID string) error {
	if _, err := s.ownedSession(sessionID, userID); err != nil {
		return err
	}
	if err := s.registry.Dispose(sessionID); err != nil {
		return err
	}
	if s.progress != nil {
		if err := s.progress.Delete(ctx, sessionID); err != nil {
			s.logger.Warn(ctx, "failed to drop cached progress", "session_id", sessionID, "error", err)
		}
	}
	return nil
}

// ===== HELPERS =====

func (s *importService) ownedSession(sessionID, userID string) (*ImportSession, error) {
	session, err := s.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID() != userID {
		return nil, ErrSessionAccessDenied
	}
	return session, nil
}

// trackProgress mirrors every state change of the session into the cache
func (s *importService) trackProgress(session *ImportSession) {
	if s.progress == nil {
		return
	}
	writer := newProgressWriter(s.progress, s.logger)
	session.Subscribe(writer.push)
	session.OnClose(writer.stop)
}

func (s *importService) finishJob(ctx context.Context, session *ImportSession, status models.ImportJobStatus, err error) SessionState {
	state := session.Snapshot()
	completedAt := time.Now()
	s.updateJob(ctx, session.ID(), func(job *models.ImportJob) {
		job.Status = status
		job.Progress = state.Progress
		job.TotalRows = state.Summary.Total
		job.ValidCount = state.Summary.Valid
		job.InvalidCount = state.Summary.Invalid
		job.ImportedCount = state.Summary.Imported
		job.Errors = encodeValidationErrors(state.Records)
		job.CompletedAt = &completedAt
		if err != nil {
			msg := err.Error()
			job.LastError = &msg
		}
	})
	return state
}

// updateJob applies fn to the persisted job. History is best effort and
// never fails the import itself.
func (s *importService) updateJob(ctx context.Context, sessionID string, fn func(job *models.ImportJob)) {
	job, err := s.repo.ImportJob().GetByID(ctx, sessionID)
	if err != nil {
		s.logger.Warn(ctx, "failed to load import job", "session_id", sessionID, "error", err)
		return
	}
	fn(job)
	if err := s.repo.ImportJob().Update(ctx, job); err != nil {
		s.logger.Warn(ctx, "failed to update import job", "session_id", sessionID, "error", err)
	}
}

func (s *importService) publish(ctx context.Context, eventType events.EventType, data interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishImportEvent(ctx, events.NewImportEvent(eventType, data)); err != nil {
		s.logger.Warn(ctx, "failed to publish import event", "type", eventType, "error", err)
	}
}

func progressFromState(state SessionState) cache.ImportProgress {
	progress := cache.ImportProgress{
		SessionID: state.ID,
		UserID:    state.UserID,
		Progress:  state.Progress,
		Summary:   state.Summary,
		UpdatedAt: state.UpdatedAt,
	}

	switch {
	case state.Loading:
		progress.Status = models.ImportPending
	case state.Importing:
		progress.Status = models.ImportRunning
	case len(state.Errors) > 0:
		progress.Status = models.ImportFailed
		progress.Error = state.Errors[len(state.Errors)-1]
	case state.Summary.Imported > 0:
		progress.Status = models.ImportCompleted
	default:
		progress.Status = models.ImportValidated
	}
	return progress
}

func encodeValidationErrors(records []models.ImportedQuestionRecord) datatypes.JSON {
	errs := models.CollectValidationErrors(records)
	if errs == nil {
		errs = []models.ImportValidationError{}
	}
	data, _ := json.Marshal(errs)
	return datatypes.JSON(data)
}
