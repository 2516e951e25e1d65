package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/SAP-F-2025/toeic-import-service/internal/cache"
	"github.com/SAP-F-2025/toeic-import-service/internal/config"
	"github.com/SAP-F-2025/toeic-import-service/internal/events"
	"github.com/SAP-F-2025/toeic-import-service/internal/models"
	"github.com/SAP-F-2025/toeic-import-service/internal/repositories"
	"github.com/SAP-F-2025/toeic-import-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/toeic-import-service/internal/validator"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type importFixture struct {
	db        *gorm.DB
	repo      repositories.Repository
	service   ImportService
	publisher *events.MockEventPublisher
	progress  *cache.ProgressCache
	registry  *SessionRegistry
}

func newImportFixture(t *testing.T) *importFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:import_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, postgres.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := postgres.NewRepository(db)
	progress := cache.NewProgressCache(cache.NewRedisCache(client, nil), time.Hour)
	publisher := events.NewMockEventPublisher(nil)
	cfg := config.ImportConfig{BatchSize: 2, SessionTTL: time.Hour, MaxUploadBytes: 1 << 20}
	registry := NewSessionRegistry(cfg.SessionTTL)
	importer := NewBatchImporter(repo, cfg, nil)

	return &importFixture{
		db:        db,
		repo:      repo,
		service:   NewImportService(repo, registry, importer, progress, publisher, validator.New(), cfg, nil),
		publisher: publisher,
		progress:  progress,
		registry:  registry,
	}
}

func csvUpload(name, content string) FileUpload {
	return FileUpload{FileName: name, Size: int64(len(content)), Reader: strings.NewReader(content)}
}

func TestImportService_UploadAndCommit(t *testing.T) {
	fx := newImportFixture(t)
	ctx := context.Background()

	passage := &models.Passage{ID: "passage-7", Part: models.PartReading, Title: "Memo", CreatedBy: "admin"}
	require.NoError(t, fx.repo.Passage().Create(ctx, passage))

	content := "part,question_text,choice_a,choice_b,correct_choice,passage_id,audio_url\n" +
		"1,,,,A,,https://cdn/1.mp3\n" +
		"5,Pick one,x,y,D,,\n" +
		"5,Pick two,x,y,B,,\n" +
		"7,Main idea?,x,y,C,passage-7,\n" +
		"7,Detail?,x,y,C,passage-missing,\n" +
		"2,,,,D,,\n"

	state, err := fx.service.Upload(ctx, "user-1", csvUpload("bank.csv", content))
	require.NoError(t, err)
	assert.Equal(t, models.ImportSummary{Total: 6, Valid: 5, Invalid: 1}, state.Summary)
	assert.Equal(t, []string{"Part 2 correct choice must be A, B or C"}, state.Records[5].Errors)

	job, err := fx.repo.ImportJob().GetByID(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportValidated, job.Status)
	assert.Equal(t, "csv", job.FileType)
	assert.Equal(t, 5, job.ValidCount)

	result, err := fx.service.Commit(ctx, state.ID, "user-1")
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.NotNil(t, result.Count)
	assert.Equal(t, 4, *result.Count)

	after, err := fx.service.GetSession(ctx, state.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 4, after.Summary.Imported)
	assert.Equal(t, 2, after.Summary.Invalid)
	assert.Equal(t, 100.0, after.Progress)

	stored, total, err := fx.repo.Question().List(ctx, repositories.QuestionFilters{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	for _, q := range stored {
		assert.Equal(t, "user-1", q.CreatedBy)
	}

	job, err = fx.repo.ImportJob().GetByID(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportCompleted, job.Status)
	assert.Equal(t, 4, job.ImportedCount)
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.CompletedAt)

	progress, err := fx.service.Progress(ctx, state.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ImportCompleted, progress.Status)
	assert.Equal(t, 100.0, progress.Progress)

	published := fx.publisher.GetPublishedEvents()
	require.Len(t, published, 2)
	assert.Equal(t, events.EventImportValidated, published[0].Type)
	assert.Equal(t, events.EventImportCompleted, published[1].Type)
}

func TestImportService_CommitWithoutValidRecords(t *testing.T) {
	fx := newImportFixture(t)
	ctx := context.Background()

	state, err := fx.service.Upload(ctx, "user-1", csvUpload("bad.csv", "part,correct_choice\n5,Z\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, state.Summary.Invalid)

	result, err := fx.service.Commit(ctx, state.ID, "user-1")
	assert.ErrorIs(t, err, ErrNothingToImport)
	assert.False(t, result.Success)
	assert.Equal(t, ErrNothingToImport.Error(), result.Error)
	assert.Nil(t, result.Count)

	job, err := fx.repo.ImportJob().GetByID(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportFailed, job.Status)
	require.NotNil(t, job.LastError)

	published := fx.publisher.GetPublishedEvents()
	require.Len(t, published, 2)
	assert.Equal(t, events.EventImportFailed, published[1].Type)
}

func TestImportService_Ownership(t *testing.T) {
	fx := newImportFixture(t)
	ctx := context.Background()

	state, err := fx.service.Upload(ctx, "owner", csvUpload("q.csv", "part,correct_choice\n1,A\n"))
	require.NoError(t, err)

	_, err = fx.service.GetSession(ctx, state.ID, "intruder")
	assert.ErrorIs(t, err, ErrSessionAccessDenied)
	_, err = fx.service.Commit(ctx, state.ID, "intruder")
	assert.ErrorIs(t, err, ErrSessionAccessDenied)
	_, err = fx.service.Progress(ctx, state.ID, "intruder")
	assert.ErrorIs(t, err, ErrSessionAccessDenied)
	assert.ErrorIs(t, fx.service.Dispose(ctx, state.ID, "intruder"), ErrSessionAccessDenied)

	_, err = fx.service.GetSession(ctx, "unknown", "owner")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestImportService_RejectsBadFiles(t *testing.T) {
	fx := newImportFixture(t)
	ctx := context.Background()

	_, err := fx.service.Upload(ctx, "user-1", csvUpload("notes.txt", "hello"))
	assert.ErrorIs(t, err, ErrUnsupportedFileType)

	big := FileUpload{FileName: "big.xlsx", Size: 2 << 20, Reader: bytes.NewReader(nil)}
	_, err = fx.service.Upload(ctx, "user-1", big)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = fx.service.Upload(ctx, "user-1", FileUpload{FileName: "broken.xlsx", Size: 4, Reader: strings.NewReader("nope")})
	assert.ErrorIs(t, err, ErrFileParseFailed)
}

func TestImportService_ReplaceAndDispose(t *testing.T) {
	fx := newImportFixture(t)
	ctx := context.Background()

	state, err := fx.service.Upload(ctx, "user-1", csvUpload("first.csv", "part,correct_choice\n1,A\n1,B\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, state.Summary.Total)

	replaced, err := fx.service.Replace(ctx, state.ID, "user-1", csvUpload("second.csv", "part,correct_choice\n2,C\n"))
	require.NoError(t, err)
	assert.Equal(t, state.ID, replaced.ID)
	assert.Equal(t, "second.csv", replaced.FileName)
	assert.Equal(t, 1, replaced.Summary.Total)

	job, err := fx.repo.ImportJob().GetByID(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, "second.csv", job.FileName)

	require.NoError(t, fx.service.Dispose(ctx, state.ID, "user-1"))
	_, err = fx.service.GetSession(ctx, state.ID, "user-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = fx.progress.Get(ctx, state.ID)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	// the persisted job still answers once the session is gone
	progress, err := fx.service.Progress(ctx, state.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ImportValidated, progress.Status)

	jobs, total, err := fx.service.History(ctx, "user-1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, jobs, 1)
}

func TestImportService_CommitReportsStorageErrorVerbatim(t *testing.T) {
	fx := newImportFixture(t)
	ctx := context.Background()

	content := "part,question_text,choice_a,choice_b,choice_c,choice_d,correct_choice\n" +
		"5,She ___ at the office.,is,are,be,been,A\n"
	state, err := fx.service.Upload(ctx, "user-1", csvUpload("questions.csv", content))
	require.NoError(t, err)
	require.Equal(t, 1, state.Summary.Valid)

	require.NoError(t, fx.db.Migrator().DropTable(&models.Question{}))

	result, err := fx.service.Commit(ctx, state.ID, "user-1")
	require.Error(t, err)
	assert.True(t, IsBatchWrite(err))
	assert.Equal(t, "no such table: questions", err.Error())
	assert.False(t, result.Success)
	assert.Equal(t, "no such table: questions", result.Error)
	assert.Nil(t, result.Count)
}

func TestImportService_ProgressFromAnotherInstance(t *testing.T) {
	fx := newImportFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.progress.Put(ctx, cache.ImportProgress{
		SessionID: "held-elsewhere",
		UserID:    "user-1",
		Status:    models.ImportRunning,
		Progress:  60,
	}))

	progress, err := fx.service.Progress(ctx, "held-elsewhere", "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ImportRunning, progress.Status)
	assert.Equal(t, 60.0, progress.Progress)

	_, err = fx.service.Progress(ctx, "held-elsewhere", "user-2")
	assert.ErrorIs(t, err, ErrSessionAccessDenied)
}
