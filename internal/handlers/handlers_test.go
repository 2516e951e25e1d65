package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SAP-F-2025/toeic-import-service/internal/cache"
	"github.com/SAP-F-2025/toeic-import-service/internal/config"
	"github.com/SAP-F-2025/toeic-import-service/internal/models"
	"github.com/SAP-F-2025/toeic-import-service/internal/repositories"
	"github.com/SAP-F-2025/toeic-import-service/internal/services"
	"github.com/SAP-F-2025/toeic-import-service/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testUser = "user-1"

type fakeServiceManager struct {
	importService  services.ImportService
	passageService services.PassageService
	exportService  services.ExportService
}

func (m *fakeServiceManager) Import() services.ImportService      { return m.importService }
func (m *fakeServiceManager) Template() services.TemplateService  { return services.NewTemplateService() }
func (m *fakeServiceManager) Export() services.ExportService      { return m.exportService }
func (m *fakeServiceManager) Passage() services.PassageService    { return m.passageService }
func (m *fakeServiceManager) Sessions() *services.SessionRegistry { return nil }

type testServer struct {
	router   *gin.Engine
	imports  *MockImportService
	passages *MockPassageService
	exports  *MockExportService
}

func newTestServer(t *testing.T, verifier TokenVerifier) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{
		router:   gin.New(),
		imports:  new(MockImportService),
		passages: new(MockPassageService),
		exports:  new(MockExportService),
	}
	manager := &fakeServiceManager{
		importService:  ts.imports,
		passageService: ts.passages,
		exportService:  ts.exports,
	}

	logger := utils.NewDevelopmentLogger()
	ts.router.Use(utils.ContextLogger(logger))
	NewHandlerManager(manager, config.ImportConfig{MaxUploadBytes: 10 << 20}, verifier, logger).SetupRoutes(ts.router)

	t.Cleanup(func() {
		ts.imports.AssertExpectations(t)
		ts.passages.AssertExpectations(t)
		ts.exports.AssertExpectations(t)
	})
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	if req.Header.Get("Authorization") == "" && req.Header.Get(devUserIDHeader) == "" {
		req.Header.Set(devUserIDHeader, testUser)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func multipartRequest(t *testing.T, method, url, fileName string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(uploadFormField, fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeBody(t, rec)["status"])
}

func TestAuthMiddleware(t *testing.T) {
	t.Run("dev mode requires user header", func(t *testing.T) {
		ts := newTestServer(t, nil)

		rec := httptest.NewRecorder()
		ts.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/imports/history", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bearer token resolves the caller", func(t *testing.T) {
		ts := newTestServer(t, &fakeVerifier{users: map[string]*AuthUser{
			"good-token": {ID: "casdoor-42", Name: "alice"},
		}})
		ts.imports.On("History", mock.Anything, "casdoor-42", defaultPageLimit, 0).
			Return([]*models.ImportJob{}, int64(0), nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/history", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := ts.do(req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		ts := newTestServer(t, &fakeVerifier{})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/history", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := ts.do(req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("dev header is ignored when tokens are verified", func(t *testing.T) {
		ts := newTestServer(t, &fakeVerifier{})

		rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/imports/history", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestBearerToken(t *testing.T) {
	token, ok := bearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", token)

	token, ok = bearerToken("bearer   xyz ")
	assert.True(t, ok)
	assert.Equal(t, "xyz", token)

	_, ok = bearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = bearerToken("Bearer ")
	assert.False(t, ok)
	_, ok = bearerToken("")
	assert.False(t, ok)
}

func TestDownloadTemplate(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/imports/template", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), templateFileName)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
}

func TestUploadFile(t *testing.T) {
	t.Run("returns the parsed session", func(t *testing.T) {
		ts := newTestServer(t, nil)
		state := &services.SessionState{
			ID:       "session-1",
			UserID:   testUser,
			FileName: "questions.xlsx",
			Summary:  models.ImportSummary{Total: 3, Valid: 2, Invalid: 1},
		}
		ts.imports.On("Upload", mock.Anything, testUser, mock.MatchedBy(func(f services.FileUpload) bool {
			return f.FileName == "questions.xlsx" && f.Size == 4 && f.Reader != nil
		})).Return(state, nil)

		rec := ts.do(multipartRequest(t, http.MethodPost, "/api/v1/imports", "questions.xlsx", []byte("data")))

		require.Equal(t, http.StatusCreated, rec.Code)
		data := decodeBody(t, rec)["data"].(map[string]interface{})
		assert.Equal(t, "session-1", data["id"])
		summary := data["summary"].(map[string]interface{})
		assert.EqualValues(t, 2, summary["valid"])
	})

	t.Run("missing file", func(t *testing.T) {
		ts := newTestServer(t, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", strings.NewReader(""))
		rec := ts.do(req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("service errors map to status codes", func(t *testing.T) {
		cases := []struct {
			name    string
			err     error
			status  int
			message string
		}{
			{"too large", services.ErrFileTooLarge, http.StatusRequestEntityTooLarge, services.ErrFileTooLarge.Error()},
			{"wrong type", services.ErrUnsupportedFileType, http.StatusUnsupportedMediaType, services.ErrUnsupportedFileType.Error()},
			{"corrupt", &services.ParseError{FileName: "q.xlsx", Err: errors.New("zip: not a valid zip file")}, http.StatusBadRequest, services.ErrFileParseFailed.Error()},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				ts := newTestServer(t, nil)
				ts.imports.On("Upload", mock.Anything, testUser, mock.Anything).Return(nil, tc.err)

				rec := ts.do(multipartRequest(t, http.MethodPost, "/api/v1/imports", "q.xlsx", []byte("x")))

				assert.Equal(t, tc.status, rec.Code)
				assert.Equal(t, tc.message, decodeBody(t, rec)["message"])
			})
		}
	})
}

func TestReplaceFile(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.imports.On("Replace", mock.Anything, "session-1", testUser, mock.Anything).
		Return(nil, services.ErrImportInProgress)

	rec := ts.do(multipartRequest(t, http.MethodPost, "/api/v1/imports/session-1/file", "q.csv", []byte("part\n1")))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetSession(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		ts := newTestServer(t, nil)
		ts.imports.On("GetSession", mock.Anything, "missing", testUser).Return(nil, services.ErrSessionNotFound)

		rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/imports/missing", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("someone else's session", func(t *testing.T) {
		ts := newTestServer(t, nil)
		ts.imports.On("GetSession", mock.Anything, "s1", testUser).Return(nil, services.ErrSessionAccessDenied)

		rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/imports/s1", nil))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestGetProgress(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.imports.On("Progress", mock.Anything, "s1", testUser).Return(&cache.ImportProgress{
		SessionID: "s1",
		UserID:    testUser,
		Status:    models.ImportRunning,
		Progress:  40,
	}, nil)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/imports/s1/progress", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.EqualValues(t, 40, data["progress"])
	assert.Equal(t, string(models.ImportRunning), data["status"])
}

func TestCommit(t *testing.T) {
	count := 4
	cases := []struct {
		name   string
		result models.ImportResult
		err    error
		status int
	}{
		{"success", models.ImportResult{Success: true, Count: &count}, nil, http.StatusOK},
		{"nothing to import", models.NewImportResult(0, services.ErrNothingToImport), services.ErrNothingToImport, http.StatusUnprocessableEntity},
		{"no eligible records", models.NewImportResult(0, services.ErrNoEligibleRecords), services.ErrNoEligibleRecords, http.StatusUnprocessableEntity},
		{"batch write failed", models.ImportResult{Error: "duplicate key value"}, &services.BatchWriteError{Batch: 2, Imported: 5, Err: errors.New("duplicate key value")}, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			ts.imports.On("Commit", mock.Anything, "s1", testUser).Return(tc.result, tc.err)

			rec := ts.do(httptest.NewRequest(http.MethodPost, "/api/v1/imports/s1/commit", nil))

			require.Equal(t, tc.status, rec.Code)
			var got models.ImportResult
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tc.result, got)
		})
	}

	t.Run("session errors use the common mapping", func(t *testing.T) {
		ts := newTestServer(t, nil)
		ts.imports.On("Commit", mock.Anything, "s1", testUser).
			Return(models.NewImportResult(0, services.ErrImportInProgress), services.ErrImportInProgress)

		rec := ts.do(httptest.NewRequest(http.MethodPost, "/api/v1/imports/s1/commit", nil))

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestCommitOutlivesClientDisconnect(t *testing.T) {
	ts := newTestServer(t, nil)
	count := 3
	ts.imports.On("Commit", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil && utils.GetRequestIDFromContext(ctx) != ""
	}), "s1", testUser).Return(models.ImportResult{Success: true, Count: &count}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/s1/commit", nil).WithContext(ctx)
	rec := ts.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDisposeSession(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.imports.On("Dispose", mock.Anything, "s1", testUser).Return(nil)

	rec := ts.do(httptest.NewRequest(http.MethodDelete, "/api/v1/imports/s1", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestListHistory(t *testing.T) {
	ts := newTestServer(t, nil)
	jobs := []*models.ImportJob{{ID: "s1", UserID: testUser, FileName: "a.xlsx", Status: models.ImportCompleted}}
	ts.imports.On("History", mock.Anything, testUser, maxPageLimit, 10).Return(jobs, int64(11), nil)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/imports/history?limit=500&offset=10", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.EqualValues(t, 11, data["total"])
	assert.Len(t, data["items"], 1)
}

type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *closeNotifyRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func TestStreamEvents(t *testing.T) {
	ts := newTestServer(t, nil)
	unsubscribed := false
	ts.imports.On("Subscribe", mock.Anything, "s1", testUser, mock.Anything).
		Return(func() { unsubscribed = true }, nil)
	ts.imports.On("GetSession", mock.Anything, "s1", testUser).
		Return(&services.SessionState{ID: "s1", UserID: testUser, Progress: 25}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/s1/events", nil).WithContext(ctx)
	req.Header.Set(devUserIDHeader, testUser)
	rec := &closeNotifyRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}

	ts.router.ServeHTTP(rec, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "event:state")
	assert.Contains(t, rec.Body.String(), `"id":"s1"`)
	assert.True(t, unsubscribed)
}

func TestStreamEventsUnknownSession(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.imports.On("Subscribe", mock.Anything, "nope", testUser, mock.Anything).
		Return(nil, services.ErrSessionNotFound)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/imports/nope/events", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreatePassage(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		ts := newTestServer(t, nil)
		ts.passages.On("Create", mock.Anything, mock.MatchedBy(func(req *services.CreatePassageRequest) bool {
			return req.Part == models.PartTalks && req.Title == "Radio ad"
		}), testUser).Return(&models.Passage{ID: "p1", Part: models.PartTalks, Title: "Radio ad"}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/passages", strings.NewReader(`{"part":4,"title":"Radio ad","content":"..."}`))
		req.Header.Set("Content-Type", "application/json")
		rec := ts.do(req)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "p1", decodeBody(t, rec)["data"].(map[string]interface{})["id"])
	})

	t.Run("validation errors are listed", func(t *testing.T) {
		ts := newTestServer(t, nil)
		verr := services.ValidationErrors{{Field: "Title", Message: "is required", Rule: "required"}}
		ts.passages.On("Create", mock.Anything, mock.Anything, testUser).Return(nil, verr)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/passages", strings.NewReader(`{"part":4}`))
		req.Header.Set("Content-Type", "application/json")
		rec := ts.do(req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "Validation failed", body["message"])
		assert.Len(t, body["details"], 1)
	})

	t.Run("malformed json", func(t *testing.T) {
		ts := newTestServer(t, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/passages", strings.NewReader(`{`))
		req.Header.Set("Content-Type", "application/json")
		rec := ts.do(req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetPassage(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.passages.On("GetByID", mock.Anything, "missing").Return(nil, services.ErrPassageNotFound)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/passages/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Passage not found", decodeBody(t, rec)["message"])
}

func TestListPassages(t *testing.T) {
	t.Run("filters by part", func(t *testing.T) {
		ts := newTestServer(t, nil)
		ts.passages.On("List", mock.Anything, mock.MatchedBy(func(f repositories.PassageFilters) bool {
			return f.Part != nil && *f.Part == models.PartReading && f.Search == "memo" && f.Limit == defaultPageLimit
		})).Return([]*models.Passage{{ID: "p7"}}, int64(1), nil)

		rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/passages?part=7&search=memo", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 1, decodeBody(t, rec)["data"].(map[string]interface{})["total"])
	})

	t.Run("invalid part", func(t *testing.T) {
		ts := newTestServer(t, nil)

		rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/passages?part=9", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestExportQuestions(t *testing.T) {
	t.Run("csv with filters", func(t *testing.T) {
		ts := newTestServer(t, nil)
		ts.exports.On("ExportQuestions", mock.Anything, mock.MatchedBy(func(f repositories.QuestionFilters) bool {
			return f.Part != nil && *f.Part == models.PartConversations &&
				f.Difficulty != nil && *f.Difficulty == models.DifficultyHard &&
				f.CreatedBy != nil && *f.CreatedBy == testUser
		}), services.FileTypeCSV).Return([]byte("part,question\n3,Where?\n"), nil)

		rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/questions/export?format=csv&part=3&difficulty=HARD&mine=true", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, csvContentType, rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "toeic_questions.csv")
		assert.Equal(t, "part,question\n3,Where?\n", rec.Body.String())
	})

	t.Run("xlsx by default", func(t *testing.T) {
		ts := newTestServer(t, nil)
		ts.exports.On("ExportQuestions", mock.Anything, mock.Anything, services.FileTypeXLSX).Return([]byte("PK"), nil)

		rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/questions/export", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	})

	t.Run("rejects bad query values", func(t *testing.T) {
		for _, query := range []string{"format=pdf", "part=0", "part=x", "difficulty=extreme", "status=deleted"} {
			ts := newTestServer(t, nil)

			rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/questions/export?"+query, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code, query)
		}
	})
}
