package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/SAP-F-2025/toeic-import-service/internal/models"
	"github.com/SAP-F-2025/toeic-import-service/internal/services"
	"github.com/SAP-F-2025/toeic-import-service/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	xlsxContentType      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	csvContentType       = "text/csv; charset=utf-8"
	templateFileName     = "toeic_question_template.xlsx"
	uploadFormField      = "file"
	sseKeepAliveInterval = 15 * time.Second
	sseBufferSize        = 16
)

type ImportHandler struct {
	BaseHandler
	importService   services.ImportService
	templateService services.TemplateService
	maxUploadBytes  int64
}

func NewImportHandler(
	importService services.ImportService,
	templateService services.TemplateService,
	maxUploadBytes int64,
	logger utils.Logger,
) *ImportHandler {
	return &ImportHandler{
		BaseHandler:     NewBaseHandler(logger),
		importService:   importService,
		templateService: templateService,
		maxUploadBytes:  maxUploadBytes,
	}
}

// DownloadTemplate godoc
// @Summary Download the question import template
// @Tags imports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Router /imports/template [get]
func (h *ImportHandler) DownloadTemplate(c *gin.Context) {
	data, err := h.templateService.BuildTemplate()
	if err != nil {
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to build template", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", templateFileName))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// UploadFile godoc
// @Summary Upload a spreadsheet into a new import session
// @Tags imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "xlsx or csv file"
// @Success 201 {object} SuccessResponse{data=services.SessionState}
// @Router /imports [post]
func (h *ImportHandler) UploadFile(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	h.withUpload(c, func(file services.FileUpload) {
		h.LogRequest(c, "Uploading import file", "file_name", file.FileName, "size", file.Size)

		state, err := h.importService.Upload(c.Request.Context(), userID, file)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		h.RespondWithSuccess(c, http.StatusCreated, "File parsed", state)
	})
}

// ReplaceFile godoc
// @Summary Load a different file into an existing session
// @Tags imports
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Session ID"
// @Param file formData file true "xlsx or csv file"
// @Success 200 {object} SuccessResponse{data=services.SessionState}
// @Router /imports/{id}/file [post]
func (h *ImportHandler) ReplaceFile(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	h.withUpload(c, func(file services.FileUpload) {
		h.LogRequest(c, "Replacing import file", "session_id", sessionID, "file_name", file.FileName)

		state, err := h.importService.Replace(c.Request.Context(), sessionID, userID, file)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		h.RespondWithSuccess(c, http.StatusOK, "File parsed", state)
	})
}

// GetSession godoc
// @Summary Get the records and summary of an import session
// @Tags imports
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} SuccessResponse{data=services.SessionState}
// @Router /imports/{id} [get]
func (h *ImportHandler) GetSession(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	state, err := h.importService.GetSession(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Import session retrieved", state)
}

// GetProgress godoc
// @Summary Get the progress of an import session
// @Tags imports
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} SuccessResponse{data=cache.ImportProgress}
// @Router /imports/{id}/progress [get]
func (h *ImportHandler) GetProgress(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	progress, err := h.importService.Progress(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Import progress retrieved", progress)
}

// StreamEvents godoc
// @Summary Stream session snapshots as server-sent events
// @Tags imports
// @Produce text/event-stream
// @Param id path string true "Session ID"
// @Router /imports/{id}/events [get]
func (h *ImportHandler) StreamEvents(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	ctx := c.Request.Context()
	updates := make(chan services.SessionState, sseBufferSize)
	unsubscribe, err := h.importService.Subscribe(ctx, sessionID, userID, func(state services.SessionState) {
		// keep the newest snapshots, never block the notifier
		for {
			select {
			case updates <- state:
				return
			default:
				select {
				case <-updates:
				default:
				}
			}
		}
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	defer unsubscribe()

	initial, err := h.importService.GetSession(ctx, sessionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.SSEvent("state", initial)

	keepAlive := time.NewTicker(sseKeepAliveInterval)
	defer keepAlive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case state := <-updates:
			c.SSEvent("state", state)
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}

// Commit godoc
// @Summary Import the valid records of a session
// @Tags imports
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.ImportResult
// @Failure 422 {object} models.ImportResult
// @Router /imports/{id}/commit [post]
func (h *ImportHandler) Commit(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	h.LogRequest(c, "Committing import", "session_id", sessionID)

	// a started import runs to the end even if the client goes away
	ctx := context.WithoutCancel(c.Request.Context())
	result, err := h.importService.Commit(ctx, sessionID, userID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, result)
	case services.IsImportRejected(err):
		h.LogWarn(c, "Import rejected", "session_id", sessionID, "reason", err.Error())
		c.JSON(http.StatusUnprocessableEntity, result)
	case services.IsBatchWrite(err), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.LogError(c, err, "Import stopped", "session_id", sessionID, "details", services.FormatError(err))
		c.JSON(http.StatusInternalServerError, result)
	default:
		h.handleServiceError(c, err)
	}
}

// DisposeSession godoc
// @Summary Discard an import session
// @Tags imports
// @Param id path string true "Session ID"
// @Success 204
// @Router /imports/{id} [delete]
func (h *ImportHandler) DisposeSession(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	if err := h.importService.Dispose(c.Request.Context(), sessionID, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListHistory godoc
// @Summary List the caller's import jobs
// @Tags imports
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} SuccessResponse{data=ListResponse}
// @Router /imports/history [get]
func (h *ImportHandler) ListHistory(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	limit, offset := parsePagination(c)

	jobs, total, err := h.importService.History(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if jobs == nil {
		jobs = []*models.ImportJob{}
	}

	h.RespondWithSuccess(c, http.StatusOK, "Import history retrieved", ListResponse{
		Items:  jobs,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func (h *ImportHandler) requireUser(c *gin.Context) (string, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		h.RespondWithError(c, http.StatusUnauthorized, "User not authenticated", nil)
	}
	return userID, ok
}

// withUpload opens the multipart file and hands it to fn
func (h *ImportHandler) withUpload(c *gin.Context, fn func(file services.FileUpload)) {
	if h.maxUploadBytes > 0 {
		// room for the multipart envelope on top of the file itself
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+1<<20)
	}

	header, err := c.FormFile(uploadFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.handleServiceError(c, services.ErrFileTooLarge)
			return
		}
		h.RespondWithError(c, http.StatusBadRequest, "A file is required", err, "multipart field \""+uploadFormField+"\" is missing")
		return
	}

	f, err := header.Open()
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Unable to open uploaded file", err)
		return
	}
	defer f.Close()

	fn(services.FileUpload{
		FileName: header.Filename,
		Size:     header.Size,
		Reader:   f,
	})
}
