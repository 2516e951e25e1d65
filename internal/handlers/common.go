package handlers

import (
	"errors"
	"net/http"

	"github.com/SAP-F-2025/toeic-import-service/internal/services"
	"github.com/SAP-F-2025/toeic-import-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse wraps a page of results
type ListResponse struct {
	Items  interface{} `json:"items"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides common logging functionality for all handlers
type BaseHandler struct {
	logger utils.Logger
}

// NewBaseHandler creates a new base handler with logging capability
func NewBaseHandler(logger utils.Logger) BaseHandler {
	if logger == nil {
		logger = utils.NewDefaultLogger()
	}
	return BaseHandler{
		logger: logger,
	}
}

func (h *BaseHandler) requestLogger(c *gin.Context) utils.Logger {
	if logger, exists := c.Get("logger"); exists {
		if typed, ok := logger.(utils.Logger); ok {
			return typed
		}
	}
	return h.logger.With("method", c.Request.Method, "path", c.Request.URL.Path)
}

// LogRequest logs incoming HTTP requests with context information
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"remote_addr", c.ClientIP(),
		"user_id", c.GetString(userIDKey),
	}
	fields = append(fields, additionalFields...)
	h.requestLogger(c).Info(message, fields...)
}

// LogError logs error details with context information
func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	fields := []interface{}{"user_id", c.GetString(userIDKey)}
	fields = append(fields, additionalFields...)
	h.requestLogger(c).LogError(err, message, fields...)
}

// LogWarn logs warning messages with context
func (h *BaseHandler) LogWarn(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := []interface{}{"user_id", c.GetString(userIDKey)}
	fields = append(fields, additionalFields...)
	h.requestLogger(c).Warn(message, fields...)
}

// RespondWithError sends a consistent error response and logs it
func (h *BaseHandler) RespondWithError(c *gin.Context, statusCode int, message string, err error, details ...interface{}) {
	errorResp := ErrorResponse{
		Message: message,
	}
	if len(details) > 0 {
		errorResp.Details = details[0]
	}

	if err != nil && statusCode >= http.StatusInternalServerError {
		h.LogError(c, err, message, "status_code", statusCode)
	} else {
		h.LogWarn(c, message, "status_code", statusCode)
	}

	c.JSON(statusCode, errorResp)
}

// RespondWithSuccess sends a consistent success response
func (h *BaseHandler) RespondWithSuccess(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, SuccessResponse{
		Message: message,
		Data:    data,
	})
}

// handleServiceError maps service errors to HTTP responses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, validationErrors)
		return
	}

	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		h.RespondWithError(c, http.StatusNotFound, "Import session not found", err)
	case errors.Is(err, services.ErrPassageNotFound):
		h.RespondWithError(c, http.StatusNotFound, "Passage not found", err)
	case services.IsNotFound(err):
		h.RespondWithError(c, http.StatusNotFound, "Resource not found", err)
	case services.IsUnauthorized(err):
		h.RespondWithError(c, http.StatusForbidden, "Access denied", err)
	case errors.Is(err, services.ErrImportInProgress):
		h.RespondWithError(c, http.StatusConflict, err.Error(), err)
	case errors.Is(err, services.ErrFileTooLarge):
		h.RespondWithError(c, http.StatusRequestEntityTooLarge, err.Error(), err)
	case errors.Is(err, services.ErrUnsupportedFileType):
		h.RespondWithError(c, http.StatusUnsupportedMediaType, err.Error(), err)
	case errors.Is(err, services.ErrFileParseFailed):
		// parse failures carry a generic message, details go to the log
		h.LogWarn(c, "File parse failed", "error", err.Error())
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: services.ErrFileParseFailed.Error()})
	case services.IsValidation(err):
		h.RespondWithError(c, http.StatusBadRequest, err.Error(), err)
	default:
		h.RespondWithError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}
