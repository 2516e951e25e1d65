package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/SAP-F-2025/toeic-import-service/internal/models"
	"github.com/SAP-F-2025/toeic-import-service/internal/repositories"
	"github.com/SAP-F-2025/toeic-import-service/internal/services"
	"github.com/SAP-F-2025/toeic-import-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type QuestionHandler struct {
	BaseHandler
	exportService services.ExportService
}

func NewQuestionHandler(exportService services.ExportService, logger utils.Logger) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler:   NewBaseHandler(logger),
		exportService: exportService,
	}
}

// ExportQuestions downloads stored questions in the import template layout
// @Summary Export questions
// @Tags questions
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce text/csv
// @Param format query string false "xlsx (default) or csv"
// @Param part query int false "TOEIC part"
// @Param difficulty query string false "easy, medium or hard"
// @Param status query string false "draft, published or archived"
// @Param passage_id query string false "Passage ID"
// @Param mine query bool false "Only questions created by the caller"
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse
// @Router /questions/export [get]
func (h *QuestionHandler) ExportQuestions(c *gin.Context) {
	h.LogRequest(c, "Exporting questions")

	fileType := services.FileTypeXLSX
	switch strings.ToLower(c.DefaultQuery("format", string(services.FileTypeXLSX))) {
	case string(services.FileTypeXLSX):
	case string(services.FileTypeCSV):
		fileType = services.FileTypeCSV
	default:
		h.RespondWithError(c, http.StatusBadRequest, "Invalid format", nil, "format must be xlsx or csv")
		return
	}

	filters, ok := h.parseFilters(c)
	if !ok {
		return
	}

	data, err := h.exportService.ExportQuestions(c.Request.Context(), filters, fileType)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	contentType := xlsxContentType
	if fileType == services.FileTypeCSV {
		contentType = csvContentType
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "toeic_questions."+string(fileType)))
	c.Data(http.StatusOK, contentType, data)
}

func (h *QuestionHandler) parseFilters(c *gin.Context) (repositories.QuestionFilters, bool) {
	filters := repositories.QuestionFilters{
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "asc"),
	}

	if raw := strings.TrimSpace(c.Query("part")); raw != "" {
		part := parseOptionalInt(c, "part")
		if part == nil || !models.Part(*part).IsValid() {
			h.RespondWithError(c, http.StatusBadRequest, "Invalid part", nil, "part must be between 1 and 7")
			return filters, false
		}
		p := models.Part(*part)
		filters.Part = &p
	}

	if raw := strings.ToLower(strings.TrimSpace(c.Query("difficulty"))); raw != "" {
		d := models.DifficultyLevel(raw)
		switch d {
		case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
			filters.Difficulty = &d
		default:
			h.RespondWithError(c, http.StatusBadRequest, "Invalid difficulty", nil, "difficulty must be easy, medium or hard")
			return filters, false
		}
	}

	if raw := strings.ToLower(strings.TrimSpace(c.Query("status"))); raw != "" {
		st := models.QuestionStatus(raw)
		switch st {
		case models.QuestionDraft, models.QuestionPublished, models.QuestionArchived:
			filters.Status = &st
		default:
			h.RespondWithError(c, http.StatusBadRequest, "Invalid status", nil, "status must be draft, published or archived")
			return filters, false
		}
	}

	if passageID := strings.TrimSpace(c.Query("passage_id")); passageID != "" {
		filters.PassageID = &passageID
	}

	if c.Query("mine") == "true" {
		if userID, ok := currentUserID(c); ok {
			filters.CreatedBy = &userID
		}
	}

	return filters, true
}
