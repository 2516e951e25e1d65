package handlers

import (
	"net/http"
	"strings"

	"github.com/SAP-F-2025/toeic-import-service/internal/models"
	"github.com/SAP-F-2025/toeic-import-service/internal/repositories"
	"github.com/SAP-F-2025/toeic-import-service/internal/services"
	"github.com/SAP-F-2025/toeic-import-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type PassageHandler struct {
	BaseHandler
	passageService services.PassageService
}

func NewPassageHandler(passageService services.PassageService, logger utils.Logger) *PassageHandler {
	return &PassageHandler{
		BaseHandler:    NewBaseHandler(logger),
		passageService: passageService,
	}
}

// CreatePassage creates a passage that imported questions can reference
// @Summary Create passage
// @Tags passages
// @Accept json
// @Produce json
// @Param passage body services.CreatePassageRequest true "Passage data"
// @Success 201 {object} SuccessResponse{data=models.Passage}
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /passages [post]
func (h *PassageHandler) CreatePassage(c *gin.Context) {
	h.LogRequest(c, "Creating passage")

	userID, ok := currentUserID(c)
	if !ok {
		h.RespondWithError(c, http.StatusUnauthorized, "User not authenticated", nil)
		return
	}

	var req services.CreatePassageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	passage, err := h.passageService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusCreated, "Passage created successfully", passage)
}

// GetPassage returns one passage
// @Summary Get passage
// @Tags passages
// @Produce json
// @Param id path string true "Passage ID"
// @Success 200 {object} SuccessResponse{data=models.Passage}
// @Failure 404 {object} ErrorResponse
// @Router /passages/{id} [get]
func (h *PassageHandler) GetPassage(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	passage, err := h.passageService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Passage retrieved successfully", passage)
}

// ListPassages lists passages, optionally by part and title search
// @Summary List passages
// @Tags passages
// @Produce json
// @Param part query int false "TOEIC part"
// @Param search query string false "Title search"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} SuccessResponse{data=ListResponse}
// @Router /passages [get]
func (h *PassageHandler) ListPassages(c *gin.Context) {
	limit, offset := parsePagination(c)
	filters := repositories.PassageFilters{
		Search: strings.TrimSpace(c.Query("search")),
		Limit:  limit,
		Offset: offset,
	}
	if part := parseOptionalInt(c, "part"); part != nil {
		p := models.Part(*part)
		if !p.IsValid() {
			h.RespondWithError(c, http.StatusBadRequest, "Invalid part", nil, "part must be between 1 and 7")
			return
		}
		filters.Part = &p
	}

	passages, total, err := h.passageService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if passages == nil {
		passages = []*models.Passage{}
	}

	h.RespondWithSuccess(c, http.StatusOK, "Passages retrieved successfully", ListResponse{
		Items:  passages,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}
