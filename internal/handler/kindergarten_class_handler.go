package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/langschool-api/internal/dto"
	"github.com/noah-isme/langschool-api/internal/models"
	"github.com/noah-isme/langschool-api/internal/scheduling"
	"github.com/noah-isme/langschool-api/pkg/response"
)

type kindergartenClassService interface {
	List(ctx context.Context, filter models.KindergartenClassFilter) ([]models.KindergartenClass, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.KindergartenClass, error)
	Create(ctx context.Context, req dto.CreateKindergartenClassRequest) (*models.KindergartenClass, error)
	Update(ctx context.Context, id string, req dto.UpdateKindergartenClassRequest) (*models.KindergartenClass, error)
	UpdatePattern(ctx context.Context, id string, req dto.UpdatePatternRequest) (*models.KindergartenClass, error)
	UpdateSessionStatus(ctx context.Context, id string, index int, req dto.UpdateClassSessionRequest) (*models.KindergartenClass, *scheduling.Session, error)
	AddCustomSession(ctx context.Context, id string, req dto.AddCustomSessionRequest) (*models.KindergartenClass, error)
	DeleteSession(ctx context.Context, id string, index int) (*models.KindergartenClass, error)
	ApplyHolidays(ctx context.Context, id string) (*models.KindergartenClass, int, error)
	Delete(ctx context.Context, id string) error
	Sessions(ctx context.Context, id string) (scheduling.SessionList, error)
}

type classSessionResult struct {
	Class   *models.KindergartenClass `json:"class"`
	Session *scheduling.Session       `json:"session"`
}

// KindergartenClassHandler exposes kindergarten class endpoints.
type KindergartenClassHandler struct {
	classes kindergartenClassService
}

// NewKindergartenClassHandler constructs the handler.
func NewKindergartenClassHandler(classes kindergartenClassService) *KindergartenClassHandler {
	return &KindergartenClassHandler{classes: classes}
}

// List godoc
// @Summary List kindergarten classes
// @Tags Kindergarten Classes
// @Produce json
// @Param search query string false "Search by name"
// @Param status query string false "Class status"
// @Param ageGroup query string false "Age group"
// @Param teacherId query string false "Teacher ID"
// @Param branchId query string false "Branch ID"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /kindergarten-classes [get]
func (h *KindergartenClassHandler) List(c *gin.Context) {
	filter := models.KindergartenClassFilter{
		Search:    strings.TrimSpace(c.Query("search")),
		Status:    c.Query("status"),
		AgeGroup:  c.Query("ageGroup"),
		TeacherID: c.Query("teacherId"),
		BranchID:  c.Query("branchId"),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	filter.Page, filter.PageSize = pageParams(c)

	classes, pagination, err := h.classes.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, pagination)
}

// Get godoc
// @Summary Get kindergarten class
// @Tags Kindergarten Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /kindergarten-classes/{id} [get]
func (h *KindergartenClassHandler) Get(c *gin.Context) {
	class, err := h.classes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Create godoc
// @Summary Create kindergarten class
// @Tags Kindergarten Classes
// @Accept json
// @Produce json
// @Param payload body dto.CreateKindergartenClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Router /kindergarten-classes [post]
func (h *KindergartenClassHandler) Create(c *gin.Context) {
	var req dto.CreateKindergartenClassRequest
	if !bindJSON(c, &req, "invalid class payload") {
		return
	}
	class, err := h.classes.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// Update godoc
// @Summary Update kindergarten class
// @Tags Kindergarten Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.UpdateKindergartenClassRequest true "Class fields"
// @Success 200 {object} response.Envelope
// @Router /kindergarten-classes/{id} [patch]
func (h *KindergartenClassHandler) Update(c *gin.Context) {
	var req dto.UpdateKindergartenClassRequest
	if !bindJSON(c, &req, "invalid class payload") {
		return
	}
	class, err := h.classes.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Delete godoc
// @Summary Delete kindergarten class
// @Tags Kindergarten Classes
// @Param id path string true "Class ID"
// @Success 204
// @Router /kindergarten-classes/{id} [delete]
func (h *KindergartenClassHandler) Delete(c *gin.Context) {
	if err := h.classes.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Sessions godoc
// @Summary List class sessions
// @Tags Kindergarten Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /kindergarten-classes/{id}/sessions [get]
func (h *KindergartenClassHandler) Sessions(c *gin.Context) {
	sessions, err := h.classes.Sessions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil, map[string]interface{}{"total": len(sessions)})
}

// UpdatePattern godoc
// @Summary Replace class weekly pattern
// @Tags Kindergarten Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.UpdatePatternRequest true "Weekly pattern"
// @Success 200 {object} response.Envelope
// @Router /kindergarten-classes/{id}/pattern [put]
func (h *KindergartenClassHandler) UpdatePattern(c *gin.Context) {
	var req dto.UpdatePatternRequest
	if !bindJSON(c, &req, "invalid pattern payload") {
		return
	}
	class, err := h.classes.UpdatePattern(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// UpdateSession godoc
// @Summary Change a class session status
// @Description A make-up session is appended only when addCompensatory is true.
// @Tags Kindergarten Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param index path int true "Session index"
// @Param payload body dto.UpdateClassSessionRequest true "Session status"
// @Success 200 {object} response.Envelope
// @Router /kindergarten-classes/{id}/sessions/{index} [patch]
func (h *KindergartenClassHandler) UpdateSession(c *gin.Context) {
	index, ok := sessionIndex(c)
	if !ok {
		return
	}
	var req dto.UpdateClassSessionRequest
	if !bindJSON(c, &req, "invalid session payload") {
		return
	}
	class, session, err := h.classes.UpdateSessionStatus(c.Request.Context(), c.Param("id"), index, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classSessionResult{Class: class, Session: session}, nil)
}

// AddSession godoc
// @Summary Add a custom class session
// @Tags Kindergarten Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.AddCustomSessionRequest true "Custom session"
// @Success 201 {object} response.Envelope
// @Router /kindergarten-classes/{id}/sessions [post]
func (h *KindergartenClassHandler) AddSession(c *gin.Context) {
	var req dto.AddCustomSessionRequest
	if !bindJSON(c, &req, "invalid session payload") {
		return
	}
	class, err := h.classes.AddCustomSession(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// DeleteSession godoc
// @Summary Remove a class session
// @Tags Kindergarten Classes
// @Param id path string true "Class ID"
// @Param index path int true "Session index"
// @Success 200 {object} response.Envelope
// @Router /kindergarten-classes/{id}/sessions/{index} [delete]
func (h *KindergartenClassHandler) DeleteSession(c *gin.Context) {
	index, ok := sessionIndex(c)
	if !ok {
		return
	}
	class, err := h.classes.DeleteSession(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// ApplyHolidays godoc
// @Summary Mark class sessions falling on holidays
// @Tags Kindergarten Classes
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /kindergarten-classes/{id}/apply-holidays [post]
func (h *KindergartenClassHandler) ApplyHolidays(c *gin.Context) {
	class, marked, err := h.classes.ApplyHolidays(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil, map[string]interface{}{"marked": marked})
}
