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

type courseService interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, req dto.CreateCourseRequest) (*models.Course, error)
	Update(ctx context.Context, id string, req dto.UpdateCourseRequest) (*models.Course, error)
	Cancel(ctx context.Context, id string) (*models.Course, error)
	UpdatePattern(ctx context.Context, id string, req dto.UpdatePatternRequest) (*models.Course, error)
	UpdateSessionStatus(ctx context.Context, id string, index int, req dto.UpdateCourseSessionRequest) (*models.Course, *scheduling.Session, error)
	AddCustomSession(ctx context.Context, id string, req dto.AddCustomSessionRequest) (*models.Course, error)
	DeleteSession(ctx context.Context, id string, index int) (*models.Course, error)
	ApplyHolidays(ctx context.Context, id string) (*models.Course, int, error)
	Delete(ctx context.Context, id string) error
	Sessions(ctx context.Context, id string) (scheduling.SessionList, error)
}

// courseSessionResult pairs the updated course with the session that changed.
type courseSessionResult struct {
	Course  *models.Course      `json:"course"`
	Session *scheduling.Session `json:"session"`
}

// CourseHandler exposes course scheduling endpoints.
type CourseHandler struct {
	courses courseService
}

// NewCourseHandler constructs a CourseHandler.
func NewCourseHandler(courses courseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Param search query string false "Search by name or level"
// @Param status query string false "Course status (Upcoming, In Progress, Finished, Cancelled)"
// @Param teacherId query string false "Teacher ID"
// @Param branchId query string false "Branch ID"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort field (name,start_date,end_date,created_at)"
// @Param order query string false "Sort order (asc/desc)"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	filter := models.CourseFilter{
		Search:    strings.TrimSpace(c.Query("search")),
		Status:    c.Query("status"),
		TeacherID: c.Query("teacherId"),
		BranchID:  c.Query("branchId"),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	filter.Page, filter.PageSize = pageParams(c)

	courses, pagination, err := h.courses.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// Get godoc
// @Summary Get course detail
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Create godoc
// @Summary Create course and generate its sessions
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body dto.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req dto.CreateCourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.courses.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update course attributes
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.UpdateCourseRequest true "Course fields"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [patch]
func (h *CourseHandler) Update(c *gin.Context) {
	var req dto.UpdateCourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.courses.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Delete godoc
// @Summary Delete course
// @Tags Courses
// @Param id path string true "Course ID"
// @Success 204
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.courses.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Cancel godoc
// @Summary Cancel course
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/cancel [post]
func (h *CourseHandler) Cancel(c *gin.Context) {
	course, err := h.courses.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Sessions godoc
// @Summary List course sessions
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/sessions [get]
func (h *CourseHandler) Sessions(c *gin.Context) {
	sessions, err := h.courses.Sessions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil, map[string]interface{}{"total": len(sessions)})
}

// UpdatePattern godoc
// @Summary Replace weekly pattern and regenerate sessions
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.UpdatePatternRequest true "Weekly pattern"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/pattern [put]
func (h *CourseHandler) UpdatePattern(c *gin.Context) {
	var req dto.UpdatePatternRequest
	if !bindJSON(c, &req, "invalid pattern payload") {
		return
	}
	course, err := h.courses.UpdatePattern(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// UpdateSession godoc
// @Summary Change a session status
// @Description Absent statuses append a compensatory session unless compensate is false.
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param index path int true "Session index"
// @Param payload body dto.UpdateCourseSessionRequest true "Session status"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/sessions/{index} [patch]
func (h *CourseHandler) UpdateSession(c *gin.Context) {
	index, ok := sessionIndex(c)
	if !ok {
		return
	}
	var req dto.UpdateCourseSessionRequest
	if !bindJSON(c, &req, "invalid session payload") {
		return
	}
	course, session, err := h.courses.UpdateSessionStatus(c.Request.Context(), c.Param("id"), index, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courseSessionResult{Course: course, Session: session}, nil)
}

// AddSession godoc
// @Summary Add a custom session
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.AddCustomSessionRequest true "Custom session"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/sessions [post]
func (h *CourseHandler) AddSession(c *gin.Context) {
	var req dto.AddCustomSessionRequest
	if !bindJSON(c, &req, "invalid session payload") {
		return
	}
	course, err := h.courses.AddCustomSession(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// DeleteSession godoc
// @Summary Remove a session
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Param index path int true "Session index"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/sessions/{index} [delete]
func (h *CourseHandler) DeleteSession(c *gin.Context) {
	index, ok := sessionIndex(c)
	if !ok {
		return
	}
	course, err := h.courses.DeleteSession(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// ApplyHolidays godoc
// @Summary Mark sessions falling on holidays
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/apply-holidays [post]
func (h *CourseHandler) ApplyHolidays(c *gin.Context) {
	course, marked, err := h.courses.ApplyHolidays(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil, map[string]interface{}{"marked": marked})
}
