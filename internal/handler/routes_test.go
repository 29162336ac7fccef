package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/langschool-api/internal/middleware"
	"github.com/noah-isme/langschool-api/internal/models"
	appErrors "github.com/noah-isme/langschool-api/pkg/errors"
)

type tokenStub struct{}

func (tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if token == "admin-token" {
		return &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}, nil
	}
	return nil, appErrors.ErrUnauthorized
}

func newRouter(authEnabled bool) (*gin.Engine, *courseServiceMock, *holidayServiceMock) {
	gin.SetMode(gin.TestMode)
	courses := &courseServiceMock{course: sampleCourse()}
	holidays := &holidayServiceMock{}
	r := gin.New()
	Register(r.Group("/api/v1"), Handlers{
		Courses:       NewCourseHandler(courses),
		Holidays:      NewHolidayHandler(holidays),
		Notifications: NewNotificationHandler(&notificationServiceMock{}, nil),
		Exports:       NewExportHandler(&exportServiceMock{}),
	}, middleware.AdminGuard(authEnabled, tokenStub{}), middleware.JWT(tokenStub{}))
	return r, courses, holidays
}

func serve(r *gin.Engine, method, path, token string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRoutesGuardMutationsWhenAuthEnabled(t *testing.T) {
	r, courses, holidays := newRouter(true)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/courses", ""))
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodDelete, "/api/v1/courses/course-1", ""))
	assert.Empty(t, courses.deleted)

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodDelete, "/api/v1/courses/course-1", "admin-token"))
	assert.Equal(t, "course-1", courses.deleted)

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/api/v1/holidays/apply", ""))
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/api/v1/holidays/apply", "admin-token"))
	assert.Equal(t, 1, holidays.sweeps)
}

func TestRoutesOpenWhenAuthDisabled(t *testing.T) {
	r, courses, _ := newRouter(false)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/api/v1/courses/course-1/apply-holidays", ""))
	assert.Equal(t, http.StatusOK, serve(r, http.MethodDelete, "/api/v1/courses/course-1/sessions/3", ""))
	assert.Equal(t, 3, courses.lastIndex)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/notifications/unread-count", ""))
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/api/v1/exports/bogus", ""))
}
