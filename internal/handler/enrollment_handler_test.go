package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/langschool-api/internal/dto"
	"github.com/noah-isme/langschool-api/internal/models"
	appErrors "github.com/noah-isme/langschool-api/pkg/errors"
)

type enrollmentServiceMock struct {
	lastFilter     models.EnrollmentFilter
	lastAttendance *dto.MarkAttendanceRequest
	createErr      error
}

func (m *enrollmentServiceMock) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.EnrollmentDetail{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (m *enrollmentServiceMock) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	return &models.EnrollmentDetail{}, nil
}

func (m *enrollmentServiceMock) Create(ctx context.Context, req dto.CreateEnrollmentRequest) (*models.EnrollmentDetail, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.EnrollmentDetail{}, nil
}

func (m *enrollmentServiceMock) Update(ctx context.Context, id string, req dto.UpdateEnrollmentRequest) (*models.EnrollmentDetail, error) {
	return &models.EnrollmentDetail{}, nil
}

func (m *enrollmentServiceMock) MarkAttendance(ctx context.Context, id string, req dto.MarkAttendanceRequest) (*models.EnrollmentDetail, error) {
	m.lastAttendance = &req
	return &models.EnrollmentDetail{}, nil
}

func (m *enrollmentServiceMock) Delete(ctx context.Context, id string) error {
	return nil
}

func TestEnrollmentHandlerListFilters(t *testing.T) {
	mockSvc := &enrollmentServiceMock{}
	h := NewEnrollmentHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/enrollments?courseId=c1&paymentStatus=Partial&status=ACTIVE", "")
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "c1", mockSvc.lastFilter.CourseID)
	assert.Equal(t, models.PaymentStatus("Partial"), mockSvc.lastFilter.PaymentStatus)
	assert.Equal(t, models.EnrollmentStatus("ACTIVE"), mockSvc.lastFilter.Status)
}

func TestEnrollmentHandlerCreateConflict(t *testing.T) {
	h := NewEnrollmentHandler(&enrollmentServiceMock{createErr: appErrors.Clone(appErrors.ErrConflict, "student already enrolled")})

	c, w := newTestContext(http.MethodPost, "/enrollments", `{"studentId":"s1","courseId":"c1","amountPaid":"100.50"}`)
	h.Create(c)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", decodeEnvelope(t, w).Error.Code)
}

func TestEnrollmentHandlerMarkAttendance(t *testing.T) {
	mockSvc := &enrollmentServiceMock{}
	h := NewEnrollmentHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/enrollments/e1/attendance", `{"date":"2024-01-03","mark":"present"}`)
	c.Params = gin.Params{{Key: "id", Value: "e1"}}
	h.MarkAttendance(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.lastAttendance)
	assert.Equal(t, "2024-01-03", mockSvc.lastAttendance.Date)
}
