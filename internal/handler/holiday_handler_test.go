package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/langschool-api/internal/dto"
	"github.com/noah-isme/langschool-api/internal/models"
)

type holidayServiceMock struct {
	lastFilter *models.HolidayFilter
	created    *dto.HolidayRequest
	sweeps     int
}

func (m *holidayServiceMock) List(ctx context.Context, filter models.HolidayFilter) ([]models.Holiday, error) {
	m.lastFilter = &filter
	return []models.Holiday{}, nil
}

func (m *holidayServiceMock) Get(ctx context.Context, id string) (*models.Holiday, error) {
	return &models.Holiday{ID: id}, nil
}

func (m *holidayServiceMock) Create(ctx context.Context, req dto.HolidayRequest) (*models.Holiday, *models.HolidaySweepResult, error) {
	m.created = &req
	return &models.Holiday{ID: "h1", Name: req.Name}, &models.HolidaySweepResult{Scanned: 3, Updated: 1, Marked: 2}, nil
}

func (m *holidayServiceMock) Update(ctx context.Context, id string, req dto.HolidayRequest) (*models.Holiday, *models.HolidaySweepResult, error) {
	return &models.Holiday{ID: id, Name: req.Name}, &models.HolidaySweepResult{}, nil
}

func (m *holidayServiceMock) Delete(ctx context.Context, id string) error {
	return nil
}

func (m *holidayServiceMock) Sweep(ctx context.Context) (*models.HolidaySweepResult, error) {
	m.sweeps++
	return &models.HolidaySweepResult{Scanned: 5}, nil
}

func TestHolidayHandlerListWindow(t *testing.T) {
	mockSvc := &holidayServiceMock{}
	h := NewHolidayHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/holidays?from=2024-01-01&to=2024-12-31", "")
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.lastFilter.From)
	require.NotNil(t, mockSvc.lastFilter.To)
	assert.Equal(t, "2024-12-31", mockSvc.lastFilter.To.Format("2006-01-02"))

	mockSvc.lastFilter = nil
	c, w = newTestContext(http.MethodGet, "/holidays?from=01/02/2024", "")
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, mockSvc.lastFilter)
}

func TestHolidayHandlerCreateReturnsSweep(t *testing.T) {
	mockSvc := &holidayServiceMock{}
	h := NewHolidayHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/holidays", `{"name":"Tet","startDate":"2024-02-08","endDate":"2024-02-14"}`)
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, mockSvc.created)
	assert.Equal(t, "2024-02-14", mockSvc.created.EndDate)
	sweep, ok := decodeEnvelope(t, w).Meta["sweep"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 2, sweep["marked"])
}

func TestHolidayHandlerApply(t *testing.T) {
	mockSvc := &holidayServiceMock{}
	h := NewHolidayHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/holidays/apply", "")
	h.Apply(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, mockSvc.sweeps)
	assert.JSONEq(t, `{"scanned":5,"updated":0,"marked":0,"failed":0}`, string(decodeEnvelope(t, w).Data))
}
