package service

import (
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/langschool-api/internal/dto"
	"github.com/noah-isme/langschool-api/internal/scheduling"
	appErrors "github.com/noah-isme/langschool-api/pkg/errors"
)

func TestCreateCourseRequestPatternDecoding(t *testing.T) {
	body := `{"name":"English A1","level":"A1","startDate":"2024-01-01","totalSessions":4,
		"weeklyPattern":[{"day":"Monday","startTime":"10:00","endTime":"12:00"}]}`
	var req dto.CreateCourseRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	require.NoError(t, NewValidator().Struct(req))

	pattern := toPattern(req.WeeklyPattern)
	assert.Equal(t, scheduling.WeeklyPattern{{DayOfWeek: "Monday", StartTime: "10:00", EndTime: "12:00"}}, pattern)
	assert.NoError(t, pattern.Validate())
}

func TestValidatorSchedulingTags(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Struct(dto.UpdatePatternRequest{WeeklyPattern: monWedSlots()}))

	err := v.Struct(dto.UpdatePatternRequest{WeeklyPattern: []dto.PatternSlot{{Day: "Monday", StartTime: "25:00", EndTime: "12:00"}}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidPattern.Code, appErrors.FromError(validationError(err, "bad")).Code)

	err = v.Struct(dto.UpdateCourseSessionRequest{Status: scheduling.ClassSessionCompleted})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(validationError(err, "bad")).Code)

	assert.NoError(t, v.Struct(dto.UpdateClassSessionRequest{Status: scheduling.ClassSessionHolidayBreak}))
}

func TestLoadAndSaveErrors(t *testing.T) {
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(loadError(sql.ErrNoRows, "course")).Code)
	assert.Equal(t, appErrors.ErrPersistence.Code, appErrors.FromError(saveError(errors.New("boom"), "course")).Code)
}

func TestParseOptionalDate(t *testing.T) {
	blank := "  "
	got, err := parseOptionalDate(&blank, "endDate")
	require.NoError(t, err)
	assert.Nil(t, got)

	raw := "2024-01-15"
	got, err = parseOptionalDate(&raw, "endDate")
	require.NoError(t, err)
	assert.Equal(t, onDay(14), *got)

	bad := "2024-13-01"
	_, err = parseOptionalDate(&bad, "endDate")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPaginationDefaults(t *testing.T) {
	p := pagination(0, 0, 42)
	assert.Equal(t, 1, p.Page)
	assert.Positive(t, p.PageSize)
	assert.Equal(t, 42, p.TotalCount)
}
