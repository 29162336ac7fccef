package service

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/langschool-api/internal/dto"
	"github.com/noah-isme/langschool-api/internal/models"
	"github.com/noah-isme/langschool-api/internal/scheduling"
	appErrors "github.com/noah-isme/langschool-api/pkg/errors"
)

const dateLayout = "2006-01-02"

// NewValidator returns a validator with the scheduling tags registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	if err := RegisterValidators(v); err != nil {
		panic(err)
	}
	return v
}

// RegisterValidators adds weekday, hhmm, course_session_status and
// class_session_status to an existing validator.
func RegisterValidators(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"weekday": func(fl validator.FieldLevel) bool {
			_, err := scheduling.ParseWeekday(fl.Field().String())
			return err == nil
		},
		"hhmm": func(fl validator.FieldLevel) bool {
			return scheduling.ValidTimeOfDay(fl.Field().String())
		},
		"course_session_status": func(fl validator.FieldLevel) bool {
			return scheduling.CourseTaxonomy.Valid(fl.Field().String())
		},
		"class_session_status": func(fl validator.FieldLevel) bool {
			return scheduling.ClassTaxonomy.Valid(fl.Field().String())
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// validationError maps struct validation failures. Pattern field failures
// surface as INVALID_PATTERN so clients see the same code the engine uses.
func validationError(err error, message string) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			if strings.Contains(fe.Namespace(), "WeeklyPattern") {
				return appErrors.Wrap(err, appErrors.ErrInvalidPattern.Code, appErrors.ErrInvalidPattern.Status, "invalid weekly pattern")
			}
		}
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// loadError turns a repository lookup failure into a not-found or persistence
// error. Errors that already carry a code are returned as they are.
func loadError(err error, entity string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
	}
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return err
	}
	return appErrors.Persistence(err, "failed to load "+entity)
}

// saveError is loadError for writes.
func saveError(err error, entity string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
	}
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return err
	}
	return appErrors.Persistence(err, "failed to save "+entity)
}

func parseDate(raw, field string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, field+" must be YYYY-MM-DD")
	}
	return t, nil
}

func parseOptionalDate(raw *string, field string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := parseDate(*raw, field)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func pagination(page, size, total int) *models.Pagination {
	page, size = models.Page(page, size)
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}

// toPattern converts request slots into the stored pattern form.
func toPattern(slots []dto.PatternSlot) scheduling.WeeklyPattern {
	pattern := make(scheduling.WeeklyPattern, 0, len(slots))
	for _, slot := range slots {
		pattern = append(pattern, scheduling.PatternSlot{
			DayOfWeek: slot.Day,
			StartTime: slot.StartTime,
			EndTime:   slot.EndTime,
		})
	}
	return pattern
}
