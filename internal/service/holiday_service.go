package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/langschool-api/internal/dto"
	"github.com/noah-isme/langschool-api/internal/models"
	"github.com/noah-isme/langschool-api/internal/scheduling"
	appErrors "github.com/noah-isme/langschool-api/pkg/errors"
)

type holidayRepository interface {
	List(ctx context.Context, filter models.HolidayFilter) ([]models.Holiday, error)
	FindByID(ctx context.Context, id string) (*models.Holiday, error)
	Create(ctx context.Context, holiday *models.Holiday) error
	Update(ctx context.Context, holiday *models.Holiday) error
	Delete(ctx context.Context, id string) error
}

// HolidaySweeper applies a holiday set to every running entity it owns.
type HolidaySweeper interface {
	SweepHolidays(ctx context.Context, holidays []scheduling.Holiday, result *models.HolidaySweepResult) error
}

// HolidayService manages the holiday calendar and pushes it onto schedules.
type HolidayService struct {
	repo      holidayRepository
	sweepers  []HolidaySweeper
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHolidayService constructs a HolidayService. Sweepers run in the given order.
func NewHolidayService(repo holidayRepository, validate *validator.Validate, logger *zap.Logger, sweepers ...HolidaySweeper) *HolidayService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HolidayService{repo: repo, sweepers: sweepers, validator: validate, logger: logger}
}

// List returns holidays overlapping the filter window.
func (s *HolidayService) List(ctx context.Context, filter models.HolidayFilter) ([]models.Holiday, error) {
	holidays, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to list holidays")
	}
	return holidays, nil
}

// Get returns one holiday.
func (s *HolidayService) Get(ctx context.Context, id string) (*models.Holiday, error) {
	holiday, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "holiday")
	}
	return holiday, nil
}

// Create stores a holiday and applies the full holiday set to running schedules.
func (s *HolidayService) Create(ctx context.Context, req dto.HolidayRequest) (*models.Holiday, *models.HolidaySweepResult, error) {
	holiday, err := s.fromRequest(req)
	if err != nil {
		return nil, nil, err
	}
	if err := s.repo.Create(ctx, holiday); err != nil {
		return nil, nil, appErrors.Persistence(err, "failed to create holiday")
	}
	result, err := s.Sweep(ctx)
	if err != nil {
		return holiday, nil, err
	}
	return holiday, result, nil
}

// Update replaces a holiday and re-applies the set.
func (s *HolidayService) Update(ctx context.Context, id string, req dto.HolidayRequest) (*models.Holiday, *models.HolidaySweepResult, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, loadError(err, "holiday")
	}
	holiday, err := s.fromRequest(req)
	if err != nil {
		return nil, nil, err
	}
	holiday.ID = existing.ID
	holiday.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, holiday); err != nil {
		return nil, nil, saveError(err, "holiday")
	}
	result, err := s.Sweep(ctx)
	if err != nil {
		return holiday, nil, err
	}
	return holiday, result, nil
}

// Delete removes a holiday. Sessions it already marked keep their status.
func (s *HolidayService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return saveError(err, "holiday")
	}
	return nil
}

// Sweep applies every holiday to every running course and class. Entities
// are processed sequentially without a shared transaction; a failure on one
// is recorded and the sweep continues.
func (s *HolidayService) Sweep(ctx context.Context) (*models.HolidaySweepResult, error) {
	holidays, err := s.repo.List(ctx, models.HolidayFilter{})
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load holidays")
	}
	ranges := models.HolidayRanges(holidays)
	result := &models.HolidaySweepResult{}
	for _, sweeper := range s.sweepers {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := sweeper.SweepHolidays(ctx, ranges, result); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, err.Error())
			s.logger.Error("holiday sweep aborted for entity kind", zap.Error(err))
		}
	}
	s.logger.Info("holiday sweep finished",
		zap.Int("holidays", len(ranges)),
		zap.Int("scanned", result.Scanned),
		zap.Int("updated", result.Updated),
		zap.Int("marked", result.Marked),
		zap.Int("failed", result.Failed))
	return result, nil
}

func (s *HolidayService) fromRequest(req dto.HolidayRequest) (*models.Holiday, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid holiday payload")
	}
	start, err := parseDate(req.StartDate, "startDate")
	if err != nil {
		return nil, err
	}
	end := start
	if strings.TrimSpace(req.EndDate) != "" {
		if end, err = parseDate(req.EndDate, "endDate"); err != nil {
			return nil, err
		}
	}
	r := scheduling.Holiday{Name: strings.TrimSpace(req.Name), StartDate: start, EndDate: end}.Normalize()
	return &models.Holiday{
		Name:        r.Name,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		Description: normalizeOptional(req.Description),
	}, nil
}
