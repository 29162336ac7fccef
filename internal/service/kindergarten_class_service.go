package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/langschool-api/internal/dto"
	"github.com/noah-isme/langschool-api/internal/models"
	"github.com/noah-isme/langschool-api/internal/scheduling"
	appErrors "github.com/noah-isme/langschool-api/pkg/errors"
)

type kindergartenClassRepository interface {
	List(ctx context.Context, filter models.KindergartenClassFilter) ([]models.KindergartenClass, int, error)
	FindByID(ctx context.Context, id string) (*models.KindergartenClass, error)
	ListSchedulable(ctx context.Context) ([]models.KindergartenClass, error)
	Create(ctx context.Context, class *models.KindergartenClass) error
	Update(ctx context.Context, class *models.KindergartenClass) error
	Delete(ctx context.Context, id string) error
}

// KindergartenClassService runs the class lifecycle. Classes use the class
// taxonomy: compensation is only appended on explicit request and there is no
// cancelled aggregate status.
type KindergartenClassService struct {
	repo      kindergartenClassRepository
	support   *scheduleSupport
	validator *validator.Validate
	logger    *zap.Logger
}

// NewKindergartenClassService constructs a KindergartenClassService.
func NewKindergartenClassService(repo kindergartenClassRepository, lifecycle *scheduling.Lifecycle, deps ScheduleDeps, validate *validator.Validate, logger *zap.Logger) *KindergartenClassService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if lifecycle == nil {
		lifecycle = scheduling.NewClassLifecycle(false)
	}
	return &KindergartenClassService{
		repo:      repo,
		support:   newScheduleSupport(lifecycle, deps, "classes:", logger),
		validator: validate,
		logger:    logger,
	}
}

// List returns classes plus pagination data.
func (s *KindergartenClassService) List(ctx context.Context, filter models.KindergartenClassFilter) ([]models.KindergartenClass, *models.Pagination, error) {
	var page cachedPage[models.KindergartenClass]
	err := s.support.deps.Cache.Remember(ctx, s.support.listKey(filter), &page, func() error {
		items, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return appErrors.Persistence(err, "failed to list kindergarten classes")
		}
		page.Items, page.Total = items, total
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	now := s.support.now()
	for i := range page.Items {
		s.support.lifecycle.Refresh(&page.Items[i].Schedule, now)
	}
	return page.Items, pagination(filter.Page, filter.PageSize, page.Total), nil
}

// Get returns a class with derived fields filled in.
func (s *KindergartenClassService) Get(ctx context.Context, id string) (*models.KindergartenClass, error) {
	var class models.KindergartenClass
	err := s.support.deps.Cache.Remember(ctx, s.support.detailKey(id), &class, func() error {
		found, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return loadError(err, "kindergarten class")
		}
		class = *found
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.support.lifecycle.Refresh(&class.Schedule, s.support.now())
	return &class, nil
}

// Create validates the payload and generates the class calendar.
func (s *KindergartenClassService) Create(ctx context.Context, req dto.CreateKindergartenClassRequest) (*models.KindergartenClass, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid kindergarten class payload")
	}
	start, err := parseDate(req.StartDate, "startDate")
	if err != nil {
		return nil, err
	}
	end, err := parseOptionalDate(req.EndDate, "endDate")
	if err != nil {
		return nil, err
	}
	holidays, err := s.support.holidaySet(ctx)
	if err != nil {
		return nil, err
	}

	class := &models.KindergartenClass{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		AgeGroup:    strings.TrimSpace(req.AgeGroup),
		Description: normalizeOptional(req.Description),
		TeacherID:   normalizeOptional(req.TeacherID),
		BranchID:    normalizeOptional(req.BranchID),
		Capacity:    req.Capacity,
	}
	res, err := s.support.lifecycle.Create(class.Ref(), scheduling.CreateInput{
		WeeklyPattern: toPattern(req.WeeklyPattern),
		StartDate:     start,
		TotalSessions: req.TotalSessions,
		EndDate:       end,
		Holidays:      holidays,
	}, s.support.now())
	if err != nil {
		return nil, err
	}
	class.Schedule = *res.Schedule

	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Persistence(err, "failed to create kindergarten class")
	}
	s.support.committed(ctx, res)
	return class, nil
}

// Update applies the allow-listed attribute changes.
func (s *KindergartenClassService) Update(ctx context.Context, id string, req dto.UpdateKindergartenClassRequest) (*models.KindergartenClass, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid kindergarten class payload")
	}
	end, err := parseOptionalDate(req.EndDate, "endDate")
	if err != nil {
		return nil, err
	}
	class, _, err := s.mutate(ctx, id, func(class *models.KindergartenClass, now time.Time) (*scheduling.Result, error) {
		if req.Name != nil {
			class.Name = strings.TrimSpace(*req.Name)
		}
		if req.AgeGroup != nil {
			class.AgeGroup = strings.TrimSpace(*req.AgeGroup)
		}
		if req.Description != nil {
			class.Description = normalizeOptional(req.Description)
		}
		if req.TeacherID != nil {
			class.TeacherID = normalizeOptional(req.TeacherID)
		}
		if req.BranchID != nil {
			class.BranchID = normalizeOptional(req.BranchID)
		}
		if req.Capacity != nil {
			class.Capacity = *req.Capacity
		}
		schedule := &class.Schedule
		if req.ClearEndDate {
			schedule = s.support.lifecycle.SetEndDate(schedule, nil, now)
		} else if end != nil {
			schedule = s.support.lifecycle.SetEndDate(schedule, end, now)
		}
		return &scheduling.Result{
			Schedule: schedule,
			Events:   []scheduling.Event{scheduling.NewEntityEvent(s.support.entityType(), class.Ref(), scheduling.ActionUpdate, now)},
			Changed:  true,
		}, nil
	})
	return class, err
}

// UpdatePattern replaces the weekly pattern and regenerates the calendar.
func (s *KindergartenClassService) UpdatePattern(ctx context.Context, id string, req dto.UpdatePatternRequest) (*models.KindergartenClass, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid pattern payload")
	}
	holidays, err := s.support.holidaySet(ctx)
	if err != nil {
		return nil, err
	}
	class, _, err := s.mutate(ctx, id, func(class *models.KindergartenClass, now time.Time) (*scheduling.Result, error) {
		return s.support.lifecycle.RegenerateSchedule(class.Ref(), &class.Schedule, toPattern(req.WeeklyPattern), holidays, now)
	})
	return class, err
}

// UpdateSessionStatus sets one session's status and appends a compensatory
// session only when AddCompensatory is true.
func (s *KindergartenClassService) UpdateSessionStatus(ctx context.Context, id string, index int, req dto.UpdateClassSessionRequest) (*models.KindergartenClass, *scheduling.Session, error) {
	if !scheduling.ClassTaxonomy.Valid(req.Status) {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidStatus, "unknown class session status "+req.Status)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, validationError(err, "invalid session payload")
	}
	class, res, err := s.mutate(ctx, id, func(class *models.KindergartenClass, now time.Time) (*scheduling.Result, error) {
		return s.support.lifecycle.UpdateSessionStatus(class.Ref(), &class.Schedule, index, scheduling.StatusChange{
			Status:     req.Status,
			Notes:      req.Notes,
			Compensate: req.AddCompensatory,
		}, now)
	})
	if err != nil {
		return nil, nil, err
	}
	return class, res.Compensation, nil
}

// AddCustomSession records an off-pattern session.
func (s *KindergartenClassService) AddCustomSession(ctx context.Context, id string, req dto.AddCustomSessionRequest) (*models.KindergartenClass, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid session payload")
	}
	date, err := parseDate(req.Date, "date")
	if err != nil {
		return nil, err
	}
	class, _, err := s.mutate(ctx, id, func(class *models.KindergartenClass, now time.Time) (*scheduling.Result, error) {
		return s.support.lifecycle.AddCustomSession(class.Ref(), &class.Schedule, scheduling.CustomSession{
			Date:      date,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			Notes:     strings.TrimSpace(req.Notes),
		}, now)
	})
	return class, err
}

// DeleteSession removes the session at index.
func (s *KindergartenClassService) DeleteSession(ctx context.Context, id string, index int) (*models.KindergartenClass, error) {
	class, _, err := s.mutate(ctx, id, func(class *models.KindergartenClass, now time.Time) (*scheduling.Result, error) {
		return s.support.lifecycle.DeleteSessionAt(class.Ref(), &class.Schedule, index, now)
	})
	return class, err
}

// ApplyHolidays runs the holiday overlay on one class.
func (s *KindergartenClassService) ApplyHolidays(ctx context.Context, id string) (*models.KindergartenClass, int, error) {
	holidays, err := s.support.holidaySet(ctx)
	if err != nil {
		return nil, 0, err
	}
	class, res, err := s.mutate(ctx, id, func(class *models.KindergartenClass, now time.Time) (*scheduling.Result, error) {
		return s.support.lifecycle.ApplyHolidaySet(class.Ref(), &class.Schedule, holidays, now)
	})
	if err != nil {
		return nil, 0, err
	}
	return class, res.HolidayMarks, nil
}

// SweepHolidays applies the holiday set to every running class one at a time.
func (s *KindergartenClassService) SweepHolidays(ctx context.Context, holidays []scheduling.Holiday, result *models.HolidaySweepResult) error {
	classes, err := s.repo.ListSchedulable(ctx)
	if err != nil {
		return appErrors.Persistence(err, "failed to list kindergarten classes")
	}
	for i := range classes {
		class := &classes[i]
		result.Scanned++
		now := s.support.now()
		s.support.lifecycle.Refresh(&class.Schedule, now)
		res, err := s.support.lifecycle.ApplyHolidaySet(class.Ref(), &class.Schedule, holidays, now)
		if err != nil {
			s.support.sweepFailure(result, class.ID, err)
			continue
		}
		if !res.Changed {
			continue
		}
		class.Schedule = *res.Schedule
		if err := s.repo.Update(ctx, class); err != nil {
			s.support.sweepFailure(result, class.ID, saveError(err, "kindergarten class"))
			continue
		}
		result.Updated++
		result.Marked += res.HolidayMarks
		s.support.committed(ctx, res)
	}
	return nil
}

// Delete removes a class.
func (s *KindergartenClassService) Delete(ctx context.Context, id string) error {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return loadError(err, "kindergarten class")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return saveError(err, "kindergarten class")
	}
	s.support.entityEvent(ctx, class.Ref(), scheduling.ActionDelete)
	return nil
}

// Sessions returns the ledger of one class.
func (s *KindergartenClassService) Sessions(ctx context.Context, id string) (scheduling.SessionList, error) {
	class, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return class.Sessions, nil
}

func (s *KindergartenClassService) mutate(ctx context.Context, id string, op func(*models.KindergartenClass, time.Time) (*scheduling.Result, error)) (*models.KindergartenClass, *scheduling.Result, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, loadError(err, "kindergarten class")
	}
	now := s.support.now()
	s.support.lifecycle.Refresh(&class.Schedule, now)

	res, err := op(class, now)
	if err != nil {
		return nil, nil, err
	}
	if !res.Changed {
		return class, res, nil
	}
	class.Schedule = *res.Schedule
	if err := s.repo.Update(ctx, class); err != nil {
		return nil, nil, saveError(err, "kindergarten class")
	}
	s.support.committed(ctx, res)
	return class, res, nil
}
