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

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListSchedulable(ctx context.Context) ([]models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

// CourseService runs the course lifecycle against persistence. Each mutation
// loads the course, applies one lifecycle operation to a copy, saves the whole
// record and only then publishes events.
type CourseService struct {
	repo      courseRepository
	support   *scheduleSupport
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseRepository, lifecycle *scheduling.Lifecycle, deps ScheduleDeps, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if lifecycle == nil {
		lifecycle = scheduling.NewCourseLifecycle(false)
	}
	return &CourseService{
		repo:      repo,
		support:   newScheduleSupport(lifecycle, deps, "courses:", logger),
		validator: validate,
		logger:    logger,
	}
}

// List returns courses plus pagination data.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	var page cachedPage[models.Course]
	err := s.support.deps.Cache.Remember(ctx, s.support.listKey(filter), &page, func() error {
		items, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return appErrors.Persistence(err, "failed to list courses")
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

// Get returns a course with derived fields filled in.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	err := s.support.deps.Cache.Remember(ctx, s.support.detailKey(id), &course, func() error {
		found, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return loadError(err, "course")
		}
		course = *found
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.support.lifecycle.Refresh(&course.Schedule, s.support.now())
	return &course, nil
}

// Create validates the payload, projects the calendar around known holidays and stores the course.
func (s *CourseService) Create(ctx context.Context, req dto.CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid course payload")
	}
	if req.Price.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "price must not be negative")
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

	course := &models.Course{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Level:       strings.TrimSpace(req.Level),
		Description: normalizeOptional(req.Description),
		TeacherID:   normalizeOptional(req.TeacherID),
		BranchID:    normalizeOptional(req.BranchID),
		Price:       req.Price,
	}
	res, err := s.support.lifecycle.Create(course.Ref(), scheduling.CreateInput{
		WeeklyPattern: toPattern(req.WeeklyPattern),
		StartDate:     start,
		TotalSessions: req.TotalSessions,
		EndDate:       end,
		Holidays:      holidays,
	}, s.support.now())
	if err != nil {
		return nil, err
	}
	course.Schedule = *res.Schedule

	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Persistence(err, "failed to create course")
	}
	s.support.committed(ctx, res)
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.Int("sessions", len(course.Sessions)))
	return course, nil
}

// Update applies the allow-listed attribute changes. Setting status to
// Cancelled cancels the course.
func (s *CourseService) Update(ctx context.Context, id string, req dto.UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid course payload")
	}
	if req.Price != nil && req.Price.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "price must not be negative")
	}
	end, err := parseOptionalDate(req.EndDate, "endDate")
	if err != nil {
		return nil, err
	}

	course, _, err := s.mutate(ctx, id, func(course *models.Course, now time.Time) (*scheduling.Result, error) {
		if req.Name != nil {
			course.Name = strings.TrimSpace(*req.Name)
		}
		if req.Level != nil {
			course.Level = strings.TrimSpace(*req.Level)
		}
		if req.Description != nil {
			course.Description = normalizeOptional(req.Description)
		}
		if req.TeacherID != nil {
			course.TeacherID = normalizeOptional(req.TeacherID)
		}
		if req.BranchID != nil {
			course.BranchID = normalizeOptional(req.BranchID)
		}
		if req.Price != nil {
			course.Price = *req.Price
		}

		schedule := &course.Schedule
		if req.ClearEndDate {
			schedule = s.support.lifecycle.SetEndDate(schedule, nil, now)
		} else if end != nil {
			schedule = s.support.lifecycle.SetEndDate(schedule, end, now)
		}

		if req.Status != nil && *req.Status == string(scheduling.StatusCancelled) {
			res, err := s.support.lifecycle.Cancel(course.Ref(), schedule, now)
			if err != nil {
				return nil, err
			}
			if res.Changed {
				return res, nil
			}
		}
		return &scheduling.Result{
			Schedule: schedule,
			Events:   []scheduling.Event{scheduling.NewEntityEvent(s.support.entityType(), course.Ref(), scheduling.ActionUpdate, now)},
			Changed:  true,
		}, nil
	})
	return course, err
}

// Cancel sets the terminal Cancelled status.
func (s *CourseService) Cancel(ctx context.Context, id string) (*models.Course, error) {
	course, _, err := s.mutate(ctx, id, func(course *models.Course, now time.Time) (*scheduling.Result, error) {
		return s.support.lifecycle.Cancel(course.Ref(), &course.Schedule, now)
	})
	return course, err
}

// UpdatePattern replaces the weekly pattern and regenerates the calendar.
func (s *CourseService) UpdatePattern(ctx context.Context, id string, req dto.UpdatePatternRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid pattern payload")
	}
	holidays, err := s.support.holidaySet(ctx)
	if err != nil {
		return nil, err
	}
	course, _, err := s.mutate(ctx, id, func(course *models.Course, now time.Time) (*scheduling.Result, error) {
		return s.support.lifecycle.RegenerateSchedule(course.Ref(), &course.Schedule, toPattern(req.WeeklyPattern), holidays, now)
	})
	return course, err
}

// UpdateSessionStatus sets one session's status. An absence appends a
// make-up session unless the request sets compensate to false.
func (s *CourseService) UpdateSessionStatus(ctx context.Context, id string, index int, req dto.UpdateCourseSessionRequest) (*models.Course, *scheduling.Session, error) {
	if !scheduling.CourseTaxonomy.Valid(req.Status) {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidStatus, "unknown course session status "+req.Status)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, validationError(err, "invalid session payload")
	}
	course, res, err := s.mutate(ctx, id, func(course *models.Course, now time.Time) (*scheduling.Result, error) {
		return s.support.lifecycle.UpdateSessionStatus(course.Ref(), &course.Schedule, index, scheduling.StatusChange{
			Status:     req.Status,
			Notes:      req.Notes,
			Compensate: req.Compensate,
		}, now)
	})
	if err != nil {
		return nil, nil, err
	}
	return course, res.Compensation, nil
}

// AddCustomSession records an off-pattern session.
func (s *CourseService) AddCustomSession(ctx context.Context, id string, req dto.AddCustomSessionRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid session payload")
	}
	date, err := parseDate(req.Date, "date")
	if err != nil {
		return nil, err
	}
	course, _, err := s.mutate(ctx, id, func(course *models.Course, now time.Time) (*scheduling.Result, error) {
		return s.support.lifecycle.AddCustomSession(course.Ref(), &course.Schedule, scheduling.CustomSession{
			Date:      date,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			Notes:     strings.TrimSpace(req.Notes),
		}, now)
	})
	return course, err
}

// DeleteSession removes the session at index.
func (s *CourseService) DeleteSession(ctx context.Context, id string, index int) (*models.Course, error) {
	course, _, err := s.mutate(ctx, id, func(course *models.Course, now time.Time) (*scheduling.Result, error) {
		return s.support.lifecycle.DeleteSessionAt(course.Ref(), &course.Schedule, index, now)
	})
	return course, err
}

// ApplyHolidays runs the holiday overlay on one course.
func (s *CourseService) ApplyHolidays(ctx context.Context, id string) (*models.Course, int, error) {
	holidays, err := s.support.holidaySet(ctx)
	if err != nil {
		return nil, 0, err
	}
	course, res, err := s.mutate(ctx, id, func(course *models.Course, now time.Time) (*scheduling.Result, error) {
		return s.support.lifecycle.ApplyHolidaySet(course.Ref(), &course.Schedule, holidays, now)
	})
	if err != nil {
		return nil, 0, err
	}
	return course, res.HolidayMarks, nil
}

// SweepHolidays applies the holiday set to every running course one at a
// time. A failing course is recorded and the sweep moves on.
func (s *CourseService) SweepHolidays(ctx context.Context, holidays []scheduling.Holiday, result *models.HolidaySweepResult) error {
	courses, err := s.repo.ListSchedulable(ctx)
	if err != nil {
		return appErrors.Persistence(err, "failed to list courses")
	}
	for i := range courses {
		course := &courses[i]
		result.Scanned++
		now := s.support.now()
		s.support.lifecycle.Refresh(&course.Schedule, now)
		res, err := s.support.lifecycle.ApplyHolidaySet(course.Ref(), &course.Schedule, holidays, now)
		if err != nil {
			s.support.sweepFailure(result, course.ID, err)
			continue
		}
		if !res.Changed {
			continue
		}
		course.Schedule = *res.Schedule
		if err := s.repo.Update(ctx, course); err != nil {
			s.support.sweepFailure(result, course.ID, saveError(err, "course"))
			continue
		}
		result.Updated++
		result.Marked += res.HolidayMarks
		s.support.committed(ctx, res)
	}
	return nil
}

// Delete removes a course.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return loadError(err, "course")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return saveError(err, "course")
	}
	s.support.entityEvent(ctx, course.Ref(), scheduling.ActionDelete)
	return nil
}

// Sessions returns the ledger of one course.
func (s *CourseService) Sessions(ctx context.Context, id string) (scheduling.SessionList, error) {
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return course.Sessions, nil
}

func (s *CourseService) mutate(ctx context.Context, id string, op func(*models.Course, time.Time) (*scheduling.Result, error)) (*models.Course, *scheduling.Result, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, loadError(err, "course")
	}
	now := s.support.now()
	s.support.lifecycle.Refresh(&course.Schedule, now)

	res, err := op(course, now)
	if err != nil {
		return nil, nil, err
	}
	if !res.Changed {
		return course, res, nil
	}
	course.Schedule = *res.Schedule
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, nil, saveError(err, "course")
	}
	s.support.committed(ctx, res)
	return course, res, nil
}
