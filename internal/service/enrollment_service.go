package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/langschool-api/internal/dto"
	"github.com/noah-isme/langschool-api/internal/models"
	"github.com/noah-isme/langschool-api/internal/scheduling"
	appErrors "github.com/noah-isme/langschool-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	ExistsActive(ctx context.Context, studentID, courseID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Update(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, id string) error
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type courseReader interface {
	Get(ctx context.Context, id string) (*models.Course, error)
}

// EnrollmentService links students to courses and tracks payment and attendance.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  studentReader
	courses   courseReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService. cache may be nil.
func NewEnrollmentService(repo enrollmentRepository, students studentReader, courses courseReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, courses: courses, cache: cache, validator: validate, logger: logger}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Persistence(err, "failed to list enrollments")
	}
	return items, pagination(filter.Page, filter.PageSize, total), nil
}

// Get returns an enrollment with student and course names.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "enrollment")
	}
	return detail, nil
}

// Create enrolls an active student into a course that has not been cancelled.
// The amount due defaults to the course price.
func (s *EnrollmentService) Create(ctx context.Context, req dto.CreateEnrollmentRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid enrollment payload")
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		return nil, loadError(err, "student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is inactive")
	}
	course, err := s.courses.Get(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	if course.Status == scheduling.StatusCancelled || course.Status == scheduling.StatusFinished {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course is not open for enrollment")
	}
	exists, err := s.repo.ExistsActive(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to check enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled in course")
	}

	due := course.Price
	if req.AmountDue != nil {
		due = *req.AmountDue
	}
	paid := decimal.Zero
	if req.AmountPaid != nil {
		paid = *req.AmountPaid
	}
	if err := checkAmounts(due, paid); err != nil {
		return nil, err
	}

	enrollment := models.Enrollment{
		StudentID:     req.StudentID,
		CourseID:      req.CourseID,
		Status:        models.EnrollmentStatusActive,
		PaymentStatus: models.DerivePaymentStatus(due, paid),
		AmountDue:     due,
		AmountPaid:    paid,
		Attendance:    models.AttendanceMap{},
	}
	if err := s.repo.Create(ctx, &enrollment); err != nil {
		return nil, appErrors.Persistence(err, "failed to create enrollment")
	}
	s.cache.Invalidate(ctx, "courses:")
	return &models.EnrollmentDetail{Enrollment: enrollment, StudentName: student.FullName, CourseName: course.Name}, nil
}

// Update changes status or payment amounts and re-derives the payment status.
func (s *EnrollmentService) Update(ctx context.Context, id string, req dto.UpdateEnrollmentRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid enrollment payload")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "enrollment")
	}
	if req.Status != nil {
		detail.Status = models.EnrollmentStatus(*req.Status)
	}
	if req.AmountDue != nil {
		detail.AmountDue = *req.AmountDue
	}
	if req.AmountPaid != nil {
		detail.AmountPaid = *req.AmountPaid
	}
	if err := checkAmounts(detail.AmountDue, detail.AmountPaid); err != nil {
		return nil, err
	}
	detail.PaymentStatus = models.DerivePaymentStatus(detail.AmountDue, detail.AmountPaid)
	if err := s.repo.Update(ctx, &detail.Enrollment); err != nil {
		return nil, saveError(err, "enrollment")
	}
	if req.Status != nil {
		s.cache.Invalidate(ctx, "courses:")
	}
	return detail, nil
}

// MarkAttendance records attendance for a date on which the course holds a session.
func (s *EnrollmentService) MarkAttendance(ctx context.Context, id string, req dto.MarkAttendanceRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attendance payload")
	}
	date, err := parseDate(req.Date, "date")
	if err != nil {
		return nil, err
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "enrollment")
	}
	course, err := s.courses.Get(ctx, detail.CourseID)
	if err != nil {
		return nil, err
	}
	key := scheduling.DateKey(date)
	if !hasSessionOn(course.Sessions, key) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course has no session on "+key)
	}
	if detail.Attendance == nil {
		detail.Attendance = models.AttendanceMap{}
	}
	detail.Attendance[key] = models.AttendanceMark(req.Mark)
	if err := s.repo.Update(ctx, &detail.Enrollment); err != nil {
		return nil, saveError(err, "enrollment")
	}
	return detail, nil
}

// Delete removes an enrollment.
func (s *EnrollmentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return saveError(err, "enrollment")
	}
	s.cache.Invalidate(ctx, "courses:")
	return nil
}

func checkAmounts(due, paid decimal.Decimal) error {
	if due.IsNegative() || paid.IsNegative() {
		return appErrors.Clone(appErrors.ErrValidation, "amounts must not be negative")
	}
	return nil
}

func hasSessionOn(sessions scheduling.SessionList, key string) bool {
	for _, session := range sessions {
		if scheduling.DateKey(session.Date) == key {
			return true
		}
	}
	return false
}
