package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/langschool-api/internal/dto"
	"github.com/noah-isme/langschool-api/internal/models"
	appErrors "github.com/noah-isme/langschool-api/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Deactivate(ctx context.Context, id string) error
}

// TeacherService manages instructors assigned to courses and classes.
type TeacherService struct {
	repo      teacherRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherRepository, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, validator: validate, logger: logger}
}

// List returns teachers plus pagination data.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Persistence(err, "failed to list teachers")
	}
	return teachers, pagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a teacher by id.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "teacher")
	}
	return teacher, nil
}

// Create registers a new teacher.
func (s *TeacherService) Create(ctx context.Context, req dto.TeacherRequest) (*models.Teacher, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueEmail(ctx, req.Email, ""); err != nil {
		return nil, err
	}
	teacher := &models.Teacher{Active: true}
	applyTeacher(teacher, req)
	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Persistence(err, "failed to create teacher")
	}
	return teacher, nil
}

// Update replaces a teacher's editable fields.
func (s *TeacherService) Update(ctx context.Context, id string, req dto.TeacherRequest) (*models.Teacher, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "teacher")
	}
	if err := s.ensureUniqueEmail(ctx, req.Email, id); err != nil {
		return nil, err
	}
	applyTeacher(teacher, req)
	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, saveError(err, "teacher")
	}
	return teacher, nil
}

// Deactivate marks a teacher inactive. Existing schedules keep the reference.
func (s *TeacherService) Deactivate(ctx context.Context, id string) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return saveError(err, "teacher")
	}
	return nil
}

func (s *TeacherService) ensureUniqueEmail(ctx context.Context, email, excludeID string) error {
	exists, err := s.repo.ExistsByEmail(ctx, strings.TrimSpace(email), excludeID)
	if err != nil {
		return appErrors.Persistence(err, "failed to check email uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "email already used")
	}
	return nil
}

// validate normalises list fields in place before checking the payload, so
// "b1" and " English " are accepted.
func (s *TeacherService) validate(req *dto.TeacherRequest) error {
	req.Languages = normalizeList(req.Languages, strings.TrimSpace)
	req.Levels = normalizeList(req.Levels, func(v string) string { return strings.ToUpper(strings.TrimSpace(v)) })
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid teacher payload")
	}
	if req.HourlyRate != nil && req.HourlyRate.IsNegative() {
		return appErrors.Clone(appErrors.ErrValidation, "hourlyRate must not be negative")
	}
	return nil
}

func applyTeacher(teacher *models.Teacher, req dto.TeacherRequest) {
	teacher.Email = strings.TrimSpace(req.Email)
	teacher.FullName = strings.TrimSpace(req.FullName)
	teacher.Phone = normalizeOptional(req.Phone)
	teacher.NativeLanguage = normalizeOptional(req.NativeLanguage)
	teacher.Languages = pq.StringArray(req.Languages)
	teacher.Levels = pq.StringArray(req.Levels)
	teacher.KindergartenQualified = req.KindergartenQualified
	teacher.HourlyRate = decimal.NullDecimal{}
	if req.HourlyRate != nil {
		teacher.HourlyRate = decimal.NullDecimal{Decimal: *req.HourlyRate, Valid: true}
	}
	teacher.BranchID = normalizeOptional(req.BranchID)
	if req.Active != nil {
		teacher.Active = *req.Active
	}
}

// normalizeList applies clean to every entry and drops blanks and
// case-insensitive duplicates. The result is never nil.
func normalizeList(values []string, clean func(string) string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = clean(v)
		key := strings.ToLower(v)
		if v == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
