package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/langschool-api/internal/dto"
	"github.com/noah-isme/langschool-api/internal/models"
	appErrors "github.com/noah-isme/langschool-api/pkg/errors"
)

type organizationRepository interface {
	ListRegions(ctx context.Context, filter models.OrganizationFilter) ([]models.Region, int, error)
	FindRegion(ctx context.Context, id string) (*models.Region, error)
	CreateRegion(ctx context.Context, region *models.Region) error
	DeleteRegion(ctx context.Context, id string) error
	ListSchools(ctx context.Context, filter models.OrganizationFilter) ([]models.School, int, error)
	FindSchool(ctx context.Context, id string) (*models.School, error)
	CreateSchool(ctx context.Context, school *models.School) error
	DeleteSchool(ctx context.Context, id string) error
	ListBranches(ctx context.Context, filter models.OrganizationFilter) ([]models.Branch, int, error)
	FindBranch(ctx context.Context, id string) (*models.Branch, error)
	CreateBranch(ctx context.Context, branch *models.Branch) error
	DeleteBranch(ctx context.Context, id string) error
}

// Postgres SQLSTATE codes surfaced as conflicts.
const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
)

// OrganizationService manages regions, schools and branches.
type OrganizationService struct {
	repo      organizationRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOrganizationService constructs an OrganizationService.
func NewOrganizationService(repo organizationRepository, validate *validator.Validate, logger *zap.Logger) *OrganizationService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrganizationService{repo: repo, validator: validate, logger: logger}
}

// ListRegions returns regions.
func (s *OrganizationService) ListRegions(ctx context.Context, filter models.OrganizationFilter) ([]models.Region, *models.Pagination, error) {
	items, total, err := s.repo.ListRegions(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Persistence(err, "failed to list regions")
	}
	return items, pagination(filter.Page, filter.PageSize, total), nil
}

// GetRegion returns one region.
func (s *OrganizationService) GetRegion(ctx context.Context, id string) (*models.Region, error) {
	region, err := s.repo.FindRegion(ctx, id)
	if err != nil {
		return nil, loadError(err, "region")
	}
	return region, nil
}

// CreateRegion stores a region. Codes are upper-cased and unique.
func (s *OrganizationService) CreateRegion(ctx context.Context, req dto.RegionRequest) (*models.Region, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid region payload")
	}
	region := &models.Region{
		Name: strings.TrimSpace(req.Name),
		Code: strings.ToUpper(strings.TrimSpace(req.Code)),
	}
	if err := s.repo.CreateRegion(ctx, region); err != nil {
		return nil, constraintError(err, "region")
	}
	return region, nil
}

// DeleteRegion removes a region without schools.
func (s *OrganizationService) DeleteRegion(ctx context.Context, id string) error {
	if err := s.repo.DeleteRegion(ctx, id); err != nil {
		return constraintError(err, "region")
	}
	return nil
}

// ListSchools returns schools, optionally within one region.
func (s *OrganizationService) ListSchools(ctx context.Context, filter models.OrganizationFilter) ([]models.School, *models.Pagination, error) {
	items, total, err := s.repo.ListSchools(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Persistence(err, "failed to list schools")
	}
	return items, pagination(filter.Page, filter.PageSize, total), nil
}

// GetSchool returns one school.
func (s *OrganizationService) GetSchool(ctx context.Context, id string) (*models.School, error) {
	school, err := s.repo.FindSchool(ctx, id)
	if err != nil {
		return nil, loadError(err, "school")
	}
	return school, nil
}

// CreateSchool stores a school under an existing region.
func (s *OrganizationService) CreateSchool(ctx context.Context, req dto.SchoolRequest) (*models.School, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid school payload")
	}
	if _, err := s.repo.FindRegion(ctx, req.RegionID); err != nil {
		return nil, loadError(err, "region")
	}
	school := &models.School{
		RegionID: req.RegionID,
		Name:     strings.TrimSpace(req.Name),
		Address:  normalizeOptional(req.Address),
	}
	if err := s.repo.CreateSchool(ctx, school); err != nil {
		return nil, constraintError(err, "school")
	}
	return school, nil
}

// DeleteSchool removes a school without branches.
func (s *OrganizationService) DeleteSchool(ctx context.Context, id string) error {
	if err := s.repo.DeleteSchool(ctx, id); err != nil {
		return constraintError(err, "school")
	}
	return nil
}

// ListBranches returns branches, optionally within one school.
func (s *OrganizationService) ListBranches(ctx context.Context, filter models.OrganizationFilter) ([]models.Branch, *models.Pagination, error) {
	items, total, err := s.repo.ListBranches(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Persistence(err, "failed to list branches")
	}
	return items, pagination(filter.Page, filter.PageSize, total), nil
}

// GetBranch returns one branch.
func (s *OrganizationService) GetBranch(ctx context.Context, id string) (*models.Branch, error) {
	branch, err := s.repo.FindBranch(ctx, id)
	if err != nil {
		return nil, loadError(err, "branch")
	}
	return branch, nil
}

// CreateBranch stores a branch under an existing school.
func (s *OrganizationService) CreateBranch(ctx context.Context, req dto.BranchRequest) (*models.Branch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid branch payload")
	}
	if _, err := s.repo.FindSchool(ctx, req.SchoolID); err != nil {
		return nil, loadError(err, "school")
	}
	branch := &models.Branch{
		SchoolID: req.SchoolID,
		Name:     strings.TrimSpace(req.Name),
		Address:  normalizeOptional(req.Address),
		Phone:    normalizeOptional(req.Phone),
	}
	if err := s.repo.CreateBranch(ctx, branch); err != nil {
		return nil, constraintError(err, "branch")
	}
	return branch, nil
}

// DeleteBranch removes a branch no course or class references.
func (s *OrganizationService) DeleteBranch(ctx context.Context, id string) error {
	if err := s.repo.DeleteBranch(ctx, id); err != nil {
		return constraintError(err, "branch")
	}
	return nil
}

// constraintError maps Postgres integrity violations to conflicts.
func constraintError(err error, entity string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqForeignKeyViolation:
			return appErrors.Clone(appErrors.ErrConflict, entity+" is still referenced")
		case pqUniqueViolation:
			return appErrors.Clone(appErrors.ErrConflict, entity+" already exists")
		}
	}
	return saveError(err, entity)
}
