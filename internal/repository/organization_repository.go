package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/langschool-api/internal/models"
)

// OrganizationRepository persists the region > school > branch hierarchy.
type OrganizationRepository struct {
	db *sqlx.DB
}

// NewOrganizationRepository constructs an OrganizationRepository.
func NewOrganizationRepository(db *sqlx.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// orgTable describes one level of the hierarchy.
type orgTable struct {
	name      string
	columns   string
	parentCol string
	label     string
}

var (
	regionTable = orgTable{name: "regions", columns: "id, name, code, created_at, updated_at", label: "regions"}
	schoolTable = orgTable{name: "schools", columns: "id, region_id, name, address, created_at, updated_at", parentCol: "region_id", label: "schools"}
	branchTable = orgTable{name: "branches", columns: "id, school_id, name, address, phone, created_at, updated_at", parentCol: "school_id", label: "branches"}
)

func (r *OrganizationRepository) list(ctx context.Context, table orgTable, filter models.OrganizationFilter, dest interface{}) (int, error) {
	base := "FROM " + table.name + " WHERE 1=1"
	var where whereBuilder
	if filter.ParentID != "" && table.parentCol != "" {
		where.add(table.parentCol+" = $%d", filter.ParentID)
	}
	if filter.Search != "" {
		where.search(filter.Search, "name")
	}
	base += where.clause()

	query := "SELECT " + table.columns + " " + base +
		orderAndPage("name", "ASC", map[string]string{"name": "name"}, "name", filter.Page, filter.PageSize)
	if err := r.db.SelectContext(ctx, dest, query, where.args...); err != nil {
		return 0, fmt.Errorf("list %s: %w", table.label, err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, where.args...); err != nil {
		return 0, fmt.Errorf("count %s: %w", table.label, err)
	}
	return total, nil
}

func (r *OrganizationRepository) get(ctx context.Context, table orgTable, id string, dest interface{}) error {
	return r.db.GetContext(ctx, dest, "SELECT "+table.columns+" FROM "+table.name+" WHERE id = $1", id)
}

func (r *OrganizationRepository) delete(ctx context.Context, table orgTable, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM "+table.name+" WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table.label, err)
	}
	return requireAffected(res)
}

func stamp(id *string, createdAt, updatedAt *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	now := time.Now().UTC()
	if createdAt.IsZero() {
		*createdAt = now
	}
	*updatedAt = now
}

// ListRegions lists regions.
func (r *OrganizationRepository) ListRegions(ctx context.Context, filter models.OrganizationFilter) ([]models.Region, int, error) {
	var regions []models.Region
	total, err := r.list(ctx, regionTable, filter, &regions)
	return regions, total, err
}

// FindRegion fetches a region.
func (r *OrganizationRepository) FindRegion(ctx context.Context, id string) (*models.Region, error) {
	var region models.Region
	if err := r.get(ctx, regionTable, id, &region); err != nil {
		return nil, err
	}
	return &region, nil
}

// CreateRegion inserts a region.
func (r *OrganizationRepository) CreateRegion(ctx context.Context, region *models.Region) error {
	stamp(&region.ID, &region.CreatedAt, &region.UpdatedAt)
	const query = `INSERT INTO regions (id, name, code, created_at, updated_at) VALUES (:id, :name, :code, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, region); err != nil {
		return fmt.Errorf("create region: %w", err)
	}
	return nil
}

// DeleteRegion removes a region.
func (r *OrganizationRepository) DeleteRegion(ctx context.Context, id string) error {
	return r.delete(ctx, regionTable, id)
}

// ListSchools lists schools, optionally within one region.
func (r *OrganizationRepository) ListSchools(ctx context.Context, filter models.OrganizationFilter) ([]models.School, int, error) {
	var schools []models.School
	total, err := r.list(ctx, schoolTable, filter, &schools)
	return schools, total, err
}

// FindSchool fetches a school.
func (r *OrganizationRepository) FindSchool(ctx context.Context, id string) (*models.School, error) {
	var school models.School
	if err := r.get(ctx, schoolTable, id, &school); err != nil {
		return nil, err
	}
	return &school, nil
}

// CreateSchool inserts a school.
func (r *OrganizationRepository) CreateSchool(ctx context.Context, school *models.School) error {
	stamp(&school.ID, &school.CreatedAt, &school.UpdatedAt)
	const query = `INSERT INTO schools (id, region_id, name, address, created_at, updated_at)
		VALUES (:id, :region_id, :name, :address, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, school); err != nil {
		return fmt.Errorf("create school: %w", err)
	}
	return nil
}

// DeleteSchool removes a school.
func (r *OrganizationRepository) DeleteSchool(ctx context.Context, id string) error {
	return r.delete(ctx, schoolTable, id)
}

// ListBranches lists branches, optionally within one school.
func (r *OrganizationRepository) ListBranches(ctx context.Context, filter models.OrganizationFilter) ([]models.Branch, int, error) {
	var branches []models.Branch
	total, err := r.list(ctx, branchTable, filter, &branches)
	return branches, total, err
}

// FindBranch fetches a branch.
func (r *OrganizationRepository) FindBranch(ctx context.Context, id string) (*models.Branch, error) {
	var branch models.Branch
	if err := r.get(ctx, branchTable, id, &branch); err != nil {
		return nil, err
	}
	return &branch, nil
}

// CreateBranch inserts a branch.
func (r *OrganizationRepository) CreateBranch(ctx context.Context, branch *models.Branch) error {
	stamp(&branch.ID, &branch.CreatedAt, &branch.UpdatedAt)
	const query = `INSERT INTO branches (id, school_id, name, address, phone, created_at, updated_at)
		VALUES (:id, :school_id, :name, :address, :phone, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, branch); err != nil {
		return fmt.Errorf("create branch: %w", err)
	}
	return nil
}

// DeleteBranch removes a branch.
func (r *OrganizationRepository) DeleteBranch(ctx context.Context, id string) error {
	return r.delete(ctx, branchTable, id)
}
