package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/langschool-api/internal/models"
	"github.com/noah-isme/langschool-api/internal/scheduling"
)

const classColumns = `id, name, age_group, description, teacher_id, branch_id, capacity,
	weekly_pattern, start_date, end_date, end_date_override, total_sessions, sessions, status,
	created_at, updated_at`

// KindergartenClassRepository persists kindergarten classes.
type KindergartenClassRepository struct {
	db *sqlx.DB
}

// NewKindergartenClassRepository constructs a KindergartenClassRepository.
func NewKindergartenClassRepository(db *sqlx.DB) *KindergartenClassRepository {
	return &KindergartenClassRepository{db: db}
}

// List returns classes matching filters along with total count.
func (r *KindergartenClassRepository) List(ctx context.Context, filter models.KindergartenClassFilter) ([]models.KindergartenClass, int, error) {
	base := "FROM kindergarten_classes WHERE 1=1"
	var where whereBuilder
	if filter.Status != "" {
		where.add("status = $%d", filter.Status)
	}
	if filter.AgeGroup != "" {
		where.add("age_group = $%d", filter.AgeGroup)
	}
	if filter.TeacherID != "" {
		where.add("teacher_id = $%d", filter.TeacherID)
	}
	if filter.BranchID != "" {
		where.add("branch_id = $%d", filter.BranchID)
	}
	if filter.Search != "" {
		where.search(filter.Search, "name")
	}
	base += where.clause()

	allowedSorts := map[string]string{
		"name":       "name",
		"start_date": "start_date",
		"end_date":   "end_date",
		"created_at": "created_at",
	}
	query := fmt.Sprintf("SELECT %s %s", classColumns, base) +
		orderAndPage(filter.SortBy, filter.SortOrder, allowedSorts, "created_at", filter.Page, filter.PageSize)

	var classes []models.KindergartenClass
	if err := r.db.SelectContext(ctx, &classes, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list kindergarten classes: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count kindergarten classes: %w", err)
	}
	return classes, total, nil
}

// FindByID fetches a class by ID.
func (r *KindergartenClassRepository) FindByID(ctx context.Context, id string) (*models.KindergartenClass, error) {
	query := fmt.Sprintf("SELECT %s FROM kindergarten_classes WHERE id = $1", classColumns)
	var class models.KindergartenClass
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// ListSchedulable returns classes whose sessions can still change.
func (r *KindergartenClassRepository) ListSchedulable(ctx context.Context) ([]models.KindergartenClass, error) {
	query := fmt.Sprintf("SELECT %s FROM kindergarten_classes WHERE status IN ($1, $2) ORDER BY start_date", classColumns)
	var classes []models.KindergartenClass
	if err := r.db.SelectContext(ctx, &classes, query, scheduling.StatusUpcoming, scheduling.StatusActive); err != nil {
		return nil, fmt.Errorf("list schedulable kindergarten classes: %w", err)
	}
	return classes, nil
}

// FindEndingBetween returns running classes whose end date lies in [from, to].
func (r *KindergartenClassRepository) FindEndingBetween(ctx context.Context, from, to time.Time) ([]models.EndingEntity, error) {
	const query = `SELECT 'kindergarten_class' AS entity_type, id, name, end_date FROM kindergarten_classes
		WHERE end_date BETWEEN $1 AND $2 AND status IN ($3, $4) ORDER BY end_date`
	var entities []models.EndingEntity
	if err := r.db.SelectContext(ctx, &entities, query, from, to, scheduling.StatusUpcoming, scheduling.StatusActive); err != nil {
		return nil, fmt.Errorf("find kindergarten classes ending soon: %w", err)
	}
	return entities, nil
}

// Create inserts a new class record.
func (r *KindergartenClassRepository) Create(ctx context.Context, class *models.KindergartenClass) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now

	const query = `INSERT INTO kindergarten_classes (id, name, age_group, description, teacher_id, branch_id, capacity, weekly_pattern, start_date, end_date, end_date_override, total_sessions, sessions, status, created_at, updated_at)
		VALUES (:id, :name, :age_group, :description, :teacher_id, :branch_id, :capacity, :weekly_pattern, :start_date, :end_date, :end_date_override, :total_sessions, :sessions, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create kindergarten class: %w", err)
	}
	return nil
}

// Update overwrites a class record. It returns sql.ErrNoRows when the class is gone.
func (r *KindergartenClassRepository) Update(ctx context.Context, class *models.KindergartenClass) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE kindergarten_classes SET name = :name, age_group = :age_group, description = :description,
		teacher_id = :teacher_id, branch_id = :branch_id, capacity = :capacity, weekly_pattern = :weekly_pattern,
		start_date = :start_date, end_date = :end_date, end_date_override = :end_date_override,
		total_sessions = :total_sessions, sessions = :sessions, status = :status, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, class)
	if err != nil {
		return fmt.Errorf("update kindergarten class: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a class.
func (r *KindergartenClassRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM kindergarten_classes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete kindergarten class: %w", err)
	}
	return requireAffected(res)
}
