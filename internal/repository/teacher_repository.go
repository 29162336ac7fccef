package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/langschool-api/internal/models"
)

const teacherColumns = "id, email, full_name, phone, native_language, languages, levels, kindergarten_qualified, " +
	"hourly_rate, branch_id, active, created_at, updated_at"

// TeacherRepository manages persistence for teachers.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// List returns teachers matching filters along with total count.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	base := "FROM teachers WHERE 1=1"
	var where whereBuilder
	if filter.Active != nil {
		where.add("active = $%d", *filter.Active)
	}
	if filter.BranchID != "" {
		where.add("branch_id = $%d", filter.BranchID)
	}
	if filter.Language != "" {
		where.add("EXISTS (SELECT 1 FROM unnest(languages) AS l WHERE LOWER(l) = LOWER($%d))", filter.Language)
	}
	if filter.Level != "" {
		// an empty level list clears the teacher for every level
		where.add("(cardinality(levels) = 0 OR UPPER($%d) = ANY(levels))", filter.Level)
	}
	if filter.Kindergarten != nil {
		where.add("kindergarten_qualified = $%d", *filter.Kindergarten)
	}
	if filter.Search != "" {
		where.search(filter.Search, "full_name", "email", "native_language")
	}
	base += where.clause()

	allowedSorts := map[string]string{
		"full_name":   "full_name",
		"email":       "email",
		"hourly_rate": "hourly_rate",
		"created_at":  "created_at",
		"updated_at":  "updated_at",
	}
	query := "SELECT " + teacherColumns + " " + base +
		orderAndPage(filter.SortBy, filter.SortOrder, allowedSorts, "created_at", filter.Page, filter.PageSize)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

// FindByID fetches a teacher by ID.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	const query = "SELECT " + teacherColumns + " FROM teachers WHERE id = $1"
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// ExistsByEmail checks if another teacher uses the same email.
func (r *TeacherRepository) ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM teachers WHERE LOWER(email) = LOWER($1)"
	args := []interface{}{email}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check teacher email: %w", err)
	}
	return true, nil
}

// Create inserts a new teacher record.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if teacher.CreatedAt.IsZero() {
		teacher.CreatedAt = now
	}
	teacher.UpdatedAt = now

	const query = `INSERT INTO teachers (id, email, full_name, phone, native_language, languages, levels,
		kindergarten_qualified, hourly_rate, branch_id, active, created_at, updated_at)
		VALUES (:id, :email, :full_name, :phone, :native_language, :languages, :levels,
		:kindergarten_qualified, :hourly_rate, :branch_id, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// Update modifies an existing teacher record.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teachers SET email = :email, full_name = :full_name, phone = :phone,
		native_language = :native_language, languages = :languages, levels = :levels,
		kindergarten_qualified = :kindergarten_qualified, hourly_rate = :hourly_rate,
		branch_id = :branch_id, active = :active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, teacher)
	if err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	return requireAffected(res)
}

// Deactivate sets a teacher's active flag to false.
func (r *TeacherRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE teachers SET active = FALSE, updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate teacher: %w", err)
	}
	return requireAffected(res)
}
