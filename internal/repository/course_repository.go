package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/langschool-api/internal/models"
	"github.com/noah-isme/langschool-api/internal/scheduling"
)

const courseColumns = `c.id, c.name, c.level, c.description, c.teacher_id, c.branch_id, c.price,
	c.weekly_pattern, c.start_date, c.end_date, c.end_date_override, c.total_sessions, c.sessions, c.status,
	c.created_at, c.updated_at`

const courseEnrollmentCount = `(SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id AND e.status = 'ACTIVE') AS enrollment_count`

// CourseRepository persists courses with their session ledger as JSONB.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses matching filters along with total count.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	base := "FROM courses c WHERE 1=1"
	var where whereBuilder
	if filter.Status != "" {
		where.add("c.status = $%d", filter.Status)
	}
	if filter.TeacherID != "" {
		where.add("c.teacher_id = $%d", filter.TeacherID)
	}
	if filter.BranchID != "" {
		where.add("c.branch_id = $%d", filter.BranchID)
	}
	if filter.Search != "" {
		where.search(filter.Search, "c.name", "c.level")
	}
	base += where.clause()

	allowedSorts := map[string]string{
		"name":       "c.name",
		"start_date": "c.start_date",
		"end_date":   "c.end_date",
		"created_at": "c.created_at",
	}
	query := fmt.Sprintf("SELECT %s, %s %s", courseColumns, courseEnrollmentCount, base) +
		orderAndPage(filter.SortBy, filter.SortOrder, allowedSorts, "c.created_at", filter.Page, filter.PageSize)

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID fetches a course by ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s, %s FROM courses c WHERE c.id = $1", courseColumns, courseEnrollmentCount)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListSchedulable returns courses whose sessions can still change.
func (r *CourseRepository) ListSchedulable(ctx context.Context) ([]models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses c WHERE c.status IN ($1, $2) ORDER BY c.start_date", courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, scheduling.StatusUpcoming, scheduling.StatusActive); err != nil {
		return nil, fmt.Errorf("list schedulable courses: %w", err)
	}
	return courses, nil
}

// FindEndingBetween returns running courses whose end date lies in [from, to].
func (r *CourseRepository) FindEndingBetween(ctx context.Context, from, to time.Time) ([]models.EndingEntity, error) {
	const query = `SELECT 'course' AS entity_type, c.id, c.name, c.end_date FROM courses c
		WHERE c.end_date BETWEEN $1 AND $2 AND c.status IN ($3, $4) ORDER BY c.end_date`
	var entities []models.EndingEntity
	if err := r.db.SelectContext(ctx, &entities, query, from, to, scheduling.StatusUpcoming, scheduling.StatusActive); err != nil {
		return nil, fmt.Errorf("find courses ending soon: %w", err)
	}
	return entities, nil
}

// Create inserts a new course record.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now

	const query = `INSERT INTO courses (id, name, level, description, teacher_id, branch_id, price, weekly_pattern, start_date, end_date, end_date_override, total_sessions, sessions, status, created_at, updated_at)
		VALUES (:id, :name, :level, :description, :teacher_id, :branch_id, :price, :weekly_pattern, :start_date, :end_date, :end_date_override, :total_sessions, :sessions, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update overwrites a course record. It returns sql.ErrNoRows when the course is gone.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET name = :name, level = :level, description = :description, teacher_id = :teacher_id,
		branch_id = :branch_id, price = :price, weekly_pattern = :weekly_pattern, start_date = :start_date, end_date = :end_date,
		end_date_override = :end_date_override, total_sessions = :total_sessions, sessions = :sessions, status = :status,
		updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a course. It returns sql.ErrNoRows when nothing was deleted.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
