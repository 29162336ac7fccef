package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/langschool-api/internal/models"
	"github.com/noah-isme/langschool-api/internal/scheduling"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var courseRowColumns = []string{"id", "name", "level", "description", "teacher_id", "branch_id", "price",
	"weekly_pattern", "start_date", "end_date", "end_date_override", "total_sessions", "sessions", "status",
	"created_at", "updated_at", "enrollment_count"}

const storedPattern = `[{"day_of_week":"MONDAY","start_time":"09:00","end_time":"10:30"}]`
const storedSessions = `[{"date":"2024-01-01T00:00:00Z","start_time":"09:00","end_time":"10:30","status":"Taught","is_compensatory":false,"is_custom":false}]`

func TestCourseRepositoryListDecodesSchedule(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(courseRowColumns).
		AddRow("c1", "English A1", "A1", nil, nil, nil, "150.00", []byte(storedPattern), start, start, false, 1,
			[]byte(storedSessions), "Active", start, start, 3)
	query := fmt.Sprintf("SELECT %s, %s FROM courses c WHERE 1=1 AND c.status = $1 AND (LOWER(COALESCE(c.name, '')) LIKE $2 OR LOWER(COALESCE(c.level, '')) LIKE $2) ORDER BY c.name ASC LIMIT 10 OFFSET 10",
		courseColumns, courseEnrollmentCount)
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("Active", "%english%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses c WHERE 1=1 AND c.status = $1")).
		WithArgs("Active", "%english%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	list, total, err := repo.List(context.Background(), models.CourseFilter{
		Status: "Active", Search: "English", SortBy: "name", SortOrder: "asc", Page: 2, PageSize: 10,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 11, total)

	course := list[0]
	assert.True(t, decimal.RequireFromString("150").Equal(course.Price))
	assert.Equal(t, 3, course.EnrollmentCount)
	require.Len(t, course.WeeklyPattern, 1)
	assert.Equal(t, "MONDAY", course.WeeklyPattern[0].DayOfWeek)
	require.Len(t, course.Sessions, 1)
	assert.Equal(t, scheduling.CourseSessionTaught, course.Sessions[0].Status)
	assert.Equal(t, scheduling.StatusActive, course.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery("FROM courses c WHERE c.id = \\$1").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryCreateAndUpdate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	course := &models.Course{Name: "English A1", Level: "A1", Price: decimal.NewFromInt(150)}
	course.TotalSessions = 4
	course.Status = scheduling.StatusUpcoming

	mock.ExpectExec("INSERT INTO courses").
		WithArgs(sqlmock.AnyArg(), "English A1", "A1", nil, nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			nil, false, 4, sqlmock.AnyArg(), "Upcoming", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Create(context.Background(), course))
	assert.NotEmpty(t, course.ID)
	assert.False(t, course.CreatedAt.IsZero())

	mock.ExpectExec("UPDATE courses SET").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), course))

	mock.ExpectExec("UPDATE courses SET").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.True(t, errors.Is(repo.Update(context.Background(), course), sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses WHERE id = $1")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "c1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses WHERE id = $1")).
		WithArgs("c2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), "c2"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindEndingBetween(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	mock.ExpectQuery("SELECT 'course' AS entity_type").
		WithArgs(from, to, scheduling.StatusUpcoming, scheduling.StatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"entity_type", "id", "name", "end_date"}).
			AddRow("course", "c1", "English A1", from.AddDate(0, 0, 3)))

	ending, err := repo.FindEndingBetween(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, ending, 1)
	assert.Equal(t, "course", ending[0].EntityType)
	assert.NoError(t, mock.ExpectationsWereMet())
}
