package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/langschool-api/internal/models"
)

func TestTeacherRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + teacherColumns + " FROM teachers WHERE 1=1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(teacherRows().
			AddRow("t1", "a@example.com", "Teacher A", nil, "French", "{English,French}", "{B1,B2}", true, "27.50", nil, true, time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM teachers WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.TeacherFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, pq.StringArray{"English", "French"}, list[0].Languages)
	assert.Equal(t, pq.StringArray{"B1", "B2"}, list[0].Levels)
	assert.True(t, list[0].KindergartenQualified)
	require.True(t, list[0].HourlyRate.Valid)
	assert.Equal(t, "27.5", list[0].HourlyRate.Decimal.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryListByQualification(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)
	kindergarten := true

	where := "FROM teachers WHERE 1=1" +
		" AND EXISTS (SELECT 1 FROM unnest(languages) AS l WHERE LOWER(l) = LOWER($1))" +
		" AND (cardinality(levels) = 0 OR UPPER($2) = ANY(levels))" +
		" AND kindergarten_qualified = $3"
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + teacherColumns + " " + where + " ORDER BY full_name ASC LIMIT 20 OFFSET 0")).
		WithArgs("english", "b2", true).
		WillReturnRows(teacherRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) " + where)).
		WithArgs("english", "b2", true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	list, total, err := repo.List(context.Background(), models.TeacherFilter{
		Language: "english", Level: "b2", Kindergarten: &kindergarten,
		SortBy: "full_name", SortOrder: "asc",
	})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func teacherRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "full_name", "phone", "native_language", "languages", "levels",
		"kindergarten_qualified", "hourly_rate", "branch_id", "active", "created_at", "updated_at"})
}

func TestTeacherRepositoryCreateAndDeactivate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectExec("INSERT INTO teachers").
		WithArgs(sqlmock.AnyArg(), "a@example.com", "Teacher A", sqlmock.AnyArg(), sqlmock.AnyArg(),
			"{\"English\"}", "{}", false, sqlmock.AnyArg(), sqlmock.AnyArg(), true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Create(context.Background(), &models.Teacher{
		Email:     "a@example.com",
		FullName:  "Teacher A",
		Languages: pq.StringArray{"English"},
		Levels:    pq.StringArray{},
		Active:    true,
	}))

	mock.ExpectExec("UPDATE teachers SET active = FALSE").
		WithArgs("id-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Deactivate(context.Background(), "id-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryExistsByEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM teachers WHERE LOWER(email) = LOWER($1) AND id <> $2 LIMIT 1")).
		WithArgs("a@example.com", "t9").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.ExistsByEmail(context.Background(), "a@example.com", "t9")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
