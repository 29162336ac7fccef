package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/langschool-api/internal/models"
)

func TestEnrollmentRepositoryListByCourse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(enrollmentDetailSelect + " " + enrollmentJoins + " WHERE 1=1 AND e.course_id = $1 ORDER BY s.full_name ASC LIMIT 20 OFFSET 0")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "course_id", "status", "payment_status", "amount_due", "amount_paid",
			"attendance", "enrolled_at", "created_at", "updated_at", "student_name", "course_name"}).
			AddRow("e1", "s1", "c1", "ACTIVE", "Partial", "200.00", "50.00", []byte(`{"2024-01-01":"present"}`), now, now, now, "Ana", "English A1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) " + enrollmentJoins + " WHERE 1=1 AND e.course_id = $1")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.EnrollmentFilter{CourseID: "c1", SortBy: "student_name", SortOrder: "ASC"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, "Ana", list[0].StudentName)
	assert.Equal(t, models.AttendancePresent, list[0].Attendance["2024-01-01"])
	assert.True(t, decimal.NewFromInt(50).Equal(list[0].AmountPaid))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery("SELECT 1 FROM enrollments").
		WithArgs("s1", "c1", models.EnrollmentStatusActive).
		WillReturnError(sql.ErrNoRows)
	exists, err := repo.ExistsActive(context.Background(), "s1", "c1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WithArgs(sqlmock.AnyArg(), "s1", "c1", "ACTIVE", "Unpaid", "200", "0", sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	enrollment := &models.Enrollment{
		StudentID: "s1", CourseID: "c1", Status: models.EnrollmentStatusActive,
		PaymentStatus: models.PaymentStatusUnpaid, AmountDue: decimal.NewFromInt(200),
	}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	assert.False(t, enrollment.EnrolledAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
