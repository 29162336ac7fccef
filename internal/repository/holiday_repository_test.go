package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/langschool-api/internal/models"
)

func TestHolidayRepositoryListWindow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHolidayRepository(db)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + holidayColumns + " FROM holidays WHERE 1=1 AND end_date >= $1 AND start_date <= $2 ORDER BY start_date, name")).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "start_date", "end_date", "description", "created_at", "updated_at"}).
			AddRow("h1", "New Year", from, from, nil, from, from))

	holidays, err := repo.List(context.Background(), models.HolidayFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, holidays, 1)
	assert.Equal(t, "New Year", holidays[0].Range().Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHolidayRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHolidayRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM holidays WHERE 1=1 ORDER BY start_date, name")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	holidays, err := repo.List(context.Background(), models.HolidayFilter{})
	require.NoError(t, err)
	assert.Empty(t, holidays)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHolidayRepositoryCreateUpdateDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHolidayRepository(db)

	day := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	holiday := &models.Holiday{Name: "Founders Day", StartDate: day, EndDate: day}

	mock.ExpectExec("INSERT INTO holidays").
		WithArgs(sqlmock.AnyArg(), "Founders Day", day, day, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Create(context.Background(), holiday))

	mock.ExpectExec("UPDATE holidays SET").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), holiday))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM holidays WHERE id = $1")).
		WithArgs(holiday.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), holiday.ID))
	assert.NoError(t, mock.ExpectationsWereMet())
}
