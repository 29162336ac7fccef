package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/langschool-api/internal/models"
	"github.com/noah-isme/langschool-api/internal/service"
)

type fakeHolidays struct {
	result *models.HolidaySweepResult
	err    error
	calls  int
}

func (f *fakeHolidays) Sweep(ctx context.Context) (*models.HolidaySweepResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeEndingSoon struct {
	now   time.Time
	calls int
}

func (f *fakeEndingSoon) SweepEndingSoon(ctx context.Context, now time.Time) (*service.EndingSoonResult, error) {
	f.calls++
	f.now = now
	return &service.EndingSoonResult{Checked: 2, Raised: 1, Skipped: 1}, nil
}

type fakeCleaner struct {
	ttl   time.Duration
	calls int
}

func (f *fakeCleaner) Cleanup(ttl time.Duration) ([]string, error) {
	f.calls++
	f.ttl = ttl
	return []string{"course/a.csv"}, nil
}

func TestParseJobs(t *testing.T) {
	jobs, err := parseJobs(nil)
	require.NoError(t, err)
	assert.Equal(t, jobSet{holidays: true, endingSoon: true, exports: true}, jobs)

	jobs, err = parseJobs([]string{"-holidays=false", "-exports=false"})
	require.NoError(t, err)
	assert.Equal(t, jobSet{endingSoon: true}, jobs)

	_, err = parseJobs([]string{"-h"})
	assert.ErrorIs(t, err, errHelp)

	_, err = parseJobs([]string{"-bogus"})
	assert.Error(t, err)
}

func TestSweeperRunsSelectedJobs(t *testing.T) {
	now := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	holidays := &fakeHolidays{result: &models.HolidaySweepResult{Scanned: 3, Updated: 1, Marked: 2}}
	ending := &fakeEndingSoon{}
	cleaner := &fakeCleaner{}
	s := sweeper{
		holidays:      holidays,
		notifications: ending,
		exports:       cleaner,
		exportTTL:     48 * time.Hour,
		logger:        zap.NewNop(),
		clock:         func() time.Time { return now },
	}

	failed := s.run(context.Background(), jobSet{holidays: true, endingSoon: true, exports: true})
	assert.Zero(t, failed)
	assert.Equal(t, 1, holidays.calls)
	assert.Equal(t, now, ending.now)
	assert.Equal(t, 48*time.Hour, cleaner.ttl)

	failed = s.run(context.Background(), jobSet{endingSoon: true})
	assert.Zero(t, failed)
	assert.Equal(t, 1, holidays.calls)
	assert.Equal(t, 2, ending.calls)
	assert.Equal(t, 1, cleaner.calls)
}

func TestSweeperContinuesPastFailures(t *testing.T) {
	holidays := &fakeHolidays{err: errors.New("db down")}
	ending := &fakeEndingSoon{}
	cleaner := &fakeCleaner{}
	s := sweeper{holidays: holidays, notifications: ending, exports: cleaner, logger: zap.NewNop()}

	failed := s.run(context.Background(), jobSet{holidays: true, endingSoon: true, exports: true})
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, ending.calls)
	assert.Equal(t, 1, cleaner.calls)

	holidays.err = nil
	holidays.result = &models.HolidaySweepResult{Scanned: 2, Failed: 1, Failures: []string{"course c1: boom"}}
	assert.Equal(t, 1, s.run(context.Background(), jobSet{holidays: true}))
}
