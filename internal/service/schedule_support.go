package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/langschool-api/internal/models"
	"github.com/noah-isme/langschool-api/internal/scheduling"
	appErrors "github.com/noah-isme/langschool-api/pkg/errors"
)

// EventPublisher receives lifecycle events after the owning change is persisted.
type EventPublisher interface {
	Publish(ctx context.Context, events ...scheduling.Event)
}

type holidayLister interface {
	List(ctx context.Context, filter models.HolidayFilter) ([]models.Holiday, error)
}

// ScheduleDeps are the collaborators shared by course and class services.
type ScheduleDeps struct {
	Holidays holidayLister
	Events   EventPublisher
	Cache    *CacheService
	Metrics  *MetricsService
	// Clock defaults to time.Now in UTC.
	Clock func() time.Time
}

// scheduleSupport carries the lifecycle plus everything that happens around a commit.
type scheduleSupport struct {
	lifecycle   *scheduling.Lifecycle
	deps        ScheduleDeps
	cachePrefix string
	logger      *zap.Logger
}

func newScheduleSupport(lifecycle *scheduling.Lifecycle, deps ScheduleDeps, cachePrefix string, logger *zap.Logger) *scheduleSupport {
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Now().UTC() }
	}
	return &scheduleSupport{lifecycle: lifecycle, deps: deps, cachePrefix: cachePrefix, logger: logger}
}

func (s *scheduleSupport) now() time.Time {
	return s.deps.Clock()
}

func (s *scheduleSupport) entityType() string {
	return s.lifecycle.Taxonomy.EntityType
}

// holidaySet loads every holiday. Without a holiday source the set is empty.
func (s *scheduleSupport) holidaySet(ctx context.Context) ([]scheduling.Holiday, error) {
	if s.deps.Holidays == nil {
		return nil, nil
	}
	holidays, err := s.deps.Holidays.List(ctx, models.HolidayFilter{})
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load holidays")
	}
	return models.HolidayRanges(holidays), nil
}

// committed runs the post-persistence side effects of a result.
func (s *scheduleSupport) committed(ctx context.Context, res *scheduling.Result) {
	entity := s.entityType()
	s.deps.Metrics.RecordSessionsGenerated(entity, res.Generated)
	s.deps.Metrics.RecordHolidayMarks(entity, res.HolidayMarks)
	if res.Compensation != nil {
		s.deps.Metrics.RecordCompensation(entity)
	}
	if s.deps.Events != nil && len(res.Events) > 0 {
		s.deps.Events.Publish(ctx, res.Events...)
	}
	s.deps.Cache.Invalidate(ctx, s.cachePrefix)
}

// entityEvent publishes a single entity-level event after a plain write.
func (s *scheduleSupport) entityEvent(ctx context.Context, ref scheduling.EntityRef, action scheduling.Action) {
	s.committed(ctx, &scheduling.Result{
		Events: []scheduling.Event{scheduling.NewEntityEvent(s.entityType(), ref, action, s.now())},
	})
}

func (s *scheduleSupport) detailKey(id string) string {
	return fmt.Sprintf("%sdetail:%s", s.cachePrefix, id)
}

func (s *scheduleSupport) listKey(filter interface{}) string {
	return fmt.Sprintf("%slist:%+v", s.cachePrefix, filter)
}

// sweepFailure records one entity the holiday sweep could not update.
func (s *scheduleSupport) sweepFailure(result *models.HolidaySweepResult, id string, err error) {
	result.Failed++
	result.Failures = append(result.Failures, fmt.Sprintf("%s %s: %v", s.entityType(), id, err))
	s.logger.Warn("holiday sweep entity failed",
		zap.String("entity_type", s.entityType()),
		zap.String("entity_id", id),
		zap.Error(err))
}

type cachedPage[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}
