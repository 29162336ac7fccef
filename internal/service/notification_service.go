package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/langschool-api/internal/models"
	"github.com/noah-isme/langschool-api/internal/scheduling"
	appErrors "github.com/noah-isme/langschool-api/pkg/errors"
	"github.com/noah-isme/langschool-api/pkg/jobs"
)

// NotificationSink delivers a persisted notification to one channel.
type NotificationSink interface {
	Name() string
	Deliver(ctx context.Context, n *models.Notification) error
}

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	CountUnread(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id string, at time.Time) error
	MarkAllRead(ctx context.Context, at time.Time) (int64, error)
	Delete(ctx context.Context, id string) error
	LastCreatedAt(ctx context.Context, entityType, entityID, action string) (*time.Time, error)
}

// EndingSoonSource lists entities whose end date falls inside a window.
type EndingSoonSource interface {
	FindEndingBetween(ctx context.Context, from, to time.Time) ([]models.EndingEntity, error)
}

// NotificationConfig tunes delivery retries and the ending-soon sweep.
type NotificationConfig struct {
	Workers            int
	BufferSize         int
	MaxRetries         int
	BaseBackoff        time.Duration
	MaxBackoff         time.Duration
	EndingSoonWindow   time.Duration
	EndingSoonCooldown time.Duration
}

// EndingSoonResult summarises one ending-soon sweep.
type EndingSoonResult struct {
	Checked int `json:"checked"`
	Raised  int `json:"raised"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// NotificationService persists lifecycle events and fans them out to sinks.
// Persistence happens inline; delivery runs on a retrying queue once started.
type NotificationService struct {
	repo    notificationRepository
	sinks   map[string]NotificationSink
	order   []string
	sources []EndingSoonSource
	queue   *jobs.Queue
	cfg     NotificationConfig
	metrics *MetricsService
	logger  *zap.Logger
	clock   func() time.Time
}

// NewNotificationService wires the repository, sinks and delivery queue.
func NewNotificationService(repo notificationRepository, cfg NotificationConfig, metrics *MetricsService, logger *zap.Logger, sinks ...NotificationSink) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.EndingSoonWindow <= 0 {
		cfg.EndingSoonWindow = 7 * 24 * time.Hour
	}
	if cfg.EndingSoonCooldown <= 0 {
		cfg.EndingSoonCooldown = 7 * 24 * time.Hour
	}
	s := &NotificationService{
		repo:    repo,
		sinks:   make(map[string]NotificationSink, len(sinks)),
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
		clock:   func() time.Time { return time.Now().UTC() },
	}
	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		s.sinks[sink.Name()] = sink
		s.order = append(s.order, sink.Name())
	}
	s.queue = jobs.NewQueue("notifications", s.handleJob, jobs.QueueConfig{
		Workers:     cfg.Workers,
		BufferSize:  cfg.BufferSize,
		MaxRetries:  cfg.MaxRetries,
		BaseBackoff: cfg.BaseBackoff,
		MaxBackoff:  cfg.MaxBackoff,
		DeadLetter:  s.deadLetter,
		Logger:      logger,
	})
	return s
}

// WithEndingSoonSources registers the entities scanned by SweepEndingSoon.
func (s *NotificationService) WithEndingSoonSources(sources ...EndingSoonSource) *NotificationService {
	s.sources = append(s.sources, sources...)
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop halts the delivery workers. Pending retries are abandoned.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Publish stores each event and schedules delivery. Failures are logged and never
// propagate to the operation that produced the event.
func (s *NotificationService) Publish(ctx context.Context, events ...scheduling.Event) {
	for _, evt := range events {
		_ = s.record(ctx, evt)
	}
}

// record persists one event and hands it to the sinks. Nothing is dispatched
// when the row could not be saved.
func (s *NotificationService) record(ctx context.Context, evt scheduling.Event) error {
	n := models.NotificationFromEvent(evt)
	n.ID = uuid.NewString()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.clock()
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("failed to persist notification",
			zap.String("entity_type", n.EntityType),
			zap.String("entity_id", n.EntityID),
			zap.String("action", n.Action),
			zap.Error(err))
		return err
	}
	s.dispatch(ctx, n)
	return nil
}

func (s *NotificationService) dispatch(ctx context.Context, n *models.Notification) {
	for _, name := range s.order {
		job := jobs.Job{ID: n.ID + ":" + name, Type: name, Payload: n}
		if err := s.queue.Enqueue(job); err != nil {
			// Without running workers deliver once inline.
			s.logger.Debug("delivering notification inline", zap.String("sink", name), zap.Error(err))
			if err := s.deliver(ctx, name, n); err != nil {
				s.logger.Warn("notification delivery failed", zap.String("sink", name), zap.String("id", n.ID), zap.Error(err))
			}
		}
	}
}

func (s *NotificationService) handleJob(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(*models.Notification)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	return s.deliver(ctx, job.Type, n)
}

func (s *NotificationService) deliver(ctx context.Context, name string, n *models.Notification) error {
	sink, ok := s.sinks[name]
	if !ok {
		return fmt.Errorf("unknown sink %q", name)
	}
	if err := sink.Deliver(ctx, n); err != nil {
		s.metrics.RecordNotificationDispatch(name, "error")
		return err
	}
	s.metrics.RecordNotificationDispatch(name, "success")
	return nil
}

func (s *NotificationService) deadLetter(job jobs.Job, err error) {
	s.metrics.RecordNotificationDispatch(job.Type, "dead_letter")
	s.logger.Error("notification delivery abandoned",
		zap.String("job_id", job.ID),
		zap.String("sink", job.Type),
		zap.Int("attempts", job.Attempt),
		zap.Error(err))
}

// List returns notifications newest first.
func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Persistence(err, "failed to list notifications")
	}
	return items, pagination(filter.Page, filter.PageSize, total), nil
}

// UnreadCount returns the number of unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context) (int, error) {
	count, err := s.repo.CountUnread(ctx)
	if err != nil {
		return 0, appErrors.Persistence(err, "failed to count notifications")
	}
	return count, nil
}

// MarkRead flags one notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	if err := s.repo.MarkRead(ctx, id, s.clock()); err != nil {
		return loadError(err, "notification")
	}
	return nil
}

// MarkAllRead flags every unread notification and reports how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, s.clock())
	if err != nil {
		return 0, appErrors.Persistence(err, "failed to mark notifications read")
	}
	return n, nil
}

// Delete removes a notification.
func (s *NotificationService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return loadError(err, "notification")
	}
	return nil
}

// EndingWithin lists courses and classes ending between today and the window end.
func (s *NotificationService) EndingWithin(ctx context.Context, now time.Time) ([]models.EndingEntity, error) {
	from := scheduling.DateOnly(now)
	to := from.Add(s.cfg.EndingSoonWindow)
	var out []models.EndingEntity
	for _, src := range s.sources {
		found, err := src.FindEndingBetween(ctx, from, to)
		if err != nil {
			return nil, appErrors.Persistence(err, "failed to load ending entities")
		}
		out = append(out, found...)
	}
	return out, nil
}

// SweepEndingSoon raises one ending_soon notification per entity, suppressing
// repeats inside the cooldown.
func (s *NotificationService) SweepEndingSoon(ctx context.Context, now time.Time) (*EndingSoonResult, error) {
	entities, err := s.EndingWithin(ctx, now)
	if err != nil {
		return nil, err
	}
	result := &EndingSoonResult{Checked: len(entities)}
	for _, e := range entities {
		last, err := s.repo.LastCreatedAt(ctx, e.EntityType, e.ID, string(scheduling.ActionEndingSoon))
		if err != nil {
			result.Failed++
			s.logger.Warn("ending soon lookup failed", zap.String("entity_id", e.ID), zap.Error(err))
			continue
		}
		if last != nil && now.Sub(*last) < s.cfg.EndingSoonCooldown {
			result.Skipped++
			continue
		}
		end := e.EndDate
		evt := scheduling.NewEntityEvent(e.EntityType, scheduling.EntityRef{ID: e.ID, Name: e.Name}, scheduling.ActionEndingSoon, now)
		evt.Context = &scheduling.EventContext{Date: &end}
		if err := s.record(ctx, evt); err != nil {
			result.Failed++
			continue
		}
		result.Raised++
	}
	s.logger.Info("ending soon sweep finished",
		zap.Int("checked", result.Checked),
		zap.Int("raised", result.Raised),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
	return result, nil
}
