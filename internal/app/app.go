// Package app assembles repositories, services and handlers from configuration.
package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/langschool-api/internal/handler"
	"github.com/noah-isme/langschool-api/internal/repository"
	"github.com/noah-isme/langschool-api/internal/scheduling"
	"github.com/noah-isme/langschool-api/internal/service"
	"github.com/noah-isme/langschool-api/pkg/config"
	"github.com/noah-isme/langschool-api/pkg/storage"
)

// Services holds every wired service.
type Services struct {
	Metrics       *service.MetricsService
	Cache         *service.CacheService
	Notifications *service.NotificationService
	// Hub is nil when websocket push is disabled.
	Hub           *service.NotificationHub
	Courses       *service.CourseService
	Classes       *service.KindergartenClassService
	Holidays      *service.HolidayService
	Enrollments   *service.EnrollmentService
	Teachers      *service.TeacherService
	Students      *service.StudentService
	Organization  *service.OrganizationService
	Auth          *service.AuthService
	Exports       *service.ExportService
	Users         *repository.UserRepository
}

// Build wires the service graph. redisClient may be nil.
func Build(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logger *zap.Logger) (*Services, error) {
	validate := service.NewValidator()
	metrics := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, "langschool", logger.Named("cache"))
	cache := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logger.Named("cache"), cfg.Cache.Enabled && redisClient != nil)

	courseRepo := repository.NewCourseRepository(db)
	classRepo := repository.NewKindergartenClassRepository(db)
	holidayRepo := repository.NewHolidayRepository(db)
	userRepo := repository.NewUserRepository(db)

	var sinks []service.NotificationSink
	var hub *service.NotificationHub
	if cfg.Notifications.WebsocketEnabled {
		hub = service.NewNotificationHub(cfg.CORS.AllowedOrigins, logger.Named("hub"))
		sinks = append(sinks, hub)
	}
	if cfg.Notifications.EmailEnabled {
		if cfg.Notifications.SendGridKey == "" {
			return nil, fmt.Errorf("email notifications enabled but SENDGRID_API_KEY is empty")
		}
		sinks = append(sinks, service.NewSendGridSink(service.SendGridConfig{
			APIKey:     cfg.Notifications.SendGridKey,
			FromEmail:  cfg.Notifications.FromEmail,
			AppName:    cfg.Notifications.AppName,
			Recipients: cfg.Notifications.AdminEmails,
		}, userRepo, logger.Named("email")))
	}

	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), service.NotificationConfig{
		Workers:            cfg.Notifications.Workers,
		BufferSize:         cfg.Notifications.BufferSize,
		MaxRetries:         cfg.Notifications.MaxRetries,
		BaseBackoff:        cfg.Notifications.BaseBackoff,
		MaxBackoff:         cfg.Notifications.MaxBackoff,
		EndingSoonWindow:   cfg.Scheduling.EndingSoonWindow,
		EndingSoonCooldown: cfg.Scheduling.EndingSoonCooldown,
	}, metrics, logger.Named("notifications"), sinks...).WithEndingSoonSources(courseRepo, classRepo)

	deps := service.ScheduleDeps{
		Holidays: holidayRepo,
		Events:   notifications,
		Cache:    cache,
		Metrics:  metrics,
	}
	courses := service.NewCourseService(courseRepo, scheduling.NewCourseLifecycle(cfg.Scheduling.TrackTotalSessions), deps, validate, logger.Named("courses"))
	classes := service.NewKindergartenClassService(classRepo, scheduling.NewClassLifecycle(cfg.Scheduling.TrackTotalSessions), deps, validate, logger.Named("classes"))
	holidays := service.NewHolidayService(holidayRepo, validate, logger.Named("holidays"), courses, classes)

	studentRepo := repository.NewStudentRepository(db)
	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, err
	}

	return &Services{
		Metrics:       metrics,
		Cache:         cache,
		Notifications: notifications,
		Hub:           hub,
		Courses:       courses,
		Classes:       classes,
		Holidays:      holidays,
		Enrollments:   service.NewEnrollmentService(repository.NewEnrollmentRepository(db), studentRepo, courses, cache, validate, logger.Named("enrollments")),
		Teachers:      service.NewTeacherService(repository.NewTeacherRepository(db), validate, logger.Named("teachers")),
		Students:      service.NewStudentService(studentRepo, validate, logger.Named("students")),
		Organization:  service.NewOrganizationService(repository.NewOrganizationRepository(db), validate, logger.Named("organization")),
		Auth: service.NewAuthService(userRepo, validate, logger.Named("auth"), service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			AccessTokenExpiry: cfg.JWT.Expiration,
			Issuer:            cfg.JWT.Issuer,
		}),
		Exports: service.NewExportService(courses, classes, files,
			storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
			service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Exports.ResultTTL}, logger.Named("exports")),
		Users: userRepo,
	}, nil
}

// Handlers builds the HTTP handlers over s.
func (s *Services) Handlers() handler.Handlers {
	notifications := handler.NewNotificationHandler(s.Notifications, nil)
	if s.Hub != nil {
		notifications = handler.NewNotificationHandler(s.Notifications, s.Hub)
	}
	return handler.Handlers{
		Auth:          handler.NewAuthHandler(s.Auth),
		Courses:       handler.NewCourseHandler(s.Courses),
		Classes:       handler.NewKindergartenClassHandler(s.Classes),
		Holidays:      handler.NewHolidayHandler(s.Holidays),
		Notifications: notifications,
		Exports:       handler.NewExportHandler(s.Exports),
		Enrollments:   handler.NewEnrollmentHandler(s.Enrollments),
		Teachers:      handler.NewTeacherHandler(s.Teachers),
		Students:      handler.NewStudentHandler(s.Students),
		Organization:  handler.NewOrganizationHandler(s.Organization),
	}
}
