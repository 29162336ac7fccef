package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/noah-isme/langschool-api/internal/models"
	"github.com/noah-isme/langschool-api/internal/scheduling"
)

type mailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type recipientSource interface {
	ListEmailsByRole(ctx context.Context, roles ...models.UserRole) ([]string, error)
}

// SendGridConfig configures the email sink.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	AppName   string
	// Recipients always receive mail in addition to active admin users.
	Recipients []string
}

// SendGridSink emails administrators about cancellations and schedules ending soon.
type SendGridSink struct {
	client     mailClient
	from       *mail.Email
	subjPrefix string
	recipients []string
	users      recipientSource
	logger     *zap.Logger
}

// NewSendGridSink constructs the email sink. users may be nil.
func NewSendGridSink(cfg SendGridConfig, users recipientSource, logger *zap.Logger) *SendGridSink {
	return newSendGridSink(sendgrid.NewSendClient(cfg.APIKey), cfg, users, logger)
}

func newSendGridSink(client mailClient, cfg SendGridConfig, users recipientSource, logger *zap.Logger) *SendGridSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	appName := cfg.AppName
	if appName == "" {
		appName = "Language School"
	}
	return &SendGridSink{
		client:     client,
		from:       mail.NewEmail(appName, cfg.FromEmail),
		subjPrefix: "[" + appName + "] ",
		recipients: cfg.Recipients,
		users:      users,
		logger:     logger,
	}
}

// Name identifies the sink in metrics and logs.
func (s *SendGridSink) Name() string { return "email" }

// Deliver sends one email per notification. Only cancel and ending_soon are mailed.
func (s *SendGridSink) Deliver(ctx context.Context, n *models.Notification) error {
	action := scheduling.Action(n.Action)
	if action != scheduling.ActionCancel && action != scheduling.ActionEndingSoon {
		return nil
	}
	to, err := s.resolveRecipients(ctx)
	if err != nil {
		return err
	}
	if len(to) == 0 {
		return nil
	}

	p := mail.NewPersonalization()
	p.Subject = s.subjPrefix + notificationSubject(n)
	for _, addr := range to {
		p.AddTos(mail.NewEmail("", addr))
	}
	m := mail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(mail.NewContent("text/plain", notificationBody(n)))

	res, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid send: status %d", res.StatusCode)
	}
	return nil
}

func (s *SendGridSink) resolveRecipients(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	add := func(addr string) {
		key := strings.ToLower(strings.TrimSpace(addr))
		if key == "" {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(addr))
	}
	for _, addr := range s.recipients {
		add(addr)
	}
	if s.users != nil {
		emails, err := s.users.ListEmailsByRole(ctx, models.RoleAdmin, models.RoleSuperAdmin)
		if err != nil {
			return nil, fmt.Errorf("load admin recipients: %w", err)
		}
		for _, addr := range emails {
			add(addr)
		}
	}
	return out, nil
}

func notificationSubject(n *models.Notification) string {
	switch scheduling.Action(n.Action) {
	case scheduling.ActionEndingSoon:
		return fmt.Sprintf("%s is ending soon", n.EntityName)
	case scheduling.ActionCancel:
		if n.EntityType == scheduling.EntityTypeSession {
			return fmt.Sprintf("Session cancelled in %s", n.EntityName)
		}
		return fmt.Sprintf("%s was cancelled", n.EntityName)
	default:
		return fmt.Sprintf("%s %s", n.EntityName, n.Action)
	}
}

func notificationBody(n *models.Notification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", notificationSubject(n))
	if n.Context != nil {
		if n.Context.ParentEntityName != "" {
			fmt.Fprintf(&b, "%s: %s\n", n.Context.ParentEntityType, n.Context.ParentEntityName)
		}
		if n.Context.Date != nil {
			fmt.Fprintf(&b, "Date: %s\n", scheduling.DateKey(*n.Context.Date))
		}
	}
	fmt.Fprintf(&b, "Reference: %s %s\n", n.EntityType, n.EntityID)
	return b.String()
}
