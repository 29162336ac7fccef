package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/langschool-api/internal/models"
	"github.com/noah-isme/langschool-api/internal/scheduling"
)

type mockMailClient struct {
	sent   []*mail.SGMailV3
	status int
	err    error
}

func (m *mockMailClient) SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	m.sent = append(m.sent, email)
	if m.err != nil {
		return nil, m.err
	}
	status := m.status
	if status == 0 {
		status = 202
	}
	return &rest.Response{StatusCode: status}, nil
}

type stubRecipients struct {
	emails []string
	err    error
}

func (s *stubRecipients) ListEmailsByRole(ctx context.Context, roles ...models.UserRole) ([]string, error) {
	return s.emails, s.err
}

func endingSoonNotification() *models.Notification {
	return &models.Notification{
		ID:         "n1",
		EntityType: "course",
		EntityID:   "c1",
		Action:     string(scheduling.ActionEndingSoon),
		EntityName: "English A1",
	}
}

func TestSendGridSinkSendsToMergedRecipients(t *testing.T) {
	client := &mockMailClient{}
	sink := newSendGridSink(client, SendGridConfig{
		FromEmail:  "noreply@school.test",
		AppName:    "Lingua",
		Recipients: []string{"Owner@school.test"},
	}, &stubRecipients{emails: []string{"owner@school.test", "admin@school.test"}}, zap.NewNop())

	require.NoError(t, sink.Deliver(context.Background(), endingSoonNotification()))
	require.Len(t, client.sent, 1)

	msg := client.sent[0]
	assert.Equal(t, "noreply@school.test", msg.From.Address)
	require.Len(t, msg.Personalizations, 1)
	p := msg.Personalizations[0]
	assert.Equal(t, "[Lingua] English A1 is ending soon", p.Subject)
	require.Len(t, p.To, 2)
	assert.Equal(t, "Owner@school.test", p.To[0].Address)
	assert.Equal(t, "admin@school.test", p.To[1].Address)
	require.Len(t, msg.Content, 1)
	assert.Contains(t, msg.Content[0].Value, "Reference: course c1")
}

func TestSendGridSinkSkipsOtherActions(t *testing.T) {
	client := &mockMailClient{}
	sink := newSendGridSink(client, SendGridConfig{Recipients: []string{"a@school.test"}}, nil, nil)

	n := endingSoonNotification()
	n.Action = string(scheduling.ActionUpdate)
	require.NoError(t, sink.Deliver(context.Background(), n))
	assert.Empty(t, client.sent)
}

func TestSendGridSinkReportsFailures(t *testing.T) {
	client := &mockMailClient{status: 401}
	sink := newSendGridSink(client, SendGridConfig{Recipients: []string{"a@school.test"}}, nil, nil)
	assert.Error(t, sink.Deliver(context.Background(), endingSoonNotification()))

	client = &mockMailClient{err: errors.New("timeout")}
	sink = newSendGridSink(client, SendGridConfig{Recipients: []string{"a@school.test"}}, nil, nil)
	assert.Error(t, sink.Deliver(context.Background(), endingSoonNotification()))

	sink = newSendGridSink(&mockMailClient{}, SendGridConfig{}, &stubRecipients{err: errors.New("db down")}, nil)
	assert.Error(t, sink.Deliver(context.Background(), endingSoonNotification()))
}
