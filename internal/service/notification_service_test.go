package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ownerdesk/ticket-engine/internal/config"
	"github.com/ownerdesk/ticket-engine/internal/domain"
	"github.com/ownerdesk/ticket-engine/internal/events"
)

func TestNotificationServiceDeliversNotifierEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher(nil)
	svc := NewNotificationService(dispatcher, zap.New(core), config.NotificationConfig{
		EmailFrom:  "desk@example.com",
		WebhookURL: "https://hooks.example.com/desk",
	})
	svc.RegisterHandlers()

	notifier := NewEventNotifier(dispatcher, func() time.Time { return fixtureStart })
	env := &domain.Envelope{ID: "env-1", TicketID: "ticket-1", RequestedBy: "agent-1", Reason: "help"}
	notifier.NotifyEnvelopeCreated(context.Background(), env, []string{"expert-1", "expert-2"})

	info := logs.FilterMessage(string(events.EventEnvelopeCreated)).All()
	require.Len(t, info, 1)
	assert.Equal(t, "ticket-1", info[0].ContextMap()["ticket_id"])

	assert.Equal(t, 2, logs.FilterMessage("sendEmailNotificationStub").Len())
	assert.Equal(t, 1, logs.FilterMessage("sendWebhookNotificationStub").Len())

	// no recipients, nothing published
	notifier.NotifyEnvelopeCreated(context.Background(), env, nil)
	assert.Equal(t, 1, logs.FilterMessage(string(events.EventEnvelopeCreated)).Len())
}

func TestNotificationStubsNeedConfiguration(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher(nil)
	NewNotificationService(dispatcher, zap.New(core), config.NotificationConfig{}).RegisterHandlers()

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		ID:         "evt-1",
		Type:       events.EventAlertFired,
		TicketID:   "ticket-9",
		Recipients: []string{"mgr-1"},
	}))

	assert.Equal(t, 1, logs.FilterMessage(string(events.EventAlertFired)).Len())
	assert.Zero(t, logs.FilterMessage("sendEmailNotificationStub").Len())
	assert.Zero(t, logs.FilterMessage("sendWebhookNotificationStub").Len())
}
