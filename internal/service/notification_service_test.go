package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/ticket-tracker/internal/config"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/events"
)

func TestNotificationServiceLogsEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(dispatcher, zap.New(core), config.NotificationConfig{WebhookURL: "https://hooks.ops.test/tickets"})
	svc.RegisterHandlers()

	ctx := context.Background()
	old := domain.TicketStatusNew
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type: events.EventTicketCreated, TicketID: "t-1",
		Payload: events.TicketCreatedPayload{Topic: "VPN", Owner: "Ana", Status: domain.TicketStatusNew},
	}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type: events.EventTicketUpdated, TicketID: "t-1",
		Payload: events.TicketUpdatedPayload{Fields: []string{"topic"}, NewStatus: domain.TicketStatusNew},
	}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type: events.EventTicketUpdated, TicketID: "t-1",
		Payload: events.TicketUpdatedPayload{Fields: []string{"status"}, OldStatus: &old, NewStatus: domain.TicketStatusResolved},
	}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type: events.EventTicketDeleted, TicketID: "t-1",
		Payload: events.TicketDeletedPayload{DeletedID: "t-1"},
	}))

	assert.Equal(t, 1, logs.FilterMessage("TicketCreated").Len())
	assert.Equal(t, 2, logs.FilterMessage("TicketUpdated").Len())
	assert.Equal(t, 1, logs.FilterMessage("TicketDeleted").Len())
	// the topic-only update does not reach the webhook
	assert.Equal(t, 3, logs.FilterMessage("sendWebhookNotificationStub").Len())
}

func TestNotificationServiceWithoutWebhook(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, zap.New(core), config.NotificationConfig{}).RegisterHandlers()

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketDeleted, TicketID: "t-1"}))
	assert.Equal(t, 1, logs.FilterMessage("TicketDeleted").Len())
	assert.Zero(t, logs.FilterMessage("sendWebhookNotificationStub").Len())
}
