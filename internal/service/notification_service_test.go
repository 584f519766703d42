package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/worker"
)

func TestNotificationService_CreationEmailThroughWorker(t *testing.T) {
	mailer := &recordingMailer{}
	dispatcher := events.NewInMemoryDispatcher()
	w := worker.NewNotificationWorker(4, time.Second, zap.NewNop())
	w.Start(1)

	NewNotificationService(testConfig(), NotificationDependencies{
		Dispatcher: dispatcher,
		Mailer:     mailer,
		Worker:     w,
		Logger:     zap.NewNop(),
	}).RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:   events.EventUserCreated,
		UserID: "u1",
		Payload: events.UserCreatedPayload{
			Username:      "jane",
			Email:         "j@x.com",
			LangKey:       "fr",
			ActivationKey: "key 1",
		},
	})
	require.NoError(t, err)
	w.Stop()

	sent := mailer.messages()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, "j@x.com", msg.To)
	assert.Equal(t, "fr", msg.LangKey)
	assert.Equal(t, creationEmailTemplate, msg.Template)
	assert.Equal(t, "userManagementApp account activation", msg.Subject)
	assert.Equal(t, "http://localhost:8080/account/activate?key=key+1", msg.Params["activation_url"])
	assert.Contains(t, msg.Body, "Dear jane")
}

func TestNotificationService_IgnoresOtherEvents(t *testing.T) {
	mailer := &recordingMailer{}
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(testConfig(), NotificationDependencies{
		Dispatcher: dispatcher,
		Mailer:     mailer,
		Logger:     zap.NewNop(),
	}).RegisterHandlers()

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventUserDeleted}))
	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventUserCreated}))
	assert.Empty(t, mailer.messages())
}
