package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogMailer(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLogMailer(zap.New(core))

	err := m.Send(context.Background(), Message{
		From:    "noreply@example.com",
		To:      "a@x.com",
		Subject: "hello",
		Body:    "body",
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("email").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "a@x.com", fields["to"])
	assert.Equal(t, "hello", fields["subject"])
}
