package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcherRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()

	var calls []string
	boom := errors.New("boom")
	d.Subscribe(EventSessionCreated, func(context.Context, Event) error {
		calls = append(calls, "first")
		return boom
	})
	d.Subscribe(EventSessionCreated, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventSessionEnded, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventSessionCreated, Actor{Username: "alice"}, nil))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestDispatcherWithoutHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), NewEvent(EventLoginFailed, Actor{}, nil)))
}

func TestNewEvent(t *testing.T) {
	e := NewEvent(EventSessionsRevoked, Actor{Username: "bob"}, SessionsRevokedPayload{Reason: "banned", Revoked: 2})
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, SessionsRevokedPayload{Reason: "banned", Revoked: 2}, e.Payload)
}
