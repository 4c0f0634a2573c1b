package events_test

import (
	"context"
	"testing"

	"arqueo-backend/internal/events"
	"github.com/stretchr/testify/assert"
)

func TestEvent_RoutingKey(t *testing.T) {
	e := events.Event{Entity: "finding", Action: events.ActionCreated}
	assert.Equal(t, "finding.created", e.RoutingKey())
}

func TestNopPublisher(t *testing.T) {
	var p events.Publisher = events.NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), events.Event{}))
	assert.NoError(t, p.Close())
}
