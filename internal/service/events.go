package service

import (
	"context"

	"github.com/iliyamo/account-service/internal/queue"
)

// EventPublisher delivers account lifecycle events. *queue.Publisher
// implements it.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.UserEvent) error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.UserEvent) error { return nil }
