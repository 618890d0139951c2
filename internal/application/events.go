package application

import (
	"context"

	"voice-tasks/internal/domain"
)

// Observer is told about every controller state transition. Implementations
// must not block.
type Observer interface {
	OnStateChange(change domain.StateChange)
}

type ObserverFunc func(change domain.StateChange)

func (f ObserverFunc) OnStateChange(change domain.StateChange) { f(change) }

// EventPublisher ships finished interaction outcomes to other systems.
type EventPublisher interface {
	Publish(ctx context.Context, outcome domain.Outcome) error
	Close() error
}

type NoopPublisher struct{}

func (n *NoopPublisher) Publish(_ context.Context, _ domain.Outcome) error { return nil }
func (n *NoopPublisher) Close() error                                      { return nil }
