package application

import (
	"context"
	"fmt"

	"voice-tasks/internal/domain"
)

// Notifier delivers a one-line summary of every finished interaction
// outside the voice channel.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type NoopNotifier struct{}

func (n *NoopNotifier) Notify(_ context.Context, _ string) error {
	return nil
}

// NotificationText is the summary sent to the Notifier for o.
func NotificationText(o domain.Outcome) string {
	if o.State == domain.StateDone {
		return fmt.Sprintf("%s: %s", o.TaskID, o.Message)
	}
	return fmt.Sprintf("Voice task failed (%s): %s", o.Kind, o.Message)
}
