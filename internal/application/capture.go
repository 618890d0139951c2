package application

import (
	"context"
	"time"

	"voice-tasks/internal/capture"
)

// Capturer records one utterance at a time.
type Capturer interface {
	Start(ctx context.Context, maxDuration time.Duration) (*capture.Handle, error)
	Stop() error
	Active() bool
}
