package application

import (
	"context"
	"errors"

	"voice-tasks/internal/domain"
)

var ErrTaskNotFound = errors.New("task not found")

// TaskStore persists task records. Append assigns the identifier.
type TaskStore interface {
	Append(ctx context.Context, task domain.TaskRecord) (string, error)
	Get(ctx context.Context, id string) (domain.StoredTask, error)
	List(ctx context.Context) ([]domain.StoredTask, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status, completedDate string) error
	Close() error
}
