package application

import (
	"context"

	"voice-tasks/internal/domain"
)

// TaskExtractor asks a language model to turn free text into a task. The
// result is the model's raw JSON answer; interpreting it is the extraction
// stage's job.
type TaskExtractor interface {
	ExtractTask(ctx context.Context, text string) (string, error)
	Name() string
}

type Verdict struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

type TaskValidator interface {
	ValidateTask(ctx context.Context, task domain.TaskRecord) (Verdict, error)
	Name() string
}
