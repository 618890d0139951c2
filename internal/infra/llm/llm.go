// Package llm turns a chat completion backend into the task extractor and
// validator used by the pipeline.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"voice-tasks/internal/application"
	"voice-tasks/internal/domain"
)

// Completer sends one system + user exchange to a language model and returns
// its text answer.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Name() string
}

type Extractor struct {
	completer Completer
	now       func() time.Time
}

func NewExtractor(c Completer) *Extractor {
	return &Extractor{completer: c, now: time.Now}
}

// ExtractTask returns the model's answer unchanged; interpretation happens
// in the extraction stage.
func (e *Extractor) ExtractTask(ctx context.Context, text string) (string, error) {
	system := fmt.Sprintf(extractionPrompt, domain.FormatDate(e.now()))
	answer, err := e.completer.Complete(ctx, system, text)
	if err != nil {
		return "", fmt.Errorf("%s extraction: %w", e.completer.Name(), err)
	}
	return answer, nil
}

func (e *Extractor) Name() string { return e.completer.Name() }

type Validator struct {
	completer Completer
}

func NewValidator(c Completer) *Validator {
	return &Validator{completer: c}
}

func (v *Validator) ValidateTask(ctx context.Context, task domain.TaskRecord) (application.Verdict, error) {
	doc, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return application.Verdict{}, fmt.Errorf("marshaling task: %w", err)
	}

	answer, err := v.completer.Complete(ctx, validationPrompt, "Task data: "+string(doc))
	if err != nil {
		return application.Verdict{}, fmt.Errorf("%s validation: %w", v.completer.Name(), err)
	}

	text := application.StripCodeFence(answer)

	var verdict application.Verdict
	if err := json.Unmarshal([]byte(text), &verdict); err != nil {
		return application.Verdict{}, fmt.Errorf("parsing verdict JSON (%s): %w", text, err)
	}
	return verdict, nil
}

func (v *Validator) Name() string { return v.completer.Name() }
