package application

import (
	"context"
	"log/slog"
	"strings"

	"voice-tasks/internal/domain"
)

type ValidationResult struct {
	Valid  bool
	Errors []string
}

func (r ValidationResult) Reason() string {
	return strings.Join(r.Errors, ", ")
}

type ValidationStage struct {
	validator TaskValidator
	logger    *slog.Logger
}

func NewValidationStage(validator TaskValidator, logger *slog.Logger) *ValidationStage {
	return &ValidationStage{
		validator: validator,
		logger:    logger.With("component", "validation"),
	}
}

// Validate checks the record's own invariants and then asks the validator.
// A validator that cannot answer rejects the task.
func (s *ValidationStage) Validate(ctx context.Context, task domain.TaskRecord) ValidationResult {
	if problems := task.Check(); len(problems) > 0 {
		s.logger.Warn("task failed local checks", "errors", problems)
		return ValidationResult{Errors: problems}
	}

	if s.validator == nil {
		return ValidationResult{Errors: []string{"validator unavailable: not configured"}}
	}

	verdict, err := s.validator.ValidateTask(ctx, task)
	if err != nil {
		s.logger.Error("validating task", "engine", s.validator.Name(), "error", err)
		return ValidationResult{Errors: []string{"validator unavailable: " + err.Error()}}
	}

	if !verdict.Valid {
		errs := verdict.Errors
		if len(errs) == 0 {
			errs = []string{"rejected by validator"}
		}
		s.logger.Warn("task rejected", "engine", s.validator.Name(), "errors", errs)
		return ValidationResult{Errors: errs}
	}

	return ValidationResult{Valid: true}
}
