package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"voice-tasks/internal/domain"
)

type ExtractionOutcome int

const (
	Parsed ExtractionOutcome = iota
	MissingField
	Malformed
)

func (o ExtractionOutcome) String() string {
	switch o {
	case Parsed:
		return "parsed"
	case MissingField:
		return "missing_field"
	case Malformed:
		return "malformed"
	default:
		return fmt.Sprintf("unknown(%d)", int(o))
	}
}

// ExtractionResult holds exactly one of a parsed task, a missing field with
// the prompt to ask for it, or the reason the answer was unusable.
type ExtractionResult struct {
	Outcome ExtractionOutcome
	Task    *domain.TaskRecord
	Field   string
	Prompt  string
	Reason  string
}

var fieldPrompts = map[string]string{
	domain.FieldTask:         "I couldn't identify the task description. Please repeat the task more clearly.",
	domain.FieldAssignedBy:   "Who assigned this task? Please specify the person's name.",
	domain.FieldPriority:     "What priority level should this task have? Please say urgent, high, medium, or low.",
	domain.FieldExpectedDate: "When is this task due? Please specify the completion date.",
}

// FieldPrompt returns the question asked when field could not be extracted.
func FieldPrompt(field string) string {
	if p, ok := fieldPrompts[field]; ok {
		return p
	}
	return fmt.Sprintf("Please provide the %s information.", field)
}

type ExtractionStage struct {
	extractor TaskExtractor
	logger    *slog.Logger
}

func NewExtractionStage(extractor TaskExtractor, logger *slog.Logger) *ExtractionStage {
	return &ExtractionStage{
		extractor: extractor,
		logger:    logger.With("component", "extraction"),
	}
}

func (s *ExtractionStage) Extract(ctx context.Context, text string) ExtractionResult {
	if s.extractor == nil {
		return malformed("task extractor is not available")
	}

	raw, err := s.extractor.ExtractTask(ctx, text)
	if err != nil {
		s.logger.Error("extracting task", "engine", s.extractor.Name(), "error", err)
		return malformed("task extractor unavailable: " + err.Error())
	}

	result := InterpretExtraction(raw)
	s.logger.Info("extraction finished",
		"engine", s.extractor.Name(),
		"outcome", result.Outcome.String(),
		"field", result.Field,
	)
	return result
}

// InterpretExtraction applies the required-field rules to a model answer.
// Fields are checked in a fixed order and the first absent, empty or
// ambiguous one is reported, whether or not the model flagged it.
func InterpretExtraction(raw string) ExtractionResult {
	doc := StripCodeFence(raw)

	var fields map[string]any
	if err := json.Unmarshal([]byte(doc), &fields); err != nil || fields == nil {
		return malformed(fmt.Sprintf("answer is not a JSON object: %q", truncate(doc, 120)))
	}

	if e, _ := fields["error"].(string); e == "missing_field" {
		if f, _ := fields["field"].(string); f != "" {
			return missing(f)
		}
	}

	values := make(map[string]string, len(domain.RequiredFields))
	for _, name := range domain.RequiredFields {
		v, ok := fields[name].(string)
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			return missing(name)
		}
		values[name] = v
	}

	priority, ok := domain.ParsePriority(values[domain.FieldPriority])
	if !ok {
		return missing(domain.FieldPriority)
	}

	due, err := domain.ParseDate(values[domain.FieldExpectedDate])
	if err != nil {
		return missing(domain.FieldExpectedDate)
	}

	notes, _ := fields["notes"].(string)

	return ExtractionResult{
		Outcome: Parsed,
		Task: &domain.TaskRecord{
			Task:         values[domain.FieldTask],
			AssignedBy:   values[domain.FieldAssignedBy],
			Priority:     priority,
			ExpectedDate: domain.FormatDate(due),
			Notes:        strings.TrimSpace(notes),
		},
	}
}

// StripCodeFence removes a surrounding ``` or ```json markdown fence.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func missing(field string) ExtractionResult {
	return ExtractionResult{Outcome: MissingField, Field: field, Prompt: FieldPrompt(field)}
}

func malformed(reason string) ExtractionResult {
	return ExtractionResult{Outcome: Malformed, Reason: reason}
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
