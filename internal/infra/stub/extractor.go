package stub

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"voice-tasks/internal/application"
	"voice-tasks/internal/domain"
)

var (
	priorityRe   = regexp.MustCompile(`\b(urgent|high|medium|low)\b`)
	assignedByRe = regexp.MustCompile(`\b(?:given|assigned)\s+by\s+([a-z]+)`)
	taskRe       = regexp.MustCompile(`\btask\s+(?:to\s+)?(.+?)\s+(?:given|assigned)\s+by\b`)
	isoDateRe    = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	dayMonthRe   = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(january|february|march|april|may|june|july|august|september|october|november|december)\b`)
	monthDayRe   = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
)

// Extractor pulls task fields out of a transcript with fixed patterns and
// answers in the same JSON shape a language model would.
type Extractor struct {
	// Year completes spoken dates that name only a day and month.
	Year int
}

func NewExtractor(year int) *Extractor {
	if year <= 0 {
		year = time.Now().Year()
	}
	return &Extractor{Year: year}
}

func (e *Extractor) Name() string { return "stub" }

func (e *Extractor) ExtractTask(_ context.Context, text string) (string, error) {
	lower := strings.ToLower(text)

	fields := map[string]string{}
	if m := taskRe.FindStringSubmatch(lower); m != nil {
		fields[domain.FieldTask] = strings.TrimSpace(m[1])
	}
	if m := assignedByRe.FindStringSubmatch(lower); m != nil {
		fields[domain.FieldAssignedBy] = m[1]
	}
	if m := priorityRe.FindStringSubmatch(lower); m != nil {
		fields[domain.FieldPriority] = m[1]
	}
	if date, ok := e.date(lower); ok {
		fields[domain.FieldExpectedDate] = date
	}

	for _, f := range domain.RequiredFields {
		if fields[f] == "" {
			return marshal(map[string]string{
				"error":   "missing_field",
				"field":   f,
				"message": fmt.Sprintf("could not identify %s", f),
			})
		}
	}
	return marshal(fields)
}

func (e *Extractor) date(text string) (string, bool) {
	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		return m[1], true
	}

	var day, month string
	if m := dayMonthRe.FindStringSubmatch(text); m != nil {
		day, month = m[1], m[2]
	} else if m := monthDayRe.FindStringSubmatch(text); m != nil {
		month, day = m[1], m[2]
	} else {
		return "", false
	}

	d, _ := strconv.Atoi(day)
	t, err := time.Parse("2 January 2006", fmt.Sprintf("%d %s %d", d, strings.ToUpper(month[:1])+month[1:], e.Year))
	if err != nil {
		return "", false
	}
	return domain.FormatDate(t), true
}

func marshal(v map[string]string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding answer: %w", err)
	}
	return string(b), nil
}

// Validator accepts any task that satisfies the record invariants.
type Validator struct{}

func (Validator) Name() string { return "stub" }

func (Validator) ValidateTask(_ context.Context, task domain.TaskRecord) (application.Verdict, error) {
	if problems := task.Check(); len(problems) > 0 {
		return application.Verdict{Valid: false, Errors: problems}, nil
	}
	return application.Verdict{Valid: true}, nil
}
