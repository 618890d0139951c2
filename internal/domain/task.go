package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priorities lists the priority levels from most to least pressing.
var Priorities = []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}

func ParsePriority(s string) (Priority, bool) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Priorities {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// Rank orders priorities, lower is more pressing. Unknown values sort last.
func (p Priority) Rank() int {
	for i, known := range Priorities {
		if p == known {
			return i
		}
	}
	return len(Priorities)
}

type Status string

const (
	StatusOngoing   Status = "ongoing"
	StatusDone      Status = "done"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
)

var Statuses = []Status{StatusOngoing, StatusDone, StatusPaused, StatusCancelled}

func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Statuses {
		if st == known {
			return st, true
		}
	}
	return "", false
}

// DateLayout is the calendar date format used for every date field of a task.
const DateLayout = "2006-01-02"

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Required task fields, in the order they are checked.
const (
	FieldTask         = "task"
	FieldAssignedBy   = "assigned_by"
	FieldPriority     = "priority"
	FieldExpectedDate = "expected_date"
)

var RequiredFields = []string{FieldTask, FieldAssignedBy, FieldPriority, FieldExpectedDate}

type TaskRecord struct {
	Task          string   `json:"task"`
	AssignedBy    string   `json:"assigned_by"`
	Priority      Priority `json:"priority"`
	ExpectedDate  string   `json:"expected_date"`
	Notes         string   `json:"notes,omitempty"`
	Status        Status   `json:"status,omitempty"`
	CreatedDate   string   `json:"created_date,omitempty"`
	CompletedDate string   `json:"completed_date,omitempty"`
}

// Check reports every invariant the record violates. An empty result means
// the record may be handed to a task store.
func (t TaskRecord) Check() []string {
	var problems []string
	if strings.TrimSpace(t.Task) == "" {
		problems = append(problems, "task description is empty")
	}
	if strings.TrimSpace(t.AssignedBy) == "" {
		problems = append(problems, "assigned_by is empty")
	}
	if _, ok := ParsePriority(string(t.Priority)); !ok {
		problems = append(problems, fmt.Sprintf("priority %q is not one of urgent, high, medium, low", t.Priority))
	}
	if _, err := ParseDate(t.ExpectedDate); err != nil {
		problems = append(problems, fmt.Sprintf("expected_date: %v", err))
	}
	if t.Status != "" {
		if _, ok := ParseStatus(string(t.Status)); !ok {
			problems = append(problems, fmt.Sprintf("status %q is not one of ongoing, done, paused, cancelled", t.Status))
		}
	}
	return problems
}

// StoredTask is a task record together with the identifier the store assigned.
type StoredTask struct {
	ID string `json:"task_id"`
	TaskRecord
}

const taskIDPrefix = "TASK_"

// FormatTaskID renders a store ordinal. The number is a row position, not a
// stable key.
func FormatTaskID(ordinal int64) string {
	return fmt.Sprintf("%s%04d", taskIDPrefix, ordinal)
}

func ParseTaskID(id string) (int64, error) {
	if !strings.HasPrefix(id, taskIDPrefix) {
		return 0, fmt.Errorf("invalid task id %q", id)
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(id, taskIDPrefix), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid task id %q", id)
	}
	return n, nil
}
