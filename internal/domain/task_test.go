package domain_test

import (
	"regexp"
	"testing"

	"voice-tasks/internal/domain"
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in   string
		want domain.Priority
		ok   bool
	}{
		{"high", domain.PriorityHigh, true},
		{" Urgent ", domain.PriorityUrgent, true},
		{"LOW", domain.PriorityLow, true},
		{"critical", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := domain.ParsePriority(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParsePriority(%q): got (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPriorityRank(t *testing.T) {
	if !(domain.PriorityUrgent.Rank() < domain.PriorityHigh.Rank() &&
		domain.PriorityHigh.Rank() < domain.PriorityMedium.Rank() &&
		domain.PriorityMedium.Rank() < domain.PriorityLow.Rank()) {
		t.Error("priorities are not ranked urgent < high < medium < low")
	}
	if domain.Priority("whenever").Rank() <= domain.PriorityLow.Rank() {
		t.Error("unknown priority should rank after low")
	}
}

func TestTaskRecordCheck(t *testing.T) {
	valid := domain.TaskRecord{
		Task:         "build a dashboard project",
		AssignedBy:   "sunny",
		Priority:     domain.PriorityHigh,
		ExpectedDate: "2024-07-04",
	}

	if problems := valid.Check(); len(problems) != 0 {
		t.Fatalf("valid record reported %v", problems)
	}

	tests := []struct {
		name   string
		mutate func(*domain.TaskRecord)
	}{
		{"empty task", func(r *domain.TaskRecord) { r.Task = "  " }},
		{"empty assigned_by", func(r *domain.TaskRecord) { r.AssignedBy = "" }},
		{"unknown priority", func(r *domain.TaskRecord) { r.Priority = "asap" }},
		{"bad date", func(r *domain.TaskRecord) { r.ExpectedDate = "July 4th" }},
		{"impossible date", func(r *domain.TaskRecord) { r.ExpectedDate = "2024-02-30" }},
		{"unknown status", func(r *domain.TaskRecord) { r.Status = "blocked" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			if problems := r.Check(); len(problems) != 1 {
				t.Errorf("got %d problems %v, want 1", len(problems), problems)
			}
		})
	}
}

func TestTaskID(t *testing.T) {
	id := domain.FormatTaskID(7)
	if !regexp.MustCompile(`^TASK_\d{4}$`).MatchString(id) {
		t.Fatalf("FormatTaskID(7) = %q", id)
	}

	n, err := domain.ParseTaskID(id)
	if err != nil || n != 7 {
		t.Errorf("ParseTaskID(%q) = %d, %v", id, n, err)
	}

	for _, bad := range []string{"", "TASK_", "TASK_abc", "task_0001", "TASK_0000"} {
		if _, err := domain.ParseTaskID(bad); err == nil {
			t.Errorf("ParseTaskID(%q) accepted", bad)
		}
	}
}
