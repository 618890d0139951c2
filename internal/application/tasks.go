package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"voice-tasks/internal/domain"
)

// TaskService answers queries about stored tasks and applies status changes.
type TaskService struct {
	store  TaskStore
	now    func() time.Time
	logger *slog.Logger
}

func NewTaskService(store TaskStore, logger *slog.Logger) *TaskService {
	return &TaskService{
		store:  store,
		now:    time.Now,
		logger: logger.With("component", "tasks"),
	}
}

type TaskFilter struct {
	Priority domain.Priority
	Status   domain.Status
}

func (s *TaskService) List(ctx context.Context, filter TaskFilter) ([]domain.StoredTask, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}

	tasks := make([]domain.StoredTask, 0, len(all))
	for _, t := range all {
		if filter.Priority != "" && t.Priority != filter.Priority {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (s *TaskService) Get(ctx context.Context, id string) (domain.StoredTask, error) {
	return s.store.Get(ctx, id)
}

// UpdateStatus changes a task's status. Moving to done records today as the
// completion date.
func (s *TaskService) UpdateStatus(ctx context.Context, id string, status domain.Status) (domain.StoredTask, error) {
	completed := ""
	if status == domain.StatusDone {
		completed = domain.FormatDate(s.now())
	}

	if err := s.store.UpdateStatus(ctx, id, status, completed); err != nil {
		return domain.StoredTask{}, fmt.Errorf("updating %s: %w", id, err)
	}

	s.logger.Info("task status updated", "task_id", id, "status", status)
	return s.store.Get(ctx, id)
}

// Next returns the ongoing task to work on first: most pressing priority,
// then earliest due date. Tasks without a readable due date sort last within
// their priority.
func (s *TaskService) Next(ctx context.Context) (domain.StoredTask, error) {
	ongoing, err := s.List(ctx, TaskFilter{Status: domain.StatusOngoing})
	if err != nil {
		return domain.StoredTask{}, err
	}
	if len(ongoing) == 0 {
		return domain.StoredTask{}, ErrTaskNotFound
	}

	sort.SliceStable(ongoing, func(i, j int) bool {
		a, b := ongoing[i], ongoing[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		da, errA := domain.ParseDate(a.ExpectedDate)
		db, errB := domain.ParseDate(b.ExpectedDate)
		switch {
		case errA != nil:
			return false
		case errB != nil:
			return true
		}
		return da.Before(db)
	})

	return ongoing[0], nil
}

type TaskStats struct {
	Total       int            `json:"total_tasks"`
	ByPriority  map[string]int `json:"by_priority"`
	ByStatus    map[string]int `json:"by_status"`
	Overdue     int            `json:"overdue_tasks"`
	DueToday    int            `json:"due_today"`
	DueThisWeek int            `json:"due_this_week"`
}

// Stats counts tasks by priority and status. Due-date buckets only consider
// ongoing tasks.
func (s *TaskService) Stats(ctx context.Context) (TaskStats, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return TaskStats{}, fmt.Errorf("listing tasks: %w", err)
	}

	stats := TaskStats{
		Total:      len(all),
		ByPriority: make(map[string]int),
		ByStatus:   make(map[string]int),
	}

	today, _ := domain.ParseDate(domain.FormatDate(s.now()))

	for _, t := range all {
		stats.ByPriority[string(t.Priority)]++
		stats.ByStatus[string(t.Status)]++

		if t.Status != domain.StatusOngoing {
			continue
		}
		due, err := domain.ParseDate(t.ExpectedDate)
		if err != nil {
			continue
		}
		days := int(due.Sub(today).Hours() / 24)
		switch {
		case days < 0:
			stats.Overdue++
		case days == 0:
			stats.DueToday++
		case days <= 7:
			stats.DueThisWeek++
		}
	}

	return stats, nil
}
