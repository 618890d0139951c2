package application

import (
	"context"
	"log/slog"
	"time"

	"voice-tasks/internal/domain"
)

type PersistResult struct {
	Success bool
	TaskID  string
	Error   string
}

type PersistenceStage struct {
	store  TaskStore
	now    func() time.Time
	logger *slog.Logger
}

func NewPersistenceStage(store TaskStore, logger *slog.Logger) *PersistenceStage {
	return &PersistenceStage{
		store:  store,
		now:    time.Now,
		logger: logger.With("component", "persistence"),
	}
}

// Persist appends task to the store, stamping status and creation date when
// they are unset. Store errors are reported as they are.
func (s *PersistenceStage) Persist(ctx context.Context, task domain.TaskRecord) PersistResult {
	if s.store == nil {
		return PersistResult{Error: "task store is not available"}
	}

	task = Stamp(task, s.now())

	id, err := s.store.Append(ctx, task)
	if err != nil {
		s.logger.Error("appending task", "error", err)
		return PersistResult{Error: err.Error()}
	}

	s.logger.Info("task stored", "task_id", id, "priority", task.Priority, "due", task.ExpectedDate)
	return PersistResult{Success: true, TaskID: id}
}

// Stamp fills the bookkeeping fields of a new task.
func Stamp(task domain.TaskRecord, now time.Time) domain.TaskRecord {
	if task.Status == "" {
		task.Status = domain.StatusOngoing
	}
	if task.CreatedDate == "" {
		task.CreatedDate = domain.FormatDate(now)
	}
	return task
}
