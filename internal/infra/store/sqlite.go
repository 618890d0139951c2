// Package store keeps task records in SQLite or Badger.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"voice-tasks/internal/application"
	"voice-tasks/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id             INTEGER PRIMARY KEY,
	task           TEXT NOT NULL,
	assigned_by    TEXT NOT NULL,
	priority       TEXT NOT NULL,
	expected_date  TEXT NOT NULL,
	notes          TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL,
	created_date   TEXT NOT NULL,
	completed_date TEXT NOT NULL DEFAULT ''
)`

// SQLiteStore appends one row per task. The row id is the task ordinal.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path. ":memory:" gives a
// private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, t domain.TaskRecord) (string, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (task, assigned_by, priority, expected_date, notes, status, created_date, completed_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.Task, t.AssignedBy, string(t.Priority), t.ExpectedDate, t.Notes, string(t.Status), t.CreatedDate, t.CompletedDate)
	if err != nil {
		return "", fmt.Errorf("insert task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("read task ordinal: %w", err)
	}
	return domain.FormatTaskID(id), nil
}

const selectTask = `
	SELECT id, task, assigned_by, priority, expected_date, notes, status, created_date, completed_date
	FROM tasks`

func (s *SQLiteStore) Get(ctx context.Context, id string) (domain.StoredTask, error) {
	n, err := domain.ParseTaskID(id)
	if err != nil {
		return domain.StoredTask{}, fmt.Errorf("%w: %v", application.ErrTaskNotFound, err)
	}

	t, err := scanTask(s.db.QueryRowContext(ctx, selectTask+" WHERE id = ?", n))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StoredTask{}, fmt.Errorf("%w: %s", application.ErrTaskNotFound, id)
	}
	if err != nil {
		return domain.StoredTask{}, fmt.Errorf("scan task: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]domain.StoredTask, error) {
	rows, err := s.db.QueryContext(ctx, selectTask+" ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.StoredTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status domain.Status, completedDate string) error {
	n, err := domain.ParseTaskID(id)
	if err != nil {
		return fmt.Errorf("%w: %v", application.ErrTaskNotFound, err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, completed_date = ? WHERE id = ?`,
		string(status), completedDate, n)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", application.ErrTaskNotFound, id)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (domain.StoredTask, error) {
	var (
		t        domain.StoredTask
		ordinal  int64
		priority string
		status   string
	)
	if err := row.Scan(&ordinal, &t.Task, &t.AssignedBy, &priority, &t.ExpectedDate,
		&t.Notes, &status, &t.CreatedDate, &t.CompletedDate); err != nil {
		return domain.StoredTask{}, err
	}
	t.ID = domain.FormatTaskID(ordinal)
	t.Priority = domain.Priority(priority)
	t.Status = domain.Status(status)
	return t, nil
}
