package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v3"

	"voice-tasks/internal/application"
	"voice-tasks/internal/domain"
)

var (
	taskPrefix  = []byte("task/")
	sequenceKey = []byte("seq/task")
)

// BadgerStore keeps each task as a JSON value under a zero-padded ordinal
// key, so key order is insertion order.
type BadgerStore struct {
	db  *badger.DB
	seq *badger.Sequence
}

// OpenBadger opens the database in dir. An empty dir keeps everything in
// memory.
func OpenBadger(dir string) (*BadgerStore, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	seq, err := db.GetSequence(sequenceKey, 100)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open task sequence: %w", err)
	}

	return &BadgerStore{db: db, seq: seq}, nil
}

func taskKey(ordinal int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", taskPrefix, ordinal))
}

func (s *BadgerStore) Append(_ context.Context, t domain.TaskRecord) (string, error) {
	next, err := s.seq.Next()
	if err != nil {
		return "", fmt.Errorf("next task ordinal: %w", err)
	}
	ordinal := int64(next) + 1
	stored := domain.StoredTask{ID: domain.FormatTaskID(ordinal), TaskRecord: t}

	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("marshal task: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(taskKey(ordinal), data)
	})
	if err != nil {
		return "", fmt.Errorf("store task: %w", err)
	}
	return stored.ID, nil
}

func (s *BadgerStore) Get(_ context.Context, id string) (domain.StoredTask, error) {
	n, err := domain.ParseTaskID(id)
	if err != nil {
		return domain.StoredTask{}, fmt.Errorf("%w: %v", application.ErrTaskNotFound, err)
	}

	var t domain.StoredTask
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(taskKey(n))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &t)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.StoredTask{}, fmt.Errorf("%w: %s", application.ErrTaskNotFound, id)
	}
	if err != nil {
		return domain.StoredTask{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *BadgerStore) List(_ context.Context) ([]domain.StoredTask, error) {
	var tasks []domain.StoredTask
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = taskPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var t domain.StoredTask
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &t)
			}); err != nil {
				return err
			}
			tasks = append(tasks, t)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *BadgerStore) UpdateStatus(_ context.Context, id string, status domain.Status, completedDate string) error {
	n, err := domain.ParseTaskID(id)
	if err != nil {
		return fmt.Errorf("%w: %v", application.ErrTaskNotFound, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(taskKey(n))
		if err != nil {
			return err
		}
		var t domain.StoredTask
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &t)
		}); err != nil {
			return err
		}
		t.Status = status
		t.CompletedDate = completedDate

		data, err := json.Marshal(t)
		if err != nil {
			return err
		}
		return txn.Set(taskKey(n), data)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", application.ErrTaskNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	if err := s.seq.Release(); err != nil {
		s.db.Close()
		return fmt.Errorf("release task sequence: %w", err)
	}
	return s.db.Close()
}
