package store

import (
	"context"
	"fmt"

	"voice-tasks/internal/application"
)

type Config struct {
	Driver string
	Path   string
}

// Open returns the store selected by cfg.Driver, sqlite when empty.
func Open(ctx context.Context, cfg Config) (application.TaskStore, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return OpenSQLite(ctx, cfg.Path)
	case "badger":
		return OpenBadger(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
