package audio

import (
	"context"
	"log/slog"
)

// LogPlayer records cue paths instead of playing them.
type LogPlayer struct {
	logger *slog.Logger
}

func NewLogPlayer(logger *slog.Logger) *LogPlayer {
	return &LogPlayer{logger: logger.With("component", "player")}
}

func (p *LogPlayer) Play(_ context.Context, path string) error {
	p.logger.Info("audio cue ready", "path", path)
	return nil
}
