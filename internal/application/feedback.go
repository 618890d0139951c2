package application

import (
	"context"
	"log/slog"
)

type SpeechResult struct {
	Success      bool
	ArtifactPath string
}

// Speaker renders text to an audio cue on disk.
type Speaker interface {
	Speak(ctx context.Context, text string) (SpeechResult, error)
}

type Player interface {
	Play(ctx context.Context, path string) error
}

// Feedback speaks short status lines to the user. Failures are logged and
// never reach the caller.
type Feedback struct {
	speaker Speaker
	player  Player
	logger  *slog.Logger
}

func NewFeedback(speaker Speaker, player Player, logger *slog.Logger) *Feedback {
	return &Feedback{
		speaker: speaker,
		player:  player,
		logger:  logger.With("component", "feedback"),
	}
}

func (f *Feedback) Say(ctx context.Context, text string) {
	f.logger.Info("speaking", "text", text)

	if f.speaker == nil {
		return
	}

	result, err := f.speaker.Speak(ctx, text)
	if err != nil {
		f.logger.Error("text to speech", "error", err)
		return
	}
	if !result.Success || result.ArtifactPath == "" {
		f.logger.Warn("text to speech produced no audio")
		return
	}

	if f.player == nil {
		return
	}
	if err := f.player.Play(ctx, result.ArtifactPath); err != nil {
		f.logger.Error("playing audio cue", "path", result.ArtifactPath, "error", err)
	}
}
