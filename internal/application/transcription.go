package application

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"

	"voice-tasks/internal/capture"
	"voice-tasks/internal/domain"
)

type TranscriptionStage struct {
	stt    SpeechToText
	logger *slog.Logger
}

func NewTranscriptionStage(stt SpeechToText, logger *slog.Logger) *TranscriptionStage {
	return &TranscriptionStage{
		stt:    stt,
		logger: logger.With("component", "transcription"),
	}
}

// Transcribe converts a finished recording to text. It never substitutes
// text of its own: an unusable result is reported through ErrorKind.
func (s *TranscriptionStage) Transcribe(ctx context.Context, rec *capture.Recording) domain.TranscriptResult {
	if s.stt == nil {
		return failedTranscript(domain.KindUnavailable, "speech-to-text is not available")
	}

	if rec == nil {
		return failedTranscript(domain.KindNotFound, "no recording to transcribe")
	}

	wav := rec.WAV
	if len(wav) == 0 {
		if rec.Path == "" {
			return failedTranscript(domain.KindNotFound, "recording has no audio")
		}
		data, err := os.ReadFile(rec.Path)
		if err != nil {
			return failedTranscript(domain.KindNotFound, "reading recording: "+err.Error())
		}
		wav = data
	}

	s.logger.Info("transcribing", "engine", s.stt.Name(), "bytes", len(wav))

	result, err := s.stt.Transcribe(ctx, wav)
	if err != nil {
		s.logger.Error("speech-to-text failed", "engine", s.stt.Name(), "error", err)
		if errors.Is(err, ErrNotConfigured) {
			return failedTranscript(domain.KindUnavailable, "speech-to-text is not configured")
		}
		return failedTranscript(domain.KindUnavailable, err.Error())
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return failedTranscript(domain.KindEmptySpeech, "no speech detected")
	}

	s.logger.Info("transcribed", "text", text, "confidence", result.Confidence)

	return domain.TranscriptResult{
		Success:    true,
		Text:       text,
		Confidence: result.Confidence,
	}
}

func failedTranscript(kind domain.ErrorKind, msg string) domain.TranscriptResult {
	return domain.TranscriptResult{ErrorKind: kind, Error: msg}
}
