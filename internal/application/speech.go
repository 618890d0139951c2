package application

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by collaborators that were never wired.
var ErrNotConfigured = errors.New("not configured")

type Transcription struct {
	Text       string
	Confidence float64
}

// SpeechToText turns a finished WAV recording into text.
type SpeechToText interface {
	Transcribe(ctx context.Context, wav []byte) (Transcription, error)
	Name() string
}

// Prober is implemented by collaborators that can report whether their
// backend is reachable. It is consulted once at startup to choose between a
// real backend and its stub.
type Prober interface {
	Probe(ctx context.Context) error
}

// NoopSTT stands in when no speech backend is configured. Every call fails.
type NoopSTT struct{}

func (n *NoopSTT) Transcribe(_ context.Context, _ []byte) (Transcription, error) {
	return Transcription{}, ErrNotConfigured
}

func (n *NoopSTT) Name() string { return "none" }
