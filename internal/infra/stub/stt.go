// Package stub holds deterministic stand-ins for the speech, language and
// voice backends. They are chosen at startup when a real backend fails its
// availability probe.
package stub

import (
	"context"
	"sync"

	"voice-tasks/internal/application"
)

// DefaultTranscript is what the stub recognizer hears when nothing else was
// configured.
const DefaultTranscript = "please add a high priority task build a dashboard project given by sunny expected completed date 4 july"

// STT returns canned transcripts in rotation regardless of the audio.
type STT struct {
	mu          sync.Mutex
	transcripts []string
	next        int
}

func NewSTT(transcripts ...string) *STT {
	if len(transcripts) == 0 {
		transcripts = []string{DefaultTranscript}
	}
	return &STT{transcripts: transcripts}
}

func (s *STT) Name() string { return "stub" }

func (s *STT) Transcribe(_ context.Context, _ []byte) (application.Transcription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text := s.transcripts[s.next%len(s.transcripts)]
	s.next++
	return application.Transcription{Text: text, Confidence: 0.95}, nil
}
