package stub

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"voice-tasks/internal/application"
	"voice-tasks/internal/capture"
)

const (
	toneSampleRate = 16000
	toneLength     = 500 * time.Millisecond
)

// Speaker writes a short chord to a WAV file in place of synthesized speech.
type Speaker struct {
	dir string
	seq atomic.Int64
}

func NewSpeaker(dir string) *Speaker {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Speaker{dir: dir}
}

func (s *Speaker) Speak(_ context.Context, _ string) (application.SpeechResult, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return application.SpeechResult{}, fmt.Errorf("creating cue dir: %w", err)
	}

	path := filepath.Join(s.dir, fmt.Sprintf("stub_cue_%d_%d.wav", time.Now().Unix(), s.seq.Add(1)))
	if err := os.WriteFile(path, capture.EncodeWAV(tone(), toneSampleRate), 0644); err != nil {
		return application.SpeechResult{}, fmt.Errorf("writing cue: %w", err)
	}
	return application.SpeechResult{Success: true, ArtifactPath: path}, nil
}

func tone() []int16 {
	n := int(toneLength.Seconds() * toneSampleRate)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / toneSampleRate
		v := 0.6*math.Sin(2*math.Pi*440*t) + 0.4*math.Sin(2*math.Pi*880*t) + 0.3*math.Sin(2*math.Pi*1760*t)
		samples[i] = int16(v / 1.3 * 0.9 * math.MaxInt16)
	}
	return samples
}
