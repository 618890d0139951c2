//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/gordonklaus/portaudio"

	"voice-tasks/internal/capture"
)

// MicrophoneSource reads frames from the default input device. The stream
// is opened on Start and closed on Stop, once per capture session.
type MicrophoneSource struct {
	stream     *portaudio.Stream
	sampleRate int
	frameSize  int
	buffer     []int16
	logger     *slog.Logger
}

func NewMicrophoneSource(sampleRate, frameSize int, logger *slog.Logger) *MicrophoneSource {
	return &MicrophoneSource{
		sampleRate: sampleRate,
		frameSize:  frameSize,
		logger:     logger.With("component", "microphone"),
	}
}

func (m *MicrophoneSource) Name() string {
	return "microphone"
}

func (m *MicrophoneSource) Start(_ context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	m.buffer = make([]int16, m.frameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), m.frameSize, m.buffer)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("opening stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("starting stream: %w", err)
	}
	m.stream = stream

	m.logger.Info("microphone started", "sampleRate", m.sampleRate, "frameSize", m.frameSize)
	return nil
}

func (m *MicrophoneSource) Read(frame []int16) (int, error) {
	if m.stream == nil {
		return 0, fmt.Errorf("microphone not started")
	}
	if err := m.stream.Read(); err != nil {
		return 0, fmt.Errorf("reading from stream: %w", err)
	}
	return copy(frame, m.buffer), nil
}

func (m *MicrophoneSource) Stop() error {
	if m.stream == nil {
		return nil
	}
	m.stream.Stop()
	m.stream.Close()
	m.stream = nil
	return portaudio.Terminate()
}

// Player writes WAV cues to the default output device.
type Player struct {
	logger *slog.Logger
}

func NewPlayer(logger *slog.Logger) *Player {
	return &Player{logger: logger.With("component", "player")}
}

func (p *Player) Play(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading cue: %w", err)
	}
	samples, rate, err := capture.DecodeWAV(data)
	if err != nil {
		return fmt.Errorf("decoding cue: %w", err)
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}
	defer portaudio.Terminate()

	const chunk = 1024
	out := make([]int16, chunk)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(rate), chunk, out)
	if err != nil {
		return fmt.Errorf("opening output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("starting output stream: %w", err)
	}
	defer stream.Stop()

	for pos := 0; pos < len(samples); pos += chunk {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n := copy(out, samples[pos:])
		for i := n; i < chunk; i++ {
			out[i] = 0
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("writing to stream: %w", err)
		}
	}
	p.logger.Debug("cue played", "path", path, "samples", len(samples))
	return nil
}
