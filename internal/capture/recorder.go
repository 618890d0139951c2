// Package capture records fixed-size PCM frames from an input device until a
// duration bound, a stretch of silence, or an explicit stop ends the session.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"voice-tasks/internal/domain"
)

var (
	ErrBusy        = errors.New("recording already in progress")
	ErrStopTimeout = errors.New("capture loop did not exit before stop timeout")
)

// FrameSource is an input device delivering 16-bit mono samples.
type FrameSource interface {
	Start(ctx context.Context) error
	// Read fills frame and returns the number of samples written. It blocks
	// for roughly one frame of audio on a live device.
	Read(frame []int16) (int, error)
	Stop() error
	Name() string
}

type Config struct {
	SampleRate       int
	FrameSize        int
	SilenceThreshold float64
	SilenceDuration  time.Duration
	StopTimeout      time.Duration
	// TempDir receives a WAV copy of every finalized recording. Empty keeps
	// recordings in memory only.
	TempDir string
}

func DefaultConfig() Config {
	return Config{
		SampleRate:       16000,
		FrameSize:        1024,
		SilenceThreshold: 0.005,
		SilenceDuration:  time.Second,
		StopTimeout:      2 * time.Second,
	}
}

// Recording is a finalized capture.
type Recording struct {
	Session    *domain.AudioSession
	WAV        []byte
	Path       string
	SampleRate int
	Duration   time.Duration
}

// Release discards the captured frames and the on-disk copy.
func (r *Recording) Release() {
	if r == nil {
		return
	}
	if r.Session != nil {
		r.Session.Discard()
	}
	r.WAV = nil
	if r.Path != "" {
		os.Remove(r.Path)
	}
}

// Handle refers to one in-flight capture session.
type Handle struct {
	session     *domain.AudioSession
	maxDuration time.Duration

	mu        sync.Mutex
	finalized bool

	stopCh   chan struct{}
	stopOnce sync.Once
	loopDone chan struct{}

	finished     chan struct{}
	finalizeOnce sync.Once
	recording    *Recording
	err          error
}

func (h *Handle) ID() string { return h.session.ID }

// Wait blocks until the session is finalized.
func (h *Handle) Wait(ctx context.Context) (*Recording, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.finished:
		return h.recording, h.err
	}
}

func (h *Handle) requestStop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
}

// Recorder owns at most one capture session at a time.
type Recorder struct {
	cfg    Config
	source FrameSource
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	active *Handle

	// abandoned is the loop of a session given up on by Stop. The source
	// is not reusable until that loop returns from Read.
	abandoned <-chan struct{}
}

func NewRecorder(cfg Config, source FrameSource, logger *slog.Logger) *Recorder {
	defaults := DefaultConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaults.SampleRate
	}
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = defaults.FrameSize
	}
	if cfg.SilenceThreshold <= 0 {
		cfg.SilenceThreshold = defaults.SilenceThreshold
	}
	if cfg.SilenceDuration <= 0 {
		cfg.SilenceDuration = defaults.SilenceDuration
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = defaults.StopTimeout
	}
	return &Recorder{
		cfg:    cfg,
		source: source,
		logger: logger.With("component", "capture"),
		now:    time.Now,
	}
}

func (r *Recorder) Config() Config { return r.cfg }

func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Start opens a capture session. With maxDuration > 0 the session ends when
// that much time has elapsed and silence is ignored; otherwise it ends on
// sustained silence or Stop.
func (r *Recorder) Start(ctx context.Context, maxDuration time.Duration) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		r.logger.Warn("recording already in progress", "session", r.active.session.ID)
		return nil, ErrBusy
	}
	if r.abandoned != nil {
		select {
		case <-r.abandoned:
			r.abandoned = nil
		default:
			r.logger.Warn("previous capture loop is still blocked on the source")
			return nil, ErrBusy
		}
	}

	if err := r.source.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting %s source: %w", r.source.Name(), err)
	}

	h := &Handle{
		session: &domain.AudioSession{
			ID:        uuid.NewString(),
			StartTime: r.now(),
			State:     domain.AudioRecording,
		},
		maxDuration: maxDuration,
		stopCh:      make(chan struct{}),
		loopDone:    make(chan struct{}),
		finished:    make(chan struct{}),
	}
	r.active = h

	go r.loop(ctx, h)

	mode := "silence"
	if maxDuration > 0 {
		mode = "duration"
	}
	r.logger.Info("recording started",
		"session", h.session.ID,
		"mode", mode,
		"max_duration", maxDuration,
		"source", r.source.Name(),
	)
	return h, nil
}

// Stop asks the active session to end and waits up to the stop timeout for
// the capture loop. On timeout the loop is abandoned and whatever was
// captured is finalized anyway. Stop without an active session is a no-op.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	h := r.active
	r.mu.Unlock()

	if h == nil {
		return nil
	}

	h.requestStop()

	select {
	case <-h.loopDone:
		<-h.finished
		return nil
	case <-time.After(r.cfg.StopTimeout):
		r.logger.Warn("capture loop did not exit in time, abandoning it",
			"session", h.session.ID,
			"timeout", r.cfg.StopTimeout,
		)
		if err := r.source.Stop(); err != nil {
			r.logger.Warn("stopping source after timeout", "error", err)
		}
		r.mu.Lock()
		r.abandoned = h.loopDone
		r.mu.Unlock()
		r.finalize(h, domain.StopManual)
		return ErrStopTimeout
	}
}

func (r *Recorder) loop(ctx context.Context, h *Handle) {
	defer close(h.loopDone)

	var gate *SilenceGate
	if h.maxDuration <= 0 {
		gate = NewSilenceGate(r.cfg.SilenceThreshold, r.cfg.SilenceDuration, r.cfg.SampleRate, r.cfg.FrameSize)
	}

	reason := domain.StopManual
	start := h.session.StartTime

loop:
	for {
		select {
		case <-h.stopCh:
			reason = domain.StopManual
			break loop
		case <-ctx.Done():
			reason = domain.StopManual
			break loop
		default:
		}

		frame := make([]int16, r.cfg.FrameSize)
		n, err := r.source.Read(frame)
		if err != nil {
			r.logger.Error("reading audio frame", "session", h.session.ID, "error", err)
			reason = domain.StopError
			break loop
		}
		frame = frame[:n]

		h.mu.Lock()
		if h.finalized {
			h.mu.Unlock()
			return
		}
		h.session.Frames = append(h.session.Frames, frame)
		h.mu.Unlock()

		if gate == nil {
			if r.now().Sub(start) >= h.maxDuration {
				reason = domain.StopDuration
				break loop
			}
			continue
		}

		if gate.Observe(frame) == StopCapture {
			reason = domain.StopSilence
			break loop
		}
	}

	if err := r.source.Stop(); err != nil {
		r.logger.Warn("stopping source", "error", err)
	}
	r.finalize(h, reason)
}

// finalize runs once per session, from the loop or from an abandoning Stop.
func (r *Recorder) finalize(h *Handle, reason domain.StopReason) {
	h.finalizeOnce.Do(func() {
		h.mu.Lock()
		h.finalized = true
		h.session.State = domain.AudioFinalizing
		h.session.StopReason = reason
		frames := h.session.Frames
		h.mu.Unlock()

		samples := 0
		for _, f := range frames {
			samples += len(f)
		}

		rec := &Recording{
			Session:    h.session,
			WAV:        EncodeFrames(frames, r.cfg.SampleRate),
			SampleRate: r.cfg.SampleRate,
			Duration:   time.Duration(samples) * time.Second / time.Duration(r.cfg.SampleRate),
		}

		if r.cfg.TempDir != "" {
			path, err := r.writeTemp(h.session, rec.WAV)
			if err != nil {
				r.logger.Error("saving recording", "session", h.session.ID, "error", err)
				h.err = err
			}
			rec.Path = path
		}

		if reason == domain.StopError {
			h.session.State = domain.AudioAborted
		} else {
			h.session.State = domain.AudioComplete
		}
		h.recording = rec

		r.mu.Lock()
		if r.active == h {
			r.active = nil
		}
		r.mu.Unlock()

		r.logger.Info("recording finalized",
			"session", h.session.ID,
			"reason", reason.String(),
			"frames", len(frames),
			"duration", rec.Duration,
		)
		close(h.finished)
	})
}

func (r *Recorder) writeTemp(s *domain.AudioSession, wav []byte) (string, error) {
	if err := os.MkdirAll(r.cfg.TempDir, 0755); err != nil {
		return "", fmt.Errorf("creating temp dir: %w", err)
	}
	path := filepath.Join(r.cfg.TempDir, fmt.Sprintf("recording_%d_%s.wav", s.StartTime.Unix(), s.ID[:8]))
	if err := os.WriteFile(path, wav, 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
