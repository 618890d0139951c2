package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"voice-tasks/internal/application"
	"voice-tasks/internal/capture"
	"voice-tasks/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// speechSource plays a few loud frames at the start of every session and
// silence after that.
type speechSource struct {
	mu    sync.Mutex
	loud  int
	reads int
}

func (s *speechSource) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads = 0
	return nil
}

func (s *speechSource) Stop() error  { return nil }
func (s *speechSource) Name() string { return "speech" }

func (s *speechSource) Read(frame []int16) (int, error) {
	time.Sleep(time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	var v int16
	if s.reads <= s.loud {
		v = 12000
	}
	for i := range frame {
		frame[i] = v
	}
	return len(frame), nil
}

// stuckSource blocks in Read until released.
type stuckSource struct {
	release chan struct{}
	once    sync.Once
}

func newStuckSource() *stuckSource {
	return &stuckSource{release: make(chan struct{})}
}

func (s *stuckSource) Start(_ context.Context) error { return nil }
func (s *stuckSource) Stop() error                   { return nil }
func (s *stuckSource) Name() string                  { return "stuck" }

func (s *stuckSource) Read(_ []int16) (int, error) {
	<-s.release
	return 0, io.EOF
}

func (s *stuckSource) Release() {
	s.once.Do(func() { close(s.release) })
}

func newRecorder(src capture.FrameSource) *capture.Recorder {
	cfg := capture.DefaultConfig()
	cfg.FrameSize = 256
	cfg.SilenceDuration = 50 * time.Millisecond
	cfg.StopTimeout = 50 * time.Millisecond
	return capture.NewRecorder(cfg, src, testLogger())
}

// fakeSTT returns its transcripts in order, then empty text.
type fakeSTT struct {
	mu      sync.Mutex
	texts   []string
	err     error
	calls   int
	lastWAV []byte
}

func (f *fakeSTT) Transcribe(_ context.Context, wav []byte) (application.Transcription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastWAV = wav
	if f.err != nil {
		return application.Transcription{}, f.err
	}
	if len(f.texts) == 0 {
		return application.Transcription{}, nil
	}
	text := f.texts[0]
	f.texts = f.texts[1:]
	return application.Transcription{Text: text, Confidence: 0.9}, nil
}

func (f *fakeSTT) Name() string { return "fake" }

func (f *fakeSTT) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeExtractor struct {
	mu     sync.Mutex
	answer func(text string) (string, error)
	inputs []string
}

func (f *fakeExtractor) ExtractTask(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, text)
	f.mu.Unlock()
	return f.answer(text)
}

func (f *fakeExtractor) Name() string { return "fake" }

func (f *fakeExtractor) Inputs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.inputs...)
}

type fakeValidator struct {
	verdict application.Verdict
	err     error
	calls   int
}

func (f *fakeValidator) ValidateTask(_ context.Context, _ domain.TaskRecord) (application.Verdict, error) {
	f.calls++
	return f.verdict, f.err
}

func (f *fakeValidator) Name() string { return "fake" }

type memStore struct {
	mu        sync.Mutex
	tasks     []domain.StoredTask
	appendErr error
}

func (m *memStore) Append(_ context.Context, task domain.TaskRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return "", m.appendErr
	}
	id := domain.FormatTaskID(int64(len(m.tasks) + 1))
	m.tasks = append(m.tasks, domain.StoredTask{ID: id, TaskRecord: task})
	return id, nil
}

func (m *memStore) Get(_ context.Context, id string) (domain.StoredTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.StoredTask{}, application.ErrTaskNotFound
}

func (m *memStore) List(_ context.Context) ([]domain.StoredTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]domain.StoredTask(nil), m.tasks...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id string, status domain.Status, completed string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tasks {
		if m.tasks[i].ID == id {
			m.tasks[i].Status = status
			if completed != "" {
				m.tasks[i].CompletedDate = completed
			}
			return nil
		}
	}
	return application.ErrTaskNotFound
}

func (m *memStore) Close() error { return nil }

func (m *memStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// lineSpeaker records every line it is asked to say.
type lineSpeaker struct {
	mu    sync.Mutex
	lines []string
	err   error
}

func (s *lineSpeaker) Speak(_ context.Context, text string) (application.SpeechResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, text)
	if s.err != nil {
		return application.SpeechResult{}, s.err
	}
	return application.SpeechResult{Success: true, ArtifactPath: "cue.wav"}, nil
}

func (s *lineSpeaker) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

type countingPlayer struct {
	mu    sync.Mutex
	paths []string
}

func (p *countingPlayer) Play(_ context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, path)
	return nil
}

type stateLog struct {
	mu     sync.Mutex
	states []domain.PipelineState
}

func (l *stateLog) OnStateChange(c domain.StateChange) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, c.To)
}

func (l *stateLog) States() []domain.PipelineState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.PipelineState(nil), l.states...)
}

type outcomeLog struct {
	mu       sync.Mutex
	outcomes []domain.Outcome
}

func (o *outcomeLog) Publish(_ context.Context, out domain.Outcome) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, out)
	return nil
}

func (o *outcomeLog) Close() error { return nil }

func (o *outcomeLog) Last() (domain.Outcome, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.outcomes) == 0 {
		return domain.Outcome{}, false
	}
	return o.outcomes[len(o.outcomes)-1], true
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return errors.New("push service down")
}

func (n *recordingNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}
