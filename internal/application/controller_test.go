package application_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"voice-tasks/internal/application"
	"voice-tasks/internal/capture"
	"voice-tasks/internal/domain"
)

const dashboardJSON = "```json\n" +
	`{"task":"build a dashboard project","assigned_by":"sunny","priority":"high","expected_date":"2024-07-04"}` +
	"\n```"

type harness struct {
	stt        *fakeSTT
	extractor  *fakeExtractor
	validator  *fakeValidator
	store      *memStore
	speaker    *lineSpeaker
	states     *stateLog
	outcomes   *outcomeLog
	notifier   *recordingNotifier
	controller *application.Controller
}

func newHarness(t *testing.T, src capture.FrameSource, texts []string, answer func(string) (string, error)) *harness {
	t.Helper()

	h := &harness{
		stt:       &fakeSTT{texts: texts},
		extractor: &fakeExtractor{answer: answer},
		validator: &fakeValidator{verdict: application.Verdict{Valid: true}},
		store:     &memStore{},
		speaker:   &lineSpeaker{},
		states:    &stateLog{},
		outcomes:  &outcomeLog{},
		notifier:  &recordingNotifier{},
	}

	logger := testLogger()
	h.controller = application.NewController(
		newRecorder(src),
		application.Stages{
			Transcription: application.NewTranscriptionStage(h.stt, logger),
			Extraction:    application.NewExtractionStage(h.extractor, logger),
			Validation:    application.NewValidationStage(h.validator, logger),
			Persistence:   application.NewPersistenceStage(h.store, logger),
		},
		application.NewFeedback(h.speaker, &countingPlayer{}, logger),
		h.notifier,
		h.outcomes,
		application.ControllerConfig{FollowupDuration: 30 * time.Millisecond},
		logger,
	)
	h.controller.AddObserver(h.states)
	t.Cleanup(func() { h.controller.Close() })
	return h
}

func (h *harness) run(t *testing.T) domain.Outcome {
	t.Helper()
	if err := h.controller.OnTrigger(); err != nil {
		t.Fatalf("OnTrigger: %v", err)
	}
	h.waitIdle(t)

	out, ok := h.outcomes.Last()
	if !ok {
		t.Fatal("no outcome published")
	}
	return out
}

// waitIdle fails the test if the running interaction does not finish.
func (h *harness) waitIdle(t *testing.T) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		h.controller.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("interaction did not finish, state %s", h.controller.State())
	}
}

func countState(states []domain.PipelineState, s domain.PipelineState) int {
	n := 0
	for _, st := range states {
		if st == s {
			n++
		}
	}
	return n
}

func TestController_DashboardTaskIsStored(t *testing.T) {
	h := newHarness(t, &speechSource{loud: 3},
		[]string{"add a high priority task build a dashboard project given by sunny expected completed date 4 july"},
		func(string) (string, error) { return dashboardJSON, nil },
	)

	out := h.run(t)

	if out.State != domain.StateDone {
		t.Fatalf("state: got %s (%s: %s)", out.State, out.Kind, out.Message)
	}
	if out.TaskID != "TASK_0001" {
		t.Errorf("task id: got %q", out.TaskID)
	}

	want := domain.TaskRecord{
		Task:         "build a dashboard project",
		AssignedBy:   "sunny",
		Priority:     domain.PriorityHigh,
		ExpectedDate: "2024-07-04",
	}
	if *out.Task != want {
		t.Errorf("task: got %+v, want %+v", *out.Task, want)
	}

	wantStates := []domain.PipelineState{
		domain.StateAwaitingSpeech,
		domain.StateTranscribing,
		domain.StateExtracting,
		domain.StateValidating,
		domain.StatePersisting,
		domain.StateDone,
		domain.StateIdle,
	}
	got := h.states.States()
	if len(got) != len(wantStates) {
		t.Fatalf("states: got %v, want %v", got, wantStates)
	}
	for i := range wantStates {
		if got[i] != wantStates[i] {
			t.Errorf("state %d: got %s, want %s", i, got[i], wantStates[i])
		}
	}

	lines := h.speaker.Lines()
	wantLine := "Task added successfully! Your high priority task 'build a dashboard project' has been recorded and is due on 2024-07-04."
	if lines[len(lines)-1] != wantLine {
		t.Errorf("last spoken line: %q", lines[len(lines)-1])
	}

	if h.controller.State() != domain.StateIdle {
		t.Errorf("controller not idle: %s", h.controller.State())
	}
	if h.notifier.Count() != 1 {
		t.Errorf("notifications: got %d, want 1", h.notifier.Count())
	}
}

func TestController_MissingFieldTwiceFails(t *testing.T) {
	h := newHarness(t, &speechSource{loud: 3},
		[]string{"add a task build a dashboard project given by sunny due 2024-07-04", "tomorrow"},
		func(string) (string, error) {
			return `{"task":"build a dashboard project","assigned_by":"sunny","expected_date":"2024-07-04"}`, nil
		},
	)

	out := h.run(t)

	if out.State != domain.StateFailed {
		t.Fatalf("state: got %s", out.State)
	}
	if out.Kind != domain.KindMissingField.String() {
		t.Errorf("kind: got %s", out.Kind)
	}
	if h.stt.Calls() != 2 {
		t.Errorf("transcriptions: got %d, want 2", h.stt.Calls())
	}

	inputs := h.extractor.Inputs()
	if len(inputs) != 2 {
		t.Fatalf("extractions: got %d, want 2", len(inputs))
	}
	if inputs[1] != inputs[0]+" tomorrow" {
		t.Errorf("follow-up extraction input: %q", inputs[1])
	}

	if n := countState(h.states.States(), domain.StateAwaitingFollowup); n != 1 {
		t.Errorf("follow-up rounds: got %d, want 1", n)
	}

	prompt := application.FieldPrompt(domain.FieldPriority)
	found := false
	for _, l := range h.speaker.Lines() {
		if l == prompt {
			found = true
		}
	}
	if !found {
		t.Error("priority prompt was not spoken")
	}
	if h.store.Len() != 0 {
		t.Error("task stored despite failure")
	}
}

func TestController_FollowupCompletesTask(t *testing.T) {
	h := newHarness(t, &speechSource{loud: 3},
		[]string{"build a dashboard project given by sunny due 2024-07-04", "high"},
		func(text string) (string, error) {
			if strings.HasSuffix(text, " high") {
				return dashboardJSON, nil
			}
			return `{"error":"missing_field","field":"priority","message":"no priority"}`, nil
		},
	)

	out := h.run(t)

	if out.State != domain.StateDone {
		t.Fatalf("state: got %s (%s)", out.State, out.Message)
	}
	if h.store.Len() != 1 {
		t.Errorf("stored tasks: got %d", h.store.Len())
	}

	spoken := map[string]int{}
	for _, l := range h.speaker.Lines() {
		spoken[l]++
	}
	if spoken["Processing your voice input..."] != 2 || spoken["Analyzing your task..."] != 2 {
		t.Errorf("follow-up stages were not announced: %v", h.speaker.Lines())
	}
	if spoken["Validating your task..."] != 1 {
		t.Errorf("validation was not announced: %v", h.speaker.Lines())
	}
}

func TestController_TriggerWhileBusy(t *testing.T) {
	src := newStuckSource()
	defer src.Release()

	h := newHarness(t, src, nil, func(string) (string, error) { return dashboardJSON, nil })

	if err := h.controller.OnTrigger(); err != nil {
		t.Fatalf("first trigger: %v", err)
	}
	if err := h.controller.OnTrigger(); !errors.Is(err, application.ErrBusy) {
		t.Fatalf("second trigger: got %v, want ErrBusy", err)
	}

	// the stuck device forces the stop timeout; the empty recording then
	// fails transcription
	if err := h.controller.StopRecording(); err != nil && !errors.Is(err, capture.ErrStopTimeout) {
		t.Fatalf("StopRecording: %v", err)
	}
	h.waitIdle(t)

	out, _ := h.outcomes.Last()
	if out.State != domain.StateFailed || out.Kind != domain.KindEmptySpeech.String() {
		t.Errorf("outcome: got %s/%s", out.State, out.Kind)
	}

	if len(h.outcomes.outcomes) != 1 {
		t.Errorf("interactions run: got %d, want 1", len(h.outcomes.outcomes))
	}
}

func TestController_StopRightAfterTrigger(t *testing.T) {
	h := newHarness(t, &speechSource{loud: 1 << 30}, []string{"something"},
		func(string) (string, error) { return dashboardJSON, nil })

	if err := h.controller.OnTrigger(); err != nil {
		t.Fatalf("OnTrigger: %v", err)
	}
	if err := h.controller.StopRecording(); err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	h.waitIdle(t)

	if len(h.outcomes.outcomes) != 1 {
		t.Errorf("interactions run: got %d, want 1", len(h.outcomes.outcomes))
	}
	if err := h.controller.OnTrigger(); err != nil {
		t.Fatalf("trigger after stopped interaction: %v", err)
	}
	if err := h.controller.StopRecording(); err != nil {
		t.Fatalf("second StopRecording: %v", err)
	}
	h.waitIdle(t)
}

func TestController_StageFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(h *harness)
		answer  func(string) (string, error)
		kind    domain.ErrorKind
		message string
	}{
		{
			name:   "speech engine down",
			setup:  func(h *harness) { h.stt.err = errors.New("connection refused") },
			answer: func(string) (string, error) { return dashboardJSON, nil },
			kind:   domain.KindUnavailable,
		},
		{
			name:   "malformed answer",
			answer: func(string) (string, error) { return "I cannot help with that", nil },
			kind:   domain.KindMalformed,
		},
		{
			name:   "validator rejects",
			setup:  func(h *harness) { h.validator.verdict = application.Verdict{Errors: []string{"date is in the past"}} },
			answer: func(string) (string, error) { return dashboardJSON, nil },
			kind:   domain.KindValidationRejected,
		},
		{
			name:    "store fails",
			setup:   func(h *harness) { h.store.appendErr = errors.New("disk full: tasks.db is read-only") },
			answer:  func(string) (string, error) { return dashboardJSON, nil },
			kind:    domain.KindPersistenceFailed,
			message: "disk full: tasks.db is read-only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, &speechSource{loud: 3}, []string{"something"}, tt.answer)
			if tt.setup != nil {
				tt.setup(h)
			}

			out := h.run(t)

			if out.State != domain.StateFailed {
				t.Fatalf("state: got %s", out.State)
			}
			if out.Kind != tt.kind.String() {
				t.Errorf("kind: got %s, want %s", out.Kind, tt.kind)
			}
			if tt.message != "" && !strings.Contains(out.Message, tt.message) {
				t.Errorf("message %q does not carry %q", out.Message, tt.message)
			}
			if h.controller.State() != domain.StateIdle {
				t.Errorf("not back to idle: %s", h.controller.State())
			}
		})
	}
}

func TestController_ValidationMessageIsSpoken(t *testing.T) {
	h := newHarness(t, &speechSource{loud: 3}, []string{"something"},
		func(string) (string, error) { return dashboardJSON, nil })
	h.validator.verdict = application.Verdict{Errors: []string{"date is in the past"}}

	h.run(t)

	lines := h.speaker.Lines()
	if got := lines[len(lines)-1]; got != "Task validation failed: date is in the past" {
		t.Errorf("last line: %q", got)
	}
}

func TestController_ClosedRejectsTriggers(t *testing.T) {
	h := newHarness(t, &speechSource{loud: 3}, nil, func(string) (string, error) { return dashboardJSON, nil })

	if err := h.controller.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := h.controller.OnTrigger(); !errors.Is(err, application.ErrClosed) {
		t.Errorf("trigger after close: got %v", err)
	}
}

func TestController_Greet(t *testing.T) {
	h := newHarness(t, &speechSource{}, nil, nil)
	h.controller.Greet(context.Background())

	lines := h.speaker.Lines()
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "Voice Task Manager is now active") {
		t.Errorf("greeting: %v", lines)
	}
}
