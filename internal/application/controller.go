package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"voice-tasks/internal/capture"
	"voice-tasks/internal/domain"
)

var (
	ErrBusy   = errors.New("an interaction is already in progress")
	ErrClosed = errors.New("controller is shut down")
)

const (
	msgGreeting          = "Voice Task Manager is now active. Press the hotkey to add a new task."
	msgListening         = "Listening for your task. Please speak now."
	msgRecordingError    = "Sorry, there was an error recording your voice."
	msgProcessing        = "Processing your voice input..."
	msgNotUnderstood     = "Sorry, I couldn't understand what you said. Please try again."
	msgAnalyzing         = "Analyzing your task..."
	msgValidating        = "Validating your task..."
	msgFollowupRecording = "Sorry, I couldn't record your response. Please try again."
	msgFollowupNotHeard  = "Sorry, I couldn't understand your response. Please try again."
	msgAdding            = "Adding your task to the system..."
	msgAddFailed         = "Sorry, there was an error adding your task: %s. Please try again."
)

type ControllerConfig struct {
	// FollowupDuration bounds the single re-recording made when one
	// required field is missing.
	FollowupDuration time.Duration
}

func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{FollowupDuration: 10 * time.Second}
}

type Stages struct {
	Transcription *TranscriptionStage
	Extraction    *ExtractionStage
	Validation    *ValidationStage
	Persistence   *PersistenceStage
}

// Controller runs one voice interaction at a time, from recording to a
// stored task, on a worker goroutine of its own.
type Controller struct {
	capture   Capturer
	stages    Stages
	feedback  *Feedback
	notifier  Notifier
	publisher EventPublisher
	cfg       ControllerConfig
	logger    *slog.Logger
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       domain.PipelineState
	interaction string
	done        chan struct{}
	observers   []Observer
	// capturing is set between a successful capture Start and the end of
	// its Wait. A stop requested while awaiting speech without a running
	// capture is held in stopPending until the capture starts.
	capturing   bool
	stopPending bool
}

func NewController(
	capturer Capturer,
	stages Stages,
	feedback *Feedback,
	notifier Notifier,
	publisher EventPublisher,
	cfg ControllerConfig,
	logger *slog.Logger,
) *Controller {
	if cfg.FollowupDuration <= 0 {
		cfg.FollowupDuration = DefaultControllerConfig().FollowupDuration
	}
	if feedback == nil {
		feedback = NewFeedback(nil, nil, logger)
	}
	if notifier == nil {
		notifier = &NoopNotifier{}
	}
	if publisher == nil {
		publisher = &NoopPublisher{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Controller{
		capture:   capturer,
		stages:    stages,
		feedback:  feedback,
		notifier:  notifier,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With("component", "controller"),
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		state:     domain.StateIdle,
	}
}

// AddObserver registers o for state change events. Observers are called on
// the goroutine making the transition.
func (c *Controller) AddObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

func (c *Controller) State() domain.PipelineState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Greet speaks the startup line.
func (c *Controller) Greet(ctx context.Context) {
	c.feedback.Say(ctx, msgGreeting)
}

// OnTrigger starts a new interaction and returns without waiting for it.
// A trigger while an interaction is running is rejected with ErrBusy.
func (c *Controller) OnTrigger() error {
	if c.ctx.Err() != nil {
		return ErrClosed
	}

	c.mu.Lock()
	if c.state != domain.StateIdle {
		state := c.state
		c.mu.Unlock()
		c.logger.Warn("trigger rejected", "state", state.String())
		return ErrBusy
	}

	id := uuid.NewString()
	c.interaction = id
	c.state = domain.StateAwaitingSpeech
	c.stopPending = false
	c.done = make(chan struct{})
	done := c.done
	observers := append([]Observer(nil), c.observers...)
	c.mu.Unlock()

	c.logger.Info("interaction started", "interaction", id)
	c.emit(observers, domain.StateChange{
		InteractionID: id,
		From:          domain.StateIdle,
		To:            domain.StateAwaitingSpeech,
		At:            c.now(),
		Detail:        "trigger",
	})

	go c.run(id, done)
	return nil
}

// StopRecording ends the recording in progress. A stop that arrives after a
// trigger but before the capture has started ends that capture as soon as it
// starts.
func (c *Controller) StopRecording() error {
	c.mu.Lock()
	if !c.capturing && (c.state == domain.StateAwaitingSpeech || c.state == domain.StateAwaitingFollowup) {
		c.stopPending = true
		c.mu.Unlock()
		c.logger.Info("stop requested before capture started")
		return nil
	}
	c.mu.Unlock()
	return c.capture.Stop()
}

// Wait blocks until the current interaction, if any, has returned to idle.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Close stops any recording, waits for the running interaction and rejects
// further triggers.
func (c *Controller) Close() error {
	c.cancel()
	err := c.capture.Stop()
	c.Wait()
	if errors.Is(err, capture.ErrStopTimeout) {
		c.logger.Warn("recording did not stop cleanly on shutdown")
		return nil
	}
	return err
}

func (c *Controller) run(id string, done chan struct{}) {
	defer close(done)

	ctx := c.ctx
	session := &domain.PipelineSession{ID: id, StartedAt: c.now()}

	outcome := c.interact(ctx, session)
	outcome.InteractionID = id
	outcome.Duration = c.now().Sub(session.StartedAt)

	c.transition(id, outcome.State, outcome.Kind)
	c.feedback.Say(ctx, outcome.Message)

	if outcome.State == domain.StateDone {
		c.logger.Info("interaction finished", "interaction", id, "task_id", outcome.TaskID, "duration", outcome.Duration)
	} else {
		c.logger.Warn("interaction failed", "interaction", id, "kind", outcome.Kind, "message", outcome.Message)
	}

	if err := c.notifier.Notify(ctx, NotificationText(outcome)); err != nil {
		c.logger.Error("notifying outcome", "error", err)
	}
	if err := c.publisher.Publish(ctx, outcome); err != nil {
		c.logger.Error("publishing outcome", "error", err)
	}

	c.transition(id, domain.StateIdle, "")
}

func (c *Controller) interact(ctx context.Context, session *domain.PipelineSession) domain.Outcome {
	id := session.ID

	c.feedback.Say(ctx, msgListening)

	rec, fail := c.record(ctx, 0)
	if fail != nil {
		return failed(fail.Kind, msgRecordingError)
	}
	session.Audio = rec.Session

	c.transition(id, domain.StateTranscribing, "")
	c.feedback.Say(ctx, msgProcessing)

	transcript := c.stages.Transcription.Transcribe(ctx, rec)
	rec.Release()
	if !transcript.Success {
		c.logger.Warn("transcription failed", "kind", transcript.ErrorKind.String(), "error", transcript.Error)
		return failed(transcript.ErrorKind, msgNotUnderstood)
	}
	session.Transcript = transcript.Text

	c.transition(id, domain.StateExtracting, "")
	c.feedback.Say(ctx, msgAnalyzing)

	session.AttemptCount = 1
	extraction := c.stages.Extraction.Extract(ctx, session.Transcript)

	if extraction.Outcome == MissingField {
		var out *domain.Outcome
		extraction, out = c.followUp(ctx, session, extraction)
		if out != nil {
			return *out
		}
	}

	switch extraction.Outcome {
	case Malformed:
		return failed(domain.KindMalformed, "Sorry, I couldn't parse your request: "+extraction.Reason)
	case MissingField:
		return failed(domain.KindMissingField,
			fmt.Sprintf("I still couldn't get the %s. Please try adding the task again.", fieldLabel(extraction.Field)))
	}
	session.Task = extraction.Task

	c.transition(id, domain.StateValidating, "")
	c.feedback.Say(ctx, msgValidating)

	verdict := c.stages.Validation.Validate(ctx, *session.Task)
	if !verdict.Valid {
		return failed(domain.KindValidationRejected, "Task validation failed: "+verdict.Reason())
	}

	c.transition(id, domain.StatePersisting, "")
	c.feedback.Say(ctx, msgAdding)

	stored := c.stages.Persistence.Persist(ctx, *session.Task)
	if !stored.Success {
		c.logger.Error("persisting task", "error", stored.Error)
		return failed(domain.KindPersistenceFailed, fmt.Sprintf(msgAddFailed, stored.Error))
	}

	task := session.Task
	return domain.Outcome{
		State:   domain.StateDone,
		TaskID:  stored.TaskID,
		Task:    task,
		Message: Confirmation(*task),
	}
}

// followUp asks for the one missing field, records a bounded answer and
// extracts again from the original text joined with the answer.
func (c *Controller) followUp(ctx context.Context, session *domain.PipelineSession, first ExtractionResult) (ExtractionResult, *domain.Outcome) {
	id := session.ID
	session.MissingField = first.Field
	session.AttemptCount++

	c.transition(id, domain.StateAwaitingFollowup, first.Field)
	c.feedback.Say(ctx, first.Prompt)

	rec, fail := c.record(ctx, c.cfg.FollowupDuration)
	if fail != nil {
		out := failed(fail.Kind, msgFollowupRecording)
		return ExtractionResult{}, &out
	}

	c.transition(id, domain.StateTranscribing, "followup")
	c.feedback.Say(ctx, msgProcessing)

	answer := c.stages.Transcription.Transcribe(ctx, rec)
	rec.Release()
	if !answer.Success {
		c.logger.Warn("follow-up transcription failed", "kind", answer.ErrorKind.String(), "error", answer.Error)
		out := failed(answer.ErrorKind, msgFollowupNotHeard)
		return ExtractionResult{}, &out
	}

	c.logger.Info("follow-up answer", "field", first.Field, "text", answer.Text)

	c.transition(id, domain.StateExtracting, "followup")
	c.feedback.Say(ctx, msgAnalyzing)
	return c.stages.Extraction.Extract(ctx, session.Transcript+" "+answer.Text), nil
}

func (c *Controller) record(ctx context.Context, maxDuration time.Duration) (*capture.Recording, *domain.Failure) {
	h, err := c.capture.Start(ctx, maxDuration)
	if err != nil {
		c.logger.Error("starting capture", "error", err)
		if errors.Is(err, capture.ErrBusy) {
			return nil, domain.NewFailure(domain.KindBusy, "%v", err)
		}
		return nil, domain.NewFailure(domain.KindUnavailable, "%v", err)
	}

	c.mu.Lock()
	c.capturing = true
	pending := c.stopPending
	c.stopPending = false
	c.mu.Unlock()

	if pending {
		if err := c.capture.Stop(); err != nil {
			c.logger.Warn("stopping capture on pending request", "error", err)
		}
	}

	rec, err := h.Wait(ctx)

	c.mu.Lock()
	c.capturing = false
	c.mu.Unlock()

	if rec == nil {
		c.logger.Error("waiting for recording", "error", err)
		return nil, domain.NewFailure(domain.KindTimeout, "recording did not finish: %v", err)
	}
	if err != nil {
		c.logger.Warn("recording finalized with error", "error", err)
	}

	if rec.Session.State == domain.AudioAborted && rec.Session.SampleCount() == 0 {
		rec.Release()
		return nil, domain.NewFailure(domain.KindUnavailable, "audio input failed before any audio was captured")
	}
	return rec, nil
}

func (c *Controller) transition(id string, to domain.PipelineState, detail string) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.stopPending = false
	observers := append([]Observer(nil), c.observers...)
	c.mu.Unlock()

	c.logger.Debug("state change", "interaction", id, "from", from.String(), "to", to.String())
	c.emit(observers, domain.StateChange{
		InteractionID: id,
		From:          from,
		To:            to,
		At:            c.now(),
		Detail:        detail,
	})
}

func (c *Controller) emit(observers []Observer, change domain.StateChange) {
	for _, o := range observers {
		o.OnStateChange(change)
	}
}

// Confirmation is the line spoken after a task is stored.
func Confirmation(task domain.TaskRecord) string {
	return fmt.Sprintf("Task added successfully! Your %s priority task '%s' has been recorded and is due on %s.",
		task.Priority, task.Task, task.ExpectedDate)
}

func failed(kind domain.ErrorKind, message string) domain.Outcome {
	return domain.Outcome{State: domain.StateFailed, Kind: kind.String(), Message: message}
}

func fieldLabel(field string) string {
	switch field {
	case domain.FieldExpectedDate:
		return "due date"
	case domain.FieldAssignedBy:
		return "name of the person who assigned it"
	case domain.FieldTask:
		return "task description"
	}
	return strings.ReplaceAll(field, "_", " ")
}
