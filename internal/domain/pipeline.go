package domain

import (
	"fmt"
	"time"
)

type PipelineState int

const (
	StateIdle PipelineState = iota
	StateAwaitingSpeech
	StateTranscribing
	StateExtracting
	StateAwaitingFollowup
	StateValidating
	StatePersisting
	StateDone
	StateFailed
)

func (s PipelineState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingSpeech:
		return "awaiting_speech"
	case StateTranscribing:
		return "transcribing"
	case StateExtracting:
		return "extracting"
	case StateAwaitingFollowup:
		return "awaiting_followup"
	case StateValidating:
		return "validating"
	case StatePersisting:
		return "persisting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

func (s PipelineState) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

func (s PipelineState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PipelineSession is the state of one voice interaction, owned by the
// controller worker that runs it.
type PipelineSession struct {
	ID           string
	StartedAt    time.Time
	Audio        *AudioSession
	Transcript   string
	Task         *TaskRecord
	MissingField string
	AttemptCount int
}

// StateChange is emitted on every controller transition.
type StateChange struct {
	InteractionID string        `json:"interaction_id"`
	From          PipelineState `json:"from"`
	To            PipelineState `json:"to"`
	At            time.Time     `json:"at"`
	Detail        string        `json:"detail,omitempty"`
}

// Outcome summarizes a finished interaction.
type Outcome struct {
	InteractionID string        `json:"interaction_id"`
	State         PipelineState `json:"state"`
	TaskID        string        `json:"task_id,omitempty"`
	Task          *TaskRecord   `json:"task,omitempty"`
	Kind          string        `json:"kind,omitempty"`
	Message       string        `json:"message"`
	Duration      time.Duration `json:"duration"`
}
