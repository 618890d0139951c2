package domain

import (
	"fmt"
	"time"
)

type AudioState int

const (
	AudioIdle AudioState = iota
	AudioRecording
	AudioFinalizing
	AudioComplete
	AudioAborted
)

func (s AudioState) String() string {
	switch s {
	case AudioIdle:
		return "idle"
	case AudioRecording:
		return "recording"
	case AudioFinalizing:
		return "finalizing"
	case AudioComplete:
		return "complete"
	case AudioAborted:
		return "aborted"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

func (s AudioState) IsTerminal() bool {
	return s == AudioComplete || s == AudioAborted
}

type StopReason int

const (
	StopNone StopReason = iota
	StopManual
	StopDuration
	StopSilence
	StopError
)

func (r StopReason) String() string {
	switch r {
	case StopNone:
		return "none"
	case StopManual:
		return "manual"
	case StopDuration:
		return "duration"
	case StopSilence:
		return "silence"
	case StopError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// AudioSession is one recording. Frames are appended only by the capture
// loop that owns the session.
type AudioSession struct {
	ID         string
	StartTime  time.Time
	State      AudioState
	Frames     [][]int16
	StopReason StopReason
}

func (s *AudioSession) SampleCount() int {
	n := 0
	for _, f := range s.Frames {
		n += len(f)
	}
	return n
}

// Discard drops the captured frames once they are no longer needed.
func (s *AudioSession) Discard() {
	s.Frames = nil
}

type TranscriptResult struct {
	Success    bool
	Text       string
	Confidence float64
	ErrorKind  ErrorKind
	Error      string
}
