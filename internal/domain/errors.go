package domain

import "fmt"

// ErrorKind classifies why a pipeline stage failed.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindUnavailable
	KindNotFound
	KindEmptySpeech
	KindMissingField
	KindMalformed
	KindValidationRejected
	KindPersistenceFailed
	KindTimeout
	KindBusy
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUnavailable:
		return "unavailable"
	case KindNotFound:
		return "not_found"
	case KindEmptySpeech:
		return "empty_speech"
	case KindMissingField:
		return "missing_field"
	case KindMalformed:
		return "malformed"
	case KindValidationRejected:
		return "validation_rejected"
	case KindPersistenceFailed:
		return "persistence_failed"
	case KindTimeout:
		return "timeout"
	case KindBusy:
		return "busy"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Failure is a tagged stage failure. Only the pipeline controller turns a
// Failure into a terminal state.
type Failure struct {
	Kind    ErrorKind
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func NewFailure(kind ErrorKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
