package pipeline

import (
	"errors"

	"github.com/dgallion1/docdeck/internal/llm"
	"github.com/dgallion1/docdeck/internal/render"
	"github.com/dgallion1/docdeck/internal/repair"
)

var (
	ErrRunNotFound       = errors.New("run not found")
	ErrInvalidTransition = errors.New("action not allowed in the current stage")
	ErrQueueFull         = errors.New("run queue is full")
	ErrStopped           = errors.New("pipeline is stopped")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrExtraction wraps failures of the document extraction boundary.
	ErrExtraction = errors.New("extraction failed")
	// ErrEmptyResponse means the generator answered with nothing usable.
	ErrEmptyResponse = errors.New("empty response from text generation")
)

// FailureKind classifies why a stage failed.
type FailureKind string

const (
	FailureTransport        FailureKind = "transport"
	FailureParse            FailureKind = "parse"
	FailureTemplateNotFound FailureKind = "template_not_found"
	FailureExtraction       FailureKind = "extraction"
	FailureInternal         FailureKind = "internal"
)

// Failure records a failed stage and where the run can go back to.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Stage   Stage       `json:"stage"`
	Message string      `json:"message"`
	// Rollback is the stable stage Rollback returns to; empty when the
	// only way forward is Retry.
	Rollback Stage `json:"rollback_stage,omitempty"`
}

// Classify maps a stage error onto its FailureKind.
func Classify(err error) FailureKind {
	var tnf *render.TemplateNotFoundError
	switch {
	case llm.IsTransport(err):
		return FailureTransport
	case repair.IsParseError(err), errors.Is(err, ErrEmptyResponse):
		return FailureParse
	case errors.As(err, &tnf):
		return FailureTemplateNotFound
	case errors.Is(err, ErrExtraction):
		return FailureExtraction
	default:
		return FailureInternal
	}
}
