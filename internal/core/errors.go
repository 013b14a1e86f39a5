package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies pipeline failures
type ErrorKind string

const (
	KindAuthenticationFailure ErrorKind = "AUTHENTICATION_FAILURE"
	KindUnclassified          ErrorKind = "UNCLASSIFIED"
	KindPartialExtraction     ErrorKind = "PARTIAL_EXTRACTION"
	KindSinkFailure           ErrorKind = "SINK_FAILURE"
)

// PipelineError is a typed pipeline failure
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewAuthenticationFailure creates an AUTHENTICATION_FAILURE error
func NewAuthenticationFailure(reason VerificationReason) *PipelineError {
	return &PipelineError{
		Kind:    KindAuthenticationFailure,
		Message: "signature verification failed with " + string(reason),
	}
}

// NewUnclassified creates an UNCLASSIFIED error
func NewUnclassified(subject string) *PipelineError {
	return &PipelineError{
		Kind:    KindUnclassified,
		Message: fmt.Sprintf("subject %q is not a reservation notification", subject),
	}
}

// NewPartialExtraction creates a PARTIAL_EXTRACTION error listing missing fields
func NewPartialExtraction(missing []string) *PipelineError {
	return &PipelineError{
		Kind:    KindPartialExtraction,
		Message: "fields not extracted: " + strings.Join(missing, ", "),
	}
}

// NewSinkFailure wraps an error returned by the reservation sink
func NewSinkFailure(err error) *PipelineError {
	return &PipelineError{
		Kind:    KindSinkFailure,
		Message: "failed to create reservation",
		Err:     err,
	}
}

// IsKind reports whether err is a PipelineError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}
