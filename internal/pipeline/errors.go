package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure. The HTTP layer maps kinds to status
// codes; nothing below the Orchestrator decides what a caller sees.
type Kind string

const (
	KindEmptyLabel          Kind = "EMPTY_LABEL"
	KindUnsupportedInput    Kind = "UNSUPPORTED_INPUT"
	KindPayloadTooLarge     Kind = "PAYLOAD_TOO_LARGE"
	KindValidation          Kind = "VALIDATION_ERROR"
	KindRendererUnavailable Kind = "RENDERER_UNAVAILABLE"
	KindRendering           Kind = "RENDERING_ERROR"
	KindInternal            Kind = "INTERNAL_ERROR"
)

const (
	msgEmptyLabel  = "Name is required."
	msgUnsupported = "Upload a .pptx file."
	msgInvalid     = "Uploaded file is not a valid .pptx"
	msgUnavailable = "PDF conversion is currently unavailable."
	msgRendering   = "PDF conversion failed."
	msgInternal    = "Processing failed."
)

// Error is returned by Process. Message is safe to show to the caller; Err
// holds the detail that only goes to logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsInputError reports whether the failure was caused by the caller's input.
func (e *Error) IsInputError() bool {
	switch e.Kind {
	case KindEmptyLabel, KindUnsupportedInput, KindPayloadTooLarge, KindValidation:
		return true
	}
	return false
}

// KindOf extracts the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}
