package models

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation    Kind = "VALIDATION_ERROR"
	KindCaptureFormat Kind = "CAPTURE_FORMAT_ERROR"
	KindCaptureSize   Kind = "CAPTURE_SIZE_ERROR"
	KindEncode        Kind = "ENCODE_ERROR"
	KindNetwork       Kind = "NETWORK_ERROR"
	KindState         Kind = "STATE_ERROR"
)

// Error is the tagged error carried across component boundaries.
// Message is meant for the person operating the wizard.
type Error struct {
	Kind    Kind
	Op      string
	Field   string
	Step    int
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func NewValidationError(op, field string, step int, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Field: field, Step: step, Message: message}
}
