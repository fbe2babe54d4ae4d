package engine

import (
	"errors"
	"fmt"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

// ErrUnknownQuestion is wrapped when an operation names a question the template does not declare.
var ErrUnknownQuestion = errors.New("unknown question")

// MalformedTemplateError reports template content that is missing or structurally invalid.
type MalformedTemplateError struct {
	Reason string
	Err    error
}

func (e *MalformedTemplateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed template: %s: %v", e.Reason, e.Err)
	}
	return "malformed template: " + e.Reason
}

func (e *MalformedTemplateError) Unwrap() error { return e.Err }

func malformed(reason string, err error) error {
	return &MalformedTemplateError{Reason: reason, Err: err}
}

// InvalidTransitionError reports an event that is not legal from the current status.
// The record keeps its prior state.
type InvalidTransitionError struct {
	From  models.Status
	Event Event
}

func (e *InvalidTransitionError) Error() string {
	from := string(e.From)
	if from == "" {
		from = "NEW"
	}
	return fmt.Sprintf("invalid transition: %s from %s", e.Event, from)
}

// IsMalformed reports whether err is a MalformedTemplateError.
func IsMalformed(err error) bool {
	var me *MalformedTemplateError
	return errors.As(err, &me)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var te *InvalidTransitionError
	return errors.As(err, &te)
}
