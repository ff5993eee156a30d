package flow

import (
	"errors"
	"fmt"
)

type (
	// Kind classifies why an invocation failed
	Kind string

	// Error is the terminal failure of a single invocation. State is the
	// state the invocation was in when it failed
	Error struct {
		Kind  Kind
		Flow  string
		State State
		Err   error
	}
)

const (
	KindInputValidation  Kind = "input_validation"
	KindTemplate         Kind = "template"
	KindProvider         Kind = "provider"
	KindOutputValidation Kind = "output_validation"
)

var (
	ErrInputValidation  = errors.New("input validation failed")
	ErrTemplate         = errors.New("flow definition error")
	ErrProvider         = errors.New("model provider error")
	ErrOutputValidation = errors.New("output validation failed")

	ErrUnknownFlow   = errors.New("unknown flow")
	ErrDuplicateFlow = errors.New("duplicate flow")
)

var kindErrors = map[Kind]error{
	KindInputValidation:  ErrInputValidation,
	KindTemplate:         ErrTemplate,
	KindProvider:         ErrProvider,
	KindOutputValidation: ErrOutputValidation,
}

func (e *Error) Error() string {
	return fmt.Sprintf("flow %s: %s: %v", e.Flow, kindErrors[e.Kind], e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error of the failure's kind
func (e *Error) Is(target error) bool {
	return kindErrors[e.Kind] == target
}

// KindOf returns the kind of a flow failure, or "" when err is not one
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
