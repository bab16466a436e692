package diagnosis

import (
	"errors"
	"fmt"
)

var (
	ErrNoImage      = errors.New("no image provided")
	ErrInvalidImage = errors.New("invalid image data")
	ErrUnparseable  = errors.New("failed to parse response from AI model")
	ErrNoJSON       = errors.New("AI response was not in the expected format")
)

// ParseError carries the raw model reply so callers can echo it back.
type ParseError struct {
	Kind error
	Raw  string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// ModelError wraps any failure of the upstream call itself.
type ModelError struct {
	ProviderID string
	Err        error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model %s: %v", e.ProviderID, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }
