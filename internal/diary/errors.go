package diary

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownField is returned for names outside the schema.
var ErrUnknownField = errors.New("unknown diary field")

// KindError reports a value of the wrong shape for a field.
type KindError struct {
	Field string
	Want  Kind
	Got   Kind
}

func (e *KindError) Error() string {
	return fmt.Sprintf("field %s expects %s value, got %s", e.Field, e.Want, e.Got)
}

// Problem is one validation finding.
type Problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists everything that keeps a record from being final.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Field + ": " + p.Message
	}
	return "diary validation failed: " + strings.Join(msgs, "; ")
}

func unknownField(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownField, name)
}
