// Package ai is the enhancement gateway: it sends a draft diary and the raw
// report text to a generative model and merges the model's answer into a new
// record.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thywilljoshua/site-diary/internal/diary"
)

// DefaultTimeout bounds a single model call when Config.Timeout is zero.
const DefaultTimeout = 60 * time.Second

// Enhancer refines a draft record. Implementations never modify rec.
type Enhancer interface {
	Enhance(ctx context.Context, rec *diary.Record, rawText string) (*diary.Record, error)
}

// Generator is a text-in, text-out model endpoint.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Noop is the enhancer used when AI is disabled.
type Noop struct{}

func (Noop) Enhance(ctx context.Context, rec *diary.Record, rawText string) (*diary.Record, error) {
	out := rec.Clone()
	out.Fill()
	return out, nil
}

// ErrorKind classifies gateway failures.
type ErrorKind string

const (
	KindNetwork ErrorKind = "network"
	KindStatus  ErrorKind = "status"
	KindParse   ErrorKind = "parse"
)

// GatewayError reports a failed enhancement. StatusCode is set for KindStatus.
type GatewayError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Kind == KindStatus && e.StatusCode != 0 {
		return fmt.Sprintf("ai gateway: %s %d: %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("ai gateway: %s: %v", e.Kind, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// StatusError is returned by generators when the service answers with a
// non-success status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("model service returned status %d: %s", e.Code, e.Message)
}

func classify(err error) *GatewayError {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge
	}
	var se *StatusError
	if errors.As(err, &se) {
		return &GatewayError{Kind: KindStatus, StatusCode: se.Code, Err: err}
	}
	return &GatewayError{Kind: KindNetwork, Err: err}
}
