// Package provider defines the value sources the resolver reads from and the
// failure taxonomy they report with.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/fractic-io/envcfg/pkg/schema"
)

// Provider retrieves the raw value stored under an identifier. Implementations
// must be safe for concurrent use and must not cache values.
type Provider interface {
	Fetch(ctx context.Context, identifier string) (string, error)
}

// Func adapts a plain function to the Provider interface.
type Func func(ctx context.Context, identifier string) (string, error)

func (f Func) Fetch(ctx context.Context, identifier string) (string, error) {
	return f(ctx, identifier)
}

// Set maps each source kind to the provider that serves it.
type Set map[schema.SourceKind]Provider

// FailureKind classifies why a fetch did not produce a value.
type FailureKind int

const (
	// Transient failures may succeed if retried (timeouts, throttling, outages).
	Transient FailureKind = iota
	// NotFound means the identifier has no value at the source.
	NotFound
	// AccessDenied means the caller is not permitted to read the identifier.
	AccessDenied
)

func (k FailureKind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case AccessDenied:
		return "access denied"
	default:
		return "transient"
	}
}

// FetchError is the classified error returned by providers.
type FetchError struct {
	Kind       FailureKind
	Identifier string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Identifier, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Identifier, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func NotFoundError(identifier string, err error) error {
	return &FetchError{Kind: NotFound, Identifier: identifier, Err: err}
}

func AccessDeniedError(identifier string, err error) error {
	return &FetchError{Kind: AccessDenied, Identifier: identifier, Err: err}
}

func TransientError(identifier string, err error) error {
	return &FetchError{Kind: Transient, Identifier: identifier, Err: err}
}

// KindOf classifies err. Errors that carry no classification, including
// context deadlines, are treated as Transient.
func KindOf(err error) FailureKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Transient
}

// IsPermanent reports whether retrying err cannot change the outcome.
func IsPermanent(err error) bool {
	return KindOf(err) != Transient
}
