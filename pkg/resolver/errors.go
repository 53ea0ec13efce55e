package resolver

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/fractic-io/envcfg/pkg/provider"
	"github.com/fractic-io/envcfg/pkg/schema"
)

var (
	ErrNilSchema       = errors.New("resolver: schema is nil")
	ErrAlreadyResolved = errors.New("resolver: configuration has already been resolved")
)

// Failure is the reason a single key did not resolve. It is one of
// *MissingRequiredValue, *TypeConversionError or *ProviderError.
type Failure interface {
	error
	Key() string
	failure()
}

// MissingRequiredValue reports a key whose source holds no value.
type MissingRequiredValue struct {
	Name   string
	Source schema.Source
	Err    error
}

func (e *MissingRequiredValue) Error() string {
	return fmt.Sprintf("%s: required but %s is not set", e.Name, e.Source)
}

func (e *MissingRequiredValue) Unwrap() error { return e.Err }
func (e *MissingRequiredValue) Key() string { return e.Name }
func (*MissingRequiredValue) failure() {}

// TypeConversionError reports a raw value that does not parse as the declared
// type. Raw holds the offending value; Error omits it for secret sources.
type TypeConversionError struct {
	Name     string
	Source   schema.Source
	Expected schema.Kind
	Raw      string
	Err      error
}

func (e *TypeConversionError) Error() string {
	if e.Redacted() {
		return fmt.Sprintf("%s: value from %s is not a valid %s: %v", e.Name, e.Source, e.Expected, e.Err)
	}
	return fmt.Sprintf("%s: '%s' is not a valid %s: %v", e.Name, e.Raw, e.Expected, e.Err)
}

// Redacted reports whether the raw value must not be displayed.
func (e *TypeConversionError) Redacted() bool {
	return e.Source.Kind() == schema.SourceSecret
}

func (e *TypeConversionError) Unwrap() error { return e.Err }
func (e *TypeConversionError) Key() string { return e.Name }
func (*TypeConversionError) failure() {}

// ProviderError reports a fetch that was denied or kept failing transiently.
type ProviderError struct {
	Name     string
	Source   schema.Source
	Kind     provider.FailureKind
	Attempts int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("%s: %s failed after %d attempts (%s): %v", e.Name, e.Source, e.Attempts, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s failed (%s): %v", e.Name, e.Source, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
func (e *ProviderError) Key() string { return e.Name }
func (*ProviderError) failure() {}

// LoadError carries every per-key failure of a resolution pass, in
// declaration order.
type LoadError struct {
	failures []Failure
}

func (e *LoadError) Error() string {
	msgs := make([]string, len(e.failures))
	for i, f := range e.failures {
		msgs[i] = f.Error()
	}
	noun := "failures"
	if len(msgs) == 1 {
		noun = "failure"
	}
	return fmt.Sprintf("configuration failed to load (%d %s): %s", len(msgs), noun, strings.Join(msgs, "; "))
}

// Failures returns the per-key failures in declaration order.
func (e *LoadError) Failures() []Failure {
	return slices.Clone(e.failures)
}

func (e *LoadError) Unwrap() []error {
	errs := make([]error, len(e.failures))
	for i, f := range e.failures {
		errs[i] = f
	}
	return errs
}

// MissingProviderError is returned before any fetch when the schema uses a
// source kind that no provider was configured for.
type MissingProviderError struct {
	Kinds []schema.SourceKind
}

func (e *MissingProviderError) Error() string {
	kinds := make([]string, len(e.Kinds))
	for i, k := range e.Kinds {
		kinds[i] = string(k)
	}
	return fmt.Sprintf("resolver: no provider configured for source kind(s): %s", strings.Join(kinds, ", "))
}
