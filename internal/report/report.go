// Package report renders resolution outcomes for terminals, CI logs and
// machines.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fractic-io/envcfg/pkg/provider"
	"github.com/fractic-io/envcfg/pkg/resolver"
	"github.com/fractic-io/envcfg/pkg/schema"
)

// Reason categorizes a failure for machine consumers.
type Reason string

const (
	ReasonMissing      Reason = "missing"
	ReasonInvalid      Reason = "invalid"
	ReasonAccessDenied Reason = "access_denied"
	ReasonTransient    Reason = "transient"
)

// Problem is one failing key.
type Problem struct {
	Key     string   `json:"key"`
	Source  string   `json:"source"`
	Reason  Reason   `json:"reason"`
	Message string   `json:"message"`
	Allowed []string `json:"allowed,omitempty"`
}

// Result is the outcome of a check.
type Result struct {
	Valid         bool      `json:"valid"`
	SchemaPath    string    `json:"schemaPath"`
	Keys          int       `json:"keys"`
	ConfigVersion string    `json:"configVersion,omitempty"`
	Problems      []Problem `json:"problems"`
}

// FromLoadError builds the problem list of a failed resolution, keeping
// declaration order. Enum allowed values are looked up in s.
func FromLoadError(loadErr *resolver.LoadError, s *schema.Schema) []Problem {
	failures := loadErr.Failures()
	problems := make([]Problem, 0, len(failures))
	for _, f := range failures {
		p := Problem{Key: f.Key(), Message: FormatFailure(f)}

		var (
			missing *resolver.MissingRequiredValue
			conv    *resolver.TypeConversionError
			perr    *resolver.ProviderError
		)
		switch {
		case errors.As(f, &missing):
			p.Source = missing.Source.String()
			p.Reason = ReasonMissing
		case errors.As(f, &conv):
			p.Source = conv.Source.String()
			p.Reason = ReasonInvalid
		case errors.As(f, &perr):
			p.Source = perr.Source.String()
			p.Reason = ReasonTransient
			if perr.Kind == provider.AccessDenied {
				p.Reason = ReasonAccessDenied
			}
		}
		if field, ok := s.Field(f.Key()); ok && field.Kind() == schema.KindEnum {
			p.Allowed = field.Allowed()
		}
		problems = append(problems, p)
	}
	return problems
}

// FormatFailure renders a single failure as one line.
func FormatFailure(f resolver.Failure) string {
	var (
		missing *resolver.MissingRequiredValue
		conv    *resolver.TypeConversionError
	)
	switch {
	case errors.As(f, &missing):
		if missing.Source.Kind() == schema.SourceEnv {
			return fmt.Sprintf("%s: required but %s is not set", missing.Name, missing.Source.Identifier())
		}
		return fmt.Sprintf("%s: required but secret '%s' has no value", missing.Name, missing.Source.Identifier())
	case errors.As(f, &conv):
		if conv.Expected == schema.KindEnum && !conv.Redacted() {
			// The conversion error already lists the allowed values.
			return fmt.Sprintf("%s: '%s' is not valid, %v", conv.Name, conv.Raw, conv.Err)
		}
		return conv.Error()
	default:
		return f.Error()
	}
}

// FormatCLI formats a failed result for terminal output.
func FormatCLI(r Result) string {
	if r.Valid || len(r.Problems) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("❌ Config invalid (%s):\n\n", r.SchemaPath))
	for _, p := range r.Problems {
		sb.WriteString(fmt.Sprintf("  %s\n", p.Message))
	}
	sb.WriteString(fmt.Sprintf("\nStartup blocked: %d problem(s) in %d key(s)\n", len(r.Problems), r.Keys))
	return sb.String()
}

// FormatCI formats a failed result as GitHub Actions error annotations.
func FormatCI(r Result) string {
	if r.Valid || len(r.Problems) == 0 {
		return ""
	}

	file := filepath.Base(r.SchemaPath)
	var sb strings.Builder
	for _, p := range r.Problems {
		sb.WriteString(fmt.Sprintf("::error file=%s::%s\n", file, p.Message))
	}
	sb.WriteString(fmt.Sprintf("\n❌ Validation failed: %d error(s)\n", len(r.Problems)))
	return sb.String()
}

// FormatJSON formats a result as JSON.
func FormatJSON(r Result) (string, error) {
	if r.Problems == nil {
		r.Problems = []Problem{}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
