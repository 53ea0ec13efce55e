package provider

import (
	"context"
	"os"
	"strings"
)

// Env reads values from process environment variables. Unset and empty
// variables are both reported as NotFound.
type Env struct {
	lookup func(string) (string, bool)
}

// NewEnv returns an Env backed by os.LookupEnv.
func NewEnv() *Env {
	return &Env{lookup: os.LookupEnv}
}

// NewEnvLookup returns an Env backed by an arbitrary lookup function.
func NewEnvLookup(lookup func(string) (string, bool)) *Env {
	return &Env{lookup: lookup}
}

// NewEnvFromEnviron returns an Env over a snapshot of an environ slice
// (["KEY=VALUE", ...]). Entries without "=" are skipped and later duplicates
// win, matching how exec treats repeated variables.
func NewEnvFromEnviron(environ []string) *Env {
	env := ParseEnviron(environ)
	return &Env{lookup: func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}}
}

func (e *Env) Fetch(_ context.Context, name string) (string, error) {
	v, ok := e.lookup(name)
	if !ok || v == "" {
		return "", NotFoundError(name, nil)
	}
	return v, nil
}

// ParseEnviron converts an environ slice into a map. Values may contain "=";
// entries without one are skipped and later duplicates win.
func ParseEnviron(environ []string) map[string]string {
	result := make(map[string]string, len(environ))
	for _, entry := range environ {
		name, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		result[name] = value
	}
	return result
}
