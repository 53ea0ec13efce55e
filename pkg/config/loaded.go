// Package config holds the immutable result of a successful resolution.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/fractic-io/envcfg/pkg/schema"
)

// ErrIncomplete is returned by Seal when the values do not cover the schema
// exactly.
var ErrIncomplete = errors.New("configuration does not match schema")

// Loaded maps every declared key of a Schema to its converted value. It has
// no setters, so concurrent reads need no synchronization.
type Loaded struct {
	schema *schema.Schema
	values map[string]any
}

// Seal builds a Loaded from converted values. Every declared key must be
// present with a value of its Go type and no other names are accepted, so a
// partial configuration cannot be constructed.
func Seal(s *schema.Schema, values map[string]any) (*Loaded, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil schema", ErrIncomplete)
	}

	var missing, mistyped []string
	out := make(map[string]any, s.Len())
	for _, f := range s.Fields() {
		v, ok := values[f.Name()]
		if !ok {
			missing = append(missing, f.Name())
			continue
		}
		if !holds(f, v) {
			mistyped = append(mistyped, f.Name())
			continue
		}
		out[f.Name()] = v
	}

	var extra []string
	for name := range values {
		if _, ok := s.Field(name); !ok {
			extra = append(extra, name)
		}
	}

	if len(missing) > 0 || len(mistyped) > 0 || len(extra) > 0 {
		var parts []string
		if len(missing) > 0 {
			parts = append(parts, "missing "+strings.Join(missing, ", "))
		}
		if len(mistyped) > 0 {
			parts = append(parts, "wrong type for "+strings.Join(mistyped, ", "))
		}
		if len(extra) > 0 {
			parts = append(parts, fmt.Sprintf("%d undeclared name(s)", len(extra)))
		}
		return nil, fmt.Errorf("%w: %s", ErrIncomplete, strings.Join(parts, "; "))
	}

	return &Loaded{schema: s, values: out}, nil
}

// holds reports whether v is a value of the field's Go type. A nil value is
// only acceptable for interface-typed fields (JSON decoded into any).
func holds(f schema.Field, v any) bool {
	if v == nil {
		return f.GoType().Kind() == reflect.Interface
	}
	return reflect.TypeOf(v).AssignableTo(f.GoType())
}

// Get returns the value of key. It panics if key was declared for a different
// schema, which is a programming error rather than a configuration failure.
func Get[T any](c *Loaded, key schema.Key[T]) T {
	if !key.In(c.schema) {
		panic(fmt.Sprintf("config: key %q does not belong to this configuration's schema", key.Name()))
	}
	v, _ := c.values[key.Name()].(T)
	return v
}

// Schema returns the schema the configuration was resolved against.
func (c *Loaded) Schema() *schema.Schema {
	return c.schema
}

// Len returns the number of resolved keys.
func (c *Loaded) Len() int {
	return len(c.values)
}
