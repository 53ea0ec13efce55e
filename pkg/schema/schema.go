package schema

import (
	"fmt"
	"reflect"
	"slices"
)

// owner ties keys to the builder that declared them. It is never zero-sized so
// that distinct builders always get distinct pointers.
type owner struct {
	_ int
}

// Schema is the immutable, ordered set of declared keys.
type Schema struct {
	owner  *owner
	fields []Field
	index  map[string]int
}

// Fields returns the declarations in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Len returns the number of declared keys.
func (s *Schema) Len() int {
	return len(s.fields)
}

// Field looks up a declaration by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Names returns the declared key names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.name
	}
	return names
}

// Kinds returns the distinct source kinds used by the schema in order of
// first use.
func (s *Schema) Kinds() []SourceKind {
	var kinds []SourceKind
	for _, f := range s.fields {
		if !slices.Contains(kinds, f.source.kind) {
			kinds = append(kinds, f.source.kind)
		}
	}
	return kinds
}

// Field is a single type-erased declaration.
type Field struct {
	name   string
	source Source
	typ    erased
}

func (f Field) Name() string { return f.name }
func (f Field) Source() Source { return f.source }
func (f Field) Kind() Kind { return f.typ.kind }
func (f Field) Allowed() []string { return slices.Clone(f.typ.allowed) }

// EnvName is the variable the field is exported under: the variable it is
// read from for environment keys, the key name in environment form for
// secrets. No two fields of a schema share an EnvName.
func (f Field) EnvName() string {
	return envName(f.name, f.source)
}

func envName(name string, src Source) string {
	if src.kind == SourceEnv {
		return src.identifier
	}
	return PathToEnvVar(name)
}

// GoType is the Go type values of this field resolve to.
func (f Field) GoType() reflect.Type { return f.typ.goType }

// Convert parses a raw value into the field's Go type.
func (f Field) Convert(raw string) (any, error) {
	return f.typ.parse(raw)
}

// Render formats a converted value back into its raw form. It reports false
// when v is not of the field's Go type.
func (f Field) Render(v any) (string, bool) {
	return f.typ.format(v)
}

// SameDeclaration reports whether o declares the same name, source and type.
func (f Field) SameDeclaration(o Field) bool {
	return f.name == o.name &&
		f.source == o.source &&
		f.typ.kind == o.typ.kind &&
		f.typ.goType == o.typ.goType &&
		slices.Equal(f.typ.allowed, o.typ.allowed)
}

// Key is a typed handle to a declared key. Only Declare and KeyFor produce
// usable keys; the zero Key belongs to no schema.
type Key[T any] struct {
	name  string
	owner *owner
}

// Name returns the declared key name.
func (k Key[T]) Name() string {
	return k.name
}

// In reports whether the key was declared for s.
func (k Key[T]) In(s *Schema) bool {
	if s == nil || k.owner == nil || k.owner != s.owner {
		return false
	}
	_, ok := s.index[k.name]
	return ok
}

// KeyFor returns a typed handle for a field of s, typically one read from a
// schema file. T must match the declared ValueType.
func KeyFor[T any](s *Schema, name string) (Key[T], error) {
	f, ok := s.Field(name)
	if !ok {
		return Key[T]{}, fmt.Errorf("%q: %w", name, ErrUndeclaredKey)
	}
	want := reflect.TypeOf((*T)(nil)).Elem()
	if f.typ.goType != want {
		return Key[T]{}, &KeyTypeMismatchError{Name: name, Declared: f.typ.goType, Requested: want}
	}
	return Key[T]{name: name, owner: s.owner}, nil
}
