package schema

import "fmt"

// Builder accumulates key declarations. Structural mistakes are reported by
// the declaration that causes them, before any value is fetched.
type Builder struct {
	owner   *owner
	fields  []Field
	index   map[string]int
	exports map[string]string // EnvName -> key name
	err     error
	built   *Schema
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		owner:   &owner{},
		index:   make(map[string]int),
		exports: make(map[string]string),
	}
}

// Declare adds a typed key to the builder and returns its handle.
func Declare[T any](b *Builder, name string, src Source, vt ValueType[T]) (Key[T], error) {
	if b.built != nil {
		return Key[T]{}, ErrSealed
	}
	if vt == nil {
		return Key[T]{}, b.fail(&InvalidTypeError{Name: name, Reason: "value type is nil"})
	}
	if err := vt.validate(); err != nil {
		return Key[T]{}, b.fail(&InvalidTypeError{Name: name, Kind: vt.Kind(), Reason: err.Error()})
	}
	if err := b.add(name, src, eraseType(vt)); err != nil {
		return Key[T]{}, err
	}
	return Key[T]{name: name, owner: b.owner}, nil
}

// MustDeclare is like Declare but panics on error. It is meant for schemas
// declared as package-level variables.
func MustDeclare[T any](b *Builder, name string, src Source, vt ValueType[T]) Key[T] {
	k, err := Declare(b, name, src, vt)
	if err != nil {
		panic(err)
	}
	return k
}

// Add declares a key whose type is only known at runtime, as in schema files.
// Typed handles for such keys are obtained later with KeyFor.
func (b *Builder) Add(name string, src Source, spec TypeSpec) error {
	if b.built != nil {
		return ErrSealed
	}
	et, err := spec.erase()
	if err != nil {
		return b.fail(&InvalidTypeError{Name: name, Kind: spec.Kind, Reason: err.Error()})
	}
	return b.add(name, src, et)
}

// Build finalizes the schema. Later declarations fail with ErrSealed and later
// calls to Build return the same Schema. If any declaration failed, Build
// returns the first failure.
func (b *Builder) Build() (*Schema, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.built != nil {
		return b.built, nil
	}

	fields := make([]Field, len(b.fields))
	copy(fields, b.fields)
	index := make(map[string]int, len(b.index))
	for name, i := range b.index {
		index[name] = i
	}
	b.built = &Schema{owner: b.owner, fields: fields, index: index}
	return b.built, nil
}

func (b *Builder) add(name string, src Source, et erased) error {
	if b.built != nil {
		return ErrSealed
	}
	if name == "" {
		return b.fail(ErrEmptyName)
	}
	if !src.valid() {
		return b.fail(fmt.Errorf("key %q: %w", name, ErrInvalidSource))
	}
	if src.identifier == "" {
		return b.fail(fmt.Errorf("key %q: %w", name, ErrEmptyIdentifier))
	}
	if _, exists := b.index[name]; exists {
		return b.fail(&DuplicateKeyDeclarationError{Name: name})
	}
	env := envName(name, src)
	if other, exists := b.exports[env]; exists {
		return b.fail(&EnvNameClashError{Name: name, Other: other, Var: env})
	}

	b.exports[env] = name
	b.index[name] = len(b.fields)
	b.fields = append(b.fields, Field{name: name, source: src, typ: et})
	return nil
}

func (b *Builder) fail(err error) error {
	if b.err == nil {
		b.err = err
	}
	return err
}
