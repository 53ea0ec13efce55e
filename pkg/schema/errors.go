package schema

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrDuplicateKey matches every DuplicateKeyDeclarationError via errors.Is.
	ErrDuplicateKey = errors.New("duplicate key declaration")

	ErrEmptyName       = errors.New("key name cannot be empty")
	ErrEmptyIdentifier = errors.New("source identifier cannot be empty")
	ErrInvalidSource   = errors.New("source must be declared with Env or Secret")
	ErrSealed          = errors.New("schema already built, no further declarations allowed")
	ErrUndeclaredKey   = errors.New("key is not declared in schema")

	// ErrEnvNameClash matches every EnvNameClashError via errors.Is.
	ErrEnvNameClash = errors.New("environment name already exported by another key")
)

// DuplicateKeyDeclarationError is returned when a name is declared twice.
type DuplicateKeyDeclarationError struct {
	Name string
}

func (e *DuplicateKeyDeclarationError) Error() string {
	return fmt.Sprintf("duplicate key declaration: %q", e.Name)
}

func (e *DuplicateKeyDeclarationError) Is(target error) bool {
	return target == ErrDuplicateKey
}

// EnvNameClashError is returned when a key would be handed to a child process
// under the same variable as an earlier key.
type EnvNameClashError struct {
	Name  string
	Other string
	Var   string
}

func (e *EnvNameClashError) Error() string {
	return fmt.Sprintf("key %q: environment name %s is already used by key %q", e.Name, e.Var, e.Other)
}

func (e *EnvNameClashError) Is(target error) bool {
	return target == ErrEnvNameClash
}

// InvalidTypeError reports a malformed ValueType in a declaration, such as an
// enum without values or an unknown kind in a schema file.
type InvalidTypeError struct {
	Name   string
	Kind   Kind
	Reason string
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("key %q: invalid %s type: %s", e.Name, e.Kind, e.Reason)
}

// KeyTypeMismatchError is returned by KeyFor when the requested Go type does
// not match the declared ValueType.
type KeyTypeMismatchError struct {
	Name      string
	Declared  reflect.Type
	Requested reflect.Type
}

func (e *KeyTypeMismatchError) Error() string {
	return fmt.Sprintf("key %q is declared as %s, not %s", e.Name, e.Declared, e.Requested)
}
