package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Kind names a ValueType variant.
type Kind string

const (
	KindText     Kind = "text"
	KindInteger  Kind = "integer"
	KindBoolean  Kind = "boolean"
	KindDuration Kind = "duration"
	KindEnum     Kind = "enum"
	KindJSON     Kind = "json"
)

// ValueType describes the expected shape of a resolved value and converts raw
// strings into it. Conversion either succeeds exactly or fails; nothing is
// defaulted or coerced. The set of implementations is closed to this package.
type ValueType[T any] interface {
	Kind() Kind
	// Allowed lists the permitted raw values for enums and is nil otherwise.
	Allowed() []string
	Parse(raw string) (T, error)
	Format(v T) string

	validate() error
}

// Text accepts any string.
func Text() ValueType[string] { return textType{} }

// Integer accepts base-10 signed 64-bit integers.
func Integer() ValueType[int64] { return integerType{} }

// Boolean accepts the strconv.ParseBool vocabulary (1, t, true, 0, f, false, ...).
func Boolean() ValueType[bool] { return booleanType{} }

// Duration accepts time.ParseDuration strings such as "300ms" or "6h".
func Duration() ValueType[time.Duration] { return durationType{} }

// Enum accepts exactly one of the allowed values. E is usually a named string
// type so that the resolved value cannot be confused with free text.
func Enum[E ~string](allowed ...E) ValueType[E] {
	values := make([]E, len(allowed))
	copy(values, allowed)
	return enumType[E]{values: values}
}

// JSON decodes a structured payload into T. Unknown object fields and trailing
// data are rejected.
func JSON[T any]() ValueType[T] { return jsonType[T]{} }

type textType struct{}

func (textType) Kind() Kind { return KindText }
func (textType) Allowed() []string { return nil }
func (textType) Parse(raw string) (string, error) { return raw, nil }
func (textType) Format(v string) string { return v }
func (textType) validate() error { return nil }

type integerType struct{}

func (integerType) Kind() Kind { return KindInteger }
func (integerType) Allowed() []string { return nil }
func (integerType) validate() error { return nil }

func (integerType) Parse(raw string) (int64, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, errors.New("out of range for a 64-bit integer")
		}
		return 0, errors.New("not a base-10 integer")
	}
	return v, nil
}

func (integerType) Format(v int64) string { return strconv.FormatInt(v, 10) }

type booleanType struct{}

func (booleanType) Kind() Kind { return KindBoolean }
func (booleanType) Allowed() []string { return nil }
func (booleanType) validate() error { return nil }

func (booleanType) Parse(raw string) (bool, error) {
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.New("not a boolean (expected true or false)")
	}
	return v, nil
}

func (booleanType) Format(v bool) string { return strconv.FormatBool(v) }

type durationType struct{}

func (durationType) Kind() Kind { return KindDuration }
func (durationType) Allowed() []string { return nil }
func (durationType) validate() error { return nil }

func (durationType) Parse(raw string) (time.Duration, error) {
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.New("not a duration (expected a value such as 300ms or 6h)")
	}
	return v, nil
}

func (durationType) Format(v time.Duration) string { return v.String() }

type enumType[E ~string] struct {
	values []E
}

func (enumType[E]) Kind() Kind { return KindEnum }

func (t enumType[E]) Allowed() []string {
	out := make([]string, len(t.values))
	for i, v := range t.values {
		out[i] = string(v)
	}
	return out
}

func (t enumType[E]) Parse(raw string) (E, error) {
	for _, v := range t.values {
		if string(v) == raw {
			return v, nil
		}
	}
	var zero E
	return zero, fmt.Errorf("must be one of: %s", strings.Join(t.Allowed(), ", "))
}

func (enumType[E]) Format(v E) string { return string(v) }

func (t enumType[E]) validate() error {
	if len(t.values) == 0 {
		return errors.New("enum requires at least one allowed value")
	}
	seen := make(map[E]bool, len(t.values))
	for _, v := range t.values {
		if v == "" {
			return errors.New("enum values cannot be empty")
		}
		if seen[v] {
			return fmt.Errorf("enum value %q listed twice", string(v))
		}
		seen[v] = true
	}
	return nil
}

type jsonType[T any] struct{}

func (jsonType[T]) Kind() Kind { return KindJSON }
func (jsonType[T]) Allowed() []string { return nil }
func (jsonType[T]) validate() error { return nil }

func (jsonType[T]) Parse(raw string) (T, error) {
	var v T
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	// Numbers decoded into interface values stay json.Number, so integers
	// beyond 2^53 survive Parse and Format unchanged.
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		var zero T
		return zero, fmt.Errorf("invalid JSON for %s: %w", reflect.TypeOf((*T)(nil)).Elem(), stripValue(err))
	}
	if _, err := dec.Token(); err != io.EOF {
		var zero T
		return zero, errors.New("invalid JSON: trailing data after value")
	}
	return v, nil
}

func (jsonType[T]) Format(v T) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// stripValue keeps decoder errors from echoing the payload back, since JSON
// values are often secrets.
func stripValue(err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Errorf("syntax error at offset %d", syntaxErr.Offset)
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		// typeErr.Value holds number literals, so only the target is named.
		return fmt.Errorf("field %q: wrong JSON type for %s", typeErr.Field, typeErr.Type)
	}
	return err
}

// TypeSpec is the type-erased description of a ValueType used by file-based
// schemas, where the Go type is not known at compile time.
type TypeSpec struct {
	Kind   Kind
	Values []string // enum only
}

func (t TypeSpec) erase() (erased, error) {
	switch t.Kind {
	case KindText:
		return eraseType(Text()), nil
	case KindInteger:
		return eraseType(Integer()), nil
	case KindBoolean:
		return eraseType(Boolean()), nil
	case KindDuration:
		return eraseType(Duration()), nil
	case KindEnum:
		vt := Enum(t.Values...)
		if err := vt.validate(); err != nil {
			return erased{}, err
		}
		return eraseType(vt), nil
	case KindJSON:
		return eraseType(JSON[any]()), nil
	default:
		return erased{}, fmt.Errorf("unknown type %q", t.Kind)
	}
}

// erased is a ValueType with its Go type parameter removed so that fields of
// different types can share one ordered list.
type erased struct {
	kind    Kind
	allowed []string
	goType  reflect.Type
	parse   func(string) (any, error)
	format  func(any) (string, bool)
}

func eraseType[T any](vt ValueType[T]) erased {
	return erased{
		kind:    vt.Kind(),
		allowed: vt.Allowed(),
		goType:  reflect.TypeOf((*T)(nil)).Elem(),
		parse: func(raw string) (any, error) {
			v, err := vt.Parse(raw)
			if err != nil {
				return nil, err
			}
			return v, nil
		},
		format: func(v any) (string, bool) {
			typed, ok := v.(T)
			if !ok {
				return "", false
			}
			return vt.Format(typed), true
		},
	}
}
