package schema

import (
	"errors"
	"testing"
	"time"
)

type tier string

func TestDeclare_Basic(t *testing.T) {
	b := NewBuilder()
	port := MustDeclare(b, "port", Env("PORT"), Integer())
	token := MustDeclare(b, "token", Secret("prod/api#token"), Text())
	mode := MustDeclare(b, "mode", Env("MODE"), Enum[tier]("free", "paid"))

	s, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	want := []string{"port", "token", "mode"}
	for i, name := range s.Names() {
		if name != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, name, want[i])
		}
	}
	for _, k := range []interface{ In(*Schema) bool }{port, token, mode} {
		if !k.In(s) {
			t.Errorf("key %v not in its own schema", k)
		}
	}
	if kinds := s.Kinds(); len(kinds) != 2 || kinds[0] != SourceEnv || kinds[1] != SourceSecret {
		t.Errorf("Kinds() = %v, want [env secret]", kinds)
	}
}

func TestDeclare_Duplicate(t *testing.T) {
	b := NewBuilder()
	if _, err := Declare(b, "a", Env("A"), Text()); err != nil {
		t.Fatal(err)
	}
	_, err := Declare(b, "a", Env("B"), Integer())
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	// The failure sticks to the builder.
	if _, err := b.Build(); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("Build() = %v, want ErrDuplicateKey", err)
	}
}

func TestDeclare_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		declare func(b *Builder) error
		want    error
	}{
		{"empty name", func(b *Builder) error {
			_, err := Declare(b, "", Env("A"), Text())
			return err
		}, ErrEmptyName},
		{"zero source", func(b *Builder) error {
			_, err := Declare(b, "a", Source{}, Text())
			return err
		}, ErrInvalidSource},
		{"empty env name", func(b *Builder) error {
			_, err := Declare(b, "a", Env(""), Text())
			return err
		}, ErrEmptyIdentifier},
		{"empty secret identifier", func(b *Builder) error {
			_, err := Declare(b, "a", Secret(""), Text())
			return err
		}, ErrEmptyIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.declare(NewBuilder()); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDeclare_InvalidEnum(t *testing.T) {
	var typeErr *InvalidTypeError

	_, err := Declare(NewBuilder(), "mode", Env("MODE"), Enum[tier]())
	if !errors.As(err, &typeErr) {
		t.Errorf("empty enum: expected InvalidTypeError, got %v", err)
	}

	_, err = Declare(NewBuilder(), "mode", Env("MODE"), Enum[tier]("a", "a"))
	if !errors.As(err, &typeErr) {
		t.Errorf("repeated enum value: expected InvalidTypeError, got %v", err)
	}

	_, err = Declare[string](NewBuilder(), "x", Env("X"), nil)
	if !errors.As(err, &typeErr) {
		t.Errorf("nil type: expected InvalidTypeError, got %v", err)
	}
}

func TestBuild_Sealed(t *testing.T) {
	b := NewBuilder()
	MustDeclare(b, "a", Env("A"), Text())

	s1, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Declare(b, "b", Env("B"), Text()); !errors.Is(err, ErrSealed) {
		t.Errorf("Declare after Build: got %v, want ErrSealed", err)
	}
	s2, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	if s1 != s2 {
		t.Error("second Build() returned a different schema")
	}
	if s2.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s2.Len())
	}
}

func TestBuild_InvalidDeclarationAfterBuild(t *testing.T) {
	b := NewBuilder()
	MustDeclare(b, "a", Env("A"), Text())
	s1, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Declare[string](b, "b", Env("B"), nil); !errors.Is(err, ErrSealed) {
		t.Errorf("nil type after Build: got %v, want ErrSealed", err)
	}
	if _, err := Declare(b, "c", Env("C"), Enum[tier]()); !errors.Is(err, ErrSealed) {
		t.Errorf("empty enum after Build: got %v, want ErrSealed", err)
	}
	if err := b.Add("d", Env("D"), TypeSpec{Kind: "float"}); !errors.Is(err, ErrSealed) {
		t.Errorf("unknown kind after Build: got %v, want ErrSealed", err)
	}

	s2, err := b.Build()
	if err != nil {
		t.Fatalf("Build after rejected declarations: %v", err)
	}
	if s1 != s2 {
		t.Error("second Build() returned a different schema")
	}
}

func TestDeclare_EnvNameClash(t *testing.T) {
	type decl struct {
		name string
		src  Source
	}
	tests := []struct {
		name          string
		first, second decl
	}{
		{
			name:   "secret key exported over env variable",
			first:  decl{"legacy", Env("API_KEY")},
			second: decl{"api.key", Secret("prod/api-key")},
		},
		{
			name:   "env variable already exported by a secret key",
			first:  decl{"api.key", Secret("prod/api-key")},
			second: decl{"legacy", Env("API_KEY")},
		},
		{
			name:   "two secret keys with the same env form",
			first:  decl{"api.key", Secret("prod/api-key")},
			second: decl{"API_KEY", Secret("prod/other")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			MustDeclare(b, tt.first.name, tt.first.src, Text())
			_, err := Declare(b, tt.second.name, tt.second.src, Text())

			var clash *EnvNameClashError
			if !errors.As(err, &clash) {
				t.Fatalf("expected EnvNameClashError, got %v", err)
			}
			if clash.Name != tt.second.name || clash.Other != tt.first.name || clash.Var != "API_KEY" {
				t.Errorf("clash = %+v", clash)
			}
			if !errors.Is(err, ErrEnvNameClash) {
				t.Error("EnvNameClashError does not match ErrEnvNameClash")
			}
			if _, err := b.Build(); !errors.Is(err, ErrEnvNameClash) {
				t.Errorf("Build: got %v, want ErrEnvNameClash", err)
			}
		})
	}
}

func TestDeclare_SameVariableTwice(t *testing.T) {
	b := NewBuilder()
	MustDeclare(b, "port", Env("PORT"), Integer())
	if _, err := Declare(b, "port.text", Env("PORT"), Text()); !errors.Is(err, ErrEnvNameClash) {
		t.Errorf("got %v, want ErrEnvNameClash", err)
	}
}

func TestField_EnvName(t *testing.T) {
	b := NewBuilder()
	MustDeclare(b, "db.url", Env("DATABASE_URL"), Text())
	MustDeclare(b, "api.key", Secret("prod/api-key"), Text())
	s, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"db.url": "DATABASE_URL", "api.key": "API_KEY"}
	for _, f := range s.Fields() {
		if got := f.EnvName(); got != want[f.Name()] {
			t.Errorf("%s: EnvName() = %q, want %q", f.Name(), got, want[f.Name()])
		}
	}
}

func TestMustDeclare_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustDeclare did not panic on duplicate")
		}
	}()
	b := NewBuilder()
	MustDeclare(b, "a", Env("A"), Text())
	MustDeclare(b, "a", Env("A"), Text())
}

func TestKey_ForeignSchema(t *testing.T) {
	b1 := NewBuilder()
	k := MustDeclare(b1, "a", Env("A"), Text())
	s1, _ := b1.Build()

	b2 := NewBuilder()
	MustDeclare(b2, "a", Env("A"), Text())
	s2, _ := b2.Build()

	if !k.In(s1) {
		t.Error("key not in declaring schema")
	}
	if k.In(s2) {
		t.Error("key reported in a schema that merely declares the same name")
	}
	if (Key[string]{}).In(s1) {
		t.Error("zero key reported in schema")
	}
}

func TestKeyFor(t *testing.T) {
	b := NewBuilder()
	if err := b.Add("timeout", Env("TIMEOUT"), TypeSpec{Kind: KindDuration}); err != nil {
		t.Fatal(err)
	}
	s, _ := b.Build()

	k, err := KeyFor[time.Duration](s, "timeout")
	if err != nil {
		t.Fatalf("KeyFor failed: %v", err)
	}
	if !k.In(s) || k.Name() != "timeout" {
		t.Errorf("KeyFor returned unusable key %+v", k)
	}

	var mismatch *KeyTypeMismatchError
	if _, err := KeyFor[string](s, "timeout"); !errors.As(err, &mismatch) {
		t.Errorf("KeyFor[string]: expected KeyTypeMismatchError, got %v", err)
	}
	if _, err := KeyFor[string](s, "missing"); !errors.Is(err, ErrUndeclaredKey) {
		t.Errorf("KeyFor missing: expected ErrUndeclaredKey, got %v", err)
	}
}

func TestSchema_FieldsIsACopy(t *testing.T) {
	b := NewBuilder()
	MustDeclare(b, "a", Env("A"), Text())
	s, _ := b.Build()

	fields := s.Fields()
	fields[0] = Field{}
	if f, _ := s.Field("a"); f.Name() != "a" {
		t.Error("mutating Fields() result changed the schema")
	}
}
