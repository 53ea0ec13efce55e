package schema

import "fmt"

// SourceKind names the backing store a key is resolved from. The set is closed:
// a Source can only be built with Env or Secret.
type SourceKind string

const (
	SourceEnv    SourceKind = "env"
	SourceSecret SourceKind = "secret"
)

// Source identifies where the raw value of a key lives.
type Source struct {
	kind       SourceKind
	identifier string
}

// Env declares a key backed by the environment variable name.
func Env(name string) Source {
	return Source{kind: SourceEnv, identifier: name}
}

// Secret declares a key backed by a secret store entry. The identifier is the
// secret name or path understood by the configured secret provider.
func Secret(identifier string) Source {
	return Source{kind: SourceSecret, identifier: identifier}
}

// Kind returns the source kind used to pick a provider.
func (s Source) Kind() SourceKind {
	return s.kind
}

// Identifier returns the variable name or secret identifier.
func (s Source) Identifier() string {
	return s.identifier
}

// String formats the source as "env:NAME" or "secret:path".
func (s Source) String() string {
	return fmt.Sprintf("%s:%s", s.kind, s.identifier)
}

func (s Source) valid() bool {
	return s.kind == SourceEnv || s.kind == SourceSecret
}
