// Package codegen renders a schema as Go source: a package-level schema
// declaration plus a Config type with one typed accessor per key.
package codegen

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"go/token"
	"text/template"

	"github.com/fractic-io/envcfg/pkg/schema"
)

// DefaultPackage is used when Options.Package is empty.
const DefaultPackage = "config"

// ErrNilSchema is returned when Generate is called without a schema.
var ErrNilSchema = errors.New("codegen: schema is nil")

// Options controls the generated file.
type Options struct {
	Package string // package clause of the generated file
	Source  string // schema file named in the header comment
}

// NameCollisionError reports two declarations that map to the same Go
// identifier, or a key that maps to a reserved one.
type NameCollisionError struct {
	Ident string
	Keys  []string
}

func (e *NameCollisionError) Error() string {
	if len(e.Keys) == 1 {
		return fmt.Sprintf("codegen: key %q maps to reserved identifier %s", e.Keys[0], e.Ident)
	}
	return fmt.Sprintf("codegen: keys %q and %q both map to identifier %s", e.Keys[0], e.Keys[1], e.Ident)
}

// reserved identifiers of the generated file, including import names.
var reserved = map[string]bool{
	"Schema": true, "Config": true, "Load": true, "Loaded": true,
	"schemaBuilder": true, "mustBuild": true,
	"context": true, "time": true, "envcfg": true, "provider": true,
	"resolver": true, "schema": true,
}

type keyData struct {
	Name       string
	Source     string
	SourceFunc string
	Identifier string
	Method     string
	Var        string
	GoType     string
	TypeExpr   string
}

type enumValue struct {
	Ident string
	Value string
}

type enumData struct {
	Key    string
	Type   string
	Values []enumValue
}

type fileData struct {
	Package   string
	Source    string
	NeedsTime bool
	Keys      []keyData
	Enums     []enumData
}

// Generate renders s as a gofmt-formatted Go file.
func Generate(s *schema.Schema, opts Options) ([]byte, error) {
	if s == nil {
		return nil, ErrNilSchema
	}
	pkg := opts.Package
	if pkg == "" {
		pkg = DefaultPackage
	}
	if !token.IsIdentifier(pkg) || pkg == "_" {
		return nil, fmt.Errorf("codegen: invalid package name %q", pkg)
	}

	data := fileData{Package: pkg, Source: opts.Source}
	owners := make(map[string]string)
	claim := func(ident, key string) error {
		if ident == "" || reserved[ident] {
			return &NameCollisionError{Ident: ident, Keys: []string{key}}
		}
		if prev, ok := owners[ident]; ok {
			return &NameCollisionError{Ident: ident, Keys: []string{prev, key}}
		}
		owners[ident] = key
		return nil
	}

	for _, f := range s.Fields() {
		k, enum, err := describe(f)
		if err != nil {
			return nil, err
		}
		if err := claim(k.Method, f.Name()); err != nil {
			return nil, err
		}
		if err := claim(k.Var, f.Name()); err != nil {
			return nil, err
		}
		if enum != nil {
			for _, v := range enum.Values {
				if err := claim(v.Ident, f.Name()); err != nil {
					return nil, err
				}
			}
			data.Enums = append(data.Enums, *enum)
		}
		if f.Kind() == schema.KindDuration {
			data.NeedsTime = true
		}
		data.Keys = append(data.Keys, k)
	}

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("codegen: %w", err)
	}
	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("codegen: formatting output: %w", err)
	}
	return out, nil
}

// describe maps a field to its template data. The enum type shares the
// method's name; types and methods live in different scopes.
func describe(f schema.Field) (keyData, *enumData, error) {
	method := exportedName(f.Name())
	k := keyData{
		Name:       f.Name(),
		Source:     f.Source().String(),
		Identifier: f.Source().Identifier(),
		Method:     method,
		Var:        method + "Key",
	}
	if method == "" {
		k.Var = ""
	}
	switch f.Source().Kind() {
	case schema.SourceEnv:
		k.SourceFunc = "Env"
	case schema.SourceSecret:
		k.SourceFunc = "Secret"
	default:
		return keyData{}, nil, fmt.Errorf("codegen: key %q: %w", f.Name(), schema.ErrInvalidSource)
	}

	switch f.Kind() {
	case schema.KindText:
		k.GoType, k.TypeExpr = "string", "schema.Text()"
	case schema.KindInteger:
		k.GoType, k.TypeExpr = "int64", "schema.Integer()"
	case schema.KindBoolean:
		k.GoType, k.TypeExpr = "bool", "schema.Boolean()"
	case schema.KindDuration:
		k.GoType, k.TypeExpr = "time.Duration", "schema.Duration()"
	case schema.KindJSON:
		k.GoType, k.TypeExpr = "any", "schema.JSON[any]()"
	case schema.KindEnum:
		enum := &enumData{Key: f.Name(), Type: method}
		var consts bytes.Buffer
		for i, v := range f.Allowed() {
			suffix := exportedName(v)
			if suffix == "" {
				suffix = fmt.Sprintf("Value%d", i)
			}
			ev := enumValue{Ident: method + suffix, Value: v}
			enum.Values = append(enum.Values, ev)
			if i > 0 {
				consts.WriteString(", ")
			}
			consts.WriteString(ev.Ident)
		}
		k.GoType = method
		k.TypeExpr = "schema.Enum(" + consts.String() + ")"
		return k, enum, nil
	default:
		return keyData{}, nil, fmt.Errorf("codegen: key %q: unsupported type %q", f.Name(), f.Kind())
	}
	return k, nil, nil
}

var fileTemplate = template.Must(template.New("file").Parse(`// Code generated by envcfg gen{{if .Source}} from {{.Source}}{{end}}. DO NOT EDIT.

package {{.Package}}

import (
	"context"
{{- if .NeedsTime}}
	"time"
{{- end}}

	envcfg "github.com/fractic-io/envcfg/pkg/config"
	"github.com/fractic-io/envcfg/pkg/provider"
	"github.com/fractic-io/envcfg/pkg/resolver"
	"github.com/fractic-io/envcfg/pkg/schema"
)
{{range .Enums}}{{$type := .Type}}
// {{.Type}} is the set of values allowed for {{printf "%q" .Key}}.
type {{.Type}} string

const (
{{- range .Values}}
	{{.Ident}} {{$type}} = {{printf "%q" .Value}}
{{- end}}
)
{{end}}
var (
	schemaBuilder = schema.NewBuilder()
{{range .Keys}}
	{{.Var}} = schema.MustDeclare(schemaBuilder, {{printf "%q" .Name}}, schema.{{.SourceFunc}}({{printf "%q" .Identifier}}), {{.TypeExpr}})
{{- end}}

	// Schema holds every key above. It is built after the keys are declared.
	Schema = mustBuild(schemaBuilder)
)

func mustBuild(b *schema.Builder) *schema.Schema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

// Config is a resolved configuration with one accessor per declared key.
type Config struct {
	loaded *envcfg.Loaded
}

// Load resolves Schema against providers.
func Load(ctx context.Context, providers provider.Set, opts ...resolver.Option) (Config, error) {
	c, err := resolver.Load(ctx, Schema, providers, opts...)
	if err != nil {
		return Config{}, err
	}
	return Config{loaded: c}, nil
}

// Loaded returns the underlying configuration.
func (c Config) Loaded() *envcfg.Loaded {
	return c.loaded
}
{{range .Keys}}
// {{.Method}} returns {{printf "%q" .Name}} ({{.Source}}).
func (c Config) {{.Method}}() {{.GoType}} {
	return envcfg.Get(c.loaded, {{.Var}})
}
{{end}}`))
