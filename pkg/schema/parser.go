package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the schema file looked up when no path is given.
const DefaultFileName = "envcfg.yaml"

// schemaFile represents the YAML file structure
type schemaFile struct {
	Keys []keyEntry `yaml:"keys"`
}

// keyEntry represents a single key declaration in YAML
type keyEntry struct {
	Name   string   `yaml:"name"`
	Env    string   `yaml:"env,omitempty"`
	Secret string   `yaml:"secret,omitempty"`
	Type   string   `yaml:"type"`
	Values []string `yaml:"values,omitempty"`
}

// ParseSchema parses YAML content into a Schema. Declarations are applied in
// file order, so a repeated name fails with DuplicateKeyDeclarationError.
func ParseSchema(content []byte) (*Schema, error) {
	var sf schemaFile
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	b := NewBuilder()
	for i, entry := range sf.Keys {
		if entry.Name == "" {
			return nil, fmt.Errorf("key at index %d: missing required field 'name'", i)
		}
		if entry.Env != "" && entry.Secret != "" {
			return nil, fmt.Errorf("key %q: 'env' and 'secret' are mutually exclusive", entry.Name)
		}
		if entry.Type == "" {
			return nil, fmt.Errorf("key %q: missing required field 'type'", entry.Name)
		}
		if entry.Type != string(KindEnum) && len(entry.Values) > 0 {
			return nil, fmt.Errorf("key %q: 'values' is only valid for enum type", entry.Name)
		}

		var src Source
		switch {
		case entry.Secret != "":
			src = Secret(entry.Secret)
		case entry.Env != "":
			src = Env(entry.Env)
		default:
			src = Env(PathToEnvVar(entry.Name))
		}

		if err := b.Add(entry.Name, src, TypeSpec{Kind: Kind(entry.Type), Values: entry.Values}); err != nil {
			return nil, err
		}
	}

	return b.Build()
}

// ToYAML serializes a Schema back to YAML bytes
func (s *Schema) ToYAML() ([]byte, error) {
	sf := schemaFile{Keys: make([]keyEntry, 0, len(s.fields))}
	for _, f := range s.fields {
		entry := keyEntry{
			Name:   f.name,
			Type:   string(f.typ.kind),
			Values: f.typ.allowed,
		}
		switch f.source.kind {
		case SourceSecret:
			entry.Secret = f.source.identifier
		default:
			entry.Env = f.source.identifier
		}
		sf.Keys = append(sf.Keys, entry)
	}
	return yaml.Marshal(&sf)
}

// LoadSchema reads and parses envcfg.yaml from the given directory
func LoadSchema(dir string) (*Schema, error) {
	return LoadSchemaFromPath(filepath.Join(dir, DefaultFileName))
}

// LoadSchemaFromPath reads and parses a schema from the given file path
func LoadSchemaFromPath(path string) (*Schema, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}

	return ParseSchema(content)
}
