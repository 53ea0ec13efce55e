package config

import (
	"fmt"
	"strings"

	"github.com/fractic-io/envcfg/pkg/schema"
)

// InvalidSubsetError lists the fields of a child schema that are not declared
// identically in the parent.
type InvalidSubsetError struct {
	Names []string
}

func (e *InvalidSubsetError) Error() string {
	return fmt.Sprintf("schema is not a subset of the loaded configuration: %s", strings.Join(e.Names, ", "))
}

// Narrow derives the configuration for child from c without fetching or
// converting anything. Every field of child must be declared in c's schema
// with the same name, source and type.
func (c *Loaded) Narrow(child *schema.Schema) (*Loaded, error) {
	if child == nil {
		return nil, fmt.Errorf("%w: nil schema", ErrIncomplete)
	}

	var bad []string
	values := make(map[string]any, child.Len())
	for _, f := range child.Fields() {
		pf, ok := c.schema.Field(f.Name())
		if !ok || !pf.SameDeclaration(f) {
			bad = append(bad, f.Name())
			continue
		}
		values[f.Name()] = c.values[f.Name()]
	}
	if len(bad) > 0 {
		return nil, &InvalidSubsetError{Names: bad}
	}

	return &Loaded{schema: child, values: values}, nil
}
