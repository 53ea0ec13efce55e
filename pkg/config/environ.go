package config

import (
	"github.com/fractic-io/envcfg/pkg/schema"
)

// EnvName is the variable a field is exported under. See schema.Field.EnvName.
func EnvName(f schema.Field) string {
	return f.EnvName()
}

// Environ renders every value as NAME=value in declaration order, for handing
// the configuration to a child process. Secret values are included. Names are
// unique because the schema rejects keys exporting the same variable.
func (c *Loaded) Environ() []string {
	fields := c.schema.Fields()
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		raw, ok := f.Render(c.values[f.Name()])
		if !ok {
			continue
		}
		out = append(out, EnvName(f)+"="+raw)
	}
	return out
}
