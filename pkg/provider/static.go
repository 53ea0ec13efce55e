package provider

import (
	"context"
	"maps"
)

// Static serves values from a fixed map. It is used for dry runs and tests.
type Static struct {
	values map[string]string
}

// NewStatic copies values into a new Static provider.
func NewStatic(values map[string]string) *Static {
	return &Static{values: maps.Clone(values)}
}

func (s *Static) Fetch(_ context.Context, identifier string) (string, error) {
	v, ok := s.values[identifier]
	if !ok {
		return "", NotFoundError(identifier, nil)
	}
	return v, nil
}
