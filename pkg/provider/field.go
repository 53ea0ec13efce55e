package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SplitField splits an identifier of the form "name#field". The field is
// empty when the identifier has no '#'.
func SplitField(identifier string) (name, field string) {
	name, field, _ = strings.Cut(identifier, "#")
	return name, field
}

// SelectField reads one member of a JSON object payload, as used by secret
// bundles that hold every value of a service under a single secret. String
// members are returned unquoted, any other member as its JSON text. A payload
// that is not an object, or a missing or null member, is NotFound.
func SelectField(identifier, payload, field string) (string, error) {
	var bundle map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &bundle); err != nil {
		return "", NotFoundError(identifier, errors.New("secret payload is not a JSON object"))
	}
	raw, ok := bundle[field]
	if !ok || string(raw) == "null" {
		return "", NotFoundError(identifier, fmt.Errorf("field %q not present in secret", field))
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	return string(raw), nil
}
