package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/fractic-io/envcfg/pkg/config"
)

// KeyInfo describes one resolved key without its value.
type KeyInfo struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Type   string `json:"type"`
}

// ConfigArtifact identifies a resolved configuration. It never carries
// values, only their fingerprint, so it is safe to log and store.
type ConfigArtifact struct {
	ConfigVersion string    `json:"configVersion"` // sha256:hex
	Keys          []KeyInfo `json:"keys"`
}

// GenerateArtifact fingerprints a resolved configuration.
func GenerateArtifact(c *config.Loaded) ConfigArtifact {
	fields := c.Schema().Fields()
	keys := make([]KeyInfo, len(fields))
	for i, f := range fields {
		keys[i] = KeyInfo{
			Name:   f.Name(),
			Source: f.Source().String(),
			Type:   string(f.Kind()),
		}
	}

	values := make(map[string]string, len(fields))
	for _, entry := range c.Environ() {
		name, value, _ := strings.Cut(entry, "=")
		values[name] = value
	}

	return ConfigArtifact{
		ConfigVersion: ComputeConfigVersion(values),
		Keys:          keys,
	}
}

// ComputeConfigVersion computes the SHA-256 hash of the values in canonical form.
// Returns the hash prefixed with "sha256:".
func ComputeConfigVersion(values map[string]string) string {
	canonical := canonicalValuesJSON(values)
	hash := sha256.Sum256(canonical)
	return "sha256:" + hex.EncodeToString(hash[:])
}

// Short returns the first 12 hex digits of the version, for log lines.
func (a ConfigArtifact) Short() string {
	hexPart := strings.TrimPrefix(a.ConfigVersion, "sha256:")
	if len(hexPart) > 12 {
		return hexPart[:12]
	}
	return hexPart
}

// ToJSON serializes the artifact to pretty-printed JSON for human readability.
func (a ConfigArtifact) ToJSON() ([]byte, error) {
	return json.MarshalIndent(a, "", "  ")
}

// canonicalValuesJSON produces canonical JSON for just the values map.
// Keys are sorted alphabetically, no whitespace.
func canonicalValuesJSON(values map[string]string) []byte {
	if len(values) == 0 {
		return []byte("{}")
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}
		keyJSON, _ := json.Marshal(k)
		valueJSON, _ := json.Marshal(values[k])
		result = append(result, keyJSON...)
		result = append(result, ':')
		result = append(result, valueJSON...)
	}
	result = append(result, '}')
	return result
}
