package schema

import "strings"

// PathToEnvVar converts a dotted key path to an environment variable name.
// e.g., "db.url" -> "DB_URL", "payments.mode" -> "PAYMENTS_MODE"
func PathToEnvVar(path string) string {
	if path == "" {
		return ""
	}
	return strings.ToUpper(strings.ReplaceAll(path, ".", "_"))
}
