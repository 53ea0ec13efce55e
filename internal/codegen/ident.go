package codegen

import (
	"strings"
	"unicode"
)

var initialisms = map[string]bool{
	"ACL": true, "API": true, "AWS": true, "CPU": true, "DNS": true,
	"GCP": true, "HTTP": true, "HTTPS": true, "ID": true, "IP": true,
	"JSON": true, "SQL": true, "SSH": true, "TLS": true, "TTL": true,
	"UI": true, "URI": true, "URL": true, "UUID": true,
}

// exportedName converts a key name such as "database.url" or "DATABASE_URL"
// into an exported Go identifier ("DatabaseURL"). It returns "" when the name
// has no letters or digits.
func exportedName(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var sb strings.Builder
	for _, w := range words {
		upper := strings.ToUpper(w)
		if initialisms[upper] {
			sb.WriteString(upper)
			continue
		}
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		sb.WriteString(string(runes))
	}

	out := sb.String()
	if out != "" && unicode.IsDigit([]rune(out)[0]) {
		out = "Key" + out
	}
	return out
}
