package injector

import (
	"strings"

	"github.com/fractic-io/envcfg/internal/artifact"
	"github.com/fractic-io/envcfg/pkg/config"
)

// VersionVar carries the configVersion of the resolved configuration into
// the child process.
const VersionVar = "ENVCFG_CONFIG_VERSION"

// Inject returns environ with every resolved value and the config version
// added, replacing variables of the same name. Values appear in their
// canonical form, so "TRUE" read for a boolean key is passed on as "true".
func Inject(c *config.Loaded, art artifact.ConfigArtifact, environ []string) []string {
	vars := append(c.Environ(), VersionVar+"="+art.ConfigVersion)
	return InjectEnv(environ, vars)
}

// InjectEnv merges vars ("NAME=value") into environ. Entries of environ whose
// name appears in vars are dropped; all others are preserved in order.
func InjectEnv(environ []string, vars []string) []string {
	names := make(map[string]bool, len(vars))
	for _, v := range vars {
		names[envName(v)] = true
	}

	result := make([]string, 0, len(environ)+len(vars))
	for _, env := range environ {
		if !names[envName(env)] {
			result = append(result, env)
		}
	}
	return append(result, vars...)
}

func envName(entry string) string {
	name, _, _ := strings.Cut(entry, "=")
	return name
}
