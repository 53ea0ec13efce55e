// Package settings reads envcfg's own settings. Values come from defaults, an
// optional settings file named by ENVCFG_CONFIG, and ENVCFG_* variables, in
// increasing order of precedence.
package settings

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/fractic-io/envcfg/pkg/provider"
)

const envPrefix = "ENVCFG_"

// Backend names a secret store.
type Backend string

const (
	BackendAWS   Backend = "aws"
	BackendVault Backend = "vault"
	BackendGCP   Backend = "gcp"
)

// Settings configures the CLI. They never describe the application's own
// configuration, which comes from the schema file.
type Settings struct {
	SchemaPath        string
	CI                bool
	LogLevel          logrus.Level
	SecretBackend     Backend
	SecretTimeout     time.Duration
	SecretRetries     int
	SecretParallelism int
	SecretRPS         float64
	VaultMount        string
	GCPProject        string
	AWSRegion         string
}

var defaults = map[string]any{
	"schema":             "",
	"ci":                 false,
	"log_level":          "warn",
	"secret_backend":     string(BackendAWS),
	"secret_timeout":     "5s",
	"secret_retries":     3,
	"secret_parallelism": 4,
	"secret_rps":         0,
	"vault_mount":        "secret",
	"gcp_project":        "",
	"aws_region":         "",
}

// Load reads settings from an environ slice (["KEY=VALUE", ...]).
func Load(environ []string) (Settings, error) {
	env := provider.ParseEnviron(environ)

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path := env[envPrefix+"CONFIG"]; path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("cannot read settings file %s: %w", path, err)
		}
	}

	for key := range defaults {
		if value, ok := env[envPrefix+strings.ToUpper(key)]; ok && value != "" {
			v.Set(key, value)
		}
	}
	// Names shared with other tools.
	if truthy(env["CI"]) {
		v.Set("ci", true)
	}
	if region := env["SECRETS_REGION"]; region != "" && v.GetString("aws_region") == "" {
		v.Set("aws_region", region)
	}

	return decode(v)
}

func decode(v *viper.Viper) (Settings, error) {
	s := Settings{
		SchemaPath: v.GetString("schema"),
		CI:         truthy(v.GetString("ci")),
		VaultMount: v.GetString("vault_mount"),
		GCPProject: v.GetString("gcp_project"),
		AWSRegion:  v.GetString("aws_region"),
	}

	level, err := logrus.ParseLevel(v.GetString("log_level"))
	if err != nil {
		return Settings{}, fmt.Errorf("ENVCFG_LOG_LEVEL: %w", err)
	}
	s.LogLevel = level

	switch b := Backend(strings.ToLower(v.GetString("secret_backend"))); b {
	case BackendAWS, BackendVault, BackendGCP:
		s.SecretBackend = b
	default:
		return Settings{}, fmt.Errorf("ENVCFG_SECRET_BACKEND: unknown backend %q (expected aws, vault or gcp)", b)
	}

	if s.SecretTimeout, err = time.ParseDuration(v.GetString("secret_timeout")); err != nil || s.SecretTimeout < 0 {
		return Settings{}, fmt.Errorf("ENVCFG_SECRET_TIMEOUT: invalid duration %q", v.GetString("secret_timeout"))
	}
	if s.SecretRetries, err = nonNegativeInt(v, "secret_retries"); err != nil {
		return Settings{}, err
	}
	if s.SecretParallelism, err = nonNegativeInt(v, "secret_parallelism"); err != nil {
		return Settings{}, err
	}
	if s.SecretParallelism == 0 {
		return Settings{}, fmt.Errorf("ENVCFG_SECRET_PARALLELISM: must be at least 1")
	}
	if s.SecretRPS, err = strconv.ParseFloat(v.GetString("secret_rps"), 64); err != nil || s.SecretRPS < 0 {
		return Settings{}, fmt.Errorf("ENVCFG_SECRET_RPS: invalid rate %q", v.GetString("secret_rps"))
	}

	return s, nil
}

func nonNegativeInt(v *viper.Viper, key string) (int, error) {
	raw := v.GetString(key)
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s%s: invalid count %q", envPrefix, strings.ToUpper(key), raw)
	}
	return n, nil
}

// truthy accepts the spellings CI systems commonly use.
func truthy(val string) bool {
	switch strings.ToLower(val) {
	case "true", "1", "yes":
		return true
	}
	return false
}
