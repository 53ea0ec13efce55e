package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/fractic-io/envcfg/internal/artifact"
	"github.com/fractic-io/envcfg/internal/cli"
	"github.com/fractic-io/envcfg/internal/codegen"
	"github.com/fractic-io/envcfg/internal/injector"
	"github.com/fractic-io/envcfg/internal/launcher"
	"github.com/fractic-io/envcfg/internal/report"
	"github.com/fractic-io/envcfg/internal/settings"
	"github.com/fractic-io/envcfg/pkg/config"
	"github.com/fractic-io/envcfg/pkg/provider"
	"github.com/fractic-io/envcfg/pkg/provider/awssm"
	"github.com/fractic-io/envcfg/pkg/provider/gcpsecret"
	"github.com/fractic-io/envcfg/pkg/provider/vault"
	"github.com/fractic-io/envcfg/pkg/resolver"
	"github.com/fractic-io/envcfg/pkg/schema"
)

const (
	exitOK               = 0
	exitFailure          = 1
	exitSchema           = 3
	exitPermissionDenied = 126
	exitNotFound         = 127
)

func main() {
	exitCode := run(os.Args[1:], os.Environ(), ".")
	os.Exit(exitCode)
}

// secretProvider builds the secret store client named by the settings.
// Tests swap it for an in-memory provider.
var secretProvider = func(ctx context.Context, cfg settings.Settings) (provider.Provider, error) {
	switch cfg.SecretBackend {
	case settings.BackendVault:
		return vault.NewFromEnv(cfg.VaultMount)
	case settings.BackendGCP:
		return gcpsecret.NewFromDefault(ctx, gcpsecret.WithProject(cfg.GCPProject))
	default:
		return awssm.NewFromRegion(ctx, cfg.AWSRegion)
	}
}

// run orchestrates the full execution flow.
// It returns an exit code (0 for success, non-zero for failure).
// This function is separated from main() to enable testing.
func run(args []string, environ []string, defaultSchemaDir string) int {
	cmd, err := cli.ParseArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitFailure
	}

	cfg, err := settings.Load(environ)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitFailure
	}
	log := newLogger(cfg.LogLevel)

	schemaPath := resolveSchemaPath(cmd.SchemaPath, cfg.SchemaPath, defaultSchemaDir)
	s, err := schema.LoadSchemaFromPath(schemaPath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "schema file not found: %s\n", schemaPath)
			return exitSchema
		}
		fmt.Fprintf(os.Stderr, "failed to parse schema: %v\n", err)
		return exitSchema
	}

	if cmd.Subcommand == cli.SubcommandGen {
		return runGen(cmd, s, schemaPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, loadErr := resolve(ctx, log, cfg, s, environ)
	ciMode := cmd.CIMode || cfg.CI

	if loadErr != nil {
		var le *resolver.LoadError
		if !errors.As(loadErr, &le) {
			fmt.Fprintln(os.Stderr, "Error:", loadErr)
			return exitFailure
		}
		result := report.Result{
			SchemaPath: schemaPath,
			Keys:       s.Len(),
			Problems:   report.FromLoadError(le, s),
		}
		switch {
		case cmd.JSONOutput:
			out, err := report.FormatJSON(result)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: cannot format result: %v\n", err)
				return exitFailure
			}
			fmt.Println(out)
		case ciMode:
			fmt.Fprint(os.Stderr, report.FormatCI(result))
		default:
			fmt.Fprint(os.Stderr, report.FormatCLI(result))
		}
		return exitFailure
	}

	art := artifact.GenerateArtifact(c)
	log.WithFields(logrus.Fields{"keys": c.Len(), "configVersion": art.Short()}).Info("configuration loaded")

	if cmd.ArtifactFile != "" {
		if err := art.WriteToFile(cmd.ArtifactFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot write artifact: %v\n", err)
			return exitFailure
		}
	}

	if cmd.Subcommand == cli.SubcommandCheck {
		if cmd.JSONOutput {
			out, err := report.FormatJSON(report.Result{
				Valid:         true,
				SchemaPath:    schemaPath,
				Keys:          s.Len(),
				ConfigVersion: art.ConfigVersion,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: cannot format result: %v\n", err)
				return exitFailure
			}
			fmt.Println(out)
		} else {
			fmt.Println("✓ Config valid")
		}
		return exitOK
	}

	if cmd.DryRun {
		fmt.Printf("Config valid, would execute: %s\n", strings.TrimSpace(cmd.Target+" "+strings.Join(cmd.Args, " ")))
		return exitOK
	}

	childEnv := environ
	if !cmd.NoInject {
		childEnv = injector.Inject(c, art, environ)
	}

	// Exec does not return on success.
	err = launcher.Exec(cmd, childEnv)
	switch {
	case launcher.IsNotFound(err):
		fmt.Fprintf(os.Stderr, "Error: command not found: %s\n", cmd.Target)
		return exitNotFound
	case launcher.IsPermissionDenied(err):
		fmt.Fprintf(os.Stderr, "Error: permission denied: %s\n", cmd.Target)
		return exitPermissionDenied
	default:
		fmt.Fprintf(os.Stderr, "Error: exec failed: %v\n", err)
		return exitFailure
	}
}

// resolve builds the providers the schema needs and runs one resolution
// pass. Providers holding network clients are closed before returning.
func resolve(ctx context.Context, log logrus.FieldLogger, cfg settings.Settings, s *schema.Schema, environ []string) (*config.Loaded, error) {
	providers := provider.Set{
		schema.SourceEnv: provider.NewEnvFromEnviron(environ),
	}

	if slices.Contains(s.Kinds(), schema.SourceSecret) {
		p, err := secretProvider(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("secret backend %s: %w", cfg.SecretBackend, err)
		}
		if closer, ok := p.(io.Closer); ok {
			defer closer.Close()
		}
		providers[schema.SourceSecret] = p
	}

	opts := []resolver.Option{
		resolver.WithLogger(log),
		resolver.WithRetry(cfg.SecretRetries, resolver.DefaultInitialInterval, resolver.DefaultMaxInterval),
		resolver.WithFetchTimeout(cfg.SecretTimeout),
		resolver.WithParallelism(cfg.SecretParallelism),
	}
	if cfg.SecretRPS > 0 {
		opts = append(opts, resolver.WithRateLimit(cfg.SecretRPS, cfg.SecretParallelism))
	}

	return resolver.New(providers, opts...).Load(ctx, s)
}

func runGen(cmd cli.Command, s *schema.Schema, schemaPath string) int {
	src, err := codegen.Generate(s, codegen.Options{
		Package: cmd.PackageName,
		Source:  filepath.Base(schemaPath),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitFailure
	}

	if cmd.OutPath == "" {
		os.Stdout.Write(src)
		return exitOK
	}
	if dir := filepath.Dir(cmd.OutPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot create directory: %v\n", err)
			return exitFailure
		}
	}
	if err := os.WriteFile(cmd.OutPath, src, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot write %s: %v\n", cmd.OutPath, err)
		return exitFailure
	}
	return exitOK
}

func newLogger(level logrus.Level) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log
}

// resolveSchemaPath determines the schema file path.
// Priority: --schema flag > ENVCFG_SCHEMA > envcfg.yaml in defaultDir.
// Relative paths are taken relative to defaultDir.
func resolveSchemaPath(flagValue, settingValue, defaultDir string) string {
	path := flagValue
	if path == "" {
		path = settingValue
	}
	if path == "" {
		return filepath.Join(defaultDir, schema.DefaultFileName)
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(defaultDir, path)
}
