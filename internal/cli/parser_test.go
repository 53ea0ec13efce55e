package cli

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestParseArgs_ValidCommand(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantTarget string
		wantArgs   []string
	}{
		{
			name:       "simple command",
			args:       []string{"run", "echo"},
			wantTarget: "echo",
			wantArgs:   nil,
		},
		{
			name:       "command with one arg",
			args:       []string{"run", "echo", "hello"},
			wantTarget: "echo",
			wantArgs:   []string{"hello"},
		},
		{
			name:       "command flags are not consumed",
			args:       []string{"run", "node", "index.js", "--json", "--port", "3000"},
			wantTarget: "node",
			wantArgs:   []string{"index.js", "--json", "--port", "3000"},
		},
		{
			name:       "double dash ends flags",
			args:       []string{"run", "--ci", "--", "--weird-binary", "x"},
			wantTarget: "--weird-binary",
			wantArgs:   []string{"x"},
		},
		{
			name:       "unknown flag starts command",
			args:       []string{"run", "--verbose", "x"},
			wantTarget: "--verbose",
			wantArgs:   []string{"x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cmd.Target != tt.wantTarget {
				t.Errorf("Target = %q, want %q", cmd.Target, tt.wantTarget)
			}
			if len(cmd.Args) != len(tt.wantArgs) {
				t.Fatalf("Args = %v, want %v", cmd.Args, tt.wantArgs)
			}
			for i := range cmd.Args {
				if cmd.Args[i] != tt.wantArgs[i] {
					t.Errorf("Args[%d] = %q, want %q", i, cmd.Args[i], tt.wantArgs[i])
				}
			}
		})
	}
}

func TestParseArgs_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"empty args", []string{}, ErrNoSubcommand},
		{"unknown subcommand", []string{"exec", "echo"}, ErrNoSubcommand},
		{"run without command", []string{"run"}, ErrNoCommand},
		{"run with only flags", []string{"run", "--ci"}, ErrNoCommand},
		{"schema without value", []string{"check", "--schema"}, ErrMissingFlagValue},
		{"out without value", []string{"gen", "--out"}, ErrMissingFlagValue},
		{"package without value", []string{"gen", "--package"}, ErrMissingFlagValue},
		{"artifact-file without value", []string{"run", "--artifact-file"}, ErrMissingFlagValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.args)
			if err != tt.wantErr {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseArgs_Flags(t *testing.T) {
	cmd, err := ParseArgs([]string{
		"run", "--schema", "cfg/envcfg.yaml", "--ci", "--json", "--no-inject",
		"--artifact-file", "out/artifact.json", "server", "-p", "80",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.SchemaPath != "cfg/envcfg.yaml" {
		t.Errorf("SchemaPath = %q", cmd.SchemaPath)
	}
	if !cmd.CIMode || !cmd.JSONOutput || !cmd.NoInject {
		t.Errorf("bool flags not set: %+v", cmd)
	}
	if cmd.DryRun {
		t.Error("DryRun should be false")
	}
	if cmd.ArtifactFile != "out/artifact.json" {
		t.Errorf("ArtifactFile = %q", cmd.ArtifactFile)
	}
	if cmd.Target != "server" || len(cmd.Args) != 2 {
		t.Errorf("Target = %q, Args = %v", cmd.Target, cmd.Args)
	}
}

func TestParseArgs_DryRunWithoutCommand(t *testing.T) {
	cmd, err := ParseArgs([]string{"run", "--dry-run"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cmd.DryRun || cmd.Target != "" {
		t.Errorf("got %+v", cmd)
	}
}

func TestParseArgs_CheckSubcommand(t *testing.T) {
	cmd, err := ParseArgs([]string{"check", "--json", "ignored"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.Subcommand != SubcommandCheck {
		t.Errorf("Subcommand = %q", cmd.Subcommand)
	}
	if !cmd.JSONOutput {
		t.Error("JSONOutput should be true")
	}
	if cmd.Target != "" {
		t.Errorf("check should not take a target, got %q", cmd.Target)
	}
}

func TestParseArgs_GenSubcommand(t *testing.T) {
	cmd, err := ParseArgs([]string{"gen", "--out", "config/envcfg_gen.go", "--package", "config"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.Subcommand != SubcommandGen {
		t.Errorf("Subcommand = %q", cmd.Subcommand)
	}
	if cmd.OutPath != "config/envcfg_gen.go" || cmd.PackageName != "config" {
		t.Errorf("got %+v", cmd)
	}
}

// Feature: envcfg, Property 14: Argument Parsing Preservation
// For any list of command-line arguments after "run <target>", parsing SHALL
// preserve all arguments in order and pass them to the target command.
func TestParseArgs_ArgumentPreservation_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("all arguments preserved in order", prop.ForAll(
		func(target string, cmdArgs []string) bool {
			args := append([]string{"run", target}, cmdArgs...)
			cmd, err := ParseArgs(args)
			if err != nil {
				return false
			}
			if cmd.Target != target || len(cmd.Args) != len(cmdArgs) {
				return false
			}
			for i := range cmdArgs {
				if cmd.Args[i] != cmdArgs[i] {
					return false
				}
			}
			return true
		},
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 }),
		gen.SliceOf(gen.AnyString()),
	))

	properties.Property("leading flags do not disturb the command", prop.ForAll(
		func(ci, dryRun, noInject bool, target string) bool {
			args := []string{"run"}
			if ci {
				args = append(args, "--ci")
			}
			if dryRun {
				args = append(args, "--dry-run")
			}
			if noInject {
				args = append(args, "--no-inject")
			}
			args = append(args, target, "--ci")
			cmd, err := ParseArgs(args)
			if err != nil {
				return false
			}
			return cmd.CIMode == ci && cmd.DryRun == dryRun && cmd.NoInject == noInject &&
				cmd.Target == target && len(cmd.Args) == 1 && cmd.Args[0] == "--ci"
		},
		gen.Bool(),
		gen.Bool(),
		gen.Bool(),
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 }),
	))

	properties.TestingRun(t)
}
