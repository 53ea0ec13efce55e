package cli

import (
	"errors"
	"strings"
)

// ErrNoCommand is returned when no command is provided after "run"
var ErrNoCommand = errors.New("no command provided: usage: envcfg run [flags] <command> [args...]")

// ErrNoSubcommand is returned when the subcommand is missing or unknown
var ErrNoSubcommand = errors.New("missing subcommand: usage: envcfg <check|run|gen> [flags] [command] [args...]")

// ErrMissingFlagValue is returned when a flag requires a value but none is provided
var ErrMissingFlagValue = errors.New("flag requires a value")

// Subcommand represents the CLI subcommand
type Subcommand string

const (
	SubcommandCheck Subcommand = "check"
	SubcommandRun   Subcommand = "run"
	SubcommandGen   Subcommand = "gen"
)

// Command represents the parsed CLI input
type Command struct {
	Subcommand Subcommand
	Target     string   // command to execute, run only
	Args       []string // arguments for Target, run only

	SchemaPath   string // --schema <path>
	CIMode       bool   // --ci
	JSONOutput   bool   // --json
	DryRun       bool   // --dry-run
	NoInject     bool   // --no-inject
	ArtifactFile string // --artifact-file <path>

	// gen
	OutPath     string // --out <path>
	PackageName string // --package <name>
}

// valueFlags take the following argument as their value.
var valueFlags = map[string]func(*Command, string){
	"schema":        func(c *Command, v string) { c.SchemaPath = v },
	"artifact-file": func(c *Command, v string) { c.ArtifactFile = v },
	"out":           func(c *Command, v string) { c.OutPath = v },
	"package":       func(c *Command, v string) { c.PackageName = v },
}

var boolFlags = map[string]func(*Command){
	"ci":        func(c *Command) { c.CIMode = true },
	"json":      func(c *Command) { c.JSONOutput = true },
	"dry-run":   func(c *Command) { c.DryRun = true },
	"no-inject": func(c *Command) { c.NoInject = true },
}

// ParseArgs parses CLI arguments into a Command.
// It expects args to be os.Args[1:] (excluding the program name).
// Flags are read up to the first non-flag argument; everything from there on
// belongs to the target command and is preserved verbatim.
func ParseArgs(args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, ErrNoSubcommand
	}

	sub := Subcommand(args[0])
	switch sub {
	case SubcommandCheck, SubcommandRun, SubcommandGen:
	default:
		return Command{}, ErrNoSubcommand
	}

	cmd := Command{Subcommand: sub}

	i := 1
	for i < len(args) {
		arg := args[i]

		if arg == "--" {
			i++
			break
		}
		if !strings.HasPrefix(arg, "--") {
			break
		}

		name := strings.TrimPrefix(arg, "--")
		if set, ok := valueFlags[name]; ok {
			if i+1 >= len(args) {
				return Command{}, ErrMissingFlagValue
			}
			set(&cmd, args[i+1])
			i += 2
			continue
		}
		if set, ok := boolFlags[name]; ok {
			set(&cmd)
			i++
			continue
		}

		// Unknown flag: treat as start of the command
		break
	}

	if sub == SubcommandRun && i < len(args) {
		cmd.Target = args[i]
		if i+1 < len(args) {
			cmd.Args = args[i+1:]
		}
	}

	if sub == SubcommandRun && cmd.Target == "" && !cmd.DryRun {
		return Command{}, ErrNoCommand
	}

	return cmd, nil
}
