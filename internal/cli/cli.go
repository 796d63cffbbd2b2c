// Package cli parses command-line arguments into the application
// configuration and owns process-level concerns like exit codes.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/pwnslinger/revng/internal/app"
)

// ExitError carries a specific process exit code with its message.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return e.Message
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// Parse processes command-line arguments. It returns the populated
// configuration, a boolean indicating a clean early exit (help), or
// an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("revng-pipeline", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
revng-pipeline - declarative pipeline runner for binary analysis artifacts.

Usage:
  revng-pipeline [options] [STEP:CONTAINER:TARGET-PATH:KIND]...

Arguments:
  STEP:CONTAINER:TARGET-PATH:KIND
    Goal targets to materialize. With --step set, STEP may be omitted
    (CONTAINER:TARGET-PATH:KIND).

Options:
`)
		flagSet.PrintDefaults()
	}

	var inputs, outputs, libraries, flags stringList
	pipelinePath := flagSet.String("P", "", "Path to the pipeline description file or directory.")
	flagSet.Var(&inputs, "i", "Input binding step:container:path (repeatable).")
	flagSet.Var(&outputs, "o", "Output binding step:container:path (repeatable).")
	goalStep := flagSet.String("step", "", "The goal step for positional targets without a step.")
	flagSet.Var(&libraries, "l", "Plugin library contributing pipes, containers, and kinds (repeatable).")
	flagSet.Var(&flags, "f", "Activate a flag for enabled_when gating (repeatable).")
	storeDir := flagSet.String("p", "", "Persistent working directory for artifacts.")
	invalidateMode := flagSet.Bool("invalidate", false, "Invalidate the positional targets in the persistent store instead of running.")
	debug := flagSet.Bool("debug", false, "Make pipe contract violations fatal.")
	logFormat := flagSet.String("log-format", "text", "Log output format: 'text' or 'json'.")
	logLevel := flagSet.String("log-level", "info", "Log level: 'debug', 'info', 'warn', or 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if *pipelinePath == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	format := strings.ToLower(*logFormat)
	if format != "text" && format != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	level := strings.ToLower(*logLevel)
	switch level {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	cfg := &app.Config{
		PipelinePath: *pipelinePath,
		GoalStep:     *goalStep,
		Libraries:    libraries,
		Flags:        flags,
		StoreDir:     *storeDir,
		Invalidate:   *invalidateMode,
		Debug:        *debug,
		LogFormat:    format,
		LogLevel:     level,
	}

	for _, raw := range inputs {
		binding, err := parseBinding(raw)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("-i %s: %v", raw, err)}
		}
		cfg.Inputs = append(cfg.Inputs, binding)
	}
	for _, raw := range outputs {
		binding, err := parseBinding(raw)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("-o %s: %v", raw, err)}
		}
		cfg.Outputs = append(cfg.Outputs, binding)
	}

	for _, raw := range flagSet.Args() {
		spec, err := parseTargetSpec(raw, *goalStep)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("target %s: %v", raw, err)}
		}
		cfg.Targets = append(cfg.Targets, spec)
	}

	if len(cfg.Targets) == 0 && !cfg.Invalidate {
		return nil, false, &ExitError{Code: 2, Message: "no goal targets given"}
	}

	return cfg, false, nil
}

// parseBinding splits "step:container:path". The path may itself
// contain colons.
func parseBinding(raw string) (app.Binding, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return app.Binding{}, fmt.Errorf("expected step:container:path")
	}
	return app.Binding{Step: parts[0], Container: parts[1], Path: parts[2]}, nil
}

// parseTargetSpec splits "step:container:target-path:kind", or
// "container:target-path:kind" when a goal step is set.
func parseTargetSpec(raw, goalStep string) (app.TargetSpec, error) {
	parts := strings.Split(raw, ":")
	switch len(parts) {
	case 4:
		return app.TargetSpec{Step: parts[0], Container: parts[1], Path: parts[2], Kind: parts[3]}, nil
	case 3:
		if goalStep == "" {
			return app.TargetSpec{}, fmt.Errorf("no step given and --step not set")
		}
		return app.TargetSpec{Step: goalStep, Container: parts[0], Path: parts[1], Kind: parts[2]}, nil
	default:
		return app.TargetSpec{}, fmt.Errorf("expected step:container:target-path:kind")
	}
}
