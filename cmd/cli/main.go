package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pwnslinger/revng/internal/app"
	"github.com/pwnslinger/revng/internal/cli"
	"github.com/pwnslinger/revng/internal/hcl"
)

// main is the entrypoint for the pipeline runner.
func main() {
	// Minimal logger until the configured one takes over.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the application logic for testing and error
// handling.
func run(outW io.Writer, args []string) error {
	cfg, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	loader := hcl.NewLoader()
	application, err := app.NewApp(outW, cfg, loader)
	if err != nil {
		return err
	}

	return application.Run(context.Background())
}
