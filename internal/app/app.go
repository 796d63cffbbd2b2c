// Package app wires the pieces into a runnable application: logger,
// registry, description loading, pipeline building, persistence,
// runner, and invalidator.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/pwnslinger/revng/internal/build"
	"github.com/pwnslinger/revng/internal/config"
	"github.com/pwnslinger/revng/internal/core"
	"github.com/pwnslinger/revng/internal/ctxlog"
	"github.com/pwnslinger/revng/internal/invalidate"
	"github.com/pwnslinger/revng/internal/pipe"
	"github.com/pwnslinger/revng/internal/registry"
	"github.com/pwnslinger/revng/internal/runner"
	"github.com/pwnslinger/revng/internal/store"
)

// Binding connects a container at a step to a file on disk.
type Binding struct {
	Step      string
	Container string
	Path      string
}

// TargetSpec is a goal or invalidation target in textual form.
type TargetSpec struct {
	Step      string
	Container string
	Path      string
	Kind      string
}

// Config holds everything an App instance needs to run.
type Config struct {
	PipelinePath string
	Inputs       []Binding
	Outputs      []Binding
	GoalStep     string
	Targets      []TargetSpec
	Libraries    []string
	Flags        []string
	StoreDir     string
	Invalidate   bool
	Debug        bool
	LogFormat    string
	LogLevel     string
}

// App encapsulates the application's dependencies and lifecycle.
type App struct {
	outW        io.Writer
	logger      *slog.Logger
	config      *Config
	registry    *registry.Registry
	pctx        *core.Context
	store       *store.Store
	runner      *runner.Runner
	invalidator *invalidate.Invalidator
}

// NewApp builds a fully initialized application: the description is
// loaded and resolved, so every unknown name fails here, before
// anything executes.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("Modules registered.", "count", len(modules))

	if err := loadPlugins(cfg.Libraries, reg); err != nil {
		return nil, err
	}

	model, err := loader.Load(ctx, cfg.PipelinePath)
	if err != nil {
		return nil, fmt.Errorf("loading pipeline description: %w", err)
	}
	pipeline, err := build.Build(ctx, model, reg)
	if err != nil {
		return nil, err
	}

	pctx := core.NewContext()
	if err := reg.PopulateContext(pctx); err != nil {
		return nil, err
	}

	var st *store.Store
	if cfg.StoreDir != "" {
		st, err = store.Open(cfg.StoreDir)
		if err != nil {
			return nil, err
		}
		if err := st.LoadGlobals(pctx); err != nil {
			return nil, err
		}
	}

	run := runner.New(pctx, pipeline, reg, runner.Options{
		Store:          st,
		Flags:          pipe.NewFlags(cfg.Flags...),
		CheckContracts: cfg.Debug,
	})
	for _, binding := range cfg.Inputs {
		if err := run.BindInput(binding.Step, binding.Container, binding.Path); err != nil {
			return nil, err
		}
	}

	inv := invalidate.New(run, st)
	inv.Attach(ctx, pctx)

	return &App{
		outW:        outW,
		logger:      logger,
		config:      cfg,
		registry:    reg,
		pctx:        pctx,
		store:       st,
		runner:      run,
		invalidator: inv,
	}, nil
}

// Registry returns the application's registry, primarily for tests.
func (a *App) Registry() *registry.Registry { return a.registry }

// Context returns the pipeline context owning the globals.
func (a *App) Context() *core.Context { return a.pctx }

// Runner returns the application's runner, primarily for tests.
func (a *App) Runner() *runner.Runner { return a.runner }

// newLogger builds the application logger writing to w.
func newLogger(level, format string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
