package app

import (
	"context"
	"fmt"
	"os"

	"github.com/pwnslinger/revng/internal/ctxlog"
	"github.com/pwnslinger/revng/internal/runner"
	"github.com/pwnslinger/revng/internal/store"
	"github.com/pwnslinger/revng/internal/target"
)

// Run executes the configured operation: a goal run, or an explicit
// invalidation of the persistent store.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	if a.config.Invalidate {
		return a.runInvalidation(ctx)
	}
	return a.runGoal(ctx)
}

// runGoal plans and executes the pipeline towards the configured
// targets, then writes the output bindings and persists the globals.
func (a *App) runGoal(ctx context.Context) error {
	goal, err := a.parseGoal()
	if err != nil {
		return err
	}

	result, err := a.runner.Run(ctx, goal)
	if err != nil {
		return err
	}

	for _, name := range result.Names() {
		c, _ := result.Get(name)
		for _, t := range c.Enumerate().Slice() {
			fmt.Fprintf(a.outW, "%s:%s\n", name, t)
		}
	}

	for _, binding := range a.config.Outputs {
		if err := a.writeOutput(binding); err != nil {
			return err
		}
	}

	if a.store != nil {
		if err := a.store.SaveGlobals(a.pctx); err != nil {
			return err
		}
	}

	a.logger.Info("Run finished.")
	return nil
}

// runInvalidation applies the configured targets as an explicit
// invalidation against the persisted state.
func (a *App) runInvalidation(ctx context.Context) error {
	if err := a.runner.LoadStates(ctx); err != nil {
		return err
	}
	goal, err := a.parseGoal()
	if err != nil {
		return err
	}
	for _, req := range goal {
		if err := a.invalidator.Invalidate(ctx, req.Step, req.Container, req.Targets); err != nil {
			return err
		}
	}
	a.logger.Info("Invalidation finished.", "requests", len(goal))
	return nil
}

// parseGoal resolves the textual target specs against the registry
// and pipeline.
func (a *App) parseGoal() (runner.Goal, error) {
	var goal runner.Goal
	for _, spec := range a.config.Targets {
		k, err := a.registry.Kind(spec.Kind)
		if err != nil {
			return nil, err
		}
		t, err := target.New(k, target.ParsePath(spec.Path)...)
		if err != nil {
			return nil, err
		}
		goal = append(goal, runner.Request{
			Step:      spec.Step,
			Container: spec.Container,
			Targets:   []target.Target{t},
		})
	}
	return goal, nil
}

// writeOutput serializes one container of a step's retained state to
// the bound path.
func (a *App) writeOutput(binding Binding) error {
	state, ok := a.runner.State(binding.Step)
	if !ok {
		return &runner.UnknownStepError{Name: binding.Step}
	}
	c, ok := state.Get(binding.Container)
	if !ok {
		return fmt.Errorf("output binding: container %q not in step %q", binding.Container, binding.Step)
	}
	f, err := os.Create(binding.Path)
	if err != nil {
		return fmt.Errorf("writing output for %s:%s: %w", binding.Step, binding.Container, err)
	}
	serr := c.Serialize(f)
	cerr := f.Close()
	if serr != nil {
		return &store.SerializeError{Path: binding.Path, Err: serr}
	}
	return cerr
}
