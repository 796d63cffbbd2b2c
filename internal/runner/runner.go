package runner

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/pwnslinger/revng/internal/container"
	"github.com/pwnslinger/revng/internal/core"
	"github.com/pwnslinger/revng/internal/ctxlog"
	"github.com/pwnslinger/revng/internal/pipe"
	"github.com/pwnslinger/revng/internal/registry"
	"github.com/pwnslinger/revng/internal/step"
	"github.com/pwnslinger/revng/internal/store"
)

// Binding connects a container at a step to a file on disk.
type Binding struct {
	Step      string
	Container string
	Path      string
}

// Options tunes a runner.
type Options struct {
	// Store persists step outputs and serves cached inputs; nil runs
	// fully in memory.
	Store *store.Store
	// Flags is the active flag set gating pipes.
	Flags pipe.Flags
	// CheckContracts makes pipe contract violations fatal.
	CheckContracts bool
}

// Runner executes a pipeline towards a goal. It retains each step's
// final container set so callers can inspect results and the
// invalidator can remove stale targets.
type Runner struct {
	pctx     *core.Context
	pipeline *Pipeline
	reg      *registry.Registry
	opts     Options
	inputs   []Binding
	states   map[string]*container.Set
	runID    string
}

// New creates a runner over a built pipeline.
func New(pctx *core.Context, pipeline *Pipeline, reg *registry.Registry, opts Options) *Runner {
	if opts.Flags == nil {
		opts.Flags = pipe.NewFlags()
	}
	return &Runner{
		pctx:     pctx,
		pipeline: pipeline,
		reg:      reg,
		opts:     opts,
		states:   make(map[string]*container.Set),
		runID:    uuid.NewString(),
	}
}

// Pipeline returns the pipeline the runner executes.
func (r *Runner) Pipeline() *Pipeline { return r.pipeline }

// Flags returns the active flag set.
func (r *Runner) Flags() pipe.Flags { return r.opts.Flags }

// BindInput arranges for the file at path to be read into the named
// container when the step begins.
func (r *Runner) BindInput(stepName, containerName, path string) error {
	if _, err := r.pipeline.StepIndex(stepName); err != nil {
		return err
	}
	if !r.pipeline.HasContainer(containerName) {
		return unknownContainer(containerName)
	}
	r.inputs = append(r.inputs, Binding{Step: stepName, Container: containerName, Path: path})
	return nil
}

// State returns the retained container set of a step, if it ran.
func (r *Runner) State(stepName string) (*container.Set, bool) {
	set, ok := r.states[stepName]
	return set, ok
}

// Run plans and executes the pipeline for the goal, returning the
// goal containers restricted to the requested targets. On failure the
// partial states stay inspectable through State.
func (r *Runner) Run(ctx context.Context, goal Goal) (*container.Set, error) {
	logger := ctxlog.FromContext(ctx).With("run_id", r.runID)
	ctx = ctxlog.WithLogger(ctx, logger)

	plan, err := r.Plan(ctx, goal)
	if err != nil {
		return nil, err
	}
	logger.Debug("Plan computed.", "goal_step", r.pipeline.Steps()[plan.GoalIndex()].Name())

	var prev *container.Set
	for i := 0; i <= plan.GoalIndex(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("before step %d: %w", i, core.ErrCancelled)
		}

		st := r.pipeline.Steps()[i]
		set, err := r.buildSet(prev)
		if err != nil {
			return nil, err
		}
		if r.opts.Store != nil {
			if err := r.opts.Store.LoadStep(st.Name(), set); err != nil {
				return nil, err
			}
		}
		if err := r.applyBindings(st.Name(), set); err != nil {
			return nil, err
		}

		logger.Info("Executing step.", "step", st.Name(), "pipes", len(st.Pipes()))
		runErr := st.Run(ctx, r.pctx, set, step.Options{
			Flags:          r.opts.Flags,
			CheckContracts: r.opts.CheckContracts,
		})
		r.states[st.Name()] = set
		if runErr != nil {
			logger.Error("Step failed.", "step", st.Name(), "error", runErr)
			return nil, runErr
		}
		if r.opts.Store != nil {
			if err := r.opts.Store.SaveStep(st.Name(), set); err != nil {
				return nil, err
			}
		}
		prev = set
	}

	return r.trim(goal)
}

// LoadStates rebuilds every step's container set from the store
// without executing anything. Explicit invalidation against persisted
// state uses this.
func (r *Runner) LoadStates(ctx context.Context) error {
	if r.opts.Store == nil {
		return fmt.Errorf("no artifact store configured")
	}
	for _, st := range r.pipeline.Steps() {
		set, err := r.buildSet(nil)
		if err != nil {
			return err
		}
		if err := r.opts.Store.LoadStep(st.Name(), set); err != nil {
			return err
		}
		r.states[st.Name()] = set
	}
	return nil
}

// buildSet instantiates the schema's containers, carrying forward
// clones of the previous step's contents.
func (r *Runner) buildSet(prev *container.Set) (*container.Set, error) {
	set := container.NewSet()
	for name, typeName := range r.pipeline.Schema() {
		if prev != nil {
			if c, ok := prev.Get(name); ok {
				set.Add(name, c.Clone())
				continue
			}
		}
		c, err := r.reg.NewContainer(typeName)
		if err != nil {
			return nil, err
		}
		set.Add(name, c)
	}
	return set, nil
}

// applyBindings reads bound input files into the step's containers.
func (r *Runner) applyBindings(stepName string, set *container.Set) error {
	for _, binding := range r.inputs {
		if binding.Step != stepName {
			continue
		}
		c, ok := set.Get(binding.Container)
		if !ok {
			return unknownContainer(binding.Container)
		}
		f, err := os.Open(binding.Path)
		if err != nil {
			return fmt.Errorf("reading input for %s:%s: %w", stepName, binding.Container, err)
		}
		derr := c.Deserialize(f)
		f.Close()
		if derr != nil {
			return &store.DeserializeError{Path: binding.Path, Err: derr}
		}
	}
	return nil
}

// trim restricts the retained goal-step containers to the requested
// targets.
func (r *Runner) trim(goal Goal) (*container.Set, error) {
	result := container.NewSet()
	for _, req := range goal {
		state, ok := r.states[req.Step]
		if !ok {
			return nil, &UnknownStepError{Name: req.Step}
		}
		c, ok := state.Get(req.Container)
		if !ok {
			return nil, unknownContainer(req.Container)
		}
		wanted := c.Enumerate().ExpandAll(req.Targets)
		extracted := c.Extract(wanted)
		if existing, ok := result.Get(req.Container); ok {
			if err := existing.MergeBack(extracted); err != nil {
				return nil, err
			}
		} else {
			result.Add(req.Container, extracted)
		}
	}
	return result, nil
}

func unknownContainer(name string) error {
	return &registry.UnknownContainerError{Name: name}
}
