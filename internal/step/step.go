// Package step groups pipes that share one container set snapshot.
// Pipes run in declared order; the declared order is part of the
// contract and is never reordered.
package step

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pwnslinger/revng/internal/container"
	"github.com/pwnslinger/revng/internal/contract"
	"github.com/pwnslinger/revng/internal/core"
	"github.com/pwnslinger/revng/internal/ctxlog"
	"github.com/pwnslinger/revng/internal/pipe"
	"github.com/pwnslinger/revng/internal/target"
)

// PipeFailedError wraps the error a pipe reported; the cause passes
// through unchanged.
type PipeFailedError struct {
	Pipe string
	Err  error
}

func (e *PipeFailedError) Error() string {
	return fmt.Sprintf("pipe %q failed: %v", e.Pipe, e.Err)
}

func (e *PipeFailedError) Unwrap() error { return e.Err }

// ContractViolationError reports a pipe producing targets its own
// contract did not predict, or failing to produce predicted ones.
// Fatal when contract checking is on, a warning otherwise.
type ContractViolationError struct {
	Pipe   string
	Detail string
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("pipe %q violated its contract: %s", e.Pipe, e.Detail)
}

// Step is a named, ordered group of pipes.
type Step struct {
	name  string
	pipes []*pipe.Bound
}

// New builds a step.
func New(name string, pipes ...*pipe.Bound) *Step {
	return &Step{name: name, pipes: pipes}
}

// Name returns the step's name.
func (s *Step) Name() string { return s.name }

// Pipes returns the step's pipes in declared order.
func (s *Step) Pipes() []*pipe.Bound { return s.pipes }

// Options tunes step execution.
type Options struct {
	Flags pipe.Flags
	// CheckContracts makes a contract violation fatal instead of a
	// logged warning.
	CheckContracts bool
}

// Run executes the step's pipes in order against set. On a pipe
// error the step aborts: earlier pipes' outputs stay materialized in
// set for inspection, but the step is reported failed. Cancellation
// is checked between pipes.
func (s *Step) Run(ctx context.Context, pctx *core.Context, set *container.Set, opts Options) error {
	logger := ctxlog.FromContext(ctx).With("step", s.name)
	produced := make(map[string]*target.Set)

	for _, b := range s.pipes {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("step %q: %w", s.name, core.ErrCancelled)
		}
		if !b.Enabled(opts.Flags) {
			logger.Debug("Pipe gated out by flags, skipping.", "pipe", b.Name(), "enabled_when", b.EnabledWhen())
			continue
		}

		bound := b.Contract(opts.Flags)
		before := snapshot(set, b.Containers())
		expected := bound.DeducePostcondition(patterns(before))

		logger.Debug("Running pipe.", "pipe", b.Name(), "containers", b.Containers())
		if err := b.Execute(ctx, pctx, set); err != nil {
			return &PipeFailedError{Pipe: b.Name(), Err: err}
		}

		consumeInputs(set, bound, before)

		if err := s.checkPipe(logger, set, b.Name(), before, expected, produced, opts.CheckContracts); err != nil {
			return err
		}
	}
	return nil
}

// snapshot captures the concrete targets of the named containers.
func snapshot(set *container.Set, names []string) map[string]*target.Set {
	out := make(map[string]*target.Set, len(names))
	for _, name := range names {
		if c, ok := set.Get(name); ok {
			out[name] = c.Enumerate()
		}
	}
	return out
}

// patterns converts a snapshot into the pattern map contracts
// consume.
func patterns(snap map[string]*target.Set) target.ByContainer {
	out := make(target.ByContainer)
	for name, ts := range snap {
		out.AddAll(name, ts.Slice())
	}
	return out
}

// consumeInputs applies move semantics: inputs matched by a
// non-preserving rule leave their container once outputs exist.
func consumeInputs(set *container.Set, bound *contract.Bound, before map[string]*target.Set) {
	for _, consumed := range bound.Consumed() {
		c, ok := set.Get(consumed.Container)
		if !ok {
			continue
		}
		ts, ok := before[consumed.Container]
		if !ok {
			continue
		}
		c.Remove(ts.ExpandAll(consumed.Targets))
	}
}

// checkPipe verifies the pipe produced what its contract predicted
// and warns when a pipe overwrites a target an earlier pipe of the
// same step produced.
func (s *Step) checkPipe(
	logger *slog.Logger,
	set *container.Set,
	pipeName string,
	before map[string]*target.Set,
	expected target.ByContainer,
	producedSoFar map[string]*target.Set,
	fatal bool,
) error {
	for _, name := range expected.Containers() {
		c, ok := set.Get(name)
		if !ok {
			continue
		}
		after := c.Enumerate()

		newlyPresent := after.Clone()
		if prev, ok := before[name]; ok {
			newlyPresent.Difference(prev)
		}

		// Everything the pipe emitted must have been predicted.
		for _, t := range newlyPresent.Slice() {
			if !matchesAny(t, expected[name]) {
				violation := &ContractViolationError{
					Pipe:   pipeName,
					Detail: fmt.Sprintf("produced unpredicted target %s in container %q", t, name),
				}
				if fatal {
					return violation
				}
				logger.Warn("Contract violation downgraded to warning.", "error", violation.Error())
			}
		}

		// Concretely predicted targets must exist.
		for _, want := range expected[name] {
			if want.Concrete() && !after.Contains(want) {
				violation := &ContractViolationError{
					Pipe:   pipeName,
					Detail: fmt.Sprintf("did not produce predicted target %s in container %q", want, name),
				}
				if fatal {
					return violation
				}
				logger.Warn("Contract violation downgraded to warning.", "error", violation.Error())
			}
		}

		// Later-wins overwrite of an earlier pipe's concrete output.
		if prior, ok := producedSoFar[name]; ok {
			for _, want := range expected[name] {
				if want.Concrete() && prior.Contains(want) {
					logger.Warn("Target produced twice within a step, later pipe wins.",
						"container", name, "target", want.String(), "pipe", pipeName)
				}
			}
		}
		if _, ok := producedSoFar[name]; !ok {
			producedSoFar[name] = target.NewSet()
		}
		producedSoFar[name].Union(newlyPresent)
		for _, want := range expected[name] {
			if want.Concrete() && after.Contains(want) {
				producedSoFar[name].Insert(want)
			}
		}
	}
	return nil
}

// matchesAny reports whether t matches one of the patterns.
func matchesAny(t target.Target, patterns []target.Target) bool {
	for _, p := range patterns {
		if t.MatchesPattern(p) {
			return true
		}
	}
	return false
}
