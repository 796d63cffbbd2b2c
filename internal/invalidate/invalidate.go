// Package invalidate computes and applies transitive invalidation:
// when a global changes or a caller discards targets explicitly,
// every target transitively derived from the stale set leaves its
// container, in memory and in the persistent store.
package invalidate

import (
	"context"

	"github.com/pwnslinger/revng/internal/core"
	"github.com/pwnslinger/revng/internal/ctxlog"
	"github.com/pwnslinger/revng/internal/runner"
	"github.com/pwnslinger/revng/internal/store"
	"github.com/pwnslinger/revng/internal/target"
)

// Invalidator walks the pipeline forward, chasing stale targets
// through pipe contracts.
type Invalidator struct {
	run   *runner.Runner
	store *store.Store
}

// New creates an invalidator over the runner's retained states. The
// store may be nil for in-memory pipelines.
func New(run *runner.Runner, st *store.Store) *Invalidator {
	return &Invalidator{run: run, store: st}
}

// Attach registers the invalidator on the context so every global
// mutation triggers invalidation before the next run.
func (inv *Invalidator) Attach(ctx context.Context, pctx *core.Context) {
	pctx.OnChange(func(name string) {
		if err := inv.InvalidateGlobal(ctx, name); err != nil {
			ctxlog.FromContext(ctx).Error("Invalidation after global mutation failed.",
				"global", name, "error", err)
		}
	})
}

// Invalidate discards the given targets in (stepName, containerName)
// and everything transitively derived from them.
func (inv *Invalidator) Invalidate(ctx context.Context, stepName, containerName string, ts []target.Target) error {
	startIdx, err := inv.run.Pipeline().StepIndex(stepName)
	if err != nil {
		return err
	}
	stale := inv.closure(startIdx, func(stepIdx int) target.ByContainer {
		seed := make(target.ByContainer)
		if stepIdx == startIdx {
			seed.AddAll(containerName, ts)
		}
		return seed
	})
	return inv.apply(ctx, stale)
}

// InvalidateGlobal discards the outputs of every pipe reading the
// named global, and everything transitively derived from them.
func (inv *Invalidator) InvalidateGlobal(ctx context.Context, name string) error {
	steps := inv.run.Pipeline().Steps()
	flags := inv.run.Flags()
	stale := inv.closure(0, func(stepIdx int) target.ByContainer {
		seed := make(target.ByContainer)
		for _, b := range steps[stepIdx].Pipes() {
			if !b.ReadsGlobal(name) || !b.Enabled(flags) {
				continue
			}
			for _, out := range b.ContractOutputs() {
				seed.Add(out.Container, target.All(out.Kind))
			}
		}
		return seed
	})
	return inv.apply(ctx, stale)
}

// closure runs the forward sweep from startIdx. seedFor contributes
// each step's initial stale patterns; pipes then extend the set in
// declared order, and container name equality carries it into the
// next step.
func (inv *Invalidator) closure(startIdx int, seedFor func(stepIdx int) target.ByContainer) []target.ByContainer {
	steps := inv.run.Pipeline().Steps()
	flags := inv.run.Flags()
	stale := make([]target.ByContainer, len(steps))

	carried := make(target.ByContainer)
	for s := startIdx; s < len(steps); s++ {
		cur := carried.Clone()
		cur.Union(seedFor(s))

		for _, b := range steps[s].Pipes() {
			bound := b.Contract(flags)
			staleIn := cur.Restrict(bound.Reads())
			if staleIn.Empty() {
				continue
			}
			cur.Union(bound.DeducePostcondition(staleIn))
		}

		stale[s] = cur
		carried = cur
	}
	return stale
}

// apply removes the stale targets from the retained container sets
// and rewrites persisted state.
func (inv *Invalidator) apply(ctx context.Context, stale []target.ByContainer) error {
	logger := ctxlog.FromContext(ctx)
	steps := inv.run.Pipeline().Steps()

	for s, byContainer := range stale {
		if byContainer == nil || byContainer.Empty() {
			continue
		}
		st := steps[s]
		state, ok := inv.run.State(st.Name())
		if !ok {
			continue
		}
		removedAny := false
		for _, name := range byContainer.Containers() {
			c, ok := state.Get(name)
			if !ok {
				continue
			}
			doomed := c.Enumerate().ExpandAll(byContainer[name])
			if doomed.Empty() {
				continue
			}
			logger.Debug("Invalidating targets.",
				"step", st.Name(), "container", name, "count", doomed.Len())
			c.Remove(doomed)
			removedAny = true
		}
		if removedAny && inv.store != nil {
			if err := inv.store.SaveStep(st.Name(), state); err != nil {
				return err
			}
		}
	}
	return nil
}
