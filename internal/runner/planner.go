package runner

import (
	"context"

	"github.com/pwnslinger/revng/internal/ctxlog"
	"github.com/pwnslinger/revng/internal/target"
)

// Request asks for a set of targets (wildcards allowed) in one
// container of one step.
type Request struct {
	Step      string
	Container string
	Targets   []target.Target
}

// Goal is the full set of targets a caller wants materialized.
type Goal []Request

// Plan is the result of the backward pass: per step, the targets that
// must already be present at step entry (after subtracting everything
// the step's own pipes derive).
type Plan struct {
	goalIdx int
	entry   []target.ByContainer
}

// GoalIndex returns the index of the last step the plan executes.
func (p *Plan) GoalIndex() int { return p.goalIdx }

// EntryNeed returns what must be present at the given step's entry.
func (p *Plan) EntryNeed(stepIdx int) target.ByContainer { return p.entry[stepIdx] }

// Plan runs the backward pass over the pipeline for the goal,
// returning UnsatisfiableGoal when a required target is neither
// derivable by any pipe nor covered by a bound input.
func (r *Runner) Plan(ctx context.Context, goal Goal) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)

	// Seed the per-step exit needs from the requests.
	goalIdx := 0
	exitNeed := make([]target.ByContainer, len(r.pipeline.Steps()))
	for i := range exitNeed {
		exitNeed[i] = make(target.ByContainer)
	}
	for _, req := range goal {
		idx, err := r.pipeline.StepIndex(req.Step)
		if err != nil {
			return nil, err
		}
		if !r.pipeline.HasContainer(req.Container) {
			return nil, unknownContainer(req.Container)
		}
		if idx > goalIdx {
			goalIdx = idx
		}
		exitNeed[idx].AddAll(req.Container, req.Targets)
	}

	plan := &Plan{goalIdx: goalIdx, entry: make([]target.ByContainer, goalIdx+1)}

	// Reverse sweep: rewrite each step's exit need into its entry
	// need by applying pipe contracts backward, in reverse pipe
	// order.
	carried := make(target.ByContainer)
	for s := goalIdx; s >= 0; s-- {
		st := r.pipeline.Steps()[s]
		cur := exitNeed[s].Clone()
		cur.Union(carried)

		pipes := st.Pipes()
		for i := len(pipes) - 1; i >= 0; i-- {
			bound := pipes[i].Contract(r.opts.Flags)

			// Split the current need into what this pipe derives and
			// what must come from earlier.
			covered := make(target.ByContainer)
			rest := make(target.ByContainer)
			for name, wants := range cur {
				for _, want := range wants {
					if bound.CoveredBy(name, want) {
						covered.Add(name, want)
					} else {
						rest.Add(name, want)
					}
				}
			}
			if covered.Empty() {
				continue
			}
			logger.Debug("Pipe covers requested targets.",
				"step", st.Name(), "pipe", pipes[i].Name(), "containers", covered.Containers())
			cur = rest
			cur.Union(bound.DeducePrecondition(covered))
		}

		// An input binding at this step satisfies whatever is still
		// needed in the bound container.
		for _, binding := range r.inputs {
			if binding.Step == st.Name() {
				delete(cur, binding.Container)
			}
		}

		plan.entry[s] = cur
		carried = cur
	}

	// Whatever survived to the first step's entry has no producer.
	residual := plan.entry[0]
	for _, name := range residual.Containers() {
		ts := residual[name]
		return nil, &UnsatisfiableGoalError{
			Step:      r.pipeline.Steps()[0].Name(),
			Container: name,
			Target:    ts[0],
		}
	}

	return plan, nil
}
