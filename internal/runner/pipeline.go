// Package runner plans and executes a pipeline: the backward pass
// derives, per step, the targets required at entry for a requested
// goal; the forward pass executes steps in declared order, carrying
// container contents between them.
package runner

import (
	"fmt"

	"github.com/pwnslinger/revng/internal/step"
	"github.com/pwnslinger/revng/internal/target"
)

// UnknownStepError reports a goal or binding referencing a step the
// description never declared.
type UnknownStepError struct {
	Name string
}

func (e *UnknownStepError) Error() string {
	return fmt.Sprintf("unknown step %q", e.Name)
}

// UnsatisfiableGoalError reports a target the planner could not
// derive from any pipe or provided input.
type UnsatisfiableGoalError struct {
	Step      string
	Container string
	Target    target.Target
}

func (e *UnsatisfiableGoalError) Error() string {
	return fmt.Sprintf("unsatisfiable goal: no pipe or input provides %s in %s:%s",
		e.Target, e.Step, e.Container)
}

// Pipeline is the runtime form of a description: the globally ordered
// steps and the container schema every step's set instantiates.
type Pipeline struct {
	steps  []*step.Step
	schema map[string]string
}

// NewPipeline builds a pipeline from the container schema (name to
// registered type) and ordered steps.
func NewPipeline(schema map[string]string, steps ...*step.Step) *Pipeline {
	s := make(map[string]string, len(schema))
	for name, typ := range schema {
		s[name] = typ
	}
	return &Pipeline{steps: steps, schema: s}
}

// Steps returns the steps in declared order.
func (p *Pipeline) Steps() []*step.Step { return p.steps }

// Schema returns the container name to type mapping.
func (p *Pipeline) Schema() map[string]string { return p.schema }

// HasContainer reports whether the schema declares the name.
func (p *Pipeline) HasContainer(name string) bool {
	_, ok := p.schema[name]
	return ok
}

// StepIndex resolves a step name to its position.
func (p *Pipeline) StepIndex(name string) (int, error) {
	for i, s := range p.steps {
		if s.Name() == name {
			return i, nil
		}
	}
	return 0, &UnknownStepError{Name: name}
}
