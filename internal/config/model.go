// Package config holds the format-agnostic representation of a
// pipeline description: the declared containers and the ordered steps
// with their pipes. The loader translates the on-disk format into
// this model; the builder resolves it against the registry.
package config

import (
	"context"
	"fmt"
	"strings"
)

// Model is the unified representation of one pipeline description.
type Model struct {
	Containers []*Container
	Steps      []*Step
}

// Container declares one named container of a registered type.
type Container struct {
	Name string
	Type string
}

// Step declares one named step and its ordered pipes.
type Step struct {
	Name  string
	Pipes []*Pipe
}

// Pipe declares one pipe invocation inside a step.
type Pipe struct {
	Type           string
	UsedContainers []string
	Passes         []string
	EnabledWhen    []string
}

// Loader is implemented by format-specific description loaders.
type Loader interface {
	Load(ctx context.Context, paths ...string) (*Model, error)
}

// Dump renders the model in a canonical, diff-friendly text form used
// by golden tests and debug logging.
func (m *Model) Dump() string {
	var b strings.Builder
	for _, c := range m.Containers {
		fmt.Fprintf(&b, "container %s type=%s\n", c.Name, c.Type)
	}
	for _, s := range m.Steps {
		fmt.Fprintf(&b, "step %s\n", s.Name)
		for _, p := range s.Pipes {
			fmt.Fprintf(&b, "  pipe %s containers=[%s]", p.Type, strings.Join(p.UsedContainers, " "))
			if len(p.Passes) > 0 {
				fmt.Fprintf(&b, " passes=[%s]", strings.Join(p.Passes, " "))
			}
			if len(p.EnabledWhen) > 0 {
				fmt.Fprintf(&b, " enabled_when=[%s]", strings.Join(p.EnabledWhen, " "))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
