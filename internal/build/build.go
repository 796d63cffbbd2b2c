// Package build resolves a loaded description against the registry,
// turning container and pipe names into runtime instances. Every
// unknown name and every inconsistent contract surfaces here, before
// anything executes.
package build

import (
	"context"
	"fmt"

	"github.com/pwnslinger/revng/internal/config"
	"github.com/pwnslinger/revng/internal/container"
	"github.com/pwnslinger/revng/internal/ctxlog"
	"github.com/pwnslinger/revng/internal/pipe"
	"github.com/pwnslinger/revng/internal/registry"
	"github.com/pwnslinger/revng/internal/runner"
	"github.com/pwnslinger/revng/internal/step"
)

// Build validates the model and constructs the runtime pipeline.
func Build(ctx context.Context, model *config.Model, reg *registry.Registry) (*runner.Pipeline, error) {
	logger := ctxlog.FromContext(ctx)

	schema := make(map[string]string, len(model.Containers))
	// Prototype instances, used to check that contract output kinds
	// are acceptable to the containers pipes write into.
	prototypes := make(map[string]container.Container, len(model.Containers))
	for _, c := range model.Containers {
		proto, err := reg.NewContainer(c.Type)
		if err != nil {
			return nil, fmt.Errorf("container %q: %w", c.Name, err)
		}
		schema[c.Name] = c.Type
		prototypes[c.Name] = proto
	}

	var steps []*step.Step
	for _, s := range model.Steps {
		var bounds []*pipe.Bound
		for _, p := range s.Pipes {
			for _, name := range p.UsedContainers {
				if _, ok := schema[name]; !ok {
					return nil, fmt.Errorf("step %q, pipe %q: %w",
						s.Name, p.Type, &registry.UnknownContainerError{Name: name})
				}
			}

			instance, err := reg.NewPipe(p.Type, p.Passes)
			if err != nil {
				return nil, fmt.Errorf("step %q: %w", s.Name, err)
			}
			bound, err := pipe.Bind(instance, p.UsedContainers, p.EnabledWhen)
			if err != nil {
				return nil, fmt.Errorf("step %q: %w", s.Name, err)
			}
			if err := checkOutputKinds(bound, prototypes); err != nil {
				return nil, fmt.Errorf("step %q, pipe %q: %w", s.Name, p.Type, err)
			}
			bounds = append(bounds, bound)
		}
		steps = append(steps, step.New(s.Name, bounds...))
	}

	logger.Debug("Pipeline built.", "steps", len(steps), "containers", len(schema))
	return runner.NewPipeline(schema, steps...), nil
}

// checkOutputKinds rejects a pipe whose contract predicts kinds the
// destination container type does not accept.
func checkOutputKinds(bound *pipe.Bound, prototypes map[string]container.Container) error {
	for _, out := range bound.ContractOutputs() {
		proto, ok := prototypes[out.Container]
		if !ok {
			continue
		}
		if !proto.Accepts(out.Kind) {
			return &container.TypeMismatchError{
				Container: out.Container,
				Type:      proto.TypeName(),
				Detail:    fmt.Sprintf("does not accept predicted output kind %q", out.Kind.Name()),
			}
		}
	}
	return nil
}
