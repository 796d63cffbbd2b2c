// Package registry is the central glue between the names a pipeline
// description uses and the compiled Go implementations behind them.
// Ranks, kinds, container types, pipe types, and globals all register
// here by string name; loading resolves against it and fails early on
// anything unknown.
package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/pwnslinger/revng/internal/container"
	"github.com/pwnslinger/revng/internal/core"
	"github.com/pwnslinger/revng/internal/kind"
	"github.com/pwnslinger/revng/internal/pipe"
	"github.com/pwnslinger/revng/internal/rank"
)

// ContainerFactory builds a fresh, empty container of a registered
// type.
type ContainerFactory func(reg *Registry) (container.Container, error)

// PipeFactory builds a pipe of a registered type. Compound pipes
// receive their inner pass list here and must reject unknown passes,
// so a bad description fails at load time.
type PipeFactory func(reg *Registry, passes []string) (pipe.Pipe, error)

// GlobalFactory builds the initial value of a registered global.
type GlobalFactory func() core.Global

// Module is the interface built-in and dynamically loaded modules
// implement to contribute their kinds, containers, pipes, and
// globals.
type Module interface {
	Register(r *Registry)
}

// UnknownContainerError reports a container name or type no module
// registered.
type UnknownContainerError struct {
	Name string
}

func (e *UnknownContainerError) Error() string {
	return fmt.Sprintf("unknown container %q", e.Name)
}

// UnknownPipeError reports a pipe type no module registered. Unknown
// inner passes are reported by the pipe factory's own error.
type UnknownPipeError struct {
	Name string
}

func (e *UnknownPipeError) Error() string {
	return fmt.Sprintf("unknown pipe %q", e.Name)
}

// Registry holds the registered names for a single application
// instance. Registration collisions are programmer errors and panic;
// lookups of unknown names return typed errors.
type Registry struct {
	ranks      map[string]*rank.Rank
	kinds      map[string]*kind.Kind
	containers map[string]ContainerFactory
	pipes      map[string]PipeFactory
	globals    map[string]GlobalFactory
}

// New creates a registry pre-populated with the core granularity
// hierarchy: root > function > basic-block > instruction.
func New() *Registry {
	r := &Registry{
		ranks:      make(map[string]*rank.Rank),
		kinds:      make(map[string]*kind.Kind),
		containers: make(map[string]ContainerFactory),
		pipes:      make(map[string]PipeFactory),
		globals:    make(map[string]GlobalFactory),
	}
	root := r.RegisterRank("root", nil)
	function := r.RegisterRank("function", root)
	basicBlock := r.RegisterRank("basic-block", function)
	r.RegisterRank("instruction", basicBlock)
	return r
}

// RegisterRank adds a rank under the given parent. The registry is
// append-only; a duplicate name panics.
func (r *Registry) RegisterRank(name string, parent *rank.Rank) *rank.Rank {
	if _, exists := r.ranks[name]; exists {
		panic(fmt.Sprintf("rank %q already registered", name))
	}
	rk := rank.New(name, parent)
	slog.Debug("Registering rank.", "name", name, "depth", rk.Depth())
	r.ranks[name] = rk
	return rk
}

// Rank looks a rank up by name.
func (r *Registry) Rank(name string) (*rank.Rank, error) {
	rk, ok := r.ranks[name]
	if !ok {
		return nil, fmt.Errorf("unknown rank %q", name)
	}
	return rk, nil
}

// MustRank is Rank for names modules know they registered.
func (r *Registry) MustRank(name string) *rank.Rank {
	rk, err := r.Rank(name)
	if err != nil {
		panic(err)
	}
	return rk
}

// RegisterKind adds a kind at the given rank, optionally under a
// parent kind. The rank must already be registered.
func (r *Registry) RegisterKind(name string, rk *rank.Rank, parent *kind.Kind) *kind.Kind {
	if _, exists := r.kinds[name]; exists {
		panic(fmt.Sprintf("kind %q already registered", name))
	}
	if _, ok := r.ranks[rk.Name()]; !ok {
		panic(fmt.Sprintf("kind %q registered at unregistered rank %q", name, rk.Name()))
	}
	k := kind.New(name, rk, parent)
	slog.Debug("Registering kind.", "name", name, "rank", rk.Name())
	r.kinds[name] = k
	return k
}

// Kind looks a kind up by name.
func (r *Registry) Kind(name string) (*kind.Kind, error) {
	k, ok := r.kinds[name]
	if !ok {
		return nil, &kind.UnknownError{Name: name}
	}
	return k, nil
}

// MustKind is Kind for names modules know they registered.
func (r *Registry) MustKind(name string) *kind.Kind {
	k, err := r.Kind(name)
	if err != nil {
		panic(err)
	}
	return k
}

// RegisterContainer adds a container type.
func (r *Registry) RegisterContainer(typeName string, f ContainerFactory) {
	if _, exists := r.containers[typeName]; exists {
		panic(fmt.Sprintf("container type %q already registered", typeName))
	}
	slog.Debug("Registering container type.", "type", typeName)
	r.containers[typeName] = f
}

// NewContainer instantiates a registered container type.
func (r *Registry) NewContainer(typeName string) (container.Container, error) {
	f, ok := r.containers[typeName]
	if !ok {
		return nil, &UnknownContainerError{Name: typeName}
	}
	return f(r)
}

// RegisterPipe adds a pipe type.
func (r *Registry) RegisterPipe(name string, f PipeFactory) {
	if _, exists := r.pipes[name]; exists {
		panic(fmt.Sprintf("pipe type %q already registered", name))
	}
	slog.Debug("Registering pipe type.", "name", name)
	r.pipes[name] = f
}

// NewPipe instantiates a registered pipe type with its inner pass
// list.
func (r *Registry) NewPipe(name string, passes []string) (pipe.Pipe, error) {
	f, ok := r.pipes[name]
	if !ok {
		return nil, &UnknownPipeError{Name: name}
	}
	return f(r, passes)
}

// RegisterGlobal adds a named global factory.
func (r *Registry) RegisterGlobal(name string, f GlobalFactory) {
	if _, exists := r.globals[name]; exists {
		panic(fmt.Sprintf("global %q already registered", name))
	}
	slog.Debug("Registering global.", "name", name)
	r.globals[name] = f
}

// PopulateContext registers every known global's initial value on the
// context.
func (r *Registry) PopulateContext(pctx *core.Context) error {
	names := make([]string, 0, len(r.globals))
	for name := range r.globals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := pctx.Register(name, r.globals[name]()); err != nil {
			return err
		}
	}
	return nil
}
