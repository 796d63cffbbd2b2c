// Package model provides the recovered program model as the
// `model.yml` global, plus the pipe promoting model information into
// targets. Mutating the model is the principal invalidation trigger.
package model

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/pwnslinger/revng/internal/container"
	"github.com/pwnslinger/revng/internal/contract"
	"github.com/pwnslinger/revng/internal/core"
	"github.com/pwnslinger/revng/internal/kind"
	"github.com/pwnslinger/revng/internal/pipe"
	"github.com/pwnslinger/revng/internal/registry"
	"github.com/pwnslinger/revng/modules/text"
)

// GlobalName is the model's registered global name; it doubles as its
// file name in the artifact store.
const GlobalName = "model.yml"

// Binary is the program model: what the toolchain has recovered about
// the analyzed executable.
type Binary struct {
	Architecture string     `yaml:"architecture,omitempty"`
	EntryPoint   uint64     `yaml:"entryPoint,omitempty"`
	Functions    []Function `yaml:"functions,omitempty"`
}

// Function is one recovered function.
type Function struct {
	Name  string `yaml:"name"`
	Entry uint64 `yaml:"entry,omitempty"`
}

// Global wraps the model as a savable context global.
type Global struct {
	binary Binary
}

// Binary returns the wrapped model.
func (g *Global) Binary() *Binary { return &g.binary }

// Serialize implements core.Global.
func (g *Global) Serialize(w io.Writer) error {
	data, err := yaml.Marshal(&g.binary)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Deserialize implements core.Global.
func (g *Global) Deserialize(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	var fresh Binary
	if err := yaml.Unmarshal(data, &fresh); err != nil {
		return err
	}
	g.binary = fresh
	return nil
}

// Clone implements core.Global.
func (g *Global) Clone() core.Global {
	out := &Global{binary: g.binary}
	out.binary.Functions = append([]Function(nil), g.binary.Functions...)
	return out
}

// Clear implements core.Global.
func (g *Global) Clear() {
	g.binary = Binary{}
}

// FromContext returns the model for reading.
func FromContext(pctx *core.Context) (*Binary, error) {
	g, err := core.Fetch[*Global](pctx, GlobalName)
	if err != nil {
		return nil, err
	}
	return g.Binary(), nil
}

// Update mutates the model through the context, so registered
// listeners (the invalidator) observe the change.
func Update(pctx *core.Context, fn func(*Binary)) error {
	return pctx.Update(GlobalName, func(g core.Global) error {
		typed, ok := g.(*Global)
		if !ok {
			return fmt.Errorf("global %q has type %T, not the program model", GlobalName, g)
		}
		fn(typed.Binary())
		return nil
	})
}

// FunctionsPipe emits one string target per model function into its
// container. Its output set is data-dependent, so the contract
// predicts the wildcard.
type FunctionsPipe struct {
	contract *contract.Contract
}

// NewFunctions builds the pipe over the given string kind.
func NewFunctions(stringKind *kind.Kind) *FunctionsPipe {
	return &FunctionsPipe{
		contract: contract.MustNew(contract.Rule{
			Dest: contract.Output{Slot: 0, Kind: stringKind, Path: contract.AllOutputs()},
		}),
	}
}

// Name implements pipe.Pipe.
func (p *FunctionsPipe) Name() string { return "ModelFunctions" }

// Contract implements pipe.Pipe.
func (p *FunctionsPipe) Contract() *contract.Contract { return p.contract }

// ReadsGlobals implements pipe.GlobalReader.
func (p *FunctionsPipe) ReadsGlobals() []string { return []string{GlobalName} }

// Execute implements pipe.Pipe.
func (p *FunctionsPipe) Execute(ctx context.Context, pctx *core.Context, args []container.Container) error {
	dst, ok := args[0].(*text.Container)
	if !ok {
		return fmt.Errorf("model functions destination is %T, not a string container", args[0])
	}
	binary, err := FromContext(pctx)
	if err != nil {
		return err
	}
	for _, fn := range binary.Functions {
		dst.Add(fn.Name)
	}
	return nil
}

// Module registers the model global and the functions pipe.
type Module struct{}

// Register implements registry.Module.
func (Module) Register(r *registry.Registry) {
	r.RegisterGlobal(GlobalName, func() core.Global { return &Global{} })

	r.RegisterPipe("ModelFunctions", func(reg *registry.Registry, passes []string) (pipe.Pipe, error) {
		if len(passes) > 0 {
			return nil, fmt.Errorf("pipe ModelFunctions does not take passes")
		}
		stringKind, err := reg.Kind(text.KindName)
		if err != nil {
			return nil, err
		}
		return NewFunctions(stringKind), nil
	})
}
