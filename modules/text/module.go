package text

import (
	"context"
	"fmt"

	"github.com/pwnslinger/revng/internal/container"
	"github.com/pwnslinger/revng/internal/contract"
	"github.com/pwnslinger/revng/internal/core"
	"github.com/pwnslinger/revng/internal/kind"
	"github.com/pwnslinger/revng/internal/pipe"
	"github.com/pwnslinger/revng/internal/registry"
	"github.com/pwnslinger/revng/internal/target"
)

// KindName is the registered kind of string artifacts.
const KindName = "string"

// CopyPipe copies every string artifact from its first container to
// its second, leaving the source intact.
type CopyPipe struct {
	contract *contract.Contract
}

// NewCopy builds the copy pipe over the given string kind.
func NewCopy(stringKind *kind.Kind) *CopyPipe {
	return &CopyPipe{
		contract: contract.MustNew(contract.Rule{
			Source:    &contract.Pattern{Slot: 0, Kind: stringKind, Path: []string{target.Wildcard}},
			Dest:      contract.Output{Slot: 1, Kind: stringKind, Path: contract.Identity()},
			Preserved: true,
		}),
	}
}

// Name implements pipe.Pipe.
func (p *CopyPipe) Name() string { return "Copy" }

// Contract implements pipe.Pipe.
func (p *CopyPipe) Contract() *contract.Contract { return p.contract }

// Execute implements pipe.Pipe.
func (p *CopyPipe) Execute(ctx context.Context, pctx *core.Context, args []container.Container) error {
	src, ok := args[0].(*Container)
	if !ok {
		return fmt.Errorf("copy source is %T, not a string container", args[0])
	}
	dst, ok := args[1].(*Container)
	if !ok {
		return fmt.Errorf("copy destination is %T, not a string container", args[1])
	}
	for _, v := range src.Strings() {
		dst.Add(v)
	}
	return nil
}

// Module registers the string kind, the strings container, and the
// copy pipe.
type Module struct{}

// Register implements registry.Module.
func (Module) Register(r *registry.Registry) {
	stringKind := r.RegisterKind(KindName, r.MustRank("root"), nil)

	r.RegisterContainer(TypeName, func(reg *registry.Registry) (container.Container, error) {
		return NewContainer(stringKind), nil
	})

	r.RegisterPipe("Copy", func(reg *registry.Registry, passes []string) (pipe.Pipe, error) {
		if len(passes) > 0 {
			return nil, fmt.Errorf("pipe Copy does not take passes")
		}
		return NewCopy(stringKind), nil
	})
}
