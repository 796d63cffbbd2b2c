// Package pipe defines the opaque unit of work: a named operation
// with a contract, executed against the positional slice of
// containers its step binds it to.
package pipe

import (
	"context"
	"fmt"

	"github.com/pwnslinger/revng/internal/container"
	"github.com/pwnslinger/revng/internal/contract"
	"github.com/pwnslinger/revng/internal/core"
)

// Pipe is an executable operation. Execute receives the containers
// named by the pipe's used-container list, in declared order, and
// mutates them in place. Implementations must honor their own
// contract: after execution the containers hold exactly what
// DeducePostcondition predicts for the initial inputs.
type Pipe interface {
	Name() string
	Contract() *contract.Contract
	Execute(ctx context.Context, pctx *core.Context, args []container.Container) error
}

// GlobalReader is the optional capability a pipe implements to
// declare which globals it reads. Mutating any of them invalidates
// the pipe's outputs.
type GlobalReader interface {
	ReadsGlobals() []string
}

// Flags is the runtime's active flag set, gating pipes via their
// enabled-when lists.
type Flags map[string]struct{}

// NewFlags builds a flag set from names.
func NewFlags(names ...string) Flags {
	f := make(Flags, len(names))
	for _, name := range names {
		f[name] = struct{}{}
	}
	return f
}

// Has reports whether the flag is active.
func (f Flags) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// Bound is a pipe bound into a step: the pipe itself, the ordered
// container names it operates on, and the flags that must all be
// active for it to run.
type Bound struct {
	pipe        Pipe
	containers  []string
	enabledWhen []string
	contract    *contract.Bound
}

// Bind resolves the pipe's contract against the given container
// names.
func Bind(p Pipe, containers []string, enabledWhen []string) (*Bound, error) {
	bound, err := p.Contract().Bind(containers)
	if err != nil {
		return nil, fmt.Errorf("pipe %q: %w", p.Name(), err)
	}
	return &Bound{
		pipe:        p,
		containers:  containers,
		enabledWhen: enabledWhen,
		contract:    bound,
	}, nil
}

// Name returns the underlying pipe's name.
func (b *Bound) Name() string { return b.pipe.Name() }

// Pipe returns the underlying pipe.
func (b *Bound) Pipe() Pipe { return b.pipe }

// Containers returns the bound container names in declared order.
func (b *Bound) Containers() []string { return b.containers }

// EnabledWhen returns the gating flag names.
func (b *Bound) EnabledWhen() []string { return b.enabledWhen }

// Enabled reports whether every gating flag is active. A pipe gated
// out plans as an empty contract and is skipped at execution.
func (b *Bound) Enabled(flags Flags) bool {
	for _, name := range b.enabledWhen {
		if !flags.Has(name) {
			return false
		}
	}
	return true
}

// Contract returns the bound contract, or the empty contract when the
// pipe is gated out by the given flags.
func (b *Bound) Contract(flags Flags) *contract.Bound {
	if !b.Enabled(flags) {
		return contract.EmptyBound()
	}
	return b.contract
}

// ContractOutputs lists the container/kind pairs the pipe's contract
// can emit, independent of flag gating. The builder checks these
// against the destination container types.
func (b *Bound) ContractOutputs() []contract.OutputBinding {
	return b.contract.Outputs()
}

// ReadsGlobal reports whether the underlying pipe declares reading
// the named global.
func (b *Bound) ReadsGlobal(name string) bool {
	gr, ok := b.pipe.(GlobalReader)
	if !ok {
		return false
	}
	for _, g := range gr.ReadsGlobals() {
		if g == name {
			return true
		}
	}
	return false
}

// Execute runs the pipe against its slice of the step's container
// set.
func (b *Bound) Execute(ctx context.Context, pctx *core.Context, set *container.Set) error {
	args, err := set.Args(b.containers)
	if err != nil {
		return fmt.Errorf("pipe %q: %w", b.pipe.Name(), err)
	}
	return b.pipe.Execute(ctx, pctx, args)
}
