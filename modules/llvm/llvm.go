// Package llvm provides the IR-module container, holding named text
// units, and the compound pass pipe running a declared sequence of
// inner passes over every unit. Inner passes are opaque text
// transforms; the pipe's contract is identity at unit granularity.
package llvm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pwnslinger/revng/internal/container"
	"github.com/pwnslinger/revng/internal/contract"
	"github.com/pwnslinger/revng/internal/core"
	"github.com/pwnslinger/revng/internal/kind"
	"github.com/pwnslinger/revng/internal/pipe"
	"github.com/pwnslinger/revng/internal/registry"
	"github.com/pwnslinger/revng/internal/target"
)

// Registered names.
const (
	TypeName = "llvm"
	KindName = "llvm-ir"
	PipeName = "LLVMPipe"
)

// unitHeader separates units in the serialized form.
const unitHeader = "; --- "

// UnknownPassError reports a pass name the pipe does not provide.
// Descriptions referencing one fail at load, before any execution.
type UnknownPassError struct {
	Pass string
}

func (e *UnknownPassError) Error() string {
	return fmt.Sprintf("unknown pass %q", e.Pass)
}

// Pass is one opaque text transform over a unit's body.
type Pass func(text string) string

// passes is the inner pass registry.
var passes = map[string]Pass{
	// verify leaves the unit untouched.
	"verify": func(text string) string { return text },
	// strip-comments drops comment lines.
	"strip-comments": func(text string) string {
		return filterLines(text, func(line string) bool {
			return !strings.HasPrefix(strings.TrimSpace(line), ";")
		})
	},
	// globaldce drops lines marked unused.
	"globaldce": func(text string) string {
		return filterLines(text, func(line string) bool {
			return !strings.HasSuffix(strings.TrimSpace(line), "; unused")
		})
	},
}

func filterLines(text string, keep func(string) bool) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if keep(line) {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// Container stores named IR units.
type Container struct {
	kind  *kind.Kind
	units map[string]string
}

// NewContainer creates an empty IR container.
func NewContainer(k *kind.Kind) *Container {
	return &Container{kind: k, units: make(map[string]string)}
}

// SetUnit stores one unit's text under its name.
func (c *Container) SetUnit(name, text string) {
	c.units[name] = text
}

// Unit returns one unit's text.
func (c *Container) Unit(name string) (string, bool) {
	text, ok := c.units[name]
	return text, ok
}

// names returns the unit names sorted.
func (c *Container) names() []string {
	out := make([]string, 0, len(c.units))
	for name := range c.units {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// TypeName implements container.Container.
func (c *Container) TypeName() string { return TypeName }

// Accepts implements container.Container.
func (c *Container) Accepts(k *kind.Kind) bool { return k.Matches(c.kind) }

// Enumerate implements container.Container.
func (c *Container) Enumerate() *target.Set {
	set := target.NewSet()
	for name := range c.units {
		set.Insert(target.MustNew(c.kind, name))
	}
	return set
}

// Has implements container.Container.
func (c *Container) Has(t target.Target) bool {
	if !t.Kind().Matches(c.kind) {
		return false
	}
	_, ok := c.units[t.Path()[0]]
	return ok
}

// Remove implements container.Container.
func (c *Container) Remove(ts *target.Set) {
	for _, t := range ts.Slice() {
		delete(c.units, t.Path()[0])
	}
}

// Extract implements container.Container.
func (c *Container) Extract(ts *target.Set) container.Container {
	out := NewContainer(c.kind)
	for _, t := range ts.Slice() {
		if text, ok := c.units[t.Path()[0]]; ok {
			out.SetUnit(t.Path()[0], text)
		}
	}
	return out
}

// MergeBack implements container.Container.
func (c *Container) MergeBack(other container.Container) error {
	src, ok := other.(*Container)
	if !ok {
		return &container.TypeMismatchError{
			Container: TypeName,
			Type:      other.TypeName(),
			Detail:    "cannot merge into an IR container",
		}
	}
	for name, text := range src.units {
		c.units[name] = text
	}
	return nil
}

// Clone implements container.Container.
func (c *Container) Clone() container.Container {
	out := NewContainer(c.kind)
	for name, text := range c.units {
		out.units[name] = text
	}
	return out
}

// Serialize implements container.Container: units in sorted order,
// each introduced by a header line carrying its name.
func (c *Container) Serialize(w io.Writer) error {
	for _, name := range c.names() {
		if _, err := fmt.Fprintf(w, "%s%s\n", unitHeader, name); err != nil {
			return err
		}
		text := c.units[name]
		if text != "" {
			if _, err := fmt.Fprintln(w, text); err != nil {
				return err
			}
		}
	}
	return nil
}

// Deserialize implements container.Container, replacing the contents.
func (c *Container) Deserialize(r io.Reader) error {
	c.units = make(map[string]string)
	scanner := bufio.NewScanner(r)
	var name string
	var body []string
	flush := func() {
		if name != "" {
			c.units[name] = strings.Join(body, "\n")
		}
	}
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, unitHeader) {
			flush()
			name = strings.TrimPrefix(line, unitHeader)
			body = nil
			continue
		}
		if name != "" {
			body = append(body, line)
		}
	}
	flush()
	return scanner.Err()
}

// PassPipe runs its inner passes, in declared order, over every unit.
type PassPipe struct {
	names    []string
	fns      []Pass
	contract *contract.Contract
}

// NewPassPipe resolves the pass names, rejecting unknown ones.
func NewPassPipe(k *kind.Kind, names []string) (*PassPipe, error) {
	p := &PassPipe{
		names: names,
		contract: contract.MustNew(contract.Rule{
			Source:    &contract.Pattern{Slot: 0, Kind: k, Path: []string{target.Wildcard}},
			Dest:      contract.Output{Slot: 0, Kind: k, Path: contract.Identity()},
			Preserved: true,
		}),
	}
	for _, name := range names {
		fn, ok := passes[name]
		if !ok {
			return nil, &UnknownPassError{Pass: name}
		}
		p.fns = append(p.fns, fn)
	}
	return p, nil
}

// Name implements pipe.Pipe.
func (p *PassPipe) Name() string { return PipeName }

// Contract implements pipe.Pipe.
func (p *PassPipe) Contract() *contract.Contract { return p.contract }

// Execute implements pipe.Pipe.
func (p *PassPipe) Execute(ctx context.Context, pctx *core.Context, args []container.Container) error {
	c, ok := args[0].(*Container)
	if !ok {
		return fmt.Errorf("pass pipe operates on %T, not an IR container", args[0])
	}
	for _, name := range c.names() {
		text := c.units[name]
		for _, fn := range p.fns {
			text = fn(text)
		}
		c.units[name] = text
	}
	return nil
}

// Module registers the IR kind, container, and pass pipe.
type Module struct{}

// Register implements registry.Module.
func (Module) Register(r *registry.Registry) {
	irKind := r.RegisterKind(KindName, r.MustRank("root"), nil)

	r.RegisterContainer(TypeName, func(reg *registry.Registry) (container.Container, error) {
		return NewContainer(irKind), nil
	})

	r.RegisterPipe(PipeName, func(reg *registry.Registry, passNames []string) (pipe.Pipe, error) {
		return NewPassPipe(irKind, passNames)
	})
}
