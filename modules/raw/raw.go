// Package raw provides single-artifact byte containers for whole
// binaries and their derived forms (object, translated), plus the
// translate pipe promoting an object blob into a translated one.
package raw

import (
	"context"
	"fmt"
	"io"

	"github.com/pwnslinger/revng/internal/container"
	"github.com/pwnslinger/revng/internal/contract"
	"github.com/pwnslinger/revng/internal/core"
	"github.com/pwnslinger/revng/internal/kind"
	"github.com/pwnslinger/revng/internal/pipe"
	"github.com/pwnslinger/revng/internal/registry"
	"github.com/pwnslinger/revng/internal/target"
)

// Registered kind and container type names. Each container type holds
// exactly one artifact, named after its kind.
const (
	BinaryKind     = "binary"
	ObjectKind     = "object"
	TranslatedKind = "translated"
)

// Container is a typed store of one opaque blob.
type Container struct {
	typeName string
	kind     *kind.Kind
	data     []byte
	present  bool
}

// NewContainer creates an empty blob container.
func NewContainer(typeName string, k *kind.Kind) *Container {
	return &Container{typeName: typeName, kind: k}
}

// SetData stores the blob, making the container's single target
// present.
func (c *Container) SetData(data []byte) {
	c.data = append([]byte(nil), data...)
	c.present = true
}

// Data returns the blob and whether it is present.
func (c *Container) Data() ([]byte, bool) {
	return c.data, c.present
}

// Target returns the single target this container can hold.
func (c *Container) Target() target.Target {
	return target.MustNew(c.kind, c.kind.Name())
}

// TypeName implements container.Container.
func (c *Container) TypeName() string { return c.typeName }

// Accepts implements container.Container.
func (c *Container) Accepts(k *kind.Kind) bool { return k.Matches(c.kind) }

// Enumerate implements container.Container.
func (c *Container) Enumerate() *target.Set {
	if !c.present {
		return target.NewSet()
	}
	return target.NewSet(c.Target())
}

// Has implements container.Container.
func (c *Container) Has(t target.Target) bool {
	return c.present && t.Equal(c.Target())
}

// Remove implements container.Container.
func (c *Container) Remove(ts *target.Set) {
	if ts.Contains(c.Target()) {
		c.data = nil
		c.present = false
	}
}

// Extract implements container.Container.
func (c *Container) Extract(ts *target.Set) container.Container {
	out := NewContainer(c.typeName, c.kind)
	if c.present && ts.Contains(c.Target()) {
		out.SetData(c.data)
	}
	return out
}

// MergeBack implements container.Container.
func (c *Container) MergeBack(other container.Container) error {
	src, ok := other.(*Container)
	if !ok || src.kind != c.kind {
		return &container.TypeMismatchError{
			Container: c.typeName,
			Type:      other.TypeName(),
			Detail:    "cannot merge into a blob container of a different kind",
		}
	}
	if src.present {
		c.SetData(src.data)
	}
	return nil
}

// Clone implements container.Container.
func (c *Container) Clone() container.Container {
	out := NewContainer(c.typeName, c.kind)
	if c.present {
		out.SetData(c.data)
	}
	return out
}

// Serialize implements container.Container: the raw bytes.
func (c *Container) Serialize(w io.Writer) error {
	if !c.present {
		return nil
	}
	_, err := w.Write(c.data)
	return err
}

// Deserialize implements container.Container. Any readable file,
// empty included, makes the target present.
func (c *Container) Deserialize(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	c.SetData(data)
	return nil
}

// TranslatePipe promotes the object blob into the translated
// container.
type TranslatePipe struct {
	contract *contract.Contract
}

// NewTranslate builds the translate pipe.
func NewTranslate(objectKind, translatedKind *kind.Kind) *TranslatePipe {
	return &TranslatePipe{
		contract: contract.MustNew(contract.Rule{
			Source:    &contract.Pattern{Slot: 0, Kind: objectKind, Path: []string{ObjectKind}},
			Dest:      contract.Output{Slot: 1, Kind: translatedKind, Path: contract.Constant(TranslatedKind)},
			Preserved: true,
		}),
	}
}

// Name implements pipe.Pipe.
func (p *TranslatePipe) Name() string { return "Translate" }

// Contract implements pipe.Pipe.
func (p *TranslatePipe) Contract() *contract.Contract { return p.contract }

// Execute implements pipe.Pipe.
func (p *TranslatePipe) Execute(ctx context.Context, pctx *core.Context, args []container.Container) error {
	src, ok := args[0].(*Container)
	if !ok {
		return fmt.Errorf("translate source is %T, not a blob container", args[0])
	}
	dst, ok := args[1].(*Container)
	if !ok {
		return fmt.Errorf("translate destination is %T, not a blob container", args[1])
	}
	data, present := src.Data()
	if !present {
		return nil
	}
	dst.SetData(data)
	return nil
}

// Module registers the blob kinds, their containers, and the
// translate pipe.
type Module struct{}

// Register implements registry.Module.
func (Module) Register(r *registry.Registry) {
	root := r.MustRank("root")
	binary := r.RegisterKind(BinaryKind, root, nil)
	object := r.RegisterKind(ObjectKind, root, nil)
	translated := r.RegisterKind(TranslatedKind, root, nil)

	for typeName, k := range map[string]*kind.Kind{
		BinaryKind:     binary,
		ObjectKind:     object,
		TranslatedKind: translated,
	} {
		typeName, k := typeName, k
		r.RegisterContainer(typeName, func(reg *registry.Registry) (container.Container, error) {
			return NewContainer(typeName, k), nil
		})
	}

	r.RegisterPipe("Translate", func(reg *registry.Registry, passes []string) (pipe.Pipe, error) {
		if len(passes) > 0 {
			return nil, fmt.Errorf("pipe Translate does not take passes")
		}
		return NewTranslate(object, translated), nil
	})
}
