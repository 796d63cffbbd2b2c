// Package container defines typed artifact storage. A container owns
// the bytes of the targets it holds and knows which kinds it accepts;
// the set groups the containers a step works on under their declared
// names.
package container

import (
	"fmt"
	"io"

	"github.com/pwnslinger/revng/internal/kind"
	"github.com/pwnslinger/revng/internal/target"
)

// Container is a typed store owning artifacts. Implementations live in
// the modules that register them; the core only moves containers
// around, enumerates them, and asks them to persist themselves.
type Container interface {
	// TypeName is the registered container type (e.g. "strings").
	TypeName() string

	// Accepts reports whether artifacts of kind k may live here.
	Accepts(k *kind.Kind) bool

	// Enumerate returns the concrete targets currently present.
	Enumerate() *target.Set

	// Has reports presence of a concrete target.
	Has(t target.Target) bool

	// Remove discards the given concrete targets. Targets not present
	// are ignored.
	Remove(ts *target.Set)

	// Extract returns a new container of the same type holding copies
	// of the given targets only.
	Extract(ts *target.Set) Container

	// MergeBack moves the contents of other, which must be of the same
	// type, into the receiver. Later-merged targets win on collision.
	MergeBack(other Container) error

	// Clone returns an independent deep copy.
	Clone() Container

	// Serialize writes the container's current target set and contents.
	Serialize(w io.Writer) error

	// Deserialize replaces the container's contents with the encoded
	// form read from r.
	Deserialize(r io.Reader) error
}

// TypeMismatchError reports a container asked to hold a kind it does
// not accept, or a merge between different container types.
type TypeMismatchError struct {
	Container string
	Type      string
	Detail    string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("container %q (type %q): %s", e.Container, e.Type, e.Detail)
}
