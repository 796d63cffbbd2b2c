// Package kind defines the artifact type tags. Every kind is bound to
// exactly one rank and may declare a parent kind; the resulting
// subtype tree drives contract matching.
package kind

import (
	"fmt"

	"github.com/pwnslinger/revng/internal/rank"
)

// Kind is the type tag of an artifact. Instances are created once,
// through a registry, and compared by pointer identity.
type Kind struct {
	name   string
	rank   *rank.Rank
	parent *Kind
}

// New creates a kind bound to the given rank, optionally under a
// parent kind.
func New(name string, r *rank.Rank, parent *Kind) *Kind {
	return &Kind{name: name, rank: r, parent: parent}
}

// Name returns the kind's registered name.
func (k *Kind) Name() string { return k.name }

// Rank returns the rank the kind is bound to.
func (k *Kind) Rank() *rank.Rank { return k.rank }

// Depth is the path arity of targets of this kind.
func (k *Kind) Depth() int { return k.rank.Depth() }

// Parent returns the supertype kind, or nil.
func (k *Kind) Parent() *Kind { return k.parent }

// Matches reports whether k is other or a descendant of other.
func (k *Kind) Matches(other *Kind) bool {
	for cur := k; cur != nil; cur = cur.parent {
		if cur == other {
			return true
		}
	}
	return false
}

func (k *Kind) String() string { return k.name }

// UnknownError reports a lookup of a kind name that was never
// registered.
type UnknownError struct {
	Name string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("unknown kind %q", e.Name)
}
