// Package target defines artifact identity: a target is the name of a
// single artifact, a path of components plus a kind. Wildcard
// components are allowed in requests and contract patterns; container
// state only ever holds concrete targets.
package target

import (
	"fmt"
	"strings"

	"github.com/pwnslinger/revng/internal/kind"
)

// Wildcard is the path component matching every name at its position.
const Wildcard = "*"

// PathSeparator joins path components in the textual form of a target.
const PathSeparator = "/"

// Target identifies one artifact as a (path, kind) pair. The zero
// value is invalid; construct targets with New.
type Target struct {
	kind *kind.Kind
	path []string
}

// New builds a target, checking that the path arity matches the
// kind's rank depth.
func New(k *kind.Kind, path ...string) (Target, error) {
	if len(path) != k.Depth() {
		return Target{}, fmt.Errorf("target path %v has %d components, kind %q requires %d",
			path, len(path), k.Name(), k.Depth())
	}
	p := make([]string, len(path))
	copy(p, path)
	return Target{kind: k, path: p}, nil
}

// MustNew is New for statically known-good paths; it panics on arity
// mismatch.
func MustNew(k *kind.Kind, path ...string) Target {
	t, err := New(k, path...)
	if err != nil {
		panic(err)
	}
	return t
}

// All returns the fully wildcarded target of the given kind.
func All(k *kind.Kind) Target {
	path := make([]string, k.Depth())
	for i := range path {
		path[i] = Wildcard
	}
	return Target{kind: k, path: path}
}

// Kind returns the target's kind.
func (t Target) Kind() *kind.Kind { return t.kind }

// Path returns the target's path components. The slice must not be
// mutated.
func (t Target) Path() []string { return t.path }

// Concrete reports whether no path component is a wildcard.
func (t Target) Concrete() bool {
	for _, c := range t.path {
		if c == Wildcard {
			return false
		}
	}
	return true
}

// Equal reports structural equality.
func (t Target) Equal(o Target) bool {
	if t.kind != o.kind || len(t.path) != len(o.path) {
		return false
	}
	for i := range t.path {
		if t.path[i] != o.path[i] {
			return false
		}
	}
	return true
}

// Less orders targets lexicographically by kind name, then path.
func (t Target) Less(o Target) bool {
	if t.kind.Name() != o.kind.Name() {
		return t.kind.Name() < o.kind.Name()
	}
	for i := 0; i < len(t.path) && i < len(o.path); i++ {
		if t.path[i] != o.path[i] {
			return t.path[i] < o.path[i]
		}
	}
	return len(t.path) < len(o.path)
}

// Satisfies reports whether the target's kind matches k and every
// non-wildcard component of pattern equals the target's component.
func (t Target) Satisfies(k *kind.Kind, pattern []string) bool {
	if !t.kind.Matches(k) {
		return false
	}
	if len(pattern) != len(t.path) {
		return false
	}
	return componentsMatch(t.path, pattern)
}

// MatchesPattern reports whether the target satisfies another target
// used as a pattern. Wildcards on either side match.
func (t Target) MatchesPattern(p Target) bool {
	if !t.kind.Matches(p.kind) {
		return false
	}
	if len(t.path) != len(p.path) {
		return false
	}
	return componentsMatch(t.path, p.path)
}

// componentsMatch compares two component lists of equal length,
// treating a wildcard on either side as matching.
func componentsMatch(a, b []string) bool {
	for i := range a {
		if a[i] == Wildcard || b[i] == Wildcard {
			continue
		}
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// String renders the target as "path:kind" with slash-joined
// components, the same form the CLI accepts.
func (t Target) String() string {
	return strings.Join(t.path, PathSeparator) + ":" + t.kind.Name()
}

// ParsePath splits a slash-joined textual path into components.
func ParsePath(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, PathSeparator)
}
