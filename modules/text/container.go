// Package text provides the line-oriented string container and the
// copy pipe over it. Each artifact is a single name; the serialized
// form is one name per line.
package text

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pwnslinger/revng/internal/container"
	"github.com/pwnslinger/revng/internal/kind"
	"github.com/pwnslinger/revng/internal/target"
)

// TypeName is the registered container type.
const TypeName = "strings"

// Container stores string artifacts. The artifact's name is its
// content.
type Container struct {
	kind   *kind.Kind
	values map[string]struct{}
}

// NewContainer creates an empty string container for the given kind.
func NewContainer(k *kind.Kind) *Container {
	return &Container{kind: k, values: make(map[string]struct{})}
}

// Add inserts one string artifact.
func (c *Container) Add(name string) {
	c.values[name] = struct{}{}
}

// Strings returns the stored artifacts in sorted order.
func (c *Container) Strings() []string {
	out := make([]string, 0, len(c.values))
	for v := range c.values {
		out = append(out, v)
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
	for v := range c.values {
		set.Insert(target.MustNew(c.kind, v))
	}
	return set
}

// Has implements container.Container.
func (c *Container) Has(t target.Target) bool {
	if !t.Kind().Matches(c.kind) {
		return false
	}
	_, ok := c.values[t.Path()[0]]
	return ok
}

// Remove implements container.Container.
func (c *Container) Remove(ts *target.Set) {
	for _, t := range ts.Slice() {
		delete(c.values, t.Path()[0])
	}
}

// Extract implements container.Container.
func (c *Container) Extract(ts *target.Set) container.Container {
	out := NewContainer(c.kind)
	for _, t := range ts.Slice() {
		if c.Has(t) {
			out.Add(t.Path()[0])
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
			Detail:    "cannot merge into a string container",
		}
	}
	for v := range src.values {
		c.values[v] = struct{}{}
	}
	return nil
}

// Clone implements container.Container.
func (c *Container) Clone() container.Container {
	out := NewContainer(c.kind)
	for v := range c.values {
		out.values[v] = struct{}{}
	}
	return out
}

// Serialize implements container.Container: one artifact per line,
// sorted.
func (c *Container) Serialize(w io.Writer) error {
	for _, v := range c.Strings() {
		if _, err := fmt.Fprintln(w, v); err != nil {
			return err
		}
	}
	return nil
}

// Deserialize implements container.Container, replacing the contents
// with one artifact per non-empty line.
func (c *Container) Deserialize(r io.Reader) error {
	c.values = make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			c.values[line] = struct{}{}
		}
	}
	return scanner.Err()
}
