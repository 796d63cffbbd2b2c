package container

import (
	"fmt"
	"sort"

	"github.com/pwnslinger/revng/internal/target"
)

// Set is a step's view of its containers: a mapping from declared
// container name to the container instance.
type Set struct {
	containers map[string]Container
}

// NewSet returns an empty container set.
func NewSet() *Set {
	return &Set{containers: make(map[string]Container)}
}

// Add binds a container under a name, replacing any previous binding.
func (s *Set) Add(name string, c Container) {
	s.containers[name] = c
}

// Get returns the container bound to name.
func (s *Set) Get(name string) (Container, bool) {
	c, ok := s.containers[name]
	return c, ok
}

// Names returns the bound names in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.containers))
	for name := range s.containers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Args resolves an ordered list of container names into the positional
// argument slice a pipe executes against.
func (s *Set) Args(names []string) ([]Container, error) {
	args := make([]Container, len(names))
	for i, name := range names {
		c, ok := s.containers[name]
		if !ok {
			return nil, fmt.Errorf("container %q is not part of this set", name)
		}
		args[i] = c
	}
	return args, nil
}

// Clone deep-copies the set.
func (s *Set) Clone() *Set {
	c := NewSet()
	for name, cont := range s.containers {
		c.containers[name] = cont.Clone()
	}
	return c
}

// Enumerate returns the concrete targets present per container name.
func (s *Set) Enumerate() target.ByContainer {
	out := make(target.ByContainer)
	for name, c := range s.containers {
		out.AddAll(name, c.Enumerate().Slice())
	}
	return out
}
