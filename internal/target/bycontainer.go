package target

import "sort"

// ByContainer maps container names to target patterns. Planning and
// invalidation pass these around: unlike Set, the lists may hold
// wildcarded targets.
type ByContainer map[string][]Target

// Add appends a pattern to a container's list, deduplicating by
// structural equality.
func (b ByContainer) Add(container string, t Target) {
	for _, existing := range b[container] {
		if existing.Equal(t) {
			return
		}
	}
	b[container] = append(b[container], t)
}

// AddAll appends every pattern in ts to a container's list.
func (b ByContainer) AddAll(container string, ts []Target) {
	for _, t := range ts {
		b.Add(container, t)
	}
}

// Union merges other into b.
func (b ByContainer) Union(other ByContainer) {
	for container, ts := range other {
		b.AddAll(container, ts)
	}
}

// Clone returns an independent copy.
func (b ByContainer) Clone() ByContainer {
	c := make(ByContainer, len(b))
	for container, ts := range b {
		list := make([]Target, len(ts))
		copy(list, ts)
		c[container] = list
	}
	return c
}

// Empty reports whether no container has any pattern.
func (b ByContainer) Empty() bool {
	for _, ts := range b {
		if len(ts) > 0 {
			return false
		}
	}
	return true
}

// Containers returns the container names with at least one pattern,
// sorted.
func (b ByContainer) Containers() []string {
	names := make([]string, 0, len(b))
	for container, ts := range b {
		if len(ts) > 0 {
			names = append(names, container)
		}
	}
	sort.Strings(names)
	return names
}

// Restrict returns a copy of b keeping only the named containers.
func (b ByContainer) Restrict(containers []string) ByContainer {
	out := make(ByContainer)
	for _, name := range containers {
		if ts, ok := b[name]; ok && len(ts) > 0 {
			out.AddAll(name, ts)
		}
	}
	return out
}
