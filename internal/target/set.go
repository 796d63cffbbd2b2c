package target

import "sort"

// Set holds concrete targets only. Wildcarded targets never enter a
// set; they are expanded against one first.
type Set struct {
	members map[string]Target
}

// NewSet builds a set from the given concrete targets.
func NewSet(targets ...Target) *Set {
	s := &Set{members: make(map[string]Target, len(targets))}
	for _, t := range targets {
		s.Insert(t)
	}
	return s
}

// Insert adds a concrete target. Inserting a wildcarded target is a
// programming error and panics.
func (s *Set) Insert(t Target) {
	if !t.Concrete() {
		panic("wildcarded target inserted into a target set: " + t.String())
	}
	s.members[t.String()] = t
}

// Contains reports membership of a concrete target.
func (s *Set) Contains(t Target) bool {
	_, ok := s.members[t.String()]
	return ok
}

// Len returns the number of members.
func (s *Set) Len() int { return len(s.members) }

// Empty reports whether the set has no members.
func (s *Set) Empty() bool { return len(s.members) == 0 }

// Slice returns the members in sorted order.
func (s *Set) Slice() []Target {
	out := make([]Target, 0, len(s.members))
	for _, t := range s.members {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Union adds every member of other to s.
func (s *Set) Union(other *Set) {
	for key, t := range other.members {
		s.members[key] = t
	}
}

// Difference removes every member of other from s.
func (s *Set) Difference(other *Set) {
	for key := range other.members {
		delete(s.members, key)
	}
}

// Intersect keeps only members also present in other.
func (s *Set) Intersect(other *Set) {
	for key := range s.members {
		if _, ok := other.members[key]; !ok {
			delete(s.members, key)
		}
	}
}

// Remove deletes a single member, if present.
func (s *Set) Remove(t Target) {
	delete(s.members, t.String())
}

// Clone returns an independent copy.
func (s *Set) Clone() *Set {
	c := &Set{members: make(map[string]Target, len(s.members))}
	for key, t := range s.members {
		c.members[key] = t
	}
	return c
}

// Expand returns the members matching the given (possibly
// wildcarded) pattern target.
func (s *Set) Expand(pattern Target) *Set {
	out := NewSet()
	for _, t := range s.members {
		if t.MatchesPattern(pattern) {
			out.Insert(t)
		}
	}
	return out
}

// ExpandAll expands every pattern in the list and unions the results.
func (s *Set) ExpandAll(patterns []Target) *Set {
	out := NewSet()
	for _, p := range patterns {
		out.Union(s.Expand(p))
	}
	return out
}
