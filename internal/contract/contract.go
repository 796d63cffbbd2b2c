// Package contract implements the declarative rewrite rules pipes
// describe themselves with. A contract maps input target patterns to
// output target descriptions; the planner applies it backward to
// derive required inputs, the invalidator applies it forward to chase
// stale targets.
//
// Rules are written against container slots, the indices into the
// pipe's ordered used-container list. Binding a contract to the
// actual container names happens when the pipeline description is
// loaded.
package contract

import (
	"fmt"

	"github.com/pwnslinger/revng/internal/kind"
	"github.com/pwnslinger/revng/internal/target"
)

// Pattern matches inputs: targets in the slot's container whose kind
// matches Kind and whose path satisfies Path.
type Pattern struct {
	Slot int
	Kind *kind.Kind
	Path []string
}

// Output describes what a rule emits into the slot's container.
type Output struct {
	Slot int
	Kind *kind.Kind
	Path PathFunc
}

// Rule is a single rewrite: for every input matching Source, an
// output target per Dest. A nil Source marks a self-sufficient
// producer (the rule needs no inputs). Preserved controls copy vs
// move semantics for matched inputs.
type Rule struct {
	Source    *Pattern
	Dest      Output
	Preserved bool
}

// InvalidError reports a rule whose arities or kinds are internally
// inconsistent, detected at construction.
type InvalidError struct {
	Detail string
}

func (e *InvalidError) Error() string {
	return "invalid contract: " + e.Detail
}

// Contract is an ordered set of rules.
type Contract struct {
	rules []Rule
}

// New validates the rules and builds a contract.
func New(rules ...Rule) (*Contract, error) {
	for i, r := range rules {
		if r.Dest.Kind == nil {
			return nil, &InvalidError{Detail: fmt.Sprintf("rule %d has no output kind", i)}
		}
		srcDepth := 0
		if r.Source != nil {
			if r.Source.Kind == nil {
				return nil, &InvalidError{Detail: fmt.Sprintf("rule %d has an input pattern without a kind", i)}
			}
			if len(r.Source.Path) != r.Source.Kind.Depth() {
				return nil, &InvalidError{Detail: fmt.Sprintf(
					"rule %d input pattern arity %d does not match kind %q depth %d",
					i, len(r.Source.Path), r.Source.Kind.Name(), r.Source.Kind.Depth())}
			}
			srcDepth = r.Source.Kind.Depth()
		} else if r.Dest.Path.op == opIdentity || r.Dest.Path.op == opProject {
			return nil, &InvalidError{Detail: fmt.Sprintf(
				"rule %d has no input but a path function that reads the input path", i)}
		}
		if !r.Dest.Path.arityOK(srcDepth, r.Dest.Kind.Depth()) {
			return nil, &InvalidError{Detail: fmt.Sprintf(
				"rule %d path function arity does not fit kinds (%d -> %d)",
				i, srcDepth, r.Dest.Kind.Depth())}
		}
	}
	return &Contract{rules: rules}, nil
}

// MustNew is New for statically known-good rules.
func MustNew(rules ...Rule) *Contract {
	c, err := New(rules...)
	if err != nil {
		panic(err)
	}
	return c
}

// Empty is the contract of a pipe that neither reads nor produces
// targets (a gated-out pipe plans as this).
func Empty() *Contract { return &Contract{} }

// Rules returns the contract's rules.
func (c *Contract) Rules() []Rule { return c.rules }

// MaxSlot returns the highest slot index any rule references, or -1.
func (c *Contract) MaxSlot() int {
	max := -1
	for _, r := range c.rules {
		if r.Source != nil && r.Source.Slot > max {
			max = r.Source.Slot
		}
		if r.Dest.Slot > max {
			max = r.Dest.Slot
		}
	}
	return max
}

// Bind resolves the contract's slots against a pipe's ordered
// container names.
func (c *Contract) Bind(containers []string) (*Bound, error) {
	if max := c.MaxSlot(); max >= len(containers) {
		return nil, &InvalidError{Detail: fmt.Sprintf(
			"contract references slot %d but only %d containers are bound", max, len(containers))}
	}
	b := &Bound{}
	for _, r := range c.rules {
		br := boundRule{rule: r, dest: containers[r.Dest.Slot]}
		if r.Source != nil {
			br.source = containers[r.Source.Slot]
		}
		b.rules = append(b.rules, br)
	}
	return b, nil
}

// boundRule is a rule with its slots resolved to container names.
type boundRule struct {
	rule   Rule
	source string
	dest   string
}

// Bound is a contract bound to concrete container names.
type Bound struct {
	rules []boundRule
}

// EmptyBound is the bound form of the empty contract.
func EmptyBound() *Bound { return &Bound{} }

// Reads returns the container names the contract reads from.
func (b *Bound) Reads() []string {
	seen := map[string]bool{}
	var out []string
	for _, br := range b.rules {
		if br.rule.Source != nil && !seen[br.source] {
			seen[br.source] = true
			out = append(out, br.source)
		}
	}
	return out
}

// Writes returns the container names the contract produces into.
func (b *Bound) Writes() []string {
	seen := map[string]bool{}
	var out []string
	for _, br := range b.rules {
		if !seen[br.dest] {
			seen[br.dest] = true
			out = append(out, br.dest)
		}
	}
	return out
}

// DeducePostcondition predicts the targets produced when the pipe
// runs against the given inputs. Input patterns may be wildcarded;
// wildcards propagate into the predictions.
func (b *Bound) DeducePostcondition(in target.ByContainer) target.ByContainer {
	out := make(target.ByContainer)
	for _, br := range b.rules {
		r := br.rule
		if r.Source == nil {
			path := r.Dest.Path.apply(nil, r.Dest.Kind.Depth())
			out.Add(br.dest, patternTarget(r.Dest.Kind, path))
			continue
		}
		for _, t := range in[br.source] {
			if !t.Satisfies(r.Source.Kind, r.Source.Path) {
				continue
			}
			path := r.Dest.Path.apply(t.Path(), r.Dest.Kind.Depth())
			out.Add(br.dest, patternTarget(r.Dest.Kind, path))
		}
	}
	return out
}

// DeducePrecondition derives the inputs required so that running the
// pipe produces a superset of the requested outputs. Requests the
// contract cannot produce contribute nothing; CoveredBy reports
// producibility separately.
func (b *Bound) DeducePrecondition(requested target.ByContainer) target.ByContainer {
	in := make(target.ByContainer)
	for _, br := range b.rules {
		r := br.rule
		for _, want := range requested[br.dest] {
			if !b.ruleProduces(r, want) {
				continue
			}
			if r.Source == nil {
				continue
			}
			inPath, ok := r.Dest.Path.invert(want.Path(), r.Source.Kind.Depth())
			if !ok {
				continue
			}
			merged, ok := mergePattern(inPath, r.Source.Path)
			if !ok {
				continue
			}
			in.Add(br.source, patternTarget(r.Source.Kind, merged))
		}
	}
	return in
}

// CoveredBy reports whether the contract can produce targets matching
// the request in the named container: providing the deduced
// precondition guarantees every matching derivable target appears.
func (b *Bound) CoveredBy(container string, want target.Target) bool {
	for _, br := range b.rules {
		if br.dest != container {
			continue
		}
		if b.ruleProduces(br.rule, want) {
			return true
		}
	}
	return false
}

// OutputBinding names one (container, kind) pair a bound contract
// may produce.
type OutputBinding struct {
	Container string
	Kind      *kind.Kind
}

// Outputs lists the container/kind pairs the contract can emit,
// deduplicated.
func (b *Bound) Outputs() []OutputBinding {
	seen := map[OutputBinding]bool{}
	var out []OutputBinding
	for _, br := range b.rules {
		ob := OutputBinding{Container: br.dest, Kind: br.rule.Dest.Kind}
		if !seen[ob] {
			seen[ob] = true
			out = append(out, ob)
		}
	}
	return out
}

// Consumption names the inputs a non-preserving rule removes from its
// source container once outputs are produced.
type Consumption struct {
	Container string
	Targets   []target.Target
}

// Consumed returns, per non-preserving rule, the input pattern whose
// matches move out of their container (move semantics).
func (b *Bound) Consumed() []Consumption {
	var out []Consumption
	for _, br := range b.rules {
		r := br.rule
		if r.Source == nil || r.Preserved {
			continue
		}
		out = append(out, Consumption{
			Container: br.source,
			Targets:   []target.Target{patternTarget(r.Source.Kind, r.Source.Path)},
		})
	}
	return out
}

// ruleProduces reports whether the rule's output description can
// match the requested pattern.
func (b *Bound) ruleProduces(r Rule, want target.Target) bool {
	if !r.Dest.Kind.Matches(want.Kind()) {
		return false
	}
	if len(want.Path()) != r.Dest.Kind.Depth() {
		return false
	}
	if r.Dest.Path.op == opConstant {
		_, ok := r.Dest.Path.invert(want.Path(), 0)
		return ok
	}
	return true
}

// patternTarget builds a (possibly wildcarded) target from rule
// output; arity is already validated at contract construction.
func patternTarget(k *kind.Kind, path []string) target.Target {
	t, err := target.New(k, path...)
	if err != nil {
		panic(err)
	}
	return t
}

// mergePattern combines an inverted path with the rule's own source
// pattern, the more specific component winning. A conflict between
// two pinned components means the request cannot flow through this
// rule.
func mergePattern(inverted, pattern []string) ([]string, bool) {
	out := make([]string, len(inverted))
	for i := range inverted {
		a, b := inverted[i], pattern[i]
		switch {
		case a == target.Wildcard:
			out[i] = b
		case b == target.Wildcard:
			out[i] = a
		case a == b:
			out[i] = a
		default:
			return nil, false
		}
	}
	return out, true
}
