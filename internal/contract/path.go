package contract

import "github.com/pwnslinger/revng/internal/target"

// pathOp selects the behavior of a PathFunc.
type pathOp int

const (
	opIdentity pathOp = iota
	opProject
	opConstant
	opAllOutputs
)

// PathFunc maps an input target path to an output path. It is a
// tagged variant: identity, projection of components, a fixed path,
// or the fully wildcarded "everything this rule may emit" form used
// by producers whose output names are data-dependent.
type PathFunc struct {
	op      pathOp
	indices []int
	fixed   []string
}

// Identity keeps the input path unchanged.
func Identity() PathFunc { return PathFunc{op: opIdentity} }

// Project builds the output path from the selected input components,
// in the given order. It expresses a shift in rank.
func Project(indices ...int) PathFunc {
	return PathFunc{op: opProject, indices: indices}
}

// Constant always emits the given fixed path, promoting results into
// coarse-rank containers.
func Constant(path ...string) PathFunc {
	return PathFunc{op: opConstant, fixed: path}
}

// AllOutputs emits the fully wildcarded path: the rule produces a
// data-dependent set of targets of the output kind.
func AllOutputs() PathFunc { return PathFunc{op: opAllOutputs} }

// apply maps a (possibly wildcarded) input path to the output path.
func (f PathFunc) apply(in []string, outDepth int) []string {
	switch f.op {
	case opIdentity:
		out := make([]string, len(in))
		copy(out, in)
		return out
	case opProject:
		out := make([]string, len(f.indices))
		for i, idx := range f.indices {
			out[i] = in[idx]
		}
		return out
	case opConstant:
		out := make([]string, len(f.fixed))
		copy(out, f.fixed)
		return out
	default: // opAllOutputs
		return wildcardPath(outDepth)
	}
}

// invert maps a requested output path back to the input pattern that
// guarantees its production. Components the function cannot pin are
// wildcarded. The boolean is false when the request cannot come from
// this function at all (a constant that does not match).
func (f PathFunc) invert(out []string, inDepth int) ([]string, bool) {
	switch f.op {
	case opIdentity:
		in := make([]string, len(out))
		copy(in, out)
		return in, true
	case opProject:
		in := wildcardPath(inDepth)
		for i, idx := range f.indices {
			if out[i] != target.Wildcard {
				in[idx] = out[i]
			}
		}
		return in, true
	case opConstant:
		for i, c := range f.fixed {
			if out[i] != target.Wildcard && out[i] != c {
				return nil, false
			}
		}
		return wildcardPath(inDepth), true
	default: // opAllOutputs
		return wildcardPath(inDepth), true
	}
}

// arityOK validates the function against the source and destination
// depths at contract construction time.
func (f PathFunc) arityOK(srcDepth, dstDepth int) bool {
	switch f.op {
	case opIdentity:
		return srcDepth == dstDepth
	case opProject:
		if len(f.indices) != dstDepth {
			return false
		}
		for _, idx := range f.indices {
			if idx < 0 || idx >= srcDepth {
				return false
			}
		}
		return true
	case opConstant:
		return len(f.fixed) == dstDepth
	default: // opAllOutputs
		return true
	}
}

func wildcardPath(depth int) []string {
	p := make([]string, depth)
	for i := range p {
		p[i] = target.Wildcard
	}
	return p
}
