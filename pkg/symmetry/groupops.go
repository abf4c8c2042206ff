package symmetry

import (
	"fmt"

	"github.com/rowlesmr/gemmi/pkg/hkl"
)

// GroupOps is the full, closed set of symmetry operations of a space group,
// including the identity and any centering translations. It is immutable
// after construction and safe to share between goroutines.
type GroupOps struct {
	Ops []Op
}

// maxOps guards the closure loop against a bad generator set. No space
// group has more than 192 operations.
const maxOps = 192

// Closure builds the full operation set generated by the given operations.
func Closure(generators []Op) (*GroupOps, error) {
	ops := []Op{Identity()}
	seen := map[Op]bool{Identity(): true}
	add := func(op Op) {
		if !seen[op] {
			seen[op] = true
			ops = append(ops, op)
		}
	}
	for _, g := range generators {
		add(g)
	}
	for grew := true; grew; {
		grew = false
		n := len(ops)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				p := ops[i].Mul(ops[j])
				if !seen[p] {
					if len(ops) >= maxOps {
						return nil, fmt.Errorf("%w: generator set does not close", ErrInvalidIndex)
					}
					add(p)
					grew = true
				}
			}
		}
	}
	return &GroupOps{Ops: ops}, nil
}

// IsCentrosymmetric reports whether the group contains the inversion -x,-y,-z.
func (g *GroupOps) IsCentrosymmetric() bool {
	inv := [3][3]int{{-1, 0, 0}, {0, -1, 0}, {0, 0, -1}}
	for _, op := range g.Ops {
		if op.Rot == inv {
			return true
		}
	}
	return false
}

// IsSystematicallyAbsent reports whether the reflection is extinguished by
// symmetry: some operation maps the index onto itself with a non-integral
// phase shift.
func (g *GroupOps) IsSystematicallyAbsent(m hkl.Miller) bool {
	for _, op := range g.Ops {
		if op.ApplyToHKL(m) == m && !op.hTranIsIntegral(m) {
			return true
		}
	}
	return false
}

// IsCentric reports whether the reflection's phase is restricted by
// symmetry, i.e. some operation maps the index onto its Friedel mate.
func (g *GroupOps) IsCentric(m hkl.Miller) bool {
	neg := m.Friedel()
	for _, op := range g.Ops {
		if op.ApplyToHKL(m) == neg {
			return true
		}
	}
	return false
}
