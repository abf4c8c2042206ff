package symmetry

import (
	"github.com/rowlesmr/gemmi/pkg/hkl"
)

// Reduction is the result of mapping a Miller index to its asymmetric-unit
// representative. The original structure factor is recovered from the
// representative's value as
//
//	F(h) = cis(PhaseShiftDeg) * F(asu)        if !Friedel
//	F(h) = cis(PhaseShiftDeg) * conj(F(asu))  if Friedel
type Reduction struct {
	ASU           hkl.Miller
	PhaseShiftDeg float64
	Centric       bool
	Friedel       bool
}

// ReciprocalAsu reduces Miller indices to a canonical asymmetric unit.
// The representative of an index is the lexicographically greatest of all
// its images under the group operations and their Friedel mates, which
// makes the reduction a deterministic partition of reciprocal space.
type ReciprocalAsu struct {
	sg  *SpaceGroup
	ops *GroupOps
}

// NewReciprocalAsu builds a reducer for the given space group.
func NewReciprocalAsu(sg *SpaceGroup) (*ReciprocalAsu, error) {
	if sg == nil {
		return nil, ErrInvalidIndex
	}
	ops, err := sg.Operations()
	if err != nil {
		return nil, err
	}
	return &ReciprocalAsu{sg: sg, ops: ops}, nil
}

// SpaceGroup returns the group this reducer was built for.
func (a *ReciprocalAsu) SpaceGroup() *SpaceGroup { return a.sg }

// Reduce maps any Miller index to its asymmetric-unit representative,
// together with the phase shift and Friedel flag needed to reconstruct the
// original value from the representative's value.
func (a *ReciprocalAsu) Reduce(m hkl.Miller) (Reduction, error) {
	if a == nil || a.ops == nil {
		return Reduction{}, ErrInvalidIndex
	}
	best := Reduction{ASU: m}
	first := true
	for _, op := range a.ops.Ops {
		p := op.ApplyToHKL(m)
		shift := op.PhaseShiftDeg(m)
		for _, cand := range [2]Reduction{
			{ASU: p, PhaseShiftDeg: shift, Friedel: false},
			{ASU: p.Friedel(), PhaseShiftDeg: shift, Friedel: true},
		} {
			if first || best.ASU.Less(cand.ASU) {
				best = cand
				first = false
			}
		}
	}
	best.Centric = a.ops.IsCentric(m)
	return best, nil
}

// IsIn reports whether the index is its own asymmetric-unit representative.
func (a *ReciprocalAsu) IsIn(m hkl.Miller) bool {
	r, err := a.Reduce(m)
	return err == nil && r.ASU == m && !r.Friedel
}

// CentricPhase returns the restricted phase line for a centric reflection,
// in degrees in [0,180). ok is false for acentric reflections.
func (a *ReciprocalAsu) CentricPhase(m hkl.Miller) (deg float64, ok bool) {
	if a == nil || a.ops == nil {
		return 0, false
	}
	neg := m.Friedel()
	for _, op := range a.ops.Ops {
		if op.ApplyToHKL(m) == neg {
			ht := m[0]*op.Tran[0] + m[1]*op.Tran[1] + m[2]*op.Tran[2]
			deg = 180 * float64(mod24(ht)) / Den
			for deg >= 180 {
				deg -= 180
			}
			return deg, true
		}
	}
	return 0, false
}
