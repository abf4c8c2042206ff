// Package merge folds multi-record reflection observations into unique
// merged intensities and computes the standard data-quality statistics
// (Rmerge, Rmeas, Rpim, CC1/2) per resolution shell.
package merge

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rowlesmr/gemmi/pkg/cell"
	"github.com/rowlesmr/gemmi/pkg/hkl"
	"github.com/rowlesmr/gemmi/pkg/symmetry"
)

// ErrInsufficientData is returned when there are no usable observations for
// the requested operation.
var ErrInsufficientData = errors.New("merge: insufficient data")

// DataType describes what one record in the collection represents.
type DataType int

const (
	Unknown DataType = iota
	// Unmerged means multiple records may share a physical reflection.
	Unmerged
	// Mean means one record per unique reflection, Friedel mates averaged.
	Mean
	// Anomalous means I(+) and I(-) are kept as separate records.
	Anomalous
)

func (t DataType) String() string {
	switch t {
	case Unmerged:
		return "I"
	case Mean:
		return "<I>"
	case Anomalous:
		return "I+/I-"
	}
	return "n/a"
}

// State tracks the collection's lifecycle: raw observations are first
// grouped under the asymmetric unit, then optionally merged in place.
type State int

const (
	Raw State = iota
	Prepared
	Merged
)

// Refl is one intensity record. ISign is +1 for I(+), -1 for I(-) and 0 for
// mean or raw data; NObs counts contributing observations after merging.
type Refl struct {
	HKL   hkl.Miller
	ISign int8
	NObs  int
	Value float64
	Sigma float64
}

// IntensityLabel returns "<I>", "I(+)" or "I(-)" depending on the sign.
func (r Refl) IntensityLabel() string {
	switch {
	case r.ISign > 0:
		return "I(+)"
	case r.ISign < 0:
		return "I(-)"
	}
	return "<I>"
}

// Intensities is a collection of intensity records with its symmetry
// context. Mutating methods (PrepareForMerging, MergeInPlace) must not run
// concurrently with any read of the same collection.
type Intensities struct {
	Data       []Refl
	Cell       *cell.UnitCell
	SpaceGroup *symmetry.SpaceGroup
	Wavelength float64
	Type       DataType
	State      State
}

// AddIfValid appends an observation unless it is unusable: NaN values and
// non-positive sigmas are dropped (rejected reflections are conventionally
// marked with negative sigma).
func (in *Intensities) AddIfValid(m hkl.Miller, isign int8, value, sigma float64) {
	if !math.IsNaN(value) && sigma > 0 {
		in.Data = append(in.Data, Refl{HKL: m, ISign: isign, Value: value, Sigma: sigma})
	}
}

// ResolutionRange returns (dMax, dMin) in Angstroms over the collection.
func (in *Intensities) ResolutionRange() (dMax, dMin float64) {
	lo, hi := math.Inf(1), 0.0
	for _, r := range in.Data {
		v := in.Cell.Calculate1D2(r.HKL)
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return 1 / math.Sqrt(lo), 1 / math.Sqrt(hi)
}

// RemoveSystematicAbsences drops reflections extinguished by symmetry.
func (in *Intensities) RemoveSystematicAbsences() error {
	if in.SpaceGroup == nil {
		return symmetry.ErrInvalidIndex
	}
	ops, err := in.SpaceGroup.Operations()
	if err != nil {
		return err
	}
	kept := in.Data[:0]
	for _, r := range in.Data {
		if !ops.IsSystematicallyAbsent(r.HKL) {
			kept = append(kept, r)
		}
	}
	in.Data = kept
	return nil
}

// Sort orders records by (h, k, l, isign).
func (in *Intensities) Sort() {
	sort.SliceStable(in.Data, func(i, j int) bool {
		a, b := in.Data[i], in.Data[j]
		if a.HKL != b.HKL {
			return a.HKL.Less(b.HKL)
		}
		return a.ISign < b.ISign
	})
}

// SwitchToAsuIndices replaces every index by its asymmetric-unit
// representative. A record reached through a Friedel relation becomes an
// I(-) measurement (or flips its sign if it already had one).
func (in *Intensities) SwitchToAsuIndices() error {
	asu, err := symmetry.NewReciprocalAsu(in.SpaceGroup)
	if err != nil {
		return err
	}
	for i := range in.Data {
		r := &in.Data[i]
		red, err := asu.Reduce(r.HKL)
		if err != nil {
			return err
		}
		r.HKL = red.ASU
		switch {
		case r.ISign == 0:
			if red.Friedel {
				r.ISign = -1
			} else {
				r.ISign = 1
			}
		case red.Friedel:
			r.ISign = -r.ISign
		}
	}
	return nil
}

// PrepareForMerging groups raw observations by asymmetric-unit index.
// With Anomalous the Friedel mates stay separate (except for centric
// reflections, which have no anomalous signal); with Mean they are pooled.
func (in *Intensities) PrepareForMerging(dt DataType) error {
	if len(in.Data) == 0 {
		return fmt.Errorf("%w: no usable observations", ErrInsufficientData)
	}
	if err := in.SwitchToAsuIndices(); err != nil {
		return err
	}
	switch dt {
	case Mean:
		for i := range in.Data {
			in.Data[i].ISign = 0
		}
	case Anomalous:
		asu, err := symmetry.NewReciprocalAsu(in.SpaceGroup)
		if err != nil {
			return err
		}
		for i := range in.Data {
			if _, centric := asu.CentricPhase(in.Data[i].HKL); centric {
				in.Data[i].ISign = 1
			}
		}
	default:
		return fmt.Errorf("%w: cannot prepare for data type %v", ErrInsufficientData, dt)
	}
	in.Sort()
	in.State = Prepared
	in.Type = dt
	return nil
}

// MergeInPlace folds each (hkl, isign) group into a single record using the
// inverse-variance weighted mean. Raw data is prepared first; already
// anomalous-prepared data can be re-merged as Mean to pool the mates.
func (in *Intensities) MergeInPlace(dt DataType) error {
	if in.State == Raw || in.Type != dt {
		if err := in.PrepareForMerging(dt); err != nil {
			return err
		}
	}
	out := in.Data[:0]
	for start := 0; start < len(in.Data); {
		end := start + 1
		for end < len(in.Data) && sameGroup(in.Data[start], in.Data[end]) {
			end++
		}
		var sumW, sumWV float64
		nobs := 0
		for _, r := range in.Data[start:end] {
			w := 1 / (r.Sigma * r.Sigma)
			sumW += w
			sumWV += w * r.Value
			if r.NObs > 0 {
				nobs += r.NObs
			} else {
				nobs++
			}
		}
		out = append(out, Refl{
			HKL:   in.Data[start].HKL,
			ISign: in.Data[start].ISign,
			NObs:  nobs,
			Value: sumWV / sumW,
			Sigma: 1 / math.Sqrt(sumW),
		})
		start = end
	}
	in.Data = out
	in.State = Merged
	in.Type = dt
	return nil
}

func sameGroup(a, b Refl) bool {
	return a.HKL == b.HKL && a.ISign == b.ISign
}

// CalculateCorrelation returns the Pearson correlation of intensities
// shared between two collections, paired by (hkl, isign).
func (in *Intensities) CalculateCorrelation(other *Intensities) (float64, error) {
	type key struct {
		m hkl.Miller
		s int8
	}
	values := make(map[key]float64, len(in.Data))
	for _, r := range in.Data {
		values[key{r.HKL, r.ISign}] = r.Value
	}
	var xs, ys []float64
	for _, r := range other.Data {
		if v, ok := values[key{r.HKL, r.ISign}]; ok {
			xs = append(xs, v)
			ys = append(ys, r.Value)
		}
	}
	if len(xs) < 2 {
		return 0, fmt.Errorf("%w: %d shared reflections", ErrInsufficientData, len(xs))
	}
	return pearson(xs, ys, nil), nil
}
