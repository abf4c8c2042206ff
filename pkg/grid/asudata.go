// Package grid implements the reciprocal-space grid engine: dense 3D arrays
// of complex structure factors built from sparse asymmetric-unit data and
// disassembled back, with full or Hermitian-compressed (half-l) storage and
// selectable memory axis order.
package grid

import (
	"errors"
	"math"

	"github.com/rowlesmr/gemmi/pkg/cell"
	"github.com/rowlesmr/gemmi/pkg/hkl"
	"github.com/rowlesmr/gemmi/pkg/symmetry"
)

var (
	// ErrGridTooSmall is returned when grid dimensions cannot represent
	// every Miller index in the data.
	ErrGridTooSmall = errors.New("grid: dimensions too small for data")
	// ErrAxisOrder is returned when an operation does not support the
	// grid's axis-order convention.
	ErrAxisOrder = errors.New("grid: unsupported axis order for this operation")
)

// AsuDatum is one asymmetric-unit reflection with its complex value.
type AsuDatum struct {
	HKL   hkl.Miller
	Value complex128
}

// AsuData is a sparse list of asymmetric-unit reflections with the cell and
// space-group context needed to expand them by symmetry.
type AsuData struct {
	Cell       *cell.UnitCell
	SpaceGroup *symmetry.SpaceGroup
	Data       []AsuDatum
}

// MaxAbsIndex returns the per-axis maximum absolute Miller index.
func (a *AsuData) MaxAbsIndex() [3]int {
	var max [3]int
	for _, d := range a.Data {
		for i := 0; i < 3; i++ {
			v := d.HKL[i]
			if v < 0 {
				v = -v
			}
			if v > max[i] {
				max[i] = v
			}
		}
	}
	return max
}

// DataFitsInto reports whether every index (and its Friedel mate) is
// representable on a grid of the given dimensions, i.e. 2*|h| < dim on
// each axis.
func (a *AsuData) DataFitsInto(dims [3]int) bool {
	max := a.MaxAbsIndex()
	for i := 0; i < 3; i++ {
		if 2*max[i] >= dims[i] {
			return false
		}
	}
	return true
}

// MinimalSize returns FFT-friendly dimensions that hold the data, oversampled
// by the given rate (1.0 means the minimal sufficient size; map calculations
// conventionally use 1.5 or more).
func (a *AsuData) MinimalSize(sampleRate float64) [3]int {
	if sampleRate < 1 {
		sampleRate = 1
	}
	max := a.MaxAbsIndex()
	var dims [3]int
	for i := 0; i < 3; i++ {
		n := int(math.Ceil(sampleRate * float64(2*max[i]+1)))
		dims[i] = goodFFTSize(n)
	}
	return dims
}

// goodFFTSize returns the smallest even 2,3,5-smooth number >= n.
func goodFFTSize(n int) int {
	if n < 2 {
		return 2
	}
	if n%2 == 1 {
		n++
	}
	for {
		m := n
		for _, p := range [3]int{2, 3, 5} {
			for m%p == 0 {
				m /= p
			}
		}
		if m == 1 {
			return n
		}
		n += 2
	}
}
