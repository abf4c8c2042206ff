// Package binner partitions reflections into resolution shells. Limits are
// upper bounds in the 1/d^2 metric; a reflection belongs to the first shell
// whose bound exceeds its metric value.
package binner

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rowlesmr/gemmi/pkg/cell"
	"github.com/rowlesmr/gemmi/pkg/hkl"
)

// ErrInsufficientData is returned by Setup when there is nothing to bin.
var ErrInsufficientData = errors.New("binner: insufficient data")

// Method selects how shell boundaries are spaced.
type Method int

const (
	// Dstar3 spaces shells equally in 1/d^3, giving equal reciprocal-space
	// volume per shell.
	Dstar3 Method = iota
	// Dstar2 spaces shells equally in 1/d^2.
	Dstar2
)

func (m Method) String() string {
	switch m {
	case Dstar3:
		return "Dstar3"
	case Dstar2:
		return "Dstar2"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// Binner holds resolution-shell limits set up from observed data.
type Binner struct {
	method Method
	limits []float64 // ascending upper bounds in 1/d^2; last is inclusive
	min1d2 float64
}

// Setup computes nbins shell limits covering the full range of the given
// 1/d^2 values. The last limit equals the maximum value, so every input
// value falls in some shell.
func (b *Binner) Setup(nbins int, method Method, inv1d2 []float64) error {
	if nbins < 1 {
		return fmt.Errorf("%w: need at least 1 bin, got %d", ErrInsufficientData, nbins)
	}
	if len(inv1d2) == 0 {
		return fmt.Errorf("%w: no metric values", ErrInsufficientData)
	}
	lo, hi := inv1d2[0], inv1d2[0]
	for _, v := range inv1d2[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	b.method = method
	b.min1d2 = lo
	b.limits = make([]float64, nbins)
	switch method {
	case Dstar2:
		step := (hi - lo) / float64(nbins)
		for i := 0; i < nbins-1; i++ {
			b.limits[i] = lo + float64(i+1)*step
		}
	case Dstar3:
		lo3 := math.Pow(lo, 1.5)
		hi3 := math.Pow(hi, 1.5)
		step := (hi3 - lo3) / float64(nbins)
		for i := 0; i < nbins-1; i++ {
			b.limits[i] = math.Pow(lo3+float64(i+1)*step, 2.0/3.0)
		}
	default:
		return fmt.Errorf("%w: unknown method %v", ErrInsufficientData, method)
	}
	b.limits[nbins-1] = hi
	return nil
}

// SetupFromCell is Setup with the metric computed from Miller indices.
func (b *Binner) SetupFromCell(nbins int, method Method, hkls []hkl.Miller, c *cell.UnitCell) error {
	values := make([]float64, len(hkls))
	for i, m := range hkls {
		values[i] = c.Calculate1D2(m)
	}
	return b.Setup(nbins, method, values)
}

// Size returns the number of shells.
func (b *Binner) Size() int { return len(b.limits) }

// Limits returns the ascending shell upper bounds in 1/d^2.
func (b *Binner) Limits() []float64 { return b.limits }

// Method returns the spacing method the limits were set up with.
func (b *Binner) Method() Method { return b.method }

// GetBinFrom1D2 returns the shell index for a 1/d^2 value. Shells are
// right-open: a value equal to a limit belongs to the next shell, except
// the last shell which is closed.
func (b *Binner) GetBinFrom1D2(v float64) int {
	n := len(b.limits)
	// first limit strictly greater than v
	i := sort.Search(n, func(j int) bool { return b.limits[j] > v })
	if i == n {
		i = n - 1
	}
	return i
}

// GetBin returns the shell index for a Miller index.
func (b *Binner) GetBin(m hkl.Miller, c *cell.UnitCell) int {
	return b.GetBinFrom1D2(c.Calculate1D2(m))
}

// GetBins is the vectorized form of GetBin.
func (b *Binner) GetBins(hkls []hkl.Miller, c *cell.UnitCell) []int {
	bins := make([]int, len(hkls))
	for i, m := range hkls {
		bins[i] = b.GetBin(m, c)
	}
	return bins
}

// GetBinsFrom1D2 bins precomputed 1/d^2 values. It gives results identical
// to GetBins for the same reflections.
func (b *Binner) GetBinsFrom1D2(values []float64) []int {
	bins := make([]int, len(values))
	for i, v := range values {
		bins[i] = b.GetBinFrom1D2(v)
	}
	return bins
}

// DMin returns the high-resolution edge (in Angstroms) of the given shell.
func (b *Binner) DMin(bin int) float64 {
	return 1 / math.Sqrt(b.limits[bin])
}
