package grid

import (
	"fmt"
	"math"
	"math/cmplx"
	"runtime"
	"sync"

	"github.com/rowlesmr/gemmi/pkg/cell"
	"github.com/rowlesmr/gemmi/pkg/hkl"
	"github.com/rowlesmr/gemmi/pkg/symmetry"
)

// AxisOrder selects which Miller axis varies fastest in memory.
type AxisOrder int

const (
	// XYZ stores h as the fastest-varying axis.
	XYZ AxisOrder = iota
	// ZYX stores l as the fastest-varying axis.
	ZYX
)

func (o AxisOrder) String() string {
	if o == ZYX {
		return "ZYX"
	}
	return "XYZ"
}

// Grid is a dense reciprocal-space array of complex structure factors.
// Nu, Nv, Nw are the sampling counts along h, k and l. When HalfL is set,
// only the l >= 0 half is stored and negative-l values are synthesized from
// Hermitian symmetry on read.
type Grid struct {
	Data       []complex128
	Nu, Nv, Nw int
	Order      AxisOrder
	HalfL      bool
	Cell       *cell.UnitCell
	SpaceGroup *symmetry.SpaceGroup
}

// lsize returns the stored extent along l.
func (g *Grid) lsize() int {
	if g.HalfL {
		return g.Nw/2 + 1
	}
	return g.Nw
}

// index returns the storage index of logical coordinates (u,v,w).
func (g *Grid) index(u, v, w int) int {
	if g.Order == ZYX {
		return w + g.lsize()*(v+g.Nv*u)
	}
	return u + g.Nu*(v+g.Nv*w)
}

func wrapCoord(idx, n int) int {
	if idx <= n/2 {
		return idx
	}
	return idx - n
}

func unwrapCoord(h, n int) int {
	if h >= 0 {
		return h
	}
	return h + n
}

// ToHKL returns the Miller index addressed by logical grid coordinates.
// For half-l grids w is the l index directly.
func (g *Grid) ToHKL(u, v, w int) hkl.Miller {
	l := w
	if !g.HalfL {
		l = wrapCoord(w, g.Nw)
	}
	return hkl.Miller{wrapCoord(u, g.Nu), wrapCoord(v, g.Nv), l}
}

// GetHKL returns the value stored for a Miller index. For half-l grids a
// negative-l read is synthesized as the complex conjugate of the mirrored
// positive-l cell; no space-group phase is involved, only Hermitian
// symmetry.
func (g *Grid) GetHKL(m hkl.Miller) complex128 {
	if g.HalfL && m[2] < 0 {
		return cmplx.Conj(g.GetHKL(m.Friedel()))
	}
	u := unwrapCoord(m[0], g.Nu)
	v := unwrapCoord(m[1], g.Nv)
	w := m[2]
	if !g.HalfL {
		w = unwrapCoord(m[2], g.Nw)
	}
	return g.Data[g.index(u, v, w)]
}

// SetHKL stores a value for a Miller index. For half-l grids the index must
// have l >= 0.
func (g *Grid) SetHKL(m hkl.Miller, val complex128) {
	if g.HalfL && m[2] < 0 {
		panic("grid: cannot store negative l in a half-length grid")
	}
	u := unwrapCoord(m[0], g.Nu)
	v := unwrapCoord(m[1], g.Nv)
	w := m[2]
	if !g.HalfL {
		w = unwrapCoord(m[2], g.Nw)
	}
	g.Data[g.index(u, v, w)] = val
}

// Assemble expands sparse asymmetric-unit data onto a dense grid. Every
// grid cell is mapped back to a Miller index, reduced to the asymmetric
// unit, and filled with the phase-shifted (and possibly conjugated) ASU
// value; cells with no datum are zero.
func Assemble(data *AsuData, dims [3]int, halfL bool, order AxisOrder) (*Grid, error) {
	return AssembleWorkers(data, dims, halfL, order, runtime.NumCPU())
}

// AssembleWorkers is Assemble with an explicit worker count. Sections along
// the slowest axis are filled concurrently; the workers share only
// read-only state.
func AssembleWorkers(data *AsuData, dims [3]int, halfL bool, order AxisOrder, workers int) (*Grid, error) {
	if halfL && order == ZYX {
		return nil, fmt.Errorf("%w: half-l storage requires XYZ", ErrAxisOrder)
	}
	if !data.DataFitsInto(dims) {
		return nil, fmt.Errorf("%w: need more than %v for max index %v",
			ErrGridTooSmall, dims, data.MaxAbsIndex())
	}
	asu, err := symmetry.NewReciprocalAsu(data.SpaceGroup)
	if err != nil {
		return nil, err
	}
	values := make(map[hkl.Miller]complex128, len(data.Data))
	for _, d := range data.Data {
		values[d.HKL] = d.Value
	}
	g := &Grid{
		Nu: dims[0], Nv: dims[1], Nw: dims[2],
		Order: order, HalfL: halfL,
		Cell: data.Cell, SpaceGroup: data.SpaceGroup,
	}
	g.Data = make([]complex128, g.Nu*g.Nv*g.lsize())

	if workers < 1 {
		workers = 1
	}
	lsize := g.lsize()
	perWorker := (lsize + workers - 1) / workers
	var wg sync.WaitGroup
	for c := 0; c < workers; c++ {
		start := c * perWorker
		end := start + perWorker
		if end > lsize {
			end = lsize
		}
		if start >= end {
			break
		}
		wg.Add(1)
		go func(wlo, whi int) {
			defer wg.Done()
			for w := wlo; w < whi; w++ {
				for v := 0; v < g.Nv; v++ {
					for u := 0; u < g.Nu; u++ {
						m := g.ToHKL(u, v, w)
						red, _ := asu.Reduce(m)
						val, ok := values[red.ASU]
						if !ok {
							continue
						}
						if red.Friedel {
							val = cmplx.Conj(val)
						}
						phase := red.PhaseShiftDeg * math.Pi / 180
						g.Data[g.index(u, v, w)] = val * cmplx.Exp(complex(0, phase))
					}
				}
			}
		}(start, end)
	}
	wg.Wait()
	return g, nil
}

// Disassemble is the left inverse of Assemble up to symmetry: it walks the
// grid in storage order, reduces every cell's index, and emits the canonical
// asymmetric-unit value for each representative the first time it is
// encountered. Zero-valued cells are treated as absent. Only XYZ grids are
// supported.
func (g *Grid) Disassemble() (*AsuData, error) {
	if g.Order != XYZ {
		return nil, fmt.Errorf("%w: disassembly requires XYZ", ErrAxisOrder)
	}
	asu, err := symmetry.NewReciprocalAsu(g.SpaceGroup)
	if err != nil {
		return nil, err
	}
	out := &AsuData{Cell: g.Cell, SpaceGroup: g.SpaceGroup}
	seen := make(map[hkl.Miller]bool)
	lsize := g.lsize()
	for w := 0; w < lsize; w++ {
		for v := 0; v < g.Nv; v++ {
			for u := 0; u < g.Nu; u++ {
				val := g.Data[g.index(u, v, w)]
				if val == 0 {
					continue
				}
				m := g.ToHKL(u, v, w)
				red, _ := asu.Reduce(m)
				if seen[red.ASU] {
					continue
				}
				seen[red.ASU] = true
				phase := -red.PhaseShiftDeg * math.Pi / 180
				asuVal := val * cmplx.Exp(complex(0, phase))
				if red.Friedel {
					asuVal = cmplx.Conj(asuVal)
				}
				out.Data = append(out.Data, AsuDatum{HKL: red.ASU, Value: asuVal})
			}
		}
	}
	return out, nil
}
