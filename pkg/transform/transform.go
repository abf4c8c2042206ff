// Package transform bridges reciprocal-space structure-factor grids and
// real-space density maps via the discrete Fourier transform. The map
// convention is rho(x) = (1/V) * sum_h F(h) * exp(-2*pi*i*h.x/N), so a
// grid-to-map transform followed by map-to-grid reproduces the input.
package transform

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/rowlesmr/gemmi/pkg/cell"
	"github.com/rowlesmr/gemmi/pkg/grid"
	"github.com/rowlesmr/gemmi/pkg/symmetry"
)

// Map is a real-valued density map sampled on the unit cell. The memory
// layout follows Order the same way the reciprocal grid does: XYZ stores
// the first axis fastest, ZYX the last.
type Map struct {
	Data       []float64
	Nu, Nv, Nw int
	Order      grid.AxisOrder
	Cell       *cell.UnitCell
	SpaceGroup *symmetry.SpaceGroup
}

// index returns the storage index of (u,v,w) under the map's axis order.
func (m *Map) index(u, v, w int) int {
	if m.Order == grid.ZYX {
		return w + m.Nw*(v+m.Nv*u)
	}
	return u + m.Nu*(v+m.Nv*w)
}

// At returns the density at grid point (u,v,w).
func (m *Map) At(u, v, w int) float64 {
	return m.Data[m.index(u, v, w)]
}

// strides returns the per-axis memory strides for the given layout.
func strides(order grid.AxisOrder, nu, nv, nw int) [3]int {
	if order == grid.ZYX {
		return [3]int{nw * nv, nw, 1}
	}
	return [3]int{1, nu, nu * nv}
}

// fft3 runs an in-place 1D transform along each of the three axes, the
// 2D row-then-column pass extended to a third axis. Forward applies
// sum*exp(-2*pi*i...), inverse the unnormalized sum*exp(+2*pi*i...).
func fft3(data []complex128, n [3]int, s [3]int, inverse bool) {
	for axis := 0; axis < 3; axis++ {
		na := n[axis]
		fft := fourier.NewCmplxFFT(na)
		line := make([]complex128, na)
		out := make([]complex128, na)
		b, c := (axis+1)%3, (axis+2)%3
		for i := 0; i < n[b]; i++ {
			for j := 0; j < n[c]; j++ {
				base := i*s[b] + j*s[c]
				for k := 0; k < na; k++ {
					line[k] = data[base+k*s[axis]]
				}
				if inverse {
					fft.Sequence(out, line)
				} else {
					fft.Coefficients(out, line)
				}
				for k := 0; k < na; k++ {
					data[base+k*s[axis]] = out[k]
				}
			}
		}
	}
}

// fullArray returns the grid's complex data expanded to full length under
// its axis order, synthesizing the negative-l half of Hermitian grids.
func fullArray(g *grid.Grid) []complex128 {
	full := &grid.Grid{
		Nu: g.Nu, Nv: g.Nv, Nw: g.Nw,
		Order: g.Order, Cell: g.Cell, SpaceGroup: g.SpaceGroup,
	}
	if !g.HalfL {
		out := make([]complex128, len(g.Data))
		copy(out, g.Data)
		return out
	}
	full.Data = make([]complex128, g.Nu*g.Nv*g.Nw)
	for w := 0; w < g.Nw; w++ {
		for v := 0; v < g.Nv; v++ {
			for u := 0; u < g.Nu; u++ {
				full.SetHKL(full.ToHKL(u, v, w), g.GetHKL(full.ToHKL(u, v, w)))
			}
		}
	}
	return full.Data
}

// GridToMap computes the real-space density map of a structure-factor grid
// by inverse discrete Fourier transform, normalized by the unit-cell
// volume. Half-l grids are expanded through their Hermitian accessor first.
// The grid's axis order carries over to the map.
func GridToMap(g *grid.Grid) (*Map, error) {
	if g.Cell == nil {
		return nil, fmt.Errorf("grid to map: %w", symmetry.ErrInvalidIndex)
	}
	data := fullArray(g)
	n := [3]int{g.Nu, g.Nv, g.Nw}
	fft3(data, n, strides(g.Order, g.Nu, g.Nv, g.Nw), false)
	invVol := 1 / g.Cell.Volume()
	out := &Map{
		Data: make([]float64, len(data)),
		Nu:   g.Nu, Nv: g.Nv, Nw: g.Nw,
		Order: g.Order, Cell: g.Cell, SpaceGroup: g.SpaceGroup,
	}
	for i, v := range data {
		out.Data[i] = real(v) * invVol
	}
	return out, nil
}

// MapToGrid computes structure factors from a density map:
// F(h) = (V/N) * sum_x rho(x) * exp(+2*pi*i*h.x/N). When halfL is set only
// the l >= 0 half is retained, which requires the XYZ layout.
func MapToGrid(m *Map, halfL bool) (*grid.Grid, error) {
	if halfL && m.Order == grid.ZYX {
		return nil, fmt.Errorf("map to grid: %w", grid.ErrAxisOrder)
	}
	data := make([]complex128, len(m.Data))
	for i, v := range m.Data {
		data[i] = complex(v, 0)
	}
	n := [3]int{m.Nu, m.Nv, m.Nw}
	fft3(data, n, strides(m.Order, m.Nu, m.Nv, m.Nw), true)
	scale := complex(m.Cell.Volume()/float64(m.Nu*m.Nv*m.Nw), 0)
	full := &grid.Grid{
		Data: data,
		Nu:   m.Nu, Nv: m.Nv, Nw: m.Nw,
		Order: m.Order, Cell: m.Cell, SpaceGroup: m.SpaceGroup,
	}
	for i := range full.Data {
		full.Data[i] *= scale
	}
	if !halfL {
		return full, nil
	}
	half := &grid.Grid{
		Nu: m.Nu, Nv: m.Nv, Nw: m.Nw,
		Order: m.Order, HalfL: true,
		Cell: m.Cell, SpaceGroup: m.SpaceGroup,
	}
	half.Data = make([]complex128, half.Nu*half.Nv*(half.Nw/2+1))
	for w := 0; w <= m.Nw/2; w++ {
		for v := 0; v < m.Nv; v++ {
			for u := 0; u < m.Nu; u++ {
				half.SetHKL(half.ToHKL(u, v, w), full.GetHKL(half.ToHKL(u, v, w)))
			}
		}
	}
	return half, nil
}

// ToMap fuses grid assembly and the inverse transform for callers that do
// not need the intermediate grid. A zero exactSize dimension means the
// minimal sufficient size for the data at the given sample rate.
func ToMap(data *grid.AsuData, exactSize [3]int, sampleRate float64, order grid.AxisOrder) (*Map, error) {
	dims := exactSize
	if dims[0] == 0 || dims[1] == 0 || dims[2] == 0 {
		dims = data.MinimalSize(sampleRate)
	}
	g, err := grid.Assemble(data, dims, false, order)
	if err != nil {
		return nil, err
	}
	return GridToMap(g)
}
