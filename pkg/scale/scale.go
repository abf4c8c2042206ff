// Package scale fits a multiplicative/exponential scale between calculated
// and observed structure-factor amplitude sets: an overall scale k and an
// overall isotropic B factor, with an optional anisotropic correction.
// The scale applied to reflection h is k * exp(-2*B*stol2) where
// stol2 = sin^2(theta)/lambda^2 = 1/(4 d^2).
package scale

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/rowlesmr/gemmi/pkg/cell"
	"github.com/rowlesmr/gemmi/pkg/grid"
	"github.com/rowlesmr/gemmi/pkg/hkl"
	"github.com/rowlesmr/gemmi/pkg/symmetry"
)

// ErrInsufficientData is returned when too few paired reflections exist for
// a stable fit.
var ErrInsufficientData = errors.New("scale: insufficient data")

// MinFitPoints is the smallest number of paired reflections accepted by the
// fitting routines.
const MinFitPoints = 30

// ValueSigma is one observed amplitude with its standard deviation.
type ValueSigma struct {
	HKL   hkl.Miller
	Value float64
	Sigma float64
}

type point struct {
	stol2 float64
	fcalc float64
	fobs  float64
}

// Scaling owns the fit state. Prepare points, fit, then apply; the fitted
// parameters are plain fields and read-only for callers after the fit.
type Scaling struct {
	Cell       *cell.UnitCell
	SpaceGroup *symmetry.SpaceGroup

	KOverall float64
	BOverall float64
	// Aniso holds an optional anisotropic overall correction as the six
	// unique tensor elements (b11,b22,b33,b12,b13,b23); all zero means
	// isotropic only.
	Aniso [6]float64

	MaxIter int

	points []point
}

// New returns a Scaling for the given cell and space group with k=1, B=0.
func New(c *cell.UnitCell, sg *symmetry.SpaceGroup) *Scaling {
	return &Scaling{Cell: c, SpaceGroup: sg, KOverall: 1, MaxIter: 20}
}

// PreparePoints pairs calculated amplitudes with observations sharing the
// same asymmetric-unit Miller index. Unpaired, non-positive and NaN entries
// are skipped.
func (s *Scaling) PreparePoints(calc *grid.AsuData, obs []ValueSigma) error {
	asu, err := symmetry.NewReciprocalAsu(s.SpaceGroup)
	if err != nil {
		return err
	}
	calcAmp := make(map[hkl.Miller]float64, len(calc.Data))
	for _, d := range calc.Data {
		red, err := asu.Reduce(d.HKL)
		if err != nil {
			return err
		}
		calcAmp[red.ASU] = cmplxAbs(d.Value)
	}
	s.points = s.points[:0]
	for _, o := range obs {
		if math.IsNaN(o.Value) || o.Value <= 0 {
			continue
		}
		red, err := asu.Reduce(o.HKL)
		if err != nil {
			return err
		}
		fc, ok := calcAmp[red.ASU]
		if !ok || fc <= 0 {
			continue
		}
		s.points = append(s.points, point{
			stol2: s.Cell.Calculate1D2(o.HKL) / 4,
			fcalc: fc,
			fobs:  o.Value,
		})
	}
	return nil
}

func cmplxAbs(v complex128) float64 {
	return math.Hypot(real(v), imag(v))
}

// NPoints returns the number of paired reflections.
func (s *Scaling) NPoints() int { return len(s.points) }

// FitIsotropicBApproximately obtains closed-form starting values by linear
// regression of ln(Fobs/Fcalc) against stol2: the intercept gives ln(k) and
// the slope gives -2B.
func (s *Scaling) FitIsotropicBApproximately() error {
	if len(s.points) < MinFitPoints {
		return fmt.Errorf("%w: %d paired reflections, need %d",
			ErrInsufficientData, len(s.points), MinFitPoints)
	}
	xs := make([]float64, len(s.points))
	ys := make([]float64, len(s.points))
	for i, p := range s.points {
		xs[i] = p.stol2
		ys[i] = math.Log(p.fobs / p.fcalc)
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	s.KOverall = math.Exp(alpha)
	s.BOverall = -beta / 2
	return nil
}

// FitParameters refines k and B by nonlinear least squares on
// sum (k*exp(-2*B*stol2)*Fcalc - Fobs)^2, Gauss-Newton with the normal
// equations solved per iteration.
func (s *Scaling) FitParameters() error {
	if len(s.points) < MinFitPoints {
		return fmt.Errorf("%w: %d paired reflections, need %d",
			ErrInsufficientData, len(s.points), MinFitPoints)
	}
	k, b := s.KOverall, s.BOverall
	if k <= 0 {
		k = 1
	}
	for iter := 0; iter < s.MaxIter; iter++ {
		var jtj [4]float64 // symmetric 2x2
		var jtr [2]float64
		for _, p := range s.points {
			e := math.Exp(-2 * b * p.stol2)
			r := k*e*p.fcalc - p.fobs
			jk := e * p.fcalc
			jb := -2 * p.stol2 * k * e * p.fcalc
			jtj[0] += jk * jk
			jtj[1] += jk * jb
			jtj[3] += jb * jb
			jtr[0] += jk * r
			jtr[1] += jb * r
		}
		jtj[2] = jtj[1]
		a := mat.NewDense(2, 2, jtj[:])
		rhs := mat.NewVecDense(2, []float64{-jtr[0], -jtr[1]})
		var delta mat.VecDense
		if err := delta.SolveVec(a, rhs); err != nil {
			return fmt.Errorf("scale: normal equations singular: %w", err)
		}
		k += delta.AtVec(0)
		b += delta.AtVec(1)
		if math.Abs(delta.AtVec(0)) < 1e-10*math.Abs(k)+1e-14 &&
			math.Abs(delta.AtVec(1)) < 1e-10*math.Abs(b)+1e-14 {
			break
		}
	}
	s.KOverall = k
	s.BOverall = b
	return nil
}

// ScaleFactor returns the multiplicative scale for one reflection,
// including the anisotropic correction when configured.
func (s *Scaling) ScaleFactor(m hkl.Miller) float64 {
	stol2 := s.Cell.Calculate1D2(m) / 4
	f := s.KOverall * math.Exp(-2*s.BOverall*stol2)
	if s.hasAniso() {
		f *= s.anisoFactor(m)
	}
	return f
}

func (s *Scaling) hasAniso() bool {
	for _, v := range s.Aniso {
		if v != 0 {
			return true
		}
	}
	return false
}

// anisoFactor evaluates exp(0.5 * r^T B r) over the reciprocal-space vector
// of the index.
func (s *Scaling) anisoFactor(m hkl.Miller) float64 {
	r := s.Cell.ReciprocalVec(m)
	rur := r[0]*r[0]*s.Aniso[0] + r[1]*r[1]*s.Aniso[1] + r[2]*r[2]*s.Aniso[2] +
		2*(r[0]*r[1]*s.Aniso[3]+r[0]*r[2]*s.Aniso[4]+r[1]*r[2]*s.Aniso[5])
	return math.Exp(0.5 * rur)
}

// ScaleData rescales a calculated dataset in place by the fitted model.
func (s *Scaling) ScaleData(data *grid.AsuData) {
	for i := range data.Data {
		data.Data[i].Value *= complex(s.ScaleFactor(data.Data[i].HKL), 0)
	}
}

// ScaleValueSigmas rescales observed amplitudes (and their sigmas) in place.
func (s *Scaling) ScaleValueSigmas(obs []ValueSigma) {
	for i := range obs {
		f := s.ScaleFactor(obs[i].HKL)
		obs[i].Value *= f
		obs[i].Sigma *= f
	}
}
