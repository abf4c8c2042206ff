package scale

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowlesmr/gemmi/pkg/cell"
	"github.com/rowlesmr/gemmi/pkg/grid"
	"github.com/rowlesmr/gemmi/pkg/hkl"
	"github.com/rowlesmr/gemmi/pkg/symmetry"
)

// syntheticData builds a noiseless calculated/observed pair related by
// fobs = k * exp(-2*B*stol2) * fcalc over 48 reflections
func syntheticData(t *testing.T, k, b float64) (*Scaling, *grid.AsuData, []ValueSigma) {
	t.Helper()
	sg, err := symmetry.Find("P 1")
	require.NoError(t, err)
	u := cell.NewCubic(10)

	calc := &grid.AsuData{Cell: u, SpaceGroup: sg}
	var obs []ValueSigma
	for h := 0; h <= 3; h++ {
		for kk := 0; kk <= 3; kk++ {
			for l := 1; l <= 3; l++ {
				m := hkl.Miller{h, kk, l}
				fc := 40.0 + float64(3*h+2*kk+l)
				calc.Data = append(calc.Data, grid.AsuDatum{HKL: m, Value: complex(fc, 0)})

				stol2 := u.Calculate1D2(m) / 4
				fo := k * math.Exp(-2*b*stol2) * fc
				obs = append(obs, ValueSigma{HKL: m, Value: fo, Sigma: fo / 20})
			}
		}
	}
	s := New(u, sg)
	require.NoError(t, s.PreparePoints(calc, obs))
	require.Equal(t, len(obs), s.NPoints())
	return s, calc, obs
}

// TestFitIsotropicBApproximately verifies exact recovery on noiseless data:
// the log-linear regression is exact when the model holds
func TestFitIsotropicBApproximately(t *testing.T) {
	s, _, _ := syntheticData(t, 2.0, 20.0)
	require.NoError(t, s.FitIsotropicBApproximately())
	assert.InDelta(t, 2.0, s.KOverall, 1e-9)
	assert.InDelta(t, 20.0, s.BOverall, 1e-6)
}

// TestFitParameters verifies the Gauss-Newton refinement starting from the
// approximate fit
func TestFitParameters(t *testing.T) {
	s, _, _ := syntheticData(t, 2.5, 15.0)
	require.NoError(t, s.FitIsotropicBApproximately())
	require.NoError(t, s.FitParameters())
	assert.InDelta(t, 2.5, s.KOverall, 1e-8)
	assert.InDelta(t, 15.0, s.BOverall, 1e-6)
}

// TestFitParametersFromDefault verifies convergence from the k=1, B=0 start
func TestFitParametersFromDefault(t *testing.T) {
	s, _, _ := syntheticData(t, 1.5, 10.0)
	require.NoError(t, s.FitParameters())
	assert.InDelta(t, 1.5, s.KOverall, 1e-6)
	assert.InDelta(t, 10.0, s.BOverall, 1e-4)
}

// TestInsufficientData verifies the pairing threshold
func TestInsufficientData(t *testing.T) {
	sg, err := symmetry.Find("P 1")
	require.NoError(t, err)
	u := cell.NewCubic(10)
	s := New(u, sg)

	calc := &grid.AsuData{Cell: u, SpaceGroup: sg, Data: []grid.AsuDatum{
		{HKL: hkl.Miller{1, 0, 0}, Value: 50},
	}}
	obs := []ValueSigma{{HKL: hkl.Miller{1, 0, 0}, Value: 100, Sigma: 5}}
	require.NoError(t, s.PreparePoints(calc, obs))
	assert.ErrorIs(t, s.FitIsotropicBApproximately(), ErrInsufficientData)
	assert.ErrorIs(t, s.FitParameters(), ErrInsufficientData)
}

// TestPreparePointsPairing verifies that unpaired and unusable entries are
// skipped and that observations pair through symmetry equivalents
func TestPreparePointsPairing(t *testing.T) {
	sg, err := symmetry.Find("P 1")
	require.NoError(t, err)
	u := cell.NewCubic(10)
	s := New(u, sg)

	calc := &grid.AsuData{Cell: u, SpaceGroup: sg, Data: []grid.AsuDatum{
		{HKL: hkl.Miller{1, 2, 3}, Value: 50},
	}}
	obs := []ValueSigma{
		{HKL: hkl.Miller{-1, -2, -3}, Value: 100, Sigma: 5}, // Friedel mate of a calc entry
		{HKL: hkl.Miller{2, 0, 0}, Value: 80, Sigma: 5},     // no calculated partner
		{HKL: hkl.Miller{1, 2, 3}, Value: math.NaN(), Sigma: 5},
		{HKL: hkl.Miller{1, 2, 3}, Value: -4, Sigma: 5},
	}
	require.NoError(t, s.PreparePoints(calc, obs))
	assert.Equal(t, 1, s.NPoints())
}

// TestScaleFactorIsotropic verifies the closed-form scale
func TestScaleFactorIsotropic(t *testing.T) {
	sg, _ := symmetry.Find("P 1")
	u := cell.NewCubic(10)
	s := New(u, sg)
	s.KOverall = 2
	s.BOverall = 20

	m := hkl.Miller{2, 0, 0} // 1/d^2 = 0.04, stol2 = 0.01
	want := 2 * math.Exp(-2*20*0.01)
	assert.InDelta(t, want, s.ScaleFactor(m), 1e-12)
}

// TestScaleFactorAniso verifies the anisotropic correction on a diagonal
// tensor: exp(0.5 * b11 * (h/a)^2) along the first axis
func TestScaleFactorAniso(t *testing.T) {
	sg, _ := symmetry.Find("P 1")
	u := cell.NewCubic(10)
	s := New(u, sg)
	s.Aniso = [6]float64{30, 0, 0, 0, 0, 0}

	m := hkl.Miller{2, 0, 0}
	want := math.Exp(0.5 * 30 * 0.04) // KOverall=1, BOverall=0
	assert.InDelta(t, want, s.ScaleFactor(m), 1e-12)
}

// TestScaleData verifies in-place rescaling of calculated values and of
// observed value/sigma pairs
func TestScaleData(t *testing.T) {
	s, calc, obs := syntheticData(t, 2.0, 20.0)
	require.NoError(t, s.FitIsotropicBApproximately())

	s.ScaleData(calc)
	// after scaling, calculated amplitudes should match the observations
	calcAmp := make(map[hkl.Miller]float64)
	for _, d := range calc.Data {
		calcAmp[d.HKL] = real(d.Value)
	}
	for _, o := range obs {
		assert.InDelta(t, o.Value, calcAmp[o.HKL], 1e-6*o.Value)
	}

	before := obs[0]
	f := s.ScaleFactor(before.HKL)
	s.ScaleValueSigmas(obs)
	assert.InDelta(t, before.Value*f, obs[0].Value, 1e-9)
	assert.InDelta(t, before.Sigma*f, obs[0].Sigma, 1e-9)
}
