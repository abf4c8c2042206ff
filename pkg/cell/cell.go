// Package cell implements unit-cell geometry for reciprocal-space
// calculations: cell volume, the fractionalization matrix and the 1/d^2
// resolution metric computed from a Miller index.
package cell

import (
	"math"

	"github.com/rowlesmr/gemmi/pkg/hkl"
)

// UnitCell holds the six cell parameters: lengths in Angstroms and angles
// in degrees.
type UnitCell struct {
	A, B, C             float64
	Alpha, Beta, Gamma  float64

	// cached derived quantities, filled lazily by init
	initialized bool
	volume      float64
	frac        [3][3]float64 // fractionalization matrix (upper triangular)
}

// New returns a unit cell with the given parameters.
func New(a, b, c, alpha, beta, gamma float64) *UnitCell {
	u := &UnitCell{A: a, B: b, C: c, Alpha: alpha, Beta: beta, Gamma: gamma}
	u.init()
	return u
}

// NewCubic returns a cubic cell with edge a.
func NewCubic(a float64) *UnitCell {
	return New(a, a, a, 90, 90, 90)
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }

func (u *UnitCell) init() {
	cosA := math.Cos(rad(u.Alpha))
	cosB := math.Cos(rad(u.Beta))
	cosG := math.Cos(rad(u.Gamma))
	sinG := math.Sin(rad(u.Gamma))

	sq := 1 - cosA*cosA - cosB*cosB - cosG*cosG + 2*cosA*cosB*cosG
	u.volume = u.A * u.B * u.C * math.Sqrt(sq)

	// Standard orthogonalization (a along x, b in the xy plane), inverted
	// analytically since the matrix is upper triangular.
	o00 := u.A
	o01 := u.B * cosG
	o02 := u.C * cosB
	o11 := u.B * sinG
	o12 := u.C * (cosA - cosB*cosG) / sinG
	o22 := u.volume / (u.A * u.B * sinG)

	u.frac[0][0] = 1 / o00
	u.frac[1][1] = 1 / o11
	u.frac[2][2] = 1 / o22
	u.frac[0][1] = -o01 / (o00 * o11)
	u.frac[1][2] = -o12 / (o11 * o22)
	u.frac[0][2] = (o01*o12 - o02*o11) / (o00 * o11 * o22)
	u.initialized = true
}

// Volume returns the unit-cell volume in cubic Angstroms.
func (u *UnitCell) Volume() float64 {
	if !u.initialized {
		u.init()
	}
	return u.volume
}

// ReciprocalVec returns the reciprocal-space vector h*a* + k*b* + l*c*
// in the orthogonal frame, i.e. frac^T applied to the Miller index.
func (u *UnitCell) ReciprocalVec(m hkl.Miller) [3]float64 {
	if !u.initialized {
		u.init()
	}
	h, k, l := float64(m[0]), float64(m[1]), float64(m[2])
	var s [3]float64
	for i := 0; i < 3; i++ {
		s[i] = u.frac[0][i]*h + u.frac[1][i]*k + u.frac[2][i]*l
	}
	return s
}

// Calculate1D2 returns 1/d^2 for the given Miller index. This is the
// resolution metric used throughout binning and scaling.
func (u *UnitCell) Calculate1D2(m hkl.Miller) float64 {
	s := u.ReciprocalVec(m)
	return s[0]*s[0] + s[1]*s[1] + s[2]*s[2]
}

// CalculateD returns the resolution d in Angstroms for the given index.
// The result is +Inf for (0,0,0).
func (u *UnitCell) CalculateD(m hkl.Miller) float64 {
	return 1 / math.Sqrt(u.Calculate1D2(m))
}
