package grid

import (
	"testing"

	"github.com/rowlesmr/gemmi/pkg/hkl"
)

// TestMaxAbsIndex verifies the per-axis extent of the data
func TestMaxAbsIndex(t *testing.T) {
	a := &AsuData{Data: []AsuDatum{
		{HKL: hkl.Miller{1, 0, 3}},
		{HKL: hkl.Miller{-2, 1, 0}},
		{HKL: hkl.Miller{0, -1, -1}},
	}}
	if got := a.MaxAbsIndex(); got != [3]int{2, 1, 3} {
		t.Errorf("Expected [2 1 3], got %v", got)
	}
}

// TestDataFitsInto verifies the 2*|h| < dim criterion on every axis
func TestDataFitsInto(t *testing.T) {
	a := &AsuData{Data: []AsuDatum{{HKL: hkl.Miller{2, 1, 3}}}}
	if !a.DataFitsInto([3]int{5, 3, 7}) {
		t.Error("[5 3 7] should fit max index [2 1 3]")
	}
	if a.DataFitsInto([3]int{4, 3, 7}) {
		t.Error("[4 3 7] should not fit: 2*2 >= 4")
	}
	if a.DataFitsInto([3]int{5, 3, 6}) {
		t.Error("[5 3 6] should not fit: 2*3 >= 6")
	}
}

// TestMinimalSize verifies FFT-friendly sizing at two sample rates
func TestMinimalSize(t *testing.T) {
	a := &AsuData{Data: []AsuDatum{{HKL: hkl.Miller{2, 1, 3}}}}

	// rate 1: 2*max+1 = (5,3,7), rounded up to even 2,3,5-smooth
	if got := a.MinimalSize(1.0); got != [3]int{6, 4, 8} {
		t.Errorf("Rate 1.0: expected [6 4 8], got %v", got)
	}

	// rate 1.5: ceil(1.5*(5,3,7)) = (8,5,11) -> (8,6,12)
	if got := a.MinimalSize(1.5); got != [3]int{8, 6, 12} {
		t.Errorf("Rate 1.5: expected [8 6 12], got %v", got)
	}

	// rates below 1 are clamped
	if got := a.MinimalSize(0.5); got != [3]int{6, 4, 8} {
		t.Errorf("Rate 0.5: expected [6 4 8], got %v", got)
	}
}

// TestGoodFFTSize verifies the smallest even 2,3,5-smooth number
func TestGoodFFTSize(t *testing.T) {
	cases := []struct{ n, want int }{
		{1, 2}, {2, 2}, {3, 4}, {7, 8}, {11, 12}, {13, 16},
		{17, 18}, {21, 24}, {25, 30}, {49, 50}, {97, 100},
	}
	for _, c := range cases {
		if got := goodFFTSize(c.n); got != c.want {
			t.Errorf("goodFFTSize(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}
