package hkl

import "testing"

// TestFriedel verifies that the Friedel mate negates every index
func TestFriedel(t *testing.T) {
	m := Miller{1, -2, 3}
	f := m.Friedel()
	if f != (Miller{-1, 2, -3}) {
		t.Errorf("Expected (-1 2 -3), got %v", f)
	}
	if f.Friedel() != m {
		t.Errorf("Friedel mate of the mate should be the original index")
	}
}

// TestIsZero verifies zero detection
func TestIsZero(t *testing.T) {
	if !(Miller{0, 0, 0}).IsZero() {
		t.Error("(0 0 0) should be zero")
	}
	if (Miller{0, 0, 1}).IsZero() {
		t.Error("(0 0 1) should not be zero")
	}
}

// TestLess verifies the lexicographic ordering used for sorting reflections
func TestLess(t *testing.T) {
	cases := []struct {
		a, b Miller
		want bool
	}{
		{Miller{1, 2, 3}, Miller{1, 2, 3}, false},
		{Miller{0, 2, 3}, Miller{1, 0, 0}, true},
		{Miller{1, 1, 9}, Miller{1, 2, 0}, true},
		{Miller{1, 2, 3}, Miller{1, 2, 4}, true},
		{Miller{2, 0, 0}, Miller{1, 9, 9}, false},
	}
	for _, c := range cases {
		if got := c.a.Less(c.b); got != c.want {
			t.Errorf("Less(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

// TestString verifies the display form
func TestString(t *testing.T) {
	if s := (Miller{1, -2, 3}).String(); s != "(1 -2 3)" {
		t.Errorf("Expected (1 -2 3), got %s", s)
	}
}
