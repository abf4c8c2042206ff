// Package symmetry implements crystallographic space-group operations in
// reciprocal space: triplet-coded symmetry operations, group closure, and
// reduction of Miller indices to the asymmetric unit with phase and
// Friedel-mate bookkeeping.
package symmetry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rowlesmr/gemmi/pkg/hkl"
)

// ErrInvalidIndex is returned when an index cannot be reduced because the
// symmetry context is missing or malformed.
var ErrInvalidIndex = errors.New("symmetry: missing or invalid symmetry context")

// Den is the common denominator for operation translations. All standard
// space-group translations (1/2, 1/3, 1/4, 1/6, ...) are exact in 24ths.
const Den = 24

// Op is one symmetry operation: an integer rotation matrix acting on
// fractional coordinates as x' = Rot*x + Tran/Den.
type Op struct {
	Rot  [3][3]int
	Tran [3]int // in units of 1/Den
}

// Identity returns the identity operation.
func Identity() Op {
	return Op{Rot: [3][3]int{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
}

// IsIdentity reports whether the operation is x,y,z.
func (op Op) IsIdentity() bool {
	return op == Identity()
}

// Mul composes two operations: (a.Mul(b))(x) == a(b(x)).
func (a Op) Mul(b Op) Op {
	var r Op
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				r.Rot[i][j] += a.Rot[i][k] * b.Rot[k][j]
			}
		}
		t := a.Tran[i]
		for k := 0; k < 3; k++ {
			t += a.Rot[i][k] * b.Tran[k]
		}
		r.Tran[i] = mod24(t)
	}
	return r
}

func mod24(t int) int {
	t %= Den
	if t < 0 {
		t += Den
	}
	return t
}

// ApplyToHKL transforms a Miller index: the image of h under this operation
// is the row vector h*Rot.
func (op Op) ApplyToHKL(m hkl.Miller) hkl.Miller {
	var r hkl.Miller
	for j := 0; j < 3; j++ {
		r[j] = m[0]*op.Rot[0][j] + m[1]*op.Rot[1][j] + m[2]*op.Rot[2][j]
	}
	return r
}

// PhaseShiftDeg returns the phase shift, in degrees in [0,360), that the
// translation part contributes for the given index: 360 * (h . Tran/Den).
// F(h*Rot) = exp(-2*pi*i * h.Tran/Den) * F(h).
func (op Op) PhaseShiftDeg(m hkl.Miller) float64 {
	ht := m[0]*op.Tran[0] + m[1]*op.Tran[1] + m[2]*op.Tran[2]
	ht = mod24(ht)
	return 360 * float64(ht) / Den
}

// hTranIsIntegral reports whether h.Tran is a whole number of cells.
func (op Op) hTranIsIntegral(m hkl.Miller) bool {
	ht := m[0]*op.Tran[0] + m[1]*op.Tran[1] + m[2]*op.Tran[2]
	return mod24(ht) == 0
}

// ParseTriplet parses a coordinate triplet such as "-y,x-y,z+1/3" into an
// operation. Fractions must be expressible in 24ths.
func ParseTriplet(triplet string) (Op, error) {
	parts := strings.Split(triplet, ",")
	if len(parts) != 3 {
		return Op{}, fmt.Errorf("%w: triplet %q needs 3 components", ErrInvalidIndex, triplet)
	}
	var op Op
	for i, part := range parts {
		row, tran, err := parseComponent(strings.TrimSpace(part))
		if err != nil {
			return Op{}, fmt.Errorf("%w: triplet %q: %v", ErrInvalidIndex, triplet, err)
		}
		op.Rot[i] = row
		op.Tran[i] = tran
	}
	return op, nil
}

// MustParseTriplet is ParseTriplet for literals; it panics on error.
func MustParseTriplet(triplet string) Op {
	op, err := ParseTriplet(triplet)
	if err != nil {
		panic(err)
	}
	return op
}

func parseComponent(s string) (row [3]int, tran int, err error) {
	sign := 1
	num := 0
	haveNum := false
	flush := func(den int) error {
		if !haveNum {
			return nil
		}
		if (num*Den)%den != 0 {
			return fmt.Errorf("fraction %d/%d not expressible in 24ths", num, den)
		}
		tran = mod24(tran + sign*num*Den/den)
		num = 0
		haveNum = false
		return nil
	}
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ':
			i++
		case c == '+' || c == '-':
			if err = flush(1); err != nil {
				return
			}
			if c == '-' {
				sign = -1
			} else {
				sign = 1
			}
			i++
		case c == 'x' || c == 'X':
			row[0] += sign
			sign = 1
			i++
		case c == 'y' || c == 'Y':
			row[1] += sign
			sign = 1
			i++
		case c == 'z' || c == 'Z':
			row[2] += sign
			sign = 1
			i++
		case c >= '0' && c <= '9':
			num = num*10 + int(c-'0')
			haveNum = true
			i++
		case c == '/':
			// denominator follows
			i++
			den := 0
			for i < len(s) && s[i] >= '0' && s[i] <= '9' {
				den = den*10 + int(s[i]-'0')
				i++
			}
			if den == 0 {
				err = fmt.Errorf("bad fraction in %q", s)
				return
			}
			if err = flush(den); err != nil {
				return
			}
			sign = 1
		default:
			err = fmt.Errorf("unexpected character %q in %q", c, s)
			return
		}
	}
	err = flush(1)
	return
}

// Triplet formats the operation back into x,y,z notation.
func (op Op) Triplet() string {
	var parts [3]string
	letters := [3]string{"x", "y", "z"}
	for i := 0; i < 3; i++ {
		var b strings.Builder
		for j := 0; j < 3; j++ {
			switch op.Rot[i][j] {
			case 0:
			case 1:
				if b.Len() > 0 {
					b.WriteByte('+')
				}
				b.WriteString(letters[j])
			case -1:
				b.WriteByte('-')
				b.WriteString(letters[j])
			default:
				if op.Rot[i][j] > 0 && b.Len() > 0 {
					b.WriteByte('+')
				}
				fmt.Fprintf(&b, "%d%s", op.Rot[i][j], letters[j])
			}
		}
		if t := mod24(op.Tran[i]); t != 0 {
			g := gcd(t, Den)
			fmt.Fprintf(&b, "+%d/%d", t/g, Den/g)
		}
		parts[i] = b.String()
	}
	return parts[0] + "," + parts[1] + "," + parts[2]
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
