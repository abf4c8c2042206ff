// Package hkl provides the Miller index type shared by the reflection-data
// packages. A Miller index is the integer triple (h,k,l) addressing one
// reflection in reciprocal space.
package hkl

import "fmt"

// Miller is an integer Miller index (h,k,l).
type Miller [3]int

// Friedel returns the Friedel mate (-h,-k,-l).
func (m Miller) Friedel() Miller {
	return Miller{-m[0], -m[1], -m[2]}
}

// IsZero reports whether the index is (0,0,0).
func (m Miller) IsZero() bool {
	return m[0] == 0 && m[1] == 0 && m[2] == 0
}

// Less orders indices lexicographically by (h, k, l).
func (m Miller) Less(o Miller) bool {
	if m[0] != o[0] {
		return m[0] < o[0]
	}
	if m[1] != o[1] {
		return m[1] < o[1]
	}
	return m[2] < o[2]
}

func (m Miller) String() string {
	return fmt.Sprintf("(%d %d %d)", m[0], m[1], m[2])
}
