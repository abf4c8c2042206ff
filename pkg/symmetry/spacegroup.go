package symmetry

import (
	"fmt"
	"strings"
	"sync"
)

// SpaceGroup identifies a crystallographic space group and carries the
// generator triplets from which its full operation set is built.
type SpaceGroup struct {
	Number     int
	HM         string // Hermann-Mauguin symbol with spaces, e.g. "P 21 21 21"
	generators []string

	once sync.Once
	ops  *GroupOps
	err  error
}

// The table covers the groups exercised by this library. Generators are
// coordinate triplets; centering translations are listed as ordinary
// generators and the closure fills in the rest.
var table = []*SpaceGroup{
	{Number: 1, HM: "P 1", generators: nil},
	{Number: 2, HM: "P -1", generators: []string{"-x,-y,-z"}},
	{Number: 3, HM: "P 1 2 1", generators: []string{"-x,y,-z"}},
	{Number: 4, HM: "P 1 21 1", generators: []string{"-x,y+1/2,-z"}},
	{Number: 5, HM: "C 1 2 1", generators: []string{"-x,y,-z", "x+1/2,y+1/2,z"}},
	{Number: 16, HM: "P 2 2 2", generators: []string{"-x,-y,z", "x,-y,-z"}},
	{Number: 19, HM: "P 21 21 21", generators: []string{"-x+1/2,-y,z+1/2", "-x,y+1/2,-z+1/2"}},
	{Number: 75, HM: "P 4", generators: []string{"-y,x,z"}},
	{Number: 96, HM: "P 43 21 2", generators: []string{"-y+1/2,x+1/2,z+3/4", "-x,-y,z+1/2", "y,x,-z"}},
	{Number: 143, HM: "P 3", generators: []string{"-y,x-y,z"}},
	{Number: 154, HM: "P 32 2 1", generators: []string{"-y,x-y,z+2/3", "y,x,-z"}},
	{Number: 195, HM: "P 2 3", generators: []string{"-x,-y,z", "-x,y,-z", "z,x,y"}},
	{Number: 196, HM: "F 2 3", generators: []string{"-x,-y,z", "-x,y,-z", "z,x,y", "x,y+1/2,z+1/2", "x+1/2,y,z+1/2"}},
}

// Find returns the space group with the given Hermann-Mauguin symbol.
// Spaces in the symbol are optional: "P212121" matches "P 21 21 21".
func Find(name string) (*SpaceGroup, error) {
	want := strings.ReplaceAll(strings.ToUpper(name), " ", "")
	for _, sg := range table {
		if strings.ReplaceAll(sg.HM, " ", "") == want {
			return sg, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown space group %q", ErrInvalidIndex, name)
}

// FindByNumber returns the space group with the given IT number.
func FindByNumber(number int) (*SpaceGroup, error) {
	for _, sg := range table {
		if sg.Number == number {
			return sg, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown space group number %d", ErrInvalidIndex, number)
}

// Operations returns the full, closed operation set of the group.
// The set is built once and cached.
func (sg *SpaceGroup) Operations() (*GroupOps, error) {
	sg.once.Do(func() {
		gens := make([]Op, 0, len(sg.generators))
		for _, t := range sg.generators {
			op, err := ParseTriplet(t)
			if err != nil {
				sg.err = err
				return
			}
			gens = append(gens, op)
		}
		sg.ops, sg.err = Closure(gens)
	})
	return sg.ops, sg.err
}

func (sg *SpaceGroup) String() string { return sg.HM }
