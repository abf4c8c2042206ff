package merge

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/rowlesmr/gemmi/pkg/binner"
)

// Weighting selects how group means are formed in the statistics:
// X is unweighted, Y uses 1/sigma^2 weights for the means, and U uses
// 1/sigma^2 weights for the means and for the half-set correlation.
type Weighting byte

const (
	WeightX Weighting = 'X'
	WeightY Weighting = 'Y'
	WeightU Weighting = 'U'
)

// MergingStats accumulates the classic merging statistics for one
// resolution shell. The R-factor numerators follow the standard
// definitions: per group with n observations and deviation sum
// D = sum|I_i - <I>|, Rmerge adds D, Rmeas adds sqrt(n/(n-1))*D and Rpim
// adds D/sqrt(n-1); the common denominator is the summed intensity.
type MergingStats struct {
	AllRefl    int
	UniqueRefl int
	StatsRefl  int // groups with redundancy >= 2

	rMergeNum    float64
	rMeasNum     float64
	rPimNum      float64
	intensitySum float64
	ccHalf       float64
}

func (s *MergingStats) add(devSum float64, nobs int, intensitySum float64) {
	s.AllRefl += nobs
	s.UniqueRefl++
	if nobs > 1 {
		s.StatsRefl++
		s.rMergeNum += devSum
		t := devSum / math.Sqrt(float64(nobs-1))
		s.rPimNum += t
		s.rMeasNum += math.Sqrt(float64(nobs)) * t
	}
	s.intensitySum += intensitySum
}

// RMerge returns sum|I - <I>| / sum I.
func (s *MergingStats) RMerge() float64 { return s.rMergeNum / s.intensitySum }

// RMeas returns the redundancy-corrected R factor.
func (s *MergingStats) RMeas() float64 { return s.rMeasNum / s.intensitySum }

// RPim returns the precision-indicating R factor.
func (s *MergingStats) RPim() float64 { return s.rPimNum / s.intensitySum }

// CCHalf returns the Pearson correlation between the two half-dataset
// means, or NaN when fewer than two groups contribute.
func (s *MergingStats) CCHalf() float64 { return s.ccHalf }

// groupMean returns the (possibly weighted) mean intensity of a group.
func groupMean(obs []Refl, w Weighting) float64 {
	var sumW, sumWV float64
	for _, r := range obs {
		weight := 1.0
		if w != WeightX {
			weight = 1 / (r.Sigma * r.Sigma)
		}
		sumW += weight
		sumWV += weight * r.Value
	}
	return sumWV / sumW
}

// CalculateMergingStats computes per-shell merging statistics over the
// prepared (still multi-record) collection. With a nil binner one aggregate
// shell is returned. The half datasets for CC1/2 are formed by assigning
// alternate observations of each group to either half, which keeps the
// statistic deterministic.
func (in *Intensities) CalculateMergingStats(b *binner.Binner, w Weighting) ([]MergingStats, error) {
	if in.State != Prepared {
		return nil, fmt.Errorf("%w: statistics need prepared unmerged data", ErrInsufficientData)
	}
	switch w {
	case WeightX, WeightY, WeightU:
	default:
		return nil, fmt.Errorf("%w: unknown weighting scheme %q", ErrInsufficientData, string(w))
	}
	nbins := 1
	if b != nil {
		nbins = b.Size()
	}
	stats := make([]MergingStats, nbins)
	half1 := make([][]float64, nbins)
	half2 := make([][]float64, nbins)

	for start := 0; start < len(in.Data); {
		end := start + 1
		for end < len(in.Data) && sameGroup(in.Data[start], in.Data[end]) {
			end++
		}
		group := in.Data[start:end]
		bin := 0
		if b != nil {
			bin = b.GetBin(group[0].HKL, in.Cell)
		}
		mean := groupMean(group, w)
		var devSum, intensitySum float64
		for _, r := range group {
			devSum += math.Abs(r.Value - mean)
			intensitySum += r.Value
		}
		stats[bin].add(devSum, len(group), intensitySum)
		if len(group) >= 2 {
			var a, bb []Refl
			for i, r := range group {
				if i%2 == 0 {
					a = append(a, r)
				} else {
					bb = append(bb, r)
				}
			}
			halfW := WeightX
			if w == WeightU {
				halfW = WeightU
			}
			half1[bin] = append(half1[bin], groupMean(a, halfW))
			half2[bin] = append(half2[bin], groupMean(bb, halfW))
		}
		start = end
	}
	for i := range stats {
		if len(half1[i]) >= 2 {
			stats[i].ccHalf = pearson(half1[i], half2[i], nil)
		} else {
			stats[i].ccHalf = math.NaN()
		}
	}
	return stats, nil
}

func pearson(xs, ys, weights []float64) float64 {
	return stat.Correlation(xs, ys, weights)
}
