package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rowlesmr/gemmi/internal/models"
	"github.com/rowlesmr/gemmi/pkg/binner"
	"github.com/rowlesmr/gemmi/pkg/cell"
	"github.com/rowlesmr/gemmi/pkg/config"
	"github.com/rowlesmr/gemmi/pkg/grid"
	"github.com/rowlesmr/gemmi/pkg/merge"
	"github.com/rowlesmr/gemmi/pkg/scale"
	"github.com/rowlesmr/gemmi/pkg/symmetry"
)

func main() {
	// Parse command line arguments
	inputPath := flag.String("input", "", "Text file with unmerged observations (h k l I sigma [batch])")
	cellStr := flag.String("cell", "", "Unit cell as a,b,c,alpha,beta,gamma (or a single edge for cubic)")
	sgName := flag.String("spacegroup", "P 1", "Space group in Hermann-Mauguin notation")
	configPath := flag.String("config", "gemmi.yaml", "Path to YAML configuration file")
	bins := flag.Int("bins", 0, "Number of resolution shells (overrides config)")
	mergedOut := flag.String("output", "", "Optional output file for merged intensities")
	calcPath := flag.String("calc", "", "Optional file with calculated amplitudes (h k l F sigma) to fit a scale against")
	flag.Parse()

	// Validate inputs
	if *inputPath == "" || *cellStr == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *bins > 0 {
		cfg.Binning.Bins = *bins
	}

	uc, err := parseCell(*cellStr)
	if err != nil {
		log.Fatalf("Bad -cell argument: %v", err)
	}
	sg, err := symmetry.Find(*sgName)
	if err != nil {
		log.Fatalf("Bad -spacegroup argument: %v", err)
	}

	f, err := os.Open(*inputPath)
	if err != nil {
		log.Fatalf("Failed to open input: %v", err)
	}
	obs, err := models.ReadObservations(f)
	f.Close()
	if err != nil {
		log.Fatalf("Failed to read observations: %v", err)
	}

	intensities := &merge.Intensities{Cell: uc, SpaceGroup: sg, Type: merge.Unmerged}
	for _, o := range obs {
		intensities.AddIfValid(o.HKL, 0, o.Value, o.Sigma)
	}
	fmt.Printf("Read %d observations (%d usable) from %s\n",
		len(obs), len(intensities.Data), *inputPath)

	if err := intensities.RemoveSystematicAbsences(); err != nil {
		log.Fatalf("Failed to remove systematic absences: %v", err)
	}

	dt := merge.Anomalous
	if strings.EqualFold(cfg.Merging.DataType, "mean") {
		dt = merge.Mean
	}
	if err := intensities.PrepareForMerging(dt); err != nil {
		log.Fatalf("Failed to prepare for merging: %v", err)
	}

	dMax, dMin := intensities.ResolutionRange()
	fmt.Printf("Space group: %s   Resolution: %.2f - %.2f A\n", sg, dMax, dMin)

	method := binner.Dstar3
	if strings.EqualFold(cfg.Binning.Method, "dstar2") {
		method = binner.Dstar2
	}
	var b binner.Binner
	inv := make([]float64, len(intensities.Data))
	for i, r := range intensities.Data {
		inv[i] = uc.Calculate1D2(r.HKL)
	}
	if err := b.Setup(cfg.Binning.Bins, method, inv); err != nil {
		log.Fatalf("Failed to set up resolution shells: %v", err)
	}

	weighting := merge.WeightY
	switch strings.ToUpper(cfg.Merging.Weighting) {
	case "X":
		weighting = merge.WeightX
	case "U":
		weighting = merge.WeightU
	}

	stats, err := intensities.CalculateMergingStats(&b, weighting)
	if err != nil {
		log.Fatalf("Failed to calculate merging statistics: %v", err)
	}

	fmt.Println()
	fmt.Println("Shell   d_min    #obs  #uniq  R_merge   R_meas    R_pim    CC1/2")
	for i, s := range stats {
		fmt.Printf("%5d  %6.2f  %6d %6d  %7.4f  %7.4f  %7.4f  %7.4f\n",
			i+1, b.DMin(i), s.AllRefl, s.UniqueRefl,
			s.RMerge(), s.RMeas(), s.RPim(), s.CCHalf())
	}
	overall, err := intensities.CalculateMergingStats(nil, weighting)
	if err != nil {
		log.Fatalf("Failed to calculate overall statistics: %v", err)
	}
	o := overall[0]
	fmt.Printf("Total  %6.2f  %6d %6d  %7.4f  %7.4f  %7.4f  %7.4f\n",
		dMin, o.AllRefl, o.UniqueRefl, o.RMerge(), o.RMeas(), o.RPim(), o.CCHalf())

	if *mergedOut != "" || *calcPath != "" {
		if err := intensities.MergeInPlace(dt); err != nil {
			log.Fatalf("Failed to merge: %v", err)
		}
	}
	if *mergedOut != "" {
		if err := writeMerged(*mergedOut, intensities); err != nil {
			log.Fatalf("Failed to write merged data: %v", err)
		}
		fmt.Printf("\nWrote %d merged reflections to %s\n", len(intensities.Data), *mergedOut)
	}
	if *calcPath != "" {
		fitScale(*calcPath, intensities, cfg)
	}
}

// fitScale fits an overall scale and B factor between calculated amplitudes
// and the square roots of the merged intensities.
func fitScale(calcPath string, in *merge.Intensities, cfg *config.Config) {
	f, err := os.Open(calcPath)
	if err != nil {
		log.Fatalf("Failed to open calculated amplitudes: %v", err)
	}
	calcObs, err := models.ReadObservations(f)
	f.Close()
	if err != nil {
		log.Fatalf("Failed to read calculated amplitudes: %v", err)
	}

	calc := &grid.AsuData{Cell: in.Cell, SpaceGroup: in.SpaceGroup}
	for _, o := range calcObs {
		calc.Data = append(calc.Data, grid.AsuDatum{HKL: o.HKL, Value: complex(o.Value, 0)})
	}

	var obs []scale.ValueSigma
	for _, r := range in.Data {
		if r.Value <= 0 {
			continue
		}
		amp := math.Sqrt(r.Value)
		obs = append(obs, scale.ValueSigma{HKL: r.HKL, Value: amp, Sigma: r.Sigma / (2 * amp)})
	}

	s := scale.New(in.Cell, in.SpaceGroup)
	s.MaxIter = cfg.Scaling.MaxIterations
	if err := s.PreparePoints(calc, obs); err != nil {
		log.Fatalf("Failed to pair reflections for scaling: %v", err)
	}
	if err := s.FitIsotropicBApproximately(); err != nil {
		log.Fatalf("Scale fit failed: %v", err)
	}
	if err := s.FitParameters(); err != nil {
		log.Fatalf("Scale refinement failed: %v", err)
	}
	fmt.Printf("\nScale fit over %d paired reflections: k = %.4f, B = %.2f\n",
		s.NPoints(), s.KOverall, s.BOverall)
}

// parseCell accepts "a,b,c,alpha,beta,gamma" or a single cubic edge.
func parseCell(s string) (*cell.UnitCell, error) {
	parts := strings.Split(s, ",")
	vals := make([]float64, 0, 6)
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q: %w", p, err)
		}
		vals = append(vals, v)
	}
	switch len(vals) {
	case 1:
		return cell.NewCubic(vals[0]), nil
	case 6:
		return cell.New(vals[0], vals[1], vals[2], vals[3], vals[4], vals[5]), nil
	}
	return nil, fmt.Errorf("expected 1 or 6 numbers, got %d", len(vals))
}

func writeMerged(path string, in *merge.Intensities) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(f, "# merged intensities (%s)\n", in.Type)
	for _, r := range in.Data {
		if _, err := fmt.Fprintf(f, "%4d %4d %4d  %12.4f %10.4f  %s  n=%d\n",
			r.HKL[0], r.HKL[1], r.HKL[2], r.Value, r.Sigma, r.IntensityLabel(), r.NObs); err != nil {
			return err
		}
	}
	return nil
}
