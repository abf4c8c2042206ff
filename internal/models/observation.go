package models

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rowlesmr/gemmi/pkg/hkl"
)

// Observation is a single unmerged intensity measurement read from a
// whitespace-separated text stream.
type Observation struct {
	// HKL is the Miller index of the measurement
	HKL hkl.Miller

	// Value is the measured intensity
	Value float64

	// Sigma is the estimated standard deviation of the intensity
	Sigma float64

	// Batch identifies the image or frame the measurement came from
	Batch int
}

// ReadObservations parses observations from r, one per line, in the form
//
//	h k l value sigma [batch]
//
// Blank lines and lines starting with '#' are skipped.
func ReadObservations(r io.Reader) ([]Observation, error) {
	var obs []Observation
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 5 {
			return nil, fmt.Errorf("line %d: expected at least 5 fields, got %d", lineNo, len(fields))
		}

		var o Observation
		for i := 0; i < 3; i++ {
			v, err := strconv.Atoi(fields[i])
			if err != nil {
				return nil, fmt.Errorf("line %d: bad index %q: %w", lineNo, fields[i], err)
			}
			o.HKL[i] = v
		}

		value, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad value %q: %w", lineNo, fields[3], err)
		}
		o.Value = value

		sigma, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad sigma %q: %w", lineNo, fields[4], err)
		}
		o.Sigma = sigma

		if len(fields) >= 6 {
			batch, err := strconv.Atoi(fields[5])
			if err != nil {
				return nil, fmt.Errorf("line %d: bad batch %q: %w", lineNo, fields[5], err)
			}
			o.Batch = batch
		}

		obs = append(obs, o)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading observations: %w", err)
	}
	return obs, nil
}
