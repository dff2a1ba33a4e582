package compfilter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ParseCoefficients reads FIR taps from a text stream: one coefficient per
// line, decimal or scientific notation, with blank lines and '#' comments
// ignored. This is the interchange format filter design tools export to.
func ParseCoefficients(r io.Reader) ([]float64, error) {
	var taps []float64

	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("parse coefficients: line %d: %w", lineNo, err)
		}

		taps = append(taps, v)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parse coefficients: %w", err)
	}

	if len(taps) == 0 {
		return nil, fmt.Errorf("parse coefficients: no coefficients found")
	}

	return taps, nil
}

// LoadCoefficientsFile reads FIR taps from a file in the
// ParseCoefficients format.
func LoadCoefficientsFile(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load coefficients: %w", err)
	}
	defer f.Close()

	taps, err := ParseCoefficients(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return taps, nil
}

// ToFloat32 converts design-precision taps to the engine's sample format.
func ToFloat32(taps []float64) []float32 {
	out := make([]float32, len(taps))
	for i, v := range taps {
		out[i] = float32(v)
	}
	return out
}
