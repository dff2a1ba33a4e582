// Package testutil provides reusable test helper functions for the filter
// engine tests.
package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/floats"
)

// Default tolerances for various test scenarios.
const (
	DefaultTolerance = 1e-6
	StrictTolerance  = 1e-12
)

// AssertNoNaNOrInf verifies that no elements in the slice are NaN or Inf.
func AssertNoNaNOrInf(t *testing.T, s []float64, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if math.IsNaN(v) {
			return assert.Fail(t, "found NaN", "s[%d] is NaN", i)
		}
		if math.IsInf(v, 0) {
			return assert.Fail(t, "found Inf", "s[%d] is Inf", i)
		}
	}
	return true
}

// AssertDCGain verifies that the sum of coefficients equals the expected DC gain.
func AssertDCGain(t *testing.T, coeffs []float64, expectedGain, tolerance float64) bool {
	t.Helper()
	sum := floats.Sum(coeffs)
	return assert.InDelta(t, expectedGain, sum, tolerance,
		"DC gain = %f, want %f", sum, expectedGain)
}

// AssertSlicesClose verifies that two slices are elementwise equal within
// tolerance.
func AssertSlicesClose(t *testing.T, expected, actual []float64, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	if !assert.Len(t, actual, len(expected), msgAndArgs...) {
		return false
	}
	for i := range expected {
		if !assert.InDelta(t, expected[i], actual[i], tolerance,
			"mismatch at index %d: got %g, want %g", i, actual[i], expected[i]) {
			return false
		}
	}
	return true
}

// AssertSlicesClose32 is AssertSlicesClose for float32 sample blocks.
func AssertSlicesClose32(t *testing.T, expected, actual []float32, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	if !assert.Len(t, actual, len(expected), msgAndArgs...) {
		return false
	}
	for i := range expected {
		if !assert.InDelta(t, float64(expected[i]), float64(actual[i]), tolerance,
			"mismatch at index %d: got %g, want %g", i, actual[i], expected[i]) {
			return false
		}
	}
	return true
}

// MaxAbsError returns the largest elementwise absolute difference between
// two equal-length slices.
func MaxAbsError(a, b []float64) float64 {
	var maxErr float64
	for i := range a {
		if d := math.Abs(a[i] - b[i]); d > maxErr {
			maxErr = d
		}
	}
	return maxErr
}

// Impulse returns a unit impulse block: a single 1.0 followed by n-1 zeros.
func Impulse(n int) []float64 {
	s := make([]float64, n)
	s[0] = 1.0
	return s
}

// Sine fills a block with a sine wave of the given frequency at the given
// sample rate.
func Sine(n int, freq, rate float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.Sin(2 * math.Pi * freq * float64(i) / rate)
	}
	return s
}
