package main

import (
	"fmt"
	"strconv"
	"strings"

	compfilter "github.com/R3DNO5E/speaker-compensation-filter"
)

// coeffFlags collects repeated -coeffs rate=file bindings.
type coeffFlags []coeffBinding

type coeffBinding struct {
	rate int
	path string
}

func (c *coeffFlags) String() string {
	parts := make([]string, len(*c))
	for i, b := range *c {
		parts[i] = fmt.Sprintf("%d=%s", b.rate, b.path)
	}
	return strings.Join(parts, ",")
}

func (c *coeffFlags) Set(value string) error {
	rateStr, path, ok := strings.Cut(value, "=")
	if !ok {
		return fmt.Errorf("expected rate=file, got %q", value)
	}

	rate, err := strconv.Atoi(rateStr)
	if err != nil || rate <= 0 {
		return fmt.Errorf("invalid rate in %q", value)
	}

	*c = append(*c, coeffBinding{rate: rate, path: path})
	return nil
}

// load reads every bound coefficient file into a filter table entry.
func (c coeffFlags) load() ([]compfilter.FilterSpec, error) {
	filters := make([]compfilter.FilterSpec, 0, len(c))
	for _, b := range c {
		taps, err := compfilter.LoadCoefficientsFile(b.path)
		if err != nil {
			return nil, err
		}
		filters = append(filters, compfilter.FilterSpec{
			Rate:   b.rate,
			Coeffs: compfilter.ToFloat32(taps),
		})
	}
	return filters, nil
}

// pcmScale returns the full-scale magnitude for a PCM bit depth.
func pcmScale(bitDepth int) float64 {
	switch bitDepth {
	case 16:
		return 32767.0
	case 24:
		return 8388607.0
	case 32:
		return 2147483647.0
	default:
		return 32767.0
	}
}

// deinterleave splits interleaved integer PCM into per-channel float32
// blocks normalized to [-1, 1].
func deinterleave(data []int, channels int, scale float64) [][]float32 {
	frames := len(data) / channels
	out := make([][]float32, channels)
	for ch := range out {
		out[ch] = make([]float32, frames)
	}

	inv := 1.0 / scale
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			out[ch][i] = float32(float64(data[i*channels+ch]) * inv)
		}
	}

	return out
}

// interleave merges per-channel float32 blocks back into integer PCM,
// clipping to full scale.
func interleave(channels [][]float32, frames int, scale float64) []int {
	out := make([]int, frames*len(channels))
	for ch, block := range channels {
		for i := 0; i < frames; i++ {
			v := float64(block[i]) * scale
			if v > scale {
				v = scale
			} else if v < -scale {
				v = -scale
			}
			out[i*len(channels)+ch] = int(v)
		}
	}
	return out
}
