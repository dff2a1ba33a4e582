package fir

import (
	"github.com/R3DNO5E/speaker-compensation-filter/internal/delay"
	"github.com/R3DNO5E/speaker-compensation-filter/internal/simdops"
)

// outputUnroll is the number of output samples computed per iteration of the
// accelerated path's outer loop.
const outputUnroll = 4

// Convolver computes direct-form FIR output from a delay line and a filter
// instance:
//
//	out[i] = Σ_{j=0}^{order} taps[j] · window[i+j]
//
// taps[0] multiplies the oldest sample in the window, taps[order] the most
// recent. The kernel (scalar or SIMD) is chosen once at construction, never
// per call; Apply performs no allocation and takes no locks.
//
// The SIMD kernel may reorder the summation and so can differ from the
// scalar reference in the low-order bits of the result. That spread is
// bounded by reassociation error, which grows with the tap count.
type Convolver[F simdops.Float] struct {
	kernel func(taps, window, out []F)
}

// NewConvolver returns a convolver using the vectorized kernel when simd is
// true, the scalar reference kernel otherwise. The vector kernels fall back
// to pure Go on hardware without the needed instruction sets, so the flag
// selects a strategy, not a safety property.
func NewConvolver[F simdops.Float](simd bool) *Convolver[F] {
	c := &Convolver[F]{}
	if simd {
		ops := simdops.For[F]()
		c.kernel = func(taps, window, out []F) {
			applySIMD(ops, taps, window, out)
		}
	} else {
		c.kernel = applyScalar[F]
	}
	return c
}

// Apply convolves the pending block of len(out) samples. The delay line must
// already contain the block (Append happens first); the window read is the
// contiguous order+count slice ending at the line's cursor. Missing
// arguments or an empty output block make Apply a no-op.
func (c *Convolver[F]) Apply(inst *Instance[F], line *delay.Line[F], out []F) {
	if c == nil || inst == nil || line == nil || len(out) == 0 {
		return
	}

	window := line.Window(inst.order, len(out))
	if window == nil {
		return
	}

	c.kernel(inst.taps, window, out)
}

// applyScalar is the correctness reference: a plain double loop with
// left-to-right accumulation.
func applyScalar[F simdops.Float](taps, window, out []F) {
	for i := range out {
		var sum F
		for j, c := range taps {
			sum += c * window[i+j]
		}
		out[i] = sum
	}
}

// applySIMD batches outputUnroll output samples per outer iteration, each
// computed by the vectorized FMA dot-product kernel, with a scalar-shaped
// tail for the remainder.
func applySIMD[F simdops.Float](ops *simdops.Ops[F], taps, window, out []F) {
	n := len(taps)
	count := len(out)
	batched := (count / outputUnroll) * outputUnroll

	for i := 0; i < batched; i += outputUnroll {
		out[i] = ops.DotProductUnsafe(taps, window[i:i+n])
		out[i+1] = ops.DotProductUnsafe(taps, window[i+1:i+1+n])
		out[i+2] = ops.DotProductUnsafe(taps, window[i+2:i+2+n])
		out[i+3] = ops.DotProductUnsafe(taps, window[i+3:i+3+n])
	}

	for i := batched; i < count; i++ {
		out[i] = ops.DotProductUnsafe(taps, window[i:i+n])
	}
}

// DCGain returns the sum of a set's taps, the filter's gain at 0 Hz.
func DCGain[F simdops.Float](s *Set[F]) F {
	if s == nil {
		return 0
	}
	return simdops.For[F]().Sum(s.taps)
}
