// Package delay implements the circular sample-history buffer feeding the
// FIR convolution.
//
// The buffer uses a mirror-write layout: every appended sample lands at the
// write cursor and again 2×order positions behind it. When the cursor runs
// off the end of the buffer it warps back onto the mirrored copy, so the most
// recent order+count samples are always readable as one contiguous slice.
// Convolution therefore never has to stitch two wrapped segments together.
package delay

import (
	"fmt"

	"github.com/R3DNO5E/speaker-compensation-filter/internal/simdops"
)

// Line is a fixed-capacity delay line for samples of type F.
//
// A Line has a single-writer discipline: exactly one goroutine (the
// processing callback) may call Append. All slots are zero at construction,
// so convolution during warm-up behaves as if the stream were preceded by
// silence.
type Line[F simdops.Float] struct {
	buf    []F
	cursor int
}

// New creates a delay line with the given capacity in samples.
// Size the capacity with Capacity for the largest order and block the
// caller will use.
func New[F simdops.Float](capacity int) (*Line[F], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("delay: invalid capacity %d", capacity)
	}

	return &Line[F]{
		buf:    make([]F, capacity),
		cursor: capacity - 1,
	}, nil
}

// Capacity returns the buffer size needed for filters up to maxOrder and
// append blocks of up to maxBlock samples. The mirror layout needs at least
// 4×order of room; the block margin keeps the window start in range across
// a wrap. Contiguous window reads additionally require blocks no longer
// than half the active filter order.
func Capacity(maxOrder, maxBlock int) int {
	return 4*maxOrder + maxBlock
}

// Append writes a block of samples into the history for a filter of the
// given order. Each sample is written at the cursor and at the mirror
// position 2×order behind it; when the cursor reaches the end of the buffer
// it continues from the mirror position and the mirror restarts at the
// buffer head.
//
// Appending an empty block or a negative order is a no-op. The caller must
// have sized the line for this order/block combination; that contract is not
// checked here.
func (l *Line[F]) Append(order int, samples []F) {
	if l == nil || order < 0 || len(samples) == 0 {
		return
	}

	w := l.cursor
	m := w - 2*order
	end := len(l.buf)

	for _, s := range samples {
		l.buf[w] = s
		// The mirror can sit below the buffer head right after a swap to a
		// higher order moved 2×order past the cursor. Skipping those writes
		// leaves a bounded warm-up window, not corruption.
		if m >= 0 {
			l.buf[m] = s
		}
		w++
		m++

		if w == end {
			w = m
			m = 0
			if w == end {
				// order 0: the mirror coincides with the cursor.
				w = 0
			}
		}
	}

	l.cursor = w
}

// Window returns the contiguous order+count sample slice ending at the
// cursor: the history a convolution of count output samples reads. The last
// count samples are the pending block, preceded by order samples of older
// history. Returns nil if the requested window is not available.
func (l *Line[F]) Window(order, count int) []F {
	if l == nil || order < 0 || count <= 0 {
		return nil
	}

	start := l.cursor - order - count
	if start < 0 {
		return nil
	}

	return l.buf[start:l.cursor]
}

// Len returns the delay line capacity in samples.
func (l *Line[F]) Len() int {
	return len(l.buf)
}

// Reset zeroes the history and rewinds the cursor to its initial position.
func (l *Line[F]) Reset() {
	clear(l.buf)
	l.cursor = len(l.buf) - 1
}
