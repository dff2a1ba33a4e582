// Package fir implements direct-form FIR filtering for the compensation
// engine: the immutable coefficient table, per-channel filter instances, and
// the convolution kernels that consume the delay line.
package fir

import (
	"fmt"
	"slices"

	"github.com/R3DNO5E/speaker-compensation-filter/internal/simdops"
)

// Set is one immutable coefficient table entry: the taps for a single
// supported sample rate. Sets are shared read-only for the life of the
// process; channels never filter through a Set directly but through an
// owned Instance cloned from it.
type Set[F simdops.Float] struct {
	rate int
	taps []F
}

// Rate returns the sample rate this set was designed for, in Hz.
func (s *Set[F]) Rate() int { return s.rate }

// Order returns the filter order: number of taps minus one.
func (s *Set[F]) Order() int { return len(s.taps) - 1 }

// Taps returns a copy of the coefficient sequence, oldest-sample tap first.
func (s *Set[F]) Taps() []F { return slices.Clone(s.taps) }

// Clone produces a filter instance with its own independent copy of the
// taps. The instance's lifetime is decoupled from the table, so swapping it
// out and releasing it never races a read of shared table storage.
func (s *Set[F]) Clone() (*Instance[F], error) {
	if s == nil {
		return nil, fmt.Errorf("fir: clone of nil coefficient set")
	}

	return &Instance[F]{
		rate:  s.rate,
		order: len(s.taps) - 1,
		taps:  slices.Clone(s.taps),
	}, nil
}

// Instance is an owned copy of one coefficient set, active on exactly one
// channel at a time.
type Instance[F simdops.Float] struct {
	rate  int
	order int
	taps  []F
}

// Rate returns the sample rate the instance was cloned for, in Hz.
func (n *Instance[F]) Rate() int { return n.rate }

// Order returns the filter order.
func (n *Instance[F]) Order() int { return n.order }

// Taps returns the instance's own coefficient slice. Callers must treat it
// as read-only while the instance is active on a channel.
func (n *Instance[F]) Taps() []F { return n.taps }

// Entry describes one coefficient table entry for NewTable. Taps holds
// order+1 coefficients; the order is derived from the length.
type Entry[F simdops.Float] struct {
	Rate int
	Taps []F
}

// Table is the immutable rate-to-coefficients mapping, constructed once at
// startup and consulted on every rate change. Lookup is a linear scan; the
// table holds a handful of entries.
type Table[F simdops.Float] struct {
	sets     []Set[F]
	fallback *Set[F]
	maxOrder int
	minOrder int
}

// NewTable builds a table from the supplied entries. Each entry's taps are
// copied, so the caller's slices may be reused afterwards. The entry with
// the highest order becomes the maximum-capability fallback returned for
// rates the table does not list.
//
// Entries need at least two taps: the mirror-write history layout cannot
// serve a window for an order-0 filter, so single-tap entries are rejected
// here rather than producing silence downstream.
func NewTable[F simdops.Float](entries []Entry[F]) (*Table[F], error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("fir: coefficient table needs at least one entry")
	}

	t := &Table[F]{sets: make([]Set[F], 0, len(entries))}

	for _, e := range entries {
		if e.Rate <= 0 {
			return nil, fmt.Errorf("fir: invalid sample rate %d", e.Rate)
		}
		if len(e.Taps) < 2 {
			return nil, fmt.Errorf("fir: rate %d needs at least two taps (order >= 1)", e.Rate)
		}
		for _, s := range t.sets {
			if s.rate == e.Rate {
				return nil, fmt.Errorf("fir: duplicate entry for rate %d", e.Rate)
			}
		}

		t.sets = append(t.sets, Set[F]{rate: e.Rate, taps: slices.Clone(e.Taps)})
	}

	t.minOrder = t.sets[0].Order()
	for i := range t.sets {
		order := t.sets[i].Order()
		if t.fallback == nil || order > t.maxOrder {
			t.fallback = &t.sets[i]
			t.maxOrder = order
		}
		if order < t.minOrder {
			t.minOrder = order
		}
	}

	return t, nil
}

// SelectForRate returns the entry for an exact rate match, or the
// maximum-capability fallback when the rate is unsupported. An unsupported
// rate is not an error: continuity of audio through a transient rate beats
// refusing to filter.
func (t *Table[F]) SelectForRate(rate int) *Set[F] {
	for i := range t.sets {
		if t.sets[i].rate == rate {
			return &t.sets[i]
		}
	}

	return t.fallback
}

// MaxOrder returns the largest order in the table, which sizes the
// per-channel delay lines.
func (t *Table[F]) MaxOrder() int { return t.maxOrder }

// MinOrder returns the smallest order in the table, which bounds the block
// length the delay lines can absorb without losing window contiguity.
func (t *Table[F]) MinOrder() int { return t.minOrder }

// Rates returns the supported sample rates in table order.
func (t *Table[F]) Rates() []int {
	rates := make([]int, len(t.sets))
	for i := range t.sets {
		rates[i] = t.sets[i].rate
	}
	return rates
}
