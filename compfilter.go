package compfilter

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/R3DNO5E/speaker-compensation-filter/internal/delay"
	"github.com/R3DNO5E/speaker-compensation-filter/internal/fir"
)

// Common errors returned by the engine.
var (
	// ErrInvalidConfig indicates invalid configuration parameters.
	ErrInvalidConfig = errors.New("invalid filter configuration")

	// ErrBlockMismatch indicates input/output blocks of unequal length.
	ErrBlockMismatch = errors.New("mismatched block buffers")

	// ErrBlockTooLarge indicates a block longer than Config.MaxBlock.
	ErrBlockTooLarge = errors.New("block exceeds configured maximum")
)

const (
	// maxChannels caps the channel count to a sane layout size.
	maxChannels = 64

	// defaultMaxBlock is the assumed quantum upper bound when the host
	// does not state one. Typical audio hosts deliver 64-8192 samples.
	defaultMaxBlock = 8192
)

// FilterSpec is one host-supplied coefficient table entry. Coeffs holds
// order+1 taps, oldest-sample tap first; the filter order is derived from
// the length.
type FilterSpec struct {
	Rate   int
	Coeffs []float32
}

// Config holds the engine configuration. The filter table is fixed for the
// engine's lifetime; there is no way to mutate it after New.
type Config struct {
	// Filters is the supported-rate coefficient table. At least one entry
	// is required, and each entry needs at least two taps (order >= 1).
	// The highest-order entry doubles as the fallback for unsupported
	// rates.
	Filters []FilterSpec

	// Channels is the number of independent audio channels (2 for stereo).
	Channels int

	// InitialRate selects the filter the channels boot with. Zero means
	// the first table entry's rate.
	InitialRate int

	// MaxBlock is the largest per-quantum block the host will deliver.
	// It sizes the delay lines. The mirror-write delay layout keeps its
	// contiguous-window invariant only for blocks of at most half the
	// active filter order, so MaxBlock may not exceed half the smallest
	// order in the table. Zero selects the default (8192, clamped to
	// that bound).
	MaxBlock int

	// EnableSIMD selects the vectorized convolution kernel. The choice is
	// made once, at construction.
	EnableSIMD bool
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if len(c.Filters) == 0 {
		return fmt.Errorf("%w: at least one filter entry required", ErrInvalidConfig)
	}

	if c.Channels < 1 {
		return fmt.Errorf("%w: channels must be at least 1", ErrInvalidConfig)
	}

	if c.Channels > maxChannels {
		return fmt.Errorf("%w: too many channels (max %d)", ErrInvalidConfig, maxChannels)
	}

	if c.InitialRate < 0 {
		return fmt.Errorf("%w: initial rate must not be negative", ErrInvalidConfig)
	}

	if c.MaxBlock < 0 {
		return fmt.Errorf("%w: max block must not be negative", ErrInvalidConfig)
	}

	return nil
}

// channel pairs one delay line with its active filter instance. active is
// owned by the processing goroutine; pending is the handoff slot the
// non-real-time rate-change path publishes new instances through.
type channel struct {
	line    *delay.Line[float32]
	active  *fir.Instance[float32]
	pending atomic.Pointer[fir.Instance[float32]]
}

// Engine performs rate-adaptive FIR filtering of multichannel audio.
//
// One goroutine (the host's processing callback) calls Process once per
// quantum; that path performs no allocation and takes no locks. SetRate may
// be called from any other goroutine: it prepares new filter instances and
// publishes them through per-channel atomic pointers, and Process swaps them
// in strictly between quanta. Output for a quantum is therefore always
// computed with exactly one coefficient set, and a rate change affects the
// first quantum processed after it and no earlier one.
type Engine struct {
	table    *fir.Table[float32]
	conv     *fir.Convolver[float32]
	channels []channel
	maxBlock int

	// rate is the most recently accepted host rate, read and written on
	// the rate-change path only.
	rate atomic.Int64
}

// New creates an engine from the configuration. Each channel gets a delay
// line sized for the table's largest order plus the maximum block, and boots
// with a clone of the initial rate's entry.
func New(config *Config) (*Engine, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	entries := make([]fir.Entry[float32], len(config.Filters))
	for i, f := range config.Filters {
		entries[i] = fir.Entry[float32]{Rate: f.Rate, Taps: f.Coeffs}
	}

	table, err := fir.NewTable(entries)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	safeBlock := max(1, table.MinOrder()/2)

	maxBlock := config.MaxBlock
	if maxBlock == 0 {
		maxBlock = min(defaultMaxBlock, safeBlock)
	} else if maxBlock > safeBlock {
		return nil, fmt.Errorf("%w: max block %d exceeds half the smallest filter order (%d)",
			ErrInvalidConfig, maxBlock, table.MinOrder())
	}

	initialRate := config.InitialRate
	if initialRate == 0 {
		initialRate = config.Filters[0].Rate
	}

	e := &Engine{
		table:    table,
		conv:     fir.NewConvolver[float32](config.EnableSIMD),
		channels: make([]channel, config.Channels),
		maxBlock: maxBlock,
	}

	capacity := delay.Capacity(table.MaxOrder(), maxBlock)
	initial := table.SelectForRate(initialRate)

	for i := range e.channels {
		line, err := delay.New[float32](capacity)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}

		inst, err := initial.Clone()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}

		e.channels[i].line = line
		e.channels[i].active = inst
	}

	e.rate.Store(int64(initialRate))

	return e, nil
}

// Process runs one quantum: for every channel, append the input block to the
// delay line and convolve it into the output block. Any filter swap prepared
// by SetRate is committed first, before any sample of the quantum is read.
//
// inputs and outputs must have one block per channel, equal in length per
// channel. A nil input with a valid output zero-fills that output; a nil
// output skips the channel entirely, leaving its history untouched.
func (e *Engine) Process(inputs, outputs [][]float32) error {
	if len(inputs) != len(e.channels) || len(outputs) != len(e.channels) {
		return fmt.Errorf("%w: got %d input and %d output blocks for %d channels",
			ErrBlockMismatch, len(inputs), len(outputs), len(e.channels))
	}

	// Validate every block before touching any channel state, so a bad
	// quantum leaves no channel half-processed.
	for i := range e.channels {
		in, out := inputs[i], outputs[i]
		if in == nil || out == nil {
			continue
		}
		if len(in) != len(out) {
			return fmt.Errorf("%w: channel %d: input %d samples, output %d",
				ErrBlockMismatch, i, len(in), len(out))
		}
		if len(out) > e.maxBlock {
			return fmt.Errorf("%w: channel %d: %d samples (max %d)",
				ErrBlockTooLarge, i, len(out), e.maxBlock)
		}
	}

	for i := range e.channels {
		ch := &e.channels[i]
		if next := ch.pending.Swap(nil); next != nil {
			ch.active = next
		}
	}

	for i := range e.channels {
		ch := &e.channels[i]
		in, out := inputs[i], outputs[i]

		if out == nil {
			continue
		}
		if in == nil {
			clear(out)
			continue
		}

		ch.line.Append(ch.active.Order(), in)
		e.conv.Apply(ch.active, ch.line, out)
	}

	return nil
}

// SetRate handles a sample-rate-change notification. It looks up the table
// entry for the rate (falling back to the maximum-capability entry for
// unsupported rates), clones it once per channel, and publishes the clones
// for Process to swap in at the start of the next quantum.
//
// SetRate allocates and so belongs off the real-time path; call it from the
// host's event handler or an auxiliary goroutine. A notification carrying
// the current rate, or a non-positive rate, is a no-op. If preparation
// fails, every channel keeps its previous, still-valid filter.
func (e *Engine) SetRate(rate int) error {
	if rate <= 0 || int64(rate) == e.rate.Load() {
		return nil
	}

	set := e.table.SelectForRate(rate)

	prepared := make([]*fir.Instance[float32], len(e.channels))
	for i := range prepared {
		inst, err := set.Clone()
		if err != nil {
			return fmt.Errorf("select filter for rate %d: %w", rate, err)
		}
		prepared[i] = inst
	}

	for i := range e.channels {
		e.channels[i].pending.Store(prepared[i])
	}

	e.rate.Store(int64(rate))

	return nil
}

// Rate returns the most recently accepted sample rate in Hz.
func (e *Engine) Rate() int { return int(e.rate.Load()) }

// Channels returns the number of channels the engine processes.
func (e *Engine) Channels() int { return len(e.channels) }

// MaxBlock returns the largest block length Process accepts.
func (e *Engine) MaxBlock() int { return e.maxBlock }

// FilterOrder returns the order of the filter currently active on a
// channel. It reflects swaps only after the next Process call commits them.
// Not safe to call concurrently with Process.
func (e *Engine) FilterOrder(ch int) int {
	if ch < 0 || ch >= len(e.channels) {
		return 0
	}
	return e.channels[ch].active.Order()
}

// SupportedRates returns the rates the coefficient table covers.
func (e *Engine) SupportedRates() []int { return e.table.Rates() }

// Reset zeroes every channel's sample history. The active filters are kept.
// Not safe to call concurrently with Process.
func (e *Engine) Reset() {
	for i := range e.channels {
		e.channels[i].line.Reset()
	}
}
