package compfilter

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3DNO5E/speaker-compensation-filter/internal/testutil"
)

const (
	testRateA = 44100
	testRateB = 48000
	testRateC = 192000

	testSeed = 17
)

// tapsA/tapsB share an order so a swap between them exercises the
// filter-change path without an order change.
var (
	tapsA = []float32{0.1, -0.2, 0.3, -0.2, 0.1}
	tapsB = []float32{0.05, 0.1, 0.7, 0.1, 0.05}
	tapsC = []float32{0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.2}
)

func swapTestConfig(channels int) *Config {
	return &Config{
		Filters: []FilterSpec{
			{Rate: testRateA, Coeffs: tapsA},
			{Rate: testRateB, Coeffs: tapsB},
		},
		Channels: channels,
	}
}

// refFilter mirrors the engine arithmetic on an unbounded history buffer:
// out[i] is the tap-weighted sum of the order+1 samples ending at the i-th
// sample of the current block, with pre-stream history reading as silence.
type refFilter struct {
	taps []float32
	hist []float32
}

func (r *refFilter) process(in []float32) []float32 {
	r.hist = append(r.hist, in...)
	order := len(r.taps) - 1
	out := make([]float32, len(in))

	for i := range out {
		current := len(r.hist) - len(in) + i
		var sum float32
		for j, c := range r.taps {
			idx := current - order + j
			if idx >= 0 {
				sum += c * r.hist[idx]
			}
		}
		out[i] = sum
	}

	return out
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		valid  bool
	}{
		{"minimal valid", Config{Filters: []FilterSpec{{Rate: testRateA, Coeffs: tapsA}}, Channels: 1}, true},
		{"no filters", Config{Channels: 2}, false},
		{"zero channels", Config{Filters: []FilterSpec{{Rate: testRateA, Coeffs: tapsA}}}, false},
		{"too many channels", Config{Filters: []FilterSpec{{Rate: testRateA, Coeffs: tapsA}}, Channels: maxChannels + 1}, false},
		{"negative initial rate", Config{Filters: []FilterSpec{{Rate: testRateA, Coeffs: tapsA}}, Channels: 1, InitialRate: -1}, false},
		{"negative max block", Config{Filters: []FilterSpec{{Rate: testRateA, Coeffs: tapsA}}, Channels: 1, MaxBlock: -1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	// Table-level problems surface through New as config errors.
	_, err = New(&Config{
		Filters: []FilterSpec{
			{Rate: testRateA, Coeffs: tapsA},
			{Rate: testRateA, Coeffs: tapsB},
		},
		Channels: 1,
	})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	// An order-0 entry has no window the mirror layout can serve.
	_, err = New(&Config{
		Filters:  []FilterSpec{{Rate: testRateA, Coeffs: []float32{0.5}}},
		Channels: 1,
	})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	// Blocks beyond half the smallest order would break the delay-line
	// window contract.
	_, err = New(&Config{
		Filters:  []FilterSpec{{Rate: testRateA, Coeffs: tapsA}},
		Channels: 1,
		MaxBlock: 64,
	})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNew_Defaults(t *testing.T) {
	engine, err := New(swapTestConfig(2))
	require.NoError(t, err)

	assert.Equal(t, testRateA, engine.Rate(), "initial rate defaults to first entry")
	assert.Equal(t, 2, engine.Channels())
	assert.Equal(t, 2, engine.MaxBlock(), "default block clamps to half the smallest order")
	assert.Equal(t, []int{testRateA, testRateB}, engine.SupportedRates())
	assert.Equal(t, len(tapsA)-1, engine.FilterOrder(0))
	assert.Zero(t, engine.FilterOrder(-1))
	assert.Zero(t, engine.FilterOrder(2))
}

// TestEngine_ImpulseScenario is the reference acceptance sequence: order 3,
// taps [0.1 0.2 0.3 0.4], a one-sample impulse then three zero blocks, taps
// read back in reverse arrival order.
func TestEngine_ImpulseScenario(t *testing.T) {
	engine, err := New(&Config{
		Filters:     []FilterSpec{{Rate: testRateB, Coeffs: []float32{0.1, 0.2, 0.3, 0.4}}},
		Channels:    1,
		InitialRate: testRateB,
	})
	require.NoError(t, err)

	blocks := [][]float32{{1}, {0}, {0}, {0}}
	expected := []float32{0.4, 0.3, 0.2, 0.1}

	for i, block := range blocks {
		out := make([]float32, len(block))
		require.NoError(t, engine.Process([][]float32{block}, [][]float32{out}))
		assert.InDelta(t, float64(expected[i]), float64(out[0]), 1e-6, "quantum %d", i)
	}
}

// TestEngine_SmallestOrder drives an impulse through the shortest table
// entry the engine accepts, order 1, where the block bound collapses to a
// single sample. Every quantum must still produce output.
func TestEngine_SmallestOrder(t *testing.T) {
	engine, err := New(&Config{
		Filters:  []FilterSpec{{Rate: testRateB, Coeffs: []float32{0.5, 0.5}}},
		Channels: 1,
	})
	require.NoError(t, err)
	require.Equal(t, 1, engine.MaxBlock())

	blocks := [][]float32{{1}, {0}, {0}}
	expected := []float32{0.5, 0.5, 0}

	for i, block := range blocks {
		out := []float32{42}
		require.NoError(t, engine.Process([][]float32{block}, [][]float32{out}))
		assert.InDelta(t, float64(expected[i]), float64(out[0]), 1e-6, "quantum %d", i)
	}
}

func TestEngine_MatchesReference(t *testing.T) {
	engine, err := New(swapTestConfig(1))
	require.NoError(t, err)

	ref := &refFilter{taps: tapsA}
	rng := rand.New(rand.NewSource(testSeed))

	for i := 0; i < 300; i++ {
		count := 1 + rng.Intn(engine.MaxBlock())
		block := make([]float32, count)
		for j := range block {
			block[j] = rng.Float32()*2 - 1
		}

		out := make([]float32, count)
		require.NoError(t, engine.Process([][]float32{block}, [][]float32{out}))
		require.Equal(t, ref.process(block), out, "quantum %d", i)
	}
}

// TestEngine_FilterSwap verifies the between-quanta swap contract: output
// before the swap tracks filter A exactly, and the first quantum after the
// swap uses B's full tap set against the history already accumulated.
func TestEngine_FilterSwap(t *testing.T) {
	engine, err := New(swapTestConfig(1))
	require.NoError(t, err)

	ref := &refFilter{taps: tapsA}
	rng := rand.New(rand.NewSource(testSeed))

	process := func(i int) {
		count := 1 + rng.Intn(engine.MaxBlock())
		block := make([]float32, count)
		for j := range block {
			block[j] = rng.Float32()*2 - 1
		}
		out := make([]float32, count)
		require.NoError(t, engine.Process([][]float32{block}, [][]float32{out}))
		require.Equal(t, ref.process(block), out, "quantum %d", i)
	}

	for i := 0; i < 50; i++ {
		process(i)
	}

	// The swap lands at the next quantum boundary; the reference switches
	// taps at the same point but keeps its history.
	require.NoError(t, engine.SetRate(testRateB))
	ref.taps = tapsB

	for i := 50; i < 100; i++ {
		process(i)
	}

	assert.Equal(t, testRateB, engine.Rate())
}

func TestEngine_SwapCommitsAtQuantumBoundary(t *testing.T) {
	engine, err := New(&Config{
		Filters: []FilterSpec{
			{Rate: testRateA, Coeffs: tapsA},
			{Rate: testRateC, Coeffs: tapsC},
		},
		Channels: 1,
	})
	require.NoError(t, err)

	require.NoError(t, engine.SetRate(testRateC))

	// The notification alone must not touch the active filter.
	assert.Equal(t, len(tapsA)-1, engine.FilterOrder(0))
	assert.Equal(t, testRateC, engine.Rate())

	in := []float32{0.5}
	out := []float32{0}
	require.NoError(t, engine.Process([][]float32{in}, [][]float32{out}))
	assert.Equal(t, len(tapsC)-1, engine.FilterOrder(0))
}

func TestEngine_UnsupportedRateFallsBack(t *testing.T) {
	engine, err := New(&Config{
		Filters: []FilterSpec{
			{Rate: testRateA, Coeffs: tapsA},
			{Rate: testRateC, Coeffs: tapsC},
		},
		Channels: 1,
	})
	require.NoError(t, err)

	// 30kHz is not in the table: the maximum-capability entry stands in.
	require.NoError(t, engine.SetRate(30000))
	require.NoError(t, engine.Process([][]float32{{0}}, [][]float32{{0}}))

	assert.Equal(t, len(tapsC)-1, engine.FilterOrder(0))
	assert.Equal(t, 30000, engine.Rate())

	// Repeating the same rate is a no-op, not another clone cycle.
	require.NoError(t, engine.SetRate(30000))
	require.NoError(t, engine.SetRate(0))
	require.NoError(t, engine.SetRate(-48000))
	assert.Equal(t, 30000, engine.Rate())
}

func TestEngine_ProcessBlockErrors(t *testing.T) {
	engine, err := New(swapTestConfig(2))
	require.NoError(t, err)

	blk := make([]float32, 1)

	err = engine.Process([][]float32{blk}, [][]float32{blk, blk})
	assert.ErrorIs(t, err, ErrBlockMismatch)

	err = engine.Process([][]float32{blk, blk}, [][]float32{blk})
	assert.ErrorIs(t, err, ErrBlockMismatch)

	err = engine.Process([][]float32{blk, make([]float32, 2)}, [][]float32{blk, make([]float32, 1)})
	assert.ErrorIs(t, err, ErrBlockMismatch)

	oversize := make([]float32, engine.MaxBlock()+1)
	err = engine.Process([][]float32{oversize, blk}, [][]float32{oversize, blk})
	assert.ErrorIs(t, err, ErrBlockTooLarge)
}

func TestEngine_MissingBuffers(t *testing.T) {
	engine, err := New(swapTestConfig(2))
	require.NoError(t, err)

	out0 := []float32{42, 42}

	// Missing input: the output block goes silent. Missing output: the
	// channel is skipped entirely.
	require.NoError(t, engine.Process(
		[][]float32{nil, {0.5, 0.5}},
		[][]float32{out0, nil},
	))

	assert.Equal(t, []float32{0, 0}, out0)
}

func TestEngine_ChannelsIndependent(t *testing.T) {
	engine, err := New(swapTestConfig(2))
	require.NoError(t, err)

	refs := []*refFilter{{taps: tapsA}, {taps: tapsA}}
	rng := rand.New(rand.NewSource(testSeed))

	for i := 0; i < 100; i++ {
		count := 1 + rng.Intn(engine.MaxBlock())
		inputs := make([][]float32, 2)
		outputs := make([][]float32, 2)
		for ch := range inputs {
			inputs[ch] = make([]float32, count)
			for j := range inputs[ch] {
				inputs[ch][j] = rng.Float32()*2 - 1
			}
			outputs[ch] = make([]float32, count)
		}

		require.NoError(t, engine.Process(inputs, outputs))

		for ch := range outputs {
			require.Equal(t, refs[ch].process(inputs[ch]), outputs[ch],
				"quantum %d channel %d", i, ch)
		}
	}
}

func TestEngine_Reset(t *testing.T) {
	engine, err := New(swapTestConfig(1))
	require.NoError(t, err)

	in := []float32{1, 1}
	out := []float32{0, 0}
	require.NoError(t, engine.Process([][]float32{in}, [][]float32{out}))

	engine.Reset()

	// After a reset the history reads as silence again.
	ref := &refFilter{taps: tapsA}
	require.NoError(t, engine.Process([][]float32{in}, [][]float32{out}))
	assert.Equal(t, ref.process(in), out)
}

func TestEngine_SIMDWithinTolerance(t *testing.T) {
	scalarEngine, err := New(swapTestConfig(1))
	require.NoError(t, err)

	simdConfig := swapTestConfig(1)
	simdConfig.EnableSIMD = true
	simdEngine, err := New(simdConfig)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(testSeed))
	tolerance := float64(len(tapsA)) * 1e-5

	for i := 0; i < 200; i++ {
		count := 1 + rng.Intn(scalarEngine.MaxBlock())
		block := make([]float32, count)
		for j := range block {
			block[j] = rng.Float32()*2 - 1
		}

		want := make([]float32, count)
		got := make([]float32, count)
		require.NoError(t, scalarEngine.Process([][]float32{block}, [][]float32{want}))
		require.NoError(t, simdEngine.Process([][]float32{block}, [][]float32{got}))

		testutil.AssertSlicesClose32(t, want, got, tolerance, "quantum %d", i)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	filters := []FilterSpec{{Rate: RateCD, Coeffs: tapsA}}

	mono, err := NewMono(filters)
	require.NoError(t, err)
	assert.Equal(t, 1, mono.Channels())

	stereo, err := NewStereo(filters)
	require.NoError(t, err)
	assert.Equal(t, 2, stereo.Channels())
	assert.Equal(t, RateCD, stereo.Rate())
}
