// Package compfilter provides real-time FIR filtering of multichannel audio
// with rate-adaptive coefficient selection, in pure Go.
//
// The engine was built for loudspeaker compensation: a host audio graph
// (PipeWire, JACK, CoreAudio or similar) delivers a periodic quantum of
// 32-bit float sample blocks per channel, and the engine convolves each
// block against a precomputed FIR coefficient set matching the current
// sample rate.
//
// # Features
//
//   - Direct-form FIR convolution with a SIMD fast path (via
//     github.com/tphakala/simd) and a scalar reference path
//   - Mirror-write circular delay lines: contiguous history windows with no
//     wraparound stitching in the hot loop
//   - Rate-adaptive filter selection with atomic between-quanta swaps; the
//     processing path never allocates or locks
//   - Immutable coefficient table with a maximum-capability fallback for
//     transient unsupported rates
//
// # Quick Start
//
//	engine, err := compfilter.New(&compfilter.Config{
//	    Filters: []compfilter.FilterSpec{
//	        {Rate: 44100, Coeffs: taps44k},
//	        {Rate: 48000, Coeffs: taps48k},
//	    },
//	    Channels: 2,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Inside the host's processing callback, once per quantum:
//	if err := engine.Process(inputs, outputs); err != nil {
//	    log.Print(err)
//	}
//
//	// From the host's format/rate event handler:
//	engine.SetRate(newRate)
//
// # Concurrency
//
// Exactly one goroutine may call [Engine.Process]; that path is
// allocation-free and lock-free. [Engine.SetRate] allocates (it deep-copies
// the coefficient set for each channel) and may run on any other goroutine;
// the prepared filters are handed to the processing goroutine through atomic
// pointers and take effect at the start of the next quantum.
//
// # Scope
//
// Coefficients are precomputed constants supplied at startup; the package
// performs no filter design, no resampling, and no frequency-domain
// processing. Connecting to an audio graph is the host's job; see
// cmd/filter-demo for a minimal standalone host.
package compfilter
