package compfilter

// Common sample rates for coefficient tables.
const (
	// RateCD is the CD quality sample rate (Red Book standard).
	RateCD = 44100

	// RateDAT is the DAT/DVD sample rate.
	RateDAT = 48000

	// RateHiRes88 is the high-resolution 2x CD sample rate.
	RateHiRes88 = 88200

	// RateHiRes96 is the high-resolution 2x DAT sample rate.
	RateHiRes96 = 96000

	// RateHiRes176 is the very high resolution 4x CD sample rate.
	RateHiRes176 = 176400

	// RateHiRes192 is the very high resolution 4x DAT sample rate.
	RateHiRes192 = 192000
)

// Channel layout sizes.
const (
	monoChannels   = 1
	stereoChannels = 2
)

// NewMono creates a single-channel engine with default block sizing and the
// SIMD kernel enabled.
func NewMono(filters []FilterSpec) (*Engine, error) {
	return New(&Config{
		Filters:    filters,
		Channels:   monoChannels,
		EnableSIMD: true,
	})
}

// NewStereo creates a two-channel engine (FL/FR) with default block sizing
// and the SIMD kernel enabled. This matches the layout of the original
// loudspeaker compensation deployment.
func NewStereo(filters []FilterSpec) (*Engine, error) {
	return New(&Config{
		Filters:    filters,
		Channels:   stereoChannels,
		EnableSIMD: true,
	})
}
