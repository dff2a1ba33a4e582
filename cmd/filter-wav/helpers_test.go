package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoeffFlags_Set(t *testing.T) {
	var flags coeffFlags

	require.NoError(t, flags.Set("44100=fir44k.txt"))
	require.NoError(t, flags.Set("48000=fir48k.txt"))
	assert.Equal(t, coeffFlags{
		{rate: 44100, path: "fir44k.txt"},
		{rate: 48000, path: "fir48k.txt"},
	}, flags)
	assert.Equal(t, "44100=fir44k.txt,48000=fir48k.txt", flags.String())

	assert.Error(t, flags.Set("no-separator"))
	assert.Error(t, flags.Set("abc=file.txt"))
	assert.Error(t, flags.Set("-1=file.txt"))
}

func TestDeinterleaveInterleaveRoundTrip(t *testing.T) {
	// Stereo, 3 frames, 16-bit full scale.
	data := []int{100, -100, 200, -200, 32767, -32767}
	scale := pcmScale(16)

	split := deinterleave(data, 2, scale)
	require.Len(t, split, 2)
	assert.Len(t, split[0], 3)
	assert.InDelta(t, 100.0/32767.0, float64(split[0][0]), 1e-6)
	assert.InDelta(t, -200.0/32767.0, float64(split[1][1]), 1e-6)

	merged := interleave(split, 3, scale)
	assert.Equal(t, data, merged)
}

func TestInterleave_Clips(t *testing.T) {
	scale := pcmScale(16)
	merged := interleave([][]float32{{1.5, -1.5}}, 2, scale)
	assert.Equal(t, []int{32767, -32767}, merged)
}

func TestPCMScale(t *testing.T) {
	assert.Equal(t, 32767.0, pcmScale(16))
	assert.Equal(t, 8388607.0, pcmScale(24))
	assert.Equal(t, 2147483647.0, pcmScale(32))
	assert.Equal(t, 32767.0, pcmScale(8), "unknown depths fall back to 16-bit scale")
}
