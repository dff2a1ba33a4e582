// Command filter-demo is a minimal standalone host for the compensation
// engine: it plays a stereo sine sweep through the filter on the default
// audio device.
//
// Usage:
//
//	filter-demo                                  # transparent filter
//	filter-demo -coeffs 48000=fir48k.txt         # hear a real filter
//	filter-demo -duration 10s -to 12000
//
// In a production deployment the audio graph (PipeWire, JACK, CoreAudio)
// owns the processing callback and rate notifications; this command stands
// in for that collaborator.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ebitengine/oto/v3"

	compfilter "github.com/R3DNO5E/speaker-compensation-filter"
)

const (
	demoRate     = 48000
	demoChannels = 2

	defaultSweepFrom = 40.0
	defaultSweepTo   = 8000.0

	bytesPerFrame = 2 * demoChannels // 16-bit stereo
	maxInt16      = 32767.0
)

// transparentTaps is a precomputed identity filter (unit tap on the newest
// sample) used when no coefficient file is given: the sweep passes through
// the full engine path unchanged.
func transparentTaps(order int) []float32 {
	taps := make([]float32, order+1)
	taps[order] = 1
	return taps
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("filter-demo: ")

	coeffsPath := flag.String("coeffs", "", "rate=file coefficient binding (optional)")
	duration := flag.Duration("duration", 5*time.Second, "sweep duration")
	from := flag.Float64("from", defaultSweepFrom, "sweep start frequency (Hz)")
	to := flag.Float64("to", defaultSweepTo, "sweep end frequency (Hz)")
	flag.Parse()

	filters, err := loadFilters(*coeffsPath)
	if err != nil {
		log.Fatal(err)
	}

	engine, err := compfilter.New(&compfilter.Config{
		Filters:     filters,
		Channels:    demoChannels,
		InitialRate: demoRate,
		EnableSIMD:  true,
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   demoRate,
		ChannelCount: demoChannels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		log.Fatal(err)
	}
	<-ready

	reader, writer := io.Pipe()
	go func() {
		writer.CloseWithError(generateSweep(writer, engine, *duration, *from, *to))
	}()

	player := ctx.NewPlayer(reader)
	defer player.Close()

	log.Printf("playing %v sweep %g Hz -> %g Hz (filter order %d)",
		*duration, *from, *to, engine.FilterOrder(0))
	player.Play()

	for player.IsPlaying() {
		time.Sleep(50 * time.Millisecond)
	}
}

func loadFilters(binding string) ([]compfilter.FilterSpec, error) {
	if binding == "" {
		return []compfilter.FilterSpec{
			{Rate: demoRate, Coeffs: transparentTaps(32)},
		}, nil
	}

	rateStr, path, ok := strings.Cut(binding, "=")
	if !ok {
		return nil, fmt.Errorf("expected rate=file, got %q", binding)
	}
	rate, err := strconv.Atoi(rateStr)
	if err != nil || rate <= 0 {
		return nil, fmt.Errorf("invalid rate in %q", binding)
	}

	taps, err := compfilter.LoadCoefficientsFile(path)
	if err != nil {
		return nil, err
	}

	return []compfilter.FilterSpec{
		{Rate: rate, Coeffs: compfilter.ToFloat32(taps)},
	}, nil
}

// generateSweep synthesizes a logarithmic sine sweep, runs it through the
// engine one block at a time, and writes 16-bit PCM to w.
func generateSweep(w io.Writer, engine *compfilter.Engine, duration time.Duration, from, to float64) error {
	totalFrames := int(duration.Seconds() * demoRate)
	block := engine.MaxBlock()

	in := make([]float32, block)
	outL := make([]float32, block)
	outR := make([]float32, block)
	inputs := make([][]float32, demoChannels)
	outputs := make([][]float32, demoChannels)
	pcm := make([]byte, block*bytesPerFrame)

	logRatio := math.Log(to / from)
	var phase float64

	for done := 0; done < totalFrames; done += block {
		count := min(block, totalFrames-done)

		for i := 0; i < count; i++ {
			t := float64(done+i) / float64(totalFrames)
			freq := from * math.Exp(logRatio*t)
			phase += 2 * math.Pi * freq / demoRate
			in[i] = float32(0.5 * math.Sin(phase))
		}

		inputs[0], inputs[1] = in[:count], in[:count]
		outputs[0], outputs[1] = outL[:count], outR[:count]
		if err := engine.Process(inputs, outputs); err != nil {
			return err
		}

		for i := 0; i < count; i++ {
			l := int16(outL[i] * maxInt16)
			r := int16(outR[i] * maxInt16)
			binary.LittleEndian.PutUint16(pcm[i*bytesPerFrame:], uint16(l))
			binary.LittleEndian.PutUint16(pcm[i*bytesPerFrame+2:], uint16(r))
		}

		if _, err := w.Write(pcm[:count*bytesPerFrame]); err != nil {
			return err
		}
	}

	return nil
}
