// Command filter-wav runs a WAV file through the compensation filter engine
// offline.
//
// Usage:
//
//	filter-wav -coeffs 44100=fir44k.txt -coeffs 48000=fir48k.txt input.wav output.wav
//	filter-wav -coeffs 48000=fir48k.txt -simd=false input.wav output.wav
//
// Each -coeffs flag binds one sample rate to a coefficient file (one tap per
// line, '#' comments). The filter matching the input file's sample rate is
// selected automatically; files at unlisted rates run through the
// highest-order entry.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	compfilter "github.com/R3DNO5E/speaker-compensation-filter"
)

const (
	// chunkSamples is the per-channel read size. Blocks handed to the
	// engine are further split to its safe block bound.
	chunkSamples = 4096

	minRequiredArgs = 2
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("filter-wav: ")

	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var coeffs coeffFlags
	flag.Var(&coeffs, "coeffs", "rate=file coefficient binding (repeatable)")
	simd := flag.Bool("simd", true, "use the vectorized convolution kernel")
	verbose := flag.Bool("verbose", false, "print progress information")
	flag.Parse()

	if flag.NArg() < minRequiredArgs {
		flag.Usage()
		return fmt.Errorf("need input and output paths")
	}
	if len(coeffs) == 0 {
		return fmt.Errorf("at least one -coeffs binding required")
	}

	inputPath, outputPath := flag.Arg(0), flag.Arg(1)

	filters, err := coeffs.load()
	if err != nil {
		return err
	}

	start := time.Now()
	frames, err := filterWAV(inputPath, outputPath, filters, *simd, *verbose)
	if err != nil {
		return err
	}

	log.Printf("filtered %d frames in %v", frames, time.Since(start).Round(time.Millisecond))
	return nil
}

func filterWAV(inputPath, outputPath string, filters []compfilter.FilterSpec, simd, verbose bool) (int64, error) {
	in, err := os.Open(inputPath)
	if err != nil {
		return 0, fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	decoder := wav.NewDecoder(in)
	if !decoder.IsValidFile() {
		return 0, fmt.Errorf("invalid WAV file: %s", inputPath)
	}

	format := decoder.Format()
	bitDepth := int(decoder.BitDepth)
	if verbose {
		log.Printf("input: %d Hz, %d channels, %d-bit",
			format.SampleRate, format.NumChannels, bitDepth)
	}

	engine, err := compfilter.New(&compfilter.Config{
		Filters:     filters,
		Channels:    format.NumChannels,
		InitialRate: format.SampleRate,
		EnableSIMD:  simd,
	})
	if err != nil {
		return 0, err
	}
	if verbose {
		log.Printf("filter order %d, block bound %d", engine.FilterOrder(0), engine.MaxBlock())
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	encoder := wav.NewEncoder(out, format.SampleRate, bitDepth, format.NumChannels, 1)

	readBuf := &audio.IntBuffer{
		Format: format,
		Data:   make([]int, chunkSamples*format.NumChannels),
	}
	scale := pcmScale(bitDepth)

	var frames int64
	for {
		n, err := decoder.PCMBuffer(readBuf)
		if err != nil && err != io.EOF {
			return frames, fmt.Errorf("read input: %w", err)
		}
		if n == 0 {
			break
		}

		frameCount := n / format.NumChannels
		inputs := deinterleave(readBuf.Data[:frameCount*format.NumChannels], format.NumChannels, scale)
		outputs := make([][]float32, format.NumChannels)
		for ch := range outputs {
			outputs[ch] = make([]float32, frameCount)
		}

		// The delay-line contract caps the per-call block; feed the
		// chunk through in slices of the engine's bound.
		for off := 0; off < frameCount; off += engine.MaxBlock() {
			hi := min(off+engine.MaxBlock(), frameCount)
			ins := make([][]float32, format.NumChannels)
			outs := make([][]float32, format.NumChannels)
			for ch := range ins {
				ins[ch] = inputs[ch][off:hi]
				outs[ch] = outputs[ch][off:hi]
			}
			if err := engine.Process(ins, outs); err != nil {
				return frames, err
			}
		}

		writeBuf := &audio.IntBuffer{
			Format:         format,
			SourceBitDepth: bitDepth,
			Data:           interleave(outputs, frameCount, scale),
		}
		if err := encoder.Write(writeBuf); err != nil {
			return frames, fmt.Errorf("write output: %w", err)
		}

		frames += int64(frameCount)
	}

	if err := encoder.Close(); err != nil {
		return frames, fmt.Errorf("finalize output: %w", err)
	}

	return frames, nil
}
