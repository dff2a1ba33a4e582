// Command filter-response prints the magnitude response of a FIR
// coefficient file.
//
// Usage:
//
//	filter-response -coeffs fir48k.txt -rate 48000
//	filter-response -coeffs fir48k.txt -rate 48000 -points 64
//
// The response is evaluated by zero-padding the taps to an FFT frame and
// reporting magnitude in dB at evenly spaced frequencies up to Nyquist.
// This is offline analysis tooling; the engine itself never leaves the time
// domain.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"

	compfilter "github.com/R3DNO5E/speaker-compensation-filter"
)

const (
	defaultPoints = 32
	minFFTSize    = 1024

	// silenceFloorDB stands in for log(0) at fully attenuated bins.
	silenceFloorDB = -200.0
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("filter-response: ")

	coeffsPath := flag.String("coeffs", "", "coefficient file (one tap per line)")
	rate := flag.Int("rate", 48000, "sample rate the filter was designed for (Hz)")
	points := flag.Int("points", defaultPoints, "number of frequency points to print")
	flag.Parse()

	if *coeffsPath == "" {
		flag.Usage()
		log.Fatal("missing -coeffs")
	}
	if *rate <= 0 || *points < 1 {
		log.Fatal("rate and points must be positive")
	}

	taps, err := compfilter.LoadCoefficientsFile(*coeffsPath)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("filter: %s\n", *coeffsPath)
	fmt.Printf("  taps:    %d (order %d)\n", len(taps), len(taps)-1)
	fmt.Printf("  rate:    %d Hz\n", *rate)
	fmt.Printf("  DC gain: %+.4f dB\n\n", gainDB(floats.Sum(taps)))

	mags := magnitudeResponse(taps)
	printResponse(mags, *rate, *points)
}

// magnitudeResponse returns the magnitude spectrum of the taps from DC to
// Nyquist, zero-padded to a power-of-two frame comfortably above the tap
// count.
func magnitudeResponse(taps []float64) []float64 {
	n := minFFTSize
	for n < 2*len(taps) {
		n *= 2
	}

	padded := make([]float64, n)
	copy(padded, taps)

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, padded)

	mags := make([]float64, len(coeffs))
	for i, c := range coeffs {
		mags[i] = cmplx.Abs(c)
	}
	return mags
}

func printResponse(mags []float64, rate, points int) {
	nyquist := float64(rate) / 2
	fmt.Println("  frequency    magnitude")

	for p := 0; p <= points; p++ {
		frac := float64(p) / float64(points)
		bin := int(math.Round(frac * float64(len(mags)-1)))
		fmt.Printf("  %8.0f Hz  %+8.2f dB\n", frac*nyquist, gainDB(mags[bin]))
	}
}

func gainDB(mag float64) float64 {
	if mag <= 0 {
		return silenceFloorDB
	}
	return 20 * math.Log10(mag)
}
