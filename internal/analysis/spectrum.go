package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Spectrum is a one-sided power spectrum.
type Spectrum struct {
	Freqs []float64
	Power []float64
}

// PowerSpectrum computes the one-sided spectrum of a uniformly sampled
// signal. The mean is removed and a Hann window applied before the
// transform, so slow drift does not swamp the oscillation content.
func PowerSpectrum(samples []float64, sampleRate float64) *Spectrum {
	n := len(samples)
	if n < 2 || sampleRate <= 0 {
		return &Spectrum{}
	}

	mean := 0.0
	for _, v := range samples {
		mean += v
	}
	mean /= float64(n)

	buf := make([]float64, n)
	for i, v := range samples {
		buf[i] = v - mean
	}
	window.Apply(buf, window.Hann)

	coeffs := fft.FFTReal(buf)

	half := n / 2
	sp := &Spectrum{
		Freqs: make([]float64, half),
		Power: make([]float64, half),
	}
	for i := 0; i < half; i++ {
		sp.Freqs[i] = float64(i) * sampleRate / float64(n)
		sp.Power[i] = cmplx.Abs(coeffs[i])
	}
	return sp
}

// Dominant returns the frequency with the most power, skipping the DC bin.
func (s *Spectrum) Dominant() (freq, power float64) {
	for i := 1; i < len(s.Power); i++ {
		if s.Power[i] > power {
			power = s.Power[i]
			freq = s.Freqs[i]
		}
	}
	return freq, power
}
