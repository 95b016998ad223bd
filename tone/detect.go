package tone

import (
	"errors"
	"math"

	"github.com/ktye/fft"

	"go-synth/pitch"
)

var ErrNoPitch = errors.New("no pitch detected")

// minDetectSize is the smallest transform Detect will run
const minDetectSize = 256

// Detect estimates the fundamental frequency of a periodic signal from the
// strongest FFT bin, refined by parabolic interpolation of the log
// magnitudes around it. Only the first power-of-two samples are used.
func Detect(samples []float64, rate int) (float64, error) {
	n := 1
	for n*2 <= len(samples) {
		n *= 2
	}
	if n < minDetectSize || rate <= 0 {
		return 0, ErrNoPitch
	}

	f, err := fft.New(n)
	if err != nil {
		return 0, err
	}
	buf := make([]complex128, n)
	for i := range buf {
		hann := (1 - math.Cos(2*math.Pi*float64(i)/float64(n))) / 2
		buf[i] = complex(samples[i]*hann, 0)
	}
	buf = f.Transform(buf)

	mags := make([]float64, n/2)
	peak := 1
	for k := 1; k < n/2; k++ {
		re, im := real(buf[k]), imag(buf[k])
		mags[k] = math.Sqrt(re*re + im*im)
		if mags[k] > mags[peak] {
			peak = k
		}
	}
	if mags[peak] < 1e-9 {
		return 0, ErrNoPitch
	}

	offset := 0.0
	if peak > 1 && peak < n/2-1 {
		a := math.Log(mags[peak-1] + 1e-12)
		b := math.Log(mags[peak])
		c := math.Log(mags[peak+1] + 1e-12)
		if d := a - 2*b + c; d != 0 {
			offset = 0.5 * (a - c) / d
		}
	}
	return (float64(peak) + offset) * float64(rate) / float64(n), nil
}

// DetectNote returns the note nearest the detected frequency.
func DetectNote(t pitch.Tuning, samples []float64, rate int) (pitch.Note, error) {
	hz, err := Detect(samples, rate)
	if err != nil {
		return pitch.Note{}, err
	}
	return pitch.FromFrequency(t, hz)
}
