// Package tone renders notes as simple periodic waveforms, either as
// sample slices, beep streamers for the speaker, or WAV files, and detects
// the pitch of rendered audio.
package tone

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gopxl/beep"

	"go-synth/pitch"
)

// DefaultAmplitude leaves headroom when several tones are mixed
const DefaultAmplitude = 0.3

// Wave is an oscillator shape
type Wave int

const (
	Sine Wave = iota
	Square
	Saw
	Triangle
)

var waveNames = [...]string{"sine", "square", "saw", "triangle"}

var ErrUnknownWave = errors.New("unknown wave")

func (w Wave) String() string {
	if w < 0 || int(w) >= len(waveNames) {
		return fmt.Sprintf("Wave(%d)", int(w))
	}
	return waveNames[w]
}

// ParseWave accepts a wave name as printed by String.
func ParseWave(s string) (Wave, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range waveNames {
		if s == name {
			return Wave(i), nil
		}
	}
	return Sine, fmt.Errorf("%w: %q", ErrUnknownWave, s)
}

// value returns the waveform at phase p in [0, 1)
func (w Wave) value(p float64) float64 {
	switch w {
	case Square:
		if p < 0.5 {
			return 1
		}
		return -1
	case Saw:
		return 2*p - 1
	case Triangle:
		return 1 - 4*math.Abs(p-0.5)
	default:
		return math.Sin(2 * math.Pi * p)
	}
}

// Tone is a fixed-pitch waveform
type Tone struct {
	Wave      Wave
	Frequency float64 // Hz
	Amplitude float64 // peak, 0-1
	Duration  time.Duration
}

// FromNote returns a one second sine tone at the note's frequency.
func FromNote(n pitch.Note) Tone {
	return Tone{
		Wave:      Sine,
		Frequency: n.Frequency(),
		Amplitude: DefaultAmplitude,
		Duration:  time.Second,
	}
}

// Note returns the nearest note to the tone's frequency.
func (t Tone) Note(tuning pitch.Tuning) (pitch.Note, error) {
	return pitch.FromFrequency(tuning, t.Frequency)
}

// Samples returns the number of samples in the tone at rate.
func (t Tone) Samples(rate int) int {
	if t.Duration <= 0 || rate <= 0 {
		return 0
	}
	return int(math.Round(t.Duration.Seconds() * float64(rate)))
}

// at returns sample i of total. The first and last 5ms are ramped to
// avoid clicks.
func (t Tone) at(i, total, rate int) float64 {
	phase := math.Mod(t.Frequency*float64(i)/float64(rate), 1)
	v := t.Wave.value(phase) * t.Amplitude

	ramp := rate / 200
	if ramp > 0 {
		if i < ramp {
			v *= float64(i) / float64(ramp)
		}
		if left := total - 1 - i; left < ramp {
			v *= float64(left) / float64(ramp)
		}
	}
	return v
}

// Generate renders the whole tone as mono samples.
func (t Tone) Generate(rate int) []float64 {
	total := t.Samples(rate)
	out := make([]float64, total)
	for i := range out {
		out[i] = t.at(i, total, rate)
	}
	return out
}

// Streamer plays the tone once through beep.
func (t Tone) Streamer(sr beep.SampleRate) beep.Streamer {
	return &streamer{tone: t, rate: int(sr), total: t.Samples(int(sr))}
}

type streamer struct {
	tone  Tone
	rate  int
	total int
	pos   int
}

func (s *streamer) Stream(samples [][2]float64) (n int, ok bool) {
	for n < len(samples) && s.pos < s.total {
		v := s.tone.at(s.pos, s.total, s.rate)
		samples[n][0] = v
		samples[n][1] = v
		n++
		s.pos++
	}
	return n, n > 0
}

func (s *streamer) Err() error { return nil }
