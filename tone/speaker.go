package tone

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"go-synth/pitch"
)

// MaxNoteLength caps auditioned notes
const MaxNoteLength = 2 * time.Second

// Speaker mixes note tones onto the default audio device.
type Speaker struct {
	mu     sync.Mutex
	rate   beep.SampleRate
	wave   Wave
	mixer  *beep.Mixer
	closed bool
}

// OpenSpeaker initializes the audio device. The speaker package is global,
// so only one Speaker should be open at a time.
func OpenSpeaker(rate int, wave Wave) (*Speaker, error) {
	sr := beep.SampleRate(rate)
	if err := speaker.Init(sr, sr.N(100*time.Millisecond)); err != nil {
		return nil, err
	}
	s := &Speaker{rate: sr, wave: wave, mixer: &beep.Mixer{}}
	speaker.Play(s.mixer)
	return s, nil
}

// Play sounds n for d, louder for higher velocities.
func (s *Speaker) Play(n pitch.Note, velocity uint8, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	t := FromNote(n)
	t.Wave = s.wave
	t.Amplitude = DefaultAmplitude * float64(velocity) / 127
	t.Duration = min(d, MaxNoteLength)

	speaker.Lock()
	s.mixer.Add(t.Streamer(s.rate))
	speaker.Unlock()
}

// Close silences every playing tone and releases the device.
func (s *Speaker) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	speaker.Clear()
	speaker.Close()
}
