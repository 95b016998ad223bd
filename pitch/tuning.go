package pitch

import (
	"fmt"
	"math"
	"sync"
)

// Default tuning reference: A4 = 440Hz
const (
	DefaultTuneNote = 69.0
	DefaultTuneFreq = 440.0
)

// DefaultTuning is A4 (note 69) tuned to 440Hz
var DefaultTuning = Tuning{Number: DefaultTuneNote, Frequency: DefaultTuneFreq}

// Tuning anchors note numbers to absolute frequencies using 12 tone equal
// temperament. It is a plain value; every conversion takes the Tuning it
// should be computed under.
type Tuning struct {
	Number    float64 `json:"note"` // reference note number (69 = A4)
	Frequency float64 `json:"freq"` // frequency of Number in Hz
}

// FrequencyOf returns the frequency in Hz of the given note number detuned
// by detuneCents.
func (t Tuning) FrequencyOf(number, detuneCents float64) float64 {
	return t.Frequency * math.Exp2((number+detuneCents/100-t.Number)/12)
}

// NumberOf returns the fractional note number for a frequency in Hz.
func (t Tuning) NumberOf(hz float64) float64 {
	return t.Number + 12*math.Log2(hz/t.Frequency)
}

// Validate checks that the tuning can be used for conversions.
func (t Tuning) Validate() error {
	if math.IsNaN(t.Number) || math.IsInf(t.Number, 0) {
		return fmt.Errorf("%w: note %v", ErrInvalidTuning, t.Number)
	}
	if !(t.Frequency > 0) || math.IsInf(t.Frequency, 0) {
		return fmt.Errorf("%w: frequency %v", ErrInvalidTuning, t.Frequency)
	}
	return nil
}

func (t Tuning) String() string {
	return fmt.Sprintf("%g=%gHz", t.Number, t.Frequency)
}

// Reference owns a mutable tuning reference. Writes only affect
// conversions started after the write; Notes already constructed keep the
// Tuning they were built with.
type Reference struct {
	mu sync.RWMutex
	t  Tuning
}

// Default is the process-wide reference used by the command line tools.
// Library code never reads it implicitly.
var Default = NewReference()

// NewReference returns a reference at DefaultTuning.
func NewReference() *Reference {
	return &Reference{t: DefaultTuning}
}

// Tuning returns a snapshot of the current tuning.
func (r *Reference) Tuning() Tuning {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.t
}

// Number returns the reference note number.
func (r *Reference) Number() float64 {
	return r.Tuning().Number
}

// Frequency returns the frequency of the reference note in Hz.
func (r *Reference) Frequency() float64 {
	return r.Tuning().Frequency
}

// SetNumber changes the reference note number.
func (r *Reference) SetNumber(number float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := Tuning{Number: number, Frequency: r.t.Frequency}
	if err := next.Validate(); err != nil {
		return err
	}
	r.t = next
	return nil
}

// SetFrequency changes the frequency of the reference note.
func (r *Reference) SetFrequency(hz float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := Tuning{Number: r.t.Number, Frequency: hz}
	if err := next.Validate(); err != nil {
		return err
	}
	r.t = next
	return nil
}

// Set replaces both halves of the reference at once.
func (r *Reference) Set(t Tuning) error {
	if err := t.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.t = t
	r.mu.Unlock()
	return nil
}

// ResetNumber restores DefaultTuneNote.
func (r *Reference) ResetNumber() {
	r.mu.Lock()
	r.t.Number = DefaultTuneNote
	r.mu.Unlock()
}

// ResetFrequency restores DefaultTuneFreq.
func (r *Reference) ResetFrequency() {
	r.mu.Lock()
	r.t.Frequency = DefaultTuneFreq
	r.mu.Unlock()
}

// Note builds a Note from src under the current tuning. See New.
func (r *Reference) Note(src any) (Note, error) {
	return New(r.Tuning(), src)
}
