package pitch

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Hz is a frequency. New treats Hz values as frequencies and every other
// number as a note number.
type Hz float64

// Accidental is the accidental of a note name
type Accidental int

const (
	None Accidental = iota
	Sharp
	Flat
	Natural
)

func (a Accidental) String() string {
	switch a {
	case Sharp:
		return "s"
	case Flat:
		return "b"
	case Natural:
		return "♮"
	}
	return ""
}

// Fancy returns the Unicode glyph for the accidental.
func (a Accidental) Fancy() string {
	switch a {
	case Sharp:
		return "♯"
	case Flat:
		return "♭"
	case Natural:
		return "♮"
	}
	return ""
}

// Pitch class spellings. Notes tuned above their nearest semitone are
// spelled with flats, everything else with sharps.
var (
	sharpNames = [12]string{"C", "Cs", "D", "Ds", "E", "F", "Fs", "G", "Gs", "A", "As", "B"}
	flatNames  = [12]string{"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B"}
	blackKeys  = [12]bool{1: true, 3: true, 6: true, 8: true, 10: true}
)

// Note is an immutable pitch: the nearest semitone, the detuning from it
// in cents, its name, and the frequency under the Tuning it was built with.
//
// Number()+Detune()/100 always equals the fractional note number the Note
// was built from. Detune lies in [-50, 50): a note exactly halfway between
// two semitones is rounded up and detuned by -50 cents.
type Note struct {
	number     int
	detune     float64
	letter     byte
	accidental Accidental
	octave     int
	frequency  float64
	tuning     Tuning
}

// FromNumber builds a Note from a possibly fractional note number.
func FromNumber(t Tuning, number float64) (Note, error) {
	if err := t.Validate(); err != nil {
		return Note{}, err
	}
	if !(math.Abs(number) <= MaxNumber) {
		return Note{}, &InvalidNoteSourceError{Value: number, Err: ErrNumberRange}
	}
	whole := math.Floor(number)
	n, cents, err := fold(int(whole), snap((number-whole)*100))
	if err != nil {
		return Note{}, &InvalidNoteSourceError{Value: number, Err: err}
	}
	return build(t, n, cents, t.FrequencyOf(float64(n), cents)), nil
}

// FromFrequency builds the Note nearest to hz. The Note keeps hz as its
// frequency rather than recomputing it.
func FromFrequency(t Tuning, hz float64) (Note, error) {
	if err := t.Validate(); err != nil {
		return Note{}, err
	}
	if !(hz > 0) || math.IsInf(hz, 0) {
		return Note{}, &InvalidNoteSourceError{Value: Hz(hz)}
	}
	number := t.NumberOf(hz)
	if !(math.Abs(number) <= MaxNumber) {
		return Note{}, &InvalidNoteSourceError{Value: Hz(hz), Err: ErrNumberRange}
	}
	whole := math.Floor(number)
	n, cents, err := fold(int(whole), snap((number-whole)*100))
	if err != nil {
		return Note{}, &InvalidNoteSourceError{Value: Hz(hz), Err: err}
	}
	return build(t, n, cents, hz), nil
}

// New builds a Note from a note number (any integer or float type), an Hz
// frequency, a note name string, or another Note.
func New(t Tuning, src any) (Note, error) {
	switch v := src.(type) {
	case Note:
		return v, nil
	case Hz:
		return FromFrequency(t, float64(v))
	case string:
		return FromName(t, v)
	case nil:
		return Note{}, &InvalidNoteSourceError{Value: src}
	}

	rv := reflect.ValueOf(src)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return FromNumber(t, float64(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return FromNumber(t, float64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return FromNumber(t, rv.Float())
	}
	return Note{}, &InvalidNoteSourceError{Value: src}
}

// MustNew is like New but panics on error. For tables and tests.
func MustNew(t Tuning, src any) Note {
	n, err := New(t, src)
	if err != nil {
		panic(err)
	}
	return n
}

func build(t Tuning, n int, cents float64, hz float64) Note {
	class := mod(n, 12)
	name := sharpNames[class]
	if cents > 0 {
		name = flatNames[class]
	}
	note := Note{
		number:    n,
		detune:    cents,
		letter:    name[0],
		octave:    floorDiv(n, 12) - 1,
		frequency: hz,
		tuning:    t,
	}
	if len(name) > 1 {
		note.accidental = accidentals[name[1:]]
	}
	return note
}

// fold moves whole semitones out of cents until cents lies in [-50, 50).
func fold(n int, cents float64) (int, float64, error) {
	k := math.Floor((cents + 50) / 100)
	if !(math.Abs(float64(n)+k) <= MaxNumber) {
		return 0, 0, ErrNumberRange
	}
	return n + int(k), cents - 100*k, nil
}

// snap drops binary float noise below a millionth of a cent.
func snap(cents float64) float64 {
	return math.Round(cents*1e6) / 1e6
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// Number returns the nearest semitone.
func (n Note) Number() int { return n.number }

// Detune returns the offset from Number in cents.
func (n Note) Detune() float64 { return n.detune }

// Fractional returns Number()+Detune()/100.
func (n Note) Fractional() float64 { return float64(n.number) + n.detune/100 }

// Accidental returns the accidental of the note's spelling.
func (n Note) Accidental() Accidental { return n.accidental }

// Octave returns the octave number, where note 60 is in octave 4.
func (n Note) Octave() int { return n.octave }

// Frequency returns the frequency in Hz.
func (n Note) Frequency() float64 { return n.frequency }

// Tuning returns the tuning the note was built with.
func (n Note) Tuning() Tuning { return n.tuning }

// Name returns the ASCII name of the nearest semitone, e.g. "Cs4" or "Eb4".
func (n Note) Name() string {
	return string(n.letter) + n.accidental.String() + strconv.Itoa(n.octave)
}

// FancyName returns the name using Unicode accidentals, e.g. "C♯4".
func (n Note) FancyName() string {
	return string(n.letter) + n.accidental.Fancy() + strconv.Itoa(n.octave)
}

// String returns the name followed by the detuning, if any. The result
// parses back to the same Note.
func (n Note) String() string {
	if n.detune == 0 {
		return n.Name()
	}
	sign := ""
	if n.detune > 0 {
		sign = "+"
	}
	return n.Name() + sign + strconv.FormatFloat(n.detune, 'f', -1, 64)
}

// IsBlackKey reports whether the nearest semitone is a black piano key.
func (n Note) IsBlackKey() bool {
	return blackKeys[mod(n.number, 12)]
}

// IsWhiteKey reports whether the nearest semitone is a white piano key.
// Enharmonic spellings such as B♯ or C♭ are white.
func (n Note) IsWhiteKey() bool {
	return !n.IsBlackKey()
}

// Retune returns the note at the same frequency under a different tuning,
// so the number and detune shift by the difference between references.
func (n Note) Retune(t Tuning) (Note, error) {
	return FromFrequency(t, n.frequency)
}

// MIDI returns a note-on message for the nearest semitone.
func (n Note) MIDI(channel, velocity uint8) gomidi.Message {
	key := n.number
	if key < 0 {
		key = 0
	} else if key > 127 {
		key = 127
	}
	return gomidi.NoteOn(channel, uint8(key), velocity)
}

// GoString makes %#v readable in test failures.
func (n Note) GoString() string {
	return fmt.Sprintf("pitch.Note{%s %.4fHz}", n.String(), n.frequency)
}
