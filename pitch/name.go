package pitch

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// accidentals maps every accepted accidental token to its meaning. The
// note letter is always upper case, so "b" here never collides with B.
var accidentals = map[string]Accidental{
	"#": Sharp,
	"s": Sharp,
	"♯": Sharp,
	"b": Flat,
	"♭": Flat,
	"♮": Natural,
}

var shifts = map[Accidental]int{Sharp: 1, Flat: -1}

// Semitone offsets from C within an octave
var letterOffsets = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

var nameRE = func() *regexp.Regexp {
	tokens := make([]string, 0, len(accidentals))
	for tok := range accidentals {
		tokens = append(tokens, regexp.QuoteMeta(tok))
	}
	sort.Strings(tokens)
	return regexp.MustCompile(`^([A-G])(` + strings.Join(tokens, "|") + `)?(-?[0-9]+)([+-](?:[0-9]+\.?[0-9]*|\.[0-9]+))?$`)
}()

var errBadName = errors.New("expected a note name like C4, Cs4, E♭3+20, a note number, or a frequency like 440hz")

// FromName parses a note name such as "A4", "C#4", "Cs4", "E♭3", "E♮4",
// or "D4+20.5". Detuning beyond half a semitone moves to the nearest
// semitone, so "D4+99" is Ds4 detuned by -1 cent. Plain numbers ("61",
// "63.12") are note numbers and a "hz" suffix ("440hz") is a frequency.
func FromName(t Tuning, text string) (Note, error) {
	s := strings.TrimSpace(text)

	if lower := strings.ToLower(s); strings.HasSuffix(lower, "hz") {
		hz, err := strconv.ParseFloat(strings.TrimSpace(lower[:len(lower)-2]), 64)
		if err != nil {
			return Note{}, &InvalidNoteSourceError{Value: text, Err: err}
		}
		return FromFrequency(t, hz)
	}

	if number, err := strconv.ParseFloat(s, 64); err == nil {
		return FromNumber(t, number)
	}

	n, cents, err := parseName(s)
	if err != nil {
		return Note{}, &InvalidNoteSourceError{Value: text, Err: err}
	}
	if err := t.Validate(); err != nil {
		return Note{}, err
	}
	n, cents, err = fold(n, cents)
	if err != nil {
		return Note{}, &InvalidNoteSourceError{Value: text, Err: err}
	}
	return build(t, n, cents, t.FrequencyOf(float64(n), cents)), nil
}

// parseName returns the semitone number and detuning written in s.
func parseName(s string) (int, float64, error) {
	m := nameRE.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, errBadName
	}

	octave, err := strconv.Atoi(m[3])
	if err != nil {
		return 0, 0, fmt.Errorf("octave %q: %w", m[3], err)
	}
	if math.Abs(float64(octave)) > MaxNumber/12 {
		return 0, 0, fmt.Errorf("octave %q: %w", m[3], ErrNumberRange)
	}

	n := (octave+1)*12 + letterOffsets[m[1][0]] + shifts[accidentals[m[2]]]

	var cents float64
	if m[4] != "" {
		cents, err = strconv.ParseFloat(m[4], 64)
		if err != nil {
			return 0, 0, fmt.Errorf("detune %q: %w", m[4], err)
		}
	}
	return n, cents, nil
}
