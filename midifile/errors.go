package midifile

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors
var (
	ErrUnsupportedTempoMap   = errors.New("tempo changes are not supported")
	ErrUnsupportedTimeFormat = errors.New("only metric time formats are supported")
	ErrNoTracks              = errors.New("file has no tracks")
	ErrNoSuchTrack           = errors.New("no such track")
)

// UnsupportedTempoMapError lists the distinct tempos of a file that changes tempo.
type UnsupportedTempoMapError struct {
	Tempos []float64
}

func (e *UnsupportedTempoMapError) Error() string {
	bpms := make([]string, len(e.Tempos))
	for i, t := range e.Tempos {
		bpms[i] = fmt.Sprintf("%g", t)
	}
	return fmt.Sprintf("%v: %d tempos (%s bpm)", ErrUnsupportedTempoMap, len(e.Tempos), strings.Join(bpms, ", "))
}

func (e *UnsupportedTempoMapError) Is(target error) bool {
	return target == ErrUnsupportedTempoMap
}
