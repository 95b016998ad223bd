package midifile

import (
	"io"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"

	"go-synth/midi"
	"go-synth/timeline"
)

// Write encodes events as a single-track file at a fixed tempo. Event
// ticks are in units of resolution ticks per quarter note.
func Write(w io.Writer, events []timeline.Event, resolution uint16, bpm float64) error {
	if err := timeline.Validate(events); err != nil {
		return err
	}
	sorted := append([]timeline.Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Tick < sorted[j].Tick })

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(bpm))
	var last int64
	for _, e := range sorted {
		tick := max(e.Tick, 0)
		tr.Add(uint32(tick-last), midi.Encode(e))
		last = tick
	}
	tr.Close(0)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(resolution)
	if err := s.Add(tr); err != nil {
		return err
	}
	_, err := s.WriteTo(w)
	return err
}
