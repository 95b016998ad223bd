package timeline

import (
	"errors"
	"fmt"
	"sort"
)

// Note is a reconstructed note. Times are in seconds from the start of the
// timeline. Sustain is when the note actually stopped sounding: the note-off
// time, or the later pedal release if the sustain pedal was held.
type Note struct {
	Channel     uint8
	Number      uint8
	OnVelocity  uint8
	OffVelocity uint8
	On          float64
	Off         float64
	Sustain     float64
}

// Held returns how long the key was held down.
func (n Note) Held() float64 { return n.Off - n.On }

// Sounding returns how long the note sounded, including pedal sustain.
func (n Note) Sounding() float64 { return n.Sustain - n.On }

// Sustained reports whether the pedal kept the note sounding past its release.
func (n Note) Sustained() bool { return n.Sustain > n.Off }

func (n Note) String() string {
	return fmt.Sprintf("ch%d %d on %.3f@%d off %.3f@%d sustain %.3f",
		n.Channel, n.Number, n.On, n.OnVelocity, n.Off, n.OffVelocity, n.Sustain)
}

// TickMapper converts an absolute tick position to seconds.
type TickMapper func(tick int64) float64

// record is an open note. released is set once its note-off has been seen.
type record struct {
	Note
	released bool
}

type channelState struct {
	sustain bool
	open    map[uint8]*record
}

// Reconstructor turns a time-ordered stream of note-on, note-off and
// sustain pedal events into closed Notes. Notes are open from their note-on
// until their end is known; then they move to the finished list.
//
// A Reconstructor is not safe for concurrent use.
type Reconstructor struct {
	channels [NumChannels]channelState
	done     []Note
}

// NewReconstructor returns an empty reconstructor.
func NewReconstructor() *Reconstructor {
	r := &Reconstructor{}
	r.Reset()
	return r
}

// Reset discards all open and finished notes and releases every pedal.
func (r *Reconstructor) Reset() {
	for i := range r.channels {
		r.channels[i] = channelState{open: make(map[uint8]*record)}
	}
	r.done = nil
}

// Apply processes one event occurring at t seconds.
func (r *Reconstructor) Apply(e Event, t float64) error {
	if err := check(e, -1); err != nil {
		return err
	}
	ch := &r.channels[e.Channel]

	switch e.Kind {
	case NoteOn:
		// A repeated note-on ends the open note first
		if n, ok := ch.open[e.Note]; ok {
			if !n.released {
				n.OffVelocity = n.OnVelocity
				n.Off = t
				n.released = true
			}
			n.Sustain = t
			r.finish(ch, n)
		}
		ch.open[e.Note] = &record{Note: Note{
			Channel:    e.Channel,
			Number:     e.Note,
			OnVelocity: e.Velocity,
			On:         t,
		}}

	case NoteOff:
		n, ok := ch.open[e.Note]
		if !ok {
			return nil
		}
		// Keep the first release if note-offs repeat under the pedal
		if !n.released {
			n.OffVelocity = e.Velocity
			n.Off = t
			n.released = true
		}
		if !ch.sustain {
			n.Sustain = t
			r.finish(ch, n)
		}

	case Controller:
		if e.Number != SustainController {
			return nil
		}
		if e.Value >= 64 {
			ch.sustain = true
			return nil
		}
		ch.sustain = false
		for _, n := range ch.open {
			if n.released {
				n.Sustain = t
				r.finish(ch, n)
			}
		}
	}
	return nil
}

// finish moves an open note to the finished list.
func (r *Reconstructor) finish(ch *channelState, n *record) {
	delete(ch.open, n.Number)
	r.done = append(r.done, n.Note)
}

// Notes returns the notes finished so far, sorted.
func (r *Reconstructor) Notes() []Note {
	out := append([]Note(nil), r.done...)
	sortNotes(out)
	return out
}

// Pending returns the still-open notes as if the timeline ended at now,
// without closing them.
func (r *Reconstructor) Pending(now float64) []Note {
	var out []Note
	for i := range r.channels {
		for _, n := range r.channels[i].open {
			out = append(out, closeAt(n, now))
		}
	}
	sortNotes(out)
	return out
}

// Sustaining reports whether the pedal is down on a channel.
func (r *Reconstructor) Sustaining(channel uint8) bool {
	if int(channel) >= NumChannels {
		return false
	}
	return r.channels[channel].sustain
}

// Finish closes every open note at duration and returns all notes sorted by
// (On, Channel, Number, Off). The reconstructor is reset afterwards.
func (r *Reconstructor) Finish(duration float64) []Note {
	for i := range r.channels {
		ch := &r.channels[i]
		for _, n := range ch.open {
			r.done = append(r.done, closeAt(n, duration))
		}
	}
	out := r.done
	sortNotes(out)
	r.Reset()
	return out
}

func closeAt(n *record, t float64) Note {
	note := n.Note
	if !n.released {
		note.OffVelocity = note.OnVelocity
		note.Off = t
	}
	note.Sustain = t
	return note
}

func sortNotes(notes []Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		a, b := &notes[i], &notes[j]
		if a.On != b.On {
			return a.On < b.On
		}
		if a.Channel != b.Channel {
			return a.Channel < b.Channel
		}
		if a.Number != b.Number {
			return a.Number < b.Number
		}
		return a.Off < b.Off
	})
}

// Validate checks every event before any of them is applied.
func Validate(events []Event) error {
	for i, e := range events {
		if err := check(e, i); err != nil {
			return err
		}
	}
	return nil
}

func check(e Event, index int) error {
	if e.Channel >= NumChannels {
		return &MalformedEventChannelError{Channel: e.Channel, Index: index}
	}
	if e.Kind > Controller {
		return fmt.Errorf("%w: %v at index %d", ErrUnknownKind, e.Kind, index)
	}
	return nil
}

// Reconstruct rebuilds the notes of a complete event list. Events must be in
// nondecreasing tick order; toSeconds is called once per event. Notes still
// open at the end close at duration seconds.
func Reconstruct(events []Event, duration float64, toSeconds TickMapper) ([]Note, error) {
	if toSeconds == nil {
		return nil, errors.New("timeline: nil tick mapper")
	}
	if err := Validate(events); err != nil {
		return nil, err
	}

	r := NewReconstructor()
	for _, e := range events {
		if err := r.Apply(e, toSeconds(e.Tick)); err != nil {
			return nil, err
		}
	}
	return r.Finish(duration), nil
}
