package timeline

import "fmt"

// Kind tags the variant held by an Event
type Kind uint8

const (
	NoteOn Kind = iota
	NoteOff
	Controller
)

func (k Kind) String() string {
	switch k {
	case NoteOn:
		return "note-on"
	case NoteOff:
		return "note-off"
	case Controller:
		return "controller"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// SustainController is the sustain pedal controller number
const SustainController uint8 = 64

// NumChannels is the number of MIDI channels
const NumChannels = 16

// Event is a channel-tagged MIDI event at a tick position.
// Note and Velocity apply to NoteOn/NoteOff, Number and Value to Controller.
type Event struct {
	Kind     Kind
	Channel  uint8 // 0-15
	Note     uint8
	Velocity uint8
	Number   uint8 // controller number
	Value    uint8 // controller value
	Tick     int64
}

// NoteOnEvent returns a note-on event
func NoteOnEvent(tick int64, channel, note, velocity uint8) Event {
	return Event{Kind: NoteOn, Channel: channel, Note: note, Velocity: velocity, Tick: tick}
}

// NoteOffEvent returns a note-off event
func NoteOffEvent(tick int64, channel, note, velocity uint8) Event {
	return Event{Kind: NoteOff, Channel: channel, Note: note, Velocity: velocity, Tick: tick}
}

// ControlEvent returns a controller change event
func ControlEvent(tick int64, channel, number, value uint8) Event {
	return Event{Kind: Controller, Channel: channel, Number: number, Value: value, Tick: tick}
}

// SustainEvent returns a sustain pedal event
func SustainEvent(tick int64, channel uint8, down bool) Event {
	var value uint8
	if down {
		value = 127
	}
	return ControlEvent(tick, channel, SustainController, value)
}

func (e Event) String() string {
	switch e.Kind {
	case NoteOn, NoteOff:
		return fmt.Sprintf("%d ch%d %s %d vel %d", e.Tick, e.Channel, e.Kind, e.Note, e.Velocity)
	default:
		return fmt.Sprintf("%d ch%d %s %d=%d", e.Tick, e.Channel, e.Kind, e.Number, e.Value)
	}
}

// Channels returns the sorted set of channels used by the given event lists.
func Channels(lists ...[]Event) []uint8 {
	var seen [256]bool
	for _, events := range lists {
		for _, e := range events {
			seen[e.Channel] = true
		}
	}
	var out []uint8
	for ch, ok := range seen {
		if ok {
			out = append(out, uint8(ch))
		}
	}
	return out
}
