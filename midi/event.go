package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"

	"go-synth/timeline"
)

// Decode converts a channel message into a timeline event at tick.
// A note-on with velocity 0 is a note-off. Messages that are not notes or
// control changes return false.
func Decode(msg gomidi.Message, tick int64) (timeline.Event, bool) {
	var channel, key, velocity, controller, value uint8

	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		if velocity == 0 {
			return timeline.NoteOffEvent(tick, channel, key, 0), true
		}
		return timeline.NoteOnEvent(tick, channel, key, velocity), true

	case msg.GetNoteOff(&channel, &key, &velocity):
		return timeline.NoteOffEvent(tick, channel, key, velocity), true

	case msg.GetControlChange(&channel, &controller, &value):
		return timeline.ControlEvent(tick, channel, controller, value), true
	}
	return timeline.Event{}, false
}

// Encode converts a timeline event back into a channel message.
func Encode(e timeline.Event) gomidi.Message {
	switch e.Kind {
	case timeline.NoteOn:
		return gomidi.NoteOn(e.Channel, e.Note, e.Velocity)
	case timeline.NoteOff:
		return gomidi.NoteOffVelocity(e.Channel, e.Note, e.Velocity)
	default:
		return gomidi.ControlChange(e.Channel, e.Number, e.Value)
	}
}
