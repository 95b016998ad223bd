package timeline

import (
	"errors"
	"reflect"
	"testing"
)

// seconds treats ticks as hundredths of a second
func seconds(tick int64) float64 { return float64(tick) / 100 }

func reconstruct(t *testing.T, duration float64, events ...Event) []Note {
	t.Helper()
	notes, err := Reconstruct(events, duration, seconds)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	return notes
}

func TestSimpleNote(t *testing.T) {
	notes := reconstruct(t, 5,
		NoteOnEvent(0, 0, 60, 100),
		NoteOffEvent(100, 0, 60, 20),
	)
	want := []Note{{Channel: 0, Number: 60, OnVelocity: 100, OffVelocity: 20, On: 0, Off: 1, Sustain: 1}}
	if !reflect.DeepEqual(notes, want) {
		t.Errorf("got %v, want %v", notes, want)
	}
}

func TestSustainPedal(t *testing.T) {
	notes := reconstruct(t, 5,
		NoteOnEvent(0, 0, 60, 100),
		ControlEvent(50, 0, SustainController, 127),
		NoteOffEvent(100, 0, 60, 0),
		ControlEvent(200, 0, SustainController, 0),
	)
	if len(notes) != 1 {
		t.Fatalf("got %d notes: %v", len(notes), notes)
	}
	n := notes[0]
	if n.Off != 1 || n.Sustain != 2 || n.OffVelocity != 0 {
		t.Errorf("got %v, want off 1 sustain 2", n)
	}
	if !n.Sustained() || n.Held() != 1 || n.Sounding() != 2 {
		t.Errorf("Held=%g Sounding=%g Sustained=%v", n.Held(), n.Sounding(), n.Sustained())
	}
}

func TestPedalReleaseKeepsHeldNotes(t *testing.T) {
	notes := reconstruct(t, 10,
		ControlEvent(0, 0, SustainController, 100),
		NoteOnEvent(0, 0, 60, 90),
		NoteOnEvent(0, 0, 64, 90),
		NoteOffEvent(100, 0, 60, 10),
		ControlEvent(200, 0, SustainController, 63),
		NoteOffEvent(300, 0, 64, 11),
	)
	want := []Note{
		{Channel: 0, Number: 60, OnVelocity: 90, OffVelocity: 10, On: 0, Off: 1, Sustain: 2},
		{Channel: 0, Number: 64, OnVelocity: 90, OffVelocity: 11, On: 0, Off: 3, Sustain: 3},
	}
	if !reflect.DeepEqual(notes, want) {
		t.Errorf("got %v\nwant %v", notes, want)
	}
}

func TestPedalIsPerChannel(t *testing.T) {
	notes := reconstruct(t, 10,
		ControlEvent(0, 1, SustainController, 127),
		NoteOnEvent(0, 0, 60, 90),
		NoteOnEvent(0, 1, 60, 90),
		NoteOffEvent(100, 0, 60, 0),
		NoteOffEvent(100, 1, 60, 0),
		ControlEvent(400, 1, SustainController, 0),
	)
	if len(notes) != 2 {
		t.Fatalf("got %v", notes)
	}
	if notes[0].Channel != 0 || notes[0].Sustain != 1 {
		t.Errorf("channel 0 note = %v, want sustain 1", notes[0])
	}
	if notes[1].Channel != 1 || notes[1].Sustain != 4 {
		t.Errorf("channel 1 note = %v, want sustain 4", notes[1])
	}
}

func TestOtherControllersIgnored(t *testing.T) {
	notes := reconstruct(t, 10,
		ControlEvent(0, 0, 1, 127),
		ControlEvent(0, 0, 66, 127),
		NoteOnEvent(0, 0, 60, 90),
		NoteOffEvent(100, 0, 60, 0),
	)
	if len(notes) != 1 || notes[0].Sustain != 1 {
		t.Errorf("got %v", notes)
	}
}

func TestUnreleasedNoteAtEnd(t *testing.T) {
	notes := reconstruct(t, 7.5, NoteOnEvent(100, 3, 72, 64))
	want := []Note{{Channel: 3, Number: 72, OnVelocity: 64, OffVelocity: 64, On: 1, Off: 7.5, Sustain: 7.5}}
	if !reflect.DeepEqual(notes, want) {
		t.Errorf("got %v, want %v", notes, want)
	}
}

func TestSustainedNoteAtEnd(t *testing.T) {
	notes := reconstruct(t, 9,
		ControlEvent(0, 0, SustainController, 127),
		NoteOnEvent(0, 0, 60, 90),
		NoteOffEvent(200, 0, 60, 33),
	)
	want := []Note{{Channel: 0, Number: 60, OnVelocity: 90, OffVelocity: 33, On: 0, Off: 2, Sustain: 9}}
	if !reflect.DeepEqual(notes, want) {
		t.Errorf("got %v, want %v", notes, want)
	}
}

func TestRepeatedNoteOn(t *testing.T) {
	notes := reconstruct(t, 10,
		NoteOnEvent(0, 0, 60, 100),
		NoteOnEvent(200, 0, 60, 80),
		NoteOffEvent(300, 0, 60, 5),
	)
	want := []Note{
		{Channel: 0, Number: 60, OnVelocity: 100, OffVelocity: 100, On: 0, Off: 2, Sustain: 2},
		{Channel: 0, Number: 60, OnVelocity: 80, OffVelocity: 5, On: 2, Off: 3, Sustain: 3},
	}
	if !reflect.DeepEqual(notes, want) {
		t.Errorf("got %v\nwant %v", notes, want)
	}
}

func TestRepeatedNoteOnUnderPedal(t *testing.T) {
	notes := reconstruct(t, 10,
		ControlEvent(0, 0, SustainController, 127),
		NoteOnEvent(0, 0, 60, 100),
		NoteOffEvent(100, 0, 60, 7),
		NoteOnEvent(200, 0, 60, 80),
		ControlEvent(300, 0, SustainController, 0),
	)
	want := []Note{
		{Channel: 0, Number: 60, OnVelocity: 100, OffVelocity: 7, On: 0, Off: 1, Sustain: 2},
		{Channel: 0, Number: 60, OnVelocity: 80, OffVelocity: 80, On: 2, Off: 10, Sustain: 10},
	}
	if !reflect.DeepEqual(notes, want) {
		t.Errorf("got %v\nwant %v", notes, want)
	}
}

func TestDuplicateNoteOff(t *testing.T) {
	notes := reconstruct(t, 10,
		ControlEvent(0, 0, SustainController, 127),
		NoteOnEvent(0, 0, 60, 100),
		NoteOffEvent(100, 0, 60, 40),
		NoteOffEvent(150, 0, 60, 50),
		ControlEvent(300, 0, SustainController, 0),
		NoteOffEvent(400, 0, 60, 60),
	)
	want := []Note{{Channel: 0, Number: 60, OnVelocity: 100, OffVelocity: 40, On: 0, Off: 1, Sustain: 3}}
	if !reflect.DeepEqual(notes, want) {
		t.Errorf("got %v, want %v", notes, want)
	}
}

func TestStrayNoteOffIgnored(t *testing.T) {
	notes := reconstruct(t, 1, NoteOffEvent(0, 0, 60, 0))
	if len(notes) != 0 {
		t.Errorf("got %v", notes)
	}
}

func TestOrdering(t *testing.T) {
	notes := reconstruct(t, 10,
		NoteOnEvent(0, 2, 50, 1),
		NoteOnEvent(0, 1, 70, 1),
		NoteOnEvent(0, 1, 40, 1),
		NoteOffEvent(100, 1, 40, 0),
		NoteOffEvent(100, 2, 50, 0),
		NoteOnEvent(100, 0, 30, 1),
	)
	var got [][2]uint8
	for _, n := range notes {
		got = append(got, [2]uint8{n.Channel, n.Number})
	}
	want := [][2]uint8{{1, 40}, {1, 70}, {2, 50}, {0, 30}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestMalformedChannel(t *testing.T) {
	calls := 0
	mapper := func(tick int64) float64 { calls++; return 0 }
	_, err := Reconstruct([]Event{
		NoteOnEvent(0, 0, 60, 100),
		NoteOnEvent(0, 16, 60, 100),
	}, 1, mapper)
	if !errors.Is(err, ErrMalformedEventChannel) {
		t.Fatalf("err = %v, want ErrMalformedEventChannel", err)
	}
	var mce *MalformedEventChannelError
	if !errors.As(err, &mce) || mce.Channel != 16 || mce.Index != 1 {
		t.Errorf("err = %#v", err)
	}
	if calls != 0 {
		t.Errorf("mapper called %d times before validation failed", calls)
	}
}

func TestMapperCalledOncePerEvent(t *testing.T) {
	calls := 0
	mapper := func(tick int64) float64 { calls++; return float64(tick) }
	events := []Event{
		NoteOnEvent(0, 0, 60, 100),
		ControlEvent(1, 0, 7, 100),
		NoteOffEvent(2, 0, 60, 0),
	}
	if _, err := Reconstruct(events, 3, mapper); err != nil {
		t.Fatal(err)
	}
	if calls != len(events) {
		t.Errorf("mapper called %d times, want %d", calls, len(events))
	}
}

func TestIncrementalReconstructor(t *testing.T) {
	r := NewReconstructor()
	r.Apply(SustainEvent(0, 0, true), 0)
	r.Apply(NoteOnEvent(0, 0, 60, 100), 0)
	r.Apply(NoteOnEvent(0, 0, 62, 100), 0.5)
	r.Apply(NoteOffEvent(0, 0, 60, 0), 1)

	if !r.Sustaining(0) || r.Sustaining(1) || r.Sustaining(200) {
		t.Errorf("Sustaining = %v %v", r.Sustaining(0), r.Sustaining(1))
	}
	if len(r.Notes()) != 0 {
		t.Errorf("Notes = %v before pedal release", r.Notes())
	}
	pending := r.Pending(1.5)
	if len(pending) != 2 || pending[0].Sustain != 1.5 || pending[0].Off != 1 || pending[1].Off != 1.5 {
		t.Errorf("Pending = %v", pending)
	}

	r.Apply(SustainEvent(0, 0, false), 2)
	if notes := r.Notes(); len(notes) != 1 || notes[0].Sustain != 2 {
		t.Errorf("Notes = %v", notes)
	}

	all := r.Finish(3)
	if len(all) != 2 || all[1].Sustain != 3 {
		t.Errorf("Finish = %v", all)
	}
	if len(r.Notes()) != 0 || len(r.Pending(4)) != 0 || r.Sustaining(0) {
		t.Error("Finish did not reset the reconstructor")
	}

	if err := r.Apply(Event{Kind: Kind(9)}, 0); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Apply(kind 9) = %v", err)
	}
}
