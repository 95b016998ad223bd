package midifile

import (
	"bytes"
	"testing"

	"go-synth/timeline"
)

func TestPlayer(t *testing.T) {
	f, err := Read(bytes.NewReader(pianoAndDrums(t)))
	if err != nil {
		t.Fatal(err)
	}
	clock := &ConstantClock{}
	clock.Set(10)
	p := NewPlayer(f, clock)

	steps := []struct {
		now  float64
		want []timeline.Event
	}{
		{10, []timeline.Event{timeline.NoteOnEvent(0, 0, 60, 100)}},
		{10.1, nil},
		{10.25, []timeline.Event{timeline.SustainEvent(240, 0, true)}},
		{10.5, []timeline.Event{timeline.NoteOffEvent(480, 0, 60, 30), timeline.NoteOnEvent(480, 9, 36, 110)}},
		{11, []timeline.Event{timeline.SustainEvent(960, 0, false), timeline.NoteOffEvent(960, 9, 36, 0)}},
		{20, nil},
	}
	for _, s := range steps {
		clock.Set(s.now)
		got := p.Read()
		if len(got) != len(s.want) {
			t.Fatalf("at %g: Read = %v, want %v", s.now, got, s.want)
		}
		for i := range got {
			if got[i] != s.want[i] {
				t.Errorf("at %g: event %d = %v, want %v", s.now, i, got[i], s.want[i])
			}
		}
	}
	if !p.Empty() || p.Elapsed() != 10 || p.Index() != p.Count() {
		t.Errorf("Empty = %v, Elapsed = %g, Index = %d", p.Empty(), p.Elapsed(), p.Index())
	}
}

func TestPlayerSeek(t *testing.T) {
	f, err := Read(bytes.NewReader(pianoAndDrums(t)))
	if err != nil {
		t.Fatal(err)
	}
	clock := &ConstantClock{}
	p := NewPlayer(f, clock)

	clock.Set(3)
	p.Seek(0.5)
	if p.Index() != 2 || p.Elapsed() != 0.5 {
		t.Fatalf("after Seek: index %d, elapsed %g", p.Index(), p.Elapsed())
	}
	if got := p.Read(); len(got) != 2 || got[0].Tick != 480 {
		t.Errorf("Read after Seek = %v", got)
	}

	clock.Set(3.5)
	if got := p.Read(); len(got) != 2 || got[0].Tick != 960 {
		t.Errorf("Read = %v", got)
	}

	p.Seek(-1)
	if p.Index() != 0 || p.Empty() {
		t.Errorf("Seek(-1): index %d", p.Index())
	}
	if got := p.Read(); len(got) != 1 {
		t.Errorf("Read from start = %v", got)
	}
}

func TestWallClock(t *testing.T) {
	c := NewWallClock()
	a := c.Now()
	b := c.Now()
	if a < 0 || b < a {
		t.Errorf("clock went backwards: %g then %g", a, b)
	}
}
