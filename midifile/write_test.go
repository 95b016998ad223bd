package midifile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"go-synth/timeline"
)

func take() []timeline.Event {
	return []timeline.Event{
		timeline.NoteOnEvent(0, 0, 60, 100),
		timeline.SustainEvent(250, 0, true),
		timeline.NoteOffEvent(500, 0, 60, 40),
		timeline.NoteOnEvent(500, 1, 67, 90),
		timeline.SustainEvent(1000, 0, false),
		timeline.NoteOffEvent(1200, 1, 67, 0),
	}
}

func TestWriteRead(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, take(), RecordResolution, RecordBPM); err != nil {
		t.Fatal(err)
	}
	f, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if f.Resolution != RecordResolution || f.BPM != RecordBPM {
		t.Errorf("tempo = %g bpm, %d ticks", f.BPM, f.Resolution)
	}
	if !reflect.DeepEqual(f.Events(), take()) {
		t.Errorf("events = %v", f.Events())
	}
	// one tick per millisecond
	if f.ToSeconds(1000) != 1 || f.Duration() != 1.2 {
		t.Errorf("ToSeconds(1000) = %g, Duration = %g", f.ToSeconds(1000), f.Duration())
	}

	want, err := timeline.Reconstruct(take(), 1.2, f.ToSeconds)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(f.Notes(), want) {
		t.Errorf("notes = %v\nwant %v", f.Notes(), want)
	}
}

func TestWriteUnsorted(t *testing.T) {
	events := []timeline.Event{
		timeline.NoteOffEvent(10, 0, 60, 0),
		timeline.NoteOnEvent(0, 0, 60, 100),
	}
	var buf bytes.Buffer
	if err := Write(&buf, events, 96, 60); err != nil {
		t.Fatal(err)
	}
	f, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Events(); len(got) != 2 || got[0].Kind != timeline.NoteOn || got[1].Tick != 10 {
		t.Errorf("events = %v", got)
	}
}

func TestWriteMalformed(t *testing.T) {
	events := []timeline.Event{{Kind: timeline.NoteOn, Channel: 16}}
	if err := Write(&bytes.Buffer{}, events, 96, 120); !errors.Is(err, timeline.ErrMalformedEventChannel) {
		t.Errorf("err = %v", err)
	}
}

func TestRecordings(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	recs, err := ListRecordings()
	if err != nil || len(recs) != 0 {
		t.Fatalf("empty dir: %v %v", recs, err)
	}

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)
	if _, err := SaveRecording(take(), first, ""); err != nil {
		t.Fatal(err)
	}
	path, err := SaveRecording(take()[:1], first.Add(time.Hour), "warm up: scales?")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "2026-03-01_11-00-00_warm-up--scales.mid" {
		t.Errorf("path = %s", path)
	}

	dir, _ := RecordingsDir()
	os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0644)
	os.WriteFile(filepath.Join(dir, "song.mid"), nil, 0644)

	recs, err = ListRecordings()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("recordings = %+v", recs)
	}
	if recs[0].Name != "warm-up--scales" || !recs[0].Timestamp.Equal(first.Add(time.Hour)) {
		t.Errorf("newest = %+v", recs[0])
	}
	if recs[1].Name != "" || !recs[1].Timestamp.Equal(first) {
		t.Errorf("oldest = %+v", recs[1])
	}

	f, err := Load(recs[1].Path)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Notes()) != 2 {
		t.Errorf("notes = %v", f.Notes())
	}
}

func TestRecordingsSameSecond(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)

	var paths []string
	for i := 1; i <= 3; i++ {
		path, err := SaveRecording(take()[:i], at, "")
		if err != nil {
			t.Fatal(err)
		}
		paths = append(paths, filepath.Base(path))
	}
	want := []string{"2026-03-01_10-00-00.mid", "2026-03-01_10-00-00.2.mid", "2026-03-01_10-00-00.3.mid"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}
	named, err := SaveRecording(take(), at, "duo")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(named) != "2026-03-01_10-00-00_duo.mid" {
		t.Errorf("named = %s", named)
	}

	recs, err := ListRecordings()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 4 {
		t.Fatalf("recordings = %+v", recs)
	}
	if recs[0].Seq != 3 || recs[1].Seq != 2 || recs[0].Name != "" {
		t.Errorf("order = %+v", recs)
	}
	// each unnamed take kept its own events
	for _, r := range recs {
		if r.Name != "" {
			continue
		}
		f, err := Load(r.Path)
		if err != nil {
			t.Fatal(err)
		}
		if got := f.Count(); got != r.Seq {
			t.Errorf("%s has %d events, want %d", r.Path, got, r.Seq)
		}
	}
}
