// Package midifile loads Standard MIDI Files into timeline events and
// plays them back against a clock.
//
// Only single-tempo files with metric (ticks per quarter note) timing are
// supported.
package midifile

import (
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"go-synth/debug"
	"go-synth/midi"
	"go-synth/timeline"
)

// DefaultBPM is the tempo of a file without tempo events
const DefaultBPM = 120.0

const defaultTempo = 500000 // DefaultBPM in microseconds per quarter note

// Track summarizes one track of the file
type Track struct {
	Name     string
	Channels []uint8
	Events   []timeline.Event
}

// File is a loaded MIDI file. Reads are memoized and safe for concurrent use.
type File struct {
	Name       string
	Resolution uint16  // ticks per quarter note
	BPM        float64 // the file's single tempo
	Tempo      uint32  // microseconds per quarter note, as stored

	readTrack int
	events    []timeline.Event
	tracks    []Track
	duration  float64

	notesOnce sync.Once
	notes     []timeline.Note

	mu         sync.Mutex
	stats      map[int][3]uint8
	channelSet []uint8
}

type options struct {
	merge     bool
	readTrack int
}

// Option configures Load and Read
type Option func(*options)

// MergeTracks controls whether events from every track are merged into the
// read track (default true).
func MergeTracks(merge bool) Option {
	return func(o *options) { o.merge = merge }
}

// ReadTrack selects the track whose events are read (default 0).
func ReadTrack(track int) Option {
	return func(o *options) { o.readTrack = track }
}

// Load reads a MIDI file from disk.
func Load(path string, opts ...Option) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mf, err := Read(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	mf.Name = path
	return mf, nil
}

// Read parses a MIDI file from r.
func Read(r io.Reader, opts ...Option) (*File, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return FromSMF(s, opts...)
}

// FromSMF converts an already parsed file.
func FromSMF(s *smf.SMF, opts ...Option) (*File, error) {
	o := options{merge: true}
	for _, opt := range opts {
		opt(&o)
	}

	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok || ticks == 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedTimeFormat, s.TimeFormat)
	}
	if len(s.Tracks) == 0 {
		return nil, ErrNoTracks
	}
	if o.readTrack < 0 || o.readTrack >= len(s.Tracks) {
		return nil, fmt.Errorf("%w: %d of %d", ErrNoSuchTrack, o.readTrack, len(s.Tracks))
	}

	usec, err := tempo(s)
	if err != nil {
		return nil, err
	}

	f := &File{
		Resolution: ticks.Resolution(),
		BPM:        60e6 / float64(usec),
		Tempo:      usec,
		readTrack:  o.readTrack,
		stats:      make(map[int][3]uint8),
	}

	var last int64
	for _, tr := range s.Tracks {
		t, end := convertTrack(tr)
		f.tracks = append(f.tracks, t)
		if end > last {
			last = end
		}
	}
	f.duration = f.ToSeconds(last)
	f.events = f.merge(o.merge)
	if err := timeline.Validate(f.events); err != nil {
		return nil, err
	}

	debug.Log("midifile", "loaded %d tracks, %d events, %.2fs at %g bpm (%d ticks/qn)",
		len(f.tracks), len(f.events), f.duration, f.BPM, f.Resolution)
	return f, nil
}

// tempo returns the single tempo of the file in microseconds per quarter
// note. Files store whole microseconds, so comparing them avoids the float
// noise of the bpm value.
func tempo(s *smf.SMF) (uint32, error) {
	var tempos []uint32
	for _, tr := range s.Tracks {
		for _, ev := range tr {
			var bpm float64
			if !ev.Message.GetMetaTempo(&bpm) || !(bpm > 0) {
				continue
			}
			usec := uint32(math.Round(60e6 / bpm))
			if !slices.Contains(tempos, usec) {
				tempos = append(tempos, usec)
			}
		}
	}
	switch len(tempos) {
	case 0:
		return defaultTempo, nil
	case 1:
		return tempos[0], nil
	}
	bpms := make([]float64, len(tempos))
	for i, t := range tempos {
		bpms[i] = 60e6 / float64(t)
	}
	return 0, &UnsupportedTempoMapError{Tempos: bpms}
}

// convertTrack returns the channel events of a track and its final tick.
func convertTrack(tr smf.Track) (Track, int64) {
	var t Track
	var tick int64
	for _, ev := range tr {
		tick += int64(ev.Delta)

		var name string
		if t.Name == "" && ev.Message.GetMetaTrackName(&name) {
			t.Name = strings.TrimRight(name, "\x00")
			continue
		}
		if e, ok := midi.Decode(gomidi.Message(ev.Message), tick); ok {
			t.Events = append(t.Events, e)
		}
	}
	t.Channels = timeline.Channels(t.Events)
	return t, tick
}

// merge combines track events in tick order. Events on the same tick keep
// the read track first, then the other tracks in file order.
func (f *File) merge(all bool) []timeline.Event {
	if !all {
		return append([]timeline.Event(nil), f.tracks[f.readTrack].Events...)
	}

	type ranked struct {
		e    timeline.Event
		rank int
	}
	var list []ranked
	for i, tr := range f.tracks {
		rank := i + 1
		if i == f.readTrack {
			rank = 0
		}
		for _, e := range tr.Events {
			list = append(list, ranked{e, rank})
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].e.Tick != list[j].e.Tick {
			return list[i].e.Tick < list[j].e.Tick
		}
		return list[i].rank < list[j].rank
	})

	events := make([]timeline.Event, len(list))
	for i, r := range list {
		events[i] = r.e
	}
	return events
}

// ToSeconds converts an absolute tick position to seconds at the file's tempo.
func (f *File) ToSeconds(tick int64) float64 {
	return float64(tick) * float64(f.Tempo) / (1e6 * float64(f.Resolution))
}

// Duration returns the time of the last event of the longest track, in
// seconds. It does not include any decay after the last note.
func (f *File) Duration() float64 { return f.duration }

// Events returns the events that playback reads.
func (f *File) Events() []timeline.Event { return f.events }

// Count returns the number of events that playback reads.
func (f *File) Count() int { return len(f.events) }

// ReadTrack returns the index of the track being read.
func (f *File) ReadTrack() int { return f.readTrack }

// Tracks returns every track in the file.
func (f *File) Tracks() []Track { return f.tracks }

// Notes returns the reconstructed notes of the read events, sorted by start time.
func (f *File) Notes() []timeline.Note {
	f.notesOnce.Do(func() {
		notes, err := timeline.Reconstruct(f.events, f.duration, f.ToSeconds)
		if err != nil {
			// events were validated by FromSMF
			panic(fmt.Sprintf("midifile: %v", err))
		}
		f.notes = notes
	})
	return f.notes
}

// NoteStats returns the lowest, median and highest note number, or 64 for
// each if there are no notes. Pass timeline.AllChannels for every channel.
// Useful for the initial scroll position of a piano roll.
func (f *File) NoteStats(channel int) (min, median, max uint8) {
	if channel < 0 {
		channel = timeline.AllChannels
	}
	notes := f.Notes()

	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.stats[channel]
	if !ok {
		s[0], s[1], s[2] = timeline.Stats(notes, channel)
		f.stats[channel] = s
	}
	return s[0], s[1], s[2]
}

// Channels returns the channels used anywhere in the file.
func (f *File) Channels() []uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.channelSet == nil {
		lists := make([][]timeline.Event, len(f.tracks))
		for i, tr := range f.tracks {
			lists[i] = tr.Events
		}
		f.channelSet = timeline.Channels(lists...)
		if f.channelSet == nil {
			f.channelSet = []uint8{}
		}
	}
	return f.channelSet
}
