package tui

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"go-synth/midi"
	"go-synth/midifile"
	"go-synth/pitch"
	"go-synth/roll"
	"go-synth/timeline"
)

type played struct {
	name     string
	velocity uint8
	d        time.Duration
}

type fakeSpeaker struct {
	played []played
}

func (s *fakeSpeaker) Play(n pitch.Note, velocity uint8, d time.Duration) {
	s.played = append(s.played, played{n.Name(), velocity, d})
}

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func plain(s string) string { return ansi.ReplaceAllString(s, "") }

// twoNotes is C4 for the first half second, then E4, at 120bpm.
func twoNotes(t *testing.T) *midifile.File {
	t.Helper()
	var tr smf.Track
	tr.Add(0, smf.MetaTempo(120))
	tr.Add(0, gomidi.NoteOn(0, 60, 100))
	tr.Add(480, gomidi.NoteOff(0, 60))
	tr.Add(0, gomidi.NoteOn(0, 64, 80))
	tr.Add(480, gomidi.NoteOff(0, 64))
	tr.Close(0)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(480)
	if err := s.Add(tr); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	f, err := midifile.Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func testOptions(sp Auditioner) Options {
	return Options{
		Tuning:  pitch.DefaultTuning,
		View:    roll.View{Rows: 5, Cols: 20, SecondsPerCol: 0.1, Channel: timeline.AllChannels},
		Speaker: sp,
	}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func press(m Model, key string) Model {
	next, _ := m.handleKey(key)
	return next.(Model)
}

func TestFilePlayback(t *testing.T) {
	clock := &midifile.ConstantClock{}
	sp := &fakeSpeaker{}
	m := NewFileModel(twoNotes(t), clock, testOptions(sp))

	if m.Live() || !m.Playing() || m.ViewState().CenterPitch != 60 {
		t.Fatalf("initial state: live %v playing %v view %+v", m.Live(), m.Playing(), m.ViewState())
	}

	m = update(t, m, TickMsg{})
	clock.Set(0.6)
	m = update(t, m, TickMsg{})
	want := []played{
		{"C4", 100, 500 * time.Millisecond},
		{"E4", 80, 500 * time.Millisecond},
	}
	if len(sp.played) != 2 || sp.played[0] != want[0] || sp.played[1] != want[1] {
		t.Errorf("played %+v", sp.played)
	}
	if m.Position() != 0.6 {
		t.Errorf("position = %g", m.Position())
	}
	if s := m.Sounding(); len(s) != 1 || s[0].Number != 64 {
		t.Errorf("sounding = %v", s)
	}

	// paused playback ignores the clock
	m = press(m, " ")
	clock.Set(5)
	m = update(t, m, TickMsg{})
	if m.Playing() || m.Position() != 0.6 {
		t.Errorf("paused: playing %v at %g", m.Playing(), m.Position())
	}

	// resume from where it paused, then run off the end
	m = press(m, " ")
	clock.Set(5.5)
	m = update(t, m, TickMsg{})
	if m.Playing() || m.Position() != 1 {
		t.Errorf("after end: playing %v at %g", m.Playing(), m.Position())
	}

	// restarting after the end plays from the top
	m = press(m, " ")
	if !m.Playing() || m.Position() != 0 {
		t.Errorf("restart: playing %v at %g", m.Playing(), m.Position())
	}

	m = press(m, " ")
	m = press(m, "l")
	if m.Position() != 0.5 {
		t.Errorf("seek forward: %g", m.Position())
	}
	view := plain(m.View())
	if !strings.Contains(view, "go-synth  STOP  0.50/1.00s  120bpm  ch:all  100ms/col  69=440Hz") {
		t.Errorf("header missing:\n%s", view)
	}
	if !strings.Contains(view, "E4") {
		t.Errorf("sounding note missing:\n%s", view)
	}

	m = press(m, "h")
	m = press(m, "h")
	if m.Position() != 0 {
		t.Errorf("seek before start: %g", m.Position())
	}
}

func TestNavigationKeys(t *testing.T) {
	m := NewFileModel(twoNotes(t), &midifile.ConstantClock{}, testOptions(nil))
	m = press(m, "k")
	m = press(m, "K")
	if m.ViewState().CenterPitch != 73 {
		t.Errorf("scroll up = %d", m.ViewState().CenterPitch)
	}
	m = press(m, "J")
	m = press(m, "j")
	if m.ViewState().CenterPitch != 60 {
		t.Errorf("scroll down = %d", m.ViewState().CenterPitch)
	}

	m = press(m, "-")
	if m.ViewState().SecondsPerCol != 0.25 {
		t.Errorf("zoom out = %g", m.ViewState().SecondsPerCol)
	}
	m = press(m, "+")
	if m.ViewState().SecondsPerCol != 0.1 {
		t.Errorf("zoom in = %g", m.ViewState().SecondsPerCol)
	}

	m = press(m, "c")
	if m.ViewState().Channel != 0 {
		t.Errorf("channel = %d", m.ViewState().Channel)
	}
	m = press(m, "c")
	if m.ViewState().Channel != timeline.AllChannels {
		t.Errorf("channel = %d", m.ViewState().Channel)
	}

	next, cmd := m.handleKey("q")
	if cmd == nil || next.(Model).View() != "" {
		t.Error("q did not quit")
	}
}

type fakeController struct {
	events chan midi.Input
}

func (c *fakeController) ID() string                { return "Test Keys" }
func (c *fakeController) Type() midi.ControllerType { return midi.ControllerKeyboard }
func (c *fakeController) Events() <-chan midi.Input { return c.events }
func (c *fakeController) Close() error              { close(c.events); return nil }

func TestLiveInput(t *testing.T) {
	clock := &midifile.ConstantClock{}
	sp := &fakeSpeaker{}
	m := NewLiveModel(nil, clock, testOptions(sp))
	if !m.Live() {
		t.Fatal("not live")
	}

	steps := []struct {
		at float64
		ev timeline.Event
	}{
		{1, timeline.NoteOnEvent(0, 0, 60, 100)},
		{1.6, timeline.SustainEvent(0, 0, true)},
		{1.7, timeline.NoteOffEvent(0, 0, 60, 20)},
	}
	for _, s := range steps {
		clock.Set(s.at)
		m = update(t, m, InputMsg{Event: s.ev})
	}
	if len(sp.played) != 1 || sp.played[0].d != liveNoteLength {
		t.Errorf("played %+v", sp.played)
	}

	clock.Set(1.8)
	m = update(t, m, TickMsg{})
	if s := m.Sounding(); len(s) != 1 || s[0].Off != 1.7 {
		t.Errorf("sounding under pedal = %v", s)
	}
	if !strings.Contains(plain(m.View()), "[pedal] C4") {
		t.Errorf("pedal status missing:\n%s", plain(m.View()))
	}

	clock.Set(2)
	m = update(t, m, InputMsg{Event: timeline.SustainEvent(0, 0, false)})
	notes := m.Notes()
	want := timeline.Note{Channel: 0, Number: 60, OnVelocity: 100, OffVelocity: 20, On: 1, Off: 1.7, Sustain: 2}
	if len(notes) != 1 || notes[0] != want || len(m.Sounding()) != 0 {
		t.Errorf("notes = %v", notes)
	}

	t.Setenv("HOME", t.TempDir())
	m = press(m, "w")
	recs, err := midifile.ListRecordings()
	if err != nil || len(recs) != 1 || !strings.Contains(m.status, recs[0].Path) {
		t.Fatalf("recordings = %v, %v; status %q", recs, err, m.status)
	}
	f, err := midifile.Load(recs[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Notes(); len(got) != 1 || got[0].Off != 1.7 || got[0].Sustain != 2 {
		t.Errorf("saved take = %v", got)
	}

	m = press(m, "x")
	if len(m.Notes()) != 0 || m.status != "cleared" {
		t.Errorf("after clear: %v %q", m.Notes(), m.status)
	}
	m = press(m, "w")
	if m.status != "nothing to save" {
		t.Errorf("status = %q", m.status)
	}

	m = update(t, m, InputMsg{Event: timeline.Event{Kind: timeline.NoteOn, Channel: 16, Note: 60}})
	if m.err == nil || !strings.Contains(plain(m.View()), "channel") {
		t.Errorf("malformed input not reported: %v", m.err)
	}
}

func TestLiveDevices(t *testing.T) {
	m := NewLiveModel(nil, &midifile.ConstantClock{}, testOptions(nil))
	c := &fakeController{events: make(chan midi.Input, 1)}
	m = update(t, m, DeviceEventMsg{Type: midi.DeviceConnected, Controller: c, ID: c.ID()})
	if !strings.Contains(plain(m.View()), "LIVE  Test Keys") {
		t.Errorf("device missing:\n%s", plain(m.View()))
	}

	in := midi.Input{Event: timeline.NoteOnEvent(0, 3, 50, 60), Time: 0.25}
	c.events <- in
	select {
	case got := <-m.inputs:
		if got != in {
			t.Errorf("forwarded %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("input not forwarded")
	}

	m = update(t, m, DeviceEventMsg{Type: midi.DeviceDisconnected, ID: c.ID()})
	c.Close()
	if !strings.Contains(plain(m.View()), "LIVE  no input") {
		t.Errorf("device not removed:\n%s", plain(m.View()))
	}
}
