package tui

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-synth/debug"
	"go-synth/midi"
	"go-synth/midifile"
	"go-synth/pitch"
	"go-synth/roll"
	"go-synth/theme"
	"go-synth/timeline"
	"go-synth/widgets"
)

// frameRate is how often the roll is redrawn
const frameRate = 30 * time.Millisecond

// liveNoteLength is how long a live note-on is auditioned
const liveNoteLength = 300 * time.Millisecond

// Auditioner plays notes as they are reached
type Auditioner interface {
	Play(n pitch.Note, velocity uint8, d time.Duration)
}

// Options are shared by both modes
type Options struct {
	Theme   *theme.Theme
	Tuning  pitch.Tuning
	View    roll.View
	Speaker Auditioner // nil for silence

	// FixedCenter keeps View.CenterPitch instead of centering on the
	// file's median note
	FixedCenter bool
}

type noteKey struct {
	channel, number uint8
	on              float64
}

type Model struct {
	theme   *theme.Theme
	tuning  pitch.Tuning
	view    roll.View
	speaker Auditioner
	clock   midifile.Clock

	// file mode
	file     *midifile.File
	player   *midifile.Player
	notes    []timeline.Note
	lengths  map[noteKey]time.Duration
	pedals   [timeline.NumChannels]bool
	playing  bool
	position float64

	// live mode
	deviceMgr *midi.DeviceManager
	rec       *timeline.Reconstructor
	inputs    chan midi.Input
	devices   []string
	take      []timeline.Event // ticks in milliseconds

	status   string
	err      error
	quitting bool
}

type TickMsg time.Time

type InputMsg midi.Input

type DeviceEventMsg midi.DeviceEvent

// NewFileModel plays f from the start against clock.
func NewFileModel(f *midifile.File, clock midifile.Clock, opts Options) Model {
	m := newModel(clock, opts)
	fixed := opts.FixedCenter
	m.file = f
	m.player = midifile.NewPlayer(f, clock)
	m.notes = f.Notes()
	m.playing = true

	m.lengths = make(map[noteKey]time.Duration, len(m.notes))
	for _, n := range m.notes {
		d := time.Duration(n.Sounding() * float64(time.Second))
		m.lengths[noteKey{n.Channel, n.Number, n.On}] = d
	}

	if !fixed {
		m.view.Center(m.notes)
	}
	return m
}

// NewLiveModel shows notes played on controllers found by dm. The caller
// runs dm.
func NewLiveModel(dm *midi.DeviceManager, clock midifile.Clock, opts Options) Model {
	m := newModel(clock, opts)
	m.deviceMgr = dm
	m.rec = timeline.NewReconstructor()
	m.inputs = make(chan midi.Input, 256)
	return m
}

func newModel(clock midifile.Clock, opts Options) Model {
	th := opts.Theme
	if th == nil {
		th = theme.New(nil)
	}
	return Model{
		theme:   th,
		tuning:  opts.Tuning,
		view:    opts.View,
		speaker: opts.Speaker,
		clock:   clock,
	}
}

func tick() tea.Cmd {
	return tea.Tick(frameRate, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-deviceMgr.Events()
		if !ok {
			return nil
		}
		return DeviceEventMsg(event)
	}
}

func ListenForInput(inputs <-chan midi.Input) tea.Cmd {
	return func() tea.Msg {
		return InputMsg(<-inputs)
	}
}

func (m Model) Live() bool { return m.file == nil }

func (m Model) Init() tea.Cmd {
	if m.Live() {
		return tea.Batch(
			ListenForDevices(m.deviceMgr),
			ListenForInput(m.inputs),
			tick(),
		)
	}
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg.String())

	case TickMsg:
		m.advance()
		return m, tick()

	case InputMsg:
		m.input(midi.Input(msg))
		return m, ListenForInput(m.inputs)

	case DeviceEventMsg:
		event := midi.DeviceEvent(msg)
		switch event.Type {
		case midi.DeviceConnected:
			m.devices = append(m.devices, event.ID)
			sort.Strings(m.devices)
			go forward(event.Controller.Events(), m.inputs)
		case midi.DeviceDisconnected:
			for i, id := range m.devices {
				if id == event.ID {
					m.devices = append(m.devices[:i:i], m.devices[i+1:]...)
					break
				}
			}
		}
		return m, ListenForDevices(m.deviceMgr)
	}
	return m, nil
}

// forward copies a controller's input until it is closed
func forward(in <-chan midi.Input, out chan<- midi.Input) {
	for ev := range in {
		out <- ev
	}
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	step := m.view.Width() / 4
	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case " ":
		if m.Live() {
			break
		}
		m.playing = !m.playing
		if m.playing {
			if m.player.Empty() {
				m.position = 0
			}
			m.seek(m.position)
		}

	case "h", "left":
		m.seek(m.position - step)
	case "l", "right":
		m.seek(m.position + step)
	case "0", "home":
		m.seek(0)

	case "k", "up":
		m.view.Scroll(1)
	case "j", "down":
		m.view.Scroll(-1)
	case "K", "pgup":
		m.view.Scroll(12)
	case "J", "pgdown":
		m.view.Scroll(-12)

	case "+", "=":
		m.view.Zoom(-1)
	case "-", "_":
		m.view.Zoom(1)

	case "c":
		m.view.CycleChannel(m.channels())
		if !m.Live() {
			m.view.Center(m.notes)
		}

	case "w":
		if m.Live() {
			m.saveTake()
		}
	case "x":
		if m.Live() {
			m.rec.Reset()
			m.take = nil
			m.status = "cleared"
		}
	}
	return m, nil
}

func (m *Model) saveTake() {
	if len(m.take) == 0 {
		m.status = "nothing to save"
		return
	}
	path, err := midifile.SaveRecording(m.take, time.Now(), "")
	if err != nil {
		m.err = err
		return
	}
	m.status = "saved " + path
}

func (m *Model) seek(t float64) {
	if m.Live() {
		return
	}
	t = min(max(t, 0), m.file.Duration())
	m.player.Seek(t)
	m.position = t
	m.pedals = [timeline.NumChannels]bool{}
	m.view.Follow(t)
}

// advance moves the playhead and auditions the events it passed
func (m *Model) advance() {
	if m.Live() {
		m.position = m.clock.Now()
		m.view.Follow(m.position)
		return
	}
	if !m.playing {
		return
	}

	for _, e := range m.player.Read() {
		switch {
		case e.Kind == timeline.Controller && e.Number == timeline.SustainController:
			m.pedals[e.Channel] = e.Value >= 64
		case e.Kind == timeline.NoteOn:
			d := m.lengths[noteKey{e.Channel, e.Note, m.file.ToSeconds(e.Tick)}]
			m.audition(e, d)
		}
	}
	m.position = min(m.player.Elapsed(), m.file.Duration())
	if m.player.Empty() && m.position >= m.file.Duration() {
		m.playing = false
	}
	m.view.Follow(m.position)
}

func (m *Model) input(in midi.Input) {
	now := m.clock.Now()
	if err := m.rec.Apply(in.Event, now); err != nil {
		debug.Log("tui", "input %v: %v", in.Event, err)
		m.err = err
		return
	}
	e := in.Event
	e.Tick = int64(math.Round(now * 1000))
	m.take = append(m.take, e)
	if e.Kind == timeline.NoteOn {
		m.audition(e, liveNoteLength)
	}
}

func (m *Model) audition(e timeline.Event, d time.Duration) {
	if m.speaker == nil || d <= 0 {
		return
	}
	if m.view.Channel != timeline.AllChannels && int(e.Channel) != m.view.Channel {
		return
	}
	n, err := pitch.New(m.tuning, int(e.Note))
	if err != nil {
		return
	}
	m.speaker.Play(n, e.Velocity, d)
}

func (m Model) channels() []uint8 {
	if !m.Live() {
		return m.file.Channels()
	}
	seen := make(map[uint8]bool)
	var chans []uint8
	for _, n := range m.Notes() {
		if !seen[n.Channel] {
			seen[n.Channel] = true
			chans = append(chans, n.Channel)
		}
	}
	sort.Slice(chans, func(i, j int) bool { return chans[i] < chans[j] })
	return chans
}

// Notes returns the notes drawn on the roll
func (m Model) Notes() []timeline.Note {
	if !m.Live() {
		return m.notes
	}
	return append(m.rec.Notes(), m.rec.Pending(m.clock.Now())...)
}

// Position returns the playhead in seconds
func (m Model) Position() float64 { return m.position }

// Playing reports whether file playback is running
func (m Model) Playing() bool { return m.playing }

// ViewState returns the roll window
func (m Model) ViewState() roll.View { return m.view }

// Sounding returns the notes sounding at the playhead
func (m Model) Sounding() []timeline.Note {
	var candidates []timeline.Note
	if m.Live() {
		candidates = m.rec.Pending(m.clock.Now())
	} else {
		candidates = m.notes
	}

	var out []timeline.Note
	for _, n := range candidates {
		if m.view.Channel != timeline.AllChannels && int(n.Channel) != m.view.Channel {
			continue
		}
		if m.Live() || n.On <= m.position && m.position < n.Sustain {
			out = append(out, n)
		}
	}
	return out
}

func (m Model) soundingNames() string {
	var names []string
	for _, n := range m.Sounding() {
		if p, err := pitch.New(m.tuning, int(n.Number)); err == nil {
			names = append(names, p.FancyName())
		}
	}
	return strings.Join(names, " ")
}

func (m Model) pedalDown() bool {
	for ch := uint8(0); ch < uint8(timeline.NumChannels); ch++ {
		if m.view.Channel != timeline.AllChannels && int(ch) != m.view.Channel {
			continue
		}
		if m.Live() && m.rec.Sustaining(ch) || !m.Live() && m.pedals[ch] {
			return true
		}
	}
	return false
}

var keys = []widgets.KeySection{
	{Keys: []widgets.KeyBinding{
		{Key: "space", Desc: "play"},
		{Key: "h/l", Desc: "seek"},
		{Key: "j/k", Desc: "pitch"},
		{Key: "+/-", Desc: "zoom"},
		{Key: "c", Desc: "channel"},
		{Key: "w/x", Desc: "save/clear take"},
		{Key: "q", Desc: "quit"},
	}},
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.theme.Muted())
	fgStyle := lipgloss.NewStyle().Foreground(m.theme.FG())
	warnStyle := lipgloss.NewStyle().Foreground(m.theme.Warning())

	channel := "all"
	if m.view.Channel != timeline.AllChannels {
		channel = fmt.Sprintf("%d", m.view.Channel+1)
	}

	var header string
	duration := 0.0
	if m.Live() {
		inputs := "no input"
		if len(m.devices) > 0 {
			inputs = strings.Join(m.devices, ", ")
		}
		header = fmt.Sprintf("go-synth  LIVE  %s  ch:%s  %s  %s",
			inputs, channel, roll.FormatScale(m.view.SecondsPerCol), m.tuning)
	} else {
		state := "STOP"
		if m.playing {
			state = "PLAY"
		}
		duration = m.file.Duration()
		header = fmt.Sprintf("go-synth  %s  %.2f/%.2fs  %gbpm  ch:%s  %s  %s",
			state, m.position, duration, m.file.BPM, channel, roll.FormatScale(m.view.SecondsPerCol), m.tuning)
	}

	notes := m.Notes()
	status := m.soundingNames()
	if m.pedalDown() {
		status = "[pedal] " + status
	}

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(headerStyle.Render(header))
	out.WriteString("\n\n")
	out.WriteString(roll.Render(m.view, notes, m.position, duration, m.theme, m.tuning))
	out.WriteString("\n")
	out.WriteString(dimStyle.Render(roll.Ruler(m.view)))
	out.WriteString("\n\n")
	out.WriteString(fgStyle.Render(status))
	out.WriteString("\n")
	if m.status != "" {
		out.WriteString(dimStyle.Render(m.status))
		out.WriteString("\n")
	}
	if m.err != nil {
		out.WriteString(warnStyle.Render(m.err.Error()))
		out.WriteString("\n")
	}
	out.WriteString(dimStyle.Render(widgets.RenderKeyLine(keys)))
	return out.String()
}
