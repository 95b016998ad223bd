// Package roll draws reconstructed notes as a scrolling piano roll.
package roll

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go-synth/pitch"
	"go-synth/theme"
	"go-synth/timeline"
)

// Scales are the zoom levels in seconds per column
var Scales = []float64{
	0.01,
	0.025,
	0.05,
	0.1,
	0.25,
	0.5,
	1.0,
}

const defaultScale = 3

// View is the visible window of the roll
type View struct {
	CenterPitch   int
	Rows          int
	Cols          int
	Start         float64 // seconds at the left edge
	SecondsPerCol float64
	Channel       int // timeline.AllChannels or 0-15
}

func DefaultView() View {
	return View{
		CenterPitch:   60,
		Rows:          25,
		Cols:          64,
		SecondsPerCol: Scales[defaultScale],
		Channel:       timeline.AllChannels,
	}
}

// Top returns the pitch of the first row.
func (v View) Top() int {
	top := v.CenterPitch + v.Rows/2
	if top > 127 {
		top = 127
	}
	return top
}

// Width returns the number of seconds shown.
func (v View) Width() float64 {
	return float64(v.Cols) * v.SecondsPerCol
}

// Center scrolls to the median pitch of the notes shown.
func (v *View) Center(notes []timeline.Note) {
	_, median, _ := timeline.Stats(notes, v.Channel)
	v.CenterPitch = int(median)
}

// Scroll moves the view by semitones, staying within MIDI range.
func (v *View) Scroll(semitones int) {
	v.CenterPitch = min(max(v.CenterPitch+semitones, 0), 127)
}

// Zoom steps to the next coarser (dir > 0) or finer scale.
func (v *View) Zoom(dir int) {
	i := 0
	for i < len(Scales)-1 && Scales[i] < v.SecondsPerCol {
		i++
	}
	i = min(max(i+dir, 0), len(Scales)-1)
	v.SecondsPerCol = Scales[i]
}

// Follow scrolls so the playhead stays in the left three quarters.
func (v *View) Follow(playhead float64) {
	w := v.Width()
	if playhead < v.Start || playhead >= v.Start+w*0.75 {
		v.Start = max(playhead-w/4, 0)
	}
}

// CycleChannel steps the channel filter through all channels, then each
// channel in chans.
func (v *View) CycleChannel(chans []uint8) {
	if len(chans) == 0 {
		v.Channel = timeline.AllChannels
		return
	}
	if v.Channel == timeline.AllChannels {
		v.Channel = int(chans[0])
		return
	}
	for i, c := range chans {
		if int(c) == v.Channel && i+1 < len(chans) {
			v.Channel = int(chans[i+1])
			return
		}
	}
	v.Channel = timeline.AllChannels
}

// FormatScale formats seconds per column, e.g. "100ms/col"
func FormatScale(spc float64) string {
	if spc < 1 {
		return fmt.Sprintf("%gms/col", spc*1000)
	}
	return fmt.Sprintf("%gs/col", spc)
}

type cell int

const (
	cellEmpty cell = iota
	cellBeyond
	cellHead
	cellHeld
	cellPedal
	cellOverlap
)

// Render draws one row per semitone from the top of the view down, each
// labelled with its note name in tuning t. duration limits the drawn time;
// pass 0 for an open-ended live roll.
func Render(v View, notes []timeline.Note, playhead, duration float64, th *theme.Theme, t pitch.Tuning) string {
	if v.Rows <= 0 || v.Cols <= 0 || v.SecondsPerCol <= 0 {
		return ""
	}

	byPitch := make(map[uint8][]timeline.Note)
	for _, n := range notes {
		if v.Channel != timeline.AllChannels && int(n.Channel) != v.Channel {
			continue
		}
		byPitch[n.Number] = append(byPitch[n.Number], n)
	}

	playCol := -1
	if playhead >= v.Start {
		playCol = int((playhead - v.Start) / v.SecondsPerCol)
	}

	white := lipgloss.NewStyle().Foreground(th.FG())
	black := lipgloss.NewStyle().Foreground(th.Muted())
	dim := lipgloss.NewStyle().Foreground(th.Surface())
	head := lipgloss.NewStyle().Foreground(th.Accent())
	active := lipgloss.NewStyle().Foreground(th.Active()).Bold(true)

	sym := th.Symbols
	var out strings.Builder
	top := v.Top()
	for row := 0; row < v.Rows; row++ {
		p := top - row
		if p < 0 {
			break
		}
		note := pitch.MustNew(t, p)
		label := fmt.Sprintf("%-4s ", note.FancyName())
		key := white
		if note.IsBlackKey() {
			key = black
		}
		out.WriteString(key.Render(label))

		rowNotes := byPitch[uint8(p)]
		for col := 0; col < v.Cols; col++ {
			c0 := v.Start + float64(col)*v.SecondsPerCol
			c1 := c0 + v.SecondsPerCol

			kind, n := classify(rowNotes, c0, c1)
			if kind == cellEmpty && (c1 <= 0 || (duration > 0 && c0 >= duration)) {
				kind = cellBeyond
			}

			switch kind {
			case cellEmpty:
				if col == playCol {
					out.WriteString(head.Render(string(sym.Playhead)))
				} else {
					out.WriteString(key.Render(string(sym.Empty)))
				}
			case cellBeyond:
				out.WriteString(dim.Render(string(sym.Beyond)))
			default:
				r := sym.Held
				switch kind {
				case cellHead:
					r = sym.NoteHead
				case cellPedal:
					r = sym.Pedal
				case cellOverlap:
					r = sym.Overlap
				}
				style := lipgloss.NewStyle().Foreground(th.NoteColor(n.Channel, n.OnVelocity))
				if col == playCol {
					style = active
				}
				out.WriteString(style.Render(string(r)))
			}
		}
		if row < v.Rows-1 {
			out.WriteString("\n")
		}
	}
	return out.String()
}

// classify returns what is drawn in the cell [c0, c1) of one pitch row and
// the note that decides its color.
func classify(notes []timeline.Note, c0, c1 float64) (cell, timeline.Note) {
	var found []timeline.Note
	for _, n := range notes {
		if n.On < c1 && (n.Sustain > c0 || n.On >= c0) {
			found = append(found, n)
		}
	}
	if len(found) == 0 {
		return cellEmpty, timeline.Note{}
	}
	for _, n := range found {
		if n.On >= c0 {
			return cellHead, n
		}
	}
	if len(found) > 1 {
		return cellOverlap, found[0]
	}
	if found[0].Off > c0 {
		return cellHeld, found[0]
	}
	return cellPedal, found[0]
}

// Ruler returns a time axis for the view's columns, labelled every ten
// columns and indented to line up with Render's rows.
func Ruler(v View) string {
	line := []rune(strings.Repeat(" ", 5+v.Cols))
	for col := 0; col < v.Cols; col += 10 {
		label := []rune(fmt.Sprintf("|%.2fs", v.Start+float64(col)*v.SecondsPerCol))
		for i, r := range label {
			if 5+col+i < len(line) {
				line[5+col+i] = r
			}
		}
	}
	return strings.TrimRight(string(line), " ")
}
