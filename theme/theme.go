package theme

import (
	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	NoteHead rune // ● note-on
	Held     rune // ─ key down
	Pedal    rune // ┄ released, sounding under the pedal
	Overlap  rune // ═ more than one note in the cell
	Empty    rune // · nothing sounding
	Playhead rune // │ current time
	Beyond   rune // - outside the file
}

func New(palette *Palette) *Theme {
	if palette == nil {
		palette = Plasma()
	}
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			NoteHead: '●',
			Held:     '─',
			Pedal:    '┄',
			Overlap:  '═',
			Empty:    '·',
			Playhead: '│',
			Beyond:   '-',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG      = 0.0
	RoleSurface = 0.1
	RoleMuted   = 0.2
	RoleFG      = 0.4
	RoleAccent  = 0.5
	RoleCursor  = 0.6
	RoleActive  = 0.7
	RoleWarning = 0.8
	RoleSuccess = 1.0
)

func (t *Theme) BG() lipgloss.Color      { return t.Color(RoleBG) }
func (t *Theme) Surface() lipgloss.Color { return t.Color(RoleSurface) }
func (t *Theme) FG() lipgloss.Color      { return t.Color(RoleFG) }
func (t *Theme) Accent() lipgloss.Color  { return t.Color(RoleAccent) }
func (t *Theme) Muted() lipgloss.Color   { return t.Color(RoleMuted) }
func (t *Theme) Active() lipgloss.Color  { return t.Color(RoleActive) }
func (t *Theme) Cursor() lipgloss.Color  { return t.Color(RoleCursor) }
func (t *Theme) Warning() lipgloss.Color { return t.Color(RoleWarning) }
func (t *Theme) Success() lipgloss.Color { return t.Color(RoleSuccess) }

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return lipgloss.Color(t.Palette.Lookup(norm).Hex())
}

// RGB returns raw RGB for any normalized value
func (t *Theme) RGB(norm float64) RGB {
	return t.Palette.Lookup(norm)
}

// ChannelRGB spreads the 16 MIDI channels over the bright half of the palette.
func (t *Theme) ChannelRGB(channel uint8) RGB {
	return t.Palette.Lookup(RoleFG + (1-RoleFG)*float64(channel%16)/15)
}

// NoteColor shades a channel's color by velocity: soft notes fade toward
// the muted role.
func (t *Theme) NoteColor(channel, velocity uint8) lipgloss.Color {
	v := float64(velocity) / 127
	c := t.Palette.Lookup(RoleMuted).Blend(t.ChannelRGB(channel), 0.35+0.65*v)
	return lipgloss.Color(c.Hex())
}
