package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-synth/config"
	"go-synth/debug"
	"go-synth/midi"
	"go-synth/midifile"
	"go-synth/pitch"
	"go-synth/theme"
	"go-synth/tone"
	"go-synth/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	view := cfg.View()

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: go-synth [flags] [file.mid]\n\nWithout a file, shows notes played on connected MIDI keyboards.\n\n")
		flag.PrintDefaults()
	}
	tuneNote := flag.Float64("tune-note", cfg.Tune.Note, "reference note number")
	tuneFreq := flag.Float64("tune-freq", cfg.Tune.Freq, "reference note frequency in Hz")
	rows := flag.Int("r", view.Rows, "piano roll rows")
	cols := flag.Int("c", view.Cols, "piano roll columns")
	center := flag.String("n", "", "center note, e.g. C4 (default: median note of the file)")
	channel := flag.Int("channel", 0, "show only this channel, 1-16 (default all)")
	track := flag.Int("track", 0, "track to read")
	merge := flag.Bool("merge", true, "merge events from every track")
	audio := flag.Bool("audio", cfg.Audio.Enabled, "play notes through the speaker")
	palette := flag.String("palette", cfg.Roll.Palette, "GIMP palette (.gpl) for colors")
	debugLog := flag.Bool("debug", false, "log to "+debugPath())
	save := flag.Bool("save", false, "save tuning and roll size to the config file")
	flag.Parse()

	if *debugLog {
		if err := debug.Enable(); err != nil {
			return err
		}
		defer debug.Disable()
	}

	ref := pitch.Default
	if err := ref.Set(pitch.Tuning{Number: *tuneNote, Frequency: *tuneFreq}); err != nil {
		return err
	}
	tuning := ref.Tuning()

	if *channel < 0 || *channel > 16 {
		return fmt.Errorf("channel %d out of range 1-16", *channel)
	}
	view.Rows, view.Cols = *rows, *cols
	if *channel > 0 {
		view.Channel = *channel - 1
	}

	opts := tui.Options{Tuning: tuning, View: view}
	if *center != "" {
		n, err := pitch.FromName(tuning, *center)
		if err != nil {
			return err
		}
		opts.View.CenterPitch = n.Number()
		opts.FixedCenter = true
	}

	pal := theme.Plasma()
	if *palette != "" {
		if pal, err = theme.LoadGPL(*palette); err != nil {
			return err
		}
	}
	opts.Theme = theme.New(pal)

	if *save {
		cfg.Tune = config.TuningConfig{Note: tuning.Number, Freq: tuning.Frequency}
		cfg.Roll.Rows, cfg.Roll.Cols = view.Rows, view.Cols
		cfg.Roll.Palette = *palette
		if err := cfg.Save(); err != nil {
			return err
		}
	}

	if *audio {
		sp, err := tone.OpenSpeaker(cfg.Audio.SampleRate, cfg.Wave())
		if err != nil {
			return fmt.Errorf("audio: %w", err)
		}
		defer sp.Close()
		opts.Speaker = sp
	}

	clock := midifile.NewWallClock()
	var m tui.Model
	if flag.NArg() > 0 {
		f, err := midifile.Load(flag.Arg(0), midifile.ReadTrack(*track), midifile.MergeTracks(*merge))
		if err != nil {
			return err
		}
		m = tui.NewFileModel(f, clock, opts)
	} else {
		deviceMgr := midi.NewDeviceManager(cfg.Input.PortName)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if cfg.Input.AutoConnect {
			go deviceMgr.Run(ctx)
		}

		fmt.Println("go-synth")
		fmt.Println("Connect MIDI keyboards any time - they'll be detected automatically")
		m = tui.NewLiveModel(deviceMgr, clock, opts)
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func debugPath() string {
	path, err := debug.Path()
	if err != nil {
		return "the debug log"
	}
	return path
}
