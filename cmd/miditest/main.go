package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/urfave/cli"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-synth/config"
	gsmidi "go-synth/midi"
	"go-synth/midifile"
	"go-synth/pitch"
	"go-synth/timeline"
	"go-synth/tone"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	app := cli.NewApp()
	app.Name = "miditest"
	app.Usage = "MIDI test scripts"
	app.HideVersion = true
	app.Commands = []cli.Command{
		{
			Name:  "list",
			Usage: "list all MIDI ports",
			Action: func(c *cli.Context) error {
				return listPorts()
			},
		},
		{
			Name:      "notes",
			Usage:     "print the notes of a MIDI file",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "track", Usage: "track to read"},
				cli.BoolTFlag{Name: "merge", Usage: "merge events from every track"},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return errors.New("usage: notes [--track N] [--merge=false] FILE")
				}
				return printNotes(c.Args().First(), c.Int("track"), c.BoolT("merge"))
			},
		},
		{
			Name:      "note",
			Usage:     "show pitch conversions",
			ArgsUsage: "NAME|NUMBER|HZ...",
			Action: func(c *cli.Context) error {
				return printNote(cfg.Tuning(), c.Args())
			},
		},
		{
			Name:  "monitor",
			Usage: "print live input events",
			Action: func(c *cli.Context) error {
				return monitor(cfg.Input.PortName)
			},
		},
		{
			Name:      "render",
			Usage:     "render a note to a WAV file",
			ArgsUsage: "NOTE OUT.wav",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "wave", Value: cfg.Wave().String(), Usage: "sine, square, saw or triangle"},
				cli.DurationFlag{Name: "len", Value: time.Second, Usage: "length"},
				cli.IntFlag{Name: "rate", Value: cfg.Audio.SampleRate, Usage: "sample rate"},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() != 2 {
					return errors.New("usage: render [--wave W] [--len D] NOTE OUT.wav")
				}
				return render(cfg.Tuning(), c.String("wave"), c.Duration("len"), c.Int("rate"),
					c.Args().Get(0), c.Args().Get(1))
			},
		},
		{
			Name:  "recordings",
			Usage: "list saved live takes",
			Action: func(c *cli.Context) error {
				return listRecordings()
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func listPorts() error {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	type result struct {
		ins  []drivers.In
		outs []drivers.Out
	}
	ch := make(chan result, 1)
	go func() {
		ins := midi.GetInPorts()
		outs := midi.GetOutPorts()
		ch <- result{ins: ins, outs: outs}
	}()

	select {
	case r := <-ch:
		for i, p := range r.ins {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
		fmt.Println("\n=== MIDI Output Ports ===")
		for i, p := range r.outs {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
		return nil
	case <-time.After(3 * time.Second):
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return gsmidi.ErrPortsTimeout
	}
}

func printNotes(path string, track int, merge bool) error {
	f, err := midifile.Load(path, midifile.ReadTrack(track), midifile.MergeTracks(merge))
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d ticks/qn, %g bpm, %.3fs, %d events\n", f.Name, f.Resolution, f.BPM, f.Duration(), f.Count())
	for i, tr := range f.Tracks() {
		fmt.Printf("  track %d %q: %d events, channels %v\n", i, tr.Name, len(tr.Events), tr.Channels)
	}

	fmt.Println("\n  ch  note   on        off       sustain   vel")
	for _, n := range f.Notes() {
		name := pitch.MustNew(pitch.DefaultTuning, int(n.Number)).FancyName()
		fmt.Printf("  %2d  %-5s  %8.3f  %8.3f  %8.3f  %d/%d\n",
			n.Channel+1, name, n.On, n.Off, n.Sustain, n.OnVelocity, n.OffVelocity)
	}

	fmt.Println()
	printStats("all", f, timeline.AllChannels)
	for _, ch := range f.Channels() {
		printStats(fmt.Sprintf("ch %d", ch+1), f, int(ch))
	}
	return nil
}

func printStats(label string, f *midifile.File, channel int) {
	lo, mid, hi := f.NoteStats(channel)
	name := func(n uint8) string {
		return pitch.MustNew(pitch.DefaultTuning, int(n)).FancyName()
	}
	fmt.Printf("  %-6s min %-4s median %-4s max %s\n", label, name(lo), name(mid), name(hi))
}

func printNote(t pitch.Tuning, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: note NAME|NUMBER|HZ...")
	}
	fmt.Printf("tuning %s\n", t)
	for _, arg := range args {
		n, err := pitch.FromName(t, arg)
		if err != nil {
			return err
		}
		color := "white"
		if n.IsBlackKey() {
			color = "black"
		}
		fmt.Printf("  %-10s %-8s %-6s number %-10.4f %.4f Hz  %s key\n",
			arg, n.String(), n.FancyName(), n.Fractional(), n.Frequency(), color)
	}
	return nil
}

func monitor(filter string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	fmt.Println("Watching for MIDI keyboards. Ctrl+C to exit.")
	dm := gsmidi.NewDeviceManager(filter)
	go dm.Run(ctx)

	var mu sync.Mutex
	rec := timeline.NewReconstructor()
	start := time.Now()
	for ev := range dm.Events() {
		switch ev.Type {
		case gsmidi.DeviceConnected:
			fmt.Printf("[%s] connected %s\n", time.Now().Format("15:04:05"), ev.ID)
			go func(c gsmidi.Controller) {
				for in := range c.Events() {
					fmt.Printf("  %8.3f  %-10s %v\n", in.Time, c.ID(), in.Event)
					mu.Lock()
					err := rec.Apply(in.Event, time.Since(start).Seconds())
					mu.Unlock()
					if err != nil {
						fmt.Printf("  %v\n", err)
					}
				}
			}(ev.Controller)
		case gsmidi.DeviceDisconnected:
			fmt.Printf("[%s] disconnected %s\n", time.Now().Format("15:04:05"), ev.ID)
		}
	}

	mu.Lock()
	notes := rec.Finish(time.Since(start).Seconds())
	mu.Unlock()
	fmt.Printf("\n%d notes\n", len(notes))
	for _, n := range notes {
		fmt.Printf("  %v\n", n)
	}
	return nil
}

func render(tuning pitch.Tuning, wave string, length time.Duration, rate int, name, path string) error {
	n, err := pitch.FromName(tuning, name)
	if err != nil {
		return err
	}
	w, err := tone.ParseWave(wave)
	if err != nil {
		return err
	}

	t := tone.FromNote(n)
	t.Wave = w
	t.Duration = length
	samples := t.Generate(rate)

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := tone.WriteWAV(out, samples, rate); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	detected, err := tone.DetectNote(tuning, samples, rate)
	if err != nil {
		return fmt.Errorf("%s written, but %w", path, err)
	}
	fmt.Printf("%s: %s %s %.3f Hz, %d samples (detected %s)\n",
		path, w, n, n.Frequency(), len(samples), detected)
	return nil
}

func listRecordings() error {
	recs, err := midifile.ListRecordings()
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("no recordings")
		return nil
	}
	for _, r := range recs {
		f, err := midifile.Load(r.Path)
		if err != nil {
			fmt.Printf("  %s  %-20s %v\n", r.Timestamp.Format("2006-01-02 15:04"), r.Name, err)
			continue
		}
		fmt.Printf("  %s  %-20s %3d notes  %.1fs\n",
			r.Timestamp.Format("2006-01-02 15:04"), r.Name, len(f.Notes()), f.Duration())
	}
	return nil
}
