package midifile

import (
	"sort"
	"sync"
	"time"

	"go-synth/timeline"
)

// Clock returns the current time in seconds
type Clock interface {
	Now() float64
}

// ConstantClock returns whatever time was last set. Use it to play a file
// at a speed other than real time, or to step through it in tests.
type ConstantClock struct {
	mu sync.Mutex
	t  float64
}

func (c *ConstantClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Set sets the value returned by Now.
func (c *ConstantClock) Set(t float64) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// WallClock is a monotonic clock in seconds since it was created.
type WallClock struct {
	start time.Time
}

func NewWallClock() *WallClock {
	return &WallClock{start: time.Now()}
}

func (c *WallClock) Now() float64 {
	return time.Since(c.start).Seconds()
}

// Player returns a file's events as their time elapses on a clock.
type Player struct {
	file  *File
	clock Clock
	times []float64 // seconds of each event

	origin  float64 // clock time at elapsed 0
	elapsed float64
	index   int
}

// NewPlayer starts playing f from the beginning at the clock's current time.
func NewPlayer(f *File, clock Clock) *Player {
	times := make([]float64, len(f.events))
	for i, e := range f.events {
		times[i] = f.ToSeconds(e.Tick)
	}
	return &Player{
		file:   f,
		clock:  clock,
		times:  times,
		origin: clock.Now(),
	}
}

// Read returns every event whose time has elapsed since the last Read.
func (p *Player) Read() []timeline.Event {
	p.elapsed = p.clock.Now() - p.origin

	start := p.index
	for p.index < len(p.times) && p.times[p.index] <= p.elapsed {
		p.index++
	}
	if p.index == start {
		return nil
	}
	return p.file.events[start:p.index]
}

// Seek moves playback to t seconds into the file. The next Read returns
// events at or after t.
func (p *Player) Seek(t float64) {
	if t < 0 {
		t = 0
	}
	p.origin = p.clock.Now() - t
	p.elapsed = t
	p.index = sort.SearchFloat64s(p.times, t)
}

// Elapsed returns the playback position as of the last Read or Seek.
func (p *Player) Elapsed() float64 { return p.elapsed }

// Index returns the index of the next event to be read.
func (p *Player) Index() int { return p.index }

// Count returns the number of events in the file.
func (p *Player) Count() int { return len(p.times) }

// Empty reports whether every event has been read.
func (p *Player) Empty() bool { return p.index >= len(p.times) }

// File returns the file being played.
func (p *Player) File() *File { return p.file }
