package midi

import "go-synth/timeline"

// ControllerType identifies the kind of controller
type ControllerType int

const (
	ControllerUnknown ControllerType = iota
	ControllerKeyboard
)

// Input is a live event with its arrival time in seconds since the
// controller was opened
type Input struct {
	Event timeline.Event
	Time  float64
}

// Controller is the interface for MIDI input devices
type Controller interface {
	ID() string
	Type() ControllerType

	// Input events from the controller
	Events() <-chan Input

	// Lifecycle
	Close() error
}
