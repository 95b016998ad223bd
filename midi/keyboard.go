package midi

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"go-synth/debug"
)

// KeyboardController handles a standard MIDI keyboard
type KeyboardController struct {
	id       string
	inPort   drivers.In
	stopFunc func()

	mu        sync.Mutex // guards sends on inputChan against Close
	closed    bool
	inputChan chan Input
}

// NewKeyboardController creates a keyboard controller (input only)
func NewKeyboardController(id string, inPort drivers.In) (*KeyboardController, error) {
	kb := &KeyboardController{
		id:        id,
		inPort:    inPort,
		inputChan: make(chan Input, 256),
	}

	// Open input
	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, kb.receive)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		kb.stopFunc = stop
	}

	return kb, nil
}

// receive runs on the driver's goroutine
func (kb *KeyboardController) receive(msg gomidi.Message, timestampms int32) {
	ev, ok := Decode(msg, int64(timestampms))
	if !ok {
		return
	}
	kb.mu.Lock()
	defer kb.mu.Unlock()
	if kb.closed {
		return
	}
	select {
	case kb.inputChan <- Input{Event: ev, Time: float64(timestampms) / 1000}:
	default:
		debug.LogEvery(32, "midi", "%s: input queue full, dropping %v", kb.id, ev)
	}
}

func (kb *KeyboardController) ID() string {
	return kb.id
}

func (kb *KeyboardController) Type() ControllerType {
	return ControllerKeyboard
}

func (kb *KeyboardController) Events() <-chan Input {
	return kb.inputChan
}

func (kb *KeyboardController) Close() error {
	kb.mu.Lock()
	if kb.closed {
		kb.mu.Unlock()
		return nil
	}
	kb.closed = true
	close(kb.inputChan)
	kb.mu.Unlock()

	// The driver may deliver one more message while stopping; receive
	// drops it now that closed is set.
	if kb.stopFunc != nil {
		kb.stopFunc()
	}
	return nil
}
