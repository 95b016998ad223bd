package timeline

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrMalformedEventChannel = errors.New("event channel out of range")
	ErrUnknownKind           = errors.New("unknown event kind")
)

// MalformedEventChannelError reports an event on a channel above 15.
type MalformedEventChannelError struct {
	Channel uint8
	Index   int // position in the event list, -1 for a single event
}

func (e *MalformedEventChannelError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("event channel %d out of range 0-%d", e.Channel, NumChannels-1)
	}
	return fmt.Sprintf("event %d: channel %d out of range 0-%d", e.Index, e.Channel, NumChannels-1)
}

func (e *MalformedEventChannelError) Is(target error) bool {
	return target == ErrMalformedEventChannel
}
