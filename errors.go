package micromod

import "fmt"

// FormatError is returned when a module buffer is malformed or truncated.
type FormatError struct {
	Offset int    // byte offset of the failing read
	Reason string // what was being read
	Err    error  // underlying cause, may be nil
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid module at offset %d: %s: %v", e.Offset, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid module at offset %d: %s", e.Offset, e.Reason)
}

func (e *FormatError) Unwrap() error { return e.Err }

// PlaybackStateError reports a call made while the player was in the wrong
// state, e.g. Play without a loaded song.
type PlaybackStateError struct {
	Op     string
	Reason string
}

func (e *PlaybackStateError) Error() string {
	return fmt.Sprintf("micromod: %s: %s", e.Op, e.Reason)
}
