package events

import "errors"

// ErrEventLogFull is spec §7's EventLogFull: the bounded event buffer has
// no room left in the current instruction.
var ErrEventLogFull = errors.New("events: log buffer full")

// ErrAlreadyFlushed guards spec §4.5's "no event may be emitted after
// flush" invariant.
var ErrAlreadyFlushed = errors.New("events: buffer already flushed")
