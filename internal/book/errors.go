package book

import "errors"

// ErrBookFull is returned by Insert when a side is at capacity and the
// incoming order's priority is not strictly better than the current worst
// resting order on that side (spec §4.2).
var ErrBookFull = errors.New("book: side at capacity, no evictable order")

// ErrOrderNotFound names a lookup of an id that is not resting. Remove and
// Get report that case through their ok result and do not return it.
var ErrOrderNotFound = errors.New("book: order not found")
