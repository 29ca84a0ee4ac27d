// Package executor runs the unit of work of the benchmark: load one file
// completely through the row decoder and measure how long that took.
package executor

import (
	"time"

	"github.com/arkilian/tabload/internal/decoder"
	"github.com/arkilian/tabload/pkg/types"
)

// Clock is the monotonic time source used for per-file timing.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// SystemClock reads time.Now, whose monotonic component is immune to wall-clock adjustments.
type SystemClock struct{}

func (SystemClock) Now() time.Time                  { return time.Now() }
func (SystemClock) Since(t time.Time) time.Duration { return time.Since(t) }

// Executor loads files through a decoder. It holds no per-file state and is
// safe for use by many goroutines at once, provided the decoder is.
type Executor struct {
	decoder decoder.Decoder
	clock   Clock
}

// New creates an executor using the system clock.
func New(d decoder.Decoder) *Executor {
	return NewWithClock(d, SystemClock{})
}

// NewWithClock creates an executor with an explicit clock.
func NewWithClock(d decoder.Decoder, clock Clock) *Executor {
	return &Executor{decoder: d, clock: clock}
}

// Load opens item, iterates every record to exhaustion and discards it.
// It returns only after the last record was decoded, or at the first error.
func (e *Executor) Load(item types.WorkItem) (int64, error) {
	rr, err := e.decoder.Open(string(item))
	if err != nil {
		return 0, err
	}

	n, err := decoder.Drain(rr)
	closeErr := rr.Close()
	if err != nil {
		return n, err
	}
	return n, closeErr
}

// Execute loads item and reports the measured duration.
//
// A failing load does not abort the caller: the error travels inside the
// returned TimingResult as a failure marker, together with the time spent
// until the failure. Aborting the whole run on the first bad file is left to
// the dispatch layer's fail-fast mode.
func (e *Executor) Execute(item types.WorkItem) types.TimingResult {
	start := e.clock.Now()
	n, err := e.Load(item)
	return types.TimingResult{
		Item:     item,
		Duration: e.clock.Since(start),
		Records:  n,
		Err:      err,
	}
}
