package dispatch

import "github.com/arkilian/tabload/pkg/types"

// Observer receives one event per collected result.
//
// Events are emitted by the aggregator on the goroutine that called the
// strategy's Run, never from a producer goroutine, so implementations do not
// need to be safe for concurrent use.
type Observer interface {
	// OnResult is called after a result was accepted. done counts accepted
	// results so far including r; total is the number of dispatched items.
	OnResult(done, total int, r types.TimingResult)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(done, total int, r types.TimingResult)

func (f ObserverFunc) OnResult(done, total int, r types.TimingResult) { f(done, total, r) }

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) OnResult(int, int, types.TimingResult) {}
