package dispatch

import (
	"fmt"

	loaderr "github.com/arkilian/tabload/internal/errors"
	"github.com/arkilian/tabload/pkg/types"
)

// Aggregator is the single point of observation for one strategy invocation.
// It is owned by one goroutine; producers only ever send on the channel that
// Drain reads from.
type Aggregator struct {
	pending  map[types.WorkItem]int
	total    int
	failFast bool
	observer Observer

	result types.AggregateResult
	err    error
}

// NewAggregator creates an aggregator expecting exactly one result per entry of dispatched.
func NewAggregator(dispatched types.FileList, opts Options) *Aggregator {
	pending := make(map[types.WorkItem]int, len(dispatched))
	for _, item := range dispatched {
		pending[item]++
	}
	obs := opts.Observer
	if obs == nil {
		obs = NopObserver{}
	}
	return &Aggregator{
		pending:  pending,
		total:    len(dispatched),
		failFast: opts.FailFast,
		observer: obs,
		result: types.AggregateResult{
			Results: make([]types.TimingResult, 0, len(dispatched)),
		},
	}
}

// Record accepts one result. It returns an INTERNAL error for a result that
// was never dispatched or arrives twice; such results are not counted. In
// fail-fast mode a failure marker is counted and then returned as an abort
// error naming the file.
func (a *Aggregator) Record(r types.TimingResult) error {
	left, dispatched := a.pending[r.Item]
	switch {
	case !dispatched:
		return a.fail(loaderr.NewInvariantError(loaderr.CodeUnknownResult,
			fmt.Sprintf("result for %s which was never dispatched", r.Item)).
			WithDetails(map[string]interface{}{"file": string(r.Item)}))
	case left == 0:
		return a.fail(loaderr.NewInvariantError(loaderr.CodeDuplicateResult,
			fmt.Sprintf("second result for %s", r.Item)).
			WithDetails(map[string]interface{}{"file": string(r.Item)}))
	}
	a.pending[r.Item] = left - 1

	a.result.Total += r.Duration
	a.result.Records += r.Records
	a.result.Count++
	if r.Failed() {
		a.result.Failed++
	} else {
		a.result.Succeeded++
	}
	a.result.Results = append(a.result.Results, r)
	a.observer.OnResult(a.result.Count, a.total, r)

	if a.failFast && r.Failed() {
		return a.fail(loaderr.Wrap(loaderr.ErrCategoryInternal, loaderr.CodeAborted,
			fmt.Sprintf("load %s", r.Item), r.Err).
			WithDetails(map[string]interface{}{"file": string(r.Item)}))
	}
	return nil
}

// Drain receives until results is closed. After the first error, remaining
// results are still received, so no producer stays blocked, but discarded.
func (a *Aggregator) Drain(results <-chan types.TimingResult) error {
	for r := range results {
		if a.err != nil {
			continue
		}
		a.Record(r)
	}
	return a.err
}

// Finish verifies that every dispatched item produced a result and returns
// the aggregate.
func (a *Aggregator) Finish() (types.AggregateResult, error) {
	if a.err != nil {
		return a.Result(), a.err
	}
	if a.result.Count < a.total {
		missing := make([]string, 0, a.total-a.result.Count)
		for item, left := range a.pending {
			for ; left > 0; left-- {
				missing = append(missing, string(item))
			}
		}
		return a.Result(), a.fail(loaderr.NewInvariantError(loaderr.CodeMissingResult,
			fmt.Sprintf("collected %d of %d results", a.result.Count, a.total)).
			WithDetails(map[string]interface{}{"missing": missing}))
	}
	return a.Result(), nil
}

// Result returns the aggregate collected so far, without completeness checks.
func (a *Aggregator) Result() types.AggregateResult {
	out := a.result
	out.Fingerprint = Fingerprint(out.Items())
	return out
}

// Err returns the first error recorded, if any.
func (a *Aggregator) Err() error {
	return a.err
}

func (a *Aggregator) fail(err error) error {
	if a.err == nil {
		a.err = err
	}
	return err
}
