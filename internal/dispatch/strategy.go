// Package dispatch runs the per-file unit of work under one of three
// execution strategies and aggregates the timing results.
//
// Every strategy reports exactly one TimingResult per dispatched file to a
// single Aggregator. The concurrent strategies fan results in over one
// channel whose receiving end belongs to the calling goroutine; producers
// only send, and there are no locks on the dispatch path.
//
// Nothing here can be cancelled: a decode that never returns blocks its unit,
// and therefore the strategy, indefinitely.
package dispatch

import (
	"fmt"
	"sync"

	loaderr "github.com/arkilian/tabload/internal/errors"
	"github.com/arkilian/tabload/internal/partition"
	"github.com/arkilian/tabload/pkg/types"
)

// Executor performs the unit of work for one file. *executor.Executor implements it.
type Executor interface {
	Execute(item types.WorkItem) types.TimingResult
}

// Options configure every strategy.
type Options struct {
	// FailFast aborts on the first failure marker instead of recording it and continuing.
	FailFast bool

	// Observer receives one event per collected result; nil means no events.
	Observer Observer
}

// Strategy executes all files and returns their aggregate. On error the
// returned aggregate holds what was collected up to that point.
type Strategy interface {
	Name() types.StrategyName
	Run(files types.FileList) (types.AggregateResult, error)
}

// Select maps the two run flags to exactly one strategy. Multicore only
// takes effect together with concurrent.
func Select(concurrent, multicore bool) types.StrategyName {
	switch {
	case !concurrent:
		return types.StrategySequential
	case multicore:
		return types.StrategyMulticore
	default:
		return types.StrategyConcurrent
	}
}

// New builds the named strategy. parallelism is only used by multicore.
func New(name types.StrategyName, exec Executor, parallelism int, opts Options) (Strategy, error) {
	switch name {
	case types.StrategySequential:
		return NewSequential(exec, opts), nil
	case types.StrategyConcurrent:
		return NewConcurrent(exec, opts), nil
	case types.StrategyMulticore:
		if parallelism < 1 {
			return nil, loaderr.NewValidationError(fmt.Sprintf("parallelism must be at least 1, got %d", parallelism))
		}
		return NewPartitioned(exec, parallelism, opts), nil
	default:
		return nil, loaderr.NewValidationError(fmt.Sprintf("unknown strategy %q", name))
	}
}

// Sequential loads files one after another on the calling goroutine.
type Sequential struct {
	exec Executor
	opts Options
}

func NewSequential(exec Executor, opts Options) *Sequential {
	return &Sequential{exec: exec, opts: opts}
}

func (s *Sequential) Name() types.StrategyName { return types.StrategySequential }

// Run visits files in list order. Results are recorded in the same order. In
// fail-fast mode no file after the first failure is opened.
func (s *Sequential) Run(files types.FileList) (types.AggregateResult, error) {
	agg := NewAggregator(files, s.opts)
	for _, item := range files {
		if err := agg.Record(s.exec.Execute(item)); err != nil {
			return agg.Result(), err
		}
	}
	return agg.Finish()
}

// Concurrent starts one goroutine per file, all at once, with no upper bound.
// It exists to stress the decoder and scheduler; on large lists it opens as
// many files simultaneously as there are entries.
type Concurrent struct {
	exec Executor
	opts Options
}

func NewConcurrent(exec Executor, opts Options) *Concurrent {
	return &Concurrent{exec: exec, opts: opts}
}

func (c *Concurrent) Name() types.StrategyName { return types.StrategyConcurrent }

// Run collects results in completion order.
func (c *Concurrent) Run(files types.FileList) (types.AggregateResult, error) {
	agg := NewAggregator(files, c.opts)
	results := make(chan types.TimingResult, len(files))

	var wg sync.WaitGroup
	for _, item := range files {
		item := item
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- c.exec.Execute(item)
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	if err := agg.Drain(results); err != nil {
		return agg.Result(), err
	}
	return agg.Finish()
}

// Partitioned splits the list into at most P contiguous chunks and runs one
// worker per chunk. Inside a chunk files load sequentially, each reported as
// soon as it finishes.
type Partitioned struct {
	exec        Executor
	parallelism int
	opts        Options
}

func NewPartitioned(exec Executor, parallelism int, opts Options) *Partitioned {
	return &Partitioned{exec: exec, parallelism: parallelism, opts: opts}
}

func (p *Partitioned) Name() types.StrategyName { return types.StrategyMulticore }

// Run collects results in completion order across workers.
func (p *Partitioned) Run(files types.FileList) (types.AggregateResult, error) {
	agg := NewAggregator(files, p.opts)
	results := make(chan types.TimingResult, len(files))

	var wg sync.WaitGroup
	for _, chunk := range partition.Chunks(files, p.parallelism) {
		wg.Add(1)
		go func(items types.FileList) {
			defer wg.Done()
			for _, item := range items {
				results <- p.exec.Execute(item)
			}
		}(chunk.Items)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	if err := agg.Drain(results); err != nil {
		return agg.Result(), err
	}
	return agg.Finish()
}
