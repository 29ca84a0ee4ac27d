// Package observability provides load statistics for benchmark reports.
package observability

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/arkilian/tabload/pkg/types"
)

// LoadStats accumulates per-file timing results. It is safe for concurrent use.
type LoadStats struct {
	mu      sync.RWMutex
	results []types.TimingResult
}

// Summary is a point-in-time view of the recorded loads. Latency figures
// cover successful loads only; failed loads stop early and would skew them.
type Summary struct {
	Count         int           `json:"count" yaml:"count"`
	Failures      int           `json:"failures" yaml:"failures"`
	Records       int64         `json:"records" yaml:"records"`
	SumOfParts    time.Duration `json:"sum_of_parts" yaml:"sum_of_parts"`
	Min           time.Duration `json:"min" yaml:"min"`
	Max           time.Duration `json:"max" yaml:"max"`
	Mean          time.Duration `json:"mean" yaml:"mean"`
	P50           time.Duration `json:"p50" yaml:"p50"`
	P95           time.Duration `json:"p95" yaml:"p95"`
	RecordsPerSec float64       `json:"records_per_sec" yaml:"records_per_sec"`
}

// NewLoadStats creates an empty tracker.
func NewLoadStats() *LoadStats {
	return &LoadStats{}
}

// Record adds one result.
func (s *LoadStats) Record(r types.TimingResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
}

// RecordAll adds every result of an aggregate.
func (s *LoadStats) RecordAll(results []types.TimingResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, results...)
}

// Summary computes statistics over everything recorded so far.
func (s *LoadStats) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum Summary
	ok := make([]time.Duration, 0, len(s.results))
	for _, r := range s.results {
		sum.Count++
		sum.Records += r.Records
		sum.SumOfParts += r.Duration
		if r.Failed() {
			sum.Failures++
			continue
		}
		ok = append(ok, r.Duration)
	}

	if sum.SumOfParts > 0 {
		sum.RecordsPerSec = float64(sum.Records) / sum.SumOfParts.Seconds()
	}
	if len(ok) == 0 {
		return sum
	}

	sort.Slice(ok, func(i, j int) bool { return ok[i] < ok[j] })

	var total time.Duration
	for _, d := range ok {
		total += d
	}
	sum.Min = ok[0]
	sum.Max = ok[len(ok)-1]
	sum.Mean = total / time.Duration(len(ok))
	sum.P50 = percentile(ok, 0.50)
	sum.P95 = percentile(ok, 0.95)
	return sum
}

// Slowest returns the n longest loads, failed ones included, sorted by duration descending.
func (s *LoadStats) Slowest(n int) []types.TimingResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || len(s.results) == 0 {
		return []types.TimingResult{}
	}

	out := make([]types.TimingResult, len(s.results))
	copy(out, s.results)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Duration > out[j].Duration
	})

	if n > len(out) {
		n = len(out)
	}
	return out[:n]
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []time.Duration, q float64) time.Duration {
	rank := int(math.Ceil(q * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
