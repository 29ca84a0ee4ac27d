package types

import "time"

// TimingResult is the unit of information flowing from an execution unit to the aggregator.
type TimingResult struct {
	// Item is the file the result belongs to
	Item WorkItem `json:"item"`

	// Duration is the measured load time, up to the failure point for failed loads
	Duration time.Duration `json:"duration"`

	// Records is the number of records iterated before the load ended
	Records int64 `json:"records"`

	// Err marks a failed load; nil for a successful one
	Err error `json:"-"`
}

// Failed reports whether the result carries a failure marker.
func (r TimingResult) Failed() bool {
	return r.Err != nil
}

// AggregateResult is computed once per strategy invocation and handed back to the driver.
type AggregateResult struct {
	// Total is the sum of individually measured per-file durations
	Total time.Duration `json:"total"`

	// Count is the number of results collected (Succeeded + Failed)
	Count int `json:"count"`

	// Succeeded is the number of files that loaded completely
	Succeeded int `json:"succeeded"`

	// Failed is the number of failure markers collected
	Failed int `json:"failed"`

	// Records is the number of records iterated across all files
	Records int64 `json:"records"`

	// Results holds every collected result in arrival order
	Results []TimingResult `json:"-"`

	// Fingerprint identifies the collected identifier set independent of arrival order
	Fingerprint string `json:"fingerprint"`
}

// Failures returns the failed results in arrival order.
func (a AggregateResult) Failures() []TimingResult {
	var out []TimingResult
	for _, r := range a.Results {
		if r.Failed() {
			out = append(out, r)
		}
	}
	return out
}

// Items returns the identifiers of all collected results in arrival order.
func (a AggregateResult) Items() []WorkItem {
	out := make([]WorkItem, len(a.Results))
	for i, r := range a.Results {
		out[i] = r.Item
	}
	return out
}
