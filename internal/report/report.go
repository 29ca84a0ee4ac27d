// Package report builds the machine-readable record of one benchmark run.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	loaderr "github.com/arkilian/tabload/internal/errors"
	"github.com/arkilian/tabload/internal/observability"
	"github.com/arkilian/tabload/pkg/types"
)

// Report describes one run: which strategy loaded which files and how long it took.
type Report struct {
	RunID       string             `json:"run_id" yaml:"run_id"`
	Strategy    types.StrategyName `json:"strategy" yaml:"strategy"`
	Parallelism int                `json:"parallelism,omitempty" yaml:"parallelism,omitempty"`
	Source      string             `json:"source" yaml:"source"`

	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	FirstLoadAt time.Time `json:"first_load_at" yaml:"first_load_at"`
	LastLoadAt  time.Time `json:"last_load_at" yaml:"last_load_at"`
	FinishedAt  time.Time `json:"finished_at" yaml:"finished_at"`

	// WallClock is the outer span of the run, measured on the monotonic clock.
	WallClock time.Duration `json:"wall_clock" yaml:"wall_clock"`
	// SumOfParts is the strategy's total of individual per-file durations.
	SumOfParts time.Duration `json:"sum_of_parts" yaml:"sum_of_parts"`

	Count       int    `json:"count" yaml:"count"`
	Succeeded   int    `json:"succeeded" yaml:"succeeded"`
	Failed      int    `json:"failed" yaml:"failed"`
	Records     int64  `json:"records" yaml:"records"`
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`

	Stats    observability.Summary `json:"stats" yaml:"stats"`
	Slowest  []FileTiming          `json:"slowest,omitempty" yaml:"slowest,omitempty"`
	Files    []FileTiming          `json:"files" yaml:"files"`
	Failures []FileFailure         `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// SlowestCount is how many of the longest loads a report lists separately.
const SlowestCount = 5

// FileTiming is one per-file line of the report, in arrival order.
type FileTiming struct {
	File     string        `json:"file" yaml:"file"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Records  int64         `json:"records" yaml:"records"`
	Failed   bool          `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// FileFailure names a file whose load ended in an error.
type FileFailure struct {
	File  string `json:"file" yaml:"file"`
	Code  string `json:"code,omitempty" yaml:"code,omitempty"`
	Error string `json:"error" yaml:"error"`
}

// New creates a report with a fresh run ID.
func New(strategy types.StrategyName, parallelism int, source string) *Report {
	if strategy != types.StrategyMulticore {
		parallelism = 0
	}
	return &Report{
		RunID:       uuid.NewString(),
		Strategy:    strategy,
		Parallelism: parallelism,
		Source:      source,
	}
}

// SetAggregate copies the strategy's aggregate into the report.
func (r *Report) SetAggregate(agg types.AggregateResult) {
	r.SumOfParts = agg.Total
	r.Count = agg.Count
	r.Succeeded = agg.Succeeded
	r.Failed = agg.Failed
	r.Records = agg.Records
	r.Fingerprint = agg.Fingerprint

	r.Files = make([]FileTiming, 0, len(agg.Results))
	r.Failures = nil
	for _, res := range agg.Results {
		r.Files = append(r.Files, fileTiming(res))
		if res.Failed() {
			r.Failures = append(r.Failures, FileFailure{
				File:  string(res.Item),
				Code:  loaderr.GetCode(res.Err),
				Error: res.Err.Error(),
			})
		}
	}
}

// SetSlowest records the longest loads, already sorted by the caller.
func (r *Report) SetSlowest(results []types.TimingResult) {
	r.Slowest = make([]FileTiming, 0, len(results))
	for _, res := range results {
		r.Slowest = append(r.Slowest, fileTiming(res))
	}
}

func fileTiming(res types.TimingResult) FileTiming {
	return FileTiming{
		File:     string(res.Item),
		Duration: res.Duration,
		Records:  res.Records,
		Failed:   res.Failed(),
	}
}

// Outcome returns the "N succeeded, M failed" line.
func (r *Report) Outcome() string {
	return fmt.Sprintf("%d succeeded, %d failed", r.Succeeded, r.Failed)
}

// WriteFile writes r as JSON or YAML, chosen by the file extension.
func WriteFile(path string, r *Report) error {
	var (
		data []byte
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		data, err = json.MarshalIndent(r, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(r)
	default:
		return loaderr.NewValidationError(fmt.Sprintf("unsupported report format %q (use .json, .yaml or .yml)", ext))
	}
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
