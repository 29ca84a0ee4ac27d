package main

import (
	"log"
	"time"

	"github.com/arkilian/tabload/internal/config"
	"github.com/arkilian/tabload/internal/report"
	"github.com/arkilian/tabload/pkg/types"
)

const timestampLayout = "2006-01-02 15:04:05.000000"

// logObserver prints run progress for the operator.
type logObserver struct {
	logger    *log.Logger
	startedAt time.Time
}

func newLogObserver(logger *log.Logger) *logObserver {
	return &logObserver{logger: logger}
}

func (o *logObserver) OnStart(at time.Time, _ *config.Config) {
	o.startedAt = at
	o.logger.Printf("Start time: %s", at.Format(timestampLayout))
}

func (o *logObserver) OnFirstLoad(at time.Time, files int, strategy types.StrategyName) {
	o.logger.Printf("First file load: %s (%d files, %s)", at.Format(timestampLayout), files, strategy)
}

func (o *logObserver) OnResult(done, total int, r types.TimingResult) {
	if r.Failed() {
		o.logger.Printf("[%d/%d] FAILED %s after %v: %v", done, total, r.Item.Name(), r.Duration, r.Err)
		return
	}
	o.logger.Printf("[%d/%d] %s: %v (%d records)", done, total, r.Item.Name(), r.Duration, r.Records)
}

func (o *logObserver) OnStrategyDone(at time.Time, agg types.AggregateResult) {
	o.logger.Printf("Last file load: %s", at.Format(timestampLayout))
	o.logger.Printf("Sum of per-file durations: %v", agg.Total)
}

func (o *logObserver) OnFinish(r *report.Report) {
	o.logger.Printf("End time: %s", r.FinishedAt.Format(timestampLayout))
	o.logger.Printf("Total: %d ms", r.WallClock.Milliseconds())
	if s := r.Stats; s.Count > s.Failures {
		o.logger.Printf("Per file: min %v, p50 %v, p95 %v, max %v, %.0f records/s",
			s.Min, s.P50, s.P95, s.Max, s.RecordsPerSec)
	}
	if len(r.Slowest) > 1 {
		o.logger.Printf("Slowest:")
		for _, f := range r.Slowest {
			o.logger.Printf("  %v %s", f.Duration, types.WorkItem(f.File).Name())
		}
	}
	o.logger.Printf("%s", r.Outcome())
	for _, f := range r.Failures {
		o.logger.Printf("  failed: %s: %s", f.File, f.Error)
	}
}
