// Package app drives one benchmark run: enumerate the dataset, dispatch it
// under the configured strategy and assemble the report.
package app

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/arkilian/tabload/internal/config"
	"github.com/arkilian/tabload/internal/decoder"
	"github.com/arkilian/tabload/internal/dispatch"
	loaderr "github.com/arkilian/tabload/internal/errors"
	"github.com/arkilian/tabload/internal/executor"
	"github.com/arkilian/tabload/internal/observability"
	"github.com/arkilian/tabload/internal/report"
	"github.com/arkilian/tabload/internal/source"
	"github.com/arkilian/tabload/internal/storage"
	"github.com/arkilian/tabload/pkg/types"
)

// Observer receives the run's milestones in addition to the per-file events
// of the dispatch layer. All calls happen on the goroutine running Run.
type Observer interface {
	dispatch.Observer

	// OnStart is called before enumeration with the wall-clock run start.
	OnStart(at time.Time, cfg *config.Config)
	// OnFirstLoad is called once the file list is fixed, right before dispatch.
	OnFirstLoad(at time.Time, files int, strategy types.StrategyName)
	// OnStrategyDone is called when the strategy returned, with the time of the last load.
	OnStrategyDone(at time.Time, agg types.AggregateResult)
	// OnFinish is called with the completed report.
	OnFinish(r *report.Report)
}

// NopObserver ignores every event.
type NopObserver struct {
	dispatch.NopObserver
}

func (NopObserver) OnStart(time.Time, *config.Config)               {}
func (NopObserver) OnFirstLoad(time.Time, int, types.StrategyName)  {}
func (NopObserver) OnStrategyDone(time.Time, types.AggregateResult) {}
func (NopObserver) OnFinish(*report.Report)                         {}

// Option customizes a Runner.
type Option func(*Runner)

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// WithStorage replaces the object store built from the source configuration.
func WithStorage(s storage.ObjectStorage) Option {
	return func(r *Runner) { r.store = s }
}

// WithDecoder replaces the default decoder registry.
func WithDecoder(d decoder.Decoder) Option {
	return func(r *Runner) { r.decoder = d }
}

// Runner executes benchmark runs for one configuration.
type Runner struct {
	cfg      *config.Config
	observer Observer
	decoder  decoder.Decoder
	store    storage.ObjectStorage
}

// New creates a Runner. The configuration is resolved and validated.
func New(cfg *config.Config, opts ...Option) (*Runner, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	r := &Runner{cfg: cfg, observer: NopObserver{}}
	for _, opt := range opts {
		opt(r)
	}
	if r.decoder == nil {
		r.decoder = decoder.NewDefaultRegistry(decoder.CSVOptions{
			HasHeader:  cfg.Decode.HasHeader,
			Delimiter:  cfg.DelimiterRune(),
			Comment:    cfg.CommentRune(),
			LazyQuotes: cfg.Decode.LazyQuotes,
		}, cfg.Decode.SQLiteTable)
	}
	return r, nil
}

// Run performs one benchmark run.
//
// The returned error is non-nil when enumeration fails, when a fail-fast run
// aborts, or when the aggregator detects lost or duplicated results. Per-file
// failures in the default mode are not errors; they appear in the report.
// When a report could be assembled it is returned alongside the error.
//
// ctx bounds object-store staging only. Once dispatch starts the run cannot be cancelled.
func (r *Runner) Run(ctx context.Context) (*report.Report, error) {
	startedAt := time.Now()
	r.observer.OnStart(startedAt, r.cfg)

	files, src, err := r.enumerate(ctx)
	if err != nil {
		return nil, err
	}

	name := r.cfg.Strategy()
	strategy, err := dispatch.New(name, executor.New(r.decoder), r.cfg.Parallelism, dispatch.Options{
		FailFast: r.cfg.FailFast,
		Observer: r.observer,
	})
	if err != nil {
		return nil, err
	}

	firstLoadAt := time.Now()
	r.observer.OnFirstLoad(firstLoadAt, len(files), name)

	agg, runErr := strategy.Run(files)
	lastLoadAt := time.Now()
	r.observer.OnStrategyDone(lastLoadAt, agg)

	stats := observability.NewLoadStats()
	stats.RecordAll(agg.Results)

	rep := report.New(name, r.cfg.Parallelism, src)
	rep.SetAggregate(agg)
	rep.Stats = stats.Summary()
	rep.SetSlowest(stats.Slowest(report.SlowestCount))
	rep.StartedAt = startedAt
	rep.FirstLoadAt = firstLoadAt
	rep.LastLoadAt = lastLoadAt
	rep.FinishedAt = time.Now()
	// Both readings carry a monotonic component, so this is not affected by clock steps.
	rep.WallClock = rep.FinishedAt.Sub(startedAt)

	if r.cfg.ReportPath != "" {
		if err := report.WriteFile(r.cfg.ReportPath, rep); err != nil && runErr == nil {
			runErr = loaderr.NewInternalError("cannot write report", err).
				WithDetails(map[string]interface{}{"path": r.cfg.ReportPath})
		}
	}

	r.observer.OnFinish(rep)
	return rep, runErr
}

// enumerate fixes the file list and returns a description of where it came from.
func (r *Runner) enumerate(ctx context.Context) (types.FileList, string, error) {
	if r.cfg.Source.Type == config.SourceDir {
		files, err := source.EnumerateDir(r.cfg.Folder, r.cfg.Extensions)
		return files, r.cfg.Folder, err
	}

	store, desc, err := r.objectStore(ctx)
	if err != nil {
		return nil, "", err
	}

	prefix := r.prefix()
	stager := storage.NewStager(store, r.cfg.Source.Concurrency, r.cfg.Source.DownloadDir)
	files, err := source.EnumerateStore(ctx, store, prefix, r.cfg.Extensions, stager)
	return files, desc + path.Join("/", prefix), err
}

func (r *Runner) objectStore(ctx context.Context) (storage.ObjectStorage, string, error) {
	src := r.cfg.Source
	switch src.Type {
	case config.SourceLocal:
		desc := "local://" + src.Path
		if r.store != nil {
			return r.store, desc, nil
		}
		store, err := storage.NewLocalStorage(src.Path)
		if err != nil {
			return nil, "", loaderr.NewEnumerationError(loaderr.CodeFolderUnreadable, "cannot open local object store", err)
		}
		return store, desc, nil

	case config.SourceS3:
		desc := "s3://" + src.S3.Bucket
		if r.store != nil {
			return r.store, desc, nil
		}
		s3cfg := storage.DefaultS3Config()
		if src.S3.Region != "" {
			s3cfg.Region = src.S3.Region
		}
		s3cfg.Endpoint = src.S3.Endpoint
		s3cfg.UsePathStyle = src.S3.UsePathStyle
		store, err := storage.NewS3Storage(ctx, src.S3.Bucket, s3cfg)
		if err != nil {
			return nil, "", loaderr.NewEnumerationError(loaderr.CodeFolderUnreadable, "cannot open S3 object store", err)
		}
		return store, desc, nil

	default:
		return nil, "", loaderr.NewValidationError(fmt.Sprintf("invalid source type: %s", src.Type))
	}
}

// prefix maps the folder setting to an object key prefix; "." means the whole store.
func (r *Runner) prefix() string {
	p := path.Clean("/" + r.cfg.Folder)
	if p == "/" {
		return ""
	}
	return p[1:]
}
