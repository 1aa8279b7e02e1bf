package pipeline

import (
	"log/slog"
	"runtime"

	"github.com/kahlertfr/trajectory-spatialhash-sub000/grid"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/resource"
)

// Options configures a construction run.
type Options struct {
	// BatchSize is the number of shards held in memory concurrently
	// during pass 2. Peak memory grows with it; total work does not.
	BatchSize int

	// Workers bounds parallel shard extraction and parallel per-step
	// builds. Defaults to GOMAXPROCS.
	Workers int

	// BBox, when set, skips the bounding box fold of pass 1. It must
	// cover every sample; out-of-box samples clamp to the lattice edge.
	BBox *grid.BBox

	// BBoxMargin expands the estimated bounding box on every side.
	// Ignored when BBox is supplied.
	BBoxMargin float64

	// Controller accounts shard and sample memory and applies the IO
	// budget. Nil disables accounting.
	Controller *resource.Controller

	// Logger receives progress and shard-skip warnings.
	Logger *slog.Logger

	// SkipManifest suppresses the manifest written after a successful
	// run.
	SkipManifest bool
}

// Option configures Options.
type Option func(*Options)

// WithBatchSize sets the number of shards per batch group.
func WithBatchSize(n int) Option {
	return func(o *Options) { o.BatchSize = n }
}

// WithWorkers bounds the worker pool for extraction and builds.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithBBox supplies the global bounding box up front, skipping the
// estimation fold of pass 1.
func WithBBox(box grid.BBox) Option {
	return func(o *Options) { o.BBox = &box }
}

// WithBBoxMargin sets the relative margin added around the estimated
// bounding box.
func WithBBoxMargin(margin float64) Option {
	return func(o *Options) { o.BBoxMargin = margin }
}

// WithController applies a resource controller to the run.
func WithController(rc *resource.Controller) Option {
	return func(o *Options) { o.Controller = rc }
}

// WithLogger sets the run's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithoutManifest disables the post-run manifest write.
func WithoutManifest() Option {
	return func(o *Options) { o.SkipManifest = true }
}

func applyOptions(optFns []Option) Options {
	o := Options{
		BatchSize:  4,
		Workers:    runtime.GOMAXPROCS(0),
		BBoxMargin: 0.05,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.BatchSize < 1 {
		o.BatchSize = 1
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}
