// Package pipeline builds spatial hash indices from a shard source in
// two passes, keeping peak memory independent of the dataset size.
//
// Pass 1 loads one shard at a time to establish the global time range
// and bounding box, discarding each shard before the next. Pass 2
// processes shards in groups of a fixed batch size: every shard in the
// group is reduced to its per-time-step samples and dropped, then one
// index per (cell size, time step) is built from the merged samples and
// saved. At no point are more than a batch's worth of shards resident.
//
// Each time step's samples must arrive within one batch group, so shard
// time ranges must be disjoint (the usual case) or co-grouped; a step
// split across groups would be indexed from the last group alone.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/kahlertfr/trajectory-spatialhash-sub000/blobstore"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/grid"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/index"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/manifest"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/model"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/shard"
)

// ErrNoCellSizes is returned when a pipeline is created without cell
// sizes.
var ErrNoCellSizes = errors.New("at least one cell size is required")

// sampleBytes is the accounted in-memory cost of one extracted sample.
const sampleBytes = 16

// Pipeline builds one index per (cell size, time step) from a shard
// source. A Pipeline is immutable; Run may be called multiple times,
// but at most one run per (dataset, cell size) should be active.
type Pipeline struct {
	store     blobstore.Store
	cellSizes []float32
	opts      Options
}

// New creates a pipeline writing into store. Every configured cell size
// gets its own index tree.
func New(store blobstore.Store, cellSizes []float32, optFns ...Option) (*Pipeline, error) {
	if len(cellSizes) == 0 {
		return nil, ErrNoCellSizes
	}
	sizes := append([]float32(nil), cellSizes...)
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })
	for _, cs := range sizes {
		if !(cs > 0) {
			return nil, fmt.Errorf("%w: got %g", index.ErrInvalidCellSize, cs)
		}
	}

	return &Pipeline{
		store:     store,
		cellSizes: sizes,
		opts:      applyOptions(optFns),
	}, nil
}

// Result summarizes a completed run.
type Result struct {
	// TimeRange is the union of all scanned shard ranges.
	TimeRange model.TimeRange

	// BBox is the bounding box every index of this run shares.
	BBox grid.BBox

	ShardsTotal   int
	ShardsSkipped int
	IndicesBuilt  int

	// PeakResidentShards is the largest number of loaded shards alive
	// at any moment; it never exceeds the batch size.
	PeakResidentShards int

	// PeakMemoryBytes is the controller's memory high-water mark after
	// the run: the most bytes held at once by shards, sample buckets
	// and anything else the controller accounts. Zero when the run had
	// no controller.
	PeakMemoryBytes int64
}

// Run executes both passes. Shards that fail to load are logged and
// skipped; a failed build or save aborts the run, because a partially
// rebuilt index tree must not pass as complete. Identical inputs
// produce byte-identical index files.
//
// Cancellation is honored between shards and between batch groups. An
// in-progress save is never interrupted.
func (p *Pipeline) Run(ctx context.Context, source shard.Source) (*Result, error) {
	r := &run{
		p:       p,
		source:  source,
		skipped: make(map[int]bool),
	}

	res, err := r.execute(ctx)
	if err != nil {
		return nil, err
	}
	return res, nil
}

type run struct {
	p      *Pipeline
	source shard.Source

	mu      sync.Mutex
	skipped map[int]bool

	resident     atomic.Int64
	peakResident atomic.Int64

	indicesBuilt atomic.Int64
}

func (r *run) execute(ctx context.Context) (*Result, error) {
	p := r.p
	numShards := r.source.NumShards()

	timeRange, box, err := r.scan(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{
		TimeRange:   timeRange,
		BBox:        box,
		ShardsTotal: numShards,
	}

	if numShards == len(r.skipped) || box.Empty() {
		p.opts.Logger.Warn("no usable shard data, nothing to build",
			"shards", numShards, "skipped", len(r.skipped))
		res.ShardsSkipped = len(r.skipped)
		res.PeakResidentShards = int(r.peakResident.Load())
		res.PeakMemoryBytes = p.opts.Controller.MemoryHighWater()
		return res, nil
	}

	if err := r.build(ctx, box); err != nil {
		return nil, err
	}

	res.ShardsSkipped = len(r.skipped)
	res.IndicesBuilt = int(r.indicesBuilt.Load())
	res.PeakResidentShards = int(r.peakResident.Load())
	res.PeakMemoryBytes = p.opts.Controller.MemoryHighWater()

	if !p.opts.SkipManifest {
		m := &manifest.Manifest{
			CellSizes:     append([]float32(nil), p.cellSizes...),
			TimeRange:     manifest.TimeRange{Min: timeRange.Min, Max: timeRange.Max},
			BBoxMin:       box.Min,
			BBoxMax:       box.Max,
			ShardsTotal:   res.ShardsTotal,
			ShardsSkipped: res.ShardsSkipped,
			IndexCount:    res.IndicesBuilt,
		}
		if err := manifest.Write(context.WithoutCancel(ctx), p.store, m); err != nil {
			return nil, err
		}
	}

	p.opts.Logger.Info("construction run complete",
		"indices", res.IndicesBuilt,
		"time_range", res.TimeRange.String(),
		"shards", res.ShardsTotal,
		"skipped", res.ShardsSkipped)
	return res, nil
}

// scan is pass 1: one shard at a time, record its time range, fold its
// samples into the bounding box unless one was supplied, discard it.
func (r *run) scan(ctx context.Context) (model.TimeRange, grid.BBox, error) {
	p := r.p

	var (
		timeRange model.TimeRange
		haveRange bool
		box       = grid.NewBBox()
	)

	for i := 0; i < r.source.NumShards(); i++ {
		if err := ctx.Err(); err != nil {
			return timeRange, box, err
		}

		sh, err := r.loadShard(ctx, i)
		if err != nil {
			return timeRange, box, err
		}
		if sh == nil {
			continue
		}

		sr := sh.Range()
		if haveRange {
			timeRange = timeRange.Union(sr)
		} else {
			timeRange, haveRange = sr, true
		}

		if p.opts.BBox == nil {
			for step := sr.Min; ; step++ {
				sh.Samples(step, func(s model.Sample) {
					box = box.Extend(s.Position)
				})
				if step == sr.Max {
					break
				}
			}
		}

		r.releaseShard(sh)
	}

	if p.opts.BBox != nil {
		box = *p.opts.BBox
	} else {
		box = box.Expand(p.opts.BBoxMargin)
	}

	p.opts.Logger.Info("metadata scan complete",
		"shards", r.source.NumShards(),
		"skipped", len(r.skipped),
		"time_range", timeRange.String())
	return timeRange, box, nil
}

// build is pass 2: batched extract-merge-build over shard groups.
func (r *run) build(ctx context.Context, box grid.BBox) error {
	p := r.p

	var active []int
	for i := 0; i < r.source.NumShards(); i++ {
		if !r.skipped[i] {
			active = append(active, i)
		}
	}

	for start := 0; start < len(active); start += p.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + p.opts.BatchSize
		if end > len(active) {
			end = len(active)
		}
		group := active[start:end]

		if err := r.buildGroup(ctx, group, box); err != nil {
			return fmt.Errorf("batch group starting at shard %d: %w", group[0], err)
		}
	}
	return nil
}

func (r *run) buildGroup(ctx context.Context, group []int, box grid.BBox) error {
	p := r.p

	// Extraction: each worker reduces one shard to per-time-step
	// samples and drops the raw shard before returning. Partitions stay
	// separated per shard so the later merge has a fixed order.
	partitions := make([]map[model.TimeStep][]model.Sample, len(group))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.opts.Workers)
	for gi, si := range group {
		eg.Go(func() error {
			sh, err := r.loadShard(gctx, si)
			if err != nil || sh == nil {
				return err
			}

			part := make(map[model.TimeStep][]model.Sample)
			sr := sh.Range()
			for step := sr.Min; ; step++ {
				sh.Samples(step, func(s model.Sample) {
					part[step] = append(part[step], s)
				})
				if step == sr.Max {
					break
				}
			}

			// The raw shard is the dominant memory cost; it dies here,
			// before any build work starts.
			r.releaseShard(sh)

			var count int64
			for _, ss := range part {
				count += int64(len(ss))
			}
			if err := p.opts.Controller.AcquireMemory(gctx, count*sampleBytes); err != nil {
				return err
			}
			partitions[gi] = part
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	// Merge in shard order, so bucket-internal id order is a pure
	// function of the input and rebuilds stay byte-identical.
	buckets := make(map[model.TimeStep][]model.Sample)
	var groupSamples int64
	for gi := range partitions {
		for step, ss := range partitions[gi] {
			buckets[step] = append(buckets[step], ss...)
			groupSamples += int64(len(ss))
		}
		partitions[gi] = nil
	}
	defer p.opts.Controller.ReleaseMemory(groupSamples * sampleBytes)

	steps := make([]model.TimeStep, 0, len(buckets))
	for step := range buckets {
		steps = append(steps, step)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i] < steps[j] })

	// One worker per time step; each builds and saves the step's index
	// for every cell size. Saves run under a non-cancellable context so
	// no partial file is ever published.
	eg, gctx = errgroup.WithContext(ctx)
	eg.SetLimit(p.opts.Workers)
	for _, step := range steps {
		samples := buckets[step]
		eg.Go(func() error {
			for _, cs := range p.cellSizes {
				ix, err := index.Build(step, samples, cs, box)
				if err != nil {
					return fmt.Errorf("build time step %d: %w", step, err)
				}
				name := index.FileName(cs, step)
				if err := ix.Save(context.WithoutCancel(gctx), p.store, name); err != nil {
					return err
				}
				r.indicesBuilt.Add(1)
				p.opts.Logger.Debug("index saved",
					"name", name, "entries", ix.NumEntries(), "ids", ix.NumTrajectoryIDs())
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	p.opts.Logger.Info("batch group complete",
		"shards", len(group), "time_steps", len(steps), "samples", groupSamples)
	return nil
}

// loadShard loads shard i, counting it against the resident gauge and
// the memory budget. A load failure is a warning, not a run failure:
// the shard is marked skipped and (nil, nil) is returned. Context
// errors do fail the run.
func (r *run) loadShard(ctx context.Context, i int) (*shard.Shard, error) {
	r.gaugeInc()

	sh, err := r.source.Load(ctx, i)
	if err != nil {
		r.gaugeDec()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.p.opts.Logger.Warn("shard failed to load, skipping", "shard", i, "error", err)
		r.mu.Lock()
		r.skipped[i] = true
		r.mu.Unlock()
		return nil, nil
	}

	if err := r.p.opts.Controller.AcquireMemory(ctx, sh.SizeBytes()); err != nil {
		r.gaugeDec()
		return nil, err
	}
	return sh, nil
}

// releaseShard returns the shard's budget; the caller must drop every
// reference to it.
func (r *run) releaseShard(sh *shard.Shard) {
	r.p.opts.Controller.ReleaseMemory(sh.SizeBytes())
	r.gaugeDec()
}

func (r *run) gaugeInc() {
	v := r.resident.Add(1)
	for {
		peak := r.peakResident.Load()
		if v <= peak || r.peakResident.CompareAndSwap(peak, v) {
			return
		}
	}
}

func (r *run) gaugeDec() {
	r.resident.Add(-1)
}
