package trajhash

import (
	"context"
	"time"

	"github.com/kahlertfr/trajectory-spatialhash-sub000/blobstore"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/pipeline"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/shard"
)

// Build runs the two-pass construction pipeline over source, writing
// one index per (cell size, time step) into the store.
//
// Shards that fail to load are logged and skipped; a failed build or
// save aborts the run. Rebuilding from identical inputs produces
// byte-identical files, so an aborted run can simply be retried.
// Further tuning goes through pipeline options:
//
//	result, err := st.Build(ctx, source, []float32{5, 10},
//	    pipeline.WithBatchSize(8),
//	    pipeline.WithBBoxMargin(0.1),
//	)
func (s *Store) Build(ctx context.Context, source shard.Source, cellSizes []float32, optFns ...pipeline.Option) (*pipeline.Result, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(s.opts.logger.Logger),
	}
	if s.opts.controller != nil {
		opts = append(opts, pipeline.WithController(s.opts.controller))
	}
	opts = append(opts, optFns...)

	start := time.Now()
	p, err := pipeline.New(s.blobs, cellSizes, opts...)
	if err != nil {
		err = translateError(err)
		s.opts.metricsCollector.RecordBuild(0, time.Since(start), err)
		s.opts.logger.LogBuild(ctx, 0, 0, 0, time.Since(start), err)
		return nil, err
	}

	res, err := p.Run(ctx, source)
	duration := time.Since(start)
	if err != nil {
		err = translateError(err)
		s.opts.metricsCollector.RecordBuild(0, duration, err)
		s.opts.logger.LogBuild(ctx, 0, 0, 0, duration, err)
		return nil, err
	}

	// Rebuilt files may have replaced loaded ones.
	s.registry.EvictAll()
	if s.blockCache != nil {
		s.blockCache.Invalidate(func(blobstore.CacheKey) bool { return true })
	}

	s.opts.metricsCollector.RecordBuild(res.IndicesBuilt, duration, nil)
	s.opts.logger.LogBuild(ctx, res.IndicesBuilt, res.ShardsTotal, res.ShardsSkipped, duration, nil)
	return res, nil
}
