package trajhash

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kahlertfr/trajectory-spatialhash-sub000/blobstore"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/cache"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/manifest"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/query"
)

// Location selects where a dataset's index tree lives.
type Location interface {
	open(o *options) blobstore.Store
}

type localLocation struct {
	dir  string
	opts []blobstore.LocalOption
}

// Local stores the index tree on the local filesystem under dir.
// Reads go through read-only memory mappings.
func Local(dir string, opts ...blobstore.LocalOption) Location {
	return &localLocation{dir: dir, opts: opts}
}

func (l *localLocation) open(o *options) blobstore.Store {
	opts := append([]blobstore.LocalOption{blobstore.WithMMap()}, l.opts...)
	if o.controller != nil {
		opts = append(opts, blobstore.WithController(o.controller))
	}
	return blobstore.NewLocalStore(l.dir, opts...)
}

type remoteLocation struct {
	store blobstore.Store
}

// Remote stores the index tree in the given blob store, typically an
// object-storage backend such as s3 or minio.
func Remote(store blobstore.Store) Location {
	return &remoteLocation{store: store}
}

func (l *remoteLocation) open(*options) blobstore.Store {
	return l.store
}

// Store is the facade over one dataset: it owns the blob store, the
// loaded-index registry and the query engines, and carries logging and
// metrics wiring. Safe for concurrent use.
type Store struct {
	blobs      blobstore.Store
	registry   *cache.Registry
	blockCache *cache.BlockLRU
	opts       options

	mu      sync.Mutex
	engines map[float32]*query.Engine
	closed  bool
}

// Open opens the dataset at the given location.
//
// An existing manifest is reported through the logger; a dataset
// without one (never built, or built with manifests disabled) opens
// fine and is queryable as long as index files exist.
func Open(ctx context.Context, loc Location, optFns ...Option) (*Store, error) {
	opts := applyOptions(optFns)

	blobs := loc.open(&opts)

	s := &Store{
		blobs:   blobs,
		opts:    opts,
		engines: make(map[float32]*query.Engine),
	}

	readSide := blobs
	if opts.blockCacheBytes > 0 {
		s.blockCache = cache.NewBlockLRU(opts.blockCacheBytes, opts.controller)
		readSide = blobstore.NewCachingStore(blobs, s.blockCache, opts.blockSize)
	}

	regOpts := []cache.Option{
		cache.WithLogger(opts.logger.Logger),
		cache.WithMaxIndices(opts.maxLoadedIndices),
	}
	if opts.controller != nil {
		regOpts = append(regOpts, cache.WithController(opts.controller))
	}
	if opts.eagerIDs {
		regOpts = append(regOpts, cache.WithEagerIDs())
	}
	s.registry = cache.NewRegistry(&loadMeteredStore{Store: readSide, metrics: opts.metricsCollector}, regOpts...)

	if m, err := manifest.Read(ctx, blobs); err == nil {
		opts.logger.InfoContext(ctx, "dataset manifest found",
			"cell_sizes", m.CellSizes,
			"time_range_min", uint32(m.TimeRange.Min),
			"time_range_max", uint32(m.TimeRange.Max),
			"indices", m.IndexCount)
	} else if !errors.Is(err, blobstore.ErrNotFound) {
		opts.logger.WarnContext(ctx, "dataset manifest unreadable", "error", err)
	}

	return s, nil
}

// Manifest returns the dataset manifest written by the last successful
// build. A dataset that was never built (or was built with manifests
// disabled) surfaces blobstore.ErrNotFound.
func (s *Store) Manifest(ctx context.Context) (*manifest.Manifest, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return manifest.Read(ctx, s.blobs)
}

// engine returns the query engine for one cell size, creating it on
// first use.
func (s *Store) engine(cellSize float32) (*query.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if e, ok := s.engines[cellSize]; ok {
		return e, nil
	}
	e := query.NewEngine(s.registry.Source(cellSize), s.opts.positions,
		query.WithLogger(s.opts.logger.Logger))
	s.engines[cellSize] = e
	return e, nil
}

func (s *Store) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// loadMeteredStore reports blob opens to the metrics collector. The
// registry opens a blob exactly once per index load, so Open timings
// are load timings.
type loadMeteredStore struct {
	blobstore.Store
	metrics MetricsCollector
}

func (s *loadMeteredStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	start := time.Now()
	blob, err := s.Store.Open(ctx, name)
	s.metrics.RecordIndexLoad(time.Since(start), err)
	return blob, err
}
