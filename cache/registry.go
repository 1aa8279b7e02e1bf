// Package cache keeps loaded spatial hash indices available for the
// read path.
//
// The Registry is an explicit, caller-owned replacement for a global
// "loaded indices" table: it maps (cell size, time step) to a loaded
// index, loads on demand with single-flight deduplication, and evicts
// least-recently-used indices past a configurable bound. There is no
// process-wide state; create one Registry per dataset.
package cache

import (
	"container/list"
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/kahlertfr/trajectory-spatialhash-sub000/blobstore"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/index"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/model"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/resource"
)

var (
	// ErrClosed is returned when a closed registry is used.
	ErrClosed = errors.New("registry is closed")

	// ErrMemoryBudget is returned when a load does not fit the memory
	// budget even after evicting every resident index.
	ErrMemoryBudget = errors.New("memory budget exhausted for loaded indices")
)

// Key identifies one index: which lattice and which time step.
type Key struct {
	CellSize float32
	TimeStep model.TimeStep
}

// Options configures a Registry.
type Options struct {
	// MaxIndices bounds how many indices stay loaded; 0 means
	// unlimited. The least recently used index is evicted first.
	MaxIndices int

	// Controller accounts the resident bytes of loaded indices.
	Controller *resource.Controller

	// LoadOptions are passed through to every index load.
	LoadOptions []index.LoadOption

	// Logger receives load and eviction events at debug level.
	Logger *slog.Logger
}

// Option configures Options.
type Option func(*Options)

// WithMaxIndices bounds the number of resident indices.
func WithMaxIndices(n int) Option {
	return func(o *Options) { o.MaxIndices = n }
}

// WithController accounts index memory against rc.
func WithController(rc *resource.Controller) Option {
	return func(o *Options) { o.Controller = rc }
}

// WithEagerIDs loads trajectory ids into memory instead of fetching
// them per queried cell.
func WithEagerIDs() Option {
	return func(o *Options) { o.LoadOptions = append(o.LoadOptions, index.WithEagerIDs()) }
}

// WithLogger sets the registry's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

type entry struct {
	ix    *index.Index
	bytes int64
	elem  *list.Element // into lru; value is Key
}

type call struct {
	done chan struct{}
	ix   *index.Index
	err  error
}

// Registry loads indices on demand and keeps them cached. Safe for
// concurrent use. Concurrent requests for the same key share one load.
type Registry struct {
	store blobstore.Store
	opts  Options

	mu       sync.Mutex
	entries  map[Key]*entry
	lru      *list.List // front is most recently used
	inflight map[Key]*call
	closed   bool
}

// NewRegistry creates a registry reading from store.
func NewRegistry(store blobstore.Store, optFns ...Option) *Registry {
	opts := Options{Logger: slog.New(slog.DiscardHandler)}
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}
	return &Registry{
		store:    store,
		opts:     opts,
		entries:  make(map[Key]*entry),
		lru:      list.New(),
		inflight: make(map[Key]*call),
	}
}

// GetOrLoad returns the cached index for key, loading it first if
// needed. A missing index file surfaces as blobstore.ErrNotFound.
//
// The returned index stays owned by the registry: it may be closed by
// eviction, EvictAll or Close, so callers should use it promptly and
// not retain it across requests.
func (r *Registry) GetOrLoad(ctx context.Context, key Key) (*index.Index, error) {
	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return nil, ErrClosed
		}
		if e, ok := r.entries[key]; ok {
			r.lru.MoveToFront(e.elem)
			r.mu.Unlock()
			return e.ix, nil
		}
		if c, ok := r.inflight[key]; ok {
			r.mu.Unlock()
			select {
			case <-c.done:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			if c.err != nil {
				return nil, c.err
			}
			// The loader inserted the entry; go through the cache so
			// LRU order stays correct even if it was evicted already.
			continue
		}

		c := &call{done: make(chan struct{})}
		r.inflight[key] = c
		r.mu.Unlock()

		c.ix, c.err = r.load(ctx, key, c)
		if c.err != nil {
			return nil, c.err
		}
		return c.ix, nil
	}
}

func (r *Registry) load(ctx context.Context, key Key, c *call) (*index.Index, error) {
	name := index.FileName(key.CellSize, key.TimeStep)
	ix, err := index.Load(ctx, r.store, name, r.opts.LoadOptions...)

	r.mu.Lock()
	defer func() {
		delete(r.inflight, key)
		close(c.done)
		r.mu.Unlock()
	}()

	if err != nil {
		return nil, err
	}
	if r.closed {
		// Close ran while the load was in flight; an entry inserted now
		// would never be evicted and would leak the backing blob.
		_ = ix.Close()
		return nil, ErrClosed
	}

	bytes := ix.Stats().ResidentBytes
	acquired := r.opts.Controller.TryAcquireMemory(bytes)
	for !acquired && r.lru.Len() > 0 {
		// Over budget: make room from the cold end.
		r.evictOldestLocked()
		acquired = r.opts.Controller.TryAcquireMemory(bytes)
	}
	if !acquired {
		_ = ix.Close()
		return nil, ErrMemoryBudget
	}

	e := &entry{ix: ix, bytes: bytes}
	e.elem = r.lru.PushFront(key)
	r.entries[key] = e
	r.opts.Logger.Debug("index loaded",
		"cell_size", key.CellSize, "step", uint32(key.TimeStep), "bytes", bytes)

	if r.opts.MaxIndices > 0 {
		for len(r.entries) > r.opts.MaxIndices {
			r.evictOldestLocked()
		}
	}
	return ix, nil
}

func (r *Registry) evictOldestLocked() {
	elem := r.lru.Back()
	if elem == nil {
		return
	}
	key := elem.Value.(Key)
	r.removeLocked(key)
}

func (r *Registry) removeLocked(key Key) {
	e, ok := r.entries[key]
	if !ok {
		return
	}
	r.lru.Remove(e.elem)
	delete(r.entries, key)
	r.opts.Controller.ReleaseMemory(e.bytes)
	_ = e.ix.Close()
	r.opts.Logger.Debug("index evicted",
		"cell_size", key.CellSize, "step", uint32(key.TimeStep))
}

// Evict unloads one index. Reports whether it was resident.
func (r *Registry) Evict(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[key]
	r.removeLocked(key)
	return ok
}

// EvictAll unloads every resident index.
func (r *Registry) EvictAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.entries {
		r.removeLocked(key)
	}
}

// Len returns the number of resident indices.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close evicts everything and rejects further use.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	for key := range r.entries {
		r.removeLocked(key)
	}
	return nil
}

// Source scopes the registry to one cell size so it can serve a query
// engine. Requests for steps without a persisted index yield (nil, nil).
func (r *Registry) Source(cellSize float32) *ScopedSource {
	return &ScopedSource{registry: r, cellSize: cellSize}
}

// ScopedSource adapts a Registry to a single cell size.
type ScopedSource struct {
	registry *Registry
	cellSize float32
}

// IndexAt returns the index for one time step, or (nil, nil) when no
// index is persisted for it.
func (s *ScopedSource) IndexAt(ctx context.Context, step model.TimeStep) (*index.Index, error) {
	ix, err := s.registry.GetOrLoad(ctx, Key{CellSize: s.cellSize, TimeStep: step})
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ix, nil
}
