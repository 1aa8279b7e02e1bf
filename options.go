package trajhash

import (
	"log/slog"

	"github.com/kahlertfr/trajectory-spatialhash-sub000/query"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/resource"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	controller       *resource.Controller
	positions        query.PositionProvider
	eagerIDs         bool
	maxLoadedIndices int
	blockCacheBytes  int64
	blockSize        int64
}

// Option configures Store behavior at Open time.
type Option func(*options)

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations.
//
// Example with BasicMetricsCollector:
//
//	metrics := &trajhash.BasicMetricsCollector{}
//	st, _ := trajhash.Open(ctx, trajhash.Local(dir),
//	    trajhash.WithMetricsCollector(metrics))
//	// ... use st ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc != nil {
			o.metricsCollector = mc
		}
	}
}

// WithController applies a resource controller: its memory budget
// accounts loaded indices, shards and cached blocks, its IO budget
// throttles saves and lazy id fetches.
func WithController(rc *resource.Controller) Option {
	return func(o *options) { o.controller = rc }
}

// WithPositionProvider wires the exact-position source used to filter
// index candidates. All query methods require it.
func WithPositionProvider(p query.PositionProvider) Option {
	return func(o *options) { o.positions = p }
}

// WithEagerIDs loads trajectory ids into memory with each index
// instead of fetching them per queried cell. Trades resident memory
// for per-cell latency.
func WithEagerIDs() Option {
	return func(o *options) { o.eagerIDs = true }
}

// WithMaxLoadedIndices bounds how many indices stay loaded at once;
// the least recently used index is evicted first. 0 means unlimited.
func WithMaxLoadedIndices(n int) Option {
	return func(o *options) { o.maxLoadedIndices = n }
}

// WithBlockCache caches lazily fetched id blocks up to maxBytes,
// so repeated queries against the same cells skip the backing store.
// Most useful with remote stores where a cold fetch is a network
// round trip.
func WithBlockCache(maxBytes int64) Option {
	return func(o *options) { o.blockCacheBytes = maxBytes }
}

// WithBlockSize sets the block granularity of the block cache.
// Defaults to 4KB.
func WithBlockSize(blockSize int64) Option {
	return func(o *options) { o.blockSize = blockSize }
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
