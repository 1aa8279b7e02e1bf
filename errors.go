package trajhash

import (
	"errors"
	"fmt"

	"github.com/kahlertfr/trajectory-spatialhash-sub000/index"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/persistence"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/pipeline"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/query"
)

var (
	// ErrValidation indicates a malformed or internally inconsistent
	// index file: bad magic or version, unsorted entry keys, entry
	// ranges past the id section, or header counts that disagree with
	// the file.
	ErrValidation = errors.New("index validation failed")

	// ErrPrecondition indicates an invalid argument: a non-positive
	// cell size, an inverted time range or radius pair, or a query
	// without a position provider.
	ErrPrecondition = errors.New("precondition failed")

	// ErrClosed is returned when a closed store is used.
	ErrClosed = errors.New("store is closed")
)

// translateError maps subpackage errors into the public taxonomy.
// IO errors pass through unchanged so callers can keep matching them
// with errors.Is against fs and driver sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, persistence.ErrInvalidMagic),
		errors.Is(err, persistence.ErrInvalidVersion),
		errors.Is(err, persistence.ErrCorrupted),
		errors.Is(err, index.ErrUnsortedEntries),
		errors.Is(err, index.ErrEntryOutOfRange),
		errors.Is(err, index.ErrCountMismatch):
		return fmt.Errorf("%w: %w", ErrValidation, err)

	case errors.Is(err, index.ErrInvalidCellSize),
		errors.Is(err, pipeline.ErrNoCellSizes),
		errors.Is(err, query.ErrInvalidRadius),
		errors.Is(err, query.ErrInvalidTimeRange),
		errors.Is(err, query.ErrNoPositions):
		return fmt.Errorf("%w: %w", ErrPrecondition, err)
	}

	return err
}
