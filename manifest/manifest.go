// Package manifest persists a small JSON summary of a completed
// construction run. The read side uses it for discovery when present;
// queries work from the index files alone and never require it.
package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/kahlertfr/trajectory-spatialhash-sub000/blobstore"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/index"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/model"
)

// Version is the current manifest schema version.
const Version = 1

// Name is the manifest's blob name below the dataset root.
var Name = index.RootDir + "/manifest.json"

// Manifest summarizes one construction run. The encoding is
// deterministic: identical runs write identical bytes.
type Manifest struct {
	Version   int        `json:"version"`
	CellSizes []float32  `json:"cell_sizes"`
	TimeRange TimeRange  `json:"time_range"`
	BBoxMin   [3]float32 `json:"bbox_min"`
	BBoxMax   [3]float32 `json:"bbox_max"`

	ShardsTotal   int `json:"shards_total"`
	ShardsSkipped int `json:"shards_skipped"`
	IndexCount    int `json:"index_count"`
}

// TimeRange mirrors model.TimeRange with stable JSON field names.
type TimeRange struct {
	Min model.TimeStep `json:"min"`
	Max model.TimeStep `json:"max"`
}

// Normalize sorts the cell size list so the encoding does not depend on
// configuration order.
func (m *Manifest) Normalize() {
	sort.Slice(m.CellSizes, func(i, j int) bool { return m.CellSizes[i] < m.CellSizes[j] })
}

// Write stores the manifest at its conventional name.
func Write(ctx context.Context, store blobstore.Store, m *Manifest) error {
	m.Normalize()
	m.Version = Version

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	data = append(data, '\n')

	if err := store.Put(ctx, Name, data); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Read loads the manifest from its conventional name.
// A missing manifest surfaces as blobstore.ErrNotFound.
func Read(ctx context.Context, store blobstore.Store) (*Manifest, error) {
	blob, err := store.Open(ctx, Name)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	rc, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Version != Version {
		return nil, fmt.Errorf("unsupported manifest version %d", m.Version)
	}
	return &m, nil
}
