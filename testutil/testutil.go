package testutil

import (
	"context"
	"math/rand"
	"slices"
	"sync"

	"github.com/kahlertfr/trajectory-spatialhash-sub000/grid"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/model"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/shard"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// Vec3In returns a position uniformly distributed inside box.
func (r *RNG) Vec3In(box grid.BBox) model.Vec3 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vec3In(box)
}

func (r *RNG) vec3In(box grid.BBox) model.Vec3 {
	var p model.Vec3
	for i := range 3 {
		p[i] = box.Min[i] + r.rand.Float32()*(box.Max[i]-box.Min[i])
	}
	return p
}

// WalkShards generates numShards consecutive shards of random-walk
// trajectories. Every trajectory starts uniformly inside box and moves
// by a Gaussian step of the given sigma per time step; walks continue
// across shard boundaries and are clamped to box.
// Locks only once per call.
func (r *RNG) WalkShards(numShards, stepsPerShard, numTrajectories int, box grid.BBox, sigma float32) []*shard.Shard {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := make([]model.Vec3, numTrajectories)
	for i := range cur {
		cur[i] = r.vec3In(box)
	}

	shards := make([]*shard.Shard, 0, numShards)
	start := model.TimeStep(0)
	for range numShards {
		sh := &shard.Shard{Start: start, Steps: stepsPerShard}
		sh.Trajectories = make([]shard.Trajectory, numTrajectories)
		for t := range numTrajectories {
			sh.Trajectories[t] = shard.Trajectory{
				ID:        model.TrajectoryID(t + 1),
				Positions: make([]model.Vec3, stepsPerShard),
			}
		}

		for s := range stepsPerShard {
			for t := range numTrajectories {
				sh.Trajectories[t].Positions[s] = cur[t]
				for i := range 3 {
					v := cur[t][i] + float32(r.rand.NormFloat64())*sigma
					if v < box.Min[i] {
						v = box.Min[i]
					}
					if v > box.Max[i] {
						v = box.Max[i]
					}
					cur[t][i] = v
				}
			}
		}

		shards = append(shards, sh)
		start += model.TimeStep(stepsPerShard)
	}

	return shards
}

// Positions is a position lookup over generated shards. It satisfies
// query.PositionProvider and doubles as the brute-force ground truth.
type Positions map[model.TimeStep]map[model.TrajectoryID]model.Vec3

// CollectPositions indexes every valid sample of the given shards.
func CollectPositions(shards ...*shard.Shard) Positions {
	p := make(Positions)
	for _, sh := range shards {
		rng := sh.Range()
		for step := rng.Min; step <= rng.Max; step++ {
			sh.Samples(step, func(s model.Sample) {
				byID, ok := p[step]
				if !ok {
					byID = make(map[model.TrajectoryID]model.Vec3)
					p[step] = byID
				}
				byID[s.ID] = s.Position
			})
		}
	}
	return p
}

// Position implements query.PositionProvider.
func (p Positions) Position(_ context.Context, id model.TrajectoryID, step model.TimeStep) (model.Vec3, bool, error) {
	pos, ok := p[step][id]
	return pos, ok, nil
}

// ExactWithinRadius brute-forces the trajectories within radius of pos
// at the given step. IDs are returned in ascending order.
func (p Positions) ExactWithinRadius(step model.TimeStep, pos model.Vec3, radius float64) []model.TrajectoryID {
	var ids []model.TrajectoryID
	for id, q := range p[step] {
		if pos.Dist(q) <= radius {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}
