// Package particles holds the latest particle cloud and pose estimate reported
// by the localization engine. The engine reader is the only writer; the tick
// and render paths read consistent copies.
package particles

import (
	"sort"
	"sync"

	"github.com/montanaflynn/stats"
	"github.com/samber/lo"
)

// Particle is one hypothesis of the engine, in engine (physical) units.
type Particle struct {
	Index  int
	X, Y   float64
	Weight float64
}

// EstimatedPose is the engine's best guess of the robot pose, in engine units
// and radians. It is a different type from the simulator's own
// ground-truth pose.
type EstimatedPose struct {
	X, Y    float64
	Heading float64
}

// Store is a mutex-guarded particle map plus the last estimated pose.
// Entries are created or overwritten, never removed: the engine is expected
// to keep refreshing every index it wants drawn.
type Store struct {
	mu        sync.RWMutex
	particles map[int]Particle
	pose      EstimatedPose
	hasPose   bool
	updates   uint64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{particles: make(map[int]Particle)}
}

// Upsert creates or overwrites the particle at index.
func (s *Store) Upsert(index int, p Particle) {
	p.Index = index
	s.mu.Lock()
	s.particles[index] = p
	s.updates++
	s.mu.Unlock()
}

// SetEstimatedPose replaces the current estimate.
func (s *Store) SetEstimatedPose(pose EstimatedPose) {
	s.mu.Lock()
	s.pose = pose
	s.hasPose = true
	s.updates++
	s.mu.Unlock()
}

// Len returns the number of particle slots seen so far.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.particles)
}

// Snapshot is a point-in-time copy of the store. It shares nothing with the
// store and may be used freely by the caller.
type Snapshot struct {
	Particles map[int]Particle
	Pose      EstimatedPose
	HasPose   bool
	// Updates counts every write applied to the store before the copy was taken.
	Updates uint64
}

// ReadAll copies the particle map and the estimate under one read lock.
func (s *Store) ReadAll() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make(map[int]Particle, len(s.particles))
	for k, v := range s.particles {
		cp[k] = v
	}
	return Snapshot{
		Particles: cp,
		Pose:      s.pose,
		HasPose:   s.hasPose,
		Updates:   s.updates,
	}
}

// Indices returns the particle indices in ascending order.
func (snap Snapshot) Indices() []int {
	keys := lo.Keys(snap.Particles)
	sort.Ints(keys)
	return keys
}

// Spread summarises the cloud: the mean position and the standard deviation
// along each axis. ok is false for an empty cloud.
type Spread struct {
	MeanX, MeanY float64
	StdX, StdY   float64
}

// Spread computes the cloud's mean and per-axis standard deviation.
func (snap Snapshot) Spread() (Spread, bool) {
	if len(snap.Particles) == 0 {
		return Spread{}, false
	}
	ps := lo.Values(snap.Particles)
	xs := stats.Float64Data(lo.Map(ps, func(p Particle, _ int) float64 { return p.X }))
	ys := stats.Float64Data(lo.Map(ps, func(p Particle, _ int) float64 { return p.Y }))

	var sp Spread
	var err error
	if sp.MeanX, err = stats.Mean(xs); err != nil {
		return Spread{}, false
	}
	if sp.MeanY, err = stats.Mean(ys); err != nil {
		return Spread{}, false
	}
	if sp.StdX, err = stats.StandardDeviation(xs); err != nil {
		return Spread{}, false
	}
	if sp.StdY, err = stats.StandardDeviation(ys); err != nil {
		return Spread{}, false
	}
	return sp, true
}
