package particles

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpsert_CreatesAndOverwrites(t *testing.T) {
	s := NewStore()
	s.Upsert(3, Particle{X: 1.2, Y: -0.4, Weight: 0.01})
	snap := s.ReadAll()
	require.Len(t, snap.Particles, 1)
	require.Equal(t, Particle{Index: 3, X: 1.2, Y: -0.4, Weight: 0.01}, snap.Particles[3])

	s.Upsert(3, Particle{X: 1.3, Y: -0.4, Weight: 0.02})
	snap = s.ReadAll()
	require.Len(t, snap.Particles, 1)
	require.Equal(t, 1.3, snap.Particles[3].X)
	require.Equal(t, -0.4, snap.Particles[3].Y)
}

func TestUpsert_Idempotent(t *testing.T) {
	once := NewStore()
	once.Upsert(7, Particle{X: 2, Y: 3})

	twice := NewStore()
	twice.Upsert(7, Particle{X: 2, Y: 3})
	twice.Upsert(7, Particle{X: 2, Y: 3})

	require.Equal(t, once.ReadAll().Particles, twice.ReadAll().Particles)
}

func TestUpsert_NeverExpiresStaleIndices(t *testing.T) {
	s := NewStore()
	for i := 0; i < 10; i++ {
		s.Upsert(i, Particle{X: float64(i)})
	}
	// A later, smaller snapshot only refreshes the first few slots.
	for i := 0; i < 3; i++ {
		s.Upsert(i, Particle{X: float64(i) + 0.5})
	}
	require.Equal(t, 10, s.Len())
}

func TestReadAll_ReturnsIndependentCopy(t *testing.T) {
	s := NewStore()
	s.Upsert(1, Particle{X: 1})
	snap := s.ReadAll()
	snap.Particles[1] = Particle{X: 99}
	snap.Particles[2] = Particle{X: 2}

	again := s.ReadAll()
	require.Len(t, again.Particles, 1)
	require.Equal(t, 1.0, again.Particles[1].X)
}

func TestEstimatedPose(t *testing.T) {
	s := NewStore()
	require.False(t, s.ReadAll().HasPose)

	s.SetEstimatedPose(EstimatedPose{X: 1, Y: 2, Heading: 0.5})
	s.SetEstimatedPose(EstimatedPose{X: 3, Y: 4, Heading: 1.5})
	snap := s.ReadAll()
	require.True(t, snap.HasPose)
	require.Equal(t, EstimatedPose{X: 3, Y: 4, Heading: 1.5}, snap.Pose)
	require.Equal(t, uint64(2), snap.Updates)
}

func TestConcurrentWriterAndReaders(t *testing.T) {
	s := NewStore()
	const n = 2000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			s.Upsert(i%500, Particle{X: float64(i), Y: float64(-i)})
			if i%100 == 0 {
				s.SetEstimatedPose(EstimatedPose{X: float64(i)})
			}
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				snap := s.ReadAll()
				for idx, p := range snap.Particles {
					if p.Index != idx || p.Y != -p.X {
						t.Errorf("torn particle %d: %+v", idx, p)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 500, s.Len())
}

func TestSnapshot_IndicesSorted(t *testing.T) {
	s := NewStore()
	for _, i := range []int{9, 2, 5, 0} {
		s.Upsert(i, Particle{})
	}
	require.Equal(t, []int{0, 2, 5, 9}, s.ReadAll().Indices())
}

func TestSnapshot_Spread(t *testing.T) {
	s := NewStore()
	_, ok := s.ReadAll().Spread()
	require.False(t, ok)

	s.Upsert(0, Particle{X: 1, Y: 10})
	s.Upsert(1, Particle{X: 3, Y: 10})
	sp, ok := s.ReadAll().Spread()
	require.True(t, ok)
	require.InDelta(t, 2.0, sp.MeanX, 1e-12)
	require.InDelta(t, 10.0, sp.MeanY, 1e-12)
	require.InDelta(t, 1.0, sp.StdX, 1e-12)
	require.InDelta(t, 0.0, sp.StdY, 1e-12)
	require.False(t, math.IsNaN(sp.StdY))
}
