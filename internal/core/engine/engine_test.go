package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/arena/internal/core/arena"
	"github.com/zeusync/arena/internal/core/linalg"
	"github.com/zeusync/arena/internal/core/navigation"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/internal/core/simulation"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(DefaultConfig(), navigation.DefaultConfig(), log.Nop())
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func initialized(t *testing.T, mode string) *Engine {
	t.Helper()
	e := newEngine(t)
	require.NoError(t, e.Initialize(mode, ""))
	return e
}

func TestEngine_UninitializedSentinels(t *testing.T) {
	e := newEngine(t)
	require.False(t, e.Initialized())

	ball := simulation.NewBall(linalg.Vec3{0, 0, 1000}, linalg.Zero, linalg.Zero)
	car := simulation.NewCar(linalg.Vec3{0, 0, 500}, linalg.Identity())

	assert.Equal(t, arena.NoContact, e.QuerySurfaceContact(linalg.Vec3{0, 0, 100}, 1000))
	assert.Equal(t, simulation.Ball{}, e.SimulateBall(ball, 1))
	assert.Empty(t, e.SimulateBallTrajectory(ball, 60, 1))
	assert.Equal(t, simulation.Car{}, e.SimulateVehicle(car, 1))

	final, ray := e.SimulateVehicleCollision(car)
	assert.Equal(t, simulation.Car{}, final)
	assert.Equal(t, arena.NoContact, ray)

	assert.Equal(t, simulation.Ball{}, e.SimulateBallVehicleInteraction(ball, car, 1.0/120))
	assert.Zero(t, e.RequestPath(linalg.Zero, linalg.UnitX, linalg.Vec3{1000, 0, 0}, linalg.UnitX, 100).Len())

	mode, name := e.Mode()
	assert.Empty(t, mode)
	assert.Empty(t, name)
	assert.Equal(t, State{}, e.State())
}

func TestEngine_AttitudeWithoutArena(t *testing.T) {
	e := newEngine(t)
	cmd := e.ComputeAttitudeCommand(linalg.Identity(), linalg.Zero, linalg.Euler(0, 1, 0), 1.0/120)
	assert.NotEqual(t, linalg.Zero, cmd)
	for _, u := range cmd {
		assert.LessOrEqual(t, u, 1.0)
		assert.GreaterOrEqual(t, u, -1.0)
	}

	quiet := e.ComputeAttitudeCommand(linalg.Identity(), linalg.Zero, linalg.Identity(), 1.0/120)
	assert.Equal(t, linalg.Zero, quiet)
}

func TestEngine_InitializeIdempotent(t *testing.T) {
	e := initialized(t, "flat")
	before := e.State()
	require.True(t, before.Initialized)

	require.NoError(t, e.Initialize(" FLAT ", "standard"))
	assert.Equal(t, before, e.State())
	assert.Equal(t, uint64(1), e.Stats().Builds)

	mode, name := e.Mode()
	assert.Equal(t, "flat", mode)
	assert.Equal(t, "standard", name)
	assert.Greater(t, before.Triangles, 0)
	assert.Greater(t, before.MeshNodes, 0)
}

func TestEngine_InitializeErrors(t *testing.T) {
	e := newEngine(t)
	assert.ErrorIs(t, e.Initialize("rumble", ""), arena.ErrUnknownMode)
	assert.ErrorIs(t, e.Initialize("soccar", "moon"), arena.ErrUnknownMap)
	assert.False(t, e.Initialized())

	require.NoError(t, e.Initialize("flat", ""))
	assert.ErrorIs(t, e.Initialize("hoops", "nowhere"), arena.ErrUnknownMap)
	mode, _ := e.Mode()
	assert.Equal(t, "flat", mode, "failed initialize keeps the published arena")
}

func TestEngine_ConcurrentInitialize(t *testing.T) {
	e := newEngine(t)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = e.Initialize("flat", "")
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = e.QuerySurfaceContact(linalg.Vec3{0, 0, 100}, 200)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.True(t, e.Initialized())
	assert.Equal(t, uint64(1), e.Stats().Builds)
}

func TestEngine_SwitchArenaUsesCache(t *testing.T) {
	e := initialized(t, "flat")
	flat := e.State()

	require.NoError(t, e.Initialize("hoops", ""))
	assert.Equal(t, "hoops", e.State().Mode)
	assert.NotEqual(t, flat.Fingerprint, e.State().Fingerprint)

	require.NoError(t, e.Initialize("flat", ""))
	assert.Equal(t, flat, e.State())
	assert.Equal(t, uint64(2), e.Stats().Builds)

	e.Reset()
	assert.False(t, e.Initialized())
	require.NoError(t, e.Initialize("flat", ""))
	assert.Equal(t, uint64(2), e.Stats().Builds)
}

func TestEngine_QuerySurfaceContact(t *testing.T) {
	e := initialized(t, "flat")

	assert.False(t, e.QuerySurfaceContact(linalg.Vec3{0, 0, 1000}, 50).Hit())

	ray := e.QuerySurfaceContact(linalg.Vec3{0, 0, 1000}, 1200)
	require.True(t, ray.Hit())
	assert.InDelta(t, 1, ray.Direction.Dot(linalg.UnitZ), 1e-9)
}

func TestEngine_SimulateBall(t *testing.T) {
	e := initialized(t, "flat")
	g, err := arena.Build("flat", "")
	require.NoError(t, err)

	ball := simulation.NewBall(linalg.Vec3{0, 0, 1000}, linalg.Vec3{200, 0, 0}, linalg.Zero)

	final := e.SimulateBall(ball, 2)
	assert.Equal(t, simulation.PredictBall(ball, 2, 1.0/120, g), final)

	frames := e.SimulateBallTrajectory(ball, 60, 2)
	require.Len(t, frames, 120)
	assert.InDelta(t, 2, frames[len(frames)-1].Time, 1e-9)

	defaultRate := e.SimulateBallTrajectory(ball, 0, 1)
	assert.Len(t, defaultRate, 120)
}

func TestEngine_FastBallStaysInArena(t *testing.T) {
	e := initialized(t, "soccar")
	ball := simulation.NewBall(linalg.Vec3{0, 0, 95}, linalg.Vec3{0, 0, -6000}, linalg.Zero)

	for _, rate := range []float64{60, 30} {
		frames := e.SimulateBallTrajectory(ball, rate, 2)
		require.NotEmpty(t, frames)
		for _, f := range frames {
			require.Greater(t, f.Position[2], 0.0, "tick rate %v", rate)
		}
	}
	assert.Greater(t, e.SimulateBall(ball, 2).Position[2], 0.0)
}

func TestEngine_SimulateVehicle(t *testing.T) {
	e := initialized(t, "flat")

	car := simulation.NewCar(linalg.Vec3{0, 0, 1000}, linalg.Identity())
	final := e.SimulateVehicle(car, 1)
	assert.InDelta(t, 1, final.Time, 1e-9)
	assert.Less(t, final.Position[2], car.Position[2])

	landed, ray := e.SimulateVehicleCollision(car)
	require.True(t, ray.Hit())
	assert.Less(t, landed.Time, DefaultConfig().CollisionHorizon)
	assert.Greater(t, ray.Direction.Dot(linalg.UnitZ), 0.99)
}

func TestEngine_BallVehicleInteraction(t *testing.T) {
	e := initialized(t, "flat")

	car := simulation.NewCar(linalg.Vec3{0, 0, 300}, linalg.Identity())
	car.Velocity = linalg.Vec3{1400, 0, 0}
	ball := simulation.NewBall(car.HitboxCenter().Add(linalg.Vec3{150, 0, 0}), linalg.Zero, linalg.Zero)

	hit := e.SimulateBallVehicleInteraction(ball, car, 1.0/120)
	assert.Greater(t, hit.Velocity[0], 1000.0)
	assert.Equal(t, linalg.Vec3{1400, 0, 0}, car.Velocity)
}

func TestEngine_RequestPath(t *testing.T) {
	e := initialized(t, "flat")

	start, end := linalg.Vec3{0, -2000, 17}, linalg.Vec3{1500, 2000, 17}
	c := e.RequestPath(start, linalg.UnitY, end, linalg.UnitX, 300)
	require.Greater(t, c.Len(), 1)
	assert.Equal(t, start, c.Start())
	assert.Equal(t, end, c.End())
	assert.Equal(t, 0.0, c.Distances[0])
	assert.Equal(t, c.Length, c.Distances[c.Len()-1])

	again := e.RequestPath(start, linalg.UnitY, end, linalg.UnitX, 300)
	assert.Equal(t, c, again)
	assert.Equal(t, uint64(1), e.Stats().Analyses)
}

func TestEngine_Stats(t *testing.T) {
	e := newEngine(t)
	e.QuerySurfaceContact(linalg.Zero, 10)
	require.NoError(t, e.Initialize("flat", ""))
	e.QuerySurfaceContact(linalg.Zero, 10)

	require.Eventually(t, func() bool {
		return e.Stats().Ops[OpContact].Calls == 2
	}, 2*time.Second, 10*time.Millisecond)

	stats := e.Stats()
	assert.Equal(t, uint64(1), stats.Ops[OpContact].Misses)
	assert.Equal(t, uint64(1), stats.Ops[OpInitialize].Calls)
	assert.True(t, stats.State.Initialized)
}

func TestEngine_Closed(t *testing.T) {
	e := New(DefaultConfig(), navigation.DefaultConfig(), log.Nop())
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.ErrorIs(t, e.Initialize("flat", ""), ErrClosed)
}

func BenchmarkEngine_QuerySurfaceContact(b *testing.B) {
	e := New(DefaultConfig(), navigation.DefaultConfig(), log.Nop())
	defer e.Close()
	if err := e.Initialize("soccar", ""); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.QuerySurfaceContact(linalg.Vec3{3000, 4000, 300}, 400)
	}
}

func TestEngine_Preload(t *testing.T) {
	e := newEngine(t)

	require.NoError(t, e.Preload("hoops", "soccar/standard", "HOOPS/dunk_house"))
	assert.Equal(t, uint64(2), e.Stats().Builds)
	assert.False(t, e.Initialized(), "preloading publishes nothing")

	require.NoError(t, e.Initialize("soccar", "standard"))
	require.NoError(t, e.Initialize("hoops", ""))
	assert.Equal(t, uint64(2), e.Stats().Builds)

	assert.ErrorIs(t, e.Preload("flat", "rumble"), arena.ErrUnknownMode)
	assert.ErrorIs(t, e.Preload("soccar/moon"), arena.ErrUnknownMap)
	assert.Equal(t, uint64(2), e.Stats().Builds)
}

func TestParseArena(t *testing.T) {
	mode, name, err := ParseArena("soccar")
	require.NoError(t, err)
	assert.Equal(t, "soccar", mode)
	assert.Equal(t, "standard", name)

	mode, name, err = ParseArena(" Dropshot/CORE_707 ")
	require.NoError(t, err)
	assert.Equal(t, "dropshot", mode)
	assert.Equal(t, "core_707", name)
}
