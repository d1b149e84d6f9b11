package navigation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/arena/internal/core/arena"
	"github.com/zeusync/arena/internal/core/linalg"
	"github.com/zeusync/arena/internal/core/observability/log"
)

var (
	flatMesh = sync.OnceValue(func() *Mesh { return buildMesh("flat") })
	soccar   = sync.OnceValue(func() *Mesh { return buildMesh("soccar") })
)

func buildMesh(mode string) *Mesh {
	g, err := arena.Build(mode, "")
	if err != nil {
		panic(err)
	}
	return NewMesh(g, DefaultConfig())
}

func TestMesh_Build(t *testing.T) {
	m := soccar()
	require.NotNil(t, m)
	assert.Greater(t, m.Len(), 100)
	assert.Greater(t, m.Edges(), m.Len())

	for _, n := range m.nodes {
		assert.GreaterOrEqual(t, n.normal[2], minNormalZ)
		assert.InDelta(t, 1, n.normal.Len(), 1e-9)
	}
	for _, e := range m.edges {
		assert.GreaterOrEqual(t, e.weight, 0.0)
		assert.Less(t, e.target, int32(m.Len()*Headings))
	}
}

func TestMesh_Deterministic(t *testing.T) {
	g, err := arena.Build("flat", "")
	require.NoError(t, err)

	serial, parallel := DefaultConfig(), DefaultConfig()
	serial.Workers, parallel.Workers = 1, 8

	a := NewMesh(g, serial)
	b := NewMesh(g, parallel)
	assert.Equal(t, a.nodes, b.nodes)
	assert.Equal(t, a.offsets, b.offsets)
	assert.Equal(t, a.edges, b.edges)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, MeshKey(g, DefaultConfig()), a.Fingerprint())

	other := DefaultConfig()
	other.NodeSpacing = 300
	assert.NotEqual(t, a.Fingerprint(), MeshKey(g, other))
}

func TestMesh_NilGeometry(t *testing.T) {
	m := NewMesh(nil, DefaultConfig())
	assert.Nil(t, m)
	assert.Zero(t, m.Len())
	assert.Nil(t, m.Analyze(linalg.Zero, linalg.UnitX, 1000))
}

func TestMesh_HeadingBins(t *testing.T) {
	n := node{normal: linalg.UnitZ, basis: linalg.Basis(linalg.UnitZ)}
	for h := 0; h < Headings; h++ {
		assert.Equal(t, h, n.closestHeading(n.heading(h)))
		assert.InDelta(t, 1, n.heading(h).Len(), 1e-12)
	}
	assert.Equal(t, 0, n.closestHeading(linalg.UnitX))
	assert.Equal(t, Headings/4, n.closestHeading(linalg.UnitY))
	assert.Equal(t, 0, n.closestHeading(linalg.UnitZ))
}

func TestAnalysis_Bounded(t *testing.T) {
	m := flatMesh()
	origin := linalg.Vec3{0, 0, 17}

	near := m.Analyze(origin, linalg.UnitX, 1500)
	far := m.Analyze(origin, linalg.UnitX, 6000)
	require.NotNil(t, near)
	assert.Greater(t, near.Reached(), 1)
	assert.Greater(t, far.Reached(), near.Reached())

	_, ok := near.DistanceTo(linalg.Vec3{4000, 0, 17})
	assert.False(t, ok)
	d, ok := far.DistanceTo(linalg.Vec3{4000, 0, 17})
	require.True(t, ok)
	assert.Greater(t, d, 3000.0)
}

func newNavigator(m *Mesh) *Navigator {
	return NewNavigator(m, DefaultConfig(), log.Nop())
}

func TestNavigator_PlanOnFlat(t *testing.T) {
	nav := newNavigator(flatMesh())
	start := Pose{Position: linalg.Vec3{0, -2000, 17}, Tangent: linalg.UnitY}
	end := linalg.Vec3{1500, 2000, 17}

	c := nav.Plan(start, end, linalg.UnitX, 300)
	assertWellFormed(t, c)

	assert.Equal(t, start.Position, c.Start())
	assert.Equal(t, end, c.End())
	assertVec(t, linalg.UnitY, c.Tangents[0], 1e-12)
	assertVec(t, linalg.UnitX, c.Tangents[c.Len()-1], 1e-12)
	assert.GreaterOrEqual(t, c.Length, linalg.Distance(start.Position, end))
	assert.GreaterOrEqual(t, c.Len(), 2*samplesPerSegment+1, "path runs through the mesh")
	assert.Equal(t, uint64(1), nav.Analyses())

	for _, p := range c.Points {
		assert.InDelta(t, 17, p[2], 1e-6)
	}
}

func TestNavigator_PlanOnSoccar(t *testing.T) {
	start := Pose{Position: linalg.Vec3{0, -2000, 17}, Tangent: linalg.UnitY}
	end := linalg.Vec3{1500, 2000, 17}

	first := newNavigator(soccar()).Plan(start, end, linalg.UnitX, 300)
	second := newNavigator(soccar()).Plan(start, end, linalg.UnitX, 300)
	assertWellFormed(t, first)
	assert.Equal(t, first, second)
	assert.Equal(t, start.Position, first.Start())
	assert.Equal(t, end, first.End())
}

func TestNavigator_Staleness(t *testing.T) {
	nav := newNavigator(flatMesh())
	end := linalg.Vec3{2000, 2000, 17}
	pose := Pose{Position: linalg.Vec3{0, 0, 17}, Tangent: linalg.UnitX}

	nav.Plan(pose, end, linalg.UnitY, 200)
	nav.Plan(pose, end, linalg.UnitY, 200)
	require.Equal(t, uint64(1), nav.Analyses())

	moved := pose
	moved.Position = pose.Position.Add(linalg.Vec3{0.3, 0, 0})
	nav.Plan(moved, end, linalg.UnitY, 200)
	assert.Equal(t, uint64(1), nav.Analyses())

	moved.Position = pose.Position.Add(linalg.Vec3{1, 0, 0})
	c := nav.Plan(moved, end, linalg.UnitY, 200)
	assert.Equal(t, uint64(2), nav.Analyses())
	assert.Equal(t, moved.Position, c.Start(), "path starts at the new pose")

	turned := moved
	turned.Tangent = linalg.Vec3{1, 0.001, 0}
	nav.Plan(turned, end, linalg.UnitY, 200)
	assert.Equal(t, uint64(2), nav.Analyses())

	turned.Tangent = linalg.Vec3{1, 0.01, 0}
	nav.Plan(turned, end, linalg.UnitY, 200)
	assert.Equal(t, uint64(3), nav.Analyses())

	nav.Rebind(flatMesh())
	nav.Plan(turned, end, linalg.UnitY, 200)
	assert.Equal(t, uint64(4), nav.Analyses())
}

func TestNavigator_ReanalysisIsIdempotent(t *testing.T) {
	nav := newNavigator(flatMesh())
	nav.SetPose(linalg.Vec3{200, -300, 17}, linalg.Vec3{1, 1, 0})
	end := linalg.Vec3{2500, 1500, 17}

	nav.AnalyzeSurroundings(6000)
	first := nav.analysis
	path := nav.PathTo(end, linalg.UnitY, 300)

	nav.AnalyzeSurroundings(6000)
	second := nav.analysis
	require.NotSame(t, first, second)
	assert.Equal(t, uint64(2), nav.Analyses())

	assert.Equal(t, first.source, second.source)
	assert.Equal(t, first.reached, second.reached)
	assert.Equal(t, first.dist, second.dist)
	assert.Equal(t, first.parent, second.parent)
	assert.Equal(t, path, nav.PathTo(end, linalg.UnitY, 300))
}

func TestNavigator_UnreachableGoalBehind(t *testing.T) {
	nav := newNavigator(nil)
	pose := Pose{Position: linalg.Vec3{0, 0, 17}, Tangent: linalg.UnitX}
	end := linalg.Vec3{1000, 0, 17}

	c := nav.Plan(pose, end, linalg.UnitX.Mul(-1), 300)
	assertWellFormed(t, c)
	assertTurningMatchesCurvature(t, c, 0.005)

	assert.Equal(t, pose.Position, c.Start())
	assert.Equal(t, end, c.End())
	assertVec(t, linalg.UnitX.Mul(-1), c.Tangents[c.Len()-1], 1e-12)
	for _, p := range c.Points {
		assert.InDelta(t, 17, p[2], 1e-9)
	}
}

func TestNavigator_NegativeMultiplier(t *testing.T) {
	nav := newNavigator(flatMesh())
	pose := Pose{Position: linalg.Vec3{0, -2000, 17}, Tangent: linalg.UnitY}
	end := linalg.Vec3{1500, 2000, 17}

	backward := nav.Plan(pose, end, linalg.UnitX, -500)
	assertWellFormed(t, backward)
	assert.Equal(t, end, backward.End())
	assert.Equal(t, nav.Plan(pose, end, linalg.UnitX, 0), backward)
	assert.Equal(t, uint64(1), nav.Analyses())
}

func TestNavigator_ExplicitSession(t *testing.T) {
	nav := newNavigator(flatMesh())
	nav.SetPose(linalg.Vec3{0, 0, 17}, linalg.UnitX)
	assert.Equal(t, linalg.UnitX, nav.Pose().Tangent)

	before := nav.PathTo(linalg.Vec3{3000, 0, 17}, linalg.UnitX, 0)
	assert.Equal(t, samplesPerSegment+1, before.Len(), "no analysis yet")

	nav.AnalyzeSurroundings(6000)
	after := nav.PathTo(linalg.Vec3{3000, 0, 17}, linalg.UnitX, 500)
	assertWellFormed(t, after)
	assert.Equal(t, linalg.Vec3{3000, 0, 17}, after.End())
	assert.Greater(t, after.Len(), samplesPerSegment+1)
}

func TestNavigator_Degenerate(t *testing.T) {
	nav := newNavigator(nil)
	pose := Pose{Position: linalg.Vec3{100, 100, 17}, Tangent: linalg.Zero}

	same := nav.Plan(pose, pose.Position, linalg.Zero, 300)
	require.Equal(t, 1, same.Len())
	assert.Equal(t, pose.Position, same.Start())
	assert.Equal(t, linalg.UnitX, same.Tangents[0])

	direct := nav.Plan(pose, linalg.Vec3{100, 900, 17}, linalg.Zero, 300)
	assertWellFormed(t, direct)
	assert.Equal(t, samplesPerSegment+1, direct.Len())
	assertVec(t, linalg.UnitY, direct.Tangents[0], 1e-12)
	assert.Zero(t, nav.Analyses())
}

func TestNavigator_ConcurrentPlan(t *testing.T) {
	nav := newNavigator(flatMesh())
	pose := Pose{Position: linalg.Vec3{-1000, -1000, 17}, Tangent: linalg.UnitY}
	end := linalg.Vec3{1000, 1500, 17}
	want := nav.Plan(pose, end, linalg.UnitX, 400)

	var wg sync.WaitGroup
	results := make([]Curve, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = nav.Plan(pose, end, linalg.UnitX, 400)
		}()
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
	assert.Equal(t, uint64(1), nav.Analyses())
}

func BenchmarkNavigator_Plan(b *testing.B) {
	m := soccar()
	start := Pose{Position: linalg.Vec3{0, -2000, 17}, Tangent: linalg.UnitY}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		nav := NewNavigator(m, DefaultConfig(), log.Nop())
		_ = nav.Plan(start, linalg.Vec3{1500, 2000, 17}, linalg.UnitX, 300)
	}
}
