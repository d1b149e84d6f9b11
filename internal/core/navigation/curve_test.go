package navigation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/arena/internal/core/linalg"
	"github.com/zeusync/arena/internal/core/simulation"
)

func assertVec(t *testing.T, expected, actual linalg.Vec3, delta float64) {
	t.Helper()
	assert.InDeltaSlice(t, expected[:], actual[:], delta)
}

func assertWellFormed(t *testing.T, c Curve) {
	t.Helper()
	n := c.Len()
	require.Greater(t, n, 0)
	require.Len(t, c.Tangents, n)
	require.Len(t, c.Normals, n)
	require.Len(t, c.Distances, n)
	require.Len(t, c.Curvatures, n)

	assert.Equal(t, 0.0, c.Distances[0])
	assert.Equal(t, c.Distances[n-1], c.Length)
	for i := 1; i < n; i++ {
		assert.GreaterOrEqual(t, c.Distances[i], c.Distances[i-1])
	}
	for i := range c.Points {
		assert.True(t, linalg.Finite(c.Points[i]))
		assert.InDelta(t, 1, c.Tangents[i].Len(), 1e-9)
		assert.False(t, math.IsNaN(c.Curvatures[i]))
	}
}

// assertTurningMatchesCurvature compares the turning rate between consecutive
// samples of one segment with the mean of their curvatures.
func assertTurningMatchesCurvature(t *testing.T, c Curve, tolerance float64) {
	t.Helper()
	n := c.Len()
	for i := 0; i+1 < n; i++ {
		if (i+1)%samplesPerSegment == 0 && i+1 != n-1 {
			continue
		}
		a, b := c.Tangents[i], c.Tangents[i+1]
		require.Greater(t, a.Dot(b), 0.9, "tangent reverses at sample %d", i)

		ds := c.Distances[i+1] - c.Distances[i]
		require.Greater(t, ds, 0.0)
		turn := math.Atan2(a.Cross(b).Dot(c.Normals[i]), a.Dot(b))
		assert.InDelta(t, (c.Curvatures[i]+c.Curvatures[i+1])/2, turn/ds, tolerance, "sample %d", i)
	}
}

func TestSegment_Endpoints(t *testing.T) {
	p0, p1 := linalg.Vec3{100, -50, 0}, linalg.Vec3{900, 700, 0}
	s := newSegment(p0, linalg.UnitX, p1, linalg.UnitY)

	assertVec(t, p0, s.evaluate(0), 1e-9)
	assertVec(t, p1, s.evaluate(1), 1e-9)
	assertVec(t, linalg.UnitX, s.tangent(0), 1e-9)
	assertVec(t, linalg.UnitY, s.tangent(1), 1e-9)
}

func TestSegment_OpposingTangentsStayPositive(t *testing.T) {
	s := newSegment(linalg.Zero, linalg.UnitX, linalg.Vec3{1000, 0, 0}, linalg.UnitX.Mul(-1))
	assert.Greater(t, s.a0, 0.0)
	assert.Greater(t, s.a1, 0.0)
	assert.InDelta(t, 250, s.a1, 1e-9)
}

func TestCurve_Straight(t *testing.T) {
	c := NewCurve([]ControlPoint{
		{Position: linalg.Zero, Tangent: linalg.UnitX},
		{Position: linalg.Vec3{1000, 0, 0}, Tangent: linalg.UnitX},
	})
	assertWellFormed(t, c)

	assert.Equal(t, samplesPerSegment+1, c.Len())
	assert.InDelta(t, 1000, c.Length, 1e-6)
	for i := range c.Points {
		assert.InDelta(t, 0, c.Curvatures[i], 1e-9)
		assertVec(t, linalg.UnitZ, c.Normals[i], 1e-12)
	}
	assert.Equal(t, linalg.Zero, c.Start())
	assert.Equal(t, linalg.Vec3{1000, 0, 0}, c.End())
}

func TestCurve_QuarterTurnLeft(t *testing.T) {
	c := NewCurve([]ControlPoint{
		{Position: linalg.Zero, Tangent: linalg.UnitX, Normal: linalg.UnitZ},
		{Position: linalg.Vec3{1000, 1000, 0}, Tangent: linalg.UnitY, Normal: linalg.UnitZ},
	})
	assertWellFormed(t, c)

	turned := 0.0
	for i := range c.Points {
		assert.Greater(t, c.Curvatures[i], 0.5/1000)
		assert.Less(t, c.Curvatures[i], 2.0/1000)
		if i > 0 {
			ds := c.Distances[i] - c.Distances[i-1]
			turned += 0.5 * (c.Curvatures[i] + c.Curvatures[i-1]) * ds
		}
	}
	assert.InDelta(t, math.Pi/2, turned, 0.05)
	assert.Greater(t, c.Length, 1000*math.Sqrt2)
}

func TestCurve_RightTurnIsNegative(t *testing.T) {
	c := NewCurve([]ControlPoint{
		{Position: linalg.Zero, Tangent: linalg.UnitX},
		{Position: linalg.Vec3{1000, -1000, 0}, Tangent: linalg.UnitY.Mul(-1)},
	})
	for _, k := range c.Curvatures {
		assert.Less(t, k, 0.0)
	}
}

func TestCurve_UTurnAddsTurnControls(t *testing.T) {
	start, end := linalg.Zero, linalg.Vec3{1000, 0, 0}
	c := NewCurve([]ControlPoint{
		{Position: start, Tangent: linalg.UnitX},
		{Position: end, Tangent: linalg.UnitX.Mul(-1)},
	})
	assertWellFormed(t, c)
	assertTurningMatchesCurvature(t, c, 0.005)

	assert.Equal(t, 3*samplesPerSegment+1, c.Len())
	assert.Equal(t, start, c.Start())
	assert.Equal(t, end, c.End())
	assertVec(t, linalg.UnitX.Mul(-1), c.Tangents[c.Len()-1], 1e-12)
	assert.Greater(t, c.Length, 1000.0)
}

func TestCurve_ReversingControls(t *testing.T) {
	c := NewCurve([]ControlPoint{
		{Position: linalg.Zero, Tangent: linalg.UnitX},
		{Position: linalg.Vec3{1500, 0, 0}, Tangent: linalg.UnitX},
		{Position: linalg.Vec3{1000, 0, 0}, Tangent: linalg.UnitX},
	})
	assertWellFormed(t, c)
	assertTurningMatchesCurvature(t, c, 0.005)
	assert.Equal(t, linalg.Vec3{1000, 0, 0}, c.End())

	for _, k := range c.Curvatures {
		assert.Less(t, math.Abs(k), 0.05)
	}
}

func TestCurve_RegularCurvesKeepControls(t *testing.T) {
	for _, c := range []Curve{
		NewCurve([]ControlPoint{
			{Position: linalg.Zero, Tangent: linalg.UnitX},
			{Position: linalg.Vec3{1000, 1000, 0}, Tangent: linalg.UnitY},
		}),
		NewCurve([]ControlPoint{
			{Position: linalg.Zero, Tangent: linalg.UnitX},
			{Position: linalg.Vec3{2000, 500, 0}, Tangent: linalg.UnitX},
		}),
	} {
		assert.Equal(t, samplesPerSegment+1, c.Len())
		assertTurningMatchesCurvature(t, c, 0.005)
	}
}

func TestCurve_MultiSegment(t *testing.T) {
	c := NewCurve([]ControlPoint{
		{Position: linalg.Zero, Tangent: linalg.UnitX},
		{Position: linalg.Vec3{1000, 0, 0}, Tangent: linalg.UnitX},
		{Position: linalg.Vec3{1000, 0, 0}, Tangent: linalg.UnitX},
		{Position: linalg.Vec3{2000, 500, 0}, Tangent: linalg.UnitY},
	})
	assertWellFormed(t, c)
	assert.Equal(t, 2*samplesPerSegment+1, c.Len(), "coincident controls merge")
	assertVec(t, linalg.Vec3{1000, 0, 0}, c.Points[samplesPerSegment], 0)
}

func TestCurve_Degenerate(t *testing.T) {
	single := NewCurve([]ControlPoint{
		{Position: linalg.Vec3{5, 5, 17}},
		{Position: linalg.Vec3{5, 5, 17}},
	})
	require.Equal(t, 1, single.Len())
	assert.Equal(t, 0.0, single.Length)
	assert.Equal(t, linalg.UnitX, single.Tangents[0])
	assert.Equal(t, linalg.Vec3{5, 5, 17}, single.PointAt(100))

	chordFallback := NewCurve([]ControlPoint{
		{Position: linalg.Zero},
		{Position: linalg.Vec3{0, 300, 0}},
	})
	assertWellFormed(t, chordFallback)
	assertVec(t, linalg.UnitY, chordFallback.Tangents[0], 1e-12)
	assertVec(t, linalg.UnitY, chordFallback.Tangents[chordFallback.Len()-1], 1e-12)

	assert.Zero(t, NewCurve(nil).Len())
}

func TestCurve_Queries(t *testing.T) {
	c := NewCurve([]ControlPoint{
		{Position: linalg.Zero, Tangent: linalg.UnitX},
		{Position: linalg.Vec3{1000, 0, 0}, Tangent: linalg.UnitX},
	})

	assertVec(t, c.Start(), c.PointAt(-10), 0)
	assertVec(t, c.End(), c.PointAt(c.Length+100), 1e-9)
	assertVec(t, linalg.Vec3{250, 0, 0}, c.PointAt(250), 1e-6)
	assertVec(t, linalg.UnitX, c.TangentAt(600), 1e-9)
	assert.InDelta(t, 0, c.CurvatureAt(600), 1e-9)

	assert.InDelta(t, 400, c.FindNearest(linalg.Vec3{400, 50, 0}), 1e-6)
	assert.InDelta(t, 0, c.FindNearest(linalg.Vec3{-300, 0, 0}), 1e-9)
	assert.InDelta(t, c.Length, c.FindNearest(linalg.Vec3{5000, 0, 0}), 1e-9)
}

func TestCurve_MaxSpeeds(t *testing.T) {
	straight := NewCurve([]ControlPoint{
		{Position: linalg.Zero, Tangent: linalg.UnitX},
		{Position: linalg.Vec3{1000, 0, 0}, Tangent: linalg.UnitX},
	})
	for _, v := range straight.MaxSpeeds(1000) {
		assert.InDelta(t, 1000, v, 1e-9)
	}

	turn := NewCurve([]ControlPoint{
		{Position: linalg.Zero, Tangent: linalg.UnitX},
		{Position: linalg.Vec3{600, 600, 0}, Tangent: linalg.UnitY},
	})
	speeds := turn.MaxSpeeds(simulation.CarMaxSpeed)
	require.Len(t, speeds, turn.Len())
	for i, v := range speeds {
		assert.LessOrEqual(t, v, simulation.MaxSpeedForCurvature(turn.Curvatures[i])+1e-9)
		assert.Less(t, v, simulation.CarMaxSpeed)
	}
}
