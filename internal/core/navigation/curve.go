package navigation

import (
	"math"
	"sort"

	"github.com/zeusync/arena/internal/core/linalg"
	"github.com/zeusync/arena/internal/core/simulation"
)

// samples taken on every segment; the final segment also samples t = 1
const samplesPerSegment = 20

// ControlPoint is a pose the curve passes through.
type ControlPoint struct {
	Position linalg.Vec3
	Tangent  linalg.Vec3
	Normal   linalg.Vec3
}

// Curve is a sampled path. Distances start at 0 and Length equals the last
// distance. Curvature is signed about the sample normal.
type Curve struct {
	Points     []linalg.Vec3 `json:"points" msgpack:"points"`
	Tangents   []linalg.Vec3 `json:"tangents" msgpack:"tangents"`
	Normals    []linalg.Vec3 `json:"normals" msgpack:"normals"`
	Distances  []float64     `json:"distances" msgpack:"distances"`
	Curvatures []float64     `json:"curvatures" msgpack:"curvatures"`
	Length     float64       `json:"length" msgpack:"length"`
}

// NewCurve samples an OGH spline through the control points. Coincident
// consecutive controls are merged; a single control yields a one-sample curve.
// Segments whose end tangents point back against the chord get extra turn
// controls, so the curve never reverses between samples.
func NewCurve(controls []ControlPoint) Curve {
	controls = insertTurns(prepareControls(controls))
	if len(controls) == 0 {
		return Curve{}
	}
	if len(controls) == 1 {
		c := controls[0]
		return Curve{
			Points:     []linalg.Vec3{c.Position},
			Tangents:   []linalg.Vec3{c.Tangent},
			Normals:    []linalg.Vec3{c.Normal},
			Distances:  []float64{0},
			Curvatures: []float64{0},
		}
	}

	n := (len(controls)-1)*samplesPerSegment + 1
	curve := Curve{
		Points:     make([]linalg.Vec3, 0, n),
		Tangents:   make([]linalg.Vec3, 0, n),
		Normals:    make([]linalg.Vec3, 0, n),
		Distances:  make([]float64, 0, n),
		Curvatures: make([]float64, 0, n),
	}

	last := len(controls) - 2
	for i := 0; i <= last; i++ {
		a, b := controls[i], controls[i+1]
		seg := newSegment(a.Position, a.Tangent, b.Position, b.Tangent)

		steps := samplesPerSegment
		if i == last {
			steps++
		}
		for j := 0; j < steps; j++ {
			t := float64(j) / samplesPerSegment
			normal := linalg.Normalize(linalg.Lerp(a.Normal, b.Normal, t))
			if linalg.IsZero(normal) {
				normal = a.Normal
			}

			var point, tangent linalg.Vec3
			switch {
			case j == 0:
				point, tangent = a.Position, a.Tangent
			case j == samplesPerSegment:
				point, tangent = b.Position, b.Tangent
			default:
				point, tangent = seg.evaluate(t), seg.tangent(t)
			}
			curve.append(point, tangent, normal, seg.curvature(t, normal))
		}
	}

	curve.Length = curve.Distances[len(curve.Distances)-1]
	return curve
}

func (c *Curve) append(point, tangent, normal linalg.Vec3, curvature float64) {
	distance := 0.0
	if n := len(c.Points); n > 0 {
		distance = c.Distances[n-1] + linalg.Distance(c.Points[n-1], point)
	}
	c.Points = append(c.Points, point)
	c.Tangents = append(c.Tangents, tangent)
	c.Normals = append(c.Normals, normal)
	c.Distances = append(c.Distances, distance)
	c.Curvatures = append(c.Curvatures, curvature)
}

// prepareControls drops repeated positions and fills in unit tangents and
// normals. A missing tangent becomes the chord direction, then +X.
func prepareControls(in []ControlPoint) []ControlPoint {
	out := make([]ControlPoint, 0, len(in))
	for _, c := range in {
		if n := len(out); n > 0 && linalg.Distance(out[n-1].Position, c.Position) < linalg.Epsilon {
			if linalg.IsZero(out[n-1].Tangent) {
				out[n-1].Tangent = c.Tangent
			}
			continue
		}
		out = append(out, c)
	}

	for i := range out {
		c := &out[i]
		c.Tangent = linalg.Normalize(c.Tangent)
		if linalg.IsZero(c.Tangent) {
			c.Tangent = chord(out, i)
		}
		c.Normal = linalg.Normalize(c.Normal)
		if linalg.IsZero(c.Normal) {
			c.Normal = linalg.UnitZ
		}
	}
	return out
}

func chord(controls []ControlPoint, i int) linalg.Vec3 {
	var d linalg.Vec3
	switch {
	case i+1 < len(controls):
		d = controls[i+1].Position.Sub(controls[i].Position)
	case i > 0:
		d = controls[i].Position.Sub(controls[i-1].Position)
	}
	d = linalg.Normalize(d)
	if linalg.IsZero(d) {
		return linalg.UnitX
	}
	return d
}

// Len is the number of samples.
func (c Curve) Len() int { return len(c.Points) }

// Start and End return the first and last sample positions.
func (c Curve) Start() linalg.Vec3 { return c.Points[0] }
func (c Curve) End() linalg.Vec3   { return c.Points[len(c.Points)-1] }

// locate maps an arc length onto a sample interval and the blend inside it.
func (c Curve) locate(s float64) (int, float64) {
	n := len(c.Distances)
	if n < 2 || s <= 0 {
		return 0, 0
	}
	if s >= c.Length {
		return n - 2, 1
	}
	i := sort.SearchFloat64s(c.Distances, s)
	lo, hi := c.Distances[i-1], c.Distances[i]
	if hi-lo < linalg.Epsilon {
		return i - 1, 0
	}
	return i - 1, (s - lo) / (hi - lo)
}

// PointAt returns the position at arc length s, clamped to the curve.
func (c Curve) PointAt(s float64) linalg.Vec3 {
	if len(c.Points) == 1 {
		return c.Points[0]
	}
	i, t := c.locate(s)
	return linalg.Lerp(c.Points[i], c.Points[i+1], t)
}

func (c Curve) TangentAt(s float64) linalg.Vec3 {
	if len(c.Tangents) == 1 {
		return c.Tangents[0]
	}
	i, t := c.locate(s)
	tangent := linalg.Normalize(linalg.Lerp(c.Tangents[i], c.Tangents[i+1], t))
	if linalg.IsZero(tangent) {
		return c.Tangents[i]
	}
	return tangent
}

func (c Curve) CurvatureAt(s float64) float64 {
	if len(c.Curvatures) == 1 {
		return c.Curvatures[0]
	}
	i, t := c.locate(s)
	return c.Curvatures[i] + t*(c.Curvatures[i+1]-c.Curvatures[i])
}

// FindNearest returns the arc length of the point on the sampled polyline
// closest to p.
func (c Curve) FindNearest(p linalg.Vec3) float64 {
	if len(c.Points) < 2 {
		return 0
	}
	best, bestDist := 0.0, math.Inf(1)
	for i := 0; i+1 < len(c.Points); i++ {
		a, b := c.Points[i], c.Points[i+1]
		ab := b.Sub(a)
		t := 0.0
		if l2 := ab.Dot(ab); l2 > linalg.Epsilon {
			t = linalg.Clip(p.Sub(a).Dot(ab)/l2, 0, 1)
		}
		d := linalg.Distance(p, a.Add(ab.Mul(t)))
		if d < bestDist {
			bestDist = d
			best = c.Distances[i] + t*(c.Distances[i+1]-c.Distances[i])
		}
	}
	return best
}

// MaxSpeeds is the highest speed at every sample that keeps the vehicle on
// the curve: limited by the steering curvature and by braking early enough
// for the tighter samples ahead.
func (c Curve) MaxSpeeds(limit float64) []float64 {
	speeds := make([]float64, len(c.Points))
	for i, k := range c.Curvatures {
		speeds[i] = math.Min(limit, simulation.MaxSpeedForCurvature(k))
	}
	for i := len(speeds) - 2; i >= 0; i-- {
		ds := c.Distances[i+1] - c.Distances[i]
		reachable := math.Sqrt(speeds[i+1]*speeds[i+1] + 2*(simulation.BrakeAccel+simulation.CoastAccel)*ds)
		speeds[i] = math.Min(speeds[i], reachable)
	}
	return speeds
}
