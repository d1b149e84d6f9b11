package navigation

import (
	"math"

	"github.com/zeusync/arena/internal/core/linalg"
)

// segment is an optimized geometric Hermite cubic between two points with unit
// end tangents. The tangent magnitudes a0 and a1 minimize the integrated
// squared second derivative for the given directions.
type segment struct {
	p0, p1 linalg.Vec3
	v0, v1 linalg.Vec3
	a0, a1 float64
}

// minimal fraction of the chord used as tangent magnitude, so the end
// directions are always honoured even when they point away from each other
const minTangentScale = 0.25

func newSegment(p0, v0, p1, v1 linalg.Vec3) segment {
	dp := p1.Sub(p0)
	dot := v0.Dot(v1)
	denom := 4 - dot*dot

	a0 := (6*dp.Dot(v0) - 3*dp.Dot(v1)*dot) / denom
	a1 := (6*dp.Dot(v1) - 3*dp.Dot(v0)*dot) / denom

	floor := minTangentScale * dp.Len()
	return segment{
		p0: p0, p1: p1,
		v0: v0, v1: v1,
		a0: math.Max(a0, floor),
		a1: math.Max(a1, floor),
	}
}

func (s segment) evaluate(t float64) linalg.Vec3 {
	t2, t3 := t*t, t*t*t
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2
	return s.p0.Mul(h00).
		Add(s.v0.Mul(s.a0 * h10)).
		Add(s.p1.Mul(h01)).
		Add(s.v1.Mul(s.a1 * h11))
}

func (s segment) derivative(t float64) linalg.Vec3 {
	t2 := t * t
	h00 := 6*t2 - 6*t
	h10 := 3*t2 - 4*t + 1
	h01 := -6*t2 + 6*t
	h11 := 3*t2 - 2*t
	return s.p0.Mul(h00).
		Add(s.v0.Mul(s.a0 * h10)).
		Add(s.p1.Mul(h01)).
		Add(s.v1.Mul(s.a1 * h11))
}

func (s segment) secondDerivative(t float64) linalg.Vec3 {
	h00 := 12*t - 6
	h10 := 6*t - 4
	h01 := -12*t + 6
	h11 := 6*t - 2
	return s.p0.Mul(h00).
		Add(s.v0.Mul(s.a0 * h10)).
		Add(s.p1.Mul(h01)).
		Add(s.v1.Mul(s.a1 * h11))
}

// curvature is signed about the normal n: positive when the curve turns
// counter-clockwise seen from the side n points to.
func (s segment) curvature(t float64, n linalg.Vec3) float64 {
	d1 := s.derivative(t)
	speed := d1.Len()
	if speed < linalg.Epsilon {
		return 0
	}
	return d1.Cross(s.secondDerivative(t)).Dot(n) / (speed * speed * speed)
}

func (s segment) tangent(t float64) linalg.Vec3 {
	d := linalg.Normalize(s.derivative(t))
	if linalg.IsZero(d) {
		if t < 0.5 {
			return s.v0
		}
		return s.v1
	}
	return d
}

const (
	// radius of an inserted quarter turn as a fraction of the chord it splits
	turnScale = 0.25
	// quarter turns inserted per segment at most
	maxTurns = 4
)

// insertTurns splits every segment whose end tangents point back against its
// chord. A cubic cannot join such poses without a cusp, so quarter-turn
// controls are added at the worse end until the segment runs forward.
func insertTurns(controls []ControlPoint) []ControlPoint {
	if len(controls) < 2 {
		return controls
	}

	out := make([]ControlPoint, 1, len(controls))
	out[0] = controls[0]
	for _, b := range controls[1:] {
		var tail []ControlPoint
		for i := 0; i < maxTurns; i++ {
			a, next := out[len(out)-1], b
			if len(tail) > 0 {
				next = tail[0]
			}

			chord := next.Position.Sub(a.Position)
			d := linalg.Normalize(chord)
			da, db := a.Tangent.Dot(d), next.Tangent.Dot(d)
			if da >= 0 && db >= 0 {
				break
			}

			r := turnScale * chord.Len()
			if da <= db {
				w := turnDirection(a.Tangent, d, a.Normal)
				out = append(out, ControlPoint{
					Position: a.Position.Add(a.Tangent.Add(w).Mul(r)),
					Tangent:  w,
					Normal:   a.Normal,
				})
				continue
			}

			// the same turn traced backwards from next
			back := next.Tangent.Mul(-1)
			w := turnDirection(back, d.Mul(-1), next.Normal)
			tail = append([]ControlPoint{{
				Position: next.Position.Add(back.Add(w).Mul(r)),
				Tangent:  w.Mul(-1),
				Normal:   next.Normal,
			}}, tail...)
		}
		out = append(out, tail...)
		out = append(out, b)
	}
	return out
}

// turnDirection is the unit vector perpendicular to t that turns it towards d,
// or normal x t when d is parallel to t.
func turnDirection(t, d, normal linalg.Vec3) linalg.Vec3 {
	w := linalg.Normalize(d.Sub(t.Mul(d.Dot(t))))
	if linalg.IsZero(w) {
		w = linalg.Normalize(normal.Cross(t))
	}
	if linalg.IsZero(w) {
		w = linalg.Normalize(linalg.UnitZ.Cross(t))
	}
	if linalg.IsZero(w) {
		w = linalg.UnitY
	}
	return w
}
