package arena

import (
	"math"

	"github.com/golang/geo/r3"
)

// Triangle is one face of the arena mesh. Normal points into the playable volume.
type Triangle struct {
	A, B, C r3.Vector
	Normal  r3.Vector
}

func NewTriangle(a, b, c r3.Vector) Triangle {
	return Triangle{
		A:      a,
		B:      b,
		C:      c,
		Normal: b.Sub(a).Cross(c.Sub(a)).Normalize(),
	}
}

// Flip reverses the winding and the normal.
func (t Triangle) Flip() Triangle {
	return NewTriangle(t.A, t.C, t.B)
}

func (t Triangle) Points() [3]r3.Vector {
	return [3]r3.Vector{t.A, t.B, t.C}
}

func (t Triangle) Centroid() r3.Vector {
	return t.A.Add(t.B).Add(t.C).Mul(1.0 / 3.0)
}

func (t Triangle) Area() float64 {
	return 0.5 * t.B.Sub(t.A).Cross(t.C.Sub(t.A)).Norm()
}

func (t Triangle) bounds() (min, max r3.Vector) {
	min = r3.Vector{X: math.Min(t.A.X, math.Min(t.B.X, t.C.X)), Y: math.Min(t.A.Y, math.Min(t.B.Y, t.C.Y)), Z: math.Min(t.A.Z, math.Min(t.B.Z, t.C.Z))}
	max = r3.Vector{X: math.Max(t.A.X, math.Max(t.B.X, t.C.X)), Y: math.Max(t.A.Y, math.Max(t.B.Y, t.C.Y)), Z: math.Max(t.A.Z, math.Max(t.B.Z, t.C.Z))}
	return min, max
}

// ClosestPoint returns the point of the triangle closest to p, walking the
// Voronoi regions of the vertices and edges before falling back to the face.
func (t Triangle) ClosestPoint(p r3.Vector) r3.Vector {
	a, b, c := t.A, t.B, t.C
	ab, ac, ap := b.Sub(a), c.Sub(a), p.Sub(a)

	d1, d2 := ab.Dot(ap), ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := p.Sub(b)
	d3, d4 := ab.Dot(bp), ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		return a.Add(ab.Mul(d1 / (d1 - d3)))
	}

	cp := p.Sub(c)
	d5, d6 := ab.Dot(cp), ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		return a.Add(ac.Mul(d2 / (d2 - d6)))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		return b.Add(c.Sub(b).Mul((d4 - d3) / ((d4 - d3) + (d5 - d6))))
	}

	denom := 1 / (va + vb + vc)
	v, w := vb*denom, vc*denom
	return a.Add(ab.Mul(v)).Add(ac.Mul(w))
}
