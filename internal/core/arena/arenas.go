package arena

import (
	"math"
	"sort"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// profile describes a procedural arena: a convex footprint (counter-clockwise,
// at the base of the walls) extruded to height with a circular fillet joining
// the walls to the floor and the ceiling.
type profile struct {
	footprint []r2.Point
	height    float64
	fillet    float64
	cell      float64
	walls     bool
}

type modeEntry struct {
	maps    []string
	profile func() profile
}

var modes = map[string]modeEntry{
	"soccar": {
		maps:    []string{"standard", "mannfield", "dfh_stadium", "champions_field", "urban_central", "beckwith_park"},
		profile: func() profile { return profile{footprint: octagon(4096, 5120, 1152), height: 2044, fillet: 256, cell: 1024, walls: true} },
	},
	"hoops": {
		maps:    []string{"dunk_house"},
		profile: func() profile { return profile{footprint: octagon(2966.67, 3581, 512), height: 1820, fillet: 256, cell: 1024, walls: true} },
	},
	"dropshot": {
		maps:    []string{"core_707"},
		profile: func() profile { return profile{footprint: hexagon(4555), height: 2010, fillet: 256, cell: 1024, walls: true} },
	},
	"flat": {
		maps:    []string{"standard"},
		profile: func() profile { return profile{footprint: octagon(10000, 10000, 0), cell: 2048} },
	},
}

// Modes lists the registered game modes.
func Modes() []string {
	out := make([]string, 0, len(modes))
	for m := range modes {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Maps lists the maps of a mode; the first one is the default.
func Maps(mode string) ([]string, error) {
	entry, ok := modes[normalizeName(mode)]
	if !ok {
		return nil, ErrUnknownMode
	}
	return append([]string(nil), entry.maps...), nil
}

// Resolve canonicalizes a mode and map pair. An empty map selects the default.
func Resolve(mode, name string) (string, string, error) {
	mode, name = normalizeName(mode), normalizeName(name)
	entry, ok := modes[mode]
	if !ok {
		return "", "", ErrUnknownMode
	}
	if name == "" {
		return mode, entry.maps[0], nil
	}
	for _, m := range entry.maps {
		if m == name {
			return mode, name, nil
		}
	}
	return "", "", ErrUnknownMap
}

// Build triangulates the arena for a mode and map and indexes it.
func Build(mode, name string) (*Geometry, error) {
	mode, name, err := Resolve(mode, name)
	if err != nil {
		return nil, err
	}
	return NewGeometry(mode, name, modes[mode].profile().triangles())
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func octagon(halfX, halfY, chamfer float64) []r2.Point {
	if chamfer <= 0 {
		return []r2.Point{{X: halfX, Y: -halfY}, {X: halfX, Y: halfY}, {X: -halfX, Y: halfY}, {X: -halfX, Y: -halfY}}
	}
	return []r2.Point{
		{X: halfX, Y: -(halfY - chamfer)}, {X: halfX, Y: halfY - chamfer},
		{X: halfX - chamfer, Y: halfY}, {X: -(halfX - chamfer), Y: halfY},
		{X: -halfX, Y: halfY - chamfer}, {X: -halfX, Y: -(halfY - chamfer)},
		{X: -(halfX - chamfer), Y: -halfY}, {X: halfX - chamfer, Y: -halfY},
	}
}

// hexagon with flat sides facing ±Y at the given inner radius.
func hexagon(inradius float64) []r2.Point {
	circumradius := inradius / math.Cos(math.Pi/6)
	out := make([]r2.Point, 6)
	for i := range out {
		a := float64(i) * math.Pi / 3
		out[i] = r2.Point{X: circumradius * math.Cos(a), Y: circumradius * math.Sin(a)}
	}
	return out
}

// inset offsets every vertex of the footprint inwards by d.
func (p profile) inset(d float64) []r2.Point {
	n := len(p.footprint)
	normals := make([]r2.Point, n)
	for i := range p.footprint {
		edge := p.footprint[(i+1)%n].Sub(p.footprint[i])
		normals[i] = edge.Ortho().Normalize()
	}

	out := make([]r2.Point, n)
	for i, v := range p.footprint {
		na, nb := normals[(i+n-1)%n], normals[i]
		out[i] = v.Add(na.Add(nb).Mul(d / (1 + na.Dot(nb))))
	}
	return out
}

// rings returns the (inset, height) samples of the wall cross-section from the
// floor edge up to the ceiling edge.
func (p profile) rings() [][2]float64 {
	const filletSegments = 4
	r, h := p.fillet, p.height

	var out [][2]float64
	for k := 0; k <= filletSegments; k++ {
		a := float64(k) / filletSegments * math.Pi / 2
		out = append(out, [2]float64{r * (1 - math.Sin(a)), r * (1 - math.Cos(a))})
	}

	span := h - 2*r
	n := int(math.Ceil(span / p.cell))
	for j := 1; j < n; j++ {
		out = append(out, [2]float64{0, r + span*float64(j)/float64(n)})
	}

	for k := filletSegments; k >= 0; k-- {
		a := float64(k) / filletSegments * math.Pi / 2
		out = append(out, [2]float64{r * (1 - math.Sin(a)), h - r*(1-math.Cos(a))})
	}
	return out
}

func (p profile) triangles() []Triangle {
	var out []Triangle

	floor := lift(p.inset(p.fillet), 0)
	out = p.fan(out, floor)

	if p.walls {
		rings := p.rings()
		levels := make([][]r3.Vector, len(rings))
		for j, ring := range rings {
			levels[j] = lift(p.inset(ring[0]), ring[1])
		}
		for j := 0; j+1 < len(levels); j++ {
			out = p.band(out, levels[j], levels[j+1])
		}
		out = p.fan(out, levels[len(levels)-1])
	}

	return p.orient(out)
}

func (p profile) fan(out []Triangle, ring []r3.Vector) []Triangle {
	var center r3.Vector
	for _, v := range ring {
		center = center.Add(v)
	}
	center = center.Mul(1 / float64(len(ring)))

	for i := range ring {
		out = subdivide(out, center, ring[i], ring[(i+1)%len(ring)], p.cell)
	}
	return out
}

func (p profile) band(out []Triangle, lower, upper []r3.Vector) []Triangle {
	n := len(lower)
	for i := 0; i < n; i++ {
		a0, a1 := lower[i], lower[(i+1)%n]
		b0, b1 := upper[i], upper[(i+1)%n]
		m := int(math.Ceil(math.Max(a0.Distance(a1), b0.Distance(b1)) / p.cell))
		if m < 1 {
			m = 1
		}
		for s := 0; s < m; s++ {
			t0, t1 := float64(s)/float64(m), float64(s+1)/float64(m)
			p00, p01 := lerp(a0, a1, t0), lerp(a0, a1, t1)
			p10, p11 := lerp(b0, b1, t0), lerp(b0, b1, t1)
			out = appendTriangle(out, p00, p01, p11)
			out = appendTriangle(out, p00, p11, p10)
		}
	}
	return out
}

// orient flips triangles whose normal faces away from the arena interior.
func (p profile) orient(tris []Triangle) []Triangle {
	var center r2.Point
	for _, v := range p.footprint {
		center = center.Add(v)
	}
	center = center.Mul(1 / float64(len(p.footprint)))
	interior := r3.Vector{X: center.X, Y: center.Y, Z: p.height/2 + 1}

	for i, t := range tris {
		if t.Normal.Dot(interior.Sub(t.Centroid())) < 0 {
			tris[i] = t.Flip()
		}
	}
	return tris
}

func subdivide(out []Triangle, a, b, c r3.Vector, cell float64) []Triangle {
	if math.Max(a.Distance(b), math.Max(b.Distance(c), c.Distance(a))) <= cell {
		return appendTriangle(out, a, b, c)
	}
	ab, bc, ca := lerp(a, b, 0.5), lerp(b, c, 0.5), lerp(c, a, 0.5)
	out = subdivide(out, a, ab, ca, cell)
	out = subdivide(out, ab, b, bc, cell)
	out = subdivide(out, ca, bc, c, cell)
	return subdivide(out, ab, bc, ca, cell)
}

func appendTriangle(out []Triangle, a, b, c r3.Vector) []Triangle {
	t := NewTriangle(a, b, c)
	if t.Area() < 1e-6 {
		return out
	}
	return append(out, t)
}

func lift(ring []r2.Point, z float64) []r3.Vector {
	out := make([]r3.Vector, len(ring))
	for i, v := range ring {
		out[i] = r3.Vector{X: v.X, Y: v.Y, Z: z}
	}
	return out
}

func lerp(a, b r3.Vector, t float64) r3.Vector {
	return a.Add(b.Sub(a).Mul(t))
}
