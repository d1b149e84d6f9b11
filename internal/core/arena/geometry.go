package arena

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/geo/r3"

	"github.com/zeusync/arena/internal/core/linalg"
)

// Geometry is an immutable triangulated arena surface with its BVH.
// A nil *Geometry is valid and never reports contact.
type Geometry struct {
	mode, name  string
	triangles   []Triangle
	root        *bvhNode
	min, max    r3.Vector
	fingerprint uint64
}

func NewGeometry(mode, name string, triangles []Triangle) (*Geometry, error) {
	if len(triangles) == 0 {
		return nil, ErrEmptyMesh
	}

	owned := make([]Triangle, len(triangles))
	copy(owned, triangles)

	g := &Geometry{
		mode:      mode,
		name:      name,
		triangles: owned,
		root:      buildBVH(owned),
	}
	g.min, g.max = g.root.min, g.root.max
	g.fingerprint = fingerprint(mode, name, owned)
	return g, nil
}

// Collide returns the contact with the triangle nearest to center, provided it
// lies within radius. The ray starts on the surface and points at center. When
// center sits on the face or behind it the face normal is used instead, so the
// direction always points into the playable volume.
func (g *Geometry) Collide(center linalg.Vec3, radius float64) Ray {
	if g == nil || g.root == nil || !(radius > 0) || !linalg.Finite(center) {
		return NoContact
	}

	p := toR3(center)
	hit, ok := g.root.nearest(g.triangles, p, radius)
	if !ok {
		return NoContact
	}

	direction := p.Sub(hit.point)
	if normal := g.triangles[hit.index].Normal; direction.Norm() < linalg.Epsilon || direction.Dot(normal) < 0 {
		direction = normal
	}

	return Ray{
		Start:     fromR3(hit.point),
		Direction: fromR3(direction.Normalize()),
	}
}

// Triangles exposes the mesh. Callers must not modify it.
func (g *Geometry) Triangles() []Triangle {
	if g == nil {
		return nil
	}
	return g.triangles
}

func (g *Geometry) Len() int {
	if g == nil {
		return 0
	}
	return len(g.triangles)
}

func (g *Geometry) Bounds() (min, max linalg.Vec3) {
	if g == nil {
		return linalg.Zero, linalg.Zero
	}
	return fromR3(g.min), fromR3(g.max)
}

func (g *Geometry) Mode() string { return g.mode }
func (g *Geometry) Map() string  { return g.name }

// Fingerprint identifies the mesh content; equal meshes hash equally.
func (g *Geometry) Fingerprint() uint64 {
	if g == nil {
		return 0
	}
	return g.fingerprint
}

func fingerprint(mode, name string, triangles []Triangle) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(mode)
	_, _ = h.WriteString("/")
	_, _ = h.WriteString(name)

	var buf [8]byte
	for _, t := range triangles {
		for _, p := range t.Points() {
			for _, c := range [3]float64{p.X, p.Y, p.Z} {
				binary.LittleEndian.PutUint64(buf[:], math.Float64bits(c))
				_, _ = h.Write(buf[:])
			}
		}
	}
	return h.Sum64()
}
