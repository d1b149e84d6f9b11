package navigation

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/arena/internal/core/arena"
	"github.com/zeusync/arena/internal/core/linalg"
	"github.com/zeusync/arena/pkg/concurrent"
)

// Headings is the number of discrete travel directions per mesh node.
const Headings = 16

const (
	// triangles facing further down than this are ceilings and are not driven on
	minNormalZ = -0.5
	// adjacent nodes must agree on the surface orientation this much
	minNormalDot = 0.5
)

type node struct {
	position linalg.Vec3
	normal   linalg.Vec3
	basis    linalg.Mat3
}

func (n node) heading(h int) linalg.Vec3 {
	theta := 2 * math.Pi * float64(h) / Headings
	return linalg.Forward(n.basis).Mul(math.Cos(theta)).Add(linalg.Left(n.basis).Mul(math.Sin(theta)))
}

// closestHeading returns the bin best aligned with v projected onto the node
// plane.
func (n node) closestHeading(v linalg.Vec3) int {
	x := v.Dot(linalg.Forward(n.basis))
	y := v.Dot(linalg.Left(n.basis))
	if math.Abs(x) < linalg.Epsilon && math.Abs(y) < linalg.Epsilon {
		return 0
	}
	step := 2 * math.Pi / Headings
	h := int(math.Round(math.Atan2(y, x) / step))
	return ((h % Headings) + Headings) % Headings
}

type edge struct {
	target int32
	weight float64
}

// Mesh is an immutable directed graph over (node, heading) states. Edges are
// circular arcs the vehicle can drive with at most the configured turning
// curvature, stored in compressed row form.
type Mesh struct {
	nodes       []node
	offsets     []int32
	edges       []edge
	cfg         Config
	fingerprint uint64
}

// NewMesh samples the drivable surface of g. A nil geometry yields a nil mesh.
func NewMesh(g *arena.Geometry, cfg Config) *Mesh {
	if g == nil || g.Len() == 0 {
		return nil
	}
	cfg = cfg.withDefaults()

	m := &Mesh{
		nodes:       sampleNodes(g.Triangles(), cfg),
		cfg:         cfg,
		fingerprint: MeshKey(g, cfg),
	}
	m.connect()
	return m
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if !(c.NodeSpacing > 0) {
		c.NodeSpacing = def.NodeSpacing
	}
	if !(c.EdgeLength > 0) {
		c.EdgeLength = def.EdgeLength
	}
	if !(c.TurnRadius > 0) {
		c.TurnRadius = def.TurnRadius
	}
	if c.MaxControls <= 0 {
		c.MaxControls = def.MaxControls
	}
	return c
}

// MeshKey identifies the mesh NewMesh would build for g and cfg.
func MeshKey(g *arena.Geometry, cfg Config) uint64 {
	cfg = cfg.withDefaults()
	h := xxhash.New()
	var buf [8]byte
	for _, v := range []uint64{
		g.Fingerprint(),
		math.Float64bits(cfg.NodeSpacing),
		math.Float64bits(cfg.EdgeLength),
		math.Float64bits(cfg.TurnRadius),
		math.Float64bits(cfg.NodeLift),
	} {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

type cellKey [3]int

func keyOf(p linalg.Vec3, size float64) cellKey {
	return cellKey{
		int(math.Floor(p[0] / size)),
		int(math.Floor(p[1] / size)),
		int(math.Floor(p[2] / size)),
	}
}

// sampleNodes walks every drivable triangle on a barycentric lattice and keeps
// the first sample landing in each grid cell, so the result only depends on
// triangle order.
func sampleNodes(triangles []arena.Triangle, cfg Config) []node {
	seen := make(map[cellKey]struct{})
	var nodes []node

	for _, t := range triangles {
		if t.Normal.Z < minNormalZ {
			continue
		}
		a := linalg.Vec3{t.A.X, t.A.Y, t.A.Z}
		b := linalg.Vec3{t.B.X, t.B.Y, t.B.Z}
		c := linalg.Vec3{t.C.X, t.C.Y, t.C.Z}
		normal := linalg.Vec3{t.Normal.X, t.Normal.Y, t.Normal.Z}

		longest := math.Max(b.Sub(a).Len(), math.Max(c.Sub(b).Len(), a.Sub(c).Len()))
		k := max(1, int(math.Ceil(longest/cfg.NodeSpacing)))

		for i := 0; i <= k; i++ {
			for j := 0; i+j <= k; j++ {
				u, v := float64(i)/float64(k), float64(j)/float64(k)
				p := a.Add(b.Sub(a).Mul(u)).Add(c.Sub(a).Mul(v))

				key := keyOf(p, cfg.NodeSpacing)
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				nodes = append(nodes, node{
					position: p.Add(normal.Mul(cfg.NodeLift)),
					normal:   normal,
					basis:    linalg.Basis(normal),
				})
			}
		}
	}
	return nodes
}

// connect computes the outgoing arcs of every state in parallel and flattens
// them in state order.
func (m *Mesh) connect() {
	buckets := make(map[cellKey][]int32)
	for i, n := range m.nodes {
		key := keyOf(n.position, m.cfg.EdgeLength)
		buckets[key] = append(buckets[key], int32(i))
	}

	perNode := make([][Headings][]edge, len(m.nodes))
	concurrent.ParallelFor(len(m.nodes), m.cfg.Workers, func(i int) {
		perNode[i] = m.arcsFrom(i, buckets)
	})

	m.offsets = make([]int32, len(m.nodes)*Headings+1)
	for i := range perNode {
		for h := 0; h < Headings; h++ {
			s := i*Headings + h
			m.edges = append(m.edges, perNode[i][h]...)
			m.offsets[s+1] = int32(len(m.edges))
		}
	}
}

func (m *Mesh) arcsFrom(i int, buckets map[cellKey][]int32) [Headings][]edge {
	var out [Headings][]edge
	from := m.nodes[i]
	base := keyOf(from.position, m.cfg.EdgeLength)

	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				for _, j := range buckets[cellKey{base[0] + dx, base[1] + dy, base[2] + dz}] {
					if int(j) == i {
						continue
					}
					to := m.nodes[j]
					if from.normal.Dot(to.normal) < minNormalDot {
						continue
					}
					for h := 0; h < Headings; h++ {
						if e, ok := m.arc(from, h, j); ok {
							out[h] = append(out[h], e)
						}
					}
				}
			}
		}
	}
	return out
}

// arc checks whether a circular arc leaving from along heading h can reach
// node j without exceeding the turning curvature.
func (m *Mesh) arc(from node, h int, j int32) (edge, bool) {
	to := m.nodes[j]
	c := to.position.Sub(from.position)
	length := c.Len()
	if length < linalg.Epsilon || length > m.cfg.EdgeLength {
		return edge{}, false
	}

	// chord as seen in the departure plane
	planar := linalg.Normalize(c.Sub(from.normal.Mul(c.Dot(from.normal))))
	if linalg.IsZero(planar) {
		return edge{}, false
	}
	t := from.heading(h)
	theta := linalg.Angle(t, planar)
	limit := math.Asin(math.Min(1, length/(2*m.cfg.TurnRadius)))
	if theta > limit || theta > math.Pi/2 {
		return edge{}, false
	}

	chord := c.Mul(1 / length)
	exit := chord.Mul(2 * chord.Dot(t)).Sub(t)
	exit = exit.Sub(to.normal.Mul(exit.Dot(to.normal)))

	weight := length
	if theta > 1e-6 {
		weight = length * theta / math.Sin(theta)
	}
	return edge{
		target: j*Headings + int32(to.closestHeading(exit)),
		weight: weight,
	}, true
}

// Len is the number of surface nodes.
func (m *Mesh) Len() int {
	if m == nil {
		return 0
	}
	return len(m.nodes)
}

// Edges is the number of directed arcs between states.
func (m *Mesh) Edges() int {
	if m == nil {
		return 0
	}
	return len(m.edges)
}

// Fingerprint is the MeshKey the mesh was built with.
func (m *Mesh) Fingerprint() uint64 {
	if m == nil {
		return 0
	}
	return m.fingerprint
}

func (m *Mesh) outgoing(state int32) []edge {
	return m.edges[m.offsets[state]:m.offsets[state+1]]
}

// nearest returns the node closest to p; ties keep the lowest index.
func (m *Mesh) nearest(p linalg.Vec3) int32 {
	best, bestDist := int32(-1), math.Inf(1)
	for i, n := range m.nodes {
		if d := linalg.Distance(n.position, p); d < bestDist {
			best, bestDist = int32(i), d
		}
	}
	return best
}
