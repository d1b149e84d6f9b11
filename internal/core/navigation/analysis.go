package navigation

import (
	"math"

	"github.com/zeusync/arena/internal/core/linalg"
	"github.com/zeusync/arena/pkg/sequence"
)

// Analysis is the result of a bounded shortest-arc search from one pose.
type Analysis struct {
	mesh     *Mesh
	position linalg.Vec3
	tangent  linalg.Vec3
	radius   float64
	source   int32
	dist     []float64
	parent   []int32
	reached  int
}

// Analyze runs Dijkstra over mesh states whose node lies within radius of
// position, starting from the state nearest the pose. A nil mesh returns nil.
func (m *Mesh) Analyze(position, tangent linalg.Vec3, radius float64) *Analysis {
	if m == nil || len(m.nodes) == 0 {
		return nil
	}

	states := len(m.nodes) * Headings
	a := &Analysis{
		mesh:     m,
		position: position,
		tangent:  linalg.Normalize(tangent),
		radius:   radius,
		dist:     make([]float64, states),
		parent:   make([]int32, states),
	}
	for i := range a.dist {
		a.dist[i] = math.Inf(1)
		a.parent[i] = -1
	}

	start := m.nearest(position)
	a.source = start*Headings + int32(m.nodes[start].closestHeading(a.tangent))
	a.dist[a.source] = 0

	inside := func(state int32) bool {
		return linalg.Distance(m.nodes[state/Headings].position, position) <= radius
	}

	queue := sequence.NewMinPriorityQueue[int32, float64]()
	queue.Enqueue(a.source, 0)
	for {
		state, d, ok := queue.Dequeue()
		if !ok {
			break
		}
		if d > a.dist[state] {
			continue
		}
		a.reached++
		for _, e := range m.outgoing(state) {
			nd := d + e.weight
			if nd < a.dist[e.target] && inside(e.target) {
				a.dist[e.target] = nd
				a.parent[e.target] = state
				queue.Enqueue(e.target, nd)
			}
		}
	}
	return a
}

// Reached is the number of states with a known shortest arc.
func (a *Analysis) Reached() int {
	if a == nil {
		return 0
	}
	return a.reached
}

func (a *Analysis) Radius() float64 {
	if a == nil {
		return 0
	}
	return a.radius
}

// DistanceTo returns the shortest arc length to the node nearest p when the
// search reached any of its headings.
func (a *Analysis) DistanceTo(p linalg.Vec3) (float64, bool) {
	if a == nil {
		return 0, false
	}
	n := a.mesh.nearest(p)
	best := math.Inf(1)
	for h := int32(0); h < Headings; h++ {
		best = math.Min(best, a.dist[n*Headings+h])
	}
	return best, !math.IsInf(best, 1)
}

// goal picks the reached state closest to p within reach, preferring the
// heading best aligned with tangent.
func (a *Analysis) goal(p, tangent linalg.Vec3, reach float64) (int32, bool) {
	best, bestDist := int32(-1), math.Inf(1)
	for i, n := range a.mesh.nodes {
		d := linalg.Distance(n.position, p)
		if d > reach || d >= bestDist {
			continue
		}
		if state, ok := a.alignedState(int32(i), tangent); ok {
			best, bestDist = state, d
		}
	}
	return best, best >= 0
}

func (a *Analysis) alignedState(n int32, tangent linalg.Vec3) (int32, bool) {
	node := a.mesh.nodes[n]
	best, bestDot := int32(-1), math.Inf(-1)
	for h := 0; h < Headings; h++ {
		state := n*Headings + int32(h)
		if math.IsInf(a.dist[state], 1) {
			continue
		}
		if dot := node.heading(h).Dot(tangent); dot > bestDot {
			best, bestDot = state, dot
		}
	}
	return best, best >= 0
}

// backtrack lists the nodes from the source to state, both included.
func (a *Analysis) backtrack(state int32) []int32 {
	var path []int32
	for s := state; s >= 0; s = a.parent[s] {
		path = append(path, s/Headings)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
