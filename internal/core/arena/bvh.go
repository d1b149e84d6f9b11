package arena

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/arena/pkg/generic"
)

// bvhNode is either an internal node with two children or a leaf holding
// indices into the geometry's triangle slice.
type bvhNode struct {
	min, max    r3.Vector
	left, right *bvhNode
	triangles   []int32
}

const (
	maxTrianglesPerLeaf = 4
	// subtrees at least this large are built on their own goroutine
	parallelBuildThreshold = 512
)

var stackPool = generic.NewPool(
	func() *[]*bvhNode {
		s := make([]*bvhNode, 0, 64)
		return &s
	},
	func(s *[]*bvhNode) *[]*bvhNode {
		*s = (*s)[:0]
		return s
	},
)

func buildBVH(triangles []Triangle) *bvhNode {
	if len(triangles) == 0 {
		return nil
	}

	centroids := make([]r3.Vector, len(triangles))
	indices := make([]int32, len(triangles))
	for i := range triangles {
		centroids[i] = triangles[i].Centroid()
		indices[i] = int32(i)
	}

	b := &bvhBuilder{triangles: triangles, centroids: centroids}
	root := &bvhNode{}
	var g errgroup.Group
	b.build(root, indices, &g)
	_ = g.Wait()
	return root
}

type bvhBuilder struct {
	triangles []Triangle
	centroids []r3.Vector
}

func (b *bvhBuilder) build(node *bvhNode, indices []int32, g *errgroup.Group) {
	node.min, node.max = b.bounds(indices)

	if len(indices) <= maxTrianglesPerLeaf {
		node.triangles = indices
		return
	}

	extent := node.max.Sub(node.min)
	axis := 0
	if extent.Y > extent.X && extent.Y > extent.Z {
		axis = 1
	} else if extent.Z > extent.X && extent.Z > extent.Y {
		axis = 2
	}

	sort.Slice(indices, func(i, j int) bool {
		ci, cj := axisOf(b.centroids[indices[i]], axis), axisOf(b.centroids[indices[j]], axis)
		if ci != cj {
			return ci < cj
		}
		return indices[i] < indices[j]
	})

	mid := len(indices) / 2
	node.left, node.right = &bvhNode{}, &bvhNode{}
	left, right := indices[:mid], indices[mid:]

	if len(indices) >= parallelBuildThreshold {
		g.Go(func() error {
			b.build(node.left, left, g)
			return nil
		})
		b.build(node.right, right, g)
		return
	}

	b.build(node.left, left, g)
	b.build(node.right, right, g)
}

func (b *bvhBuilder) bounds(indices []int32) (min, max r3.Vector) {
	min = r3.Vector{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max = r3.Vector{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, idx := range indices {
		tmin, tmax := b.triangles[idx].bounds()
		min = r3.Vector{X: math.Min(min.X, tmin.X), Y: math.Min(min.Y, tmin.Y), Z: math.Min(min.Z, tmin.Z)}
		max = r3.Vector{X: math.Max(max.X, tmax.X), Y: math.Max(max.Y, tmax.Y), Z: math.Max(max.Z, tmax.Z)}
	}
	return min, max
}

func axisOf(v r3.Vector, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// pointAABBDistance is the distance from p to the box, 0 when p is inside.
func pointAABBDistance(p, min, max r3.Vector) float64 {
	dx := math.Max(0, math.Max(min.X-p.X, p.X-max.X))
	dy := math.Max(0, math.Max(min.Y-p.Y, p.Y-max.Y))
	dz := math.Max(0, math.Max(min.Z-p.Z, p.Z-max.Z))
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

type nearestHit struct {
	index    int32
	distance float64
	point    r3.Vector
}

// nearest finds the triangle closest to p among those within radius.
// Ties on distance resolve to the lowest triangle index.
func (n *bvhNode) nearest(triangles []Triangle, p r3.Vector, radius float64) (nearestHit, bool) {
	best := nearestHit{index: -1, distance: radius}

	stack := stackPool.Get()
	defer stackPool.Put(stack)

	*stack = append(*stack, n)
	for len(*stack) > 0 {
		last := len(*stack) - 1
		node := (*stack)[last]
		*stack = (*stack)[:last]

		if pointAABBDistance(p, node.min, node.max) > best.distance {
			continue
		}

		if node.triangles != nil {
			for _, idx := range node.triangles {
				cp := triangles[idx].ClosestPoint(p)
				d := p.Distance(cp)
				if d < best.distance || (d == best.distance && (best.index < 0 || idx < best.index)) {
					best = nearestHit{index: idx, distance: d, point: cp}
				}
			}
			continue
		}

		*stack = append(*stack, node.right, node.left)
	}

	return best, best.index >= 0
}
