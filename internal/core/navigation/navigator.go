package navigation

import (
	"sync"

	"github.com/zeusync/arena/internal/core/linalg"
	"github.com/zeusync/arena/internal/core/observability/log"
)

// Pose is a position with a travel direction.
type Pose struct {
	Position linalg.Vec3 `json:"position" msgpack:"position"`
	Tangent  linalg.Vec3 `json:"tangent" msgpack:"tangent"`
}

// Navigator is a planning session. It caches the current pose and the last
// surroundings analysis; every method is safe for concurrent use.
type Navigator struct {
	mu       sync.Mutex
	mesh     *Mesh
	cfg      Config
	logger   log.Log
	pose     Pose
	analysis *Analysis
	analyses uint64
}

func NewNavigator(mesh *Mesh, cfg Config, logger log.Log) *Navigator {
	return &Navigator{
		mesh:   mesh,
		cfg:    cfg.withDefaults(),
		logger: logger.With(log.String("component", "navigator")),
		pose:   Pose{Tangent: linalg.UnitX},
	}
}

// Rebind swaps the mesh and drops the cached analysis.
func (n *Navigator) Rebind(mesh *Mesh) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.mesh = mesh
	n.analysis = nil
	n.logger.Debug("navigation mesh bound",
		log.Int("nodes", mesh.Len()),
		log.Int("edges", mesh.Edges()),
	)
}

func (n *Navigator) SetPose(position, tangent linalg.Vec3) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pose = Pose{Position: position, Tangent: tangent}
}

func (n *Navigator) Pose() Pose {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pose
}

// AnalyzeSurroundings searches the mesh around the cached pose.
func (n *Navigator) AnalyzeSurroundings(radius float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.analyze(radius)
}

func (n *Navigator) analyze(radius float64) {
	n.analysis = n.mesh.Analyze(n.pose.Position, n.pose.Tangent, radius)
	n.analyses++
	n.logger.Debug("surroundings analyzed",
		log.Float64("radius", radius),
		log.Int("reached", n.analysis.Reached()),
	)
}

// PathTo plans from the cached pose using the cached analysis.
func (n *Navigator) PathTo(end, endTangent linalg.Vec3, multiplier float64) Curve {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pathTo(end, endTangent, multiplier)
}

// Plan sets the pose, re-analyzes if the pose drifted from the one the last
// analysis was made for, and plans, all under one lock.
func (n *Navigator) Plan(pose Pose, end, endTangent linalg.Vec3, multiplier float64) Curve {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.pose = pose
	if n.stale() {
		n.analyze(n.cfg.AnalysisRadius)
	}
	return n.pathTo(end, endTangent, multiplier)
}

// Analyses counts surroundings searches run by the session.
func (n *Navigator) Analyses() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.analyses
}

func (n *Navigator) stale() bool {
	a := n.analysis
	if a == nil || a.mesh != n.mesh {
		return n.mesh != nil
	}
	if linalg.Distance(a.position, n.pose.Position) > n.cfg.PositionTolerance {
		return true
	}
	return linalg.Distance(a.tangent, linalg.Normalize(n.pose.Tangent)) > n.cfg.TangentTolerance
}

func (n *Navigator) pathTo(end, endTangent linalg.Vec3, multiplier float64) Curve {
	start := n.pose
	startTangent := linalg.Normalize(start.Tangent)
	endDir := linalg.Normalize(endTangent)
	if linalg.IsZero(endDir) {
		endDir = linalg.Normalize(end.Sub(start.Position))
	}

	startCtl := ControlPoint{Position: start.Position, Tangent: startTangent, Normal: linalg.UnitZ}
	endCtl := ControlPoint{Position: end, Tangent: endDir, Normal: linalg.UnitZ}

	a := n.analysis
	if a == nil || a.mesh != n.mesh || linalg.Distance(start.Position, end) < linalg.Epsilon {
		return NewCurve([]ControlPoint{startCtl, endCtl})
	}

	if !(multiplier > 0) {
		multiplier = 0
	}
	runIn := end.Sub(endDir.Mul(multiplier))
	startCtl.Normal = a.mesh.nodes[a.source/Headings].normal
	endCtl.Normal = a.mesh.nodes[a.mesh.nearest(end)].normal

	goal, ok := a.goal(runIn, endDir, 2*n.cfg.NodeSpacing)
	if !ok {
		return NewCurve([]ControlPoint{startCtl, endCtl})
	}

	controls := []ControlPoint{startCtl}
	controls = append(controls, n.intermediate(a, goal, start.Position, runIn)...)
	controls = append(controls,
		ControlPoint{Position: runIn, Tangent: endDir, Normal: endCtl.Normal},
		endCtl,
	)
	return NewCurve(controls)
}

// intermediate turns the backtracked node chain into control points,
// dropping the source and goal (replaced by the start and run-in poses),
// nodes crowding either end, and thinning the rest to MaxControls.
func (n *Navigator) intermediate(a *Analysis, goal int32, start, runIn linalg.Vec3) []ControlPoint {
	chain := a.backtrack(goal)
	if len(chain) <= 2 {
		return nil
	}
	chain = chain[1 : len(chain)-1]

	keep := n.cfg.NodeSpacing / 2
	var positions, normals []linalg.Vec3
	for _, id := range chain {
		node := a.mesh.nodes[id]
		if linalg.Distance(node.position, start) < keep || linalg.Distance(node.position, runIn) < keep {
			continue
		}
		positions = append(positions, node.position)
		normals = append(normals, node.normal)
	}

	if limit := n.cfg.MaxControls; len(positions) > limit {
		stride := float64(len(positions)) / float64(limit)
		thinned, thinnedNormals := make([]linalg.Vec3, limit), make([]linalg.Vec3, limit)
		for i := range thinned {
			k := int(float64(i) * stride)
			thinned[i], thinnedNormals[i] = positions[k], normals[k]
		}
		positions, normals = thinned, thinnedNormals
	}

	controls := make([]ControlPoint, len(positions))
	for i, p := range positions {
		prev, next := start, runIn
		if i > 0 {
			prev = positions[i-1]
		}
		if i+1 < len(positions) {
			next = positions[i+1]
		}
		tangent := linalg.Normalize(
			linalg.Normalize(next.Sub(p)).Add(linalg.Normalize(p.Sub(prev))),
		)
		if linalg.IsZero(tangent) {
			tangent = linalg.Normalize(next.Sub(prev))
		}
		controls[i] = ControlPoint{Position: p, Tangent: tangent, Normal: normals[i]}
	}
	return controls
}
