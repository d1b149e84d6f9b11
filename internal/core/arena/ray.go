package arena

import (
	"github.com/golang/geo/r3"

	"github.com/zeusync/arena/internal/core/linalg"
)

// Ray is the result of a collision query: a point on the arena surface and the
// unit direction from that point towards the probe. A zero Direction means no
// surface was within range.
type Ray struct {
	Start     linalg.Vec3 `json:"start" msgpack:"start"`
	Direction linalg.Vec3 `json:"direction" msgpack:"direction"`
}

// NoContact is the sentinel returned when nothing was hit.
var NoContact = Ray{}

// Hit reports whether the ray describes an actual contact.
func (r Ray) Hit() bool {
	return r.Direction != linalg.Zero
}

// Collider answers sphere queries against a static surface.
type Collider interface {
	Collide(center linalg.Vec3, radius float64) Ray
}

func toR3(v linalg.Vec3) r3.Vector {
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}

func fromR3(v r3.Vector) linalg.Vec3 {
	return linalg.Vec3{v.X, v.Y, v.Z}
}
