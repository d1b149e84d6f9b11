package simulation

import "github.com/zeusync/arena/internal/core/linalg"

// RigidBody is the kinematic state shared by the ball and the vehicle.
type RigidBody struct {
	Position        linalg.Vec3 `json:"position" msgpack:"position"`
	Velocity        linalg.Vec3 `json:"velocity" msgpack:"velocity"`
	AngularVelocity linalg.Vec3 `json:"angular_velocity" msgpack:"angular_velocity"`
	Orientation     linalg.Mat3 `json:"orientation" msgpack:"orientation"`
	Time            float64     `json:"time" msgpack:"time"`
}

// NewRigidBody returns a body at rest at position with identity orientation.
func NewRigidBody(position linalg.Vec3) RigidBody {
	return RigidBody{Position: position, Orientation: linalg.Identity()}
}

// Frame is one sample of a predicted trajectory.
type Frame struct {
	Time            float64     `json:"time" msgpack:"time"`
	Position        linalg.Vec3 `json:"position" msgpack:"position"`
	Velocity        linalg.Vec3 `json:"velocity" msgpack:"velocity"`
	AngularVelocity linalg.Vec3 `json:"angular_velocity" msgpack:"angular_velocity"`
}

func (b RigidBody) Frame() Frame {
	return Frame{
		Time:            b.Time,
		Position:        b.Position,
		Velocity:        b.Velocity,
		AngularVelocity: b.AngularVelocity,
	}
}

// advanceOrientation rotates the orientation by the angular velocity over dt.
func (b *RigidBody) advanceOrientation(dt float64) {
	b.Orientation = linalg.AxisToRotation(b.AngularVelocity.Mul(dt)).Mul3(b.Orientation)
}

// orientationOrIdentity treats an all-zero matrix as the identity so zero-value
// states are usable.
func orientationOrIdentity(m linalg.Mat3) linalg.Mat3 {
	if m == (linalg.Mat3{}) {
		return linalg.Identity()
	}
	return m
}
