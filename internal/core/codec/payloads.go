package codec

import (
	"github.com/zeusync/arena/internal/core/arena"
	"github.com/zeusync/arena/internal/core/linalg"
	"github.com/zeusync/arena/internal/core/simulation"
)

type InitializeRequest struct {
	Mode string `msgpack:"mode"`
	Map  string `msgpack:"map"`
}

type ContactRequest struct {
	Position linalg.Vec3 `msgpack:"position"`
	Radius   float64     `msgpack:"radius"`
}

type BallRequest struct {
	Ball    simulation.Ball `msgpack:"ball"`
	Seconds float64         `msgpack:"seconds"`
}

type BallTrajectoryRequest struct {
	Ball     simulation.Ball `msgpack:"ball"`
	TickRate float64         `msgpack:"tick_rate"`
	Seconds  float64         `msgpack:"seconds"`
}

type BallTrajectoryResponse struct {
	Frames []simulation.Frame `msgpack:"frames"`
}

type VehicleRequest struct {
	Car     simulation.Car `msgpack:"car"`
	Seconds float64        `msgpack:"seconds"`
}

type VehicleCollisionRequest struct {
	Car simulation.Car `msgpack:"car"`
}

type VehicleCollisionResponse struct {
	Car     simulation.Car `msgpack:"car"`
	Contact arena.Ray      `msgpack:"contact"`
}

type BallVehicleRequest struct {
	Ball simulation.Ball `msgpack:"ball"`
	Car  simulation.Car  `msgpack:"car"`
	Dt   float64         `msgpack:"dt"`
}

type AttitudeRequest struct {
	Orientation     linalg.Mat3 `msgpack:"orientation"`
	AngularVelocity linalg.Vec3 `msgpack:"angular_velocity"`
	Target          linalg.Mat3 `msgpack:"target"`
	Dt              float64     `msgpack:"dt"`
}

// AttitudeResponse carries the command as (roll, pitch, yaw).
type AttitudeResponse struct {
	Command linalg.Vec3 `msgpack:"command"`
}

type PathRequest struct {
	StartPosition linalg.Vec3 `msgpack:"start_position"`
	StartTangent  linalg.Vec3 `msgpack:"start_tangent"`
	EndPosition   linalg.Vec3 `msgpack:"end_position"`
	EndTangent    linalg.Vec3 `msgpack:"end_tangent"`
	Multiplier    float64     `msgpack:"multiplier"`
}
