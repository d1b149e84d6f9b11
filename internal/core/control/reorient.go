// Package control computes attitude commands for an airborne vehicle.
package control

import (
	"math"

	"github.com/zeusync/arena/internal/core/linalg"
	"github.com/zeusync/arena/internal/core/simulation"
)

// Gains of the PD law. Kp acts on the orientation error (rad), Kd on the body
// angular velocity (rad/s); both produce a desired angular acceleration.
type Gains struct {
	Kp float64 `yaml:"kp" json:"kp"`
	Kd float64 `yaml:"kd" json:"kd"`
}

func DefaultGains() Gains {
	return Gains{Kp: 25, Kd: 10}
}

const DefaultEpsPhi = 0.05

// Reorient drives a vehicle's orientation towards Target. Step only writes
// Controls; feeding them into the simulator is up to the caller.
type Reorient struct {
	Orientation     linalg.Mat3
	AngularVelocity linalg.Vec3
	Target          linalg.Mat3

	EpsPhi   float64
	EpsOmega float64
	Gains    Gains

	Controls simulation.DriveCommand

	phi linalg.Vec3
}

func NewReorient(target linalg.Mat3) *Reorient {
	return &Reorient{
		Orientation: linalg.Identity(),
		Target:      target,
		EpsPhi:      DefaultEpsPhi,
		Gains:       DefaultGains(),
	}
}

// Bind copies the vehicle's orientation and angular velocity.
func (r *Reorient) Bind(car *simulation.Car) {
	r.Orientation = car.Orientation
	r.AngularVelocity = car.AngularVelocity
}

// Step computes roll, pitch and yaw in [-1, 1]. The error is taken half a tick
// ahead along the current angular velocity.
func (r *Reorient) Step(dt float64) {
	o := r.Orientation
	if o == (linalg.Mat3{}) {
		o = linalg.Identity()
	}

	r.phi = linalg.RotationToAxis(r.Target.Mul3(o.Transpose()))

	phiLocal := linalg.ToLocal(o, r.phi)
	omegaLocal := linalg.ToLocal(o, r.AngularVelocity)
	if dt > 0 {
		phiLocal = phiLocal.Sub(omegaLocal.Mul(0.5 * dt))
	}

	var u linalg.Vec3
	for i := 0; i < 3; i++ {
		alpha := r.Gains.Kp*phiLocal[i] - r.Gains.Kd*omegaLocal[i]
		u[i] = linalg.Clip((alpha-simulation.AerialDamping[i]*omegaLocal[i])/simulation.AerialTorque[i], -1, 1)
	}

	r.Controls.Roll, r.Controls.Pitch, r.Controls.Yaw = u[0], u[1], u[2]
}

// Command returns the last (roll, pitch, yaw) output.
func (r *Reorient) Command() linalg.Vec3 {
	return linalg.Vec3{r.Controls.Roll, r.Controls.Pitch, r.Controls.Yaw}
}

// Error is the magnitude of the orientation error seen by the last Step, in radians.
func (r *Reorient) Error() float64 {
	return r.phi.Len()
}

// Converged is advisory; Step keeps working after it turns true.
func (r *Reorient) Converged() bool {
	if r.Error() >= r.EpsPhi {
		return false
	}
	return r.EpsOmega <= 0 || r.AngularVelocity.Len() < r.EpsOmega
}

// Simulate closes the loop through the vehicle simulator for the given number
// of ticks and returns the final car with the error before every tick.
func Simulate(car simulation.Car, r *Reorient, ticks int, dt float64) (simulation.Car, []float64) {
	errs := make([]float64, 0, ticks)
	car.OnGround = false
	for i := 0; i < ticks; i++ {
		r.Bind(&car)
		r.Step(dt)
		errs = append(errs, r.Error())
		car.Step(r.Controls, dt)
	}
	r.Bind(&car)
	r.phi = linalg.RotationToAxis(r.Target.Mul3(car.Orientation.Transpose()))
	return car, errs
}

// OrientationError is the rotation angle between two orientations.
func OrientationError(a, b linalg.Mat3) float64 {
	return math.Abs(linalg.RotationToAxis(b.Mul3(a.Transpose())).Len())
}
