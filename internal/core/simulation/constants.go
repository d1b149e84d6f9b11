// Package simulation integrates ball and vehicle rigid-body state tick by tick
// against an arena collider.
package simulation

import "github.com/zeusync/arena/internal/core/linalg"

var Gravity = linalg.Vec3{0, 0, -650}

// Ball properties.
const (
	BallRadius          = 91.25
	BallMass            = 30.0
	BallInertia         = 0.4 * BallMass * BallRadius * BallRadius
	BallRestitution     = 0.6
	BallFriction        = 2.0
	BallDrag            = -0.0305
	BallMaxSpeed        = 6000.0
	BallMaxAngularSpeed = 6.0

	// contact is resolved when the surface is within this distance of the ball's skin
	ballContactTolerance = 1.5

	// a substep never moves the center further than this, keeping it inside
	// the contact range of any surface it crosses
	ballMaxTravel   = BallRadius / 2
	maxBallSubsteps = 256
)

// Vehicle properties (octane hitbox).
const (
	CarMass            = 180.0
	CarMaxSpeed        = 2300.0
	CarMaxAngularSpeed = 5.5

	ThrottleAccel      = 1600.0
	ThrottleAccelLimit = 160.0
	MaxDriveSpeed      = 1410.0
	BrakeAccel         = 3500.0
	CoastAccel         = 525.0
	BoostAccel         = 991.666
	BoostConsumption   = 33.3
	LateralGrip        = 30.0
	HandbrakeGrip      = 5.0

	JumpImpulse   = 291.667
	JumpHoldAccel = 1458.333
	JumpHoldTime  = 0.2
	DoubleJumpMax = 1.25
	DodgeImpulse  = 500.0
	DodgeSpin     = 5.5

	// orientation is re-orthonormalized every this many ticks
	orthonormalizeEvery = 8
)

var (
	CarHitboxHalfExtents = linalg.Vec3{59.00368, 42.09976, 18.0795}
	CarHitboxOffset      = linalg.Vec3{13.87566, 0, 20.75499}
	CarInertia           = linalg.Vec3{751, 1334, 1836}

	// Aerial control torque per unit input and angular damping, in the body frame
	// as (roll, pitch, yaw).
	AerialTorque  = linalg.Vec3{-36.07956616966136, -12.14599781908070, 8.91962804287785}
	AerialDamping = linalg.Vec3{-4.47166302201591, -2.798194258050845, -1.886491900437232}
)

// steering curvature (1/uu) sampled against forward speed
var steeringCurve = [][2]float64{
	{0, 0.0069},
	{500, 0.00398},
	{1000, 0.00235},
	{1500, 0.001375},
	{1750, 0.0011},
	{2300, 0.00088},
}

// scale of the extra hit impulse applied to the ball against relative speed
var hitScaleCurve = [][2]float64{
	{0, 0.65},
	{500, 0.65},
	{2300, 0.55},
	{4600, 0.30},
}

func interpolate(curve [][2]float64, x float64) float64 {
	if x <= curve[0][0] {
		return curve[0][1]
	}
	for i := 1; i < len(curve); i++ {
		if x <= curve[i][0] {
			a, b := curve[i-1], curve[i]
			t := (x - a[0]) / (b[0] - a[0])
			return a[1] + t*(b[1]-a[1])
		}
	}
	return curve[len(curve)-1][1]
}

// SteeringCurvature is the turning curvature at full steer for a forward speed.
func SteeringCurvature(speed float64) float64 {
	if speed < 0 {
		speed = -speed
	}
	return interpolate(steeringCurve, speed)
}

// MaxSpeedForCurvature inverts SteeringCurvature: the highest speed at which
// the vehicle can still follow a path of curvature k.
func MaxSpeedForCurvature(k float64) float64 {
	if k < 0 {
		k = -k
	}
	if k >= steeringCurve[0][1] {
		return steeringCurve[0][0]
	}
	last := steeringCurve[len(steeringCurve)-1]
	if k <= last[1] {
		return CarMaxSpeed
	}
	for i := 1; i < len(steeringCurve); i++ {
		a, b := steeringCurve[i-1], steeringCurve[i]
		if k >= b[1] {
			t := (a[1] - k) / (a[1] - b[1])
			return a[0] + t*(b[0]-a[0])
		}
	}
	return last[0]
}

// TurningRadius is the tightest radius the vehicle can drive at a speed.
func TurningRadius(speed float64) float64 {
	return 1 / SteeringCurvature(speed)
}

// ThrottleCurve is the acceleration from full throttle at a forward speed.
func ThrottleCurve(speed float64) float64 {
	if speed < 0 {
		speed = -speed
	}
	switch {
	case speed < 1400:
		return ThrottleAccel - speed*(ThrottleAccel-ThrottleAccelLimit)/1400
	case speed < MaxDriveSpeed:
		return ThrottleAccelLimit * (MaxDriveSpeed - speed) / (MaxDriveSpeed - 1400)
	default:
		return 0
	}
}
