package simulation

import (
	"math"

	"github.com/zeusync/arena/internal/core/linalg"
)

// DriveCommand is the full set of control axes a vehicle accepts for one tick.
// Axes are clipped to [-1, 1] by the simulator.
type DriveCommand struct {
	Throttle  float64 `json:"throttle" msgpack:"throttle"`
	Steer     float64 `json:"steer" msgpack:"steer"`
	Pitch     float64 `json:"pitch" msgpack:"pitch"`
	Yaw       float64 `json:"yaw" msgpack:"yaw"`
	Roll      float64 `json:"roll" msgpack:"roll"`
	Boost     bool    `json:"boost" msgpack:"boost"`
	Jump      bool    `json:"jump" msgpack:"jump"`
	Handbrake bool    `json:"handbrake" msgpack:"handbrake"`
}

func (c DriveCommand) clipped() DriveCommand {
	c.Throttle = linalg.Clip(c.Throttle, -1, 1)
	c.Steer = linalg.Clip(c.Steer, -1, 1)
	c.Pitch = linalg.Clip(c.Pitch, -1, 1)
	c.Yaw = linalg.Clip(c.Yaw, -1, 1)
	c.Roll = linalg.Clip(c.Roll, -1, 1)
	return c
}

// Car is the vehicle state. OnGround is owned by the caller: Step reads it to
// choose between the ground and the aerial model and only clears it on a jump.
type Car struct {
	RigidBody
	OnGround     bool    `json:"on_ground" msgpack:"on_ground"`
	Jumped       bool    `json:"jumped" msgpack:"jumped"`
	DoubleJumped bool    `json:"double_jumped" msgpack:"double_jumped"`
	JumpTimer    float64 `json:"jump_timer" msgpack:"jump_timer"`
	JumpHeld     bool    `json:"jump_held" msgpack:"jump_held"`
	Boost        float64 `json:"boost" msgpack:"boost"`

	ticks int
}

func NewCar(position linalg.Vec3, orientation linalg.Mat3) Car {
	c := Car{RigidBody: NewRigidBody(position), Boost: 100}
	c.Orientation = orientation
	return c
}

func (c *Car) Forward() linalg.Vec3 { return linalg.Forward(c.Orientation) }
func (c *Car) Left() linalg.Vec3    { return linalg.Left(c.Orientation) }
func (c *Car) Up() linalg.Vec3      { return linalg.Up(c.Orientation) }

// Step advances the car by dt under cmd.
func (c *Car) Step(cmd DriveCommand, dt float64) {
	c.Orientation = orientationOrIdentity(c.Orientation)
	cmd = cmd.clipped()

	if c.OnGround {
		c.driveStep(cmd, dt)
	} else {
		c.aerialStep(cmd, dt)
	}

	c.Velocity = linalg.ClipLen(c.Velocity, CarMaxSpeed)
	c.AngularVelocity = linalg.ClipLen(c.AngularVelocity, CarMaxAngularSpeed)
	c.Position = c.Position.Add(c.Velocity.Mul(dt))
	c.advanceOrientation(dt)

	c.ticks++
	if c.ticks%orthonormalizeEvery == 0 {
		c.Orientation = linalg.Orthonormalize(c.Orientation)
	}

	c.JumpHeld = cmd.Jump
	c.Time += dt
}

func (c *Car) driveStep(cmd DriveCommand, dt float64) {
	f, l, u := c.Forward(), c.Left(), c.Up()

	if cmd.Jump && !c.JumpHeld {
		c.Velocity = c.Velocity.Add(u.Mul(JumpImpulse))
		c.OnGround = false
		c.Jumped = true
		c.DoubleJumped = false
		c.JumpTimer = 0
		return
	}
	c.Jumped, c.DoubleJumped, c.JumpTimer = false, false, 0

	vf := c.Velocity.Dot(f)
	accel := 0.0
	throttle := cmd.Throttle

	if cmd.Boost && c.Boost > 0 {
		throttle = 1
		accel += BoostAccel
		c.Boost = math.Max(0, c.Boost-BoostConsumption*dt)
	}

	switch {
	case math.Abs(throttle) < 0.01:
		accel -= linalg.Sgn(vf) * math.Min(CoastAccel, math.Abs(vf)/dt)
	case throttle*vf < 0:
		accel -= linalg.Sgn(vf) * math.Min(BrakeAccel, math.Abs(vf)/dt)
	default:
		accel += throttle * ThrottleCurve(vf)
	}

	grip := LateralGrip
	turn := 1.0
	if cmd.Handbrake {
		grip = HandbrakeGrip
		turn = 1.5
	}

	vl := c.Velocity.Dot(l)
	v := c.Velocity.Add(f.Mul(accel * dt))
	v = v.Sub(l.Mul(vl * math.Min(1, grip*dt)))

	g := Gravity.Sub(u.Mul(Gravity.Dot(u)))
	v = v.Add(g.Mul(dt))
	c.Velocity = v.Sub(u.Mul(v.Dot(u)))

	// positive steer turns right
	yawRate := -cmd.Steer * turn * SteeringCurvature(vf) * vf
	c.AngularVelocity = u.Mul(yawRate)
}

func (c *Car) aerialStep(cmd DriveCommand, dt float64) {
	o := c.Orientation
	f, l, u := c.Forward(), c.Left(), c.Up()

	accel := Gravity
	if cmd.Boost && c.Boost > 0 {
		accel = accel.Add(f.Mul(BoostAccel))
		c.Boost = math.Max(0, c.Boost-BoostConsumption*dt)
	}

	if c.Jumped {
		c.JumpTimer += dt
		if cmd.Jump && c.JumpHeld && !c.DoubleJumped && c.JumpTimer <= JumpHoldTime {
			accel = accel.Add(u.Mul(JumpHoldAccel))
		}
		if cmd.Jump && !c.JumpHeld && !c.DoubleJumped && c.JumpTimer <= DoubleJumpMax {
			c.secondJump(cmd, f, l, u)
		}
	}

	c.Velocity = c.Velocity.Add(accel.Mul(dt))

	rpy := linalg.Vec3{cmd.Roll, cmd.Pitch, cmd.Yaw}
	c.AngularVelocity = c.AngularVelocity.Add(linalg.ToWorld(o, AerialAcceleration(rpy, linalg.ToLocal(o, c.AngularVelocity))).Mul(dt))
}

// secondJump performs a double jump, or a dodge when a direction is held.
func (c *Car) secondJump(cmd DriveCommand, f, l, u linalg.Vec3) {
	c.DoubleJumped = true

	dir := linalg.Vec3{-cmd.Pitch, cmd.Yaw, 0}
	if math.Abs(dir[0])+math.Abs(dir[1]) < 0.5 {
		c.Velocity = c.Velocity.Add(u.Mul(JumpImpulse))
		return
	}
	dir = linalg.Normalize(dir)

	fh := linalg.Normalize(linalg.Vec3{f[0], f[1], 0})
	rh := linalg.Normalize(linalg.Vec3{-l[0], -l[1], 0})
	c.Velocity = c.Velocity.Add(fh.Mul(dir[0] * DodgeImpulse)).Add(rh.Mul(dir[1] * DodgeImpulse))

	spin := linalg.Vec3{dir[1] * DodgeSpin, dir[0] * DodgeSpin, 0}
	c.AngularVelocity = linalg.ToWorld(c.Orientation, spin)
}

// AerialAcceleration is the body-frame angular acceleration produced by the
// (roll, pitch, yaw) input for a body-frame angular velocity. Pitch and yaw
// damping fade out while the matching input is held.
func AerialAcceleration(rpy, omegaLocal linalg.Vec3) linalg.Vec3 {
	damping := linalg.Vec3{
		AerialDamping[0],
		AerialDamping[1] * (1 - math.Abs(rpy[1])),
		AerialDamping[2] * (1 - math.Abs(rpy[2])),
	}
	return linalg.Hadamard(AerialTorque, rpy).Add(linalg.Hadamard(damping, omegaLocal))
}

// HitboxCenter returns the world-space center of the car's oriented box.
func (c *Car) HitboxCenter() linalg.Vec3 {
	return c.Position.Add(linalg.ToWorld(orientationOrIdentity(c.Orientation), CarHitboxOffset))
}

// Touches reports whether a sphere overlaps the car hitbox and returns the
// closest point of the hitbox to the sphere center.
func (c *Car) Touches(center linalg.Vec3, radius float64) (linalg.Vec3, bool) {
	o := orientationOrIdentity(c.Orientation)
	local := linalg.ToLocal(o, center.Sub(c.HitboxCenter()))
	for i := 0; i < 3; i++ {
		local[i] = linalg.Clip(local[i], -CarHitboxHalfExtents[i], CarHitboxHalfExtents[i])
	}
	p := c.HitboxCenter().Add(linalg.ToWorld(o, local))
	return p, p.Sub(center).Len() < radius
}
