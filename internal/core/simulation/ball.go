package simulation

import (
	"math"

	"github.com/zeusync/arena/internal/core/arena"
	"github.com/zeusync/arena/internal/core/linalg"
)

type Ball struct {
	RigidBody
}

func NewBall(position, velocity, angularVelocity linalg.Vec3) Ball {
	b := Ball{RigidBody: NewRigidBody(position)}
	b.Velocity = velocity
	b.AngularVelocity = angularVelocity
	return b
}

// Step advances the ball by dt: surface contact against the collider (nil means
// open space), then drag, gravity and the speed caps. Long or fast steps are
// split so the center never travels more than ballMaxTravel per substep.
func (b *Ball) Step(dt float64, collider arena.Collider) {
	n := substeps(b.Velocity.Len(), dt)
	h := dt / float64(n)
	for i := 0; i < n; i++ {
		b.step(h, collider)
	}
}

func substeps(speed, dt float64) int {
	travel := (math.Min(speed, BallMaxSpeed) + Gravity.Len()*dt) * dt
	if !(travel > ballMaxTravel) {
		return 1
	}
	return int(math.Min(math.Ceil(travel/ballMaxTravel), maxBallSubsteps))
}

func (b *Ball) step(dt float64, collider arena.Collider) {
	b.Orientation = orientationOrIdentity(b.Orientation)

	var contact arena.Ray
	if collider != nil {
		contact = collider.Collide(b.Position, BallRadius+ballContactTolerance)
	}

	if contact.Hit() {
		b.bounce(contact)
	}

	b.Velocity = b.Velocity.Add(b.Velocity.Mul(BallDrag).Add(Gravity).Mul(dt))
	b.Velocity = linalg.ClipLen(b.Velocity, BallMaxSpeed)
	b.AngularVelocity = linalg.ClipLen(b.AngularVelocity, BallMaxAngularSpeed)
	b.Position = b.Position.Add(b.Velocity.Mul(dt))
	b.advanceOrientation(dt)

	if contact.Hit() {
		if penetration := BallRadius - b.Position.Sub(contact.Start).Dot(contact.Direction); penetration > 0 {
			b.Position = b.Position.Add(contact.Direction.Mul(1.001 * penetration))
		}
	}

	b.Time += dt
}

// bounce applies the restitution impulse along the contact normal and a
// Coulomb-limited friction impulse on the sliding velocity of the contact point.
func (b *Ball) bounce(contact arena.Ray) {
	n := contact.Direction
	l := contact.Start.Sub(b.Position)

	reducedMass := 1 / (1/BallMass + l.Dot(l)/BallInertia)

	vPerp := n.Mul(math.Min(b.Velocity.Dot(n), 0))
	vPara := b.Velocity.Sub(vPerp).Sub(l.Cross(b.AngularVelocity))

	ratio := vPerp.Len() / math.Max(vPara.Len(), 1e-4)

	jPerp := vPerp.Mul(-(1 + BallRestitution) * BallMass)
	jPara := vPara.Mul(-math.Min(1, BallFriction*ratio) * reducedMass)

	b.AngularVelocity = b.AngularVelocity.Add(l.Cross(jPara).Mul(1 / BallInertia))
	b.Velocity = b.Velocity.Add(jPerp.Add(jPara).Mul(1 / BallMass))
}

// StepWithCar resolves a touch with the car, updating only the ball, and then
// performs a regular Step.
func (b *Ball) StepWithCar(dt float64, car Car, collider arena.Collider) {
	b.Orientation = orientationOrIdentity(b.Orientation)
	car.Orientation = orientationOrIdentity(car.Orientation)

	if p, ok := car.Touches(b.Position, BallRadius); ok {
		b.hit(car, p)
	}
	b.Step(dt, collider)
}

func (b *Ball) hit(car Car, p linalg.Vec3) {
	lb := p.Sub(b.Position)
	lc := p.Sub(car.Position)

	o := car.Orientation
	invIBody := linalg.Mat3{1 / CarInertia[0], 0, 0, 0, 1 / CarInertia[1], 0, 0, 0, 1 / CarInertia[2]}
	invIc := o.Mul3(invIBody).Mul3(o.Transpose())

	kb, kc := linalg.Skew(lb), linalg.Skew(lc)
	k := linalg.Identity().Mul(1/BallMass + 1/CarMass).
		Sub(kb.Mul3(kb).Mul(1 / BallInertia)).
		Sub(kc.Mul3(invIc).Mul3(kc))
	m := k.Inv()

	n1 := linalg.Normalize(lb)
	if linalg.IsZero(n1) {
		n1 = linalg.Normalize(car.Position.Sub(b.Position))
	}

	deltaV := car.Velocity.Sub(lc.Cross(car.AngularVelocity)).
		Sub(b.Velocity.Sub(lb.Cross(b.AngularVelocity)))

	j1 := m.Mul3x1(deltaV)
	j1Perp := n1.Mul(math.Min(j1.Dot(n1), -1))
	j1Para := j1.Sub(j1Perp)
	ratio := j1Perp.Len() / math.Max(j1Para.Len(), 1e-3)
	j1 = j1Perp.Add(j1Para.Mul(math.Min(1, BallFriction*ratio)))

	f := linalg.Forward(o)
	n2 := b.Position.Sub(car.Position)
	n2[2] *= 0.35
	n2 = linalg.Normalize(n2.Sub(f.Mul(0.35 * n2.Dot(f))))

	dv := math.Min(b.Velocity.Sub(car.Velocity).Len(), 4600)
	j2 := n2.Mul(BallMass * dv * interpolate(hitScaleCurve, dv))

	b.AngularVelocity = b.AngularVelocity.Add(lb.Cross(j1).Mul(1 / BallInertia))
	b.Velocity = b.Velocity.Add(j1.Add(j2).Mul(1 / BallMass))
}
