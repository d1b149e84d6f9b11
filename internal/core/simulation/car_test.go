package simulation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/arena/internal/core/linalg"
)

func groundCar(speed float64) Car {
	c := NewCar(linalg.Vec3{0, 0, 17}, linalg.Identity())
	c.Velocity = linalg.Vec3{speed, 0, 0}
	c.OnGround = true
	return c
}

func TestCar_CoastStaysOnPlane(t *testing.T) {
	c := groundCar(500)
	for i := 0; i < 120; i++ {
		c.Step(DriveCommand{}, tick)
		require.True(t, c.OnGround)
	}
	assert.InDelta(t, 17, c.Position[2], 1e-9)
	assert.Less(t, c.Velocity[0], 500.0)
	assert.GreaterOrEqual(t, c.Velocity[0], 0.0)
	assert.Less(t, linalg.OrthonormalityError(c.Orientation), 1e-9)
}

func TestCar_ThrottleTopSpeed(t *testing.T) {
	c := PredictCar(groundCar(0), DriveCommand{Throttle: 1}, 3, tick)
	speed := c.Velocity.Len()
	assert.Greater(t, speed, 1390.0)
	assert.LessOrEqual(t, speed, MaxDriveSpeed+1e-6)
	assert.InDelta(t, 3, c.Time, 1e-9)
}

func TestCar_BoostExceedsDriveSpeed(t *testing.T) {
	c := PredictCar(groundCar(0), DriveCommand{Boost: true}, 3, tick)
	assert.Greater(t, c.Velocity.Len(), 2000.0)
	assert.LessOrEqual(t, c.Velocity.Len(), CarMaxSpeed+1e-6)
	assert.Less(t, c.Boost, 100.0)
}

func TestCar_Brake(t *testing.T) {
	c := groundCar(1000)
	c = PredictCar(c, DriveCommand{Throttle: -1}, 0.25, tick)
	assert.InDelta(t, 125, c.Velocity[0], 1)
}

func TestCar_SteeringYawRate(t *testing.T) {
	c := groundCar(1000)
	c.Step(DriveCommand{Throttle: 1, Steer: 1}, tick)
	assert.InDelta(t, -SteeringCurvature(1000)*1000, c.AngularVelocity[2], 1e-9)
	assert.Less(t, linalg.Forward(c.Orientation)[1], 0.0, "positive steer turns right")
}

func TestCar_Jump(t *testing.T) {
	tap := groundCar(0)
	tap.Step(DriveCommand{Jump: true}, tick)
	require.False(t, tap.OnGround)
	assert.InDelta(t, JumpImpulse, tap.Velocity[2], 1e-9)

	held := tap
	for i := 0; i < 30; i++ {
		tap.Step(DriveCommand{}, tick)
		held.Step(DriveCommand{Jump: true}, tick)
	}
	assert.Greater(t, held.Position[2], tap.Position[2])
}

func TestCar_DodgeForward(t *testing.T) {
	c := groundCar(0)
	c.Step(DriveCommand{Jump: true}, tick)
	c.Step(DriveCommand{}, tick)
	vx := c.Velocity[0]

	c.Step(DriveCommand{Jump: true, Pitch: -1}, tick)
	assert.True(t, c.DoubleJumped)
	assert.InDelta(t, vx+DodgeImpulse, c.Velocity[0], 1e-6)
	assert.Greater(t, c.AngularVelocity[1], 0.0)
}

func TestCar_FreeFall(t *testing.T) {
	c := NewCar(linalg.Vec3{0, 0, 1500}, linalg.Identity())
	c = PredictCar(c, DriveCommand{}, 1, tick)
	assert.InDelta(t, -650, c.Velocity[2], 1e-6)
	assert.False(t, c.OnGround)
}

func TestCar_OrientationStaysOrthonormal(t *testing.T) {
	c := NewCar(linalg.Vec3{0, 0, 1000}, linalg.Euler(0.3, 1, -0.2))
	for i := 0; i < 2000; i++ {
		c.Step(DriveCommand{Roll: math.Sin(float64(i) / 50), Pitch: 1, Yaw: -0.5}, tick)
		require.Less(t, linalg.OrthonormalityError(c.Orientation), 1e-6)
	}
	assert.LessOrEqual(t, c.AngularVelocity.Len(), CarMaxAngularSpeed+1e-9)
}

func TestCar_ZeroValueIsUsable(t *testing.T) {
	var c Car
	c.Step(DriveCommand{}, tick)
	assert.True(t, linalg.Finite(c.Position))
	assert.Less(t, linalg.OrthonormalityError(c.Orientation), 1e-9)
}

func TestThrottleCurve(t *testing.T) {
	assert.InDelta(t, 1600, ThrottleCurve(0), 1e-9)
	assert.InDelta(t, 160, ThrottleCurve(1400), 1e-9)
	assert.InDelta(t, 0, ThrottleCurve(1410), 1e-9)
	assert.InDelta(t, 0, ThrottleCurve(2000), 1e-9)
	assert.InDelta(t, 1/0.00235, TurningRadius(1000), 1e-9)
}

func TestMaxSpeedForCurvature(t *testing.T) {
	for _, speed := range []float64{0, 250, 1000, 1600, 2000} {
		assert.InDelta(t, speed, MaxSpeedForCurvature(SteeringCurvature(speed)), 1e-6)
	}
	assert.Equal(t, CarMaxSpeed, MaxSpeedForCurvature(0))
	assert.Equal(t, 0.0, MaxSpeedForCurvature(0.01))
}
