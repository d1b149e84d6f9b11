package simulation

import (
	"math"

	"github.com/zeusync/arena/internal/core/arena"
)

// Ticks is the number of fixed steps of length dt covering seconds.
func Ticks(seconds, dt float64) int {
	if !(dt > 0) || !(seconds > 0) {
		return 0
	}
	return int(math.Round(seconds / dt))
}

// PredictBall advances a copy of ball for the given duration and returns the
// final state.
func PredictBall(ball Ball, seconds, dt float64, collider arena.Collider) Ball {
	for i, n := 0, Ticks(seconds, dt); i < n; i++ {
		ball.Step(dt, collider)
	}
	return ball
}

// BallTrajectory returns one frame per tick. The slice is sized from the
// duration and tick length of the request.
func BallTrajectory(ball Ball, seconds, dt float64, collider arena.Collider) []Frame {
	n := Ticks(seconds, dt)
	frames := make([]Frame, 0, n)
	for i := 0; i < n; i++ {
		ball.Step(dt, collider)
		frames = append(frames, ball.Frame())
	}
	return frames
}

// PredictCar holds cmd for the given duration and returns the final state.
func PredictCar(car Car, cmd DriveCommand, seconds, dt float64) Car {
	for i, n := 0, Ticks(seconds, dt); i < n; i++ {
		car.Step(cmd, dt)
	}
	return car
}

// CollisionProbe configures contact detection during a free-flight prediction.
type CollisionProbe struct {
	Radius      float64 `yaml:"radius" json:"radius"`
	RetryRadius float64 `yaml:"retry_radius" json:"retry_radius"`
}

func DefaultCollisionProbe() CollisionProbe {
	return CollisionProbe{Radius: 50, RetryRadius: 150}
}

// PredictCarCollision flies the car ballistically (OnGround held false, idle
// inputs) and stops at the first tick whose position touches the arena within
// probe.Radius. Without a contact the flight is repeated once with
// probe.RetryRadius. The returned ray is the sentinel when both passes miss.
func PredictCarCollision(car Car, seconds, dt float64, collider arena.Collider, probe CollisionProbe) (Car, arena.Ray) {
	final, ray := flyUntilContact(car, seconds, dt, collider, probe.Radius)
	if ray.Hit() || probe.RetryRadius <= probe.Radius {
		return final, ray
	}
	return flyUntilContact(car, seconds, dt, collider, probe.RetryRadius)
}

func flyUntilContact(car Car, seconds, dt float64, collider arena.Collider, radius float64) (Car, arena.Ray) {
	car.OnGround = false
	if collider == nil {
		return PredictCar(car, DriveCommand{}, seconds, dt), arena.NoContact
	}

	for i, n := 0, Ticks(seconds, dt); i < n; i++ {
		car.Step(DriveCommand{}, dt)
		car.OnGround = false
		if ray := collider.Collide(car.Position, radius); ray.Hit() {
			return car, ray
		}
	}
	return car, arena.NoContact
}
