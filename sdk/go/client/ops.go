package client

import (
	"context"

	"github.com/zeusync/arena/internal/core/arena"
	"github.com/zeusync/arena/internal/core/codec"
	"github.com/zeusync/arena/internal/core/engine"
	"github.com/zeusync/arena/internal/core/linalg"
	"github.com/zeusync/arena/internal/core/navigation"
	"github.com/zeusync/arena/internal/core/simulation"
)

// Initialize selects the server's arena and returns what it now serves.
func (c *Client) Initialize(ctx context.Context, mode, name string) (engine.State, error) {
	var state engine.State
	err := c.Call(ctx, codec.OpInitialize, codec.InitializeRequest{Mode: mode, Map: name}, &state)
	return state, err
}

func (c *Client) QuerySurfaceContact(ctx context.Context, position linalg.Vec3, radius float64) (arena.Ray, error) {
	var ray arena.Ray
	err := c.Call(ctx, codec.OpContact, codec.ContactRequest{Position: position, Radius: radius}, &ray)
	return ray, err
}

func (c *Client) SimulateBall(ctx context.Context, ball simulation.Ball, seconds float64) (simulation.Ball, error) {
	var out simulation.Ball
	err := c.Call(ctx, codec.OpBall, codec.BallRequest{Ball: ball, Seconds: seconds}, &out)
	return out, err
}

// SimulateBallTrajectory returns one frame per tick; a non-positive tickRate
// uses the server's rate.
func (c *Client) SimulateBallTrajectory(ctx context.Context, ball simulation.Ball, tickRate, seconds float64) ([]simulation.Frame, error) {
	var out codec.BallTrajectoryResponse
	err := c.Call(ctx, codec.OpBallTrajectory, codec.BallTrajectoryRequest{Ball: ball, TickRate: tickRate, Seconds: seconds}, &out)
	return out.Frames, err
}

func (c *Client) SimulateVehicle(ctx context.Context, car simulation.Car, seconds float64) (simulation.Car, error) {
	var out simulation.Car
	err := c.Call(ctx, codec.OpVehicle, codec.VehicleRequest{Car: car, Seconds: seconds}, &out)
	return out, err
}

func (c *Client) SimulateVehicleCollision(ctx context.Context, car simulation.Car) (simulation.Car, arena.Ray, error) {
	var out codec.VehicleCollisionResponse
	err := c.Call(ctx, codec.OpVehicleCollision, codec.VehicleCollisionRequest{Car: car}, &out)
	return out.Car, out.Contact, err
}

func (c *Client) SimulateBallVehicleInteraction(ctx context.Context, ball simulation.Ball, car simulation.Car, dt float64) (simulation.Ball, error) {
	var out simulation.Ball
	err := c.Call(ctx, codec.OpBallVehicle, codec.BallVehicleRequest{Ball: ball, Car: car, Dt: dt}, &out)
	return out, err
}

// ComputeAttitudeCommand returns (roll, pitch, yaw).
func (c *Client) ComputeAttitudeCommand(ctx context.Context, orientation linalg.Mat3, angularVelocity linalg.Vec3, target linalg.Mat3, dt float64) (linalg.Vec3, error) {
	var out codec.AttitudeResponse
	err := c.Call(ctx, codec.OpAttitude, codec.AttitudeRequest{
		Orientation:     orientation,
		AngularVelocity: angularVelocity,
		Target:          target,
		Dt:              dt,
	}, &out)
	return out.Command, err
}

func (c *Client) RequestPath(ctx context.Context, startPosition, startTangent, endPosition, endTangent linalg.Vec3, multiplier float64) (navigation.Curve, error) {
	var curve navigation.Curve
	err := c.Call(ctx, codec.OpPath, codec.PathRequest{
		StartPosition: startPosition,
		StartTangent:  startTangent,
		EndPosition:   endPosition,
		EndTangent:    endTangent,
		Multiplier:    multiplier,
	}, &curve)
	return curve, err
}

func (c *Client) Stats(ctx context.Context) (engine.Stats, error) {
	var stats engine.Stats
	err := c.Call(ctx, codec.OpStats, nil, &stats)
	return stats, err
}
