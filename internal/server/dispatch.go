package server

import (
	"time"

	"github.com/pkg/errors"

	"github.com/zeusync/arena/internal/core/codec"
	"github.com/zeusync/arena/internal/core/engine"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/pkg/encoding"
)

// Dispatcher answers codec requests against an engine. It is shared by every
// transport and safe for concurrent use.
type Dispatcher struct {
	engine *engine.Engine
	logger log.Log
}

func NewDispatcher(e *engine.Engine, logger log.Log) *Dispatcher {
	return &Dispatcher{
		engine: e,
		logger: logger.With(log.String("component", "dispatcher")),
	}
}

// HandleBytes decodes one serialized request and returns the serialized
// response. Requests that cannot be decoded get a response without an ID.
func (d *Dispatcher) HandleBytes(data []byte) []byte {
	var resp *codec.Response

	req, err := encoding.Decode[codec.Request](data)
	if err != nil {
		d.logger.Warn("Failed to decode request", log.Int("size", len(data)), log.Error(err))
		resp = codec.Failure(err)
	} else {
		resp = d.Handle(req)
	}

	return encoding.Encode(resp, func(err error) encoding.Serializable {
		d.logger.Error("Failed to encode response", log.String("op", string(resp.Op)), log.Error(err))
		return codec.Failure(errors.Wrap(err, "encode response"))
	})
}

// Handle runs one request.
func (d *Dispatcher) Handle(req *codec.Request) *codec.Response {
	start := time.Now()
	resp := d.handle(req)

	if resp.Error != "" {
		d.logger.Debug("Request failed",
			log.String("id", req.ID.String()),
			log.String("op", string(req.Op)),
			log.String("error", resp.Error))
	} else {
		d.logger.Debug("Request handled",
			log.String("id", req.ID.String()),
			log.String("op", string(req.Op)),
			log.Duration("took", time.Since(start)))
	}
	return resp
}

func (d *Dispatcher) handle(req *codec.Request) *codec.Response {
	e := d.engine

	switch req.Op {
	case codec.OpInitialize:
		return call(req, func(p codec.InitializeRequest) (any, error) {
			if err := e.Initialize(p.Mode, p.Map); err != nil {
				return nil, err
			}
			return e.State(), nil
		})

	case codec.OpContact:
		return call(req, func(p codec.ContactRequest) (any, error) {
			return e.QuerySurfaceContact(p.Position, p.Radius), nil
		})

	case codec.OpBall:
		return call(req, func(p codec.BallRequest) (any, error) {
			return e.SimulateBall(p.Ball, p.Seconds), nil
		})

	case codec.OpBallTrajectory:
		return call(req, func(p codec.BallTrajectoryRequest) (any, error) {
			return codec.BallTrajectoryResponse{Frames: e.SimulateBallTrajectory(p.Ball, p.TickRate, p.Seconds)}, nil
		})

	case codec.OpVehicle:
		return call(req, func(p codec.VehicleRequest) (any, error) {
			return e.SimulateVehicle(p.Car, p.Seconds), nil
		})

	case codec.OpVehicleCollision:
		return call(req, func(p codec.VehicleCollisionRequest) (any, error) {
			car, contact := e.SimulateVehicleCollision(p.Car)
			return codec.VehicleCollisionResponse{Car: car, Contact: contact}, nil
		})

	case codec.OpBallVehicle:
		return call(req, func(p codec.BallVehicleRequest) (any, error) {
			return e.SimulateBallVehicleInteraction(p.Ball, p.Car, p.Dt), nil
		})

	case codec.OpAttitude:
		return call(req, func(p codec.AttitudeRequest) (any, error) {
			return codec.AttitudeResponse{
				Command: e.ComputeAttitudeCommand(p.Orientation, p.AngularVelocity, p.Target, p.Dt),
			}, nil
		})

	case codec.OpPath:
		return call(req, func(p codec.PathRequest) (any, error) {
			return e.RequestPath(p.StartPosition, p.StartTangent, p.EndPosition, p.EndTangent, p.Multiplier), nil
		})

	case codec.OpStats:
		return codec.NewResponse(req, e.Stats(), nil)

	default:
		return codec.NewResponse(req, nil, errors.Wrapf(codec.ErrUnknownOp, "%q", req.Op))
	}
}

// call decodes the payload into P and answers with fn's result.
func call[P any](req *codec.Request, fn func(P) (any, error)) *codec.Response {
	var p P
	if err := req.Decode(&p); err != nil {
		return codec.NewResponse(req, nil, err)
	}
	result, err := fn(p)
	return codec.NewResponse(req, result, err)
}
