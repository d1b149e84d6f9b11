// Package codec defines the msgpack envelopes and payloads exchanged with the
// prediction server.
package codec

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/zeusync/arena/pkg/encoding"
)

type Op string

const (
	OpInitialize       Op = "initialize"
	OpContact          Op = "contact"
	OpBall             Op = "ball"
	OpBallTrajectory   Op = "ball_trajectory"
	OpVehicle          Op = "vehicle"
	OpVehicleCollision Op = "vehicle_collision"
	OpBallVehicle      Op = "ball_vehicle"
	OpAttitude         Op = "attitude"
	OpPath             Op = "path"
	OpStats            Op = "stats"
)

var (
	_ encoding.Serializable = (*Request)(nil)
	_ encoding.Serializable = (*Response)(nil)
)

type Request struct {
	ID      uuid.UUID          `msgpack:"id"`
	Op      Op                 `msgpack:"op"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// NewRequest encodes payload under a fresh request ID.
func NewRequest(op Op, payload any) (*Request, error) {
	raw, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s payload", op)
	}
	return &Request{ID: uuid.New(), Op: op, Payload: raw}, nil
}

func (r *Request) Serialize() ([]byte, error) {
	return msgpack.Marshal(r)
}

func (r *Request) Deserialize(data []byte) error {
	if err := msgpack.Unmarshal(data, r); err != nil {
		return errors.Wrap(ErrMalformed, err.Error())
	}
	return nil
}

// Decode unpacks the payload into v.
func (r *Request) Decode(v any) error {
	if err := msgpack.Unmarshal(r.Payload, v); err != nil {
		return errors.Wrapf(ErrMalformed, "%s payload: %v", r.Op, err)
	}
	return nil
}

type Response struct {
	ID      uuid.UUID          `msgpack:"id"`
	Op      Op                 `msgpack:"op"`
	Payload msgpack.RawMessage `msgpack:"payload"`
	Error   string             `msgpack:"error,omitempty"`
}

// NewResponse answers req with payload, or with err when it is not nil.
func NewResponse(req *Request, payload any, err error) *Response {
	resp := &Response{ID: req.ID, Op: req.Op}
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	raw, err := msgpack.Marshal(payload)
	if err != nil {
		resp.Error = errors.Wrapf(err, "encode %s result", req.Op).Error()
		return resp
	}
	resp.Payload = raw
	return resp
}

// Failure answers a request that could not be decoded.
func Failure(err error) *Response {
	return &Response{Error: err.Error()}
}

func (r *Response) Serialize() ([]byte, error) {
	return msgpack.Marshal(r)
}

func (r *Response) Deserialize(data []byte) error {
	if err := msgpack.Unmarshal(data, r); err != nil {
		return errors.Wrap(ErrMalformed, err.Error())
	}
	return nil
}

// Decode returns the remote error as ErrRemote, or unpacks the payload into v.
func (r *Response) Decode(v any) error {
	if r.Error != "" {
		return errors.Wrap(ErrRemote, r.Error)
	}
	if err := msgpack.Unmarshal(r.Payload, v); err != nil {
		return errors.Wrapf(ErrMalformed, "%s result: %v", r.Op, err)
	}
	return nil
}
