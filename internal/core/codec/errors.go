package codec

import "errors"

var (
	ErrMalformed = errors.New("malformed message")
	ErrUnknownOp = errors.New("unknown operation")
	ErrRemote    = errors.New("remote error")
)
