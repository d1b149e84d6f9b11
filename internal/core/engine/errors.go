package engine

import "errors"

var (
	ErrClosed = errors.New("engine closed")
)
