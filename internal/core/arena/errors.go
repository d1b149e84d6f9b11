package arena

import "errors"

var (
	ErrUnknownMode = errors.New("unknown arena mode")
	ErrUnknownMap  = errors.New("unknown arena map")
	ErrEmptyMesh   = errors.New("arena mesh has no triangles")
)
