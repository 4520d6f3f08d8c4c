package errors

import "fmt"

var (
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrEmptyWords        = fmt.Errorf("no words have been found")
	ErrNotConnected      = fmt.Errorf("not connected")
	ErrMalformedEnvelope = fmt.Errorf("malformed envelope")
	ErrUnknownEnvelope   = fmt.Errorf("unknown envelope type")
	ErrInvalidIdentity   = fmt.Errorf("invalid session identity")
	ErrRoomAPI           = fmt.Errorf("room api error")
	ErrRoomNotFound      = fmt.Errorf("room not found")
	ErrInvalidConfig     = fmt.Errorf("invalid configuration")
)
