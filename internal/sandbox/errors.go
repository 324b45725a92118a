package sandbox

import "errors"

var (
	ErrSandbox  = errors.New("sandbox runtime error")
	ErrProtocol = errors.New("sandbox protocol error")
)
