package console

import "errors"

var (
	ErrNoSession      = errors.New("no console session")
	ErrRegistryClosed = errors.New("workspace registry closed")
)
