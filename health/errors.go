package health

import "errors"

var (
	ErrUnreachable    = errors.New("health: cache unreachable")
	ErrTimeout        = errors.New("health: check timed out")
	ErrUnknownCheck   = errors.New("health: no check registered under name")
	ErrDuplicateCheck = errors.New("health: check already registered")
)
