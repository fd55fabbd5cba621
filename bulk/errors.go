package bulk

import "errors"

var (
	ErrNilRecord    = errors.New("no record data given")
	ErrEmptyPayload = errors.New("no payload data given")
	ErrNoEncoder    = errors.New("no fragment encoder configured")
)
