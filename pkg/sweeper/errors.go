package sweeper

import "errors"

var (
	ErrListerNil  = errors.New("sweeper: lister cannot be nil")
	ErrManagerNil = errors.New("sweeper: manager cannot be nil")
)
