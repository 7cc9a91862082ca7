package repos

import "errors"

var (
	ErrNotFound    = errors.New("repository not tracked")
	ErrInvalidPath = errors.New("invalid path")
	ErrBusy        = errors.New("bulk operation in progress")
)
