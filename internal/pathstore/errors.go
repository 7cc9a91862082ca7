package pathstore

import "errors"

var (
	ErrLoad          = errors.New("failed to load repository list")
	ErrSave          = errors.New("failed to save repository list")
	ErrUnknownDriver = errors.New("unknown storage driver")
)
