package git

import "errors"

var (
	ErrNotARepository  = errors.New("not a repository")
	ErrOperationFailed = errors.New("git operation failed")
	ErrNoRemote        = errors.New("remote not found")
	ErrNetwork         = errors.New("network failure")
	ErrAuthentication  = errors.New("authentication failed")
	ErrInvalidConfig   = errors.New("invalid git config")
)
