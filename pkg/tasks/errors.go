package tasks

import "github.com/pkg/errors"

var (
	ErrUnauthorized            = errors.New("requester not authorized")
	ErrInsufficientFee         = errors.New("insufficient task fee")
	ErrInvalidRange            = errors.New("invalid value range")
	ErrInvalidCount            = errors.New("invalid value count")
	ErrTooManyTasks            = errors.New("too many tasks this block")
	ErrUnknownTask             = errors.New("unknown task")
	ErrCallerNotActiveOperator = errors.New("caller is not an active operator")
	ErrTaskNotPending          = errors.New("task is not pending")
	ErrTaskExpired             = errors.New("task expired")
	ErrTaskNotExpired          = errors.New("task not expired")
	ErrResultCountMismatch     = errors.New("result value count mismatch")
	ErrValueOutOfRange         = errors.New("result value out of range")
	ErrInvalidAttester         = errors.New("attester is not an active operator")
	ErrNoResult                = errors.New("no result recorded")
)
