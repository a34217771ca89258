package rewards

import "errors"

var (
	ErrAccessDenied      = errors.New("rewards: access denied")
	ErrCapExceeded       = errors.New("rewards: submission cap exceeded")
	ErrInsufficientFunds = errors.New("rewards: insufficient cycle funds")
	ErrTooEarly          = errors.New("rewards: cycle boundary not reached")
	ErrStillOpen         = errors.New("rewards: cycle still open")
	ErrAlreadyWithdrawn  = errors.New("rewards: cycle already withdrawn")
	ErrUnknownCycle      = errors.New("rewards: unknown cycle")
	ErrUnauthorized      = errors.New("rewards: unauthorized")
	ErrInvalidAmount     = errors.New("rewards: invalid amount")
	ErrInvalidActor      = errors.New("rewards: invalid actor")
)
