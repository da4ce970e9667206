package split

import "errors"

var (
	ErrRowNotFound        = errors.New("split row not found")
	ErrZeroTotal          = errors.New("cannot derive a percentage from a zero total")
	ErrMissingAccount     = errors.New("every split line needs an account")
	ErrPercentTotal       = errors.New("split percentages must add up to 100")
	ErrNegativeShare      = errors.New("split lines cannot be negative")
	ErrNoRemainderAccount = errors.New("remainder line has no account")
	ErrEmpty              = errors.New("split has no lines")
)
