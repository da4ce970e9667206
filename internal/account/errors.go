package account

import "errors"

var (
	ErrNotFound    = errors.New("account not found")
	ErrInvalidType = errors.New("invalid account type")
	ErrNameEmpty   = errors.New("account name is required")
)
