package category

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("category not found")
	ErrNameEmpty = errors.New("category name is required")
)

// Category labels merchants. When IsSplitEnabled is set, transactions for
// merchants in the category are split across accounts instead of being
// assigned to a single one.
type Category struct {
	ID             uuid.UUID
	Name           string
	IsSplitEnabled bool
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}
