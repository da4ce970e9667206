package merchant

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("merchant not found")
	ErrNameEmpty = errors.New("merchant name is required")
)

// Merchant is a canonical payee. Aliases are raw description fragments that
// should resolve to it; they accumulate as transactions are linked.
type Merchant struct {
	ID         uuid.UUID
	Name       string
	Aliases    []string
	CategoryID *uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}

// Needles returns the strings the matcher tests against a description:
// the canonical name followed by every alias.
func (m *Merchant) Needles() []string {
	needles := make([]string, 0, len(m.Aliases)+1)
	needles = append(needles, m.Name)

	return append(needles, m.Aliases...)
}

// Matches reports whether the merchant's name or one of its aliases occurs
// in description as a whole token.
func (m *Merchant) Matches(description string) bool {
	for _, n := range m.Needles() {
		if ContainsBounded(description, n) {
			return true
		}
	}

	return false
}

// LearnAlias records the normalized form of a raw description as a new alias.
// Nothing is added when the alias is empty, already present, or already
// recognised through an existing name or alias.
func (m *Merchant) LearnAlias(raw string) (string, bool) {
	alias := NormalizeAlias(raw)
	if alias == "" {
		return "", false
	}

	for _, n := range m.Needles() {
		if ContainsBounded(alias, n) {
			return alias, false
		}
	}

	m.Aliases = append(m.Aliases, alias)

	return alias, true
}
