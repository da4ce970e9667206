package account

import (
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Designation names the accounts that carry special meaning: the Suspense
// account new imports point at, and the Misc account that receives the
// remainder of a split.
type Designation struct {
	SuspenseName string
	MiscNames    []string
	MiscCodes    []string
}

// DefaultDesignation matches the accounts seeded by the initial migrations.
var DefaultDesignation = Designation{
	SuspenseName: "Suspense",
	MiscNames:    []string{"Misc", "Miscellaneous"},
	MiscCodes:    []string{"misc", "9999"},
}

// Chart is a read-only snapshot of the chart of accounts in list order.
type Chart struct {
	accounts []*Account
	byID     map[uuid.UUID]*Account
	suspense *Account
	misc     *Account
}

func NewChart(accounts []*Account, d Designation) *Chart {
	c := &Chart{
		accounts: accounts,
		byID:     make(map[uuid.UUID]*Account, len(accounts)),
	}

	for _, a := range accounts {
		c.byID[a.ID] = a

		if c.suspense == nil && d.SuspenseName != "" && strings.EqualFold(a.Name, d.SuspenseName) {
			c.suspense = a
		}

		if c.misc == nil && isMisc(a, d) {
			c.misc = a
		}
	}

	return c
}

func isMisc(a *Account, d Designation) bool {
	match := func(list []string, v string) bool {
		return slices.ContainsFunc(list, func(s string) bool { return strings.EqualFold(s, v) })
	}

	return match(d.MiscNames, a.Name) || match(d.MiscCodes, a.Code)
}

func (c *Chart) All() []*Account {
	return c.accounts
}

func (c *Chart) ByID(id uuid.UUID) *Account {
	return c.byID[id]
}

// Suspense returns the designated placeholder account, or nil.
func (c *Chart) Suspense() *Account {
	return c.suspense
}

// Misc returns the designated remainder account, or nil.
func (c *Chart) Misc() *Account {
	return c.misc
}

func (c *Chart) IsSuspense(id uuid.UUID) bool {
	return c.suspense != nil && c.suspense.ID == id
}

// MatchName resolves an account for a category name. An exact
// case-insensitive name match wins; otherwise the first account whose name
// contains the category name, or is contained by it, is returned.
func (c *Chart) MatchName(name string) *Account {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil
	}

	for _, a := range c.accounts {
		if strings.ToLower(strings.TrimSpace(a.Name)) == name {
			return a
		}
	}

	for _, a := range c.accounts {
		acc := strings.ToLower(strings.TrimSpace(a.Name))
		if acc == "" {
			continue
		}

		if strings.Contains(acc, name) || strings.Contains(name, acc) {
			return a
		}
	}

	return nil
}
