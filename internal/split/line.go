package split

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line is a persisted split line of a transaction. Amount is in cents and is
// always non-negative; the transaction carries the sign.
type Line struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	AccountID     uuid.UUID
	Description   string
	Percent       decimal.Decimal
	Amount        int64
	Position      int
	CreatedAt     time.Time
}

// Allocate turns shares into lines over the absolute transaction amount in
// cents. Each line gets percent/100 of the total rounded down to the cent,
// then the cents left over go one at a time to the lines with the largest
// fractional parts (earlier lines win ties). The lines sum exactly to the
// total and no line goes negative.
func Allocate(txID uuid.UUID, totalCents int64, shares []Share) []*Line {
	if totalCents < 0 {
		totalCents = -totalCents
	}

	total := decimal.NewFromInt(totalCents)
	lines := make([]*Line, len(shares))
	fractions := make([]decimal.Decimal, len(shares))

	var sum int64

	for i, sh := range shares {
		exact := sh.Percent.Div(hundred).Mul(total)
		floor := exact.Floor()
		fractions[i] = exact.Sub(floor)
		sum += floor.IntPart()

		lines[i] = &Line{
			TransactionID: txID,
			AccountID:     sh.AccountID,
			Description:   sh.Description,
			Percent:       sh.Percent,
			Amount:        floor.IntPart(),
			Position:      i,
		}
	}

	if len(lines) == 0 {
		return lines
	}

	order := make([]int, len(lines))
	for i := range order {
		order[i] = i
	}

	slices.SortStableFunc(order, func(a, b int) int {
		return fractions[b].Cmp(fractions[a])
	})

	// Shares within the percent tolerance can leave more cents than lines,
	// or fewer cents than the floors claim.
	for leftover := totalCents - sum; leftover > 0; {
		for _, i := range order {
			if leftover == 0 {
				break
			}

			lines[i].Amount++
			leftover--
		}
	}

	for leftover := sum - totalCents; leftover > 0; {
		for _, i := range slices.Backward(order) {
			if leftover == 0 {
				break
			}

			if lines[i].Amount > 0 {
				lines[i].Amount--
				leftover--
			}
		}
	}

	return lines
}

// SheetFromLines rebuilds an editable sheet from persisted lines. The first
// line booked to the remainder account becomes the remainder; every other
// line is fixed at its stored percent.
func SheetFromLines(totalCents int64, lines []*Line, remainderAccount *uuid.UUID) *Sheet {
	s := NewSheet(decimal.New(totalCents, -2), remainderAccount)

	remainderSeen := false

	for _, l := range lines {
		if !remainderSeen && remainderAccount != nil && l.AccountID == *remainderAccount {
			remainderSeen = true
			if l.Description != "" {
				s.remainder.Description = l.Description
			}

			continue
		}

		accountID := l.AccountID
		id := s.AddRow(l.Description, &accountID)
		_ = s.SetPercent(id, l.Percent)
	}

	return s
}
