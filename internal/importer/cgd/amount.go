package cgd

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var errEmptyAmount = errors.New("empty amount")

var hundred = decimal.NewFromInt(100)

// parseEuropeanAmount turns "1.234,56" style amounts into cents.
func parseEuropeanAmount(s string) (int64, error) {
	if s == "" {
		return 0, errEmptyAmount
	}

	clean := strings.NewReplacer(".", "", ",", ".", " ", "").Replace(s)

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, err
	}

	return d.Mul(hundred).Round(0).IntPart(), nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}

	return n
}
