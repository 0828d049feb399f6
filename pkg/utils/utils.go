package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultEpsilon is the tolerance under which a loan counts as fully repaid.
var DefaultEpsilon = decimal.RequireFromString("0.01")

// NormalizeParty case-folds and trims an account identifier.
// All identity comparisons go through this function.
func NormalizeParty(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// SameParty compares two identifiers case-insensitively.
func SameParty(a, b string) bool {
	return NormalizeParty(a) == NormalizeParty(b)
}

// ReachesTotal reports whether paid is within epsilon of (or beyond) total.
func ReachesTotal(paid, total, epsilon decimal.Decimal) bool {
	return paid.GreaterThanOrEqual(total.Sub(epsilon))
}

// Outstanding returns total - paid, floored at zero.
func Outstanding(total, paid decimal.Decimal) decimal.Decimal {
	out := total.Sub(paid)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

