package optionchain

import "option-radar/internal/models"

// Half-width bounds accepted from callers, in strikes on each side of ATM.
const (
	MinHalfWidth     = 1
	MaxHalfWidth     = 20
	DefaultHalfWidth = 5
)

// DefaultStrikeStep is the NIFTY strike spacing.
const DefaultStrikeStep = 50.0

// ClampHalfWidth bounds n to [MinHalfWidth, MaxHalfWidth].
func ClampHalfWidth(n int) int {
	if n < MinHalfWidth {
		return MinHalfWidth
	}
	if n > MaxHalfWidth {
		return MaxHalfWidth
	}
	return n
}

// FilterWindow keeps rows of the given expiry whose strike lies within
// atm ± halfWidth*step, both ends inclusive. Expiry matching is an exact
// string comparison. The input slice is not modified.
func FilterWindow(rows []models.ChainRow, atm int64, halfWidth int, expiry string, step float64) []models.ChainRow {
	band := float64(halfWidth) * step
	lo := float64(atm) - band
	hi := float64(atm) + band

	out := make([]models.ChainRow, 0, 2*halfWidth+1)
	for _, r := range rows {
		if r.ExpiryDate != expiry {
			continue
		}
		if r.StrikePrice < lo || r.StrikePrice > hi {
			continue
		}
		out = append(out, r)
	}
	return out
}
