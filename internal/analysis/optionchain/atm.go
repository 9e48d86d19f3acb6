package optionchain

import (
	"math"

	"option-radar/internal/errors"
	"option-radar/internal/models"
)

// SpotPrice returns the underlying value carried by the first row with a
// published call price. A row whose call side lacks the underlying value
// falls back to the first underlying value anywhere in the table.
func SpotPrice(rows []models.ChainRow) (float64, error) {
	anchor := -1
	for i, r := range rows {
		if r.CELastPrice != nil {
			anchor = i
			break
		}
	}
	if anchor < 0 {
		return 0, errors.NewDataError("spot", "", "no row carries a call-side price", errors.ErrNoUnderlyingData)
	}
	if v := rows[anchor].CEUnderlyingValue; v != nil {
		return *v, nil
	}

	for _, r := range rows {
		if r.CEUnderlyingValue != nil {
			return *r.CEUnderlyingValue, nil
		}
	}
	for _, r := range rows {
		if r.PEUnderlyingValue != nil {
			return *r.PEUnderlyingValue, nil
		}
	}
	return 0, errors.NewDataError("spot", "", "no row carries an underlying value", errors.ErrNoUnderlyingData)
}

// LocateATM returns the strike nearest to spot and the spot itself.
// Ties keep the first row in input order. Strikes are integral in this
// market so the result is rounded to the nearest unit.
func LocateATM(rows []models.ChainRow) (int64, float64, error) {
	spot, err := SpotPrice(rows)
	if err != nil {
		return 0, 0, err
	}

	best := 0
	bestDist := math.Inf(1)
	for i, r := range rows {
		if d := math.Abs(r.StrikePrice - spot); d < bestDist {
			best, bestDist = i, d
		}
	}

	return int64(math.Round(rows[best].StrikePrice)), spot, nil
}

// IsATM reports whether strike is the row LocateATM picked as atm.
func IsATM(strike float64, atm int64) bool {
	return int64(math.Round(strike)) == atm
}
