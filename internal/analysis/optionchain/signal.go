package optionchain

import "option-radar/internal/models"

// ClassifySignal tags a row from its call side only:
//
//	ΔOI > 0, price > 0  long buildup
//	ΔOI > 0, price < 0  short buildup
//	ΔOI < 0, price > 0  short covering
//	ΔOI < 0, price < 0  long unwinding
//
// Missing fields count as 0, so a row without call data is always None.
// The price test is on CE_lastPrice as published, not on a price change.
func ClassifySignal(row models.ChainRow) models.SignalTag {
	oiChange := row.CallOIChange()
	price := row.CallPrice()

	switch {
	case oiChange > 0 && price > 0:
		return models.SignalLongBuildup
	case oiChange > 0 && price < 0:
		return models.SignalShortBuildup
	case oiChange < 0 && price > 0:
		return models.SignalShortCovering
	case oiChange < 0 && price < 0:
		return models.SignalLongUnwinding
	default:
		return models.SignalNone
	}
}

// Classify returns a new table with every row tagged.
func Classify(rows []models.ChainRow) []models.SignalRow {
	out := make([]models.SignalRow, len(rows))
	for i, r := range rows {
		out[i] = models.SignalRow{ChainRow: r, Signal: ClassifySignal(r)}
	}
	return out
}

// CountSignals tallies rows per tag. Every tag is present in the result.
func CountSignals(rows []models.SignalRow) map[models.SignalTag]int {
	counts := make(map[models.SignalTag]int, len(models.AllSignalTags))
	for _, t := range models.AllSignalTags {
		counts[t] = 0
	}
	for _, r := range rows {
		counts[r.Signal]++
	}
	return counts
}
