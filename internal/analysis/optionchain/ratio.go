package optionchain

import "option-radar/internal/models"

// Aggregate sums open interest per side and returns PE/CE. Absent sides add
// nothing. A zero call total yields a ratio of 0.
func Aggregate(rows []models.SignalRow) models.PutCallRatio {
	var pcr models.PutCallRatio
	for _, r := range rows {
		pcr.TotalCallOI += r.CallOI()
		pcr.TotalPutOI += r.PutOI()
	}
	if pcr.TotalCallOI != 0 {
		pcr.Ratio = float64(pcr.TotalPutOI) / float64(pcr.TotalCallOI)
	}
	return pcr
}

// OISeries returns the per-strike CE/PE open interest bars in row order.
func OISeries(rows []models.SignalRow) []models.OIPoint {
	series := make([]models.OIPoint, 0, len(rows))
	for _, r := range rows {
		series = append(series, models.OIPoint{
			Strike: r.StrikePrice,
			CallOI: r.CallOI(),
			PutOI:  r.PutOI(),
		})
	}
	return series
}
