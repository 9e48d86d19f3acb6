// Package optionchain derives open-interest signals from an option chain
// snapshot: normalize, locate ATM, filter a strike window, classify, aggregate.
// Every stage is a pure function over a small in-memory table.
package optionchain

import (
	"math"

	"option-radar/internal/models"
)

// Normalize flattens snapshot records into one row per (strike, expiry).
// Row order follows the feed and the expiry list is returned as published.
// Fields missing from a record stay nil on the row.
func Normalize(snapshot *models.OptionChainSnapshot) ([]models.ChainRow, []string) {
	if snapshot == nil {
		return nil, nil
	}

	rows := make([]models.ChainRow, 0, len(snapshot.Records))
	for _, rec := range snapshot.Records {
		row := models.ChainRow{
			StrikePrice: rec.StrikePrice,
			ExpiryDate:  rec.ExpiryDate,
		}
		if ce := rec.CE; ce != nil {
			row.CEOpenInterest = toInt(ce.OpenInterest)
			row.CEChangeInOpenInterest = toInt(ce.ChangeInOpenInterest)
			row.CELastPrice = copyFloat(ce.LastPrice)
			row.CEChange = copyFloat(ce.Change)
			row.CEImpliedVolatility = copyFloat(ce.ImpliedVolatility)
			row.CETotalTradedVolume = toInt(ce.TotalTradedVolume)
			row.CEUnderlyingValue = copyFloat(ce.UnderlyingValue)
		}
		if pe := rec.PE; pe != nil {
			row.PEOpenInterest = toInt(pe.OpenInterest)
			row.PEChangeInOpenInterest = toInt(pe.ChangeInOpenInterest)
			row.PELastPrice = copyFloat(pe.LastPrice)
			row.PEChange = copyFloat(pe.Change)
			row.PEImpliedVolatility = copyFloat(pe.ImpliedVolatility)
			row.PETotalTradedVolume = toInt(pe.TotalTradedVolume)
			row.PEUnderlyingValue = copyFloat(pe.UnderlyingValue)
		}
		rows = append(rows, row)
	}

	return rows, snapshot.ExpiryDates
}

// FieldMap renders a row as SIDE_fieldName columns. Absent fields are omitted.
func FieldMap(row models.ChainRow) map[string]interface{} {
	m := map[string]interface{}{
		"strikePrice": row.StrikePrice,
		"expiryDate":  row.ExpiryDate,
	}
	putInt(m, "CE_openInterest", row.CEOpenInterest)
	putInt(m, "CE_changeinOpenInterest", row.CEChangeInOpenInterest)
	putFloat(m, "CE_lastPrice", row.CELastPrice)
	putFloat(m, "CE_change", row.CEChange)
	putFloat(m, "CE_impliedVolatility", row.CEImpliedVolatility)
	putInt(m, "CE_totalTradedVolume", row.CETotalTradedVolume)
	putFloat(m, "CE_underlyingValue", row.CEUnderlyingValue)
	putInt(m, "PE_openInterest", row.PEOpenInterest)
	putInt(m, "PE_changeinOpenInterest", row.PEChangeInOpenInterest)
	putFloat(m, "PE_lastPrice", row.PELastPrice)
	putFloat(m, "PE_change", row.PEChange)
	putFloat(m, "PE_impliedVolatility", row.PEImpliedVolatility)
	putInt(m, "PE_totalTradedVolume", row.PETotalTradedVolume)
	putFloat(m, "PE_underlyingValue", row.PEUnderlyingValue)
	return m
}

func toInt(v *float64) *int64 {
	if v == nil {
		return nil
	}
	n := int64(math.Round(*v))
	return &n
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}

func putInt(m map[string]interface{}, key string, v *int64) {
	if v != nil {
		m[key] = *v
	}
}

func putFloat(m map[string]interface{}, key string, v *float64) {
	if v != nil {
		m[key] = *v
	}
}
