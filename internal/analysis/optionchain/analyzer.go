package optionchain

import (
	"option-radar/internal/errors"
	"option-radar/internal/models"
)

// Params selects what to derive from a snapshot.
type Params struct {
	Symbol     string
	Expiry     string // empty selects the first published expiry
	HalfWidth  int
	StrikeStep float64
}

// Result is the outcome of Analyze. Warnings are non-fatal notes for the user.
type Result struct {
	Expiries []string
	Analysis *models.SymbolAnalysis
	Warnings []string
}

// Analyze runs the full derivation for one symbol. The returned error is
// non-nil only when no spot price can be located; Result.Expiries is still
// populated in that case so the caller can offer an expiry choice.
func Analyze(snapshot *models.OptionChainSnapshot, p Params) (*Result, error) {
	rows, expiries := Normalize(snapshot)
	res := &Result{Expiries: expiries}

	expiry, err := SelectExpiry(expiries, p.Expiry)
	if err != nil {
		res.Warnings = append(res.Warnings, err.Error())
	}

	step := p.StrikeStep
	if step <= 0 {
		step = DefaultStrikeStep
	}
	halfWidth := ClampHalfWidth(p.HalfWidth)

	atm, spot, err := LocateATM(rows)
	if err != nil {
		var de *errors.DataError
		if errors.As(err, &de) {
			de.Symbol = p.Symbol
		}
		return res, err
	}

	tagged := Classify(FilterWindow(rows, atm, halfWidth, expiry, step))

	res.Analysis = &models.SymbolAnalysis{
		Symbol:     p.Symbol,
		Expiry:     expiry,
		HalfWidth:  halfWidth,
		StrikeStep: step,
		SpotPrice:  spot,
		ATMStrike:  atm,
		Rows:       tagged,
		PCR:        Aggregate(tagged),
		Series:     OISeries(tagged),
		Counts:     CountSignals(tagged),
	}
	return res, nil
}

// SelectExpiry resolves the requested expiry against the published list.
// An empty request picks the first expiry. An unknown one also falls back
// to the first expiry and reports a validation error.
func SelectExpiry(expiries []string, requested string) (string, error) {
	if requested != "" {
		for _, e := range expiries {
			if e == requested {
				return requested, nil
			}
		}
	}
	first := ""
	if len(expiries) > 0 {
		first = expiries[0]
	}
	if requested == "" {
		return first, nil
	}
	return first, errors.NewValidationError("expiry", requested, "not in published expiry list")
}
