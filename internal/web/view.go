package web

import (
	"strconv"
	"strings"

	"option-radar/internal/analysis/optionchain"
	"option-radar/internal/models"
	"option-radar/internal/radar"
	"option-radar/pkg/utils"
)

const (
	pageTitle   = "Option Radar"
	pageCaption = "Spot the Signals. Track the Trend."
	missing     = "-"
)

type pageData struct {
	Title          string
	Caption        string
	RefreshID      string
	GeneratedAt    string
	MarketStatus   string
	RefreshSeconds int
	MinWidth       int
	MaxWidth       int
	Tabs           []tabView
}

type tabView struct {
	Symbol    string
	Active    bool
	OK        bool
	Warnings  []string
	SpotLine  string
	HalfWidth int
	Expiries  []expiryOption
	Hidden    []hiddenField
	Rows      []rowView
	Counts    []countView
	Chart     barChart
	Elapsed   string
}

type expiryOption struct {
	Value    string
	Selected bool
}

type hiddenField struct {
	Name, Value string
}

type rowView struct {
	Strike      string
	ATM         bool
	CEOI        string
	CEChgOI     string
	CELTP       string
	PEOI        string
	PEChgOI     string
	PELTP       string
	Signal      string
	SignalClass string
}

type countView struct {
	Label string
	Class string
	Count int
}

func expiryParam(symbol string) string { return symbol + "_expiry" }
func widthParam(symbol string) string  { return symbol + "_width" }

// selectionsFromQuery reads <SYMBOL>_expiry and <SYMBOL>_width for every
// configured symbol. Unparseable widths fall back to defaultWidth.
func selectionsFromQuery(symbols []string, defaultWidth int, query func(string) string) []radar.Selection {
	sels := make([]radar.Selection, 0, len(symbols))
	for _, sym := range symbols {
		sel := radar.Selection{
			Symbol:    sym,
			Expiry:    strings.TrimSpace(query(expiryParam(sym))),
			HalfWidth: defaultWidth,
		}
		if w, err := strconv.Atoi(strings.TrimSpace(query(widthParam(sym)))); err == nil {
			sel.HalfWidth = optionchain.ClampHalfWidth(w)
		}
		sels = append(sels, sel)
	}
	return sels
}

func buildPage(dash *models.Dashboard, active string, refreshSeconds int) pageData {
	page := pageData{
		Title:          pageTitle,
		Caption:        pageCaption,
		RefreshID:      dash.RefreshID,
		GeneratedAt:    dash.GeneratedAt.Format("02-Jan-2006 15:04:05 IST"),
		MarketStatus:   string(dash.MarketStatus),
		RefreshSeconds: refreshSeconds,
		MinWidth:       optionchain.MinHalfWidth,
		MaxWidth:       optionchain.MaxHalfWidth,
	}

	if dash.Symbol(active) == nil && len(dash.Symbols) > 0 {
		active = dash.Symbols[0].Symbol
	}

	for _, v := range dash.Symbols {
		tab := tabView{
			Symbol:    v.Symbol,
			Active:    v.Symbol == active,
			OK:        v.OK(),
			Warnings:  v.Warnings,
			HalfWidth: v.HalfWidth,
			Elapsed:   v.Elapsed.Round(1e6).String(),
		}
		for _, e := range v.Expiries {
			tab.Expiries = append(tab.Expiries, expiryOption{Value: e, Selected: e == v.SelectedExpiry})
		}
		for _, other := range dash.Symbols {
			if other.Symbol == v.Symbol {
				continue
			}
			tab.Hidden = append(tab.Hidden,
				hiddenField{Name: expiryParam(other.Symbol), Value: other.SelectedExpiry},
				hiddenField{Name: widthParam(other.Symbol), Value: strconv.Itoa(other.HalfWidth)},
			)
		}

		if a := v.Analysis; a != nil {
			tab.SpotLine = "Spot Price: " + utils.FormatPrice(a.SpotPrice) + " | ATM Strike: " + strconv.FormatInt(a.ATMStrike, 10)
			for _, r := range a.Rows {
				tab.Rows = append(tab.Rows, buildRow(r, a.ATMStrike))
			}
			for _, tag := range models.AllSignalTags {
				tab.Counts = append(tab.Counts, countView{Label: tag.Label(), Class: signalClass(tag), Count: a.Counts[tag]})
			}
			tab.Chart = buildChart(a.Series, a.PCR)
		}
		page.Tabs = append(page.Tabs, tab)
	}
	return page
}

func buildRow(r models.SignalRow, atm int64) rowView {
	return rowView{
		Strike:      utils.FormatStrike(r.StrikePrice),
		ATM:         optionchain.IsATM(r.StrikePrice, atm),
		CEOI:        intCell(r.CEOpenInterest),
		CEChgOI:     intCell(r.CEChangeInOpenInterest),
		CELTP:       priceCell(r.CELastPrice),
		PEOI:        intCell(r.PEOpenInterest),
		PEChgOI:     intCell(r.PEChangeInOpenInterest),
		PELTP:       priceCell(r.PELastPrice),
		Signal:      r.Signal.Label(),
		SignalClass: signalClass(r.Signal),
	}
}

func signalClass(tag models.SignalTag) string {
	return "sig-" + strings.ToLower(string(tag))
}

func intCell(v *int64) string {
	if v == nil {
		return missing
	}
	return utils.FormatIndianNumber(*v)
}

func priceCell(v *float64) string {
	if v == nil {
		return missing
	}
	return utils.FormatPrice(*v)
}
