// Package models provides domain models for the option radar.
package models

import (
	"time"
)

// MarketStatus represents the current market status.
type MarketStatus string

const (
	MarketOpen    MarketStatus = "OPEN"
	MarketPreOpen MarketStatus = "PRE_OPEN"
	MarketClosed  MarketStatus = "CLOSED"
)

// SymbolView is everything the presentation layer needs for one symbol tab.
// Analysis is nil when the symbol could not be rendered this cycle.
type SymbolView struct {
	Symbol         string          `json:"symbol"`
	Expiries       []string        `json:"expiries"`
	SelectedExpiry string          `json:"selectedExpiry,omitempty"`
	HalfWidth      int             `json:"halfWidth"`
	Analysis       *SymbolAnalysis `json:"analysis,omitempty"`
	Warnings       []string        `json:"warnings,omitempty"`
	FetchedAt      time.Time       `json:"fetchedAt"`
	Elapsed        time.Duration   `json:"elapsed"`
}

// OK reports whether the view carries a rendered analysis.
func (v SymbolView) OK() bool {
	return v.Analysis != nil
}

// Dashboard is the result of one refresh across all configured symbols.
type Dashboard struct {
	RefreshID    string       `json:"refreshId"`
	GeneratedAt  time.Time    `json:"generatedAt"`
	MarketStatus MarketStatus `json:"marketStatus"`
	Symbols      []SymbolView `json:"symbols"`
}

// Symbol returns the view for sym, or nil.
func (d *Dashboard) Symbol(sym string) *SymbolView {
	for i := range d.Symbols {
		if d.Symbols[i].Symbol == sym {
			return &d.Symbols[i]
		}
	}
	return nil
}
