package models

import "time"

// OptionChainSnapshot is the raw option chain for one underlying at fetch time.
// ExpiryDates keeps the order published by the exchange.
type OptionChainSnapshot struct {
	Symbol      string        `json:"symbol"`
	Timestamp   string        `json:"timestamp,omitempty"`
	ExpiryDates []string      `json:"expiryDates"`
	Records     []ChainRecord `json:"data"`
	FetchedAt   time.Time     `json:"fetchedAt"`
}

// ChainRecord is one (strike, expiry) entry with optional call and put sub-records.
type ChainRecord struct {
	StrikePrice float64   `json:"strikePrice"`
	ExpiryDate  string    `json:"expiryDate"`
	CE          *SideData `json:"CE,omitempty"`
	PE          *SideData `json:"PE,omitempty"`
}

// SideData is the call or put half of a record. Nil fields were not published.
type SideData struct {
	OpenInterest         *float64 `json:"openInterest,omitempty"`
	ChangeInOpenInterest *float64 `json:"changeinOpenInterest,omitempty"`
	LastPrice            *float64 `json:"lastPrice,omitempty"`
	Change               *float64 `json:"change,omitempty"`
	ImpliedVolatility    *float64 `json:"impliedVolatility,omitempty"`
	TotalTradedVolume    *float64 `json:"totalTradedVolume,omitempty"`
	UnderlyingValue      *float64 `json:"underlyingValue,omitempty"`
}

// ChainRow is a flattened ChainRecord. Field names follow the SIDE_fieldName
// convention on the wire; a nil pointer means "no data", never zero.
type ChainRow struct {
	StrikePrice float64 `json:"strikePrice"`
	ExpiryDate  string  `json:"expiryDate"`

	CEOpenInterest         *int64   `json:"CE_openInterest,omitempty"`
	CEChangeInOpenInterest *int64   `json:"CE_changeinOpenInterest,omitempty"`
	CELastPrice            *float64 `json:"CE_lastPrice,omitempty"`
	CEChange               *float64 `json:"CE_change,omitempty"`
	CEImpliedVolatility    *float64 `json:"CE_impliedVolatility,omitempty"`
	CETotalTradedVolume    *int64   `json:"CE_totalTradedVolume,omitempty"`
	CEUnderlyingValue      *float64 `json:"CE_underlyingValue,omitempty"`

	PEOpenInterest         *int64   `json:"PE_openInterest,omitempty"`
	PEChangeInOpenInterest *int64   `json:"PE_changeinOpenInterest,omitempty"`
	PELastPrice            *float64 `json:"PE_lastPrice,omitempty"`
	PEChange               *float64 `json:"PE_change,omitempty"`
	PEImpliedVolatility    *float64 `json:"PE_impliedVolatility,omitempty"`
	PETotalTradedVolume    *int64   `json:"PE_totalTradedVolume,omitempty"`
	PEUnderlyingValue      *float64 `json:"PE_underlyingValue,omitempty"`
}

// CallOIChange returns CE_changeinOpenInterest, or 0 when absent.
func (r ChainRow) CallOIChange() int64 {
	if r.CEChangeInOpenInterest == nil {
		return 0
	}
	return *r.CEChangeInOpenInterest
}

// CallPrice returns CE_lastPrice, or 0 when absent.
func (r ChainRow) CallPrice() float64 {
	if r.CELastPrice == nil {
		return 0
	}
	return *r.CELastPrice
}

// CallOI returns CE_openInterest, or 0 when absent.
func (r ChainRow) CallOI() int64 {
	if r.CEOpenInterest == nil {
		return 0
	}
	return *r.CEOpenInterest
}

// PutOI returns PE_openInterest, or 0 when absent.
func (r ChainRow) PutOI() int64 {
	if r.PEOpenInterest == nil {
		return 0
	}
	return *r.PEOpenInterest
}

// SignalTag labels the joint direction of OI change and price.
type SignalTag string

const (
	SignalLongBuildup   SignalTag = "LongBuildup"
	SignalShortBuildup  SignalTag = "ShortBuildup"
	SignalShortCovering SignalTag = "ShortCovering"
	SignalLongUnwinding SignalTag = "LongUnwinding"
	SignalNone          SignalTag = "None"
)

// AllSignalTags lists every tag in display order.
var AllSignalTags = []SignalTag{
	SignalLongBuildup,
	SignalShortBuildup,
	SignalShortCovering,
	SignalLongUnwinding,
	SignalNone,
}

// Label returns the human-readable tag shown in tables.
func (t SignalTag) Label() string {
	switch t {
	case SignalLongBuildup:
		return "Long Buildup"
	case SignalShortBuildup:
		return "Short Buildup"
	case SignalShortCovering:
		return "Short Covering"
	case SignalLongUnwinding:
		return "Long Unwinding"
	default:
		return "-"
	}
}

// SignalRow is a ChainRow augmented with its signal.
type SignalRow struct {
	ChainRow
	Signal SignalTag `json:"Signal"`
}

// PutCallRatio is the aggregate PE/CE open interest ratio.
type PutCallRatio struct {
	TotalCallOI int64   `json:"totalCallOI"`
	TotalPutOI  int64   `json:"totalPutOI"`
	Ratio       float64 `json:"ratio"`
}

// OIPoint is one bar pair of the CE/PE open interest chart.
type OIPoint struct {
	Strike float64 `json:"strike"`
	CallOI int64   `json:"callOI"`
	PutOI  int64   `json:"putOI"`
}

// SymbolAnalysis is the derived table and ratio for one symbol and expiry.
type SymbolAnalysis struct {
	Symbol     string            `json:"symbol"`
	Expiry     string            `json:"expiry"`
	HalfWidth  int               `json:"halfWidth"`
	StrikeStep float64           `json:"strikeStep"`
	SpotPrice  float64           `json:"spotPrice"`
	ATMStrike  int64             `json:"atmStrike"`
	Rows       []SignalRow       `json:"rows"`
	PCR        PutCallRatio      `json:"pcr"`
	Series     []OIPoint         `json:"series"`
	Counts     map[SignalTag]int `json:"counts"`
}
