// Package radar runs the fetch → analyze → view cycle for every configured
// symbol. A failure in one symbol is contained in that symbol's view.
package radar

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"option-radar/internal/analysis/optionchain"
	"option-radar/internal/broker"
	"option-radar/internal/config"
	apperrors "option-radar/internal/errors"
	"option-radar/internal/logging"
	"option-radar/internal/metrics"
	"option-radar/internal/models"
	"option-radar/pkg/utils"
)

// Warning texts shown next to a symbol that could not be rendered.
const (
	WarnFetchFailed  = "Failed to fetch data from NSE."
	WarnNoUnderlying = "No underlying price in the option chain; table skipped."
	WarnUnexpected   = "Unexpected error while processing the option chain."
)

// Selection is the user's choice for one symbol tab. Zero values pick the
// first expiry and the configured default half-width.
type Selection struct {
	Symbol    string `json:"symbol"`
	Expiry    string `json:"expiry,omitempty"`
	HalfWidth int    `json:"halfWidth,omitempty"`
}

// Service refreshes dashboards from a ChainSource.
type Service struct {
	source broker.ChainSource
	cfg    *config.Config
	log    zerolog.Logger
	now    func() time.Time

	mu          sync.RWMutex
	latest      *models.Dashboard
	lastSuccess time.Time
}

// NewService creates a refresh service.
func NewService(source broker.ChainSource, cfg *config.Config, logger zerolog.Logger) *Service {
	return &Service{
		source: source,
		cfg:    cfg,
		log:    logging.WithOperation(logger, "refresh"),
		now:    time.Now,
	}
}

// DefaultSelections returns one selection per configured symbol.
func (s *Service) DefaultSelections() []Selection {
	sels := make([]Selection, 0, len(s.cfg.Radar.Symbols))
	for _, sym := range s.cfg.Radar.Symbols {
		sels = append(sels, Selection{Symbol: sym, HalfWidth: s.cfg.Radar.DefaultHalfWidth})
	}
	return sels
}

// Refresh processes every selection in order and returns the dashboard.
// It always returns a dashboard; per-symbol failures surface as warnings.
func (s *Service) Refresh(ctx context.Context, sels []Selection) *models.Dashboard {
	start := s.now()
	refreshID := uuid.NewString()
	log := logging.WithRefreshID(s.log, refreshID)

	dash := &models.Dashboard{
		RefreshID:    refreshID,
		GeneratedAt:  utils.InIST(start),
		MarketStatus: utils.MarketStatusAt(start),
		Symbols:      make([]models.SymbolView, 0, len(sels)),
	}

	ok := 0
	for _, sel := range sels {
		view := s.refreshSymbol(ctx, log, sel)
		if view.OK() {
			ok++
		}
		dash.Symbols = append(dash.Symbols, view)
	}

	elapsed := s.now().Sub(start)
	metrics.ObserveRefresh(elapsed)
	log.Info().
		Int("symbols", len(sels)).
		Int("rendered", ok).
		Str("market", string(dash.MarketStatus)).
		Dur("elapsed", elapsed).
		Msg("Dashboard refreshed")

	s.mu.Lock()
	s.latest = dash
	if ok > 0 {
		s.lastSuccess = start
	}
	s.mu.Unlock()

	return dash
}

// RefreshSymbol runs the pipeline for a single selection.
func (s *Service) RefreshSymbol(ctx context.Context, sel Selection) models.SymbolView {
	return s.refreshSymbol(ctx, logging.WithRefreshID(s.log, uuid.NewString()), sel)
}

func (s *Service) refreshSymbol(ctx context.Context, log zerolog.Logger, sel Selection) models.SymbolView {
	start := s.now()
	symbol := strings.ToUpper(strings.TrimSpace(sel.Symbol))
	log = logging.WithSymbol(log, symbol)

	halfWidth := sel.HalfWidth
	if halfWidth == 0 {
		halfWidth = s.cfg.Radar.DefaultHalfWidth
	}
	view := models.SymbolView{
		Symbol:    symbol,
		Expiries:  []string{},
		HalfWidth: optionchain.ClampHalfWidth(halfWidth),
		FetchedAt: utils.InIST(start),
	}

	snap, err := s.source.FetchOptionChain(ctx, symbol)
	if err != nil {
		kind := apperrors.Kind(err)
		metrics.IncrementError(symbol, string(kind))
		log.Error().Err(err).Str("kind", string(kind)).Msg("Option chain fetch failed")
		view.Warnings = append(view.Warnings, warningFor(kind))
		view.Elapsed = s.now().Sub(start)
		return view
	}

	res, err := optionchain.Analyze(snap, optionchain.Params{
		Symbol:     symbol,
		Expiry:     sel.Expiry,
		HalfWidth:  halfWidth,
		StrikeStep: s.cfg.StrikeStepFor(symbol),
	})
	if res != nil {
		view.Expiries = append(view.Expiries, res.Expiries...)
		view.Warnings = append(view.Warnings, res.Warnings...)
	}
	if err != nil {
		kind := apperrors.Kind(err)
		metrics.IncrementError(symbol, string(kind))
		log.Warn().Err(err).Str("kind", string(kind)).Msg("Option chain not rendered")
		view.Warnings = append(view.Warnings, warningFor(kind))
		view.Elapsed = s.now().Sub(start)
		return view
	}

	a := res.Analysis
	view.SelectedExpiry = a.Expiry
	view.HalfWidth = a.HalfWidth
	view.Analysis = a
	if len(a.Rows) == 0 {
		view.Warnings = append(view.Warnings, fmt.Sprintf("No strikes within ±%d of ATM %d for %s.", a.HalfWidth, a.ATMStrike, a.Expiry))
	}

	metrics.ObserveAnalysis(symbol, a.SpotPrice, a.PCR.Ratio)
	logging.LogAnalysis(log, symbol, a.Expiry, a.ATMStrike, len(a.Rows), a.PCR.Ratio)
	view.Elapsed = s.now().Sub(start)
	return view
}

func warningFor(kind apperrors.ErrorKind) string {
	switch kind {
	case apperrors.KindFetchFailure, apperrors.KindMalformed:
		return WarnFetchFailed
	case apperrors.KindNoUnderlyingData:
		return WarnNoUnderlying
	default:
		return WarnUnexpected
	}
}

// Latest returns the most recent dashboard, or nil before the first refresh.
func (s *Service) Latest() *models.Dashboard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// LastSuccess returns when a refresh last rendered at least one symbol.
func (s *Service) LastSuccess() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSuccess
}
