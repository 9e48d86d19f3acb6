// Package broker provides the option chain data sources.
package broker

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"option-radar/internal/config"
	apperrors "option-radar/internal/errors"
	"option-radar/internal/models"
)

// ChainSource fetches one option chain snapshot per call. Implementations
// keep no session state between calls.
type ChainSource interface {
	FetchOptionChain(ctx context.Context, symbol string) (*models.OptionChainSnapshot, error)
	Name() string
}

// New builds the source selected by cfg.Radar.Source.
func New(cfg *config.Config, logger zerolog.Logger) (ChainSource, error) {
	switch cfg.Radar.Source {
	case config.SourceNSE:
		return NewNSESource(cfg.Upstream, logger), nil
	case config.SourceFile:
		return NewFileSource(cfg.Radar.FixtureDir, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown source %q", apperrors.ErrConfigInvalid, cfg.Radar.Source)
	}
}

// NormalizeSymbol upper-cases and trims a symbol, rejecting blanks.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return "", apperrors.NewValidationError("symbol", symbol, "symbol is required")
	}
	if strings.ContainsAny(s, "/\\. ") {
		return "", apperrors.NewValidationError("symbol", symbol, "symbol contains invalid characters")
	}
	return s, nil
}
