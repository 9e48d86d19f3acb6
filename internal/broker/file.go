package broker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"option-radar/internal/config"
	apperrors "option-radar/internal/errors"
	"option-radar/internal/logging"
	"option-radar/internal/metrics"
	"option-radar/internal/models"
)

// FileSource replays saved chain responses from <dir>/<SYMBOL>.json. The
// files use the same body shape as the live endpoint.
type FileSource struct {
	dir string
	log zerolog.Logger
}

// NewFileSource creates a replay source rooted at dir.
func NewFileSource(dir string, logger zerolog.Logger) *FileSource {
	return &FileSource{dir: dir, log: logging.WithOperation(logger, "file_fetch")}
}

// Name implements ChainSource.
func (f *FileSource) Name() string { return config.SourceFile }

// FetchOptionChain implements ChainSource.
func (f *FileSource) FetchOptionChain(ctx context.Context, symbol string) (*models.OptionChainSnapshot, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(f.dir, sym+".json")
	body, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			err = fmt.Errorf("%w: %w: %s", apperrors.ErrFetchFailed, apperrors.ErrSymbolNotFound, path)
		} else {
			err = fmt.Errorf("%w: %v", apperrors.ErrFetchFailed, err)
		}
		return nil, apperrors.NewFetchError(sym, "read", 0, err)
	}

	info, statErr := os.Stat(path)
	fetchedAt := time.Now()
	if statErr == nil {
		fetchedAt = info.ModTime()
	}

	snap, err := decodeChain(sym, body, fetchedAt)
	if err != nil {
		return nil, err
	}

	f.log.Debug().Str("symbol", sym).Str("path", path).Int("records", len(snap.Records)).Msg("Option chain replayed")
	metrics.IncrementSuccess(sym)
	return snap, nil
}
