package broker

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"option-radar/internal/config"
	apperrors "option-radar/internal/errors"
	"option-radar/internal/logging"
	"option-radar/internal/metrics"
	"option-radar/internal/models"
	"option-radar/internal/resilience"
	"option-radar/pkg/utils"
)

const maxBodyBytes = 16 << 20

// NSESource fetches option chains from the public NSE endpoint. Each fetch
// opens its own cookie session: a landing-page GET seeds the cookies the
// data endpoint insists on, and the jar is dropped when the fetch returns.
type NSESource struct {
	cfg       config.UpstreamConfig
	limiter   *rate.Limiter
	breaker   *resilience.CircuitBreaker
	retry     utils.RetryConfig
	transport http.RoundTripper
	log       zerolog.Logger
}

// NewNSESource creates a live NSE source.
func NewNSESource(cfg config.UpstreamConfig, logger zerolog.Logger) *NSESource {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	log := logging.WithOperation(logger, "nse_fetch")
	s := &NSESource{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     log,
	}

	s.breaker = resilience.NewCircuitBreaker("nse", resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.BreakerFailures,
		SuccessThreshold: 1,
		Cooldown:         cfg.BreakerCooldown,
		OnStateChange: func(name string, from, to resilience.CircuitState) {
			metrics.SetCircuitOpen(name, to == resilience.CircuitOpen)
			log.Warn().Str("breaker", name).Str("from", string(from)).Str("to", string(to)).
				Msg("Upstream circuit changed state")
		},
	})

	s.retry = utils.DefaultRetryConfig()
	if cfg.RetryMinDelay > 0 {
		s.retry.MinDelay = cfg.RetryMinDelay
	}
	if cfg.RetryMaxDelay > 0 {
		s.retry.MaxDelay = cfg.RetryMaxDelay
	}
	s.retry.ShouldRetry = func(err error) bool {
		var fe *apperrors.FetchError
		return errors.As(err, &fe) && fe.StatusCode != 0 && fe.StatusCode != http.StatusOK
	}
	s.retry.OnRetry = func(err error, delay time.Duration) {
		log.Warn().Err(err).Dur("delay", delay).
			Msg("NSE temporarily blocked us. Trying again in a few seconds...")
	}

	return s
}

// Name implements ChainSource.
func (s *NSESource) Name() string { return config.SourceNSE }

// Breaker exposes the upstream circuit breaker for health reporting.
func (s *NSESource) Breaker() *resilience.CircuitBreaker { return s.breaker }

// FetchOptionChain implements ChainSource.
func (s *NSESource) FetchOptionChain(ctx context.Context, symbol string) (*models.OptionChainSnapshot, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	snap, err := resilience.ExecuteWithResult(s.breaker, ctx, func(ctx context.Context) (*models.OptionChainSnapshot, error) {
		return s.fetch(ctx, sym)
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, apperrors.NewFetchError(sym, "breaker", 0, err)
		}
		return nil, err
	}

	metrics.IncrementSuccess(sym)
	return snap, nil
}

func (s *NSESource) fetch(ctx context.Context, symbol string) (*models.OptionChainSnapshot, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, apperrors.NewFetchError(symbol, "bootstrap", 0, fmt.Errorf("%w: %v", apperrors.ErrFetchFailed, err))
	}
	client := &http.Client{Jar: jar, Transport: s.transport}

	// Landing page: only the cookies matter, the status is not checked.
	base := strings.TrimRight(s.cfg.BaseURL, "/")
	if _, _, err := s.get(ctx, client, symbol, "bootstrap", base); err != nil {
		return nil, err
	}

	chainURL := base + s.cfg.ChainPath + "?symbol=" + url.QueryEscape(symbol)
	body, err := utils.RetryOnceWithResult(ctx, s.retry, func() ([]byte, error) {
		body, status, err := s.get(ctx, client, symbol, "chain", chainURL)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, apperrors.NewFetchError(symbol, "chain", status, apperrors.ErrFetchFailed)
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}

	snap, err := decodeChain(symbol, body, time.Now())
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("symbol", symbol).
		Int("records", len(snap.Records)).
		Int("expiries", len(snap.ExpiryDates)).
		Msg("Option chain fetched")
	return snap, nil
}

// get performs one rate-limited GET under the per-request timeout and
// returns the decoded body and status.
func (s *NSESource) get(ctx context.Context, client *http.Client, symbol, stage, target string) ([]byte, int, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, 0, apperrors.NewFetchError(symbol, stage, 0, fmt.Errorf("%w: %v", apperrors.ErrRateLimited, err))
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, apperrors.NewFetchError(symbol, stage, 0, fmt.Errorf("%w: %v", apperrors.ErrFetchFailed, err))
	}
	s.setHeaders(req)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		logging.LogAPICall(s.log, http.MethodGet, target, time.Since(start), err)
		if reqCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, 0, apperrors.NewFetchError(symbol, stage, 0, fmt.Errorf("%w after %s", apperrors.ErrTimeout, s.cfg.Timeout))
		}
		return nil, 0, apperrors.NewFetchError(symbol, stage, 0, fmt.Errorf("%w: %v", apperrors.ErrFetchFailed, err))
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	logging.LogAPICall(s.log, http.MethodGet, target, time.Since(start), err)
	if err != nil {
		return nil, resp.StatusCode, apperrors.NewFetchError(symbol, stage, resp.StatusCode, fmt.Errorf("%w: %v", apperrors.ErrFetchFailed, err))
	}
	return body, resp.StatusCode, nil
}

func (s *NSESource) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Accept-Language", s.cfg.AcceptLanguage)
	req.Header.Set("Referer", s.cfg.Referer)
	req.Header.Set("Connection", "keep-alive")
}

// readBody reads at most maxBodyBytes, inflating gzip bodies. Setting
// Accept-Encoding explicitly turns off the transport's own decompression.
func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	return io.ReadAll(io.LimitReader(r, maxBodyBytes))
}
