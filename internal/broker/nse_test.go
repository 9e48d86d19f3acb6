package broker

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"option-radar/internal/config"
	apperrors "option-radar/internal/errors"
)

const chainBody = `{
  "records": {
    "expiryDates": ["28-Dec-2023", "04-Jan-2024"],
    "timestamp": "22-Dec-2023 15:30:00",
    "underlyingValue": 18012.4,
    "data": [
      {"strikePrice": 17950, "expiryDate": "28-Dec-2023",
       "CE": {"openInterest": 1200, "changeinOpenInterest": 150, "lastPrice": 110.5, "underlyingValue": 18012.4},
       "PE": {"openInterest": 2100, "changeinOpenInterest": -30, "lastPrice": 40.2, "underlyingValue": 18012.4}},
      {"strikePrice": 18000, "expiryDate": "28-Dec-2023",
       "CE": {"openInterest": 3000, "changeinOpenInterest": -200, "lastPrice": 75, "underlyingValue": 18012.4},
       "PE": {"openInterest": 2500, "changeinOpenInterest": 80, "lastPrice": 62, "underlyingValue": 18012.4}}
    ]
  },
  "filtered": {"data": []}
}`

func testUpstream(baseURL string) config.UpstreamConfig {
	cfg := config.Default().Upstream
	cfg.BaseURL = baseURL
	cfg.Timeout = 2 * time.Second
	cfg.RetryMinDelay = time.Millisecond
	cfg.RetryMaxDelay = 2 * time.Millisecond
	cfg.RequestsPerSecond = 1000
	cfg.Burst = 10
	return cfg
}

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// nseServer mimics the vendor: the chain endpoint refuses requests without
// the landing-page cookie, and the first `blocked` chain calls get a 403.
type nseServer struct {
	blocked    int32
	chainCalls int32
	landing    int32
	body       []byte
	gzip       bool
	delay      time.Duration
}

func (n *nseServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&n.landing, 1)
		http.SetCookie(w, &http.Cookie{Name: "nsit", Value: "abc", Path: "/"})
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/option-chain-indices", func(w http.ResponseWriter, r *http.Request) {
		call := atomic.AddInt32(&n.chainCalls, 1)
		if n.delay > 0 {
			time.Sleep(n.delay)
		}
		if _, err := r.Cookie("nsit"); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("User-Agent") == "" || r.Header.Get("Referer") == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.URL.Query().Get("symbol") != "NIFTY" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if call <= atomic.LoadInt32(&n.blocked) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if n.gzip {
			w.Header().Set("Content-Encoding", "gzip")
			_, _ = w.Write(gzipped(t, string(n.body)))
			return
		}
		_, _ = w.Write(n.body)
	})
	return mux
}

func startNSE(t *testing.T, n *nseServer) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(n.handler(t))
	t.Cleanup(srv.Close)
	return srv
}

func TestNSESourceCookieHandshake(t *testing.T) {
	n := &nseServer{body: []byte(chainBody), gzip: true}
	srv := startNSE(t, n)

	src := NewNSESource(testUpstream(srv.URL), zerolog.Nop())
	snap, err := src.FetchOptionChain(context.Background(), "nifty")
	if err != nil {
		t.Fatalf("FetchOptionChain: %v", err)
	}

	if snap.Symbol != "NIFTY" {
		t.Errorf("symbol = %s", snap.Symbol)
	}
	if len(snap.ExpiryDates) != 2 || snap.ExpiryDates[0] != "28-Dec-2023" {
		t.Errorf("expiries = %v", snap.ExpiryDates)
	}
	if len(snap.Records) != 2 || *snap.Records[1].CE.ChangeInOpenInterest != -200 {
		t.Errorf("records not decoded: %+v", snap.Records)
	}
	if atomic.LoadInt32(&n.landing) != 1 || atomic.LoadInt32(&n.chainCalls) != 1 {
		t.Errorf("landing=%d chain=%d, want 1/1", atomic.LoadInt32(&n.landing), atomic.LoadInt32(&n.chainCalls))
	}
}

func TestNSESourceFreshSessionPerFetch(t *testing.T) {
	n := &nseServer{body: []byte(chainBody)}
	srv := startNSE(t, n)
	src := NewNSESource(testUpstream(srv.URL), zerolog.Nop())

	for i := 0; i < 2; i++ {
		if _, err := src.FetchOptionChain(context.Background(), "NIFTY"); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&n.landing); got != 2 {
		t.Errorf("landing page hits = %d, want one per fetch", got)
	}
}

func TestNSESourceRetriesOnce(t *testing.T) {
	n := &nseServer{body: []byte(chainBody), blocked: 1}
	srv := startNSE(t, n)
	src := NewNSESource(testUpstream(srv.URL), zerolog.Nop())

	if _, err := src.FetchOptionChain(context.Background(), "NIFTY"); err != nil {
		t.Fatalf("retry should succeed: %v", err)
	}
	if got := atomic.LoadInt32(&n.chainCalls); got != 2 {
		t.Errorf("chain calls = %d, want 2", got)
	}
}

func TestNSESourceFailsAfterOneRetry(t *testing.T) {
	n := &nseServer{body: []byte(chainBody), blocked: 10}
	srv := startNSE(t, n)
	src := NewNSESource(testUpstream(srv.URL), zerolog.Nop())

	_, err := src.FetchOptionChain(context.Background(), "NIFTY")
	if apperrors.Kind(err) != apperrors.KindFetchFailure {
		t.Fatalf("kind = %s (%v), want FetchFailure", apperrors.Kind(err), err)
	}
	var fe *apperrors.FetchError
	if !errors.As(err, &fe) || fe.StatusCode != http.StatusForbidden {
		t.Errorf("want FetchError with 403, got %v", err)
	}
	if got := atomic.LoadInt32(&n.chainCalls); got != 2 {
		t.Errorf("chain calls = %d, want exactly 2", got)
	}
}

func TestNSESourceCancelledDuringRetryWait(t *testing.T) {
	n := &nseServer{body: []byte(chainBody), blocked: 10}
	srv := startNSE(t, n)
	cfg := testUpstream(srv.URL)
	cfg.RetryMinDelay = time.Hour
	cfg.RetryMaxDelay = time.Hour
	src := NewNSESource(cfg, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err := src.FetchOptionChain(ctx, "NIFTY")
	if apperrors.Kind(err) != apperrors.KindFetchFailure {
		t.Fatalf("kind = %s (%v), want FetchFailure", apperrors.Kind(err), err)
	}
	var fe *apperrors.FetchError
	if !errors.As(err, &fe) || fe.StatusCode != http.StatusForbidden {
		t.Errorf("first attempt's 403 should survive the abandoned retry, got %v", err)
	}
	if got := atomic.LoadInt32(&n.chainCalls); got != 1 {
		t.Errorf("chain calls = %d, want 1", got)
	}
}

func TestNSESourceMalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>Access Denied</html>"},
		{"empty object", "{}"},
		{"missing data", `{"records": {"expiryDates": ["28-Dec-2023"]}}`},
		{"missing expiries", `{"records": {"data": []}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &nseServer{body: []byte(tt.body)}
			srv := startNSE(t, n)
			src := NewNSESource(testUpstream(srv.URL), zerolog.Nop())

			_, err := src.FetchOptionChain(context.Background(), "NIFTY")
			if apperrors.Kind(err) != apperrors.KindMalformed {
				t.Fatalf("kind = %s (%v), want Malformed", apperrors.Kind(err), err)
			}
			if got := atomic.LoadInt32(&n.chainCalls); got != 1 {
				t.Errorf("malformed 200 responses must not be retried, calls = %d", got)
			}
		})
	}
}

func TestNSESourceTimeout(t *testing.T) {
	n := &nseServer{body: []byte(chainBody), delay: 300 * time.Millisecond}
	srv := startNSE(t, n)
	cfg := testUpstream(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	src := NewNSESource(cfg, zerolog.Nop())

	_, err := src.FetchOptionChain(context.Background(), "NIFTY")
	if !errors.Is(err, apperrors.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if apperrors.Kind(err) != apperrors.KindFetchFailure {
		t.Errorf("timeout should classify as fetch failure")
	}
}

func TestNSESourceBreakerFailsFast(t *testing.T) {
	n := &nseServer{body: []byte(chainBody), blocked: 100}
	srv := startNSE(t, n)
	cfg := testUpstream(srv.URL)
	cfg.BreakerFailures = 1
	cfg.BreakerCooldown = time.Hour
	src := NewNSESource(cfg, zerolog.Nop())

	_, _ = src.FetchOptionChain(context.Background(), "NIFTY")
	calls := atomic.LoadInt32(&n.chainCalls)

	_, err := src.FetchOptionChain(context.Background(), "NIFTY")
	if !errors.Is(err, apperrors.ErrCircuitOpen) {
		t.Fatalf("err = %v, want circuit open", err)
	}
	if atomic.LoadInt32(&n.chainCalls) != calls {
		t.Error("open breaker must not reach the upstream")
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "NIFTY.json"), []byte(chainBody), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "BANKNIFTY.json"), []byte("[]"), 0644); err != nil {
		t.Fatal(err)
	}
	src := NewFileSource(dir, zerolog.Nop())
	ctx := context.Background()

	snap, err := src.FetchOptionChain(ctx, " nifty ")
	if err != nil {
		t.Fatalf("FetchOptionChain: %v", err)
	}
	if len(snap.Records) != 2 || snap.FetchedAt.IsZero() {
		t.Errorf("unexpected snapshot: %+v", snap)
	}

	if _, err := src.FetchOptionChain(ctx, "BANKNIFTY"); apperrors.Kind(err) != apperrors.KindMalformed {
		t.Errorf("array body: kind = %s, want Malformed", apperrors.Kind(err))
	}

	_, err = src.FetchOptionChain(ctx, "FINNIFTY")
	if apperrors.Kind(err) != apperrors.KindFetchFailure || !errors.Is(err, apperrors.ErrSymbolNotFound) {
		t.Errorf("missing file: %v", err)
	}

	if _, err := src.FetchOptionChain(ctx, "../etc"); !errors.Is(err, apperrors.ErrInputValidation) {
		t.Errorf("path-like symbol should be rejected, got %v", err)
	}
}

func TestNewSelectsSource(t *testing.T) {
	cfg := config.Default()
	src, err := New(cfg, zerolog.Nop())
	if err != nil || src.Name() != config.SourceNSE {
		t.Fatalf("default source = %v, %v", src, err)
	}

	cfg.Radar.Source = config.SourceFile
	if src, _ := New(cfg, zerolog.Nop()); src.Name() != config.SourceFile {
		t.Errorf("file source not selected")
	}

	cfg.Radar.Source = "kite"
	if _, err := New(cfg, zerolog.Nop()); !errors.Is(err, apperrors.ErrConfigInvalid) {
		t.Errorf("unknown source should fail, got %v", err)
	}
}
