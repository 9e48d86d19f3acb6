// Package web serves the Option Radar dashboard: an HTML page with one tab
// per symbol, JSON endpoints, a websocket feed, health and metrics.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"option-radar/internal/analysis/optionchain"
	"option-radar/internal/broker"
	"option-radar/internal/config"
	apperrors "option-radar/internal/errors"
	"option-radar/internal/logging"
	"option-radar/internal/metrics"
	"option-radar/internal/radar"
	"option-radar/internal/resilience"
)

//go:embed templates/*.tmpl
var embeddedFS embed.FS

const defaultPort = "8501"

// Server hosts the gin-powered dashboard.
type Server struct {
	cfg        *config.Config
	address    string
	svc        *radar.Service
	health     *resilience.HealthMonitor
	log        zerolog.Logger
	upgrader   websocket.Upgrader
	httpServer *http.Server
}

// NewServer constructs a dashboard server for svc.
func NewServer(cfg *config.Config, svc *radar.Service, health *resilience.HealthMonitor, logger zerolog.Logger) *Server {
	if health == nil {
		health = resilience.NewHealthMonitor()
	}
	return &Server{
		cfg:     cfg,
		address: normalizeAddress(cfg.Server.ListenAddr),
		svc:     svc,
		health:  health,
		log:     logging.WithOperation(logger, "web"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// Address reports the network address the dashboard listens on.
func (s *Server) Address() string {
	return s.address
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// server exits with an error.
func (s *Server) Run(ctx context.Context) error {
	router, err := s.buildRouter()
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:              s.address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.log.Info().Str("address", s.address).Msg("Dashboard listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) buildRouter() (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	tmpl := template.Must(template.New("dashboard").Funcs(template.FuncMap{
		"add": func(a, b float64) float64 { return a + b },
	}).ParseFS(embeddedFS, "templates/index.tmpl"))
	router.SetHTMLTemplate(tmpl)

	router.GET("/", s.handleIndex)
	router.GET("/api/dashboard", s.handleDashboard)
	router.GET("/api/chain/:symbol", s.handleChain)
	router.GET("/ws", s.handleWebsocket)
	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	return router, nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("HTTP request")
	}
}

func (s *Server) selections(c *gin.Context) []radar.Selection {
	return selectionsFromQuery(s.cfg.Radar.Symbols, s.cfg.Radar.DefaultHalfWidth, c.Query)
}

func (s *Server) handleIndex(c *gin.Context) {
	dash := s.svc.Refresh(c.Request.Context(), s.selections(c))
	active := strings.ToUpper(c.Query("tab"))
	c.HTML(http.StatusOK, "index.tmpl", buildPage(dash, active, int(s.cfg.Radar.RefreshInterval/time.Second)))
}

func (s *Server) handleDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Refresh(c.Request.Context(), s.selections(c)))
}

func (s *Server) handleChain(c *gin.Context) {
	symbol, err := broker.NormalizeSymbol(c.Param("symbol"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sel := radar.Selection{
		Symbol:    symbol,
		Expiry:    c.Query("expiry"),
		HalfWidth: s.cfg.Radar.DefaultHalfWidth,
	}
	if raw := c.Query("width"); raw != "" {
		w, err := strconv.Atoi(raw)
		if err != nil || w < optionchain.MinHalfWidth || w > optionchain.MaxHalfWidth {
			verr := apperrors.NewValidationError("width", raw, "must be an integer between 1 and 20")
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		sel.HalfWidth = w
	}

	c.JSON(http.StatusOK, s.svc.RefreshSymbol(c.Request.Context(), sel))
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := healthResponse{SystemHealth: s.health.Check(c.Request.Context())}
	if latest := s.svc.Latest(); latest != nil {
		resp.LastRefreshID = latest.RefreshID
	}
	status := http.StatusOK
	if resp.Status == resilience.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

type healthResponse struct {
	resilience.SystemHealth
	LastRefreshID string `json:"lastRefreshId,omitempty"`
}

// wsRequest lets a client change its selections on the live feed.
type wsRequest struct {
	Selections []radar.Selection `json:"selections"`
}

// handleWebsocket pushes a fresh dashboard on connect and then every
// refresh interval. Each connection refreshes on its own schedule.
func (s *Server) handleWebsocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	updates := make(chan []radar.Selection, 1)
	go func() {
		defer cancel()
		for {
			var req wsRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if len(req.Selections) == 0 {
				continue
			}
			select {
			case updates <- req.Selections:
			case <-ctx.Done():
				return
			}
		}
	}()

	sels := s.selections(c)
	interval := s.cfg.Radar.RefreshInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		dash := s.svc.Refresh(ctx, sels)
		if ctx.Err() != nil {
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(dash); err != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case sels = <-updates:
		case <-ticker.C:
		}
	}
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)

	if addr == "" {
		return "127.0.0.1:" + defaultPort
	}

	if strings.Contains(addr, "://") {
		if parsed, err := url.Parse(addr); err == nil {
			if host := parsed.Host; host != "" {
				addr = host
			} else if parsed.Opaque != "" {
				addr = parsed.Opaque
			}
		}
	}

	if strings.HasPrefix(addr, ":") {
		if len(addr) > 1 && addr[1] >= '0' && addr[1] <= '9' {
			return "0.0.0.0" + addr
		}
	}

	host, port, err := net.SplitHostPort(addr)
	if err == nil {
		if host == "" || host == "*" {
			host = "0.0.0.0"
		}
		if port == "" {
			port = defaultPort
		}
		return net.JoinHostPort(host, port)
	}

	if ip := net.ParseIP(addr); ip != nil {
		return net.JoinHostPort(addr, defaultPort)
	}

	if !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, defaultPort)
	}

	return addr
}
