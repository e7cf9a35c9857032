// Package server exposes the analytics dashboard over HTTP: page snapshots, load,
// refresh and per-source retry, cache reset, and a websocket stream of source changes.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/unkn0wn-root/swrcache"
	"github.com/unkn0wn-root/swrcache/analytics"
	"github.com/unkn0wn-root/swrcache/internal/metrics"
	"github.com/unkn0wn-root/swrcache/multiload"
)

// Loader is the part of the dashboard the server drives.
type Loader interface {
	LoadAll(ctx context.Context, f analytics.Filters) *multiload.Cycle
	Refresh(ctx context.Context, f analytics.Filters) *multiload.Cycle
	Retry(ctx context.Context, name string, f analytics.Filters) (*multiload.Cycle, error)
	ClearCache(ctx context.Context)
	Statuses() []multiload.Status
	Page() multiload.PageState
	Subscribe(buffer int) (<-chan multiload.Event, func())
}

type Options struct {
	Logger      swrcache.Logger
	CORSOrigins []string
	// Metrics, when set, is served at GET /api/analytics/metrics.
	Metrics *metrics.Counters
	// PingInterval keeps websocket streams alive. 0 => 30s.
	PingInterval time.Duration
}

type Server struct {
	loader   Loader
	log      swrcache.Logger
	base     context.Context
	engine   *gin.Engine
	upgrader websocket.Upgrader
	origins  map[string]bool
	ping     time.Duration
	metrics  *metrics.Counters
}

// New builds the router. Load cycles run under base, not under the request that
// started them, so they outlive the HTTP call; cancel base on shutdown.
func New(base context.Context, loader Loader, opts Options) *Server {
	s := &Server{
		loader:  loader,
		log:     opts.Logger,
		base:    base,
		origins: make(map[string]bool, len(opts.CORSOrigins)),
		ping:    opts.PingInterval,
		metrics: opts.Metrics,
	}
	if s.log == nil {
		s.log = swrcache.NopLogger{}
	}
	if s.ping <= 0 {
		s.ping = 30 * time.Second
	}
	for _, o := range opts.CORSOrigins {
		s.origins[o] = true
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Cache-Control"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := r.Group("/api/analytics")
	{
		api.GET("", s.handleSnapshot)
		api.POST("/load", s.handleLoad)
		api.POST("/refresh", s.handleRefresh)
		api.POST("/sources/:name/retry", s.handleRetry)
		api.DELETE("/cache", s.handleClearCache)
		api.GET("/stream", s.handleStream)
		if s.metrics != nil {
			api.GET("/metrics", s.handleMetrics)
		}
	}
	s.engine = r
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return s.origins[origin]
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("http request", swrcache.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
	}
}

// Snapshot is the page-level response of every endpoint that reports state.
type Snapshot struct {
	Cycle   string              `json:"cycle,omitempty"`
	Page    multiload.PageState `json:"page"`
	Sources []multiload.Status  `json:"sources"`
}

func (s *Server) snapshot(cycle string) Snapshot {
	return Snapshot{Cycle: cycle, Page: s.loader.Page(), Sources: s.loader.Statuses()}
}

func (s *Server) handleSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, s.snapshot(""))
}

func (s *Server) bindFilters(c *gin.Context) (analytics.Filters, bool) {
	var f analytics.Filters
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filters: " + err.Error()})
		return f, false
	}
	if err := f.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return f, false
	}
	return f, true
}

func (s *Server) handleLoad(c *gin.Context)    { s.startCycle(c, s.loader.LoadAll) }
func (s *Server) handleRefresh(c *gin.Context) { s.startCycle(c, s.loader.Refresh) }

func (s *Server) startCycle(c *gin.Context, start func(context.Context, analytics.Filters) *multiload.Cycle) {
	f, ok := s.bindFilters(c)
	if !ok {
		return
	}
	s.respond(c, start(s.base, f))
}

func (s *Server) handleRetry(c *gin.Context) {
	f, ok := s.bindFilters(c)
	if !ok {
		return
	}
	cy, err := s.loader.Retry(s.base, c.Param("name"), f)
	if errors.Is(err, multiload.ErrUnknownSource) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.respond(c, cy)
}

// respond answers 202 with the state right after the cycle started, or, with
// ?wait=true, 200 once the cycle settled.
func (s *Server) respond(c *gin.Context, cy *multiload.Cycle) {
	if c.Query("wait") != "true" {
		c.JSON(http.StatusAccepted, s.snapshot(cy.ID))
		return
	}
	if err := cy.Wait(c.Request.Context()); err != nil {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "load still in progress", "cycle": cy.ID})
		return
	}
	c.JSON(http.StatusOK, s.snapshot(cy.ID))
}

func (s *Server) handleClearCache(c *gin.Context) {
	s.loader.ClearCache(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (s *Server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.Snapshot())
}
