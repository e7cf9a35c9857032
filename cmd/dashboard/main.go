// Command dashboard serves the CRM advanced analytics page: six independently cached
// sources loaded in parallel, revalidated against the analytics API, and streamed to
// the browser over a websocket.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/unkn0wn-root/swrcache"
	"github.com/unkn0wn-root/swrcache/analytics"
	"github.com/unkn0wn-root/swrcache/analytics/httpapi"
	asynchook "github.com/unkn0wn-root/swrcache/hooks/async"
	"github.com/unkn0wn-root/swrcache/internal/config"
	"github.com/unkn0wn-root/swrcache/internal/metrics"
	"github.com/unkn0wn-root/swrcache/provider/ristretto"
	"github.com/unkn0wn-root/swrcache/server"
	"github.com/unkn0wn-root/swrcache/sloghooks"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "dashboard:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(analytics.AllSources)
	if err != nil {
		return err
	}

	logs, err := newLogging(cfg.LogBackend, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logs.sync()
	log := logs.cache

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := openProvider(ctx, cfg)
	if err != nil {
		return err
	}

	hooks := asynchook.New(sloghooks.New(logs.hooks, sloghooks.Options{FaultEvery: 10}), 1, 256)
	defer hooks.Close()

	counters := metrics.New()
	if rp, ok := p.(*ristretto.Provider); ok {
		counters.OnSnapshot(rp.Report)
	}
	api := httpapi.New(cfg.APIBaseURL,
		httpapi.WithBearerToken(cfg.APIToken),
		httpapi.WithHTTPClient(&http.Client{Timeout: cfg.APITimeout}),
	)

	dash, err := analytics.NewDashboard(api, analytics.Config{
		Provider:       p,
		SchemaVersion:  cfg.SchemaVersion,
		Logger:         log,
		Hooks:          hooks,
		Stats:          counters,
		TTLs:           cfg.TTLs,
		Codec:          cfg.Codec,
		MaxEntryBytes:  cfg.MaxEntryBytes,
		MaxConcurrency: cfg.MaxConcurrency,
		FoldFilters:    cfg.FoldFilters,
		DisableCache:   cfg.DisableCache,
	})
	if err != nil {
		_ = p.Close(ctx)
		return err
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: server.New(ctx, dash, server.Options{
			Logger:      log,
			CORSOrigins: cfg.CORSOrigins,
			Metrics:     counters,
		}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting http server", swrcache.Fields{
			"addr": srv.Addr, "provider": cfg.Provider, "codec": cfg.Codec,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-shutdown:
		log.Info("shutdown signal received", nil)
	case err := <-serveErr:
		if err != nil {
			log.Error("http server failed", swrcache.Fields{"err": err})
		}
	}

	// stops in-flight cycles and websocket streams
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown", swrcache.Fields{"err": err})
	}
	if err := dash.Close(shutdownCtx); err != nil {
		log.Error("closing dashboard", swrcache.Fields{"err": err})
		return err
	}
	log.Info("stopped", swrcache.Fields{"dropped_hook_events": hooks.Dropped()})
	return nil
}
