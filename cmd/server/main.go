package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	httpadapter "trustlens/internal/adapters/http"
	"trustlens/internal/adapters/store"
	"trustlens/internal/analyzer"
	"trustlens/internal/config"
	"trustlens/internal/logging"
	"trustlens/internal/probes"
	"trustlens/internal/services/analysis"
	"trustlens/internal/services/blog"
	"trustlens/internal/services/reviews"
	"trustlens/internal/workers/refresher"
)

func main() {
	cfg, err := config.Load()
	logging.Setup(cfg.LogLevel, cfg.Development())
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	errLog := logging.NewErrLogChain(logging.NewZeroLogger(map[string]string{"app": "trustlens"}))
	if cfg.SentryDSN != "" {
		hub, err := logging.NewSentryHub(cfg.SentryDSN, cfg.Env)
		if err != nil {
			log.Fatal().Err(err).Msg("sentry init")
		}
		errLog.Add(hub.GetLogger(map[string]string{"app": "trustlens"}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("store init")
	}
	defer st.Close()

	clock := clockwork.NewRealClock()
	runner := &probes.Runner{
		DNS:     probes.NewDNSResolver(cfg.DNSResolver, cfg.ProbeTimeout),
		Web:     probes.NewWebProber(cfg.ProbeTimeout),
		Whois:   probes.NewWhoisProber(cfg.ProbeTimeout, cfg.WhoisCacheSize, cfg.WhoisCacheTTL),
		Timeout: cfg.ProbeTimeout,
	}
	analyses := analysis.New(st, st, analyzer.New(runner), analysis.Options{
		StaleAfter:    cfg.StaleAfter,
		MaxConcurrent: cfg.MaxConcurrentAnalyses,
		Clock:         clock,
		ErrLogger:     errLog,
	})

	srv := httpadapter.New(analyses, reviews.New(st, st, clock), blog.New(st), errLog)
	r := chi.NewRouter()
	r.Mount("/", srv.Routes())

	// optional background refresh of stale records
	workers := refresher.Run(ctx, st, analyses, refresher.Options{
		Workers:    cfg.RefreshWorkers,
		Interval:   cfg.RefreshInterval,
		StaleAfter: cfg.StaleAfter,
		Clock:      clock,
		ErrLogger:  errLog,
	})
	if cfg.RefreshWorkers > 0 {
		log.Info().Int("workers", cfg.RefreshWorkers).Dur("interval", cfg.RefreshInterval).Msg("refresh workers started")
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()
	log.Info().Str("addr", cfg.ListenAddr).Str("store", cfg.StoreDriver).Msg("listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	cancel()
	workers.Wait()
}
