// QuestRoute - Quest Itinerary Recommendation Engine
// Copyright 2026 Roamlab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/roamlab/questroute

// Package main is the entry point for the QuestRoute server.
//
// QuestRoute hosts the quest itinerary recommendation engine: candidate
// collection over a spatial index, five-factor scoring, constrained
// slot selection, and an optional AI rerank pass with deterministic
// fallback. This process owns the engine and its observability surface;
// the product API in front of it is a separate service.
//
// # Startup order
//
//  1. Configuration: koanf v2 layered sources (env > file > defaults)
//  2. Logging: zerolog, JSON or console
//  3. Catalog: badger-backed quest store hydrating an in-memory
//     spatial snapshot (optional; BADGER_PATH)
//  4. Engine: scoring config, history, reranker, session recorder
//  5. Observability listener: /metrics and /healthz
//
// # Configuration
//
// Everything is reachable through environment variables; see
// internal/config for the full mapping table. The common ones:
//
//	export BADGER_PATH=/data/questroute
//	export ENGINE_RADIUS_KM=15
//	export RERANKER_ENABLED=true
//	export RERANKER_URL=https://rerank.internal/v1/order
//	./questroute
//
// # Signal handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the listener drains,
// pending session records flush, and the catalog closes.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roamlab/questroute/internal/config"
	"github.com/roamlab/questroute/internal/logging"
	"github.com/roamlab/questroute/internal/metrics"
	"github.com/roamlab/questroute/internal/quest"
	"github.com/roamlab/questroute/internal/recommend"
	"github.com/roamlab/questroute/internal/recommend/reranking"
	"github.com/roamlab/questroute/internal/sessionlog"
	"github.com/roamlab/questroute/internal/taxonomy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(cfg.LoggingConfig())
	logging.Info().
		Str("badger_path", cfg.Storage.Path).
		Float64("radius_km", cfg.Engine.RadiusKm).
		Bool("reranker_enabled", cfg.Reranker.Enabled).
		Msg("Starting QuestRoute")

	var db *badger.DB
	if cfg.Storage.Path != "" {
		db, err = badger.Open(badger.DefaultOptions(cfg.Storage.Path).WithLogger(nil))
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.Storage.Path).Msg("Failed to open catalog store")
		}
		defer func() {
			if err := db.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing catalog store")
			}
		}()
	} else {
		logging.Info().Msg("No storage path configured, running without persistence")
	}

	store, err := buildStore(cfg, db)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build quest store")
	}
	metrics.CatalogSize.Set(float64(store.Len()))
	logging.Info().Int("quests", store.Len()).Msg("Quest catalog ready")

	recorder := sessionlog.NewRecorder(db)
	opts := []recommend.Option{
		recommend.WithRecorder(recorder),
	}
	if cfg.Reranker.Enabled {
		client := reranking.NewHTTPClient(cfg.Reranker.URL, cfg.Reranker.APIKey)
		opts = append(opts, recommend.WithReranker(reranking.New(client, reranking.Config{
			TopK:                    cfg.Reranker.TopK,
			MinPool:                 cfg.Reranker.MinPool,
			Timeout:                 cfg.Reranker.Timeout,
			RatePerSecond:           cfg.Reranker.RatePerSecond,
			RateBurst:               cfg.Reranker.RateBurst,
			BreakerFailureThreshold: cfg.Reranker.BreakerFailureThreshold,
			BreakerOpenTimeout:      cfg.Reranker.BreakerOpenTimeout,
		})))
		logging.Info().Str("url", cfg.Reranker.URL).Msg("AI reranker enabled")
	}

	engine, err := recommend.New(cfg.EngineConfig(), store, opts...)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build recommendation engine")
	}

	if cfg.Storage.SeedDemoData {
		smokeCheck(engine)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           observabilityMux(),
		ReadHeaderTimeout: cfg.Server.ShutdownTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("Observability listener started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		logging.Error().Err(err).Msg("Observability listener failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Listener shutdown error")
	}

	// Pending session writes must land before the deferred catalog close.
	recorder.Flush()

	logging.Info().Msg("QuestRoute stopped")
}

// buildStore hydrates the in-memory snapshot from the badger catalog
// and seeds the demo set when configured and the catalog is empty.
func buildStore(cfg *config.Config, db *badger.DB) (*quest.MemoryStore, error) {
	store := quest.NewMemoryStore(taxonomy.DefaultTable())

	if db != nil {
		n, err := quest.NewBadgerCatalog(db).LoadInto(context.Background(), store)
		if err != nil {
			return nil, fmt.Errorf("hydrate catalog: %w", err)
		}
		logging.Info().Int("loaded", n).Msg("Catalog hydrated from storage")
	}

	if store.Len() == 0 && cfg.Storage.SeedDemoData {
		if err := seedDemoCatalog(store, db); err != nil {
			return nil, fmt.Errorf("seed demo catalog: %w", err)
		}
		logging.Info().Int("quests", store.Len()).Msg("Demo catalog seeded (SEED_DEMO_DATA=true)")
	}

	return store, nil
}

// smokeCheck runs one recommendation against the seeded catalog so a
// broken wiring fails loudly at startup instead of on first use.
func smokeCheck(engine *recommend.Engine) {
	resp, err := engine.Recommend(context.Background(), &recommend.Request{
		Start:  demoAnchor(),
		Themes: []string{"역사"},
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Startup smoke check failed")
	}
	logging.Info().
		Int("results", len(resp.Quests)).
		Str("session_id", resp.SessionID).
		Msg("Startup smoke check passed")
}

func observabilityMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logging.Debug().Err(err).Msg("Health check write failed")
		}
	})
	return mux
}
