// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command picker starts the TableScout relevance API server.
//
// TableScout ranks database tables against natural-language queries using:
//   - Multi-signal lexical scoring with per-signal caps
//   - Optional embedding-based semantic scoring (Ollama)
//   - FK relationship boosting with junction-table rescue
//   - A coverage-based confidence verdict
//
// Usage:
//
//	go run ./cmd/picker -snapshot catalog.json
//	go run ./cmd/picker -snapshot catalog.json -port 9090
//
// With embeddings (semantic signal):
//
//	EMBEDDING_SERVICE_URL=http://localhost:11434/api/embed \
//	EMBEDDING_MODEL=nomic-embed-text \
//	go run ./cmd/picker -snapshot catalog.json
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/picker/health
//
//	# Select tables for a query
//	curl -X POST http://localhost:8080/v1/picker/select \
//	  -H "Content-Type: application/json" \
//	  -d '{"query": "average student grades per course"}'
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/AretaiLabs/tablescout/services/picker"
	"github.com/AretaiLabs/tablescout/services/picker/config"
	"github.com/AretaiLabs/tablescout/services/picker/embedding"
	"github.com/AretaiLabs/tablescout/services/picker/kg"
	"github.com/AretaiLabs/tablescout/services/picker/scoring"
	badgerstore "github.com/AretaiLabs/tablescout/services/picker/storage/badger"
)

// warmupTimeout bounds the background embedding warm-up. Large catalogs on a
// cold Ollama can take a while; beyond this the service stays lexical-only.
const warmupTimeout = 5 * time.Minute

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	debug := flag.Bool("debug", false, "Enable debug mode")
	snapshotPath := flag.String("snapshot", "", "Path to the catalog snapshot JSON (required)")
	noEmbeddings := flag.Bool("no-embeddings", false, "Disable the embedding provider even if reachable")
	flag.Parse()

	if *snapshotPath == "" {
		fmt.Fprintln(os.Stderr, "usage: picker -snapshot <catalog.json> [-port N] [-debug]")
		os.Exit(2)
	}

	// Set Gin mode
	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// W3C TraceContext propagation so trace context flows from incoming HTTP
	// headers through all handlers.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// A broken catalog is a setup failure, not a runtime condition: fail fast.
	snapshot, err := kg.LoadSnapshot(*snapshotPath)
	if err != nil {
		slog.Error("Failed to load catalog snapshot",
			slog.String("path", *snapshotPath),
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	store := kg.NewStore(snapshot)
	slog.Info("Catalog snapshot loaded",
		slog.String("path", *snapshotPath),
		slog.Int("tables", len(snapshot.Tables)),
		slog.String("hash", snapshot.Hash()))

	weights, err := config.LoadScoringWeights()
	if err != nil {
		slog.Error("Failed to load scoring weights", slog.String("error", err.Error()))
		os.Exit(1)
	}
	lexicon, err := config.LoadLexicon()
	if err != nil {
		slog.Error("Failed to load lexicon", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Open the vector cache BadgerDB. Graceful degradation: if unavailable,
	// embedding warm-up runs without persistence.
	var vectorDB *badgerstore.DB
	cacheDir := os.Getenv("PICKER_CACHE_DIR")
	if cacheDir == "" {
		home, homeErr := os.UserHomeDir()
		if homeErr == nil {
			cacheDir = filepath.Join(home, ".tablescout", "cache", "vectors")
		}
	}
	if cacheDir != "" {
		cfg := badgerstore.DefaultConfig()
		cfg.Path = cacheDir
		db, dbErr := badgerstore.OpenDB(cfg)
		if dbErr != nil {
			slog.Warn("Vector cache BadgerDB unavailable, embedding persistence disabled",
				slog.String("path", cacheDir),
				slog.String("error", dbErr.Error()))
		} else {
			vectorDB = db
			slog.Info("Vector cache BadgerDB opened", slog.String("path", cacheDir))
		}
	}

	// Embedding setup. The provider is optional end to end: when disabled or
	// unreachable the engine scores lexical-only and health reports it.
	var engineOpts []scoring.EngineOption
	var vectors *embedding.VectorStore
	if !*noEmbeddings {
		provider := embedding.NewOllamaProvider(slog.Default())
		vectors = embedding.NewVectorStore(provider, provider.Model(), vectorDB, slog.Default())
		engineOpts = append(engineOpts, scoring.WithEmbedding(provider, vectors))

		go func() {
			defer func() {
				if r := recover(); r != nil {
					buf := make([]byte, 4096)
					n := runtime.Stack(buf, false)
					slog.Error("Panic in embedding warm-up recovered",
						slog.Any("panic", r),
						slog.String("stack", string(buf[:n])))
				}
			}()

			warmCtx, cancel := context.WithTimeout(context.Background(), warmupTimeout)
			defer cancel()
			if warmErr := vectors.Warm(warmCtx, snapshot); warmErr != nil {
				slog.Warn("Embedding warm-up failed, serving lexical-only",
					slog.String("error", warmErr.Error()))
			}
		}()
	}

	engine := scoring.NewEngine(store, weights, lexicon, slog.Default(), engineOpts...)

	// Create service and handlers
	var healthVectors scoring.VectorStore
	if vectors != nil {
		healthVectors = vectors
	}
	svc := picker.NewService(store, engine, healthVectors, slog.Default())
	handlers := picker.NewHandlers(svc)

	// Setup router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("tablescout-picker"))
	if *debug {
		router.Use(gin.Logger())
	}

	// Register routes under /v1/picker
	v1 := router.Group("/v1")
	picker.RegisterRoutes(v1, handlers)

	// Prometheus scrape endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	printBanner(*port, len(snapshot.Tables), !*noEmbeddings)

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		slog.Info("Shutting down TableScout picker server")
		if vectorDB != nil {
			if closeErr := vectorDB.Close(); closeErr != nil {
				slog.Warn("Failed to close vector cache BadgerDB", slog.String("error", closeErr.Error()))
			}
		}
		os.Exit(0)
	}()

	// Start server
	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Starting TableScout picker server", slog.String("address", addr))
	if err := router.Run(addr); err != nil {
		slog.Error("Failed to start server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func printBanner(port, tableCount int, embeddingsEnabled bool) {
	semanticStatus := "DISABLED (-no-embeddings)"
	if embeddingsEnabled {
		semanticStatus = "warming in background (lexical-only until ready)"
	}

	fmt.Printf(`
TableScout picker server
  tables loaded: %d
  semantic scoring: %s

  # Health check
  curl http://localhost:%d/v1/picker/health

  # Select tables for a query
  curl -X POST http://localhost:%d/v1/picker/select \
    -H "Content-Type: application/json" \
    -d '{"query": "average student grades per course"}'

Press Ctrl+C to stop
`, tableCount, semanticStatus, port, port)
}
