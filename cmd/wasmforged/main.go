// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command wasmforged starts the wasmforge compile-and-execute server.
//
// Usage:
//
//	go run ./cmd/wasmforged
//	go run ./cmd/wasmforged -listen :9090
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/healthz
//
//	# Compile an AssemblyScript source
//	curl -X POST --data-binary @source.ts http://localhost:8080/compile/assemblyscript
//
//	# Run a compiled module
//	curl -X POST --data-binary @input.bin http://localhost:8080/run/<outputHash>
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	_ "go.uber.org/automaxprocs"

	"github.com/unbiasedzucchini/wasmforge/internal/compiler"
	"github.com/unbiasedzucchini/wasmforge/internal/config"
	"github.com/unbiasedzucchini/wasmforge/internal/core"
	"github.com/unbiasedzucchini/wasmforge/internal/httpapi"
	"github.com/unbiasedzucchini/wasmforge/internal/obs"
	"github.com/unbiasedzucchini/wasmforge/internal/runtime"
	"github.com/unbiasedzucchini/wasmforge/internal/store"
)

func main() {
	cfg := config.FromFlags()

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	shutdownTracing, err := obs.SetupTracing(ctx, "wasmforge")
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	st, err := store.Open(cfg.StoragePath, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err, "path", cfg.StoragePath)
		os.Exit(1)
	}
	defer st.Close()

	registry := compiler.NewRegistry()
	if err := config.LoadLanguages(cfg.LanguageFile, registry); err != nil {
		logger.Error("failed to load language file", "error", err)
		os.Exit(1)
	}
	if cfg.LanguageFile != "" {
		watcher, err := config.WatchLanguages(cfg.LanguageFile, registry, logger)
		if err != nil {
			logger.Warn("language file hot-reload disabled", "error", err)
		} else {
			defer watcher.Close()
		}
	}

	pipeline, err := compiler.NewPipeline(registry, st, cfg.ScratchRoot, logger)
	if err != nil {
		logger.Error("failed to initialize compile pipeline", "error", err)
		os.Exit(1)
	}

	harness := runtime.NewHarness(ctx, logger)
	defer harness.Close(ctx)

	svc := core.NewService(st, pipeline, harness, logger)
	handlers := httpapi.NewHandlers(svc)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("wasmforge"))
	if cfg.Debug {
		router.Use(gin.Logger())
	}

	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/")
	httpapi.RegisterRoutes(v1, handlers)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("shutting down wasmforge server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("starting wasmforge server", "address", cfg.ListenAddr, "languages", registry.Names())
	fmt.Fprintf(os.Stdout, "wasmforge listening on %s\n", cfg.ListenAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
