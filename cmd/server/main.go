package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docslice/internal/api"
	"github.com/dgallion1/docslice/internal/config"
	"github.com/dgallion1/docslice/internal/embedder"
	"github.com/dgallion1/docslice/internal/pipeline"
	"github.com/dgallion1/docslice/internal/store"
	"github.com/dgallion1/docslice/internal/tokenizer"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(log)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open catalog store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}

	embed := embedder.NewClient(cfg.EmbedderURL, cfg.EmbedderAPIKey, cfg.EmbedderModel)
	counter := tokenizer.New(cfg.Tokenizer, log)

	orch := pipeline.NewOrchestrator(cfg, st, embed, counter, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	orch.Start(ctx)

	server := api.NewServer(orch, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server,
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  180 * time.Second,
	}

	go func() {
		log.Info("docslice starting",
			"port", cfg.Port,
			"db", cfg.DBPath,
			"tokenizer", counter.Name(),
			"workers", cfg.WorkerCount,
			"chunk_size", cfg.ChunkSize,
			"chunk_overlap", cfg.ChunkOverlap,
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutting down", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", "error", err)
	}

	orch.Stop()
	embed.Close()
	if err := st.Close(); err != nil {
		log.Error("store close error", "error", err)
	}

	log.Info("shutdown complete")
}
