/*
main.go - Application entry point

PURPOSE:
  Starts the shop ledger HTTP server. Handles configuration, dependency
  injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load configuration (config.yaml, TEXTILE_* environment)
  3. Open the ledger on the configured backend
  4. Create API handler with dependencies
  5. Kick off a background update check
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config   Configuration file (default: ./config.yaml if present)
  -port     HTTP server port, overrides server.port
  -data     Ledger path, overrides ledger.path
  -backend  json | sqlite | memory, overrides ledger.backend

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the ledger backend
  4. Exit

EXAMPLES:
  # Default: ~/.accounting-tool/records.json on :8080
  ./server

  # SQLite ledger on a different port
  ./server -backend=sqlite -data=./data/ledger.db -port=3000

  # Throwaway in-memory ledger
  ./server -backend=memory

SEE ALSO:
  - api/server.go: Router configuration
  - app/app.go: Dependency wiring
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/textile-ledger/api"
	"github.com/warp/textile-ledger/app"
	"github.com/warp/textile-ledger/config"
	"github.com/warp/textile-ledger/ledger"
	"github.com/warp/textile-ledger/logging"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "Configuration file")
	port := flag.Int("port", 0, "HTTP server port")
	dataPath := flag.String("data", "", "Ledger file path")
	backend := flag.String("backend", "", "Ledger backend: json, sqlite or memory")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dataPath != "" {
		cfg.Ledger.Path = config.ExpandHome(*dataPath)
	}
	if *backend != "" {
		cfg.UseBackend(*backend)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	// Initialize ledger
	a, err := app.Open(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open ledger: %v", err)
	}
	defer a.Close()

	// Initialize handler
	handler := api.NewHandler(a.Ledger, logger)
	handler.Importer = a.Importer
	handler.Receipts = a.Receipts
	handler.ReceiptStyle = a.Style
	handler.Updates = a.Updates
	handler.FailureLog = a.FailureLogPath()

	for _, b := range ledger.NewResolver(a.Ledger).IntegrityReport() {
		logger.Warn("return link broken", "return_id", b.ReturnID, "original_id", b.OriginalID, "problem", b.Problem)
	}

	if a.Updates != nil {
		go reportUpdate(a, logger)
	}

	// Create router
	router := api.NewRouter(handler, cfg.Server.AllowedOrigins)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			"addr", fmt.Sprintf("http://localhost:%d", cfg.Server.Port),
			"backend", cfg.Ledger.Backend, "path", cfg.Ledger.Path,
			"transactions", a.Ledger.Len())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("server stopped")
}

// reportUpdate logs the outcome of one release check. Failures are only
// logged at debug level since the shop machine is often offline.
func reportUpdate(a *app.App, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Updates.Timeout)
	defer cancel()

	out := <-a.Updates.CheckAsync(ctx)
	switch {
	case out.Err != nil:
		logger.Debug("update check failed", "error", out.Err)
	case out.Result.Available:
		logger.Info("update available",
			"current", out.Result.Current, "latest", out.Result.Latest.Version,
			"message", out.Result.Latest.Message)
	}
}
