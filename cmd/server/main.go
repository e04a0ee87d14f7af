/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the bizflow scheduling server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load YAML config (created with defaults on first run)
  3. Initialize SQLite store
  4. Create API handler and router
  5. Start the extension runner (runs the maintenance pass immediately)
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Config file path (default: bizflow.yaml)
  -listen  Listen address, overrides config
  -db      SQLite database path, overrides config
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the extension runner, close the database
  4. Exit
*/
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arimaro0217/bizflow-core/api"
	"github.com/arimaro0217/bizflow-core/config"
	"github.com/arimaro0217/bizflow-core/store/sqlite"
)

func main() {
	configPath := flag.String("config", "bizflow.yaml", "Config file path")
	listen := flag.String("listen", "", "Listen address (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	handler := api.NewHandler(store)
	handler.HorizonMonths = cfg.HorizonMonths
	handler.MaxRows = cfg.MaxRows
	handler.WeekStart = cfg.WeekStartDay()

	runner := api.NewExtensionRunner(handler)
	runner.CheckInterval = cfg.ExtensionIntervalDuration()
	runner.Start()
	defer runner.Stop()

	router := api.NewRouter(handler)
	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://%s", cfg.Listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server stopped")
}
