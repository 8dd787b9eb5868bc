/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the back-office server. Handles configuration,
  dependency wiring, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration from the environment
  2. Open the SQLite store (auto-migrates)
  3. Construct the inventory and menu services
  4. Configure the HTTP router
  5. Serve until SIGINT/SIGTERM, then drain and exit

CONFIGURATION (environment):
  PORT              HTTP server port (default: 8080)
  DB_PATH           SQLite database path (default: backoffice.db)
                    Use ":memory:" for an in-memory database
  STOCK_LOCK_WAIT   Bound on per-stock lock wait (default: 2s)
  CORS_ORIGINS      Comma-separated allowed origins

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (SHUTDOWN_TIMEOUT)
  3. Close the database
  4. Exit

SEE ALSO:
  - config/config.go: Configuration loading
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/lacocina/backoffice/api"
	"github.com/lacocina/backoffice/config"
	"github.com/lacocina/backoffice/inventory"
	"github.com/lacocina/backoffice/menu"
	"github.com/lacocina/backoffice/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Services
	inventorySvc := inventory.NewService(store, inventory.WithLockWait(cfg.StockLockWait))
	menuSvc := menu.NewService(store)

	// Router
	handler := api.NewHandler(inventorySvc, menuSvc)
	router := api.NewRouter(handler, cfg.CORSOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		log.Printf("Back-office server starting on http://localhost:%d", cfg.Port)
		log.Printf("API available at http://localhost:%d/api", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
