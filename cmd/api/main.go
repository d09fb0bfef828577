package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gestprod/gestprodgo/internal/config"
	"github.com/gestprod/gestprodgo/internal/database"
	"github.com/gestprod/gestprodgo/internal/export"
	"github.com/gestprod/gestprodgo/internal/handlers"
	"github.com/gestprod/gestprodgo/internal/lookup"
	"github.com/gestprod/gestprodgo/internal/notify"
	"github.com/gestprod/gestprodgo/internal/production"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Open the production database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Note: db.Close() is called manually in shutdown handler below

	// 3. Discover the production table and bind the field map
	store, err := production.NewStore(db, cfg.Codes.WeightClassWidth)
	if err != nil {
		log.Fatalf("Failed to bind production table: %v", err)
	}

	// 4. Load the capture catalog
	catalog := lookup.Load(cfg.Lookup.Path)

	// 5. Exporter and refresh hub
	exporter, err := export.New(store, cfg.Export.Dir)
	if err != nil {
		log.Fatalf("Failed to prepare export directory: %v", err)
	}

	hub := notify.NewHub()
	go hub.Run()

	// 6. Set up HTTP router
	router := handlers.NewRouter(store, catalog, exporter, hub)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on port %s [table: %s]\n", cfg.Port, store.Schema().Name)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
