package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/mbrettin/cardbase/internal/api"
	"github.com/mbrettin/cardbase/internal/database"
	"github.com/mbrettin/cardbase/internal/services"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "./cardbase.db"
	}
	if err := database.Initialize(dsn); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db := database.GetDB()

	scryfall := services.NewScryfallClient(os.Getenv("SCRYFALL_BASE_URL"))
	syncService := services.NewCatalogSyncService(db, scryfall)
	searchService := services.NewCardSearchService(db, database.GetDialect())
	syncService.OnComplete(searchService.PurgeCache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional scheduled full sync, e.g. SYNC_SCHEDULE="0 0 4 * * *".
	var scheduler *cron.Cron
	if schedule := os.Getenv("SYNC_SCHEDULE"); schedule != "" {
		scheduler = cron.New(cron.WithSeconds())
		_, err := scheduler.AddFunc(schedule, func() {
			if _, err := syncService.SyncAll(ctx, services.SyncOptions{}); err != nil &&
				!errors.Is(err, services.ErrSyncInProgress) {
				log.Printf("Scheduled sync failed: %v", err)
			}
		})
		if err != nil {
			log.Fatalf("Invalid SYNC_SCHEDULE %q: %v", schedule, err)
		}
		scheduler.Start()
		log.Printf("Scheduled catalog sync: %s", schedule)
	}

	if os.Getenv("SYNC_ON_STARTUP") == "true" {
		go func() {
			// Give the server a moment to come up before hammering the DB.
			time.Sleep(5 * time.Second)
			log.Println("Starting catalog sync on startup...")
			if _, err := syncService.SyncAll(ctx, services.SyncOptions{}); err != nil &&
				!errors.Is(err, services.ErrSyncInProgress) {
				log.Printf("Startup sync failed: %v", err)
			}
		}()
	}

	router := api.SetupRouter(db, searchService, syncService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancel()
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
