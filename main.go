package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/anishtr4/screenshuter-sub001/internal/api"
	"github.com/anishtr4/screenshuter-sub001/internal/core"
	"github.com/anishtr4/screenshuter-sub001/internal/jobs"
	"github.com/anishtr4/screenshuter-sub001/internal/storage"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, environment variables might be set manually
		log.Println("No .env file found")
	}

	// Initialize the core application components
	app, err := core.New()
	if err != nil {
		log.Fatalf("Fatal error during application setup: %v", err)
	}
	defer app.Close()

	// Register the maintenance jobs and start their periodic schedule.
	jobs.RegisterAll(app.JobManager())
	jobs.StartJobs(app)

	// Start the capture scheduler: worker pool plus queue poller.
	if err := app.StartScheduler(); err != nil {
		log.Fatalf("Could not start capture scheduler: %v", err)
	}
	defer app.Scheduler().Stop()

	// Watch the storage root so externally deleted or replaced images
	// get their thumbnails rebuilt.
	watcher := storage.NewWatcher(app.Assets(), func(paths []string) {
		if err := app.JobManager().RunJob("thumbnail-regen", app); err != nil {
			log.Printf("Skipping thumbnail reconcile: %v", err)
		}
	})
	if err := watcher.Start(); err != nil {
		log.Printf("Warning: asset watcher failed to start: %v", err)
	} else {
		defer watcher.Stop()
	}

	// Setup the API server
	server := api.NewServer(app)
	addr := fmt.Sprintf(":%d", app.Config().Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Router(),
	}
	// --- Graceful Shutdown ---
	// Start the server in a goroutine so it doesn't block.
	go func() {
		log.Printf("Starting web server on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not start server: %v", err)
		}
	}()

	// Wait for an interrupt signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Create a context with a timeout to allow existing connections to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Attempt a graceful shutdown.
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
