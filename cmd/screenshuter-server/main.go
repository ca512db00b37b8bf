package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/anishtr4/screenshuter-sub001/internal/api"
	"github.com/anishtr4/screenshuter-sub001/internal/core"
	"github.com/anishtr4/screenshuter-sub001/internal/jobs"
)

// Minimal server entry without the watcher or signal handling. The
// root main is the full deployment entrypoint.
func main() {
	// Initialize the core application components
	app, err := core.New()
	if err != nil {
		log.Fatalf("Fatal error during application setup: %v", err)
	}
	defer app.Close()

	// Maintenance jobs and the capture scheduler.
	jobs.RegisterAll(app.JobManager())
	jobs.StartJobs(app)
	if err := app.StartScheduler(); err != nil {
		log.Fatalf("Could not start capture scheduler: %v", err)
	}

	// Setup the API server
	server := api.NewServer(app)
	addr := fmt.Sprintf(":%d", app.Config().Port)
	log.Printf("Starting web server on %s", addr)

	// Start the HTTP server
	if err := http.ListenAndServe(addr, server.Router()); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
