package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/anishtr4/screenshuter-sub001/internal/core"
	"github.com/anishtr4/screenshuter-sub001/internal/jobs"
)

// Runs one maintenance job against the configured database and
// storage root, waits for it to finish, and exits. Useful for cron
// setups that do not keep the server running.
func main() {
	jobID := flag.String("job", "", "maintenance job id to run")
	flag.Parse()

	// Initialize the core application components
	app, err := core.New()
	if err != nil {
		log.Fatalf("Fatal error during application setup: %v", err)
	}
	defer app.Close()

	jobs.RegisterAll(app.JobManager())

	if *jobID == "" {
		fmt.Println("Usage: screenshuter-cli -job <id>")
		fmt.Println("Available jobs:")
		for _, s := range app.JobManager().GetStatus() {
			fmt.Printf("  %-20s %s\n", s.ID, s.Name)
		}
		os.Exit(1)
	}

	if err := app.JobManager().RunJob(*jobID, app); err != nil {
		log.Fatalf("Could not start job '%s': %v", *jobID, err)
	}

	// The manager runs jobs on its own goroutine; poll until this one
	// reaches a terminal state.
	for {
		time.Sleep(200 * time.Millisecond)
		for _, s := range app.JobManager().GetStatus() {
			if s.ID != *jobID {
				continue
			}
			switch s.Status {
			case "success":
				log.Printf("Job '%s' finished: %s", *jobID, s.Message)
				return
			case "failed":
				log.Fatalf("Job '%s' failed: %s", *jobID, s.Message)
			}
		}
	}
}
