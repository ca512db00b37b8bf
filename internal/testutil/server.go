// Shared test server setup. API tests and job tests build a full app
// from in-memory parts instead of reading real configuration.

package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/anishtr4/screenshuter-sub001/internal/api"
	"github.com/anishtr4/screenshuter-sub001/internal/browser"
	"github.com/anishtr4/screenshuter-sub001/internal/config"
	"github.com/anishtr4/screenshuter-sub001/internal/core"
	"github.com/anishtr4/screenshuter-sub001/internal/scheduler"
	"github.com/anishtr4/screenshuter-sub001/internal/storage"
	"github.com/anishtr4/screenshuter-sub001/internal/store"
	"github.com/anishtr4/screenshuter-sub001/internal/websocket"
)

// SetupTestApp assembles a core.App backed by an in-memory database and
// a temp storage root. The browser engine is lazy and never launches
// unless a test drives a real capture, and the scheduler is built but
// not started so tests control dispatch themselves.
func SetupTestApp(t *testing.T) *core.App {
	t.Helper()
	database := SetupTestDB(t)

	st, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create test storage: %v", err)
	}

	cfg := &config.Config{Port: 8090}
	cfg.Scheduler.Concurrency = 1
	cfg.Scheduler.PollInterval = 1
	cfg.Browser.NavigationTimeout = 5
	cfg.Browser.CrawlTimeout = 5
	cfg.Progress.ClearDelay = 1

	hub := websocket.NewHub()
	go hub.Run()

	recordStore := store.New(database)
	sched := scheduler.New(recordStore, 1, 20*time.Millisecond)

	return core.NewFromComponents(cfg, database, hub, recordStore, st, browser.New(), sched)
}

// SetupTestServer initializes a full core.App and api.Server for integration testing.
func SetupTestServer(t *testing.T) (*api.Server, *sql.DB) {
	t.Helper()
	app := SetupTestApp(t)
	server := api.NewServer(app)
	return server, app.DB()
}
