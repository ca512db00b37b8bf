package core

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/anishtr4/screenshuter-sub001/internal/assets"
	"github.com/anishtr4/screenshuter-sub001/internal/browser"
	"github.com/anishtr4/screenshuter-sub001/internal/capture"
	"github.com/anishtr4/screenshuter-sub001/internal/config"
	"github.com/anishtr4/screenshuter-sub001/internal/crawl"
	"github.com/anishtr4/screenshuter-sub001/internal/db"
	"github.com/anishtr4/screenshuter-sub001/internal/jobs"
	"github.com/anishtr4/screenshuter-sub001/internal/models"
	"github.com/anishtr4/screenshuter-sub001/internal/notify"
	"github.com/anishtr4/screenshuter-sub001/internal/progress"
	"github.com/anishtr4/screenshuter-sub001/internal/scheduler"
	"github.com/anishtr4/screenshuter-sub001/internal/storage"
	"github.com/anishtr4/screenshuter-sub001/internal/store"
	"github.com/anishtr4/screenshuter-sub001/internal/util"
	"github.com/anishtr4/screenshuter-sub001/internal/websocket"
)

// App holds the core components of the application that are shared
// between the server and the CLI.
type App struct {
	config     *config.Config
	db         *sql.DB
	wsHub      *websocket.Hub
	jobManager *jobs.JobManager
	store      *store.Store
	assets     *storage.Storage
	browser    *browser.Manager
	scheduler  *scheduler.Scheduler
}

// New sets up and returns a new App instance. It handles loading the
// configuration, initializing the database connection, running
// migrations and constructing the shared pipeline components.
func New() (*App, error) {
	// Load configuration from config.yml
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize the database connection
	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	if err := db.RunMigrations(database, assets.MigrationsFS); err != nil {
		// We can't proceed without a valid database schema.
		// Close the DB connection before failing.
		database.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Fail on an unusable storage root before the server starts
	// accepting captures it could never persist.
	if err := util.ValidateDataPath(cfg.Storage.Path, "."); err != nil {
		database.Close()
		return nil, fmt.Errorf("invalid storage path: %w", err)
	}
	st, err := storage.New(cfg.Storage.Path)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	hub := websocket.NewHub()
	go hub.Run()

	recordStore := store.New(database)

	app := &App{
		config:    cfg,
		db:        database,
		wsHub:     hub,
		store:     recordStore,
		assets:    st,
		browser:   browser.New(),
		scheduler: scheduler.New(recordStore, cfg.Scheduler.Concurrency, time.Duration(cfg.Scheduler.PollInterval)*time.Second),
	}
	app.jobManager = jobs.NewManager(app)

	log.Println("Core application setup complete.")
	return app, nil
}

// NewFromComponents assembles an App from pre-built parts. Tests use
// it to substitute in-memory databases and temp storage roots without
// touching the real configuration.
func NewFromComponents(cfg *config.Config, database *sql.DB, hub *websocket.Hub, recordStore *store.Store, st *storage.Storage, b *browser.Manager, sched *scheduler.Scheduler) *App {
	app := &App{
		config:    cfg,
		db:        database,
		wsHub:     hub,
		store:     recordStore,
		assets:    st,
		browser:   b,
		scheduler: sched,
	}
	app.jobManager = jobs.NewManager(app)
	return app
}

// StartScheduler wires the capture pipeline into the job scheduler and
// begins dispatching queued jobs.
func (a *App) StartScheduler() error {
	// A server that cannot launch the engine cannot serve any capture.
	// Surface that at startup instead of failing every job.
	if _, err := a.browser.Engine(); err != nil {
		return fmt.Errorf("browser engine unavailable: %w", err)
	}

	pub := notify.NewHubPublisher(a.wsHub)
	aggregator := progress.New(a.store, pub, a.scheduler, time.Duration(a.config.Progress.ClearDelay)*time.Second)
	pipeline := capture.NewPipeline(a.browser, time.Duration(a.config.Browser.NavigationTimeout)*time.Second)
	executor := capture.NewExecutor(a.store, a.assets, pipeline, pub, aggregator)
	fetcher := crawl.NewEngineFetcher(a.browser, time.Duration(a.config.Browser.CrawlTimeout)*time.Second)
	handlers := capture.NewHandlers(a.store, executor, pipeline, pipeline, fetcher)

	a.scheduler.Register(models.JobKindCapture, handlers.HandleCapture)
	a.scheduler.Register(models.JobKindFrameCapture, handlers.HandleFrameCapture)
	a.scheduler.Register(models.JobKindCrawl, handlers.HandleCrawl)
	a.scheduler.Register(models.JobKindCrawlBatch, handlers.HandleCrawlBatch)
	a.scheduler.Register(models.JobKindAutoScroll, handlers.HandleAutoScroll)

	return a.scheduler.Start()
}

// Close gracefully closes the application's resources. The browser
// goes first; its pages hold on to the process longer than the DB.
func (a *App) Close() {
	if a.browser != nil {
		a.browser.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func (a *App) DB() *sql.DB                     { return a.db }
func (a *App) Config() *config.Config          { return a.config }
func (a *App) WsHub() *websocket.Hub           { return a.wsHub }
func (a *App) JobManager() *jobs.JobManager    { return a.jobManager }
func (a *App) Store() *store.Store             { return a.store }
func (a *App) Assets() *storage.Storage        { return a.assets }
func (a *App) Browser() *browser.Manager       { return a.browser }
func (a *App) Scheduler() *scheduler.Scheduler { return a.scheduler }
