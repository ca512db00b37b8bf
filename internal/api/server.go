// It defines the API server, sets up the routes (endpoints)
// using chi, and links them to the handler functions.

package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/anishtr4/screenshuter-sub001/internal/core"
	"github.com/anishtr4/screenshuter-sub001/internal/scheduler"
	"github.com/anishtr4/screenshuter-sub001/internal/store"
)

// Server holds the dependencies for our API.
type Server struct {
	app       *core.App
	db        *sql.DB
	store     *store.Store
	scheduler *scheduler.Scheduler
	auth      Authenticator
}

// Store returns the store instance.
func (s *Server) Store() *store.Store {
	return s.store
}

// SetAuthenticator replaces the owner resolver. Deployments that front
// the service with their own identity layer install theirs here.
func (s *Server) SetAuthenticator(a Authenticator) {
	s.auth = a
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	return &Server{
		app:       app,
		db:        app.DB(),
		store:     app.Store(),
		scheduler: app.Scheduler(),
		auth:      HeaderAuthenticator{},
	}
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Logs requests to the console
	r.Use(middleware.Recoverer) // Recovers from panics
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.Ping(); err != nil {
			RespondWithError(w, http.StatusServiceUnavailable, "Database connection failed")
			return
		}
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// WebSocket route. The owner rides the query string because
	// browsers cannot set headers on socket upgrades.
	r.Get("/ws/progress", func(w http.ResponseWriter, r *http.Request) {
		s.app.WsHub().ServeWs(w, r)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.OwnerMiddleware)

		r.Route("/api", func(r chi.Router) {
			// Enqueue endpoints. All of them return 202; the work
			// happens on the scheduler's workers.
			r.Post("/captures", s.handleCreateCapture)
			r.Post("/captures/frames", s.handleCreateFrameGroup)
			r.Post("/crawls", s.handleCreateCrawl)

			// Read endpoints.
			r.Get("/captures", s.handleListCaptures)
			r.Get("/captures/{publicID}", s.handleGetCapture)
			r.Get("/groups/{publicID}", s.handleGetGroup)
			r.Get("/groups/{publicID}/captures", s.handleListGroupCaptures)

			// Queue visibility and the explicit re-enqueue hook.
			r.Get("/jobs", s.handleListJobs)
			r.Post("/jobs/{jobID}/requeue", s.handleRequeueJob)

			// Admin job triggers.
			r.Route("/admin", func(r chi.Router) {
				r.Get("/jobs/status", s.handleGetAdminJobsStatus)
				r.Post("/jobs/run", s.handleRunAdminJob)
			})
		})
	})

	// Captured images and thumbnails, served straight off the storage
	// root. Paths in API responses are relative to this mount.
	FileServer(r, "/assets/", http.Dir(s.app.Assets().Root()))

	return r
}

// FileServer conveniently sets up a static file server that doesn't list directories.
func FileServer(r chi.Router, path string, root http.FileSystem) {
	fs := http.StripPrefix(path, http.FileServer(root))
	r.Get(path+"*", func(w http.ResponseWriter, r *http.Request) {
		fs.ServeHTTP(w, r)
	})
}
