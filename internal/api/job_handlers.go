package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleListJobs returns the most recent queue rows, newest first.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultListLimit
	}

	jobs, err := s.store.ListJobs(limit)
	if err != nil {
		log.Printf("Failed to list jobs: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	RespondWithJSON(w, http.StatusOK, jobs)
}

// handleRequeueJob puts a failed job back in the queue. This is the
// only retry path; nothing retries automatically.
func (s *Server) handleRequeueJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := strconv.ParseInt(chi.URLParam(r, "jobID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	if err := s.store.RequeueJob(jobID); err != nil {
		RespondWithError(w, http.StatusConflict, err.Error())
		return
	}

	RespondWithJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// handleRunAdminJob starts a maintenance job by id.
func (s *Server) handleRunAdminJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		RespondWithError(w, http.StatusBadRequest, "Missing job_id parameter")
		return
	}

	err := s.app.JobManager().RunJob(jobID, s.app)
	if err != nil {
		RespondWithError(w, http.StatusConflict, err.Error()) // 409 Conflict if a job is already running
		return
	}

	RespondWithJSON(w, http.StatusAccepted, map[string]string{
		"message": "Job '" + jobID + "' started successfully.",
	})
}

func (s *Server) handleGetAdminJobsStatus(w http.ResponseWriter, r *http.Request) {
	statuses := s.app.JobManager().GetStatus()
	RespondWithJSON(w, http.StatusOK, statuses)
}
