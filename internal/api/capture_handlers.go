package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/anishtr4/screenshuter-sub001/internal/models"
	"github.com/anishtr4/screenshuter-sub001/internal/util"
)

const defaultListLimit = 50

// handleCreateCapture creates a single pending capture and enqueues
// the job that will run it. The response returns immediately; progress
// arrives on the owner's websocket channel.
func (s *Server) handleCreateCapture(w http.ResponseWriter, r *http.Request) {
	owner := getOwnerFromContext(r)

	var payload struct {
		URL     string                 `json:"url"`
		Options *models.CaptureOptions `json:"options"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	pageURL, err := util.ValidateCaptureURL(payload.URL)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	c := &models.Capture{
		PublicID: util.NewPublicID(),
		OwnerID:  owner,
		URL:      pageURL,
		Kind:     models.CaptureKindSingle,
	}
	if err := s.store.CreateCapture(c); err != nil {
		log.Printf("Failed to create capture: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to create capture")
		return
	}

	jobID, err := s.scheduler.Enqueue(models.JobKindCapture, models.CapturePayload{
		OwnerID:   owner,
		CaptureID: c.ID,
		Options:   payload.Options,
	})
	if err != nil {
		log.Printf("Failed to enqueue capture %s: %v", c.PublicID, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to enqueue capture")
		return
	}

	RespondWithJSON(w, http.StatusAccepted, map[string]interface{}{
		"capture": c,
		"job_id":  jobID,
	})
}

// handleCreateFrameGroup creates a frames group with one pending
// capture per offset and enqueues the job that drives them all from a
// single shared page.
func (s *Server) handleCreateFrameGroup(w http.ResponseWriter, r *http.Request) {
	owner := getOwnerFromContext(r)

	var payload struct {
		URL     string                 `json:"url"`
		Options *models.CaptureOptions `json:"options"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	pageURL, err := util.ValidateCaptureURL(payload.URL)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.Options == nil || len(payload.Options.Offsets) == 0 {
		RespondWithError(w, http.StatusBadRequest, "At least one frame offset is required")
		return
	}
	for _, o := range payload.Options.Offsets {
		if o < 0 {
			RespondWithError(w, http.StatusBadRequest, "Frame offsets cannot be negative")
			return
		}
	}

	params, err := json.Marshal(payload.Options)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid capture options")
		return
	}

	offsets := payload.Options.Offsets
	group := &models.CaptureGroup{
		PublicID:      util.NewPublicID(),
		OwnerID:       owner,
		Kind:          models.GroupKindFrames,
		BaseURL:       pageURL,
		ExpectedTotal: len(offsets),
		AutoScroll:    payload.Options.AutoScroll,
		Params:        string(params),
	}
	if err := s.store.CreateGroup(group); err != nil {
		log.Printf("Failed to create frame group: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to create frame group")
		return
	}

	total := len(offsets)
	for i, offset := range offsets {
		idx, off := i, offset
		c := &models.Capture{
			PublicID:    util.NewPublicID(),
			OwnerID:     owner,
			GroupID:     &group.ID,
			URL:         pageURL,
			Kind:        models.CaptureKindFrame,
			FrameIndex:  &idx,
			FrameTotal:  &total,
			FrameOffset: &off,
		}
		if err := s.store.CreateCapture(c); err != nil {
			log.Printf("Failed to create frame capture %d for group %s: %v", i, group.PublicID, err)
			RespondWithError(w, http.StatusInternalServerError, "Failed to create frame captures")
			return
		}
	}

	jobID, err := s.scheduler.Enqueue(models.JobKindFrameCapture, models.FrameCapturePayload{
		OwnerID: owner,
		GroupID: group.ID,
	})
	if err != nil {
		log.Printf("Failed to enqueue frame group %s: %v", group.PublicID, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to enqueue frame group")
		return
	}

	RespondWithJSON(w, http.StatusAccepted, map[string]interface{}{
		"group":  group,
		"job_id": jobID,
	})
}

// handleCreateCrawl creates a crawl group and enqueues the discovery
// job. Member captures appear as discovery finds pages.
func (s *Server) handleCreateCrawl(w http.ResponseWriter, r *http.Request) {
	owner := getOwnerFromContext(r)

	var payload struct {
		URL      string                 `json:"url"`
		MaxDepth int                    `json:"max_depth"`
		MaxPages int                    `json:"max_pages"`
		Options  *models.CaptureOptions `json:"options"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	baseURL, err := util.ValidateCaptureURL(payload.URL)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.MaxDepth < 1 {
		payload.MaxDepth = 2
	}
	if payload.MaxPages < 1 {
		payload.MaxPages = 10
	}

	var params string
	if payload.Options != nil {
		encoded, err := json.Marshal(payload.Options)
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, "Invalid capture options")
			return
		}
		params = string(encoded)
	}

	group := &models.CaptureGroup{
		PublicID: util.NewPublicID(),
		OwnerID:  owner,
		Kind:     models.GroupKindCrawl,
		BaseURL:  baseURL,
		Params:   params,
	}
	if err := s.store.CreateGroup(group); err != nil {
		log.Printf("Failed to create crawl group: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to create crawl group")
		return
	}

	jobID, err := s.scheduler.Enqueue(models.JobKindCrawlBatch, models.CrawlBatchPayload{
		OwnerID:  owner,
		GroupID:  group.ID,
		MaxDepth: payload.MaxDepth,
		MaxPages: payload.MaxPages,
	})
	if err != nil {
		log.Printf("Failed to enqueue crawl group %s: %v", group.PublicID, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to enqueue crawl")
		return
	}

	RespondWithJSON(w, http.StatusAccepted, map[string]interface{}{
		"group":  group,
		"job_id": jobID,
	})
}

// handleGetCapture returns one capture by its public id. Captures are
// only visible to their owner.
func (s *Server) handleGetCapture(w http.ResponseWriter, r *http.Request) {
	owner := getOwnerFromContext(r)

	c, err := s.store.GetCaptureByPublicID(chi.URLParam(r, "publicID"))
	if err != nil || c.OwnerID != owner {
		RespondWithError(w, http.StatusNotFound, "Capture not found")
		return
	}
	RespondWithJSON(w, http.StatusOK, c)
}

// handleListCaptures returns the owner's most recent captures.
func (s *Server) handleListCaptures(w http.ResponseWriter, r *http.Request) {
	owner := getOwnerFromContext(r)

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultListLimit
	}

	captures, err := s.store.ListCapturesByOwner(owner, limit)
	if err != nil {
		log.Printf("Failed to list captures for %s: %v", owner, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to list captures")
		return
	}
	RespondWithJSON(w, http.StatusOK, captures)
}

// handleGetGroup returns one capture group by its public id. The
// completed count is derived from member rows on every read.
func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	owner := getOwnerFromContext(r)

	group, err := s.store.GetGroupByPublicID(chi.URLParam(r, "publicID"))
	if err != nil || group.OwnerID != owner {
		RespondWithError(w, http.StatusNotFound, "Group not found")
		return
	}
	RespondWithJSON(w, http.StatusOK, group)
}

// handleListGroupCaptures returns a group's member captures.
func (s *Server) handleListGroupCaptures(w http.ResponseWriter, r *http.Request) {
	owner := getOwnerFromContext(r)

	group, err := s.store.GetGroupByPublicID(chi.URLParam(r, "publicID"))
	if err != nil || group.OwnerID != owner {
		RespondWithError(w, http.StatusNotFound, "Group not found")
		return
	}

	captures, err := s.store.ListCapturesByGroup(group.ID)
	if err != nil {
		log.Printf("Failed to list captures for group %s: %v", group.PublicID, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to list group captures")
		return
	}
	RespondWithJSON(w, http.StatusOK, captures)
}
