package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anishtr4/screenshuter-sub001/internal/models"
	"github.com/anishtr4/screenshuter-sub001/internal/store"
	"github.com/anishtr4/screenshuter-sub001/internal/testutil"
	"github.com/anishtr4/screenshuter-sub001/internal/util"
)

const testOwner = "owner-1"

// authedRequest builds a JSON request carrying the owner identity
// header that OwnerMiddleware requires.
func authedRequest(method, target string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, target, bytes.NewBuffer(body))
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Owner-ID", testOwner)
	return req
}

func TestHandleCreateCapture(t *testing.T) {
	server, db := testutil.SetupTestServer(t)
	router := server.Router()
	s := store.New(db)

	t.Run("Success", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"url": "https://example.com/page"})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest("POST", "/api/captures", body))

		if status := rr.Code; status != http.StatusAccepted {
			t.Fatalf("handler returned wrong status code: got %v want %v (%s)", status, http.StatusAccepted, rr.Body.String())
		}

		var resp struct {
			Capture models.Capture `json:"capture"`
			JobID   int64          `json:"job_id"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if resp.Capture.PublicID == "" {
			t.Error("Expected a public id on the created capture")
		}
		if resp.Capture.Status != models.StatusPending {
			t.Errorf("Expected capture status pending, got %s", resp.Capture.Status)
		}
		if resp.Capture.Kind != models.CaptureKindSingle {
			t.Errorf("Expected capture kind single, got %s", resp.Capture.Kind)
		}
		if resp.Capture.OwnerID != testOwner {
			t.Errorf("Expected owner %s, got %s", testOwner, resp.Capture.OwnerID)
		}

		// The enqueued job must point back at the capture row.
		job, err := s.GetJob(resp.JobID)
		if err != nil {
			t.Fatalf("Expected a queue row for job %d: %v", resp.JobID, err)
		}
		if job.Kind != models.JobKindCapture {
			t.Errorf("Expected job kind capture, got %s", job.Kind)
		}
		if job.Status != models.JobQueued {
			t.Errorf("Expected job status queued, got %s", job.Status)
		}
		var payload models.CapturePayload
		if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
			t.Fatalf("Failed to unmarshal job payload: %v", err)
		}
		if payload.CaptureID != resp.Capture.ID {
			t.Errorf("Expected payload capture id %d, got %d", resp.Capture.ID, payload.CaptureID)
		}
		if payload.OwnerID != testOwner {
			t.Errorf("Expected payload owner %s, got %s", testOwner, payload.OwnerID)
		}
	})

	t.Run("Rejects Bad Scheme", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"url": "ftp://example.com/page"})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest("POST", "/api/captures", body))
		if status := rr.Code; status != http.StatusBadRequest {
			t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
		}
	})

	t.Run("Rejects Malformed Body", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest("POST", "/api/captures", []byte("{not json")))
		if status := rr.Code; status != http.StatusBadRequest {
			t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
		}
	})

	t.Run("Rejects Missing Owner", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"url": "https://example.com/page"})
		req, _ := http.NewRequest("POST", "/api/captures", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if status := rr.Code; status != http.StatusUnauthorized {
			t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusUnauthorized)
		}
	})

	t.Run("Accepts Owner Query Fallback", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"url": "https://example.com/page"})
		req, _ := http.NewRequest("POST", "/api/captures?owner=query-owner", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if status := rr.Code; status != http.StatusAccepted {
			t.Fatalf("handler returned wrong status code: got %v want %v", status, http.StatusAccepted)
		}
		var resp struct {
			Capture models.Capture `json:"capture"`
		}
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp.Capture.OwnerID != "query-owner" {
			t.Errorf("Expected owner from query string, got %s", resp.Capture.OwnerID)
		}
	})
}

func TestHandleCreateFrameGroup(t *testing.T) {
	server, db := testutil.SetupTestServer(t)
	router := server.Router()
	s := store.New(db)

	t.Run("Success", func(t *testing.T) {
		body, _ := json.Marshal(map[string]interface{}{
			"url": "https://example.com/animation",
			"options": map[string]interface{}{
				"offsets": []int{0, 2, 5},
				"width":   1280,
			},
		})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest("POST", "/api/captures/frames", body))

		if status := rr.Code; status != http.StatusAccepted {
			t.Fatalf("handler returned wrong status code: got %v want %v (%s)", status, http.StatusAccepted, rr.Body.String())
		}

		var resp struct {
			Group models.CaptureGroup `json:"group"`
			JobID int64               `json:"job_id"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if resp.Group.Kind != models.GroupKindFrames {
			t.Errorf("Expected group kind frames, got %s", resp.Group.Kind)
		}
		if resp.Group.ExpectedTotal != 3 {
			t.Errorf("Expected expected_total 3, got %d", resp.Group.ExpectedTotal)
		}

		// One pending member per offset, ordered by frame index.
		members, err := s.ListCapturesByGroup(resp.Group.ID)
		if err != nil {
			t.Fatalf("Failed to list group members: %v", err)
		}
		if len(members) != 3 {
			t.Fatalf("Expected 3 member captures, got %d", len(members))
		}
		wantOffsets := []int{0, 2, 5}
		for i, m := range members {
			if m.Kind != models.CaptureKindFrame {
				t.Errorf("Member %d: expected kind frame, got %s", i, m.Kind)
			}
			if m.Status != models.StatusPending {
				t.Errorf("Member %d: expected status pending, got %s", i, m.Status)
			}
			if m.FrameIndex == nil || *m.FrameIndex != i {
				t.Errorf("Member %d: wrong frame index %v", i, m.FrameIndex)
			}
			if m.FrameOffset == nil || *m.FrameOffset != wantOffsets[i] {
				t.Errorf("Member %d: wrong frame offset %v", i, m.FrameOffset)
			}
			if m.FrameTotal == nil || *m.FrameTotal != 3 {
				t.Errorf("Member %d: wrong frame total %v", i, m.FrameTotal)
			}
		}

		// The stored options are on the group row for chained jobs.
		stored, err := s.GetGroup(resp.Group.ID)
		if err != nil {
			t.Fatalf("Failed to reload group: %v", err)
		}
		var opts models.CaptureOptions
		if err := json.Unmarshal([]byte(stored.Params), &opts); err != nil {
			t.Fatalf("Failed to unmarshal stored params: %v", err)
		}
		if opts.Width != 1280 || len(opts.Offsets) != 3 {
			t.Errorf("Stored params lost option values: %+v", opts)
		}

		job, err := s.GetJob(resp.JobID)
		if err != nil {
			t.Fatalf("Expected a queue row for job %d: %v", resp.JobID, err)
		}
		if job.Kind != models.JobKindFrameCapture {
			t.Errorf("Expected job kind frame-capture, got %s", job.Kind)
		}
		var payload models.FrameCapturePayload
		json.Unmarshal([]byte(job.Payload), &payload)
		if payload.GroupID != resp.Group.ID {
			t.Errorf("Expected payload group id %d, got %d", resp.Group.ID, payload.GroupID)
		}
	})

	t.Run("Rejects Missing Offsets", func(t *testing.T) {
		body, _ := json.Marshal(map[string]interface{}{"url": "https://example.com/animation"})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest("POST", "/api/captures/frames", body))
		if status := rr.Code; status != http.StatusBadRequest {
			t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
		}
	})

	t.Run("Rejects Negative Offset", func(t *testing.T) {
		body, _ := json.Marshal(map[string]interface{}{
			"url":     "https://example.com/animation",
			"options": map[string]interface{}{"offsets": []int{0, -3}},
		})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest("POST", "/api/captures/frames", body))
		if status := rr.Code; status != http.StatusBadRequest {
			t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
		}
	})
}

func TestHandleCreateCrawl(t *testing.T) {
	server, db := testutil.SetupTestServer(t)
	router := server.Router()
	s := store.New(db)

	t.Run("Applies Default Limits", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"url": "https://example.com"})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest("POST", "/api/crawls", body))

		if status := rr.Code; status != http.StatusAccepted {
			t.Fatalf("handler returned wrong status code: got %v want %v (%s)", status, http.StatusAccepted, rr.Body.String())
		}

		var resp struct {
			Group models.CaptureGroup `json:"group"`
			JobID int64               `json:"job_id"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if resp.Group.Kind != models.GroupKindCrawl {
			t.Errorf("Expected group kind crawl, got %s", resp.Group.Kind)
		}

		job, err := s.GetJob(resp.JobID)
		if err != nil {
			t.Fatalf("Expected a queue row for job %d: %v", resp.JobID, err)
		}
		var payload models.CrawlBatchPayload
		json.Unmarshal([]byte(job.Payload), &payload)
		if payload.MaxDepth != 2 || payload.MaxPages != 10 {
			t.Errorf("Expected default limits 2/10, got %d/%d", payload.MaxDepth, payload.MaxPages)
		}
	})

	t.Run("Keeps Explicit Limits", func(t *testing.T) {
		body, _ := json.Marshal(map[string]interface{}{
			"url":       "https://example.com",
			"max_depth": 3,
			"max_pages": 25,
		})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest("POST", "/api/crawls", body))

		if status := rr.Code; status != http.StatusAccepted {
			t.Fatalf("handler returned wrong status code: got %v want %v", status, http.StatusAccepted)
		}
		var resp struct {
			JobID int64 `json:"job_id"`
		}
		json.Unmarshal(rr.Body.Bytes(), &resp)

		job, err := s.GetJob(resp.JobID)
		if err != nil {
			t.Fatalf("Expected a queue row for job %d: %v", resp.JobID, err)
		}
		var payload models.CrawlBatchPayload
		json.Unmarshal([]byte(job.Payload), &payload)
		if payload.MaxDepth != 3 || payload.MaxPages != 25 {
			t.Errorf("Expected limits 3/25, got %d/%d", payload.MaxDepth, payload.MaxPages)
		}
	})

	t.Run("Rejects Bad URL", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"url": "not a url"})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest("POST", "/api/crawls", body))
		if status := rr.Code; status != http.StatusBadRequest {
			t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
		}
	})
}

func TestHandleGetCapture(t *testing.T) {
	server, db := testutil.SetupTestServer(t)
	router := server.Router()
	s := store.New(db)

	mine := &models.Capture{
		PublicID: util.NewPublicID(),
		OwnerID:  testOwner,
		URL:      "https://example.com/mine",
		Kind:     models.CaptureKindSingle,
	}
	if err := s.CreateCapture(mine); err != nil {
		t.Fatalf("Failed to seed capture: %v", err)
	}
	theirs := &models.Capture{
		PublicID: util.NewPublicID(),
		OwnerID:  "someone-else",
		URL:      "https://example.com/theirs",
		Kind:     models.CaptureKindSingle,
	}
	if err := s.CreateCapture(theirs); err != nil {
		t.Fatalf("Failed to seed capture: %v", err)
	}

	t.Run("Success", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest("GET", "/api/captures/"+mine.PublicID, nil))

		if status := rr.Code; status != http.StatusOK {
			t.Fatalf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
		}
		var c models.Capture
		if err := json.Unmarshal(rr.Body.Bytes(), &c); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if c.ID != mine.ID {
			t.Errorf("Expected capture %d, got %d", mine.ID, c.ID)
		}
	})

	t.Run("Not Found", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest("GET", "/api/captures/no-such-id", nil))
		if status := rr.Code; status != http.StatusNotFound {
			t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusNotFound)
		}
	})

	t.Run("Hidden From Other Owners", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest("GET", "/api/captures/"+theirs.PublicID, nil))
		if status := rr.Code; status != http.StatusNotFound {
			t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusNotFound)
		}
	})
}

func TestHandleListCaptures(t *testing.T) {
	server, db := testutil.SetupTestServer(t)
	router := server.Router()
	s := store.New(db)

	for i := 0; i < 3; i++ {
		c := &models.Capture{
			PublicID: util.NewPublicID(),
			OwnerID:  testOwner,
			URL:      "https://example.com/page",
			Kind:     models.CaptureKindSingle,
		}
		if err := s.CreateCapture(c); err != nil {
			t.Fatalf("Failed to seed capture: %v", err)
		}
	}
	other := &models.Capture{
		PublicID: util.NewPublicID(),
		OwnerID:  "someone-else",
		URL:      "https://example.com/other",
		Kind:     models.CaptureKindSingle,
	}
	if err := s.CreateCapture(other); err != nil {
		t.Fatalf("Failed to seed capture: %v", err)
	}

	t.Run("Scoped To Owner", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest("GET", "/api/captures", nil))

		if status := rr.Code; status != http.StatusOK {
			t.Fatalf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
		}
		var captures []*models.Capture
		if err := json.Unmarshal(rr.Body.Bytes(), &captures); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if len(captures) != 3 {
			t.Fatalf("Expected 3 captures, got %d", len(captures))
		}
		for _, c := range captures {
			if c.OwnerID != testOwner {
				t.Errorf("Listed a capture belonging to %s", c.OwnerID)
			}
		}
	})

	t.Run("Respects Limit", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest("GET", "/api/captures?limit=2", nil))

		var captures []*models.Capture
		json.Unmarshal(rr.Body.Bytes(), &captures)
		if len(captures) != 2 {
			t.Errorf("Expected 2 captures, got %d", len(captures))
		}
	})
}

func TestHandleGetGroup(t *testing.T) {
	server, db := testutil.SetupTestServer(t)
	router := server.Router()
	s := store.New(db)

	group := &models.CaptureGroup{
		PublicID:      util.NewPublicID(),
		OwnerID:       testOwner,
		Kind:          models.GroupKindFrames,
		BaseURL:       "https://example.com",
		ExpectedTotal: 2,
	}
	if err := s.CreateGroup(group); err != nil {
		t.Fatalf("Failed to seed group: %v", err)
	}

	var memberIDs []int64
	for i := 0; i < 2; i++ {
		c := &models.Capture{
			PublicID: util.NewPublicID(),
			OwnerID:  testOwner,
			GroupID:  &group.ID,
			URL:      "https://example.com",
			Kind:     models.CaptureKindFrame,
		}
		if err := s.CreateCapture(c); err != nil {
			t.Fatalf("Failed to seed member: %v", err)
		}
		memberIDs = append(memberIDs, c.ID)
	}

	// Drive one member to a terminal state; the group's completed
	// count is derived from member rows on every read.
	if err := s.MarkCaptureProcessing(memberIDs[0]); err != nil {
		t.Fatalf("Failed to mark member processing: %v", err)
	}
	err := s.CompleteCapture(memberIDs[0], &models.CaptureResult{
		ImagePath:     "captures/x.png",
		ThumbnailPath: "captures/x_thumb.jpg",
		Width:         800,
		Height:        600,
	})
	if err != nil {
		t.Fatalf("Failed to complete member: %v", err)
	}

	t.Run("Derives Completed Count", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest("GET", "/api/groups/"+group.PublicID, nil))

		if status := rr.Code; status != http.StatusOK {
			t.Fatalf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
		}
		var g models.CaptureGroup
		if err := json.Unmarshal(rr.Body.Bytes(), &g); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if g.CompletedCount != 1 {
			t.Errorf("Expected completed count 1, got %d", g.CompletedCount)
		}
		if g.ExpectedTotal != 2 {
			t.Errorf("Expected expected_total 2, got %d", g.ExpectedTotal)
		}
	})

	t.Run("Not Found", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest("GET", "/api/groups/no-such-id", nil))
		if status := rr.Code; status != http.StatusNotFound {
			t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusNotFound)
		}
	})

	t.Run("Lists Members", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest("GET", "/api/groups/"+group.PublicID+"/captures", nil))

		if status := rr.Code; status != http.StatusOK {
			t.Fatalf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
		}
		var captures []*models.Capture
		if err := json.Unmarshal(rr.Body.Bytes(), &captures); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if len(captures) != 2 {
			t.Errorf("Expected 2 member captures, got %d", len(captures))
		}
	})
}
