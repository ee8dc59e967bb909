package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"styleforge/internal/domain"
	"styleforge/internal/queue"
)

type fakeStyles struct {
	profiles map[string]*domain.StyleProfile
	updates  []domain.StyleProfileUpdate
}

func (f *fakeStyles) Create(_ context.Context, profile *domain.StyleProfile) error {
	if f.profiles == nil {
		f.profiles = map[string]*domain.StyleProfile{}
	}
	f.profiles[profile.ID] = profile
	return nil
}

func (f *fakeStyles) GetByID(_ context.Context, id string) (*domain.StyleProfile, error) {
	if p, ok := f.profiles[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStyles) Update(_ context.Context, _ string, patch domain.StyleProfileUpdate) error {
	f.updates = append(f.updates, patch)
	return nil
}

type fakeGenerations struct {
	byID     map[string]domain.Generation
	statuses map[string]domain.GenerationStatus
}

func (f *fakeGenerations) Insert(context.Context, *domain.Generation) error { return nil }

func (f *fakeGenerations) GetByID(_ context.Context, id string) (*domain.Generation, error) {
	if g, ok := f.byID[id]; ok {
		return &g, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeGenerations) UpdateStatus(_ context.Context, id string, status domain.GenerationStatus) error {
	if f.statuses == nil {
		f.statuses = map[string]domain.GenerationStatus{}
	}
	f.statuses[id] = status
	return nil
}

func (f *fakeGenerations) ListByParent(context.Context, string) ([]domain.Generation, error) {
	return nil, nil
}

func (f *fakeGenerations) ListAcceptedByStyle(context.Context, string, int) ([]domain.Generation, error) {
	return nil, nil
}

type fakeFeedback struct {
	inserted []*domain.FeedbackEntry
}

func (f *fakeFeedback) Insert(_ context.Context, entry *domain.FeedbackEntry) error {
	f.inserted = append(f.inserted, entry)
	return nil
}

func (f *fakeFeedback) ListRecentByStyle(context.Context, string, int, int) ([]domain.FeedbackEntry, error) {
	return nil, nil
}

type fakeJobClient struct {
	lastQueue   domain.Queue
	lastPayload any
	jobID       string
}

func (f *fakeJobClient) Enqueue(_ context.Context, q domain.Queue, payload any) (string, error) {
	f.lastQueue = q
	f.lastPayload = payload
	if f.jobID == "" {
		return "job-1", nil
	}
	return f.jobID, nil
}

func (f *fakeJobClient) GetJob(context.Context, string) (*queue.JobView, error) {
	return nil, domain.ErrNotFound
}

func testApp(styles *fakeStyles, gens *fakeGenerations, feedback *fakeFeedback, jobs *fakeJobClient) *App {
	return NewApp(styles, gens, feedback, nil, jobs, nil, zerolog.New(io.Discard))
}

func testRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/styles", app.CreateStyle)
	r.Patch("/v1/styles/{id}", app.PatchStyle)
	r.Post("/v1/generations", app.CreateGeneration)
	r.Get("/v1/generations/{id}", app.GetGeneration)
	r.Post("/v1/generations/{id}/edits", app.CreateEdits)
	r.Post("/v1/generations/{id}/postprocess", app.CreatePostprocess)
	r.Post("/v1/generations/{id}/feedback", app.SubmitFeedback)
	return r
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateStyleValidation(t *testing.T) {
	app := testApp(&fakeStyles{}, &fakeGenerations{}, &fakeFeedback{}, &fakeJobClient{})
	router := testRouter(app)

	rec := doJSON(t, router, http.MethodPost, "/v1/styles", `{"name":"","user_id":"u1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/styles", `{"name":"Brand","user_id":"u1","references":["https://a.png","  "]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var profile domain.StyleProfile
	if err := json.Unmarshal(rec.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(profile.References) != 1 {
		t.Fatalf("references = %d, want blank ones dropped", len(profile.References))
	}
}

func TestCreateStyleRejectsUnknownFields(t *testing.T) {
	app := testApp(&fakeStyles{}, &fakeGenerations{}, &fakeFeedback{}, &fakeJobClient{})
	rec := doJSON(t, testRouter(app), http.MethodPost, "/v1/styles", `{"name":"x","user_id":"u","bogus":true}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unknown field", rec.Code)
	}
}

func TestCreateGenerationEnqueuesJob(t *testing.T) {
	styles := &fakeStyles{profiles: map[string]*domain.StyleProfile{"s1": {ID: "s1"}}}
	jobs := &fakeJobClient{}
	app := testApp(styles, &fakeGenerations{}, &fakeFeedback{}, jobs)

	rec := doJSON(t, testRouter(app), http.MethodPost, "/v1/generations", `{"style_id":"s1","prompt":"a fox","count":3}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	if jobs.lastQueue != domain.QueueGeneration {
		t.Fatalf("queue = %s, want generation", jobs.lastQueue)
	}
	payload, ok := jobs.lastPayload.(domain.GenerationPayload)
	if !ok {
		t.Fatalf("payload type = %T", jobs.lastPayload)
	}
	if payload.Kind != domain.GenerationKindGenerate || payload.Count != 3 {
		t.Fatalf("payload = %+v", payload)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["job_id"] != "job-1" {
		t.Fatalf("job_id = %q", body["job_id"])
	}
}

func TestCreateGenerationUnknownStyle(t *testing.T) {
	app := testApp(&fakeStyles{}, &fakeGenerations{}, &fakeFeedback{}, &fakeJobClient{})
	rec := doJSON(t, testRouter(app), http.MethodPost, "/v1/generations", `{"style_id":"nope","prompt":"p"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCreateGenerationCountBounds(t *testing.T) {
	styles := &fakeStyles{profiles: map[string]*domain.StyleProfile{"s1": {ID: "s1"}}}
	app := testApp(styles, &fakeGenerations{}, &fakeFeedback{}, &fakeJobClient{})
	router := testRouter(app)

	rec := doJSON(t, router, http.MethodPost, "/v1/generations", `{"style_id":"s1","prompt":"p","count":11}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "between 0 and 10") {
		t.Fatalf("error should state the accepted range, got %s", rec.Body.String())
	}

	// omitted count decodes as zero and means "use the default"
	rec = doJSON(t, router, http.MethodPost, "/v1/generations", `{"style_id":"s1","prompt":"p"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
}

func TestGetGenerationUsesSnakeCaseFields(t *testing.T) {
	provider := "openai"
	gens := &fakeGenerations{byID: map[string]domain.Generation{
		"g1": {ID: "g1", StyleID: "s1", Prompt: "a fox", ImageURL: "https://img.example.com/g1.png", Provider: &provider, Status: domain.GenerationStatusPending},
	}}
	app := testApp(&fakeStyles{}, gens, &fakeFeedback{}, &fakeJobClient{})

	rec := doJSON(t, testRouter(app), http.MethodGet, "/v1/generations/g1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["image_url"] != "https://img.example.com/g1.png" {
		t.Fatalf("image_url = %v, body = %v", body["image_url"], body)
	}
	if body["style_id"] != "s1" || body["status"] != "pending" {
		t.Fatalf("body = %v", body)
	}
	if _, ok := body["ImageURL"]; ok {
		t.Fatalf("response must not expose Go field names: %v", body)
	}
}

func TestCreateEditsUsesParentStyle(t *testing.T) {
	gens := &fakeGenerations{byID: map[string]domain.Generation{
		"g1": {ID: "g1", StyleID: "s1"},
	}}
	jobs := &fakeJobClient{}
	app := testApp(&fakeStyles{}, gens, &fakeFeedback{}, jobs)

	rec := doJSON(t, testRouter(app), http.MethodPost, "/v1/generations/g1/edits", `{"description":"night scene","preserve_aspects":["the fox"]}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	payload := jobs.lastPayload.(domain.GenerationPayload)
	if payload.Kind != domain.GenerationKindEditVariants || payload.StyleID != "s1" {
		t.Fatalf("payload = %+v", payload)
	}
	if payload.ParentID == nil || *payload.ParentID != "g1" {
		t.Fatalf("parent id = %v", payload.ParentID)
	}
}

func TestCreatePostprocessValidatesOp(t *testing.T) {
	gens := &fakeGenerations{byID: map[string]domain.Generation{"g1": {ID: "g1"}}}
	jobs := &fakeJobClient{}
	app := testApp(&fakeStyles{}, gens, &fakeFeedback{}, jobs)
	router := testRouter(app)

	rec := doJSON(t, router, http.MethodPost, "/v1/generations/g1/postprocess", `{"op":"sharpen"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/generations/g1/postprocess", `{"op":"vectorize"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if jobs.lastQueue != domain.QueuePostprocess {
		t.Fatalf("queue = %s, want postprocess", jobs.lastQueue)
	}
}

func TestSubmitFeedbackFlipsStatus(t *testing.T) {
	gens := &fakeGenerations{byID: map[string]domain.Generation{"g1": {ID: "g1", StyleID: "s1"}}}
	feedback := &fakeFeedback{}
	app := testApp(&fakeStyles{}, gens, feedback, &fakeJobClient{})
	router := testRouter(app)

	rec := doJSON(t, router, http.MethodPost, "/v1/generations/g1/feedback", `{"type":"accepted"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(feedback.inserted) != 1 {
		t.Fatalf("inserted = %d, want 1", len(feedback.inserted))
	}
	if gens.statuses["g1"] != domain.GenerationStatusAccepted {
		t.Fatalf("status = %s, want accepted", gens.statuses["g1"])
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/generations/g1/feedback", `{"type":"rejected","rejection":{"reason":"off palette"}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if gens.statuses["g1"] != domain.GenerationStatusRejected {
		t.Fatalf("status = %s, want rejected", gens.statuses["g1"])
	}
}

func TestSubmitFeedbackRejectsMixedPayload(t *testing.T) {
	gens := &fakeGenerations{byID: map[string]domain.Generation{"g1": {ID: "g1"}}}
	app := testApp(&fakeStyles{}, gens, &fakeFeedback{}, &fakeJobClient{})

	rec := doJSON(t, testRouter(app), http.MethodPost, "/v1/generations/g1/feedback",
		`{"type":"accepted","edit":{"description":"x"}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPatchStyleRequiresAField(t *testing.T) {
	styles := &fakeStyles{profiles: map[string]*domain.StyleProfile{"s1": {ID: "s1"}}}
	app := testApp(styles, &fakeGenerations{}, &fakeFeedback{}, &fakeJobClient{})
	router := testRouter(app)

	rec := doJSON(t, router, http.MethodPatch, "/v1/styles/s1", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPatch, "/v1/styles/s1", `{"name":"Rebrand"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(styles.updates) != 1 || styles.updates[0].Name == nil || *styles.updates[0].Name != "Rebrand" {
		t.Fatalf("updates = %+v", styles.updates)
	}
	if styles.updates[0].MasterPrompt != nil {
		t.Fatalf("patch must not touch derived fields")
	}
}
