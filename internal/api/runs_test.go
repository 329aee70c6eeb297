package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hope-box/frontier/internal/config"
	"github.com/hope-box/frontier/internal/ligands"
	"github.com/hope-box/frontier/internal/store"
)

type mockStore struct {
	runs   map[uuid.UUID]*store.Run
	points map[uuid.UUID][]*store.FrontierPoint
}

func newMockStore() *mockStore {
	return &mockStore{
		runs:   make(map[uuid.UUID]*store.Run),
		points: make(map[uuid.UUID][]*store.FrontierPoint),
	}
}

func (m *mockStore) CreateRun(_ context.Context, run *store.Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	run.CreatedAt = time.Now().UTC()
	run.UpdatedAt = run.CreatedAt
	m.runs[run.ID] = run
	return nil
}

func (m *mockStore) GetRun(_ context.Context, id uuid.UUID) (*store.Run, error) {
	return m.runs[id], nil
}

func (m *mockStore) ListRuns(_ context.Context, filter store.RunFilter) ([]*store.Run, error) {
	var out []*store.Run
	for _, run := range m.runs {
		if filter.Status != nil && run.Status != *filter.Status {
			continue
		}
		if filter.PDBID != "" && run.PDBID != filter.PDBID {
			continue
		}
		if filter.Experiment != "" && run.Experiment != filter.Experiment {
			continue
		}
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *mockStore) UpdateRun(_ context.Context, run *store.Run) error {
	run.UpdatedAt = time.Now().UTC()
	m.runs[run.ID] = run
	return nil
}

func (m *mockStore) ClaimNextQueuedRun(_ context.Context) (*store.Run, error) { return nil, nil }

func (m *mockStore) ReplaceFrontierPoints(_ context.Context, runID uuid.UUID, points []*store.FrontierPoint) error {
	m.points[runID] = points
	return nil
}

func (m *mockStore) GetFrontierPoints(_ context.Context, runID uuid.UUID) ([]*store.FrontierPoint, error) {
	return m.points[runID], nil
}

func (m *mockStore) GetStats(_ context.Context) (*store.ServiceStats, error) {
	stats := &store.ServiceStats{}
	for _, run := range m.runs {
		switch run.Status {
		case store.StatusQueued:
			stats.Queued++
		case store.StatusProcessing:
			stats.Processing++
		case store.StatusCompleted:
			stats.Completed++
		case store.StatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

func (m *mockStore) Close() error { return nil }

type mockEvents struct {
	subjects []string
}

func (m *mockEvents) Publish(subject string, _ interface{}) error {
	m.subjects = append(m.subjects, subject)
	return nil
}

func (m *mockEvents) Subscribe(string, func(string, []byte)) error { return nil }
func (m *mockEvents) Close()                                       {}

type mockLigands struct {
	gotIDs []string
	err    error
}

func (m *mockLigands) Resolve(_ context.Context, ids []string) ([]ligands.Structure, error) {
	m.gotIDs = ids
	if m.err != nil {
		return nil, m.err
	}
	out := make([]ligands.Structure, len(ids))
	for i, id := range ids {
		out[i] = ligands.Structure{LigandID: id, Index: 0, SMILES: "C"}
	}
	return out, nil
}

func testRouter(t *testing.T, s store.Store, e *mockEvents, l ligands.Client) http.Handler {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(s, e, l, cfg, "", logger)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateRunAppliesDefaults(t *testing.T) {
	ms := newMockStore()
	me := &mockEvents{}
	h := testRouter(t, ms, me, nil)

	rec := doJSON(t, h, "POST", "/api/v1/runs", SubmitRunRequest{
		PDBID:       "4bel",
		Experiment:  "test14",
		Epoch:       3,
		SynthCSV:    "filename,SA_score\n7,2.5\n",
		AffinityCSV: "ligand,affinity_kcal/mol\n7.sdf,-9.1\n",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var run store.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if run.Status != store.StatusQueued {
		t.Errorf("status = %q, want queued", run.Status)
	}
	if run.Config.SynthKeyColumn != "filename" || run.Config.AffinityKeyColumn != "ligand" {
		t.Errorf("key columns = %q/%q, want filename/ligand", run.Config.SynthKeyColumn, run.Config.AffinityKeyColumn)
	}
	if run.Config.ObjectiveA != "SA_score" || run.Config.ObjectiveB != "affinity_kcal/mol" {
		t.Errorf("objectives = %q/%q", run.Config.ObjectiveA, run.Config.ObjectiveB)
	}
	if run.Config.Lenient || run.Config.IncludeTies {
		t.Errorf("lenient/ties should default off, got %v/%v", run.Config.Lenient, run.Config.IncludeTies)
	}

	stored := ms.runs[run.ID]
	if stored == nil {
		t.Fatal("run not persisted")
	}
	if stored.SynthCSV == "" || stored.AffinityCSV == "" {
		t.Error("raw tables not stored")
	}
	if len(me.subjects) != 1 || !strings.HasSuffix(me.subjects[0], ".queued") {
		t.Errorf("published subjects = %v, want one .queued", me.subjects)
	}
}

func TestCreateRunOverrides(t *testing.T) {
	ms := newMockStore()
	h := testRouter(t, ms, &mockEvents{}, nil)

	lenient := true
	rec := doJSON(t, h, "POST", "/api/v1/runs", SubmitRunRequest{
		PDBID:      "4bel",
		Experiment: "test14",
		Config: &ConfigOverrides{
			ObjectiveA: "score",
			Lenient:    &lenient,
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var run store.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.Config.ObjectiveA != "score" {
		t.Errorf("ObjectiveA = %q, want score", run.Config.ObjectiveA)
	}
	if !run.Config.Lenient {
		t.Error("Lenient override not applied")
	}
	// Untouched fields keep their defaults.
	if run.Config.ObjectiveB != "affinity_kcal/mol" {
		t.Errorf("ObjectiveB = %q, want default", run.Config.ObjectiveB)
	}
}

func TestCreateRunValidation(t *testing.T) {
	h := testRouter(t, newMockStore(), &mockEvents{}, nil)

	rec := doJSON(t, h, "POST", "/api/v1/runs", SubmitRunRequest{Experiment: "test14"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing pdbid: status = %d, want 400", rec.Code)
	}

	req := httptest.NewRequest("POST", "/api/v1/runs", strings.NewReader("{not json"))
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusBadRequest {
		t.Errorf("bad body: status = %d, want 400", rec2.Code)
	}
}

func TestGetRun(t *testing.T) {
	ms := newMockStore()
	h := testRouter(t, ms, &mockEvents{}, nil)

	run := &store.Run{PDBID: "4bel", Experiment: "test14", Status: store.StatusQueued}
	if err := ms.CreateRun(context.Background(), run); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, h, "GET", "/api/v1/runs/"+run.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, h, "GET", "/api/v1/runs/"+uuid.New().String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown id: status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, h, "GET", "/api/v1/runs/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: status = %d, want 400", rec.Code)
	}
}

func TestListRunsStatusFilter(t *testing.T) {
	ms := newMockStore()
	h := testRouter(t, ms, &mockEvents{}, nil)

	for _, status := range []store.RunStatus{store.StatusQueued, store.StatusCompleted} {
		run := &store.Run{PDBID: "4bel", Experiment: "test14", Status: status}
		if err := ms.CreateRun(context.Background(), run); err != nil {
			t.Fatal(err)
		}
	}

	rec := doJSON(t, h, "GET", "/api/v1/runs?status=completed", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var runs []*store.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != store.StatusCompleted {
		t.Errorf("got %d runs, want 1 completed", len(runs))
	}
}

func TestRankedRequiresCompletion(t *testing.T) {
	ms := newMockStore()
	h := testRouter(t, ms, &mockEvents{}, nil)

	run := &store.Run{PDBID: "4bel", Experiment: "test14", Status: store.StatusQueued}
	if err := ms.CreateRun(context.Background(), run); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, h, "GET", "/api/v1/runs/"+run.ID.String()+"/ranked", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("queued run: status = %d, want 409", rec.Code)
	}

	run.Status = store.StatusCompleted
	run.RankedCSV = "ligand,affinity_kcal/mol\n7.sdf,-9.1\n"
	if err := ms.UpdateRun(context.Background(), run); err != nil {
		t.Fatal(err)
	}

	rec = doJSON(t, h, "GET", "/api/v1/runs/"+run.ID.String()+"/ranked", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("completed run: status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	if rec.Body.String() != run.RankedCSV {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestFrontierJSONAndCSV(t *testing.T) {
	ms := newMockStore()
	h := testRouter(t, ms, &mockEvents{}, nil)

	run := &store.Run{
		PDBID:      "4bel",
		Experiment: "test14",
		Status:     store.StatusCompleted,
		Config:     store.RunConfig{ObjectiveA: "SA_score", ObjectiveB: "affinity_kcal/mol"},
	}
	run.FrontierCSV = "filename,SA_score,affinity_kcal/mol\n7.sdf,1.0,-9.1\n"
	if err := ms.CreateRun(context.Background(), run); err != nil {
		t.Fatal(err)
	}
	ms.points[run.ID] = []*store.FrontierPoint{
		{RunID: run.ID, Rank: 0, LigandID: "7.sdf", ObjA: 1.0, ObjB: -9.1},
	}

	rec := doJSON(t, h, "GET", "/api/v1/runs/"+run.ID.String()+"/frontier", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp frontierResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Size != 1 || resp.ObjectiveA != "SA_score" {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.Points) != 1 || resp.Points[0].LigandID != "7.sdf" {
		t.Errorf("points = %+v", resp.Points)
	}

	rec = doJSON(t, h, "GET", "/api/v1/runs/"+run.ID.String()+"/frontier?format=csv", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != run.FrontierCSV {
		t.Errorf("csv: status = %d, body = %q", rec.Code, rec.Body.String())
	}
}

func TestStructuresResolvesFrontierLigands(t *testing.T) {
	ms := newMockStore()
	ml := &mockLigands{}
	h := testRouter(t, ms, &mockEvents{}, ml)

	run := &store.Run{PDBID: "4bel", Experiment: "test14", Status: store.StatusCompleted}
	if err := ms.CreateRun(context.Background(), run); err != nil {
		t.Fatal(err)
	}
	ms.points[run.ID] = []*store.FrontierPoint{
		{RunID: run.ID, Rank: 0, LigandID: "7.sdf"},
		{RunID: run.ID, Rank: 1, LigandID: "12.sdf"},
	}

	rec := doJSON(t, h, "GET", "/api/v1/runs/"+run.ID.String()+"/structures", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(ml.gotIDs) != 2 || ml.gotIDs[0] != "7.sdf" || ml.gotIDs[1] != "12.sdf" {
		t.Errorf("resolved ids = %v", ml.gotIDs)
	}

	var resp struct {
		Structures []ligands.Structure `json:"structures"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Structures) != 2 {
		t.Errorf("got %d structures, want 2", len(resp.Structures))
	}
}

func TestStructuresWithoutResolver(t *testing.T) {
	ms := newMockStore()
	h := testRouter(t, ms, &mockEvents{}, nil)

	run := &store.Run{PDBID: "4bel", Experiment: "test14", Status: store.StatusCompleted}
	if err := ms.CreateRun(context.Background(), run); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, h, "GET", "/api/v1/runs/"+run.ID.String()+"/structures", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := NewMetricsRouter()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %q", rec.Body.String())
	}
}
