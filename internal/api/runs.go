package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hope-box/frontier/internal/config"
	"github.com/hope-box/frontier/internal/events"
	"github.com/hope-box/frontier/internal/ligands"
	"github.com/hope-box/frontier/internal/store"
)

type RunsHandler struct {
	store   store.Store
	events  events.Client
	ligands ligands.Client
	cfg     *config.Config
}

func NewRunsHandler(s store.Store, e events.Client, l ligands.Client, cfg *config.Config) *RunsHandler {
	return &RunsHandler{store: s, events: e, ligands: l, cfg: cfg}
}

// ConfigOverrides lets a submitter replace any of the service's
// default join/objective columns for one run. Zero values keep the
// default.
type ConfigOverrides struct {
	SynthKeyColumn    string `json:"synth_key_column,omitempty"`
	AffinityKeyColumn string `json:"affinity_key_column,omitempty"`
	ObjectiveA        string `json:"objective_a,omitempty"`
	ObjectiveB        string `json:"objective_b,omitempty"`
	StructureSuffix   string `json:"structure_suffix,omitempty"`
	Lenient           *bool  `json:"lenient,omitempty"`
	IncludeTies       *bool  `json:"include_ties,omitempty"`
}

type SubmitRunRequest struct {
	PDBID            string           `json:"pdbid"`
	Experiment       string           `json:"experiment"`
	Epoch            int              `json:"epoch,omitempty"`
	NumGen           int              `json:"num_gen,omitempty"`
	KnownBindingSite string           `json:"known_binding_site,omitempty"`
	SynthCSV         string           `json:"synth_csv"`
	AffinityCSV      string           `json:"affinity_csv"`
	Config           *ConfigOverrides `json:"config,omitempty"`
}

func (h *RunsHandler) runConfig(o *ConfigOverrides) store.RunConfig {
	d := h.cfg.Docking
	rc := store.RunConfig{
		SynthKeyColumn:    d.SynthKeyColumn,
		AffinityKeyColumn: d.AffinityKeyColumn,
		ObjectiveA:        d.ObjectiveA,
		ObjectiveB:        d.ObjectiveB,
		StructureSuffix:   d.StructureSuffix,
		SynthSuffix:       d.SynthSuffix,
		AffinitySuffix:    d.AffinitySuffix,
		Lenient:           h.cfg.Pipeline.Lenient,
		IncludeTies:       h.cfg.Pipeline.IncludeTies,
	}
	if o == nil {
		return rc
	}
	if o.SynthKeyColumn != "" {
		rc.SynthKeyColumn = o.SynthKeyColumn
	}
	if o.AffinityKeyColumn != "" {
		rc.AffinityKeyColumn = o.AffinityKeyColumn
	}
	if o.ObjectiveA != "" {
		rc.ObjectiveA = o.ObjectiveA
	}
	if o.ObjectiveB != "" {
		rc.ObjectiveB = o.ObjectiveB
	}
	if o.StructureSuffix != "" {
		rc.StructureSuffix = o.StructureSuffix
	}
	if o.Lenient != nil {
		rc.Lenient = *o.Lenient
	}
	if o.IncludeTies != nil {
		rc.IncludeTies = *o.IncludeTies
	}
	return rc
}

func (h *RunsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req SubmitRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.PDBID == "" || req.Experiment == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "pdbid and experiment required"})
		return
	}

	run := &store.Run{
		PDBID:            req.PDBID,
		Experiment:       req.Experiment,
		Epoch:            req.Epoch,
		NumGen:           req.NumGen,
		KnownBindingSite: req.KnownBindingSite,
		Status:           store.StatusQueued,
		Config:           h.runConfig(req.Config),
		SynthCSV:         req.SynthCSV,
		AffinityCSV:      req.AffinityCSV,
	}

	if err := h.store.CreateRun(r.Context(), run); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectRunQueued(run.ID.String()), events.RunQueuedEvent{
			RunID:      run.ID.String(),
			PDBID:      run.PDBID,
			Experiment: run.Experiment,
			Epoch:      run.Epoch,
		})
	}

	writeJSON(w, http.StatusCreated, run)
}

func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := store.RunFilter{
		PDBID:      r.URL.Query().Get("pdbid"),
		Experiment: r.URL.Query().Get("experiment"),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := store.RunStatus(s)
		filter.Status = &status
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Offset = n
		}
	}

	runs, err := h.store.ListRuns(r.Context(), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// Ranked serves the affinity-ordered table of a completed run as CSV,
// header row preserved.
func (h *RunsHandler) Ranked(w http.ResponseWriter, r *http.Request) {
	run, ok := h.completedRun(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	_, _ = w.Write([]byte(run.RankedCSV))
}

type frontierResponse struct {
	RunID      string                 `json:"run_id"`
	ObjectiveA string                 `json:"objective_a"`
	ObjectiveB string                 `json:"objective_b"`
	Size       int                    `json:"size"`
	Points     []*store.FrontierPoint `json:"points"`
}

// Frontier serves the Pareto-optimal subset of a completed run, in
// ascending objective-A order. JSON by default, the full merged rows
// as CSV with ?format=csv.
func (h *RunsHandler) Frontier(w http.ResponseWriter, r *http.Request) {
	run, ok := h.completedRun(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(run.FrontierCSV))
		return
	}

	points, err := h.store.GetFrontierPoints(r.Context(), run.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if points == nil {
		points = []*store.FrontierPoint{}
	}
	writeJSON(w, http.StatusOK, frontierResponse{
		RunID:      run.ID.String(),
		ObjectiveA: run.Config.ObjectiveA,
		ObjectiveB: run.Config.ObjectiveB,
		Size:       len(points),
		Points:     points,
	})
}

// Structures resolves the frontier's ligand identifiers through the
// external structure resolver. The identifier set is all this service
// contributes; structure files stay on the resolver's side.
func (h *RunsHandler) Structures(w http.ResponseWriter, r *http.Request) {
	run, ok := h.completedRun(w, r)
	if !ok {
		return
	}
	if h.ligands == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "structure resolver not configured"})
		return
	}

	points, err := h.store.GetFrontierPoints(r.Context(), run.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	ids := make([]string, len(points))
	for i, p := range points {
		ids[i] = p.LigandID
	}

	structures, err := h.ligands.Resolve(r.Context(), ids)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	if structures == nil {
		structures = []ligands.Structure{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":     run.ID.String(),
		"structures": structures,
	})
}

func (h *RunsHandler) lookupRun(w http.ResponseWriter, r *http.Request) (*store.Run, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid run id"})
		return nil, false
	}
	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return nil, false
	}
	if run == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return nil, false
	}
	return run, true
}

func (h *RunsHandler) completedRun(w http.ResponseWriter, r *http.Request) (*store.Run, bool) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return nil, false
	}
	if run.Status != store.StatusCompleted {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":  "run has no results yet",
			"status": string(run.Status),
		})
		return nil, false
	}
	return run, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
