package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hope-box/frontier/internal/events"
	"github.com/hope-box/frontier/internal/store"
)

type AdminHandler struct {
	store  store.Store
	events events.Client
}

func NewAdminHandler(s store.Store, e events.Client) *AdminHandler {
	return &AdminHandler{store: s, events: e}
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Requeue puts a failed or completed run back on the queue. Its
// previous outputs and frontier points are overwritten on the next
// pass, so the operation is safe to repeat.
func (h *AdminHandler) Requeue(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid run id"})
		return
	}
	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if run == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}
	if run.Status == store.StatusProcessing {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "run is being processed"})
		return
	}

	run.Status = store.StatusQueued
	run.Error = ""
	run.StartedAt = nil
	run.CompletedAt = nil
	if err := h.store.UpdateRun(r.Context(), run); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectRunRequeued(run.ID.String()), events.RunQueuedEvent{
			RunID:      run.ID.String(),
			PDBID:      run.PDBID,
			Experiment: run.Experiment,
			Epoch:      run.Epoch,
		})
	}

	writeJSON(w, http.StatusOK, run)
}
