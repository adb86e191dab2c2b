package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/genomics-xai/internal/domain"
)

// GetWorkspace returns the caller's navigation snapshot, creating the
// workspace on first contact.
func (h *Handler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.workspaces.Get(workspaceKey(r)).Snapshot())
}

// EnterDashboard leaves the landing page.
func (h *Handler) EnterDashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := h.workspaces.Get(workspaceKey(r)).EnterDashboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}

// LeaveDashboard returns to the landing page.
func (h *Handler) LeaveDashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := h.workspaces.Get(workspaceKey(r)).LeaveDashboard()
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}

type selectTabRequest struct {
	Tab domain.Tab `json:"tab"`
}

// SelectTab switches the dashboard tab.
func (h *Handler) SelectTab(w http.ResponseWriter, r *http.Request) {
	var req selectTabRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	snap, err := h.workspaces.Get(workspaceKey(r)).SelectTab(r.Context(), req.Tab)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}

// GetPanel returns the state of one mounted panel.
func (h *Handler) GetPanel(w http.ResponseWriter, r *http.Request) {
	c, err := h.workspaces.Get(workspaceKey(r)).Panel(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, c.Snapshot())
}

// RefreshStatus re-runs the cell status analysis.
func (h *Handler) RefreshStatus(w http.ResponseWriter, r *http.Request) {
	ws := h.workspaces.Get(workspaceKey(r))
	if err := ws.RefreshStatus(); err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusAccepted, ws.Snapshot())
}

type selectAnnotationRequest struct {
	AnnotationID string `json:"annotation_id"`
}

// SelectAnnotation explains one cluster classification.
func (h *Handler) SelectAnnotation(w http.ResponseWriter, r *http.Request) {
	var req selectAnnotationRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.AnnotationID == "" {
		Error(w, http.StatusBadRequest, "annotation_id is required")
		return
	}
	ws := h.workspaces.Get(workspaceKey(r))
	if err := ws.SelectAnnotation(r.Context(), req.AnnotationID); err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusAccepted, ws.Snapshot())
}

type selectGeneRequest struct {
	Gene string `json:"gene"`
}

// SelectGene explains a marker gene.
func (h *Handler) SelectGene(w http.ResponseWriter, r *http.Request) {
	var req selectGeneRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.Gene == "" {
		Error(w, http.StatusBadRequest, "gene is required")
		return
	}
	ws := h.workspaces.Get(workspaceKey(r))
	if err := ws.SelectGene(r.Context(), req.Gene); err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusAccepted, ws.Snapshot())
}

type setSubTabRequest struct {
	SubTab domain.SubTab `json:"sub_tab"`
}

// SetSubTab switches the marker gene detail pane.
func (h *Handler) SetSubTab(w http.ResponseWriter, r *http.Request) {
	var req setSubTabRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	ws := h.workspaces.Get(workspaceKey(r))
	if err := ws.SetSubTab(req.SubTab); err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, ws.Snapshot())
}

type chatRequest struct {
	Message string `json:"message"`
}

// SendChat posts a message to the assistant. The reply arrives on the panel
// stream; the response only carries the request sequence.
func (h *Handler) SendChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	seq, err := h.workspaces.Get(workspaceKey(r)).SendChat(req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusAccepted, map[string]uint64{"seq": seq})
}

// GetTranscript returns the assistant conversation.
func (h *Handler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	turns, err := h.workspaces.Get(workspaceKey(r)).Transcript()
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, turns)
}
