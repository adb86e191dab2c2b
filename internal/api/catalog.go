package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Stats returns the dashboard home counters.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, stats)
}

// Experiments returns the recent experiments table.
func (h *Handler) Experiments(w http.ResponseWriter, r *http.Request) {
	exps, err := h.repo.Experiments(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, exps)
}

// Annotations returns every cluster annotation.
func (h *Handler) Annotations(w http.ResponseWriter, r *http.Request) {
	anns, err := h.repo.Annotations(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, anns)
}

// Annotation returns a single annotation.
func (h *Handler) Annotation(w http.ResponseWriter, r *http.Request) {
	ann, err := h.repo.Annotation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, ann)
}

// Genes returns the ranked marker genes.
func (h *Handler) Genes(w http.ResponseWriter, r *http.Request) {
	genes, err := h.repo.MarkerGenes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, genes)
}

// Gene looks up one marker gene. A miss answers 404 with the closest name
// when there is one.
func (h *Handler) Gene(w http.ResponseWriter, r *http.Request) {
	gene, err := h.repo.Gene(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, gene)
}

// Pathways returns the linked pathways.
func (h *Handler) Pathways(w http.ResponseWriter, r *http.Request) {
	pws, err := h.repo.Pathways(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, pws)
}

// StatusMetrics returns the cell status quick metrics.
func (h *Handler) StatusMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.repo.StatusMetrics(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, metrics)
}

// StatusFlags returns the diagnostic notes.
func (h *Handler) StatusFlags(w http.ResponseWriter, r *http.Request) {
	flags, err := h.repo.StatusFlags(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, flags)
}

// Umap returns a freshly sampled projection.
func (h *Handler) Umap(w http.ResponseWriter, r *http.Request) {
	umap, err := h.repo.Umap(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, umap)
}
