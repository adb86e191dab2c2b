// Package api provides HTTP handlers for the dashboard API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/genomics-xai/internal/catalog"
	"github.com/ashureev/genomics-xai/internal/config"
	"github.com/ashureev/genomics-xai/internal/domain"
	"github.com/ashureev/genomics-xai/internal/identity"
	"github.com/ashureev/genomics-xai/internal/panel"
	"github.com/ashureev/genomics-xai/internal/workspace"
)

const defaultMaxRequestBodySize = 64 * 1024

// Handler serves the catalog, navigation, panel and chat endpoints.
type Handler struct {
	repo        catalog.Repository
	workspaces  *workspace.Manager
	limiter     *RateLimiter
	cfg         *config.Config
	maxBodySize int64
}

// NewHandler creates a Handler. limiter may be nil to disable throttling.
func NewHandler(repo catalog.Repository, workspaces *workspace.Manager, limiter *RateLimiter, cfg *config.Config) *Handler {
	h := &Handler{
		repo:        repo,
		workspaces:  workspaces,
		limiter:     limiter,
		cfg:         cfg,
		maxBodySize: defaultMaxRequestBodySize,
	}
	if cfg != nil && cfg.MaxRequestBodySize > 0 {
		h.maxBodySize = cfg.MaxRequestBodySize
	}
	return h
}

// RegisterRoutes registers every API route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/config", h.GetConfig)

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/stats", h.Stats)
			r.Get("/experiments", h.Experiments)
			r.Get("/annotations", h.Annotations)
			r.Get("/annotations/{id}", h.Annotation)
			r.Get("/genes", h.Genes)
			r.Get("/genes/{name}", h.Gene)
			r.Get("/pathways", h.Pathways)
			r.Get("/status/metrics", h.StatusMetrics)
			r.Get("/status/flags", h.StatusFlags)
			r.Get("/umap", h.Umap)
		})

		r.Get("/workspace", h.GetWorkspace)
		r.Post("/workspace/leave", h.LeaveDashboard)
		r.Get("/panels/{name}", h.GetPanel)
		r.Get("/chat", h.GetTranscript)

		// Everything below may start a text generation call.
		r.Group(func(r chi.Router) {
			r.Use(h.rateLimit)
			r.Post("/workspace/enter", h.EnterDashboard)
			r.Put("/workspace/tab", h.SelectTab)
			r.Post("/panels/cell-status/refresh", h.RefreshStatus)
			r.Post("/panels/cell-type/select", h.SelectAnnotation)
			r.Post("/panels/marker-gene/gene", h.SelectGene)
			r.Put("/panels/marker-gene/subtab", h.SetSubTab)
			r.Post("/chat", h.SendChat)
		})
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// writeError maps domain errors onto HTTP statuses. Unexpected errors are
// logged and reported as 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var geneErr *catalog.GeneNotFoundError
	switch {
	case errors.As(err, &geneErr):
		body := map[string]string{"error": geneErr.Error()}
		if geneErr.Suggestion != "" {
			body["suggestion"] = geneErr.Suggestion
		}
		JSON(w, http.StatusNotFound, body)
	case errors.Is(err, catalog.ErrNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnknownNavigation):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, panel.ErrEmptyMessage):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, panel.ErrBusy),
		errors.Is(err, workspace.ErrViewNotMounted),
		errors.Is(err, workspace.ErrNotOnDashboard),
		errors.Is(err, workspace.ErrClosed):
		Error(w, http.StatusConflict, err.Error())
	default:
		slog.Error("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"user_id", identity.UserIDFromContext(r.Context()),
			"error", err)
		Error(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads a size-limited JSON body into v and writes the error
// response itself when it fails.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func workspaceKey(r *http.Request) workspace.Key {
	return workspace.Key{
		UserID:    identity.UserIDFromContext(r.Context()),
		SessionID: identity.SessionIDFromContext(r.Context()),
	}
}

// rateLimit throttles by user only, so rotating session ids does not help.
func (h *Handler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.limiter != nil && !h.limiter.Allow(identity.UserIDFromContext(r.Context())) {
			Error(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Health reports catalog connectivity.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		slog.Warn("Health check failed", "error", err)
		Error(w, http.StatusServiceUnavailable, "catalog unavailable")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type navItem struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// GetConfig returns the navigation model and the active text provider.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	tabs := make([]navItem, 0, len(domain.AllTabs()))
	for _, t := range domain.AllTabs() {
		tabs = append(tabs, navItem{Key: t.Key(), Label: t.Label()})
	}
	subTabs := make([]navItem, 0, 3)
	for _, s := range []domain.SubTab{domain.SubTabExplainability, domain.SubTabPathwayMap, domain.SubTabVisualization} {
		subTabs = append(subTabs, navItem{Key: s.Key(), Label: s.Label()})
	}

	resp := map[string]any{
		"tabs":     tabs,
		"sub_tabs": subTabs,
	}
	if h.cfg != nil {
		resp["provider"] = h.cfg.TextGen.Provider
		resp["model"] = h.cfg.TextGen.Model
	}
	JSON(w, http.StatusOK, resp)
}
