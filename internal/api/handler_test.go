package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ashureev/genomics-xai/internal/catalog"
	"github.com/ashureev/genomics-xai/internal/domain"
	"github.com/ashureev/genomics-xai/internal/panel"
	"github.com/ashureev/genomics-xai/internal/workspace"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("annotation 9: %w", catalog.ErrNotFound), http.StatusNotFound},
		{"gene", &catalog.GeneNotFoundError{Name: "TP35", Suggestion: "TP53"}, http.StatusNotFound},
		{"navigation", domain.ErrUnknownNavigation, http.StatusBadRequest},
		{"empty message", panel.ErrEmptyMessage, http.StatusBadRequest},
		{"busy", panel.ErrBusy, http.StatusConflict},
		{"not mounted", workspace.ErrViewNotMounted, http.StatusConflict},
		{"landing", workspace.ErrNotOnDashboard, http.StatusConflict},
		{"closed", workspace.ErrClosed, http.StatusConflict},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/x", nil)
			writeError(w, r, tt.err)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			var body map[string]string
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["error"] == "" {
				t.Fatal("missing error message")
			}
			if tt.want == http.StatusInternalServerError && body["error"] != "internal error" {
				t.Errorf("internal details leaked: %q", body["error"])
			}
		})
	}
}

func TestWriteErrorSuggestion(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/catalog/genes/TP35", nil)
	writeError(w, r, &catalog.GeneNotFoundError{Name: "TP35", Suggestion: "TP53"})

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["suggestion"] != "TP53" {
		t.Errorf("suggestion = %q", body["suggestion"])
	}
}
