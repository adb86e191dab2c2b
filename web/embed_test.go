package web

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
)

func TestSPAHandlerFallsBackToIndex(t *testing.T) {
	root := fstest.MapFS{
		"index.html":    {Data: []byte("<div id=\"root\"></div>")},
		"assets/app.js": {Data: []byte("console.log('dashboard')")},
	}
	h := spaHandler(root)

	tests := []struct {
		path string
		want string
	}{
		{"/", "id=\"root\""},
		{"/dashboard/marker-gene", "id=\"root\""},
		{"/assets/app.js", "dashboard"},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rr.Code != http.StatusOK {
			t.Errorf("%s: status %d", tt.path, rr.Code)
			continue
		}
		body, _ := io.ReadAll(rr.Body)
		if !strings.Contains(string(body), tt.want) {
			t.Errorf("%s: body %q does not contain %q", tt.path, body, tt.want)
		}
	}
}

func TestSPAHandlerServesEmbeddedIndex(t *testing.T) {
	rr := httptest.NewRecorder()
	SPAHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
}
