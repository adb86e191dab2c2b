package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseTab(t *testing.T) {
	tests := []struct {
		key   string
		want  Tab
		label string
	}{
		{"dashboard", TabDashboard, "Dashboard"},
		{"marker-gene", TabMarkerGene, "Marker Gene"},
		{"cell-type", TabCellType, "Cell type annotation"},
		{" Cell-Status ", TabCellStatus, "Cell Status"},
		{"ask-ai", TabAskAI, "Ask With AI"},
	}

	for _, tt := range tests {
		got, err := ParseTab(tt.key)
		if err != nil {
			t.Fatalf("ParseTab(%q) error: %v", tt.key, err)
		}
		if got != tt.want {
			t.Errorf("ParseTab(%q) = %v, want %v", tt.key, got, tt.want)
		}
		if got.Label() != tt.label {
			t.Errorf("Label() = %q, want %q", got.Label(), tt.label)
		}
	}
}

func TestParseTabRejectsDisplayLabels(t *testing.T) {
	if _, err := ParseTab("Cell type annotation"); !errors.Is(err, ErrUnknownNavigation) {
		t.Fatalf("expected ErrUnknownNavigation, got %v", err)
	}
}

func TestAllTabsOrder(t *testing.T) {
	got := AllTabs()
	if len(got) != 5 {
		t.Fatalf("expected 5 tabs, got %d", len(got))
	}
	if got[0] != TabDashboard || got[4] != TabAskAI {
		t.Errorf("unexpected order: %v", got)
	}
}

func TestNavigationJSON(t *testing.T) {
	type payload struct {
		View   View   `json:"view"`
		Tab    Tab    `json:"tab"`
		SubTab SubTab `json:"subtab"`
	}

	data, err := json.Marshal(payload{View: ViewDashboard, Tab: TabCellType, SubTab: SubTabPathwayMap})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"view":"dashboard","tab":"cell-type","subtab":"pathway-map"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}

	var p payload
	if err := json.Unmarshal([]byte(`{"view":"landing","tab":"ask-ai","subtab":"visualization"}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.View != ViewLanding || p.Tab != TabAskAI || p.SubTab != SubTabVisualization {
		t.Errorf("unexpected payload: %+v", p)
	}

	if err := json.Unmarshal([]byte(`{"tab":"settings"}`), &p); err == nil {
		t.Error("expected error for unknown tab")
	}
}
