package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownNavigation is returned when a view, tab or sub-tab key is not recognised.
var ErrUnknownNavigation = errors.New("unknown navigation target")

// View is a top-level application view.
type View int

const (
	// ViewLanding is the marketing landing page shown before entering the dashboard.
	ViewLanding View = iota
	// ViewDashboard is the tabbed analysis dashboard.
	ViewDashboard
)

var viewKeys = map[View]string{
	ViewLanding:   "landing",
	ViewDashboard: "dashboard",
}

// String returns the routing key of the view.
func (v View) String() string {
	if k, ok := viewKeys[v]; ok {
		return k
	}
	return fmt.Sprintf("view(%d)", int(v))
}

// MarshalText implements encoding.TextMarshaler.
func (v View) MarshalText() ([]byte, error) {
	if _, ok := viewKeys[v]; !ok {
		return nil, fmt.Errorf("%w: view %d", ErrUnknownNavigation, int(v))
	}
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *View) UnmarshalText(b []byte) error {
	parsed, err := ParseView(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseView resolves a routing key into a View.
func ParseView(key string) (View, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	for v, k := range viewKeys {
		if k == key {
			return v, nil
		}
	}
	return ViewLanding, fmt.Errorf("%w: view %q", ErrUnknownNavigation, key)
}

// Tab is a dashboard tab. The routing key and the display label are kept apart
// so labels can change without breaking clients.
type Tab int

const (
	TabDashboard Tab = iota
	TabMarkerGene
	TabCellType
	TabCellStatus
	TabAskAI
)

type tabInfo struct {
	key   string
	label string
}

var tabs = []tabInfo{
	TabDashboard:  {key: "dashboard", label: "Dashboard"},
	TabMarkerGene: {key: "marker-gene", label: "Marker Gene"},
	TabCellType:   {key: "cell-type", label: "Cell type annotation"},
	TabCellStatus: {key: "cell-status", label: "Cell Status"},
	TabAskAI:      {key: "ask-ai", label: "Ask With AI"},
}

// AllTabs returns the dashboard tabs in sidebar order.
func AllTabs() []Tab {
	out := make([]Tab, len(tabs))
	for i := range tabs {
		out[i] = Tab(i)
	}
	return out
}

func (t Tab) valid() bool {
	return t >= 0 && int(t) < len(tabs)
}

// Key returns the stable routing key of the tab.
func (t Tab) Key() string {
	if !t.valid() {
		return fmt.Sprintf("tab(%d)", int(t))
	}
	return tabs[t].key
}

// Label returns the human readable tab title.
func (t Tab) Label() string {
	if !t.valid() {
		return ""
	}
	return tabs[t].label
}

func (t Tab) String() string { return t.Key() }

// MarshalText implements encoding.TextMarshaler.
func (t Tab) MarshalText() ([]byte, error) {
	if !t.valid() {
		return nil, fmt.Errorf("%w: tab %d", ErrUnknownNavigation, int(t))
	}
	return []byte(t.Key()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tab) UnmarshalText(b []byte) error {
	parsed, err := ParseTab(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTab resolves a routing key into a Tab.
func ParseTab(key string) (Tab, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	for i, info := range tabs {
		if info.key == key {
			return Tab(i), nil
		}
	}
	return TabDashboard, fmt.Errorf("%w: tab %q", ErrUnknownNavigation, key)
}

// SubTab selects the marker-gene detail pane.
type SubTab int

const (
	SubTabExplainability SubTab = iota
	SubTabPathwayMap
	SubTabVisualization
)

var subTabs = []tabInfo{
	SubTabExplainability: {key: "explainability", label: "Explainability"},
	SubTabPathwayMap:     {key: "pathway-map", label: "Pathway Map"},
	SubTabVisualization:  {key: "visualization", label: "Visualization"},
}

func (s SubTab) valid() bool {
	return s >= 0 && int(s) < len(subTabs)
}

// Key returns the routing key of the sub-tab.
func (s SubTab) Key() string {
	if !s.valid() {
		return fmt.Sprintf("subtab(%d)", int(s))
	}
	return subTabs[s].key
}

// Label returns the display label of the sub-tab.
func (s SubTab) Label() string {
	if !s.valid() {
		return ""
	}
	return subTabs[s].label
}

func (s SubTab) String() string { return s.Key() }

// MarshalText implements encoding.TextMarshaler.
func (s SubTab) MarshalText() ([]byte, error) {
	if !s.valid() {
		return nil, fmt.Errorf("%w: subtab %d", ErrUnknownNavigation, int(s))
	}
	return []byte(s.Key()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SubTab) UnmarshalText(b []byte) error {
	parsed, err := ParseSubTab(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSubTab resolves a routing key into a SubTab.
func ParseSubTab(key string) (SubTab, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	for i, info := range subTabs {
		if info.key == key {
			return SubTab(i), nil
		}
	}
	return SubTabExplainability, fmt.Errorf("%w: subtab %q", ErrUnknownNavigation, key)
}
