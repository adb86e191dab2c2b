// Package workspace holds the per-tab view state of an anonymous visitor:
// the top-level view, the active dashboard tab and the panels of the mounted
// view.
package workspace

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/genomics-xai/internal/audit"
	"github.com/ashureev/genomics-xai/internal/catalog"
	"github.com/ashureev/genomics-xai/internal/domain"
	"github.com/ashureev/genomics-xai/internal/panel"
	"github.com/ashureev/genomics-xai/internal/textgen"
)

var (
	// ErrViewNotMounted is returned when an action targets a view that is not open.
	ErrViewNotMounted = errors.New("view is not mounted")
	// ErrNotOnDashboard is returned for tab actions while the landing page is shown.
	ErrNotOnDashboard = errors.New("dashboard is not open")
	// ErrClosed is returned by a workspace that has been evicted.
	ErrClosed = errors.New("workspace closed")
)

// Key identifies a workspace: one browser tab of one anonymous visitor.
type Key struct {
	UserID    string
	SessionID string
}

func (k Key) String() string {
	return k.UserID + ":" + k.SessionID
}

// EventType distinguishes pushed events.
type EventType string

const (
	EventNavigation EventType = "navigation"
	EventPanel      EventType = "panel"
	EventTranscript EventType = "transcript"
)

// Event is a change pushed to the visitor's streams.
type Event struct {
	Type       EventType    `json:"type"`
	Navigation *Snapshot    `json:"navigation,omitempty"`
	Panel      *panel.State `json:"panel,omitempty"`
	Transcript []panel.Turn `json:"transcript,omitempty"`
}

// Publisher delivers events to whoever is listening for a workspace.
// Publish must not block and must not call back into the workspace.
type Publisher interface {
	Publish(key Key, ev Event)
}

// Deps are the collaborators shared by every workspace.
type Deps struct {
	Generator textgen.Generator
	Catalog   catalog.Repository
	Audit     audit.Recorder
	Publisher Publisher
	Logger    *slog.Logger
}

// Snapshot is the full state of a workspace.
type Snapshot struct {
	View         domain.View    `json:"view"`
	Tab          domain.Tab     `json:"tab"`
	TabLabel     string         `json:"tab_label"`
	Panels       []panel.State  `json:"panels"`
	AnnotationID string         `json:"annotation_id,omitempty"`
	Gene         string         `json:"gene,omitempty"`
	SubTab       *domain.SubTab `json:"sub_tab,omitempty"`
	Transcript   []panel.Turn   `json:"transcript,omitempty"`
}

// Workspace is the view state of one browser tab. It is safe for concurrent
// use.
type Workspace struct {
	key    Key
	deps   Deps
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	view     domain.View
	tab      domain.Tab
	mounted  view
	closed   bool
	lastSeen time.Time
}

func newWorkspace(key Key, deps Deps) *Workspace {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Audit == nil {
		deps.Audit = audit.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Workspace{
		key:      key,
		deps:     deps,
		logger:   deps.Logger.With("user_id", key.UserID, "session_id", key.SessionID),
		ctx:      ctx,
		cancel:   cancel,
		view:     domain.ViewLanding,
		tab:      domain.TabDashboard,
		lastSeen: time.Now(),
	}
}

// Key returns the workspace key.
func (w *Workspace) Key() Key {
	return w.key
}

// Snapshot returns the current view state.
func (w *Workspace) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// EnterDashboard leaves the landing page and mounts the active tab.
func (w *Workspace) EnterDashboard(ctx context.Context) (Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.touchLocked(); err != nil {
		return Snapshot{}, err
	}
	if w.view == domain.ViewDashboard {
		return w.snapshotLocked(), nil
	}

	w.view = domain.ViewDashboard
	w.mountLocked(ctx, w.tab)
	w.logger.Info("Dashboard entered", "tab", w.tab)
	return w.navigatedLocked(), nil
}

// LeaveDashboard unmounts the current view and returns to the landing page.
// The active tab is reset to the dashboard home.
func (w *Workspace) LeaveDashboard() (Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.touchLocked(); err != nil {
		return Snapshot{}, err
	}
	if w.view == domain.ViewLanding {
		return w.snapshotLocked(), nil
	}

	w.unmountLocked()
	w.view = domain.ViewLanding
	w.tab = domain.TabDashboard
	w.logger.Info("Dashboard left")
	return w.navigatedLocked(), nil
}

// SelectTab switches the dashboard tab. The previous view is unmounted, which
// resets its panels and drops its transcript. Selecting the active tab is a
// no-op.
func (w *Workspace) SelectTab(ctx context.Context, tab domain.Tab) (Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.touchLocked(); err != nil {
		return Snapshot{}, err
	}
	if w.view != domain.ViewDashboard {
		return Snapshot{}, ErrNotOnDashboard
	}
	if tab == w.tab && w.mounted != nil {
		return w.snapshotLocked(), nil
	}

	w.unmountLocked()
	w.tab = tab
	w.mountLocked(ctx, tab)
	w.logger.Info("Tab selected", "tab", tab)
	return w.navigatedLocked(), nil
}

// RefreshStatus re-issues the cell status analysis.
func (w *Workspace) RefreshStatus() error {
	v, err := mountedAs[*cellStatusView](w)
	if err != nil {
		return err
	}
	return v.refresh()
}

// SelectAnnotation explains the classification of one cluster.
func (w *Workspace) SelectAnnotation(ctx context.Context, id string) error {
	v, err := mountedAs[*cellTypeView](w)
	if err != nil {
		return err
	}
	return v.selectAnnotation(ctx, id)
}

// SelectGene explains a marker gene in the active sub-tab.
func (w *Workspace) SelectGene(ctx context.Context, name string) error {
	v, err := mountedAs[*markerGeneView](w)
	if err != nil {
		return err
	}
	return v.selectGene(ctx, name)
}

// SetSubTab switches the marker gene detail pane.
func (w *Workspace) SetSubTab(sub domain.SubTab) error {
	v, err := mountedAs[*markerGeneView](w)
	if err != nil {
		return err
	}
	return v.setSubTab(sub)
}

// SendChat posts a message to the assistant.
func (w *Workspace) SendChat(message string) (uint64, error) {
	v, err := mountedAs[*assistantView](w)
	if err != nil {
		return 0, err
	}
	return v.chat.Send(message)
}

// Transcript returns the assistant conversation of the mounted chat.
func (w *Workspace) Transcript() ([]panel.Turn, error) {
	v, err := mountedAs[*assistantView](w)
	if err != nil {
		return nil, err
	}
	return v.chat.Transcript(), nil
}

// Panel returns the controller of a mounted panel.
func (w *Workspace) Panel(name string) (*panel.Controller, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrClosed
	}
	if w.mounted == nil {
		return nil, ErrViewNotMounted
	}
	for _, c := range w.mounted.panels() {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, ErrViewNotMounted
}

// Close unmounts the view and cancels every in-flight request.
func (w *Workspace) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.unmountLocked()
	w.closed = true
	w.cancel()
}

func (w *Workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}

func (w *Workspace) touch() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.touchLocked()
}

func (w *Workspace) touchLocked() error {
	if w.closed {
		return ErrClosed
	}
	w.lastSeen = time.Now()
	return nil
}

// mountedAs returns the mounted view if it has type V. The workspace lock is
// released before the view is used so panel callbacks never wait on it.
func mountedAs[V view](w *Workspace) (V, error) {
	var zero V
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.touchLocked(); err != nil {
		return zero, err
	}
	v, ok := w.mounted.(V)
	if !ok || w.view != domain.ViewDashboard {
		return zero, ErrViewNotMounted
	}
	return v, nil
}

func (w *Workspace) mountLocked(ctx context.Context, tab domain.Tab) {
	opts := w.panelOptions()
	switch tab {
	case domain.TabCellStatus:
		w.mounted = mountCellStatus(opts)
	case domain.TabCellType:
		w.mounted = mountCellType(ctx, w.deps.Catalog, w.logger, opts)
	case domain.TabMarkerGene:
		w.mounted = mountMarkerGene(w.deps.Catalog, opts)
	case domain.TabAskAI:
		w.mounted = mountAssistant(w.publishTranscript, opts)
	default:
		w.mounted = dashboardView{}
	}
}

func (w *Workspace) unmountLocked() {
	if w.mounted == nil {
		return
	}
	w.mounted.unmount()
	w.mounted = nil
}

func (w *Workspace) panelOptions() panelDeps {
	return panelDeps{
		gen: w.deps.Generator,
		opts: []panel.Option{
			panel.WithContext(w.ctx),
			panel.WithLogger(w.logger),
			panel.WithObserver(w.publishPanel),
			panel.WithTracer(w.recordTrace),
		},
	}
}

func (w *Workspace) snapshotLocked() Snapshot {
	s := Snapshot{
		View:     w.view,
		Tab:      w.tab,
		TabLabel: w.tab.Label(),
		Panels:   []panel.State{},
	}
	if w.mounted != nil {
		for _, c := range w.mounted.panels() {
			s.Panels = append(s.Panels, c.Snapshot())
		}
		w.mounted.fill(&s)
	}
	return s
}

func (w *Workspace) navigatedLocked() Snapshot {
	s := w.snapshotLocked()
	w.publish(Event{Type: EventNavigation, Navigation: &s})
	return s
}

func (w *Workspace) publish(ev Event) {
	if w.deps.Publisher != nil {
		w.deps.Publisher.Publish(w.key, ev)
	}
}

func (w *Workspace) publishPanel(s panel.State) {
	w.publish(Event{Type: EventPanel, Panel: &s})
}

func (w *Workspace) publishTranscript(turns []panel.Turn) {
	w.publish(Event{Type: EventTranscript, Transcript: turns})
}

func (w *Workspace) recordTrace(tr panel.Trace) {
	ev := audit.Event{
		UserID:      w.key.UserID,
		SessionID:   w.key.SessionID,
		Panel:       tr.Panel,
		Seq:         tr.Seq,
		RequestID:   tr.RequestID,
		Phase:       string(tr.Phase),
		PromptChars: tr.PromptChars,
		ResultChars: tr.ResultChars,
		LatencyMS:   tr.Latency.Milliseconds(),
	}
	// Chat subjects are the visitor's own words.
	if tr.Panel != PanelAssistant {
		ev.Subject = tr.Subject
	}
	if tr.Err != nil {
		ev.Error = tr.Err.Error()
	}
	w.deps.Audit.Record(ev)
}
