package workspace

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ashureev/genomics-xai/internal/audit"
	"github.com/ashureev/genomics-xai/internal/catalog"
	"github.com/ashureev/genomics-xai/internal/domain"
	"github.com/ashureev/genomics-xai/internal/panel"
	"github.com/ashureev/genomics-xai/internal/textgen"
)

// fakeGen records prompts and answers "**answer** to <prompt>". When gate is
// set every call waits for it or for cancellation.
type fakeGen struct {
	mu      sync.Mutex
	prompts []string
	gate    chan struct{}
}

func (g *fakeGen) Generate(ctx context.Context, req textgen.Request) (*textgen.Response, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, req.Prompt)
	gate := g.gate
	g.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &textgen.Response{Text: "**answer** to " + req.Prompt}, nil
}

func (g *fakeGen) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(key Key, ev Event) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

func (p *recordingPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAudit) Record(ev audit.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordingAudit) Close() error { return nil }

func (r *recordingAudit) Events() []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Event(nil), r.events...)
}

type fixture struct {
	gen   *fakeGen
	pub   *recordingPublisher
	audit *recordingAudit
	ws    *Workspace
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := catalog.NewSQLite(":memory:", catalog.NewUmapGenerator(1, catalog.DefaultClusters))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	f := &fixture{gen: &fakeGen{}, pub: &recordingPublisher{}, audit: &recordingAudit{}}
	f.ws = newWorkspace(Key{UserID: "u1", SessionID: "s1"}, Deps{
		Generator: f.gen,
		Catalog:   repo,
		Audit:     f.audit,
		Publisher: f.pub,
	})
	t.Cleanup(f.ws.Close)
	return f
}

func (f *fixture) openTab(t *testing.T, tab domain.Tab) Snapshot {
	t.Helper()
	ctx := context.Background()
	_, err := f.ws.EnterDashboard(ctx)
	require.NoError(t, err)
	s, err := f.ws.SelectTab(ctx, tab)
	require.NoError(t, err)
	return s
}

func (f *fixture) settle(t *testing.T, name string) panel.State {
	t.Helper()
	c, err := f.ws.Panel(name)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := c.Wait(ctx)
	require.NoError(t, err)
	return s
}

func TestWorkspaceStartsOnLanding(t *testing.T) {
	f := newFixture(t)
	s := f.ws.Snapshot()
	require.Equal(t, domain.ViewLanding, s.View)
	require.Equal(t, domain.TabDashboard, s.Tab)
	require.Empty(t, s.Panels)

	_, err := f.ws.SelectTab(context.Background(), domain.TabCellStatus)
	require.ErrorIs(t, err, ErrNotOnDashboard)
}

func TestEnterAndLeaveDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.ws.EnterDashboard(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.ViewDashboard, s.View)
	require.Equal(t, "Dashboard", s.TabLabel)
	require.Empty(t, f.gen.Prompts())

	_, err = f.ws.SelectTab(ctx, domain.TabMarkerGene)
	require.NoError(t, err)

	s, err = f.ws.LeaveDashboard()
	require.NoError(t, err)
	require.Equal(t, domain.ViewLanding, s.View)
	require.Equal(t, domain.TabDashboard, s.Tab)
	require.Empty(t, s.Panels)

	events := f.pub.Events()
	var nav int
	for _, ev := range events {
		if ev.Type == EventNavigation {
			nav++
		}
	}
	require.Equal(t, 3, nav)
}

func TestCellStatusSubmitsOnMount(t *testing.T) {
	f := newFixture(t)
	f.gen.gate = make(chan struct{})

	s := f.openTab(t, domain.TabCellStatus)
	require.Len(t, s.Panels, 1)
	require.Equal(t, PanelCellStatus, s.Panels[0].Panel)
	require.Equal(t, panel.StatusLoading, s.Panels[0].Status)

	close(f.gen.gate)
	st := f.settle(t, PanelCellStatus)
	require.Equal(t, panel.StatusReady, st.Status)
	require.Equal(t, "answer to "+cellStatusPrompt, st.Result)

	require.NoError(t, f.ws.RefreshStatus())
	f.settle(t, PanelCellStatus)
	require.Len(t, f.gen.Prompts(), 2)
}

func TestCellTypeSelectsFirstAnnotation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.openTab(t, domain.TabCellType)
	require.Equal(t, "1", s.AnnotationID)
	st := f.settle(t, PanelCellType)
	require.Equal(t, panel.StatusReady, st.Status)
	require.NotNil(t, st.Sections)
	require.Contains(t, f.gen.Prompts()[0], "Explain the classification of Cluster 0.")
	require.Contains(t, f.gen.Prompts()[0], "'BIOLOGICAL_EVIDENCE' and 'MODEL_INFERENCE'")

	require.NoError(t, f.ws.SelectAnnotation(ctx, "3"))
	st = f.settle(t, PanelCellType)
	require.Equal(t, "Cluster 2", st.Subject)
	require.Equal(t, "3", f.ws.Snapshot().AnnotationID)

	err := f.ws.SelectAnnotation(ctx, "42")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestMarkerGeneSubTabs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.openTab(t, domain.TabMarkerGene)
	require.Len(t, s.Panels, 2)
	require.NotNil(t, s.SubTab)
	require.Equal(t, domain.SubTabExplainability, *s.SubTab)
	require.Empty(t, f.gen.Prompts())

	// Switching sub-tab before a gene is chosen issues nothing.
	require.NoError(t, f.ws.SetSubTab(domain.SubTabPathwayMap))
	require.Empty(t, f.gen.Prompts())
	require.NoError(t, f.ws.SetSubTab(domain.SubTabExplainability))

	require.NoError(t, f.ws.SelectGene(ctx, "tp53"))
	st := f.settle(t, PanelMarkerExplainability)
	require.Equal(t, "TP53", st.Subject)
	require.Contains(t, st.Result, "why gene TP53 is a primary driver")
	require.Equal(t, "TP53", f.ws.Snapshot().Gene)

	require.NoError(t, f.ws.SetSubTab(domain.SubTabPathwayMap))
	st = f.settle(t, PanelMarkerPathway)
	require.Contains(t, st.Result, "pathways influenced by TP53")

	require.NoError(t, f.ws.SetSubTab(domain.SubTabVisualization))
	require.Len(t, f.gen.Prompts(), 2)

	err := f.ws.SelectGene(ctx, "TP35")
	var nf *catalog.GeneNotFoundError
	require.True(t, errors.As(err, &nf))
	require.Equal(t, "TP53", nf.Suggestion)
}

func TestSelectGeneResetsSibling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.openTab(t, domain.TabMarkerGene)

	require.NoError(t, f.ws.SetSubTab(domain.SubTabPathwayMap))
	require.NoError(t, f.ws.SelectGene(ctx, "EGFR"))
	require.Equal(t, panel.StatusReady, f.settle(t, PanelMarkerPathway).Status)

	require.NoError(t, f.ws.SetSubTab(domain.SubTabExplainability))
	require.NoError(t, f.ws.SelectGene(ctx, "MYC"))
	f.settle(t, PanelMarkerExplainability)

	pathway, err := f.ws.Panel(PanelMarkerPathway)
	require.NoError(t, err)
	require.Equal(t, panel.StatusIdle, pathway.Snapshot().Status)
}

func TestTabSwitchResetsPanels(t *testing.T) {
	f := newFixture(t)
	f.gen.gate = make(chan struct{})
	defer close(f.gen.gate)

	f.openTab(t, domain.TabCellStatus)
	old, err := f.ws.Panel(PanelCellStatus)
	require.NoError(t, err)
	require.Equal(t, panel.StatusLoading, old.Snapshot().Status)

	s, err := f.ws.SelectTab(context.Background(), domain.TabAskAI)
	require.NoError(t, err)
	require.Equal(t, panel.StatusIdle, old.Snapshot().Status)
	require.Equal(t, "Ask With AI", s.TabLabel)
	require.Len(t, s.Transcript, 1)

	_, err = f.ws.Panel(PanelCellStatus)
	require.ErrorIs(t, err, ErrViewNotMounted)
	require.ErrorIs(t, f.ws.RefreshStatus(), ErrViewNotMounted)
}

func TestChatTranscriptDroppedOnTabSwitch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.openTab(t, domain.TabAskAI)

	_, err := f.ws.SendChat("What does TP53 do?")
	require.NoError(t, err)
	f.settle(t, PanelAssistant)

	s := f.ws.Snapshot()
	require.Len(t, s.Transcript, 3)
	require.Equal(t, AssistantChat.Greeting, s.Transcript[0].Text)
	require.Equal(t, "answer to What does TP53 do?", s.Transcript[2].Text)

	_, err = f.ws.SendChat("  ")
	require.ErrorIs(t, err, panel.ErrEmptyMessage)

	_, err = f.ws.SelectTab(ctx, domain.TabDashboard)
	require.NoError(t, err)
	s, err = f.ws.SelectTab(ctx, domain.TabAskAI)
	require.NoError(t, err)
	require.Len(t, s.Transcript, 1)

	var transcripts int
	for _, ev := range f.pub.Events() {
		if ev.Type == EventTranscript {
			transcripts++
		}
	}
	require.Equal(t, 2, transcripts)
}

func TestActionsRequireMountedView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.ws.RefreshStatus(), ErrViewNotMounted)
	_, err := f.ws.SendChat("hello")
	require.ErrorIs(t, err, ErrViewNotMounted)

	f.openTab(t, domain.TabCellStatus)
	require.ErrorIs(t, f.ws.SelectGene(ctx, "TP53"), ErrViewNotMounted)
	require.ErrorIs(t, f.ws.SelectAnnotation(ctx, "1"), ErrViewNotMounted)
	require.ErrorIs(t, f.ws.SetSubTab(domain.SubTabPathwayMap), ErrViewNotMounted)
}

func TestAuditOmitsChatText(t *testing.T) {
	f := newFixture(t)
	f.openTab(t, domain.TabAskAI)

	_, err := f.ws.SendChat("my private question")
	require.NoError(t, err)
	f.settle(t, PanelAssistant)

	events := f.audit.Events()
	require.NotEmpty(t, events)
	for _, ev := range events {
		require.Equal(t, "u1", ev.UserID)
		require.Equal(t, PanelAssistant, ev.Panel)
		require.False(t, strings.Contains(ev.Subject, "private"))
	}
	require.Equal(t, "submitted", events[0].Phase)
}

func TestClosedWorkspaceRejectsActions(t *testing.T) {
	f := newFixture(t)
	f.gen.gate = make(chan struct{})
	defer close(f.gen.gate)

	f.openTab(t, domain.TabCellStatus)
	c, err := f.ws.Panel(PanelCellStatus)
	require.NoError(t, err)

	f.ws.Close()
	require.Equal(t, panel.StatusIdle, c.Snapshot().Status)
	_, err = f.ws.EnterDashboard(context.Background())
	require.ErrorIs(t, err, ErrClosed)
	_, err = f.ws.Panel(PanelCellStatus)
	require.ErrorIs(t, err, ErrClosed)
}
