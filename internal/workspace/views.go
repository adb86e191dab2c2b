package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ashureev/genomics-xai/internal/catalog"
	"github.com/ashureev/genomics-xai/internal/domain"
	"github.com/ashureev/genomics-xai/internal/panel"
	"github.com/ashureev/genomics-xai/internal/textgen"
)

// view is a mounted dashboard tab.
type view interface {
	panels() []*panel.Controller
	fill(s *Snapshot)
	unmount()
}

type panelDeps struct {
	gen  textgen.Generator
	opts []panel.Option
}

func (d panelDeps) newPanel(name string, extra ...panel.Option) *panel.Controller {
	opts := append(append([]panel.Option{}, d.opts...), extra...)
	return panel.New(name, d.gen, opts...)
}

// lifecycle guards view actions against a concurrent unmount.
type lifecycle struct {
	mu      sync.Mutex
	stopped bool
}

func (l *lifecycle) stop() {
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()
}

type dashboardView struct{}

func (dashboardView) panels() []*panel.Controller { return nil }
func (dashboardView) fill(*Snapshot)              {}
func (dashboardView) unmount()                    {}

type cellStatusView struct {
	lifecycle
	status *panel.Controller
}

func mountCellStatus(d panelDeps) *cellStatusView {
	v := &cellStatusView{status: d.newPanel(PanelCellStatus)}
	v.status.Submit(cellStatusRequest())
	return v
}

func (v *cellStatusView) panels() []*panel.Controller { return []*panel.Controller{v.status} }
func (v *cellStatusView) fill(*Snapshot)              {}

func (v *cellStatusView) refresh() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stopped {
		return ErrViewNotMounted
	}
	v.status.Submit(cellStatusRequest())
	return nil
}

func (v *cellStatusView) unmount() {
	v.stop()
	v.status.Reset()
}

type cellTypeView struct {
	lifecycle
	catalog  catalog.Repository
	explain  *panel.Controller
	selected string
}

// mountCellType opens the view with the first annotation selected.
func mountCellType(ctx context.Context, repo catalog.Repository, logger *slog.Logger, d panelDeps) *cellTypeView {
	v := &cellTypeView{
		catalog: repo,
		explain: d.newPanel(PanelCellType, panel.WithShaper(panel.TwoPart)),
	}
	if repo == nil {
		return v
	}
	annotations, err := repo.Annotations(ctx)
	if err != nil {
		logger.Warn("Failed to load annotations", "error", err)
		return v
	}
	if len(annotations) > 0 {
		v.selected = annotations[0].ID
		v.explain.Submit(cellTypeRequest(annotations[0].Cluster))
	}
	return v
}

func (v *cellTypeView) panels() []*panel.Controller { return []*panel.Controller{v.explain} }

func (v *cellTypeView) fill(s *Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	s.AnnotationID = v.selected
}

func (v *cellTypeView) selectAnnotation(ctx context.Context, id string) error {
	if v.catalog == nil {
		return fmt.Errorf("annotation %q: %w", id, catalog.ErrNotFound)
	}
	a, err := v.catalog.Annotation(ctx, id)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stopped {
		return ErrViewNotMounted
	}
	v.selected = a.ID
	v.explain.Submit(cellTypeRequest(a.Cluster))
	return nil
}

func (v *cellTypeView) unmount() {
	v.stop()
	v.explain.Reset()
}

type markerGeneView struct {
	lifecycle
	catalog catalog.Repository
	explain *panel.Controller
	pathway *panel.Controller
	gene    string
	subTab  domain.SubTab
}

func mountMarkerGene(repo catalog.Repository, d panelDeps) *markerGeneView {
	return &markerGeneView{
		catalog: repo,
		explain: d.newPanel(PanelMarkerExplainability),
		pathway: d.newPanel(PanelMarkerPathway),
		subTab:  domain.SubTabExplainability,
	}
}

func (v *markerGeneView) panels() []*panel.Controller {
	return []*panel.Controller{v.explain, v.pathway}
}

func (v *markerGeneView) fill(s *Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	sub := v.subTab
	s.SubTab = &sub
	s.Gene = v.gene
}

// selectGene resolves name against the catalog, clears both detail panels
// and explains the gene in the active sub-tab.
func (v *markerGeneView) selectGene(ctx context.Context, name string) error {
	if v.catalog == nil {
		return fmt.Errorf("gene %q: %w", name, catalog.ErrNotFound)
	}
	g, err := v.catalog.Gene(ctx, name)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stopped {
		return ErrViewNotMounted
	}
	v.gene = g.Name
	v.explain.Reset()
	v.pathway.Reset()
	v.issueLocked()
	return nil
}

// setSubTab switches the detail pane and re-issues the request for the
// selected gene.
func (v *markerGeneView) setSubTab(sub domain.SubTab) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stopped {
		return ErrViewNotMounted
	}
	v.subTab = sub
	v.issueLocked()
	return nil
}

func (v *markerGeneView) issueLocked() {
	if v.gene == "" {
		return
	}
	switch v.subTab {
	case domain.SubTabExplainability:
		v.explain.Submit(explainabilityRequest(v.gene))
	case domain.SubTabPathwayMap:
		v.pathway.Submit(pathwayRequest(v.gene))
	}
}

func (v *markerGeneView) unmount() {
	v.stop()
	v.explain.Reset()
	v.pathway.Reset()
}

type assistantView struct {
	chat *panel.Chat
}

func mountAssistant(onChange func([]panel.Turn), d panelDeps) *assistantView {
	return &assistantView{chat: panel.NewChat(PanelAssistant, AssistantChat, d.gen, onChange, d.opts...)}
}

func (v *assistantView) panels() []*panel.Controller { return []*panel.Controller{v.chat.Panel()} }

func (v *assistantView) fill(s *Snapshot) {
	s.Transcript = v.chat.Transcript()
}

// unmount drops the transcript along with the view.
func (v *assistantView) unmount() {
	v.chat.Panel().Reset()
}
