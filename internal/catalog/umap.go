package catalog

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/ashureev/genomics-xai/internal/domain"
)

// UmapJitter is the full width of the uniform scatter around a cluster centre.
const UmapJitter = 35.0

// UmapCluster places one group of points on the scatter plot.
type UmapCluster struct {
	Color   string
	Count   int
	CenterX float64
	CenterY float64
}

// DefaultClusters is the layout of the marker gene scatter plot.
var DefaultClusters = []UmapCluster{
	{Color: "#3b82f6", Count: 40, CenterX: 30, CenterY: 70},
	{Color: "#a855f7", Count: 45, CenterX: 60, CenterY: 40},
	{Color: "#f59e0b", Count: 35, CenterX: 40, CenterY: 30},
	{Color: "#10b981", Count: 50, CenterX: 70, CenterY: 60},
}

// UmapGenerator produces random scatter plots. It is safe for concurrent use.
type UmapGenerator struct {
	clusters []UmapCluster

	mu  sync.Mutex
	rng *rand.Rand
}

// NewUmapGenerator returns a generator over clusters. A zero seed draws one
// from the clock.
func NewUmapGenerator(seed int64, clusters []UmapCluster) *UmapGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &UmapGenerator{
		clusters: clusters,
		rng:      rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)),
	}
}

// Generate scatters every cluster around its centre and labels each point
// with a random gene from genes.
func (g *UmapGenerator) Generate(genes []string) (*domain.Umap, error) {
	if len(genes) == 0 {
		return nil, fmt.Errorf("generate umap: no gene labels")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	out := &domain.Umap{}
	for ci, cl := range g.clusters {
		xs := make(stats.Float64Data, 0, cl.Count)
		ys := make(stats.Float64Data, 0, cl.Count)
		for j := 0; j < cl.Count; j++ {
			p := domain.UmapPoint{
				ID:       fmt.Sprintf("c%d-%d", ci, j),
				X:        cl.CenterX + (g.rng.Float64()-0.5)*UmapJitter,
				Y:        cl.CenterY + (g.rng.Float64()-0.5)*UmapJitter,
				Color:    cl.Color,
				Cluster:  ci,
				GeneName: genes[g.rng.IntN(len(genes))],
			}
			xs = append(xs, p.X)
			ys = append(ys, p.Y)
			out.Points = append(out.Points, p)
		}

		summary, err := summarize(ci, cl, xs, ys)
		if err != nil {
			return nil, err
		}
		out.Clusters = append(out.Clusters, summary)
	}
	return out, nil
}

func summarize(ci int, cl UmapCluster, xs, ys stats.Float64Data) (domain.ClusterSummary, error) {
	s := domain.ClusterSummary{Cluster: ci, Color: cl.Color, Count: len(xs)}
	if len(xs) == 0 {
		return s, nil
	}

	var err error
	if s.CentroidX, err = xs.Mean(); err != nil {
		return s, fmt.Errorf("cluster %d centroid: %w", ci, err)
	}
	if s.CentroidY, err = ys.Mean(); err != nil {
		return s, fmt.Errorf("cluster %d centroid: %w", ci, err)
	}
	if s.SpreadX, err = stats.StandardDeviationPopulation(xs); err != nil {
		return s, fmt.Errorf("cluster %d spread: %w", ci, err)
	}
	if s.SpreadY, err = stats.StandardDeviationPopulation(ys); err != nil {
		return s, fmt.Errorf("cluster %d spread: %w", ci, err)
	}
	return s, nil
}
