// Package catalog serves the mock genomics tables shown by the dashboard.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashureev/genomics-xai/internal/domain"
)

// ErrNotFound is returned when a catalog entry does not exist.
var ErrNotFound = errors.New("not found")

// GeneNotFoundError reports an unknown gene together with the closest known name.
type GeneNotFoundError struct {
	Name       string
	Suggestion string
}

func (e *GeneNotFoundError) Error() string {
	if e.Suggestion == "" {
		return fmt.Sprintf("gene %q not found", e.Name)
	}
	return fmt.Sprintf("gene %q not found, did you mean %q?", e.Name, e.Suggestion)
}

// Is makes errors.Is(err, ErrNotFound) true.
func (e *GeneNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Repository defines read access to the mock catalog.
type Repository interface {
	// Stats returns the dashboard home counters in display order.
	Stats(ctx context.Context) ([]domain.DashboardStat, error)

	// Experiments returns the recent experiments, newest first.
	Experiments(ctx context.Context) ([]domain.Experiment, error)

	// Annotations returns every cluster annotation with its features.
	Annotations(ctx context.Context) ([]domain.Annotation, error)

	// Annotation returns one annotation by id.
	Annotation(ctx context.Context, id string) (*domain.Annotation, error)

	// MarkerGenes returns the ranked driver genes.
	MarkerGenes(ctx context.Context) ([]domain.MarkerGene, error)

	// Gene looks up a marker gene ignoring case. Unknown names yield a
	// *GeneNotFoundError.
	Gene(ctx context.Context, name string) (*domain.MarkerGene, error)

	// Pathways returns the pathways linked to the marker genes.
	Pathways(ctx context.Context) ([]domain.Pathway, error)

	// StatusMetrics returns the cell status quick metrics.
	StatusMetrics(ctx context.Context) ([]domain.StatusMetric, error)

	// StatusFlags returns the static diagnostic notes of the cell status view.
	StatusFlags(ctx context.Context) ([]domain.StatusFlag, error)

	// Umap generates a fresh scatter plot labelled with catalog genes.
	Umap(ctx context.Context) (*domain.Umap, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
