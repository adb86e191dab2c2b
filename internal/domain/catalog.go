// Package domain contains the core types shared by the dashboard packages.
package domain

// ExperimentStatus is the pipeline state shown on the dashboard home.
type ExperimentStatus string

const (
	ExperimentCompleted  ExperimentStatus = "Completed"
	ExperimentProcessing ExperimentStatus = "Processing"
	ExperimentFailed     ExperimentStatus = "Failed"
)

// Experiment is a row of the recent experiments table.
type Experiment struct {
	ID     string           `json:"id"`
	Name   string           `json:"name"`
	Date   string           `json:"date"`
	Status ExperimentStatus `json:"status"`
	Type   string           `json:"type"`
}

// DashboardStat is one of the headline counters on the dashboard home.
type DashboardStat struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Feature is a gene contributing to a cluster classification.
type Feature struct {
	Name   string `json:"name"`
	Impact int    `json:"impact"`
}

// Annotation is a predicted cell type for one cluster.
type Annotation struct {
	ID         string    `json:"id"`
	Cluster    string    `json:"cluster"`
	CellType   string    `json:"cell_type"`
	Organ      string    `json:"organ"`
	MarkerGene string    `json:"marker_gene"`
	Confidence float64   `json:"confidence"`
	Features   []Feature `json:"features"`
}

// MarkerGene is a ranked driver gene.
type MarkerGene struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Pathway is a biological pathway linked to the marker genes.
type Pathway struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Relevance int    `json:"relevance"`
}

// HealthLevel grades a cell status metric.
type HealthLevel string

const (
	HealthOptimal  HealthLevel = "optimal"
	HealthWarning  HealthLevel = "warning"
	HealthCritical HealthLevel = "critical"
)

// StatusMetric is a quick metric on the cell status view.
type StatusMetric struct {
	ID       string      `json:"id"`
	Label    string      `json:"label"`
	Value    string      `json:"value"`
	SubValue string      `json:"sub_value"`
	Status   HealthLevel `json:"status"`
}

// StatusFlag is a static diagnostic note rendered under the AI reasoning.
type StatusFlag struct {
	Title  string      `json:"title"`
	Detail string      `json:"detail"`
	Level  HealthLevel `json:"level"`
}

// UmapPoint is one cell in the marker gene scatter plot.
type UmapPoint struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Color    string  `json:"color"`
	Cluster  int     `json:"cluster"`
	GeneName string  `json:"gene_name"`
}

// ClusterSummary describes where a UMAP cluster landed.
type ClusterSummary struct {
	Cluster   int     `json:"cluster"`
	Color     string  `json:"color"`
	Count     int     `json:"count"`
	CentroidX float64 `json:"centroid_x"`
	CentroidY float64 `json:"centroid_y"`
	SpreadX   float64 `json:"spread_x"`
	SpreadY   float64 `json:"spread_y"`
}

// Umap is a generated scatter plot with per-cluster summaries.
type Umap struct {
	Points   []UmapPoint      `json:"points"`
	Clusters []ClusterSummary `json:"clusters"`
}
