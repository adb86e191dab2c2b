package catalog

import "github.com/ashureev/genomics-xai/internal/domain"

var seedStats = []domain.DashboardStat{
	{Label: "Active Runs", Value: "12"},
	{Label: "Total Datasets", Value: "148"},
	{Label: "AI Models", Value: "7"},
}

var seedExperiments = []domain.Experiment{
	{ID: "1", Name: "Single Cell Lung Adenocarcinoma", Date: "2 hours ago", Status: domain.ExperimentCompleted, Type: "Single Cell RNA-seq"},
	{ID: "2", Name: "Cardiac Fibrosis Pathway Analysis", Date: "5 hours ago", Status: domain.ExperimentProcessing, Type: "Spatial Transcriptomics"},
	{ID: "3", Name: "Neuro-Degenerative Gene Network", Date: "1 day ago", Status: domain.ExperimentCompleted, Type: "Bulk RNA-seq"},
	{ID: "4", Name: "Glioblastoma Microenvironment Mapping", Date: "2 days ago", Status: domain.ExperimentFailed, Type: "Multi-omics"},
	{ID: "5", Name: "Immunotherapy Response Markers", Date: "3 days ago", Status: domain.ExperimentCompleted, Type: "Epigenomics"},
}

var seedAnnotations = []domain.Annotation{
	{
		ID: "1", Cluster: "Cluster 0", CellType: "Alveolar Type II", Organ: "Lung", MarkerGene: "SFTPC", Confidence: 0.98,
		Features: []domain.Feature{{Name: "SFTPC", Impact: 95}, {Name: "SFTPA1", Impact: 82}, {Name: "ABCA3", Impact: 78}, {Name: "LAMP3", Impact: 65}},
	},
	{
		ID: "2", Cluster: "Cluster 1", CellType: "Ciliated Cells", Organ: "Lung", MarkerGene: "CAPS", Confidence: 0.94,
		Features: []domain.Feature{{Name: "CAPS", Impact: 92}, {Name: "FOXJ1", Impact: 88}, {Name: "TP73", Impact: 74}, {Name: "SNTN", Impact: 61}},
	},
	{
		ID: "3", Cluster: "Cluster 2", CellType: "Myeloid / Macrophages", Organ: "Lung", MarkerGene: "MARCO", Confidence: 0.91,
		Features: []domain.Feature{{Name: "MARCO", Impact: 89}, {Name: "CD68", Impact: 84}, {Name: "LYZ", Impact: 79}, {Name: "CD163", Impact: 72}},
	},
	{
		ID: "4", Cluster: "Cluster 3", CellType: "Fibroblasts", Organ: "Lung", MarkerGene: "COL1A1", Confidence: 0.89,
		Features: []domain.Feature{{Name: "COL1A1", Impact: 91}, {Name: "DCN", Impact: 85}, {Name: "LUM", Impact: 80}, {Name: "PDGFRA", Impact: 76}},
	},
	{
		ID: "5", Cluster: "Cluster 4", CellType: "T-Lymphocytes", Organ: "Lung", MarkerGene: "CD3E", Confidence: 0.96,
		Features: []domain.Feature{{Name: "CD3E", Impact: 97}, {Name: "CD2", Impact: 89}, {Name: "TRAC", Impact: 84}, {Name: "CD247", Impact: 81}},
	},
}

var seedMarkerGenes = []domain.MarkerGene{
	{Name: "TP53", Score: 92},
	{Name: "EGFR", Score: 85},
	{Name: "BRCA1", Score: 78},
	{Name: "MYC", Score: 72},
	{Name: "VEGFA", Score: 65},
}

var seedPathways = []domain.Pathway{
	{ID: "1", Name: "Apoptosis Signaling Pathway", Relevance: 98},
	{ID: "2", Name: "Cell Cycle Control", Relevance: 85},
	{ID: "3", Name: "DNA Damage Response", Relevance: 92},
	{ID: "4", Name: "PI3K/Akt/mTOR Signaling", Relevance: 74},
}

// seedClusterGenes label the UMAP scatter points.
var seedClusterGenes = []string{
	"TP53", "EGFR", "BRCA1", "MYC", "VEGFA", "CD4",
	"CD8A", "ERBB2", "KRAS", "ALK", "MET", "ROS1",
}

var seedStatusMetrics = []domain.StatusMetric{
	{ID: "viability", Label: "Overall Viability", Value: "94.2%", SubValue: "+2.1% from baseline", Status: domain.HealthOptimal},
	{ID: "mitochondrial", Label: "Mito-Content", Value: "4.8%", SubValue: "Normal respiratory profile", Status: domain.HealthOptimal},
	{ID: "stress", Label: "Stress Markers", Value: "Moderate", SubValue: "Cluster 3 elevation", Status: domain.HealthWarning},
	{ID: "dropout", Label: "Dropout Rate", Value: "12%", SubValue: "Standard for 10x Genomics", Status: domain.HealthOptimal},
}

var seedStatusFlags = []domain.StatusFlag{
	{
		Title:  "Warning Flag",
		Detail: "Cluster 3 shows specific enrichment of heat-shock proteins (HSPA1A), indicating focal stress.",
		Level:  domain.HealthWarning,
	},
	{
		Title:  "Quality Control",
		Detail: "Low doublet detection probability (0.02) ensures population purity for this experiment.",
		Level:  domain.HealthOptimal,
	},
}
