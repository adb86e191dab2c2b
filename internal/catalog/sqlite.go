package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	_ "modernc.org/sqlite"

	"github.com/ashureev/genomics-xai/internal/domain"
)

const (
	// maxSuggestionDistance bounds how far a typo may be from a known gene.
	maxSuggestionDistance = 2

	seedAttempts  = 3
	seedBaseDelay = 100 * time.Millisecond
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	umap *UmapGenerator
}

// NewSQLite opens the catalog database and seeds it. The default DSN
// ":memory:" keeps everything in process memory for the life of the store.
func NewSQLite(dsn string, umap *UmapGenerator) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// An in-memory database lives and dies with its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if dsn != ":memory:" {
		// Several servers may share one catalog file.
		if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
			db.Close()
			return nil, fmt.Errorf("set busy timeout: %w", err)
		}
	}

	if umap == nil {
		umap = NewUmapGenerator(0, DefaultClusters)
	}
	store := &SQLiteStore{db: db, umap: umap}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	if err := store.seedWithRetry(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed catalog: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS stats (
		position INTEGER PRIMARY KEY,
		label TEXT NOT NULL,
		value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS experiments (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		type TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS annotations (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		cluster TEXT NOT NULL,
		cell_type TEXT NOT NULL,
		organ TEXT NOT NULL,
		marker_gene TEXT NOT NULL,
		confidence REAL NOT NULL
	);
	CREATE TABLE IF NOT EXISTS annotation_features (
		annotation_id TEXT NOT NULL REFERENCES annotations(id),
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		impact INTEGER NOT NULL,
		PRIMARY KEY (annotation_id, position)
	);
	CREATE TABLE IF NOT EXISTS marker_genes (
		name TEXT PRIMARY KEY COLLATE NOCASE,
		position INTEGER NOT NULL,
		score INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS pathways (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		relevance INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS cluster_genes (
		name TEXT PRIMARY KEY COLLATE NOCASE
	);
	CREATE TABLE IF NOT EXISTS status_metrics (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		label TEXT NOT NULL,
		value TEXT NOT NULL,
		sub_value TEXT NOT NULL,
		status TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS status_flags (
		position INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		detail TEXT NOT NULL,
		level TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// seed loads the mock tables. Rows that already exist are left alone so a
// file-backed DSN can be reopened.
// seedWithRetry retries the seed transaction with exponential backoff while
// another process holds the database file locked.
func (s *SQLiteStore) seedWithRetry(ctx context.Context) error {
	delay := seedBaseDelay
	for attempt := 1; ; attempt++ {
		err := s.seed(ctx)
		if err == nil || !isConflict(err) || attempt == seedAttempts {
			return err
		}
		slog.Debug("Catalog seed hit a locked database, retrying", "attempt", attempt, "delay", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// isConflict reports SQLite lock contention, which is worth retrying.
func isConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (s *SQLiteStore) seed(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	exec := func(query string, args ...any) error {
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%s: %w", strings.Fields(query)[4], err)
		}
		return nil
	}

	for i, st := range seedStats {
		if err := exec(`INSERT OR IGNORE INTO stats (position, label, value) VALUES (?, ?, ?)`,
			i, st.Label, st.Value); err != nil {
			return err
		}
	}
	for i, e := range seedExperiments {
		if err := exec(`INSERT OR IGNORE INTO experiments (id, position, name, date, status, type) VALUES (?, ?, ?, ?, ?, ?)`,
			e.ID, i, e.Name, e.Date, string(e.Status), e.Type); err != nil {
			return err
		}
	}
	for i, a := range seedAnnotations {
		if err := exec(`INSERT OR IGNORE INTO annotations (id, position, cluster, cell_type, organ, marker_gene, confidence) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			a.ID, i, a.Cluster, a.CellType, a.Organ, a.MarkerGene, a.Confidence); err != nil {
			return err
		}
		for j, f := range a.Features {
			if err := exec(`INSERT OR IGNORE INTO annotation_features (annotation_id, position, name, impact) VALUES (?, ?, ?, ?)`,
				a.ID, j, f.Name, f.Impact); err != nil {
				return err
			}
		}
	}
	for i, g := range seedMarkerGenes {
		if err := exec(`INSERT OR IGNORE INTO marker_genes (name, position, score) VALUES (?, ?, ?)`,
			g.Name, i, g.Score); err != nil {
			return err
		}
	}
	for i, p := range seedPathways {
		if err := exec(`INSERT OR IGNORE INTO pathways (id, position, name, relevance) VALUES (?, ?, ?, ?)`,
			p.ID, i, p.Name, p.Relevance); err != nil {
			return err
		}
	}
	for _, name := range seedClusterGenes {
		if err := exec(`INSERT OR IGNORE INTO cluster_genes (name) VALUES (?)`, name); err != nil {
			return err
		}
	}
	for i, m := range seedStatusMetrics {
		if err := exec(`INSERT OR IGNORE INTO status_metrics (id, position, label, value, sub_value, status) VALUES (?, ?, ?, ?, ?, ?)`,
			m.ID, i, m.Label, m.Value, m.SubValue, string(m.Status)); err != nil {
			return err
		}
	}
	for i, f := range seedStatusFlags {
		if err := exec(`INSERT OR IGNORE INTO status_flags (position, title, detail, level) VALUES (?, ?, ?, ?)`,
			i, f.Title, f.Detail, string(f.Level)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Stats returns the dashboard home counters.
func (s *SQLiteStore) Stats(ctx context.Context) ([]domain.DashboardStat, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT label, value FROM stats ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var out []domain.DashboardStat
	for rows.Next() {
		var st domain.DashboardStat
		if err := rows.Scan(&st.Label, &st.Value); err != nil {
			return nil, fmt.Errorf("scan stat row: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Experiments returns the recent experiments.
func (s *SQLiteStore) Experiments(ctx context.Context) ([]domain.Experiment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, date, status, type
		FROM experiments ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query experiments: %w", err)
	}
	defer rows.Close()

	var out []domain.Experiment
	for rows.Next() {
		var e domain.Experiment
		var status string
		if err := rows.Scan(&e.ID, &e.Name, &e.Date, &status, &e.Type); err != nil {
			return nil, fmt.Errorf("scan experiment row: %w", err)
		}
		e.Status = domain.ExperimentStatus(status)
		out = append(out, e)
	}
	return out, rows.Err()
}

const annotationColumns = `id, cluster, cell_type, organ, marker_gene, confidence`

func scanAnnotation(sc interface{ Scan(...any) error }) (domain.Annotation, error) {
	var a domain.Annotation
	err := sc.Scan(&a.ID, &a.Cluster, &a.CellType, &a.Organ, &a.MarkerGene, &a.Confidence)
	return a, err
}

// Annotations returns every cluster annotation with its features.
func (s *SQLiteStore) Annotations(ctx context.Context) ([]domain.Annotation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+annotationColumns+` FROM annotations ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query annotations: %w", err)
	}

	var out []domain.Annotation
	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan annotation row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate annotations: %w", err)
	}
	// The single connection must be released before features are queried.
	rows.Close()

	for i := range out {
		if out[i].Features, err = s.features(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Annotation returns one annotation by id.
func (s *SQLiteStore) Annotation(ctx context.Context, id string) (*domain.Annotation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+annotationColumns+` FROM annotations WHERE id = ?`, id)
	a, err := scanAnnotation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("annotation %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan annotation row: %w", err)
	}
	if a.Features, err = s.features(ctx, a.ID); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *SQLiteStore) features(ctx context.Context, annotationID string) ([]domain.Feature, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, impact FROM annotation_features
		WHERE annotation_id = ? ORDER BY position`, annotationID)
	if err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}
	defer rows.Close()

	var out []domain.Feature
	for rows.Next() {
		var f domain.Feature
		if err := rows.Scan(&f.Name, &f.Impact); err != nil {
			return nil, fmt.Errorf("scan feature row: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// MarkerGenes returns the ranked driver genes.
func (s *SQLiteStore) MarkerGenes(ctx context.Context) ([]domain.MarkerGene, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, score FROM marker_genes ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query marker genes: %w", err)
	}
	defer rows.Close()

	var out []domain.MarkerGene
	for rows.Next() {
		var g domain.MarkerGene
		if err := rows.Scan(&g.Name, &g.Score); err != nil {
			return nil, fmt.Errorf("scan marker gene row: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Gene looks up a marker gene ignoring case and suggests the nearest name
// when it is unknown.
func (s *SQLiteStore) Gene(ctx context.Context, name string) (*domain.MarkerGene, error) {
	name = strings.TrimSpace(name)
	var g domain.MarkerGene
	err := s.db.QueryRowContext(ctx, `SELECT name, score FROM marker_genes WHERE name = ?`, name).
		Scan(&g.Name, &g.Score)
	if err == nil {
		return &g, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scan marker gene row: %w", err)
	}

	genes, err := s.MarkerGenes(ctx)
	if err != nil {
		return nil, err
	}
	return nil, &GeneNotFoundError{Name: name, Suggestion: suggest(name, genes)}
}

func suggest(name string, genes []domain.MarkerGene) string {
	name = strings.ToUpper(name)
	best, bestDist := "", maxSuggestionDistance+1
	for _, g := range genes {
		if d := levenshtein.ComputeDistance(name, strings.ToUpper(g.Name)); d < bestDist {
			best, bestDist = g.Name, d
		}
	}
	return best
}

// Pathways returns the pathways linked to the marker genes.
func (s *SQLiteStore) Pathways(ctx context.Context) ([]domain.Pathway, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, relevance FROM pathways ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query pathways: %w", err)
	}
	defer rows.Close()

	var out []domain.Pathway
	for rows.Next() {
		var p domain.Pathway
		if err := rows.Scan(&p.ID, &p.Name, &p.Relevance); err != nil {
			return nil, fmt.Errorf("scan pathway row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// StatusMetrics returns the cell status quick metrics.
func (s *SQLiteStore) StatusMetrics(ctx context.Context) ([]domain.StatusMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, value, sub_value, status
		FROM status_metrics ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query status metrics: %w", err)
	}
	defer rows.Close()

	var out []domain.StatusMetric
	for rows.Next() {
		var m domain.StatusMetric
		var status string
		if err := rows.Scan(&m.ID, &m.Label, &m.Value, &m.SubValue, &status); err != nil {
			return nil, fmt.Errorf("scan status metric row: %w", err)
		}
		m.Status = domain.HealthLevel(status)
		out = append(out, m)
	}
	return out, rows.Err()
}

// StatusFlags returns the static diagnostic notes.
func (s *SQLiteStore) StatusFlags(ctx context.Context) ([]domain.StatusFlag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT title, detail, level FROM status_flags ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query status flags: %w", err)
	}
	defer rows.Close()

	var out []domain.StatusFlag
	for rows.Next() {
		var f domain.StatusFlag
		var level string
		if err := rows.Scan(&f.Title, &f.Detail, &level); err != nil {
			return nil, fmt.Errorf("scan status flag row: %w", err)
		}
		f.Level = domain.HealthLevel(level)
		out = append(out, f)
	}
	return out, rows.Err()
}

// Umap generates a fresh scatter plot labelled with the cluster genes.
func (s *SQLiteStore) Umap(ctx context.Context) (*domain.Umap, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM cluster_genes ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query cluster genes: %w", err)
	}
	defer rows.Close()

	var genes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan cluster gene row: %w", err)
		}
		genes = append(genes, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cluster genes: %w", err)
	}
	return s.umap.Generate(genes)
}
