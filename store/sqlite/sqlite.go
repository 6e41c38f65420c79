/*
Package sqlite provides a SQLite-backed implementation of feaso.Store.

PURPOSE:
  Persists sites, scenarios and sensitivity jobs. In production, the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  feaso.Store: Sites and scenarios

KEY TABLES:
  sites:            Physical site attributes (decimals as TEXT)
  scenarios:        One row per scenario, the full document in config_json
  sensitivity_jobs: Background sensitivity runs and their grids

STORAGE FORMAT:
  A scenario is stored as its factory document (factory.ScenarioJSON) so the
  database holds the same JSON the API accepts. Columns next to config_json
  (site_id, strategy, linked_scenario_id) exist for filtering only.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/feaso.db")
  if err != nil {
      return err
  }
  defer store.Close()

  bundle, err := feaso.Load(ctx, store, "riverside-sell")

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - feaso/store.go: Interface definition
  - feaso/store/memory.go: In-memory implementation for testing
  - factory/scenario.go: The config_json document
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/feasibility-engine/factory"
	"github.com/warp/feasibility-engine/feaso"
)

// Store implements feaso.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sites (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT,
		land_area TEXT NOT NULL,
		zoning TEXT,
		council_rate_pct TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS scenarios (
		id TEXT PRIMARY KEY,
		site_id TEXT NOT NULL REFERENCES sites(id),
		name TEXT NOT NULL,
		strategy TEXT NOT NULL,
		linked_scenario_id TEXT,
		config_json TEXT NOT NULL,
		version INTEGER DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scenarios_site
		ON scenarios(site_id);
	CREATE INDEX IF NOT EXISTS idx_scenarios_linked
		ON scenarios(linked_scenario_id) WHERE linked_scenario_id IS NOT NULL;

	-- Sensitivity jobs, removed with their scenario
	CREATE TABLE IF NOT EXISTS sensitivity_jobs (
		id TEXT PRIMARY KEY,
		scenario_id TEXT NOT NULL REFERENCES scenarios(id) ON DELETE CASCADE,
		status TEXT NOT NULL,
		request_json TEXT NOT NULL,
		result_json TEXT,
		error TEXT,
		started_at TEXT,
		completed_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_scenario
		ON sensitivity_jobs(scenario_id);
	CREATE INDEX IF NOT EXISTS idx_jobs_status
		ON sensitivity_jobs(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SITE STORE
// =============================================================================

// SaveSite upserts a site.
func (s *Store) SaveSite(ctx context.Context, site feaso.Site) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO sites (id, name, address, land_area, zoning, council_rate_pct, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			address = excluded.address,
			land_area = excluded.land_area,
			zoning = excluded.zoning,
			council_rate_pct = excluded.council_rate_pct,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		site.ID, site.Name, nullString(site.Address), site.LandArea.String(),
		nullString(site.Zoning), site.CouncilRatePct.String(), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save site %s: %w", site.ID, err)
	}
	return nil
}

// GetSite retrieves a site by ID.
func (s *Store) GetSite(ctx context.Context, id feaso.SiteID) (feaso.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, address, land_area, zoning, council_rate_pct FROM sites WHERE id = ?", id)
	site, err := scanSite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return feaso.Site{}, feaso.ErrSiteNotFound
	}
	return site, err
}

// ListSites returns all sites ordered by ID.
func (s *Store) ListSites(ctx context.Context) ([]feaso.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, address, land_area, zoning, council_rate_pct FROM sites ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query sites: %w", err)
	}
	defer rows.Close()

	var sites []feaso.Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSite(row scanner) (feaso.Site, error) {
	var (
		site              feaso.Site
		address, zoning   sql.NullString
		landArea, council string
	)
	if err := row.Scan(&site.ID, &site.Name, &address, &landArea, &zoning, &council); err != nil {
		return site, err
	}
	site.Address = address.String
	site.Zoning = zoning.String
	site.LandArea = feaso.MustParseDecimal(landArea)
	site.CouncilRatePct = feaso.MustParseDecimal(council)
	return site, nil
}

// =============================================================================
// SCENARIO STORE
// =============================================================================

// SaveScenario upserts a scenario. Its site must exist.
func (s *Store) SaveScenario(ctx context.Context, sc feaso.Scenario) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	config, err := factory.EncodeScenario(sc)
	if err != nil {
		return fmt.Errorf("failed to encode scenario %s: %w", sc.ID, err)
	}

	query := `
		INSERT INTO scenarios (id, site_id, name, strategy, linked_scenario_id, config_json, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			site_id = excluded.site_id,
			name = excluded.name,
			strategy = excluded.strategy,
			linked_scenario_id = excluded.linked_scenario_id,
			config_json = excluded.config_json,
			version = scenarios.version + 1,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, query,
		sc.ID, sc.SiteID, sc.Name, sc.Settings.Strategy,
		nullString(string(sc.LinkedScenarioID)), string(config), now, now,
	)
	if isForeignKeyError(err) {
		return fmt.Errorf("scenario %s: %w", sc.ID, feaso.ErrSiteNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to save scenario %s: %w", sc.ID, err)
	}
	return nil
}

// GetScenario retrieves a scenario by ID.
func (s *Store) GetScenario(ctx context.Context, id feaso.ScenarioID) (feaso.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var config string
	err := s.db.QueryRowContext(ctx, "SELECT config_json FROM scenarios WHERE id = ?", id).Scan(&config)
	if errors.Is(err, sql.ErrNoRows) {
		return feaso.Scenario{}, feaso.ErrScenarioNotFound
	}
	if err != nil {
		return feaso.Scenario{}, err
	}
	return decodeScenario(config)
}

// ListScenarios returns the scenarios of a site, or every scenario when siteID
// is empty, ordered by ID.
func (s *Store) ListScenarios(ctx context.Context, siteID feaso.SiteID) ([]feaso.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT config_json FROM scenarios ORDER BY id"
	var args []any
	if siteID != "" {
		query = "SELECT config_json FROM scenarios WHERE site_id = ? ORDER BY id"
		args = []any{siteID}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenarios: %w", err)
	}
	defer rows.Close()

	var scenarios []feaso.Scenario
	for rows.Next() {
		var config string
		if err := rows.Scan(&config); err != nil {
			return nil, err
		}
		sc, err := decodeScenario(config)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, rows.Err()
}

// DeleteScenario removes a scenario and its sensitivity jobs.
func (s *Store) DeleteScenario(ctx context.Context, id feaso.ScenarioID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM scenarios WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return feaso.ErrScenarioNotFound
	}
	return nil
}

// ScenarioVersion is the number of times a scenario has been saved.
func (s *Store) ScenarioVersion(ctx context.Context, id feaso.ScenarioID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var version int
	err := s.db.QueryRowContext(ctx, "SELECT version FROM scenarios WHERE id = ?", id).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, feaso.ErrScenarioNotFound
	}
	return version, err
}

func decodeScenario(config string) (feaso.Scenario, error) {
	var doc factory.ScenarioJSON
	if err := json.Unmarshal([]byte(config), &doc); err != nil {
		return feaso.Scenario{}, fmt.Errorf("failed to decode stored scenario: %w", err)
	}
	sc, err := factory.ToScenario(doc)
	if err != nil {
		return feaso.Scenario{}, fmt.Errorf("stored scenario %s: %w", doc.ID, err)
	}
	return sc, nil
}

// =============================================================================
// SENSITIVITY JOB STORE
// =============================================================================

// Job is a background sensitivity run.
type Job struct {
	ID          string
	ScenarioID  feaso.ScenarioID
	Status      string // pending, running, completed, failed
	RequestJSON string
	ResultJSON  string
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// SaveJob upserts a job.
func (s *Store) SaveJob(ctx context.Context, j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO sensitivity_jobs (id, scenario_id, status, request_json, result_json, error,
			started_at, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			result_json = excluded.result_json,
			error = excluded.error,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at
	`

	_, err := s.db.ExecContext(ctx, query,
		j.ID, j.ScenarioID, j.Status, j.RequestJSON,
		nullString(j.ResultJSON), nullString(j.Error),
		nullTime(j.StartedAt), nullTime(j.CompletedAt),
		j.CreatedAt.UTC().Format(time.RFC3339),
	)
	if isForeignKeyError(err) {
		return fmt.Errorf("job %s: %w", j.ID, feaso.ErrScenarioNotFound)
	}
	return err
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, jobSelect+" WHERE id = ?", id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, feaso.ErrJobNotFound
	}
	return j, err
}

// ListJobs returns jobs, newest first, optionally filtered by status.
func (s *Store) ListJobs(ctx context.Context, status string) ([]Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := jobSelect + " ORDER BY created_at DESC, id"
	var args []any
	if status != "" {
		query = jobSelect + " WHERE status = ? ORDER BY created_at DESC, id"
		args = []any{status}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

const jobSelect = `
	SELECT id, scenario_id, status, request_json, result_json, error,
		started_at, completed_at, created_at
	FROM sensitivity_jobs`

func scanJob(row scanner) (Job, error) {
	var (
		j                                 Job
		result, errMsg                    sql.NullString
		startedAt, completedAt, createdAt sql.NullString
	)
	if err := row.Scan(&j.ID, &j.ScenarioID, &j.Status, &j.RequestJSON, &result, &errMsg,
		&startedAt, &completedAt, &createdAt); err != nil {
		return j, err
	}
	j.ResultJSON = result.String
	j.Error = errMsg.String
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt.String)
	if startedAt.Valid {
		t, _ := time.Parse(time.RFC3339, startedAt.String)
		j.StartedAt = &t
	}
	if completedAt.Valid {
		t, _ := time.Parse(time.RFC3339, completedAt.String)
		j.CompletedAt = &t
	}
	return j, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"sensitivity_jobs", "scenarios", "sites"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

var _ feaso.Store = (*Store)(nil)
