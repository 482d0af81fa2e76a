// Package postgres provides a Postgres-backed results store for shared,
// multi-run deployments. It mirrors the sqlite store's schema with Postgres
// DDL and placeholders.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"chdsim/pkg/domain"
)

// Compile-time contract assertions.
var (
	_ domain.ResultsStore            = (*Store)(nil)
	_ domain.PopulationSnapshotStore = (*Store)(nil)
)

const (
	defaultDriver = "pgx"
	// Default DSN keeps parity with OpenResultsStore defaults while allowing overrides via env.
	defaultDSN = "postgres://localhost/chdsim?sslmode=disable"

	populationBucket = "population"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists simulation outcomes to Postgres.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back
// to defaultDSN), pings the server, and ensures the schema exists.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureSchema(ctx, db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS outcomes (
			year INTEGER NOT NULL,
			individual_id BIGINT NOT NULL,
			chd SMALLINT NOT NULL CHECK (chd IN (0,1)),
			mortality SMALLINT NOT NULL CHECK (mortality IN (0,1)),
			PRIMARY KEY (year, individual_id)
		)`,
		`CREATE TABLE IF NOT EXISTS state (
			bucket TEXT PRIMARY KEY,
			payload JSONB NOT NULL
		)`,
	} {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// AppendYear implements domain.ResultsStore. The year's rows are written in
// a single transaction.
func (s *Store) AppendYear(ctx context.Context, year int, rows []domain.OutcomeRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outcomes WHERE year = $1`, year).Scan(&existing); err != nil {
		return fmt.Errorf("check year %d: %w", year, err)
	}
	if existing > 0 {
		return domain.DuplicateYearError{Year: year}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, row := range rows {
		if row.Year != year {
			return fmt.Errorf("row for year %d appended under year %d", row.Year, year)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO outcomes(year, individual_id, chd, mortality) VALUES($1,$2,$3,$4)`,
			row.Year, row.IndividualID, row.CHD, row.Mortality); err != nil {
			return fmt.Errorf("insert outcome (year=%d id=%d): %w", row.Year, row.IndividualID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit year %d: %w", year, err)
	}
	committed = true
	return nil
}

// Rows implements domain.ResultsStore.
func (s *Store) Rows(ctx context.Context) ([]domain.OutcomeRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT year, individual_id, chd, mortality FROM outcomes ORDER BY year, individual_id`)
	if err != nil {
		return nil, fmt.Errorf("select outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.OutcomeRow
	for rows.Next() {
		var r domain.OutcomeRow
		if err := rows.Scan(&r.Year, &r.IndividualID, &r.CHD, &r.Mortality); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return out, nil
}

// SummarizeByYear implements domain.ResultsStore using SQL aggregation.
func (s *Store) SummarizeByYear(ctx context.Context) ([]domain.YearSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT year, COUNT(*), AVG(chd), AVG(mortality) FROM outcomes GROUP BY year ORDER BY year`)
	if err != nil {
		return nil, fmt.Errorf("aggregate outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.YearSummary
	for rows.Next() {
		var sum domain.YearSummary
		if err := rows.Scan(&sum.Year, &sum.Count, &sum.MeanCHD, &sum.MeanMortality); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}
	return out, nil
}

// SavePopulation implements domain.PopulationSnapshotStore.
func (s *Store) SavePopulation(ctx context.Context, pop domain.Population) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := json.Marshal(pop)
	if err != nil {
		return fmt.Errorf("encode population: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`,
		populationBucket, payload); err != nil {
		return fmt.Errorf("upsert %s: %w", populationBucket, err)
	}
	return nil
}

// LoadPopulation implements domain.PopulationSnapshotStore.
func (s *Store) LoadPopulation(ctx context.Context) (domain.Population, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE bucket = $1`, populationBucket).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", populationBucket, err)
	}
	var pop domain.Population
	if err := json.Unmarshal(payload, &pop); err != nil {
		return nil, fmt.Errorf("decode population: %w", err)
	}
	return pop, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close implements domain.ResultsStore.
func (s *Store) Close() error { return s.db.Close() }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
