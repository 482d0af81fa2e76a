// Package sqlite provides an embedded, file-backed results store. Outcome
// rows live in a relational table keyed (year, individual_id); the generated
// population is snapshotted as a JSON payload in a state bucket table so a
// stored run carries its own provenance.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"chdsim/pkg/domain"
)

// Compile-time contract assertions.
var (
	_ domain.ResultsStore            = (*Store)(nil)
	_ domain.PopulationSnapshotStore = (*Store)(nil)
)

const populationBucket = "population"

// Store persists simulation outcomes to a single SQLite file.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (creating if needed) the results database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "chdsim.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS outcomes (
			year INTEGER NOT NULL,
			individual_id INTEGER NOT NULL,
			chd INTEGER NOT NULL CHECK (chd IN (0,1)),
			mortality INTEGER NOT NULL CHECK (mortality IN (0,1)),
			PRIMARY KEY (year, individual_id)
		)`,
		`CREATE TABLE IF NOT EXISTS state (
			bucket TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		)`,
	} {
		if _, err := db.Exec(ddl); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply ddl: %w", err)
		}
	}
	return &Store{db: db, path: path}, nil
}

// AppendYear implements domain.ResultsStore. The whole year is written in
// one transaction: either every individual's row lands or none do.
func (s *Store) AppendYear(ctx context.Context, year int, rows []domain.OutcomeRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outcomes WHERE year = ?`, year).Scan(&existing); err != nil {
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

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO outcomes(year, individual_id, chd, mortality) VALUES(?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for _, row := range rows {
		if row.Year != year {
			return fmt.Errorf("row for year %d appended under year %d", row.Year, year)
		}
		if _, err := stmt.ExecContext(ctx, row.Year, row.IndividualID, row.CHD, row.Mortality); err != nil {
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

// SavePopulation implements domain.PopulationSnapshotStore by upserting the
// population as a JSON payload under a state bucket.
func (s *Store) SavePopulation(ctx context.Context, pop domain.Population) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := json.Marshal(pop)
	if err != nil {
		return fmt.Errorf("encode population: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`,
		populationBucket, payload); err != nil {
		return fmt.Errorf("upsert %s: %w", populationBucket, err)
	}
	return nil
}

// LoadPopulation implements domain.PopulationSnapshotStore. It returns a nil
// population when no snapshot has been saved.
func (s *Store) LoadPopulation(ctx context.Context) (domain.Population, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE bucket = ?`, populationBucket).Scan(&payload)
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

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close implements domain.ResultsStore.
func (s *Store) Close() error { return s.db.Close() }
