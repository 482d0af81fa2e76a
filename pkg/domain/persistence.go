package domain

import "context"

// ResultsStore is the persistence abstraction the simulation driver writes
// through. Implementations must preserve the (year, individual) uniqueness
// invariant and accept years only in whole-cohort batches. The driver is the
// single writer for the duration of a run; stores do not need to support
// concurrent appends.
type ResultsStore interface {
	// AppendYear records one simulated year's worth of outcome rows.
	AppendYear(ctx context.Context, year int, rows []OutcomeRow) error
	// Rows returns all recorded rows ordered by year, then individual ID.
	Rows(ctx context.Context) ([]OutcomeRow, error)
	// SummarizeByYear returns per-year means of the flag columns.
	SummarizeByYear(ctx context.Context) ([]YearSummary, error)
	// Close releases any underlying resources.
	Close() error
}

// PopulationSnapshotStore is implemented by durable backends that can retain
// the generated population alongside the outcomes, so a stored run carries
// its own provenance.
type PopulationSnapshotStore interface {
	SavePopulation(ctx context.Context, pop Population) error
	LoadPopulation(ctx context.Context) (Population, error)
}
