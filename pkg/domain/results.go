package domain

import (
	"fmt"
	"sort"
)

// OutcomeRow is one record of the long-format results table: the sampled
// event flags for a single individual in a single simulated year. Flags are
// restricted to {0,1}.
type OutcomeRow struct {
	Year         int   `json:"year"`
	IndividualID int64 `json:"id"`
	CHD          int   `json:"chd"`
	Mortality    int   `json:"mortality"`
}

// YearSummary is the group-by-year aggregation external reporting consumers
// build charts from: the mean of each flag column across the cohort.
type YearSummary struct {
	Year          int     `json:"year"`
	Count         int     `json:"count"`
	MeanCHD       float64 `json:"mean_chd"`
	MeanMortality float64 `json:"mean_mortality"`
}

// ResultsTable accumulates outcome rows, one full year at a time. Appends are
// rejected when they would break the (year, individual) uniqueness invariant.
// The zero value is not usable; construct with NewResultsTable.
type ResultsTable struct {
	rows  []OutcomeRow
	years map[int]struct{}
}

// NewResultsTable returns an empty table. capacityHint pre-sizes the backing
// slice for runs where n*horizon is known up front; pass 0 to grow on demand.
func NewResultsTable(capacityHint int) *ResultsTable {
	if capacityHint < 0 {
		capacityHint = 0
	}
	return &ResultsTable{
		rows:  make([]OutcomeRow, 0, capacityHint),
		years: make(map[int]struct{}),
	}
}

// AppendYear adds one simulated year's worth of rows. Every row must carry
// the given year, valid {0,1} flags, and an individual ID not yet seen for
// that year.
func (t *ResultsTable) AppendYear(year int, rows []OutcomeRow) error {
	if _, dup := t.years[year]; dup {
		return DuplicateYearError{Year: year}
	}
	seen := make(map[int64]struct{}, len(rows))
	for _, row := range rows {
		if row.Year != year {
			return fmt.Errorf("results: row for year %d appended under year %d", row.Year, year)
		}
		if !validFlag(row.CHD) || !validFlag(row.Mortality) {
			return fmt.Errorf("results: row (year=%d id=%d) carries non-binary flag", row.Year, row.IndividualID)
		}
		if _, dup := seen[row.IndividualID]; dup {
			return fmt.Errorf("results: duplicate individual id %d in year %d", row.IndividualID, year)
		}
		seen[row.IndividualID] = struct{}{}
	}
	t.rows = append(t.rows, rows...)
	t.years[year] = struct{}{}
	return nil
}

// Len returns the number of rows accumulated so far.
func (t *ResultsTable) Len() int { return len(t.rows) }

// Rows returns a copy of all rows in append order.
func (t *ResultsTable) Rows() []OutcomeRow {
	out := make([]OutcomeRow, len(t.rows))
	copy(out, t.rows)
	return out
}

// SummarizeByYear computes per-year means of the flag columns, sorted by
// ascending year.
func (t *ResultsTable) SummarizeByYear() []YearSummary {
	return SummarizeRows(t.rows)
}

// SummarizeRows aggregates arbitrary rows into per-year summaries. Exposed so
// persistence backends and exporters can reuse the aggregation without going
// through a ResultsTable.
func SummarizeRows(rows []OutcomeRow) []YearSummary {
	type acc struct {
		count     int
		chd       int
		mortality int
	}
	byYear := make(map[int]*acc)
	for _, row := range rows {
		a := byYear[row.Year]
		if a == nil {
			a = &acc{}
			byYear[row.Year] = a
		}
		a.count++
		a.chd += row.CHD
		a.mortality += row.Mortality
	}
	out := make([]YearSummary, 0, len(byYear))
	for year, a := range byYear {
		out = append(out, YearSummary{
			Year:          year,
			Count:         a.count,
			MeanCHD:       float64(a.chd) / float64(a.count),
			MeanMortality: float64(a.mortality) / float64(a.count),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

func validFlag(v int) bool { return v == 0 || v == 1 }

// BoolFlag converts a sampled event into its {0,1} table representation.
func BoolFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}
