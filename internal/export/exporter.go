// Package export writes simulation results to a blob store as portable
// artifacts: a per-individual CSV and a per-year JSON summary.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path"
	"strconv"

	"chdsim/internal/blob"
	"chdsim/pkg/domain"
)

const (
	resultsObject = "results.csv"
	summaryObject = "summary.json"
)

// Exporter renders results tables into blob artifacts.
type Exporter struct {
	store blob.Store
}

// New returns an Exporter writing through store.
func New(store blob.Store) *Exporter { return &Exporter{store: store} }

// ExportCSV writes the outcome rows as CSV under prefix. Columns are
// year,id,chd,mortality with a header row.
func (e *Exporter) ExportCSV(ctx context.Context, prefix string, rows []domain.OutcomeRow) (blob.Info, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"year", "id", "chd", "mortality"}); err != nil {
		return blob.Info{}, fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			strconv.Itoa(row.Year),
			strconv.FormatInt(row.IndividualID, 10),
			strconv.Itoa(row.CHD),
			strconv.Itoa(row.Mortality),
		}
		if err := w.Write(record); err != nil {
			return blob.Info{}, fmt.Errorf("write row (year=%d id=%d): %w", row.Year, row.IndividualID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return blob.Info{}, fmt.Errorf("flush csv: %w", err)
	}
	key := path.Join(prefix, resultsObject)
	info, err := e.store.Put(ctx, key, &buf, blob.PutOptions{ContentType: "text/csv"})
	if err != nil {
		return blob.Info{}, fmt.Errorf("put %s: %w", key, err)
	}
	return info, nil
}

// ExportSummary writes the per-year summaries as a JSON document under prefix.
func (e *Exporter) ExportSummary(ctx context.Context, prefix string, summaries []domain.YearSummary) (blob.Info, error) {
	payload, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return blob.Info{}, fmt.Errorf("encode summaries: %w", err)
	}
	key := path.Join(prefix, summaryObject)
	info, err := e.store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{ContentType: "application/json"})
	if err != nil {
		return blob.Info{}, fmt.Errorf("put %s: %w", key, err)
	}
	return info, nil
}

// ExportRun reads everything the results store holds and writes both
// artifacts under prefix.
func (e *Exporter) ExportRun(ctx context.Context, prefix string, store domain.ResultsStore) ([]blob.Info, error) {
	rows, err := store.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	summaries, err := store.SummarizeByYear(ctx)
	if err != nil {
		return nil, fmt.Errorf("read summaries: %w", err)
	}
	csvInfo, err := e.ExportCSV(ctx, prefix, rows)
	if err != nil {
		return nil, err
	}
	sumInfo, err := e.ExportSummary(ctx, prefix, summaries)
	if err != nil {
		return nil, err
	}
	return []blob.Info{csvInfo, sumInfo}, nil
}
