package memory

import (
	"context"
	"errors"
	"testing"

	"chdsim/pkg/domain"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore(4)
	rows := []domain.OutcomeRow{
		{Year: 2013, IndividualID: 1, CHD: 1, Mortality: 0},
		{Year: 2013, IndividualID: 2, CHD: 0, Mortality: 1},
	}
	if err := store.AppendYear(ctx, 2013, rows); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err := store.Rows(ctx)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(got) != 2 || got[0] != rows[0] || got[1] != rows[1] {
		t.Fatalf("unexpected rows: %+v", got)
	}
	sums, err := store.SummarizeByYear(ctx)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if len(sums) != 1 || sums[0].MeanCHD != 0.5 || sums[0].MeanMortality != 0.5 {
		t.Fatalf("unexpected summary: %+v", sums)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestStoreRejectsDuplicateYear(t *testing.T) {
	ctx := context.Background()
	store := NewStore(0)
	rows := []domain.OutcomeRow{{Year: 2013, IndividualID: 1}}
	if err := store.AppendYear(ctx, 2013, rows); err != nil {
		t.Fatalf("append: %v", err)
	}
	err := store.AppendYear(ctx, 2013, rows)
	var dup domain.DuplicateYearError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateYearError, got %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("duplicate append mutated store: %d rows", store.Len())
	}
}
