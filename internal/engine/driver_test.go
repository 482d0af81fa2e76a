package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"chdsim/internal/infra/persistence/memory"
	"chdsim/internal/popgen"
	"chdsim/pkg/domain"
)

func smallConfig(n, horizon int) Config {
	return Config{PopulationSize: n, HorizonYears: horizon, StartYear: 2013, Seed: 42}
}

func runOnce(t *testing.T, cfg Config) (*memory.Store, Report) {
	t.Helper()
	store := memory.NewStore(cfg.PopulationSize * cfg.HorizonYears)
	driver, err := NewDriver(cfg, store)
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	pop := popgen.New(cfg.Seed).Generate(cfg.PopulationSize)
	report, err := driver.Run(context.Background(), pop)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return store, report
}

func TestDriverProducesFullGrid(t *testing.T) {
	cfg := smallConfig(200, 5)
	store, report := runOnce(t, cfg)

	if report.Years != 5 || report.Rows != 1000 {
		t.Fatalf("unexpected report: %+v", report)
	}
	rows, err := store.Rows(context.Background())
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != cfg.PopulationSize*cfg.HorizonYears {
		t.Fatalf("expected %d rows, got %d", cfg.PopulationSize*cfg.HorizonYears, len(rows))
	}

	seen := make(map[[2]int64]struct{}, len(rows))
	lastYear := 0
	for _, row := range rows {
		key := [2]int64{int64(row.Year), row.IndividualID}
		if _, dup := seen[key]; dup {
			t.Fatalf("duplicate (year,id): %v", key)
		}
		seen[key] = struct{}{}
		if row.Year < lastYear {
			t.Fatalf("rows not grouped by increasing year: %d after %d", row.Year, lastYear)
		}
		lastYear = row.Year
	}
	if lastYear != cfg.StartYear+cfg.HorizonYears-1 {
		t.Fatalf("last simulated year %d, want %d", lastYear, cfg.StartYear+cfg.HorizonYears-1)
	}
}

func TestDriverDeterministicAcrossRuns(t *testing.T) {
	cfg := smallConfig(150, 4)
	a, _ := runOnce(t, cfg)
	b, _ := runOnce(t, cfg)
	rowsA, _ := a.Rows(context.Background())
	rowsB, _ := b.Rows(context.Background())
	if !reflect.DeepEqual(rowsA, rowsB) {
		t.Fatal("same seed produced different results")
	}
}

func TestDriverParallelMatchesSequential(t *testing.T) {
	seqCfg := smallConfig(150, 4)
	parCfg := seqCfg
	parCfg.Workers = 8
	a, _ := runOnce(t, seqCfg)
	b, _ := runOnce(t, parCfg)
	rowsA, _ := a.Rows(context.Background())
	rowsB, _ := b.Rows(context.Background())
	if !reflect.DeepEqual(rowsA, rowsB) {
		t.Fatal("worker count changed simulation results")
	}
}

func TestDriverLifecycle(t *testing.T) {
	cfg := smallConfig(10, 2)
	store := memory.NewStore(0)
	driver, err := NewDriver(cfg, store)
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	if driver.State() != StateInitialized {
		t.Fatalf("fresh driver state: %s", driver.State())
	}
	pop := popgen.New(cfg.Seed).Generate(cfg.PopulationSize)
	if _, err := driver.Run(context.Background(), pop); err != nil {
		t.Fatalf("run: %v", err)
	}
	if driver.State() != StateCompleted {
		t.Fatalf("state after run: %s", driver.State())
	}
	if _, err := driver.Run(context.Background(), pop); err == nil {
		t.Fatal("completed driver must refuse to run again")
	}
}

func TestDriverRejectsMismatchedPopulation(t *testing.T) {
	cfg := smallConfig(10, 2)
	driver, err := NewDriver(cfg, memory.NewStore(0))
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	pop := popgen.New(1).Generate(7)
	_, err = driver.Run(context.Background(), pop)
	var cfgErr domain.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "population_size" {
		t.Fatalf("expected population_size ConfigError, got %v", err)
	}
}

func TestDriverRejectsDuplicateIDs(t *testing.T) {
	cfg := smallConfig(2, 1)
	driver, err := NewDriver(cfg, memory.NewStore(0))
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	pop := domain.Population{{ID: 1, Age: 40, Sex: domain.Male}, {ID: 1, Age: 50, Sex: domain.Female}}
	if _, err := driver.Run(context.Background(), pop); err == nil {
		t.Fatal("expected duplicate ID error")
	}
}

func TestDriverAbortsOnCancelledContext(t *testing.T) {
	cfg := smallConfig(10, 5)
	driver, err := NewDriver(cfg, memory.NewStore(0))
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pop := popgen.New(cfg.Seed).Generate(cfg.PopulationSize)
	if _, err := driver.Run(ctx, pop); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewDriverValidation(t *testing.T) {
	if _, err := NewDriver(Config{}, memory.NewStore(0)); err == nil {
		t.Fatal("expected config validation error")
	}
	if _, err := NewDriver(smallConfig(1, 1), nil); err == nil {
		t.Fatal("expected nil store error")
	}
}
