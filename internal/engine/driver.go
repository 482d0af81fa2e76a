package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"chdsim/pkg/domain"
)

// State tracks driver progress through its single pass.
type State string

// Driver states. A driver moves Initialized -> Running on the first year,
// stays Running across years, and lands in Completed after the final year.
const (
	StateInitialized State = "initialized"
	StateRunning     State = "running"
	StateCompleted   State = "completed"
)

// Report summarizes a completed run.
type Report struct {
	Years        int
	Rows         int
	ClampedDraws int
}

// Driver owns the simulation loop: it applies the yearly update step across
// the population for each year of the horizon, in strictly increasing year
// order, appending each year's outcomes to the results store. It is the
// store's only writer during a run.
type Driver struct {
	cfg     Config
	store   domain.ResultsStore
	logger  *slog.Logger
	metrics MetricsRecorder
	tracer  Tracer
	state   State
}

// Option configures optional driver collaborators.
type Option func(*Driver)

// WithLogger attaches a structured logger; the default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(rec MetricsRecorder) Option {
	return func(d *Driver) {
		if rec != nil {
			d.metrics = rec
		}
	}
}

// WithTracer attaches a tracer emitting one span per simulated year.
func WithTracer(tracer Tracer) Option {
	return func(d *Driver) {
		if tracer != nil {
			d.tracer = tracer
		}
	}
}

// NewDriver validates the configuration and prepares a single-use driver.
func NewDriver(cfg Config, store domain.ResultsStore, opts ...Option) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, domain.ConfigError{Field: "store", Reason: "results store required"}
	}
	d := &Driver{
		cfg:     cfg,
		store:   store,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: NopMetricsRecorder{},
		tracer:  NopTracer{},
		state:   StateInitialized,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// State returns the driver's current lifecycle state.
func (d *Driver) State() State { return d.state }

// Run executes the full horizon against the given population. The population
// is mutated in place year over year; callers wanting to keep the initial
// state pass a Clone. Run is single-use: a completed driver refuses to run
// again so that the (year, individual) uniqueness invariant cannot be broken
// by accident.
func (d *Driver) Run(ctx context.Context, pop domain.Population) (Report, error) {
	if d.state != StateInitialized {
		return Report{}, fmt.Errorf("driver already %s", d.state)
	}
	if len(pop) != d.cfg.PopulationSize {
		return Report{}, domain.ConfigError{
			Field:  "population_size",
			Reason: fmt.Sprintf("population has %d members, config expects %d", len(pop), d.cfg.PopulationSize),
		}
	}
	if err := pop.CheckIDs(); err != nil {
		return Report{}, err
	}

	d.state = StateRunning
	report := Report{}
	for _, year := range d.cfg.Years() {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("run aborted before year %d: %w", year, err)
		}
		if err := d.runYear(ctx, pop, year, &report); err != nil {
			return report, err
		}
	}
	d.state = StateCompleted

	d.logger.Info("simulation completed",
		"years", report.Years,
		"rows", report.Rows,
		"clamped_draws", report.ClampedDraws,
	)
	return report, nil
}

func (d *Driver) runYear(ctx context.Context, pop domain.Population, year int, report *Report) error {
	ctx, span := d.tracer.Start(ctx, "advance_year")
	started := time.Now()

	outcome := AdvanceYear(pop, year, d.cfg.Seed, d.cfg.Workers)
	err := d.store.AppendYear(ctx, year, outcome.Rows)

	d.metrics.Observe(ctx, "advance_year", err == nil, time.Since(started))
	span.End(err)
	if err != nil {
		return fmt.Errorf("append year %d: %w", year, err)
	}

	if outcome.ClampedDraws > 0 {
		d.metrics.AddClampedDraws(ctx, outcome.ClampedDraws)
		d.logger.Debug("clamped out-of-range risks", "year", year, "draws", outcome.ClampedDraws)
	}

	report.Years++
	report.Rows += len(outcome.Rows)
	report.ClampedDraws += outcome.ClampedDraws
	return nil
}
