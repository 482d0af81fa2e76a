// Package engine advances the population year by year, sampling CHD and
// mortality events and appending one outcome row per individual per year to
// a results store.
package engine

import "chdsim/pkg/domain"

// Defaults applied by DefaultConfig.
const (
	DefaultPopulationSize = 10000
	DefaultHorizonYears   = 30
	DefaultStartYear      = 2013
	DefaultSeed           = 20130401
)

// Config describes one simulation run. HorizonYears is an inclusive count:
// the simulated calendar years are StartYear through
// StartYear+HorizonYears-1, and a completed run holds exactly
// PopulationSize*HorizonYears rows.
type Config struct {
	PopulationSize int
	HorizonYears   int
	StartYear      int
	Seed           uint64
	// Workers sets how many goroutines advance individuals within a year.
	// Zero or one means sequential. Results are identical either way: event
	// draws come from per-individual, per-year streams, not from a shared
	// sequence.
	Workers int
}

// DefaultConfig returns the reference run configuration.
func DefaultConfig() Config {
	return Config{
		PopulationSize: DefaultPopulationSize,
		HorizonYears:   DefaultHorizonYears,
		StartYear:      DefaultStartYear,
		Seed:           DefaultSeed,
	}
}

// Validate fails fast on configurations that must never reach the loop.
func (c Config) Validate() error {
	if c.PopulationSize <= 0 {
		return domain.ConfigError{Field: "population_size", Reason: "must be positive"}
	}
	if c.HorizonYears <= 0 {
		return domain.ConfigError{Field: "horizon_years", Reason: "must be positive"}
	}
	if c.Workers < 0 {
		return domain.ConfigError{Field: "workers", Reason: "must not be negative"}
	}
	return nil
}

// Years lists the simulated calendar years in increasing order.
func (c Config) Years() []int {
	years := make([]int, c.HorizonYears)
	for i := range years {
		years[i] = c.StartYear + i
	}
	return years
}
