package domain

import "fmt"

// ConfigError reports an invalid run configuration. Configuration problems
// surface before the simulation loop starts; the loop itself never raises
// them.
type ConfigError struct {
	Field  string
	Reason string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// DuplicateYearError is returned when a year's outcomes are appended to a
// results store that already holds rows for that year.
type DuplicateYearError struct {
	Year int
}

func (e DuplicateYearError) Error() string {
	return fmt.Sprintf("results: year %d already recorded", e.Year)
}
