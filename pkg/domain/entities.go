// Package domain defines the population data model, the longitudinal results
// table, and the typed errors shared by the chdsim simulation engine and its
// persistence backends.
package domain

import "fmt"

// Sex is the biological sex recorded for an individual. Risk adjustments are
// attached to the variant via lookup tables rather than string comparison so
// that adding a variant forces the tables to be extended.
type Sex string

// Supported sex variants.
const (
	Male   Sex = "male"
	Female Sex = "female"
)

// Sex-specific risk multipliers applied on top of the base formulas.
var (
	chdSexMultiplier       = map[Sex]float64{Male: 1.0, Female: 0.8}
	mortalitySexMultiplier = map[Sex]float64{Male: 1.0, Female: 0.9}
)

// Valid reports whether s is a known variant.
func (s Sex) Valid() bool {
	_, ok := chdSexMultiplier[s]
	return ok
}

// CHDMultiplier returns the sex adjustment for CHD incidence risk.
// Unknown variants fall back to no adjustment.
func (s Sex) CHDMultiplier() float64 {
	if m, ok := chdSexMultiplier[s]; ok {
		return m
	}
	return 1.0
}

// MortalityMultiplier returns the sex adjustment for annual mortality risk.
func (s Sex) MortalityMultiplier() float64 {
	if m, ok := mortalitySexMultiplier[s]; ok {
		return m
	}
	return 1.0
}

// Individual is one member of the simulated population. ID is assigned at
// generation and never reused. Age advances by exactly one per simulated
// year; BMI, SBP, Smoking and Alcohol are drawn once and never re-simulated.
// SBP and Alcohol are reserved attributes: carried in the model but not yet
// consulted by any risk formula.
//
// CHDIncidence and Mortality are the current-year event flags. Both are
// resampled every year with no persistence: an individual flagged dead in one
// year continues to be aged and simulated in later years, and the flag can
// flip back. That mirrors the reference model's cohort semantics and is a
// documented limitation, not an invariant to silently repair.
type Individual struct {
	ID           int64   `json:"id"`
	Age          int     `json:"age"`
	Sex          Sex     `json:"sex"`
	BMI          float64 `json:"bmi"`
	SBP          float64 `json:"sbp"`
	Smoking      bool    `json:"smoking"`
	Alcohol      float64 `json:"alcohol"`
	CHDIncidence bool    `json:"chd_incidence"`
	Mortality    bool    `json:"mortality"`
}

// Population is the fixed-size cohort being simulated. Size never changes
// during a run: no births, no removal of the deceased.
type Population []Individual

// Size returns the number of individuals.
func (p Population) Size() int { return len(p) }

// Clone returns an independent copy of the population.
func (p Population) Clone() Population {
	if p == nil {
		return nil
	}
	out := make(Population, len(p))
	copy(out, p)
	return out
}

// CheckIDs verifies that every individual carries a distinct ID. The engine
// refuses to run populations that violate this.
func (p Population) CheckIDs() error {
	seen := make(map[int64]struct{}, len(p))
	for _, ind := range p {
		if _, dup := seen[ind.ID]; dup {
			return fmt.Errorf("population: duplicate individual id %d", ind.ID)
		}
		seen[ind.ID] = struct{}{}
	}
	return nil
}
