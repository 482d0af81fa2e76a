// Package risk holds the annual risk formulas for CHD incidence and
// mortality. Both functions are stateless and return raw, unbounded values:
// the linear terms were calibrated around age 40 / BMI 25 and can leave [0,1]
// for extreme inputs. Callers must pass the result through Clamp before using
// it as a Bernoulli probability. That the raw formula is unbounded is a known
// modeling limitation, not something to correct inside the formula.
package risk

import "chdsim/pkg/domain"

const (
	chdBase        = 0.05
	chdPerYearAge  = 0.0015
	chdPerUnitBMI  = 0.002
	chdSmokingTerm = 0.05

	mortalityBase       = 0.01
	mortalityPerYearAge = 0.001
	mortalityCHDTerm    = 0.03

	calibrationAge = 40
	calibrationBMI = 25
)

// CHD computes the raw annual probability of a new CHD event.
func CHD(age int, sex domain.Sex, bmi float64, smoking bool) float64 {
	r := chdBase +
		float64(age-calibrationAge)*chdPerYearAge +
		(bmi-calibrationBMI)*chdPerUnitBMI
	if smoking {
		r += chdSmokingTerm
	}
	return r * sex.CHDMultiplier()
}

// Mortality computes the raw annual probability of death. chdIncidence is the
// same-year sampled CHD flag: incidence influences mortality within the year
// it occurs, not lagged.
func Mortality(age int, sex domain.Sex, chdIncidence bool) float64 {
	r := mortalityBase + float64(age-calibrationAge)*mortalityPerYearAge
	if chdIncidence {
		r += mortalityCHDTerm
	}
	return r * sex.MortalityMultiplier()
}

// Clamp forces a raw risk into [0,1] and reports whether clamping occurred,
// so the engine can count out-of-range formula outputs instead of crashing
// or silently ignoring them.
func Clamp(p float64) (float64, bool) {
	switch {
	case p < 0:
		return 0, true
	case p > 1:
		return 1, true
	default:
		return p, false
	}
}
