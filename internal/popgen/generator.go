// Package popgen generates the initial synthetic population. Every attribute
// draw routes through a single seeded source, so a run is reproducible from
// its seed alone.
package popgen

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"chdsim/pkg/domain"
)

// Attribute distributions of the synthetic cohort.
const (
	AgeMin = 30
	AgeMax = 90 // inclusive

	BMIMean = 28.0
	BMISD   = 5.0

	SBPMean = 130.0
	SBPSD   = 20.0

	SmokingPrevalence = 0.40

	AlcoholMean = 10.0 // units/week
	AlcoholSD   = 5.0
)

// Generator draws individuals from the baseline attribute distributions.
type Generator struct {
	rng     *rand.Rand
	bmi     distuv.Normal
	sbp     distuv.Normal
	alcohol distuv.Normal
	smoking distuv.Bernoulli
}

// New returns a generator seeded with the given value. Generators are not
// safe for concurrent use; the simulation consumes one per run.
func New(seed uint64) *Generator {
	src := rand.NewSource(seed)
	rng := rand.New(src)
	return &Generator{
		rng:     rng,
		bmi:     distuv.Normal{Mu: BMIMean, Sigma: BMISD, Src: rng},
		sbp:     distuv.Normal{Mu: SBPMean, Sigma: SBPSD, Src: rng},
		alcohol: distuv.Normal{Mu: AlcoholMean, Sigma: AlcoholSD, Src: rng},
		smoking: distuv.Bernoulli{P: SmokingPrevalence, Src: rng},
	}
}

// Generate produces n individuals with independently drawn attributes. IDs
// are assigned sequentially from 1 and never reused.
func (g *Generator) Generate(n int) domain.Population {
	pop := make(domain.Population, n)
	for i := range pop {
		pop[i] = g.next(int64(i + 1))
	}
	return pop
}

func (g *Generator) next(id int64) domain.Individual {
	sex := domain.Male
	if g.rng.Float64() < 0.5 {
		sex = domain.Female
	}
	return domain.Individual{
		ID:      id,
		Age:     AgeMin + g.rng.Intn(AgeMax-AgeMin+1),
		Sex:     sex,
		BMI:     g.bmi.Rand(),
		SBP:     g.sbp.Rand(),
		Smoking: g.smoking.Rand() == 1,
		Alcohol: g.alcohol.Rand(),
	}
}
