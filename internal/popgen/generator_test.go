package popgen

import (
	"math"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/stat"

	"chdsim/pkg/domain"
)

func TestGenerateIsDeterministicForSeed(t *testing.T) {
	a := New(1234).Generate(500)
	b := New(1234).Generate(500)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed produced different populations")
	}
	c := New(4321).Generate(500)
	if reflect.DeepEqual(a, c) {
		t.Fatalf("different seeds produced identical populations")
	}
}

func TestGenerateAssignsSequentialUniqueIDs(t *testing.T) {
	pop := New(7).Generate(100)
	if err := pop.CheckIDs(); err != nil {
		t.Fatalf("duplicate ids: %v", err)
	}
	for i, ind := range pop {
		if ind.ID != int64(i+1) {
			t.Fatalf("individual %d has id %d", i, ind.ID)
		}
	}
}

func TestGenerateRespectsAgeBounds(t *testing.T) {
	pop := New(99).Generate(5000)
	sawMin, sawMax := false, false
	for _, ind := range pop {
		if ind.Age < AgeMin || ind.Age > AgeMax {
			t.Fatalf("age %d outside [%d,%d]", ind.Age, AgeMin, AgeMax)
		}
		if ind.Age == AgeMin {
			sawMin = true
		}
		if ind.Age == AgeMax {
			sawMax = true
		}
	}
	// Both inclusive bounds should appear in a draw of this size.
	if !sawMin || !sawMax {
		t.Fatalf("age bounds not reached: min=%v max=%v", sawMin, sawMax)
	}
}

func TestGenerateMatchesAttributeDistributions(t *testing.T) {
	const n = 20000
	pop := New(2013).Generate(n)

	bmi := make([]float64, n)
	sbp := make([]float64, n)
	alcohol := make([]float64, n)
	smokers, female := 0, 0
	for i, ind := range pop {
		bmi[i] = ind.BMI
		sbp[i] = ind.SBP
		alcohol[i] = ind.Alcohol
		if ind.Smoking {
			smokers++
		}
		if ind.Sex == domain.Female {
			female++
		}
	}

	checkMean := func(name string, xs []float64, want, tol float64) {
		t.Helper()
		if got := stat.Mean(xs, nil); math.Abs(got-want) > tol {
			t.Errorf("%s mean: got %v want %v +/- %v", name, got, want, tol)
		}
	}
	checkMean("bmi", bmi, BMIMean, 0.2)
	checkMean("sbp", sbp, SBPMean, 0.8)
	checkMean("alcohol", alcohol, AlcoholMean, 0.2)

	if rate := float64(smokers) / n; math.Abs(rate-SmokingPrevalence) > 0.02 {
		t.Errorf("smoking prevalence: got %v want %v", rate, SmokingPrevalence)
	}
	if rate := float64(female) / n; math.Abs(rate-0.5) > 0.02 {
		t.Errorf("female share: got %v want 0.5", rate)
	}
}

func TestGenerateLeavesEventFlagsUnset(t *testing.T) {
	for _, ind := range New(5).Generate(200) {
		if ind.CHDIncidence || ind.Mortality {
			t.Fatalf("individual %d generated with a sampled event flag", ind.ID)
		}
	}
}
