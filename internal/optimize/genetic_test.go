package optimize

import (
	"context"
	"math/rand/v2"
	"reflect"
	"testing"

	"github.com/shep-analytics/gt-score-optimization/internal"
	"github.com/shep-analytics/gt-score-optimization/internal/loss"
)

func TestCrossTwoPoint_SingleGeneIsSkipped(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	a, b := []float64{1}, []float64{2}
	if crossTwoPoint(a, b, rng) {
		t.Error("single-gene individuals must not be crossed")
	}
	if a[0] != 1 || b[0] != 2 {
		t.Errorf("genes changed: %v %v", a, b)
	}
}

func TestCrossTwoPoint_SwapsSegment(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 50; i++ {
		a := []float64{0, 1, 2, 3, 4}
		b := []float64{10, 11, 12, 13, 14}
		if !crossTwoPoint(a, b, rng) {
			t.Fatal("expected crossover")
		}
		if a[0] != 0 || b[0] != 10 {
			t.Fatalf("first gene must stay in place: %v %v", a, b)
		}
		for j := range a {
			// каждая позиция содержит пару исходных генов
			if a[j]+b[j] != float64(10+2*j) {
				t.Fatalf("position %d lost genes: %v %v", j, a, b)
			}
		}
	}
}

func TestGenetic_MutateStaysInBounds(t *testing.T) {
	g := DefaultGenetic()
	g.GeneProb = 1
	g.MutationSigma = 100
	rng := rand.New(rand.NewPCG(5, 6))
	bounds := []Bounds{{Min: 0, Max: 1}, {Min: -5, Max: 5}}
	for i := 0; i < 100; i++ {
		genes := []float64{0.5, 0}
		g.mutate(genes, bounds, rng)
		for j, v := range genes {
			if v < bounds[j].Min || v > bounds[j].Max {
				t.Fatalf("gene %d = %f outside %+v", j, v, bounds[j])
			}
		}
	}
}

func TestGenetic_SelectTournamentPrefersLowerLoss(t *testing.T) {
	g := DefaultGenetic()
	g.TournamentSize = 50
	rng := rand.New(rand.NewPCG(7, 8))
	pop := []individual{
		{genes: []float64{1}, loss: 5, valid: true},
		{genes: []float64{2}, loss: -1, valid: true},
		{genes: []float64{3}, loss: 3, valid: true},
	}
	picked := g.selectTournament(pop, 10, rng)
	for _, ind := range picked {
		if ind.genes[0] != 2 {
			t.Errorf("large tournament must pick the best, got %v", ind.genes)
		}
	}
	picked[0].genes[0] = 99
	if pop[1].genes[0] != 2 {
		t.Error("selection must copy individuals")
	}
}

func TestGenetic_SingleParameterStrategy(t *testing.T) {
	spec := StrategySpec{
		Name:     "single",
		Generate: band,
		Defaults: internal.Params{"sell": 104},
		Bounds:   ParamBounds{"buy": {Min: 90, Max: 100}},
	}
	out, err := Optimize(context.Background(), []StrategySpec{spec}, testFrames(), loss.Simple, testOptions(MethodGenetic))
	if err != nil {
		t.Fatal(err)
	}
	if b := out.BestParams.Float("buy", -1); b < 90 || b > 100 {
		t.Errorf("best buy %f outside bounds", b)
	}
	if out.BestParams["sell"] != 104 {
		t.Errorf("defaults must be merged: %v", out.BestParams)
	}
}

func TestGenetic_NoBoundsEvaluatesDefaults(t *testing.T) {
	spec := bandSpec()
	spec.Bounds = nil
	out, err := Optimize(context.Background(), []StrategySpec{spec}, testFrames(), loss.Simple, testOptions(MethodGenetic))
	if err != nil {
		t.Fatal(err)
	}
	if out.Evaluations != 1 || !reflect.DeepEqual(out.BestParams, spec.Defaults) {
		t.Errorf("want a single evaluation of defaults, got %d %v", out.Evaluations, out.BestParams)
	}
}
