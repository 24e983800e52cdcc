package optimize

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/shep-analytics/gt-score-optimization/internal"
	"github.com/shep-analytics/gt-score-optimization/internal/loss"
)

func TestParzen_DensityPeaksNearObservations(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	p := newParzen([]float64{2, 2.1, 1.9}, 0, 10, 1, rng)
	if p.logDensity(2) <= p.logDensity(8) {
		t.Errorf("density at observations %f not above far point %f", p.logDensity(2), p.logDensity(8))
	}
}

func TestCategorical(t *testing.T) {
	w := categorical([]float64{1, 2, 3}, []float64{2, 2, 3}, 1)
	if math.Abs(w[0]+w[1]+w[2]-1) > 1e-12 {
		t.Errorf("weights not normalised: %v", w)
	}
	if !(w[1] > w[2] && w[2] > w[0]) {
		t.Errorf("unexpected ordering %v", w)
	}
}

func TestTPE_SuggestMovesTowardGoodRegion(t *testing.T) {
	tpe := DefaultTPE()
	rng := rand.New(rand.NewPCG(9, 9))
	space := SearchSpace{"x": Uniform(0, 10), "k": Choice(1, 2)}
	names := space.Names()

	// потери растут с x, вариант k=1 лучше
	var history []observation
	for i := 0; i < 40; i++ {
		x := float64(i%10) + 0.5
		k := float64(1 + i%2)
		history = append(history, observation{params: internal.Params{"x": x, "k": k}, loss: x + 5*(k-1)})
	}

	low, ones := 0, 0
	for i := 0; i < 50; i++ {
		p := tpe.suggest(space, names, history, rng)
		if p["x"] < 0 || p["x"] > 10 {
			t.Fatalf("suggestion %f out of range", p["x"])
		}
		if p["x"] < 5 {
			low++
		}
		if p["k"] == 1 {
			ones++
		}
	}
	if low < 35 || ones < 35 {
		t.Errorf("suggestions not concentrated in good region: low x %d/50, k=1 %d/50", low, ones)
	}
}

func TestTPE_FallsBackToBounds(t *testing.T) {
	spec := bandSpec()
	spec.Space = nil
	opts := testOptions(MethodBayesian)
	opts.MaxEvals = 30

	out, err := Optimize(context.Background(), []StrategySpec{spec}, testFrames(), loss.Simple, opts)
	if err != nil {
		t.Fatal(err)
	}
	if out.Evaluations != 30 {
		t.Errorf("want 30 trials, got %d", out.Evaluations)
	}
	for _, tr := range out.Trials {
		if b := tr.Params["buy"]; b < 90 || b > 100 {
			t.Fatalf("trial %d buy %f outside bounds", tr.Ordinal, b)
		}
	}
}

func TestTPE_StartupLeavesRoomForModel(t *testing.T) {
	tpe := DefaultTPE()
	cases := map[int]int{0: 0, 1: 1, 2: 1, 5: 2, 20: 10, 40: 20, 100: 20}
	for total, want := range cases {
		if got := tpe.startupTrials(total); got != want {
			t.Errorf("total %d: startup %d, want %d", total, got, want)
		}
	}
}
