package optimize

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/pkg/errors"

	"github.com/shep-analytics/gt-score-optimization/internal"
)

func TestDimension_Sample(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	dims := map[string]Dimension{
		"uniform":  Uniform(-1, 1),
		"quniform": QUniform(5, 30, 1),
		"choice":   Choice(10, 15, 20),
	}
	for name, d := range dims {
		for i := 0; i < 200; i++ {
			v := d.Sample(rng)
			switch d.Kind {
			case KindChoice:
				if v != 10 && v != 15 && v != 20 {
					t.Fatalf("%s: %f not an option", name, v)
				}
			case KindQUniform:
				if v != math.Round(v) || v < 5 || v > 30 {
					t.Fatalf("%s: %f not on grid", name, v)
				}
			default:
				if v < -1 || v > 1 {
					t.Fatalf("%s: %f out of range", name, v)
				}
			}
		}
	}
}

func TestDimension_Snap(t *testing.T) {
	if got := QUniform(0, 1, 0.3).Snap(1); got != 0.9 && math.Abs(got-0.9) > 1e-12 {
		t.Errorf("snap must stay below high, got %f", got)
	}
	if got := QUniform(1.5, 1.7, 1).Snap(1.6); got < 1.5 || got > 1.7 {
		t.Errorf("coarse step must still respect bounds, got %f", got)
	}
	if got := Choice(1, 5, 9).Snap(6); got != 5 {
		t.Errorf("choice snaps to nearest option, got %f", got)
	}
	if got := Uniform(0, 1).Snap(2); got != 1 {
		t.Errorf("uniform clamps, got %f", got)
	}
}

func TestSearchSpace_Validate(t *testing.T) {
	if err := (SearchSpace{"a": Uniform(2, 1)}).Validate(); err == nil {
		t.Error("inverted range accepted")
	}
	if err := (SearchSpace{"a": Choice()}).Validate(); err == nil {
		t.Error("empty choice accepted")
	}
	if err := (ParamBounds{"a": {Min: 3, Max: 1}}).Validate(); err == nil {
		t.Error("inverted bounds accepted")
	}
	space := ParamBounds{"b": {Min: 0, Max: 2}, "a": {Min: 1, Max: 3}}.Space()
	if names := space.Names(); names[0] != "a" || space["b"].High != 2 {
		t.Errorf("unexpected space %v", space)
	}
}

func TestStrategyRegistry(t *testing.T) {
	RegisterStrategy(StrategySpec{Name: "test_registry", Generate: band})
	if _, ok := Strategy("test_registry"); !ok {
		t.Fatal("registered strategy not found")
	}
	if _, err := Strategies("test_registry", "missing"); !errors.Is(err, internal.ErrConfig) {
		t.Errorf("want ErrConfig for unknown strategy, got %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("registering a strategy without functions must panic")
		}
	}()
	RegisterStrategy(StrategySpec{Name: "broken"})
}
