package optimize

import (
	"context"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/shep-analytics/gt-score-optimization/internal"
	"github.com/shep-analytics/gt-score-optimization/internal/loss"
)

var quiet = zerolog.Nop()

func sineCandles(n int, phase float64) []internal.Candle {
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]internal.Candle, n)
	for i := range candles {
		p := internal.RoundPrice(100 + 8*math.Sin(float64(i)/4+phase))
		candles[i] = internal.Candle{Time: start.AddDate(0, 0, i), Open: p, High: p, Low: p, Close: p}
	}
	return candles
}

// band покупает ниже buy и продаёт выше sell.
func band(candles []internal.Candle, params internal.Params) []internal.Action {
	buy, sell := params.Float("buy", 95), params.Float("sell", 105)
	actions := make([]internal.Action, len(candles))
	for i, c := range candles {
		switch v := c.Close.ToFloat64(); {
		case v < buy:
			actions[i] = internal.BUY
		case v > sell:
			actions[i] = internal.SELL
		}
	}
	return actions
}

func bandSpec() StrategySpec {
	return StrategySpec{
		Name:     "band",
		Generate: band,
		Defaults: internal.Params{"buy": 95, "sell": 105},
		Space:    SearchSpace{"buy": QUniform(90, 100, 0.5), "sell": Uniform(100, 110)},
		Bounds:   ParamBounds{"buy": {Min: 90, Max: 100}, "sell": {Min: 100, Max: 110}},
	}
}

func testFrames() []Frame {
	return []Frame{
		{Name: "A", Candles: sineCandles(120, 0)},
		{Name: "B", Candles: sineCandles(80, 1.3)},
	}
}

func testOptions(m Method) Options {
	opts := DefaultOptions()
	opts.Method = m
	opts.MaxEvals = 25
	opts.PopulationSize = 8
	opts.Seed = 7
	opts.Logger = &quiet
	return opts
}

var allMethods = []Method{MethodRandom, MethodBayesian, MethodGenetic}

func TestOptimize_BestNotWorseThanAnyTrial(t *testing.T) {
	for _, m := range allMethods {
		out, err := Optimize(context.Background(), []StrategySpec{bandSpec()}, testFrames(), loss.Simple, testOptions(m))
		if err != nil {
			t.Fatalf("%s: %v", m, err)
		}
		if out.Evaluations == 0 || out.Evaluations != len(out.Trials) {
			t.Fatalf("%s: evaluations %d, trials %d", m, out.Evaluations, len(out.Trials))
		}
		for _, tr := range out.Trials {
			if tr.Err == nil && tr.Loss < out.BestLoss {
				t.Errorf("%s: trial %d loss %f below best %f", m, tr.Ordinal, tr.Loss, out.BestLoss)
			}
		}
		if out.BestStrategy != "band" || out.RunID == "" {
			t.Errorf("%s: unexpected outcome %+v", m, out)
		}
	}
}

func TestOptimize_DeterministicUnderSeed(t *testing.T) {
	for _, m := range allMethods {
		seq := testOptions(m)
		par := testOptions(m)
		par.Parallelism = 4

		a, err := Optimize(context.Background(), []StrategySpec{bandSpec()}, testFrames(), loss.Simple, seq)
		if err != nil {
			t.Fatal(err)
		}
		b, err := Optimize(context.Background(), []StrategySpec{bandSpec()}, testFrames(), loss.Simple, par)
		if err != nil {
			t.Fatal(err)
		}
		if a.BestLoss != b.BestLoss || !reflect.DeepEqual(a.BestParams, b.BestParams) {
			t.Errorf("%s: sequential %v/%v, parallel %v/%v", m, a.BestLoss, a.BestParams, b.BestLoss, b.BestParams)
		}
		if a.Evaluations != b.Evaluations {
			t.Errorf("%s: evaluations differ %d vs %d", m, a.Evaluations, b.Evaluations)
		}
	}
}

func TestOptimize_TiesKeepEarliestCandidate(t *testing.T) {
	flat := StrategySpec{
		Name:     "never",
		Generate: func(c []internal.Candle, _ internal.Params) []internal.Action { return make([]internal.Action, len(c)) },
		Bounds:   ParamBounds{"x": {Min: 0, Max: 1}},
	}
	out, err := Optimize(context.Background(), []StrategySpec{flat}, testFrames(), loss.Simple, testOptions(MethodRandom))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(out.BestParams, out.Trials[0].Params) {
		t.Errorf("equal losses must keep first trial %v, got %v", out.Trials[0].Params, out.BestParams)
	}
}

func TestOptimize_PanickingCandidateIsSkipped(t *testing.T) {
	spec := bandSpec()
	spec.Name = "fragile"
	spec.Generate = func(c []internal.Candle, p internal.Params) []internal.Action {
		if p.Float("buy", 0) > 95 {
			panic("boom")
		}
		return band(c, p)
	}
	out, err := Optimize(context.Background(), []StrategySpec{spec}, testFrames(), loss.Simple, testOptions(MethodRandom))
	if err != nil {
		t.Fatal(err)
	}
	if out.Failed == 0 {
		t.Fatal("expected some failed candidates")
	}
	for _, tr := range out.Trials {
		if tr.Err != nil && !errors.Is(tr.Err, ErrEvalPanic) {
			t.Errorf("unexpected error %v", tr.Err)
		}
	}
	if out.BestParams.Float("buy", 100) > 95 {
		t.Errorf("best must come from a surviving candidate: %v", out.BestParams)
	}
}

func TestOptimize_LossErrorIsSkipped(t *testing.T) {
	gt := loss.GoldenTicket(loss.DefaultGoldenTicketConfig())
	frames := []Frame{{Name: "one", Candles: sineCandles(1, 0)}}
	_, err := Optimize(context.Background(), []StrategySpec{bandSpec()}, frames, gt, testOptions(MethodRandom))
	if !errors.Is(err, ErrNoResult) {
		t.Errorf("want ErrNoResult when every loss fails, got %v", err)
	}
}

func TestOptimize_EvalTimeout(t *testing.T) {
	spec := bandSpec()
	spec.Generate = func(c []internal.Candle, p internal.Params) []internal.Action {
		time.Sleep(200 * time.Millisecond)
		return band(c, p)
	}
	opts := testOptions(MethodRandom)
	opts.MaxEvals = 2
	opts.EvalTimeout = 5 * time.Millisecond

	out, err := Optimize(context.Background(), []StrategySpec{spec}, testFrames(), loss.Simple, opts)
	if !errors.Is(err, ErrNoResult) {
		t.Fatalf("want ErrNoResult, got %v", err)
	}
	for _, tr := range out.Trials {
		if !errors.Is(tr.Err, ErrEvalTimeout) {
			t.Errorf("want ErrEvalTimeout, got %v", tr.Err)
		}
	}
}

func TestOptimize_BackendUnavailable(t *testing.T) {
	opts := testOptions(MethodBayesian)
	opts.Registry = NewRegistry()
	opts.Registry.Register(MethodRandom, RandomSearch{})

	calls := 0
	spec := bandSpec()
	spec.Generate = func(c []internal.Candle, p internal.Params) []internal.Action {
		calls++
		return band(c, p)
	}
	_, err := Optimize(context.Background(), []StrategySpec{spec}, testFrames(), loss.Simple, opts)
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("want ErrBackendUnavailable, got %v", err)
	}
	if calls != 0 {
		t.Errorf("no evaluation may run before the backend check, got %d", calls)
	}
}

func TestOptimize_InvalidInput(t *testing.T) {
	opts := testOptions(MethodRandom)
	if _, err := Optimize(context.Background(), nil, testFrames(), loss.Simple, opts); !errors.Is(err, ErrNoStrategies) {
		t.Errorf("want ErrNoStrategies, got %v", err)
	}
	if _, err := Optimize(context.Background(), []StrategySpec{bandSpec()}, nil, loss.Simple, opts); !errors.Is(err, ErrNoData) {
		t.Errorf("want ErrNoData, got %v", err)
	}
	opts.Method = "annealing"
	if _, err := Optimize(context.Background(), []StrategySpec{bandSpec()}, testFrames(), loss.Simple, opts); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("want ErrUnknownMethod, got %v", err)
	}
}

func TestOptimize_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Optimize(ctx, []StrategySpec{bandSpec()}, testFrames(), loss.Simple, testOptions(MethodGenetic))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("want context.Canceled, got %v", err)
	}
}

func TestOptimize_MultipleStrategies(t *testing.T) {
	other := bandSpec()
	other.Name = "band_live"
	other.Generate = nil
	other.Live = func(w []internal.Candle, p internal.Params) (internal.Action, float64, error) {
		actions := band(w[len(w)-1:], p)
		return actions[0], w[len(w)-1].Close.ToFloat64(), nil
	}

	var progress []int
	opts := testOptions(MethodRandom)
	opts.MaxEvals = 5
	opts.Progress = func(done, total int) {
		if total != 10 {
			t.Errorf("total = %d, want 10", total)
		}
		progress = append(progress, done)
	}
	out, err := Optimize(context.Background(), []StrategySpec{bandSpec(), other}, testFrames(), loss.Simple, opts)
	if err != nil {
		t.Fatal(err)
	}
	if out.Evaluations != 10 || len(progress) != 10 || progress[9] != 10 {
		t.Errorf("evaluations %d, progress %v", out.Evaluations, progress)
	}
	// раунды внешним циклом, стратегии - внутренним
	if out.Trials[0].Strategy != "band" || out.Trials[1].Strategy != "band_live" {
		t.Errorf("unexpected trial order: %s, %s", out.Trials[0].Strategy, out.Trials[1].Strategy)
	}
}

func TestParseMethod(t *testing.T) {
	for in, want := range map[string]Method{"random": MethodRandom, "HyperOpt": MethodBayesian, "ga": MethodGenetic} {
		if got, err := ParseMethod(in); err != nil || got != want {
			t.Errorf("ParseMethod(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMethod("grid"); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("want ErrUnknownMethod, got %v", err)
	}
}
