package internal

import (
	"reflect"
	"testing"

	"github.com/pkg/errors"
)

// threshold покупает ниже buy и продаёт выше sell, глядя только на последнюю свечу.
func threshold(window []Candle, params Params) (Action, float64, error) {
	if len(window) < 2 {
		return HOLD, 0, errors.New("insufficient data")
	}
	last := window[len(window)-1].Close.ToFloat64()
	switch {
	case last < params.Float("buy", 0):
		return BUY, last, nil
	case last > params.Float("sell", 0):
		return SELL, last, nil
	}
	return HOLD, last, nil
}

func TestRunLiveSimulation_MatchesBatchBacktest(t *testing.T) {
	candles := makeCandles(100, 90, 95, 120, 85, 130, 100)
	params := Params{"buy": 92, "sell": 110}

	live, annotated := RunLiveSimulation(threshold, candles, params, DefaultBacktestConfig())

	actions := make([]Action, len(candles))
	for i := range candles {
		actions[i], _, _ = threshold(candles[:i+1], params)
	}
	batch, err := RunCandles(candles, actions, DefaultBacktestConfig())
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(live.Trades, batch.Trades) {
		t.Errorf("live trades %+v differ from batch %+v", live.Trades, batch.Trades)
	}
	if live.FinalCash != batch.FinalCash {
		t.Errorf("final cash %f != %f", live.FinalCash, batch.FinalCash)
	}
	if annotated[0].Action != HOLD {
		t.Errorf("error on short window must map to HOLD, got %v", annotated[0].Action)
	}
	if annotated[3].Indicator != 120 {
		t.Errorf("indicator not recorded: %f", annotated[3].Indicator)
	}
}

func TestRunLiveSimulation_WindowIsCausal(t *testing.T) {
	candles := makeCandles(1, 2, 3, 4)
	seen := 0
	spy := func(window []Candle, _ Params) (Action, float64, error) {
		seen++
		if len(window) != seen {
			t.Errorf("call %d got window of %d", seen, len(window))
		}
		return HOLD, 0, nil
	}
	RunLiveSimulation(spy, candles, nil, DefaultBacktestConfig())
	if seen != len(candles) {
		t.Errorf("expected %d calls, got %d", len(candles), seen)
	}
}
