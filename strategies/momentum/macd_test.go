package momentum

import (
	"math"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/shep-analytics/gt-score-optimization/internal"
	"github.com/shep-analytics/gt-score-optimization/internal/optimize"
)

func waveCandles(n int) []internal.Candle {
	start := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	candles := make([]internal.Candle, n)
	for i := range candles {
		p := internal.RoundPrice(100 + 10*math.Sin(float64(i)/6))
		candles[i] = internal.Candle{Time: start.AddDate(0, 0, i), Open: p, High: p, Low: p, Close: p}
	}
	return candles
}

func TestMACDStrategy_DelayedCrossing(t *testing.T) {
	candles := waveCandles(200)
	actions := MACDStrategy(candles, nil)
	macd, signal := internal.CalculateMACD(internal.Closes(candles), 12, 26, 9)

	signals := 0
	for i, a := range actions {
		if i < 2 && a != internal.HOLD {
			t.Fatalf("signal at %d before two candles of history", i)
		}
		switch a {
		case internal.BUY:
			signals++
			if !internal.CrossedAbove(macd, signal, i-1) {
				t.Errorf("buy at %d without crossing at %d", i, i-1)
			}
		case internal.SELL:
			signals++
			if !internal.CrossedBelow(macd, signal, i-1) {
				t.Errorf("sell at %d without crossing at %d", i, i-1)
			}
		}
	}
	if signals == 0 {
		t.Error("no crossings on a wave")
	}
}

func TestMACDLive_LeadsBatchByOneCandle(t *testing.T) {
	candles := waveCandles(150)
	batch := MACDStrategy(candles, nil)

	for i := 0; i+1 < len(candles); i++ {
		action, indicator, err := MACDLive(candles[:i+1], nil)
		if i+1 < 26 {
			if !errors.Is(err, internal.ErrShortWindow) {
				t.Errorf("prefix %d: want ErrShortWindow, got %v", i+1, err)
			}
			continue
		}
		if err != nil {
			t.Fatal(err)
		}
		if action != batch[i+1] {
			t.Errorf("prefix %d: live %s, batch next %s", i+1, action, batch[i+1])
		}
		if math.IsNaN(indicator) {
			t.Errorf("prefix %d: NaN indicator", i+1)
		}
	}
}

func TestMACD_Registered(t *testing.T) {
	spec, ok := optimize.Strategy(MACDName)
	if !ok {
		t.Fatal("macd is not registered")
	}
	if err := spec.Validate(); err != nil {
		t.Fatal(err)
	}
}
