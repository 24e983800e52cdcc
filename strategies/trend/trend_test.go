package trend

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
		p := internal.RoundPrice(100 + 10*math.Sin(float64(i)/8))
		candles[i] = internal.Candle{Time: start.AddDate(0, 0, i), Open: p, High: p + 0.5, Low: p - 0.5, Close: p}
	}
	return candles
}

// checkLiveLeadsBatch - живой вариант на префиксе [:i+1] видит то, что пакетный
// исполняет на свече i+1.
func checkLiveLeadsBatch(t *testing.T, candles []internal.Candle, params internal.Params,
	batch optimize.GenerateFunc, live internal.LiveFunc) {
	t.Helper()
	actions := batch(candles, params)
	compared := 0
	for i := 0; i+1 < len(candles); i++ {
		action, _, err := live(candles[:i+1], params)
		if err != nil {
			if !errors.Is(err, internal.ErrShortWindow) {
				t.Fatalf("prefix %d: %v", i+1, err)
			}
			continue
		}
		compared++
		if action != actions[i+1] {
			t.Errorf("prefix %d: live %s, batch next %s", i+1, action, actions[i+1])
		}
	}
	if compared == 0 {
		t.Error("live variant never produced a decision")
	}
}

func countSignals(actions []internal.Action) (buys, sells int) {
	for _, a := range actions {
		switch a {
		case internal.BUY:
			buys++
		case internal.SELL:
			sells++
		}
	}
	return buys, sells
}

func TestSMACrossover_DelayedCrossing(t *testing.T) {
	candles := waveCandles(300)
	params := internal.Params{"short_window": 5, "long_window": 30}
	actions := SMACrossoverStrategy(candles, params)

	closes := internal.Closes(candles)
	short, long := internal.CalculateSMA(closes, 5), internal.CalculateSMA(closes, 30)
	for i, a := range actions {
		if a == internal.BUY && !internal.CrossedAbove(short, long, i-1) {
			t.Errorf("buy at %d without crossing at %d", i, i-1)
		}
		if a == internal.SELL && !internal.CrossedBelow(short, long, i-1) {
			t.Errorf("sell at %d without crossing at %d", i, i-1)
		}
	}
	if buys, sells := countSignals(actions); buys == 0 || sells == 0 {
		t.Errorf("got %d buys and %d sells", buys, sells)
	}
}

func TestSMACrossoverLive_LeadsBatch(t *testing.T) {
	checkLiveLeadsBatch(t, waveCandles(200), internal.Params{"short_window": 5, "long_window": 30},
		SMACrossoverStrategy, SMACrossoverLive)
}

func TestSMACrossoverLive_ShortWindow(t *testing.T) {
	_, _, err := SMACrossoverLive(waveCandles(50), nil)
	if !errors.Is(err, internal.ErrShortWindow) {
		t.Errorf("50 candles with long window 50: want ErrShortWindow, got %v", err)
	}
}

func TestEMACrossover_AlternatesFromBuy(t *testing.T) {
	actions := EMACrossoverStrategy(waveCandles(300), nil)
	expect := internal.BUY
	for i, a := range actions {
		if a == internal.HOLD {
			continue
		}
		if a != expect {
			t.Fatalf("candle %d: got %s, want %s", i, a, expect)
		}
		if expect == internal.BUY {
			expect = internal.SELL
		} else {
			expect = internal.BUY
		}
	}
	if buys, _ := countSignals(actions); buys == 0 {
		t.Error("no entries on a wave")
	}
}

func TestEMACrossover_TakeProfitStopLoss(t *testing.T) {
	candles := waveCandles(300)
	params := internal.Params{"take_profit_stop_loss": 1, "take_profit_pct": 0.01, "stop_loss_pct": 0.01}
	actions := EMACrossoverStrategy(candles, params)

	entry := 0.0
	exits := 0
	for i, a := range actions {
		price := candles[i].Close.ToFloat64()
		switch a {
		case internal.BUY:
			entry = price
		case internal.SELL:
			exits++
			if price < entry*1.01 && price > entry*0.99 {
				t.Errorf("exit at %d inside the band: entry %.2f, price %.2f", i, entry, price)
			}
		}
	}
	if exits == 0 {
		t.Error("take profit never triggered")
	}
}

func TestEMACrossoverLive_TPSLSuppressesSell(t *testing.T) {
	candles := waveCandles(300)
	tpsl := internal.Params{"take_profit_stop_loss": 1}
	for i := 30; i < len(candles); i++ {
		plain, _, err := EMACrossoverLive(candles[:i+1], nil)
		if err != nil {
			t.Fatal(err)
		}
		guarded, _, _ := EMACrossoverLive(candles[:i+1], tpsl)
		if guarded == internal.SELL {
			t.Fatalf("prefix %d: sell returned with TP/SL enabled", i+1)
		}
		if plain == internal.BUY && guarded != internal.BUY {
			t.Errorf("prefix %d: buy lost with TP/SL enabled", i+1)
		}
	}
}

func TestDonchian_Breakouts(t *testing.T) {
	candles := waveCandles(300)
	params := internal.Params{"window": 10}
	actions := DonchianStrategy(candles, params)
	if buys, sells := countSignals(actions); buys == 0 || sells == 0 {
		t.Errorf("got %d buys and %d sells", buys, sells)
	}

	upper, lower := donchianChannel(candles, 10)
	if !math.IsNaN(upper[9]) || math.IsNaN(upper[10]) {
		t.Errorf("channel must start after a full window of history: %f %f", upper[9], upper[10])
	}
	if want := float64(candles[10].High); upper[11] < want {
		t.Errorf("upper band %.2f below high %.2f inside the window", upper[11], want)
	}
	if lower[11] > float64(candles[1].Low) {
		t.Errorf("lower band %.2f above low %.2f inside the window", lower[11], float64(candles[1].Low))
	}
}

func TestDonchianLive_LeadsBatch(t *testing.T) {
	checkLiveLeadsBatch(t, waveCandles(200), internal.Params{"window": 12}, DonchianStrategy, DonchianLive)
}

func TestTrend_Registered(t *testing.T) {
	for _, name := range []string{SMACrossoverName, EMACrossoverName, DonchianName} {
		if _, ok := optimize.Strategy(name); !ok {
			t.Errorf("%s is not registered", name)
		}
	}
}
