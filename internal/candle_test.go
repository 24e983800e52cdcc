package internal

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCandle_UnmarshalJSON(t *testing.T) {
	raw := `[
		{"time": "2021-03-01T00:00:00Z", "open": 10.005, "high": "11.499", "low": 9.1, "close": 10.555},
		{"date": "2021-03-02", "open": 1, "high": 2, "low": 0.5, "close": 1.5}
	]`
	var candles []Candle
	if err := json.Unmarshal([]byte(raw), &candles); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if candles[0].Close != 10.56 || candles[0].High != 11.5 || candles[0].Open != 10.01 {
		t.Errorf("prices not rounded to 2 decimals: %+v", candles[0])
	}
	if !candles[1].Time.Equal(time.Date(2021, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date fallback not parsed: %v", candles[1].Time)
	}
}

func TestCandle_UnmarshalJSONRejectsMissingTime(t *testing.T) {
	var c Candle
	if err := json.Unmarshal([]byte(`{"close": 1}`), &c); err == nil {
		t.Error("expected error for candle without time")
	}
}

func TestValidateCandles(t *testing.T) {
	candles := makeCandles(1, 2, 3)
	if err := ValidateCandles(candles); err != nil {
		t.Errorf("valid series rejected: %v", err)
	}
	candles[2].Time = candles[1].Time
	if err := ValidateCandles(candles); err == nil {
		t.Error("duplicate timestamp accepted")
	}
}

func TestSortCandles(t *testing.T) {
	candles := makeCandles(1, 2, 3)
	candles[0], candles[2] = candles[2], candles[0]
	SortCandles(candles)
	if candles[0].Close != 1 || candles[2].Close != 3 {
		t.Errorf("not sorted: %+v", candles)
	}
}

func TestParseAction(t *testing.T) {
	cases := map[string]Action{"buy": BUY, "SELL": SELL, "none": HOLD, "hold": HOLD}
	for in, want := range cases {
		got, err := ParseAction(in)
		if err != nil || got != want {
			t.Errorf("ParseAction(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseAction("short"); err == nil {
		t.Error("expected error for unknown action")
	}
	if BUY.String() != "buy" || HOLD.String() != "none" {
		t.Error("unexpected action names")
	}
}

func TestParams(t *testing.T) {
	p := Params{"window": 13.6, "k": 2.5}
	if p.Int("window", 0) != 14 {
		t.Errorf("Int must round, got %d", p.Int("window", 0))
	}
	if p.Float("missing", 7) != 7 {
		t.Error("default not applied")
	}
	merged := p.Merge(Params{"k": 9, "extra": 1})
	if merged["k"] != 2.5 || merged["extra"] != 1 {
		t.Errorf("merge must keep existing keys: %v", merged)
	}
	if _, ok := p["extra"]; ok {
		t.Error("merge mutated receiver")
	}
}
