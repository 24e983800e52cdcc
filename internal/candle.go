// candle.go
package internal

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type Price float64

// RoundPrice округляет цену до 2 знаков (half away from zero).
func RoundPrice(v float64) Price {
	return Price(decimal.NewFromFloat(v).Round(2).InexactFloat64())
}

// UnmarshalJSON принимает как число, так и строку ("101.25").
func (p *Price) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*p = RoundPrice(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(err, "price must be a number or numeric string")
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return errors.Wrapf(err, "invalid price %q", s)
	}
	*p = Price(d.Round(2).InexactFloat64())
	return nil
}

// ToFloat64 возвращает значение Price как float64.
func (p Price) ToFloat64() float64 {
	return float64(p)
}

// Candle - одна точка ценового ряда (PricePoint).
type Candle struct {
	Time  time.Time `json:"time"`
	Open  Price     `json:"open"`
	High  Price     `json:"high"`
	Low   Price     `json:"low"`
	Close Price     `json:"close"`
}

var candleTimeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseCandleTime пробует известные форматы времени по очереди.
func ParseCandleTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range candleTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("unsupported candle time format %q", s)
}

// UnmarshalJSON разбирает свечу; время берётся из "time" или "date".
func (c *Candle) UnmarshalJSON(data []byte) error {
	type Alias Candle
	aux := &struct {
		Time string `json:"time"`
		Date string `json:"date"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	raw := aux.Time
	if raw == "" {
		raw = aux.Date
	}
	if raw == "" {
		return errors.New("candle has no time")
	}
	t, err := ParseCandleTime(raw)
	if err != nil {
		return err
	}
	c.Time = t
	return nil
}

// MarshalJSON пишет время в RFC3339Nano.
func (c Candle) MarshalJSON() ([]byte, error) {
	type Alias Candle
	return json.Marshal(&struct {
		Time string `json:"time"`
		*Alias
	}{
		Time:  c.Time.Format(time.RFC3339Nano),
		Alias: (*Alias)(&c),
	})
}

// SortCandles упорядочивает свечи по возрастанию времени (на месте).
func SortCandles(candles []Candle) {
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Time.Before(candles[j].Time)
	})
}

// ValidateCandles проверяет строго возрастающие уникальные метки времени.
func ValidateCandles(candles []Candle) error {
	for i := 1; i < len(candles); i++ {
		if !candles[i].Time.After(candles[i-1].Time) {
			return errors.Wrapf(ErrConfig, "candle %d at %s is not after %s",
				i, candles[i].Time.Format(time.RFC3339), candles[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}

// Closes возвращает цены закрытия.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close.ToFloat64()
	}
	return out
}

type Action int

const (
	HOLD Action = iota
	BUY
	SELL
)

func (a Action) String() string {
	switch a {
	case BUY:
		return "buy"
	case SELL:
		return "sell"
	default:
		return "none"
	}
}

// ParseAction понимает "buy", "sell", "none" (и "hold").
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return BUY, nil
	case "sell":
		return SELL, nil
	case "none", "hold", "":
		return HOLD, nil
	}
	return HOLD, errors.Errorf("unknown action %q", s)
}

func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
