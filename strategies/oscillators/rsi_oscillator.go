// strategies/oscillators/rsi_oscillator.go

// RSI Oscillator Strategy
//
// Описание стратегии:
// Индекс относительной силы (RSI) сравнивает средний прирост и среднее падение цены
// за окно и переводит их отношение в шкалу от 0 до 100.
//
// Как работает:
// - RSI считается на скользящих средних приростов и потерь за window свечей
// - Покупка: RSI опустился ниже rsi_buy_threshold на текущей свече (на предыдущей был не ниже)
// - Продажа: RSI поднялся выше rsi_sell_threshold на текущей свече (на предыдущей был не выше)
// - Решение принимается по текущей свече, без задержки
//
// Параметры:
// - window: период RSI (по умолчанию 14)
// - rsi_buy_threshold: уровень перепроданности (по умолчанию 25)
// - rsi_sell_threshold: уровень перекупленности (по умолчанию 75)
//
// Слабые стороны:
// - В сильном тренде RSI долго остаётся за порогом и сигнал приходит поздно
// - Не учитывает направление тренда

package oscillators

import (
	"github.com/pkg/errors"

	"github.com/shep-analytics/gt-score-optimization/internal"
	"github.com/shep-analytics/gt-score-optimization/internal/optimize"
)

const RSIName = "rsi"

// RSIDefaults - параметры RSI по умолчанию.
var RSIDefaults = internal.Params{
	"window":             14,
	"rsi_buy_threshold":  25,
	"rsi_sell_threshold": 75,
}

func init() {
	optimize.RegisterStrategy(optimize.StrategySpec{
		Name:     RSIName,
		Generate: RSIStrategy,
		Live:     RSILive,
		Defaults: RSIDefaults,
		Space: optimize.SearchSpace{
			"window":             optimize.QUniform(5, 30, 1),
			"rsi_buy_threshold":  optimize.Uniform(10, 40),
			"rsi_sell_threshold": optimize.Uniform(60, 90),
		},
		Bounds: optimize.ParamBounds{
			"window":             {Min: 5, Max: 30},
			"rsi_buy_threshold":  {Min: 10, Max: 40},
			"rsi_sell_threshold": {Min: 60, Max: 90},
		},
	})
}

type rsiConfig struct {
	window    int
	buy, sell float64
}

func newRSIConfig(params internal.Params) rsiConfig {
	p := params.Merge(RSIDefaults)
	return rsiConfig{
		window: p.Int("window", 14),
		buy:    p.Float("rsi_buy_threshold", 25),
		sell:   p.Float("rsi_sell_threshold", 75),
	}
}

// action - пересечение порога между prev и cur.
func (c rsiConfig) action(cur, prev float64) internal.Action {
	switch {
	case cur < c.buy && prev >= c.buy:
		return internal.BUY
	case cur > c.sell && prev <= c.sell:
		return internal.SELL
	}
	return internal.HOLD
}

// RSIStrategy генерирует сигналы RSI для всего ряда.
func RSIStrategy(candles []internal.Candle, params internal.Params) []internal.Action {
	cfg := newRSIConfig(params)
	rsi := internal.CalculateRSI(internal.Closes(candles), cfg.window)

	actions := make([]internal.Action, len(candles))
	for i := 1; i < len(candles); i++ {
		actions[i] = cfg.action(rsi[i], rsi[i-1])
	}
	return actions
}

// RSILive возвращает действие на последней свече окна и текущее значение RSI.
func RSILive(window []internal.Candle, params internal.Params) (internal.Action, float64, error) {
	cfg := newRSIConfig(params)
	if len(window) < cfg.window+2 {
		return internal.HOLD, 0, errors.Wrapf(internal.ErrShortWindow, "rsi needs %d candles, got %d", cfg.window+2, len(window))
	}
	tail := window[len(window)-cfg.window-2:]
	rsi := internal.CalculateRSI(internal.Closes(tail), cfg.window)
	last := len(rsi) - 1
	return cfg.action(rsi[last], rsi[last-1]), rsi[last], nil
}
