// strategies/momentum/macd.go

// MACD Strategy
//
// Описание стратегии:
// MACD - разность быстрой и медленной экспоненциальных средних. Сигнальная линия -
// EMA самой MACD.
//
// Как работает:
// - EMA без поправки на начало ряда (y[0] = x[0])
// - Покупка: MACD пересекла сигнальную линию снизу вверх
// - Продажа: MACD пересекла сигнальную линию сверху вниз
// - Пересечение проверяется по двум предыдущим свечам, сделка исполняется по текущей
//
// Параметры:
// - short_window: период быстрой EMA (по умолчанию 12)
// - long_window: период медленной EMA (по умолчанию 26)
// - signal_window: период сигнальной линии (по умолчанию 9)

package momentum

import (
	"github.com/pkg/errors"

	"github.com/shep-analytics/gt-score-optimization/internal"
	"github.com/shep-analytics/gt-score-optimization/internal/optimize"
)

const MACDName = "macd"

var MACDDefaults = internal.Params{
	"short_window":  12,
	"long_window":   26,
	"signal_window": 9,
}

func init() {
	optimize.RegisterStrategy(optimize.StrategySpec{
		Name:     MACDName,
		Generate: MACDStrategy,
		Live:     MACDLive,
		Defaults: MACDDefaults,
		Space: optimize.SearchSpace{
			"short_window":  optimize.QUniform(5, 20, 1),
			"long_window":   optimize.QUniform(21, 50, 1),
			"signal_window": optimize.QUniform(5, 15, 1),
		},
		Bounds: optimize.ParamBounds{
			"short_window":  {Min: 5, Max: 20},
			"long_window":   {Min: 21, Max: 50},
			"signal_window": {Min: 5, Max: 15},
		},
	})
}

func macdLines(candles []internal.Candle, params internal.Params) ([]float64, []float64, int) {
	p := params.Merge(MACDDefaults)
	long := p.Int("long_window", 26)
	macd, signal := internal.CalculateMACD(internal.Closes(candles), p.Int("short_window", 12), long, p.Int("signal_window", 9))
	return macd, signal, long
}

// macdAction - действие по пересечению между свечами i-1 и i.
func macdAction(macd, signal []float64, i int) internal.Action {
	switch {
	case internal.CrossedAbove(macd, signal, i):
		return internal.BUY
	case internal.CrossedBelow(macd, signal, i):
		return internal.SELL
	}
	return internal.HOLD
}

// MACDStrategy - сигнал на свече i строится по пересечению на свечах i-2 и i-1.
func MACDStrategy(candles []internal.Candle, params internal.Params) []internal.Action {
	macd, signal, _ := macdLines(candles, params)
	actions := make([]internal.Action, len(candles))
	for i := 2; i < len(candles); i++ {
		actions[i] = macdAction(macd, signal, i-1)
	}
	return actions
}

// MACDLive проверяет пересечение на двух последних свечах окна и возвращает текущую MACD.
func MACDLive(window []internal.Candle, params internal.Params) (internal.Action, float64, error) {
	macd, signal, long := macdLines(window, params)
	if len(window) < long || len(window) < 2 {
		return internal.HOLD, 0, errors.Wrapf(internal.ErrShortWindow, "macd needs %d candles, got %d", long, len(window))
	}
	last := len(window) - 1
	return macdAction(macd, signal, last), macd[last], nil
}
