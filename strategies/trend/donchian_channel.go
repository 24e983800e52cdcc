// strategies/trend/donchian_channel.go

// Donchian Channel Strategy
//
// Пробой канала: верхняя граница - максимум High, нижняя - минимум Low за window свечей,
// предшествующих текущей. Покупка при закрытии выше верхней границы, продажа при закрытии
// ниже нижней. Как и у пересечений средних, пробой проверяется на свечах i-2 и i-1.

package trend

import (
	"math"

	"github.com/pkg/errors"

	"github.com/shep-analytics/gt-score-optimization/internal"
	"github.com/shep-analytics/gt-score-optimization/internal/optimize"
)

const DonchianName = "donchian_channel"

var DonchianDefaults = internal.Params{"window": 20}

func init() {
	optimize.RegisterStrategy(optimize.StrategySpec{
		Name:     DonchianName,
		Generate: DonchianStrategy,
		Live:     DonchianLive,
		Defaults: DonchianDefaults,
		Space:    optimize.SearchSpace{"window": optimize.QUniform(10, 50, 1)},
		Bounds:   optimize.ParamBounds{"window": {Min: 10, Max: 50}},
	})
}

// donchianChannel возвращает границы канала, сдвинутые на одну свечу назад.
func donchianChannel(candles []internal.Candle, window int) (upper, lower []float64) {
	high := internal.CalculateRollingMax(candles, window)
	low := internal.CalculateRollingMin(candles, window)
	upper = make([]float64, len(candles))
	lower = make([]float64, len(candles))
	for i := range candles {
		if i == 0 {
			upper[i], lower[i] = math.NaN(), math.NaN()
			continue
		}
		upper[i], lower[i] = high[i-1], low[i-1]
	}
	return upper, lower
}

func donchianAction(closes, upper, lower []float64, i int) internal.Action {
	switch {
	case internal.CrossedAbove(closes, upper, i):
		return internal.BUY
	case internal.CrossedBelow(closes, lower, i):
		return internal.SELL
	}
	return internal.HOLD
}

// DonchianStrategy - сигналы пробоя канала для всего ряда.
func DonchianStrategy(candles []internal.Candle, params internal.Params) []internal.Action {
	window := params.Merge(DonchianDefaults).Int("window", 20)
	closes := internal.Closes(candles)
	upper, lower := donchianChannel(candles, window)

	actions := make([]internal.Action, len(candles))
	for i := 2; i < len(candles); i++ {
		actions[i] = donchianAction(closes, upper, lower, i-1)
	}
	return actions
}

// DonchianLive - пробой на последних двух свечах окна, индикатор - цена закрытия.
func DonchianLive(window []internal.Candle, params internal.Params) (internal.Action, float64, error) {
	w := params.Merge(DonchianDefaults).Int("window", 20)
	if len(window) < w+2 {
		return internal.HOLD, 0, errors.Wrapf(internal.ErrShortWindow, "donchian_channel needs %d candles, got %d", w+2, len(window))
	}
	closes := internal.Closes(window)
	upper, lower := donchianChannel(window, w)
	last := len(window) - 1
	return donchianAction(closes, upper, lower, last), closes[last], nil
}
