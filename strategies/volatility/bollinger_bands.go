// strategies/volatility/bollinger_bands.go

// Bollinger Bands Strategy
//
// Описание стратегии:
// Полосы Боллинджера - скользящее среднее ± num_std_dev выборочных стандартных
// отклонений за window свечей. Выход цены за полосы трактуется как перепроданность
// или перекупленность.
//
// Как работает:
// - Покупка: закрытие ушло ниже нижней полосы (на предыдущей свече было не ниже)
// - Продажа: закрытие ушло выше верхней полосы (на предыдущей свече было не выше)
// - Проверка идёт по свечам i-2 и i-1, сделка по свече i
//
// Параметры:
// - window: период среднего и отклонения (по умолчанию 20)
// - num_std_dev: ширина полос в отклонениях (по умолчанию 2)
//
// Лучшие условия для применения:
// - Боковой рынок с возвратом к среднему

package volatility

import (
	"github.com/pkg/errors"

	"github.com/shep-analytics/gt-score-optimization/internal"
	"github.com/shep-analytics/gt-score-optimization/internal/optimize"
)

const BollingerName = "bollinger_bands"

var BollingerDefaults = internal.Params{
	"window":      20,
	"num_std_dev": 2,
}

func init() {
	optimize.RegisterStrategy(optimize.StrategySpec{
		Name:     BollingerName,
		Generate: BollingerStrategy,
		Live:     BollingerLive,
		Defaults: BollingerDefaults,
		Space: optimize.SearchSpace{
			"window":      optimize.QUniform(10, 50, 1),
			"num_std_dev": optimize.Uniform(1, 3),
		},
		Bounds: optimize.ParamBounds{
			"window":      {Min: 10, Max: 50},
			"num_std_dev": {Min: 1, Max: 3},
		},
	})
}

// BollingerBands возвращает среднее, верхнюю и нижнюю полосы.
func BollingerBands(closes []float64, window int, numStdDev float64) (mean, upper, lower []float64) {
	mean = internal.CalculateSMA(closes, window)
	std := internal.CalculateRollingStd(closes, window)
	upper = make([]float64, len(closes))
	lower = make([]float64, len(closes))
	for i := range closes {
		upper[i] = mean[i] + numStdDev*std[i]
		lower[i] = mean[i] - numStdDev*std[i]
	}
	return mean, upper, lower
}

func bollingerAction(closes, upper, lower []float64, i int) internal.Action {
	switch {
	case internal.CrossedBelow(closes, lower, i):
		return internal.BUY
	case internal.CrossedAbove(closes, upper, i):
		return internal.SELL
	}
	return internal.HOLD
}

func bollingerParams(params internal.Params) (int, float64) {
	p := params.Merge(BollingerDefaults)
	return p.Int("window", 20), p.Float("num_std_dev", 2)
}

// BollingerStrategy - сигналы выхода за полосы для всего ряда.
func BollingerStrategy(candles []internal.Candle, params internal.Params) []internal.Action {
	window, k := bollingerParams(params)
	closes := internal.Closes(candles)
	_, upper, lower := BollingerBands(closes, window, k)

	actions := make([]internal.Action, len(candles))
	for i := 2; i < len(candles); i++ {
		actions[i] = bollingerAction(closes, upper, lower, i-1)
	}
	return actions
}

// BollingerLive - решение по двум последним свечам окна, индикатор - цена закрытия.
func BollingerLive(window []internal.Candle, params internal.Params) (internal.Action, float64, error) {
	w, k := bollingerParams(params)
	if len(window) < w+1 {
		return internal.HOLD, 0, errors.Wrapf(internal.ErrShortWindow, "bollinger_bands needs %d candles, got %d", w+1, len(window))
	}
	closes := internal.Closes(window)
	_, upper, lower := BollingerBands(closes, w, k)
	last := len(window) - 1
	return bollingerAction(closes, upper, lower, last), closes[last], nil
}
