// strategies/trend/ma_crossover.go

// Moving Average Crossover Strategies
//
// Описание стратегии:
// Две средние разной длины: короткая быстрее реагирует на цену. Пересечение короткой
// и длинной средней считается сменой тренда.
//
// Как работает:
// - sma_crossover: простые скользящие средние short_window и long_window
// - ema_crossover: экспоненциальные средние, опционально с тейк-профитом и стоп-лоссом
// - Покупка: короткая средняя пересекла длинную снизу вверх
// - Продажа: короткая пересекла длинную сверху вниз
// - Пересечение проверяется на свечах i-2 и i-1, сделка исполняется по свече i
//
// Параметры:
// - short_window, long_window: периоды средних
// - take_profit_stop_loss: 1 - выход только по TP/SL от цены входа (только ema_crossover)
// - take_profit_pct, stop_loss_pct: пороги TP/SL в долях
//
// Слабые стороны:
// - Запаздывание на боковом рынке даёт серию убыточных входов

package trend

import (
	"github.com/pkg/errors"

	"github.com/shep-analytics/gt-score-optimization/internal"
	"github.com/shep-analytics/gt-score-optimization/internal/optimize"
)

const (
	SMACrossoverName = "sma_crossover"
	EMACrossoverName = "ema_crossover"
)

var SMADefaults = internal.Params{
	"short_window": 10,
	"long_window":  50,
}

var EMADefaults = internal.Params{
	"short_window":          12,
	"long_window":           26,
	"take_profit_stop_loss": 0,
	"take_profit_pct":       0.005,
	"stop_loss_pct":         0.005,
}

func init() {
	optimize.RegisterStrategy(optimize.StrategySpec{
		Name:     SMACrossoverName,
		Generate: SMACrossoverStrategy,
		Live:     SMACrossoverLive,
		Defaults: SMADefaults,
		Space: optimize.SearchSpace{
			"short_window": optimize.QUniform(5, 20, 1),
			"long_window":  optimize.QUniform(30, 100, 1),
		},
		Bounds: optimize.ParamBounds{
			"short_window": {Min: 5, Max: 20},
			"long_window":  {Min: 30, Max: 100},
		},
	})

	optimize.RegisterStrategy(optimize.StrategySpec{
		Name:     EMACrossoverName,
		Generate: EMACrossoverStrategy,
		Live:     EMACrossoverLive,
		Defaults: EMADefaults,
		Space: optimize.SearchSpace{
			"short_window":          optimize.QUniform(5, 20, 1),
			"long_window":           optimize.QUniform(21, 50, 1),
			"take_profit_stop_loss": optimize.Choice(0, 1),
			"take_profit_pct":       optimize.Uniform(0.001, 0.01),
			"stop_loss_pct":         optimize.Uniform(0.001, 0.01),
		},
		Bounds: optimize.ParamBounds{
			"short_window":          {Min: 5, Max: 20},
			"long_window":           {Min: 21, Max: 50},
			"take_profit_stop_loss": {Min: 0, Max: 1},
			"take_profit_pct":       {Min: 0.001, Max: 0.01},
			"stop_loss_pct":         {Min: 0.001, Max: 0.01},
		},
	})
}

// crossAction - BUY/SELL по пересечению short и long между свечами i-1 и i.
func crossAction(short, long []float64, i int) internal.Action {
	switch {
	case internal.CrossedAbove(short, long, i):
		return internal.BUY
	case internal.CrossedBelow(short, long, i):
		return internal.SELL
	}
	return internal.HOLD
}

func smaLines(candles []internal.Candle, params internal.Params) (short, long []float64, longWindow int) {
	p := params.Merge(SMADefaults)
	closes := internal.Closes(candles)
	longWindow = p.Int("long_window", 50)
	return internal.CalculateSMA(closes, p.Int("short_window", 10)), internal.CalculateSMA(closes, longWindow), longWindow
}

// SMACrossoverStrategy - пересечение простых средних с задержкой в одну свечу.
func SMACrossoverStrategy(candles []internal.Candle, params internal.Params) []internal.Action {
	short, long, _ := smaLines(candles, params)
	actions := make([]internal.Action, len(candles))
	for i := 2; i < len(candles); i++ {
		actions[i] = crossAction(short, long, i-1)
	}
	return actions
}

// SMACrossoverLive - пересечение на двух последних свечах окна, индикатор - короткая SMA.
func SMACrossoverLive(window []internal.Candle, params internal.Params) (internal.Action, float64, error) {
	short, long, longWindow := smaLines(window, params)
	if len(window) < longWindow+1 {
		return internal.HOLD, 0, errors.Wrapf(internal.ErrShortWindow, "sma_crossover needs %d candles, got %d", longWindow+1, len(window))
	}
	last := len(window) - 1
	return crossAction(short, long, last), short[last], nil
}

type emaConfig struct {
	short, long int
	tpsl        bool
	takeProfit  float64
	stopLoss    float64
}

func newEMAConfig(params internal.Params) emaConfig {
	p := params.Merge(EMADefaults)
	return emaConfig{
		short:      p.Int("short_window", 12),
		long:       p.Int("long_window", 26),
		tpsl:       p.Int("take_profit_stop_loss", 0) == 1,
		takeProfit: p.Float("take_profit_pct", 0.005),
		stopLoss:   p.Float("stop_loss_pct", 0.005),
	}
}

func (c emaConfig) lines(candles []internal.Candle) ([]float64, []float64) {
	closes := internal.Closes(candles)
	return internal.CalculateEWM(closes, c.short), internal.CalculateEWM(closes, c.long)
}

// EMACrossoverStrategy помнит открытую позицию: покупка только вне позиции, продажа
// только в позиции. При включённом TP/SL выход только по порогам от цены входа.
func EMACrossoverStrategy(candles []internal.Candle, params internal.Params) []internal.Action {
	cfg := newEMAConfig(params)
	short, long := cfg.lines(candles)

	actions := make([]internal.Action, len(candles))
	inPosition := false
	buyPrice := 0.0
	for i := 2; i < len(candles); i++ {
		signal := crossAction(short, long, i-1)
		price := candles[i].Close.ToFloat64()

		switch {
		case !inPosition:
			if signal == internal.BUY {
				actions[i] = internal.BUY
				inPosition, buyPrice = true, price
			}
		case cfg.tpsl:
			if price >= buyPrice*(1+cfg.takeProfit) || price <= buyPrice*(1-cfg.stopLoss) {
				actions[i] = internal.SELL
				inPosition = false
			}
		case signal == internal.SELL:
			actions[i] = internal.SELL
			inPosition = false
		}
	}
	return actions
}

// EMACrossoverLive не хранит позицию между вызовами, поэтому при включённом TP/SL
// отдаёт только покупки; выход по порогам остаётся за исполнителем.
func EMACrossoverLive(window []internal.Candle, params internal.Params) (internal.Action, float64, error) {
	cfg := newEMAConfig(params)
	if len(window) < cfg.long || len(window) < 2 {
		return internal.HOLD, 0, errors.Wrapf(internal.ErrShortWindow, "ema_crossover needs %d candles, got %d", cfg.long, len(window))
	}
	short, long := cfg.lines(window)
	last := len(window) - 1
	action := crossAction(short, long, last)
	if cfg.tpsl && action == internal.SELL {
		action = internal.HOLD
	}
	return action, short[last], nil
}
