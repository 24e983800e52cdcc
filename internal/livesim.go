// livesim.go - пошаговая симуляция: стратегия видит только уже прошедшие свечи.
package internal

import "sort"

// LiveFunc принимает окно candles[:i+1] и возвращает действие на последней свече
// и значение индикатора, на котором оно основано.
type LiveFunc func(window []Candle, params Params) (Action, float64, error)

// RunLiveSimulation вызывает fn для каждого растущего префикса ряда и исполняет
// решения тем же счётом, что и RunBacktest. Ошибка fn на префиксе трактуется как HOLD:
// короткие окна в начале ряда - обычная ситуация.
func RunLiveSimulation(fn LiveFunc, candles []Candle, params Params, cfg BacktestConfig) (BacktestResult, []AnnotatedSignal) {
	ordered := append([]Candle(nil), candles...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Time.Before(ordered[j].Time)
	})

	acc := newAccount(cfg, len(ordered))
	annotated := make([]AnnotatedSignal, 0, len(ordered))
	signals := make([]ActionSignal, len(ordered))

	for i, c := range ordered {
		action, indicator, err := fn(ordered[:i+1:i+1], params)
		if err != nil {
			action, indicator = HOLD, 0
		}
		signals[i] = ActionSignal{Time: c.Time, Close: c.Close.ToFloat64(), Action: action}
		step := acc.step(signals[i])
		step.Indicator = indicator
		annotated = append(annotated, step)
	}

	var first, last ActionSignal
	if len(signals) > 0 {
		first, last = signals[0], signals[len(signals)-1]
	}
	return acc.finish(first, last, len(signals)), annotated
}
