// common.go
// Общие индикаторы для стратегий. Значения до прогрева окна равны NaN,
// поэтому любые сравнения с ними ложны и сигналов не порождают.

package internal

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// CalculateSMA вычисляет простую скользящую среднюю
func CalculateSMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// CalculateRollingStd - выборочное (N-1) стандартное отклонение в окне.
func CalculateRollingStd(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period < 2 || len(values) < period {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		out[i] = stat.StdDev(values[i-period+1:i+1], nil)
	}
	return out
}

// CalculateEWM - экспоненциальное сглаживание с alpha = 2/(span+1), без поправки
// на начало ряда: y[0] = x[0], y[t] = (1-alpha)*y[t-1] + alpha*x[t].
func CalculateEWM(values []float64, span int) []float64 {
	out := nanSlice(len(values))
	if span <= 0 || len(values) == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = (1-alpha)*out[i-1] + alpha*values[i]
	}
	return out
}

// CalculateMACD возвращает линию MACD и сигнальную линию.
func CalculateMACD(values []float64, fast, slow, signal int) ([]float64, []float64) {
	fastEMA := CalculateEWM(values, fast)
	slowEMA := CalculateEWM(values, slow)
	macd := make([]float64, len(values))
	for i := range values {
		macd[i] = fastEMA[i] - slowEMA[i]
	}
	return macd, CalculateEWM(macd, signal)
}

// CalculateRSI - RSI на скользящих средних приростов и потерь за window шагов.
func CalculateRSI(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 0 || len(values) <= window {
		return out
	}
	gains := make([]float64, len(values))
	losses := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}
	for i := window; i < len(values); i++ {
		avgGain := stat.Mean(gains[i-window+1:i+1], nil)
		avgLoss := stat.Mean(losses[i-window+1:i+1], nil)
		switch {
		case avgLoss == 0 && avgGain == 0:
			out[i] = math.NaN()
		case avgLoss == 0:
			out[i] = 100
		default:
			out[i] = 100 - 100/(1+avgGain/avgLoss)
		}
	}
	return out
}

// CalculateRollingMax вычисляет скользящий максимум High
func CalculateRollingMax(candles []Candle, period int) []float64 {
	out := nanSlice(len(candles))
	if period <= 0 || len(candles) < period {
		return out
	}
	for i := period - 1; i < len(candles); i++ {
		max := candles[i].High.ToFloat64()
		for j := i - period + 1; j <= i; j++ {
			if h := candles[j].High.ToFloat64(); h > max {
				max = h
			}
		}
		out[i] = max
	}
	return out
}

// CalculateRollingMin вычисляет скользящий минимум Low
func CalculateRollingMin(candles []Candle, period int) []float64 {
	out := nanSlice(len(candles))
	if period <= 0 || len(candles) < period {
		return out
	}
	for i := period - 1; i < len(candles); i++ {
		min := candles[i].Low.ToFloat64()
		for j := i - period + 1; j <= i; j++ {
			if l := candles[j].Low.ToFloat64(); l < min {
				min = l
			}
		}
		out[i] = min
	}
	return out
}

// CrossedAbove - a пересекла b снизу вверх между i-1 и i.
func CrossedAbove(a, b []float64, i int) bool {
	return i > 0 && a[i] > b[i] && a[i-1] <= b[i-1]
}

// CrossedBelow - a пересекла b сверху вниз между i-1 и i.
func CrossedBelow(a, b []float64, i int) bool {
	return i > 0 && a[i] < b[i] && a[i-1] >= b[i-1]
}
