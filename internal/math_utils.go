package internal

import "math"

// Epsilon подставляется вместо нулевого знаменателя там, где нужен конечный результат.
const Epsilon = 1e-10

// SafeDiv возвращает a/b, либо fallback если b равен нулю или результат не конечен.
func SafeDiv(a, b, fallback float64) float64 {
	if b == 0 {
		return fallback
	}
	r := a / b
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return fallback
	}
	return r
}

// NonZero заменяет ноль (и NaN) на eps, сохраняя знак остальных значений.
func NonZero(x, eps float64) float64 {
	if x == 0 || math.IsNaN(x) {
		return eps
	}
	return x
}

// Clamp ограничивает x отрезком [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// PctChange - пошаговые доходности ряда (аналог pct_change().dropna()).
// Шаг с нулевым предыдущим значением даёт 0.
func PctChange(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = SafeDiv(values[i]-values[i-1], values[i-1], 0)
	}
	return out
}
