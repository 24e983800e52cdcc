package loss

import (
	"math"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"github.com/shep-analytics/gt-score-optimization/internal"
)

// GoldenTicketConfig - параметры Golden-Ticket.
type GoldenTicketConfig struct {
	NumPeriods int     // фиксированное число периодов
	Adaptive   bool    // искать число периодов по стабилизации дисперсии
	MinPeriod  int     // нижняя граница поиска
	MaxPeriod  int     // верхняя граница поиска
	Epsilon    float64 // замена нулевых знаменателей
}

// DefaultGoldenTicketConfig возвращает параметры по умолчанию.
func DefaultGoldenTicketConfig() GoldenTicketConfig {
	return GoldenTicketConfig{
		NumPeriods: 50,
		MinPeriod:  10,
		MaxPeriod:  200,
		Epsilon:    internal.Epsilon,
	}
}

const (
	underTradeMin   = 100.0
	underTradeRange = 899.0
	stabilityRatio  = 0.01
)

// GoldenTicket - составная оценка: штраф за редкую торговлю, иначе
// значимость превышения над buy-and-hold, взвешенная согласованностью
// доходностей сделок.
//
//	trades <= P:   100 + 899·(1 - (n+1)/(P+2))   в (100, 999)
//	z <= 0:        200 - 100·e^z                 в [100, 200)
//	0 < z <= 1:    100·(1 - z)                   в [0, 100)
//	z > 1:         -mean·ln(z)·r²/downside
func GoldenTicket(cfg GoldenTicketConfig) Func {
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = internal.Epsilon
	}
	if cfg.NumPeriods <= 0 {
		cfg.NumPeriods = DefaultGoldenTicketConfig().NumPeriods
	}

	return func(r internal.CompiledResult) (float64, error) {
		if len(r.Snapshots) < 2 {
			return 0, errors.Wrapf(ErrInsufficientData, "golden ticket: %d snapshots", len(r.Snapshots))
		}
		if r.Snapshots[0].ReferenceValue <= 0 {
			return 0, errors.Wrap(ErrInsufficientData, "golden ticket: non-positive starting reference price")
		}

		periods := cfg.NumPeriods
		if cfg.Adaptive {
			periods = stablePeriod(r.Values(), cfg)
		}

		n := len(r.Trades)
		if n <= periods {
			return underTradePenalty(n, periods), nil
		}

		returns := lo.Map(r.Trades, func(t internal.Trade, _ int) float64 { return t.ProfitLossPct })
		mean := stat.Mean(returns, nil)

		bench := perTradeBenchmark(r.MarketReturn, n)
		se := internal.NonZero(math.Sqrt(stat.Variance(returns, nil)/float64(n)), cfg.Epsilon)
		z := (mean - bench) / se

		switch {
		case z <= 0:
			return 200 - 100*math.Exp(z), nil
		case z <= 1:
			return 100 * (1 - z), nil
		}

		r2 := trendFit(returns)
		downside := downsideDeviation(returns, cfg.Epsilon)
		score := mean * math.Log(z) * r2 / downside
		return -score, nil
	}
}

// underTradePenalty строго убывает по trades на [0, periods].
func underTradePenalty(trades, periods int) float64 {
	frac := float64(trades+1) / float64(periods+2)
	return underTradeMin + underTradeRange*(1-frac)
}

// perTradeBenchmark - доходность на сделку, эквивалентная buy-and-hold за весь период.
func perTradeBenchmark(marketReturn float64, trades int) float64 {
	growth := 1 + marketReturn
	if growth <= 0 {
		return -1
	}
	return math.Pow(growth, 1/float64(trades)) - 1
}

// trendFit - R² доходностей сделок против их порядкового номера.
// Постоянный ряд считается идеально согласованным.
func trendFit(returns []float64) float64 {
	idx := make([]float64, len(returns))
	for i := range idx {
		idx[i] = float64(i)
	}
	alpha, beta := stat.LinearRegression(idx, returns, nil, false)
	r2 := stat.RSquared(idx, returns, nil, alpha, beta)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		return 1
	}
	return r2
}

// downsideDeviation - корень из среднего квадрата убыточных доходностей.
func downsideDeviation(returns []float64, eps float64) float64 {
	losses := lo.Filter(returns, func(v float64, _ int) bool { return v < 0 })
	if len(losses) == 0 {
		return eps
	}
	sq := lo.SumBy(losses, func(v float64) float64 { return v * v })
	d := math.Sqrt(sq / float64(len(losses)))
	if d == 0 {
		return eps
	}
	return d
}

// stablePeriod ищет наименьшее число периодов из [MinPeriod, MaxPeriod], при
// котором дисперсия доходностей по окнам перестаёт меняться: среднее
// изменение на трёх соседних кандидатах меньше 1% их средней дисперсии.
func stablePeriod(values []float64, cfg GoldenTicketConfig) int {
	low, high := cfg.MinPeriod, cfg.MaxPeriod
	if half := len(values) / 2; high > half {
		high = half
	}
	for low <= high {
		mid := (low + high) / 2
		if varianceStable(values, mid) {
			return mid
		}
		low = mid + 1
	}
	return cfg.NumPeriods
}

func varianceStable(values []float64, p int) bool {
	v := []float64{windowVariance(values, p), windowVariance(values, p+1), windowVariance(values, p+2)}
	mean := stat.Mean(v, nil)
	change := (math.Abs(v[1]-v[0]) + math.Abs(v[2]-v[1])) / 2
	if mean == 0 && change == 0 {
		return true
	}
	return change < stabilityRatio*mean
}

// windowVariance делит ряд на p смежных окон и возвращает популяционную
// дисперсию доходностей окон.
func windowVariance(values []float64, p int) float64 {
	steps := len(values) - 1
	if p > steps {
		p = steps
	}
	if p < 1 {
		return 0
	}
	returns := make([]float64, p)
	for i := 0; i < p; i++ {
		from := values[i*steps/p]
		to := values[(i+1)*steps/p]
		returns[i] = internal.SafeDiv(to, from, 1) - 1
	}
	_, std := stat.PopMeanStdDev(returns, nil)
	return std * std
}
