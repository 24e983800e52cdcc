// compile.go - склейка результатов по нескольким инструментам/окнам в один ряд.
package internal

import (
	"sort"
	"time"

	"github.com/samber/lo"
)

const daysPerYear = 365.25

// CompiledResult - хронологически непрерывный ряд и агрегаты по нему.
type CompiledResult struct {
	Sources             int                 `json:"sources"`
	Trades              []Trade             `json:"trades_history"`
	Snapshots           []PortfolioSnapshot `json:"portfolio_values_over_time"`
	TotalTrades         int                 `json:"total_trades"`
	TotalMoneyMade      float64             `json:"total_amount_of_money_made"`
	TotalElapsed        time.Duration       `json:"total_time_passed"`
	TotalYears          float64             `json:"total_years"`
	TotalPercentageGain float64             `json:"total_percentage_gain"`
	AverageAnnualReturn float64             `json:"average_return_per_year"`
	TradesPerYear       float64             `json:"average_trades_per_year"`
	AverageHold         time.Duration       `json:"average_time_holding_position"`
	LongestHold         time.Duration       `json:"longest_time_position_held"`
	MarketReturn        float64             `json:"market_return"`
	FinalValue          float64             `json:"final_value"`
}

// Values возвращает ряд стоимости портфеля.
func (c CompiledResult) Values() []float64 {
	return lo.Map(c.Snapshots, func(s PortfolioSnapshot, _ int) float64 { return s.Value })
}

// ReferenceValues возвращает ряд цены эталонного инструмента.
func (c CompiledResult) ReferenceValues() []float64 {
	return lo.Map(c.Snapshots, func(s PortfolioSnapshot, _ int) float64 { return s.ReferenceValue })
}

// CompileSequential склеивает результаты встык: каждый следующий ряд сдвигается
// по времени сразу за последней точкой предыдущего и масштабируется так, чтобы
// в точке стыка не было скачка стоимости. Входные результаты не изменяются.
func CompileSequential(results []BacktestResult) CompiledResult {
	out := CompiledResult{Sources: len(results)}
	if len(results) == 0 {
		return out
	}

	base := results[0].Clone()
	out.Trades = base.Trades
	out.Snapshots = base.Snapshots
	out.TotalMoneyMade = base.TotalMoneyMade

	for _, next := range results[1:] {
		r := next.Clone()
		out.TotalMoneyMade += r.TotalMoneyMade
		if len(r.Snapshots) == 0 {
			out.Trades = append(out.Trades, r.Trades...)
			continue
		}
		if len(out.Snapshots) == 0 {
			out.Snapshots = r.Snapshots
			out.Trades = append(out.Trades, r.Trades...)
			continue
		}

		prevLast := out.Snapshots[len(out.Snapshots)-1]
		curFirst := r.Snapshots[0]

		offset := prevLast.Time.Add(spliceStep(out.Snapshots, r.Snapshots)).Sub(curFirst.Time)
		valueScale := SafeDiv(prevLast.Value, curFirst.Value, 1)
		refScale := SafeDiv(prevLast.ReferenceValue, curFirst.ReferenceValue, 1)

		for i := range r.Snapshots {
			r.Snapshots[i].Time = r.Snapshots[i].Time.Add(offset)
			r.Snapshots[i].Value *= valueScale
			r.Snapshots[i].ReferenceValue *= refScale
		}
		for i := range r.Trades {
			r.Trades[i].PurchaseDate = r.Trades[i].PurchaseDate.Add(offset)
			r.Trades[i].SaleDate = r.Trades[i].SaleDate.Add(offset)
		}

		out.Snapshots = append(out.Snapshots, r.Snapshots...)
		out.Trades = append(out.Trades, r.Trades...)
	}

	out.summarize()
	return out
}

// spliceStep - шаг между последней точкой prev и первой точкой next:
// интервал последних двух точек prev, иначе первых двух next, иначе сутки.
func spliceStep(prev, next []PortfolioSnapshot) time.Duration {
	if n := len(prev); n >= 2 {
		if d := prev[n-1].Time.Sub(prev[n-2].Time); d > 0 {
			return d
		}
	}
	if len(next) >= 2 {
		if d := next[1].Time.Sub(next[0].Time); d > 0 {
			return d
		}
	}
	return 24 * time.Hour
}

func (c *CompiledResult) summarize() {
	c.TotalTrades = len(c.Trades)
	c.AverageHold, c.LongestHold = holdStats(c.Trades)

	if len(c.Snapshots) == 0 {
		return
	}
	first, last := c.Snapshots[0], c.Snapshots[len(c.Snapshots)-1]

	c.FinalValue = last.Value
	c.TotalElapsed = last.Time.Sub(first.Time)
	c.TotalYears = c.TotalElapsed.Hours() / 24 / daysPerYear
	c.TotalPercentageGain = SafeDiv(last.Value, first.Value, 1) - 1
	c.MarketReturn = SafeDiv(last.ReferenceValue, first.ReferenceValue, 1) - 1
	c.AverageAnnualReturn = averageCalendarYearReturn(c.Snapshots)
	c.TradesPerYear = SafeDiv(float64(c.TotalTrades), c.TotalYears, 0)
}

// averageCalendarYearReturn усредняет (конец-начало)/начало по календарным годам.
// Годы менее чем с двумя точками не учитываются.
func averageCalendarYearReturn(snapshots []PortfolioSnapshot) float64 {
	byYear := lo.GroupBy(snapshots, func(s PortfolioSnapshot) int { return s.Time.Year() })
	years := lo.Keys(byYear)
	sort.Ints(years)

	returns := lo.FilterMap(years, func(y int, _ int) (float64, bool) {
		points := byYear[y]
		if len(points) < 2 || points[0].Value == 0 {
			return 0, false
		}
		return (points[len(points)-1].Value - points[0].Value) / points[0].Value, true
	})
	if len(returns) == 0 {
		return 0
	}
	return lo.Sum(returns) / float64(len(returns))
}
