package loss

import (
	"gonum.org/v1/gonum/stat"

	"github.com/shep-analytics/gt-score-optimization/internal"
)

// Simple - минус заработанная сумма.
func Simple(r internal.CompiledResult) (float64, error) {
	return -r.TotalMoneyMade, nil
}

// Sharpe - минус отношение средней пошаговой доходности к её стандартному
// отклонению (безрисковая ставка 0). Меньше двух доходностей или нулевое
// отклонение дают нейтральный 0.
func Sharpe(r internal.CompiledResult) (float64, error) {
	returns := internal.PctChange(r.Values())
	if len(returns) < 2 {
		return 0, nil
	}
	mean, std := stat.MeanStdDev(returns, nil)
	return -internal.SafeDiv(mean, std, 0), nil
}
