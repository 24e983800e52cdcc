package optimizer

import (
	"context"
	"time"

	"github.com/shep-analytics/gt-score-optimization/internal"
	"github.com/shep-analytics/gt-score-optimization/internal/optimize"
)

// Phase - показатели лучшей стратегии на одном наборе данных
type Phase struct {
	MoneyMade     float64       `json:"total_amount_of_money_made"`
	TotalReturn   float64       `json:"total_percentage_gain"`
	MarketReturn  float64       `json:"market_return"`
	Trades        int           `json:"total_trades"`
	AverageHold   time.Duration `json:"average_time_holding_position"`
	AnnualReturn  float64       `json:"average_return_per_year"`
	TradesPerYear float64       `json:"average_trades_per_year"`
}

// Report - одна строка отчёта: метод поиска × функция потерь
type Report struct {
	RunID       string          `json:"run_id"`
	Method      optimize.Method `json:"method"`
	Loss        string          `json:"loss"`
	Strategy    string          `json:"strategy"`
	Params      internal.Params `json:"params"`
	BestLoss    float64         `json:"best_loss"`
	Evaluations int             `json:"evaluations"`
	Failed      int             `json:"failed"`
	Duration    time.Duration   `json:"duration"`
	Training    Phase           `json:"training"`
	Testing     *Phase          `json:"testing,omitempty"`
}

// Result - строка отчёта вместе со склеенными рядами для графиков
type Result struct {
	Report   Report                   `json:"report"`
	Training internal.CompiledResult  `json:"training"`
	Testing  *internal.CompiledResult `json:"testing,omitempty"`
}

// ReportRunner - интерфейс для прогона матрицы методов и функций потерь
type ReportRunner interface {
	Run(ctx context.Context, train, test []optimize.Frame) ([]Result, error)
}

// ResultSaver - интерфейс для сохранения результатов
type ResultSaver interface {
	Save(results []Result) ([]string, error)
}

// ResultPrinter - интерфейс для вывода результатов
type ResultPrinter interface {
	PrintComparison(reports []Report)
	PrintProgress(current, total int)
}

// Config - конфигурация прогона
type Config struct {
	Strategies     []string // пусто - все зарегистрированные
	Losses         []string
	Methods        []string
	MaxEvals       int
	PopulationSize int
	Seed           uint64
	Parallelism    int
	EvalTimeout    time.Duration
	Backtest       internal.BacktestConfig
	XGBoostModel   string // модель для функций потерь xgboost и xgboost_profit
	Debug          bool
}

func phaseOf(c internal.CompiledResult) Phase {
	return Phase{
		MoneyMade:     c.TotalMoneyMade,
		TotalReturn:   c.TotalPercentageGain,
		MarketReturn:  c.MarketReturn,
		Trades:        c.TotalTrades,
		AverageHold:   c.AverageHold,
		AnnualReturn:  c.AverageAnnualReturn,
		TradesPerYear: c.TradesPerYear,
	}
}
