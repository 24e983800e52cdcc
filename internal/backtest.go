// backtest.go
package internal

import (
	"sort"
	"time"

	"github.com/pkg/errors"
)

// ActionSignal - торговое решение стратегии в момент времени.
type ActionSignal struct {
	Time   time.Time `json:"time"`
	Close  float64   `json:"close"`
	Action Action    `json:"action"`
}

// AnnotatedSignal - сигнал с состоянием портфеля после его обработки.
type AnnotatedSignal struct {
	ActionSignal
	Cash           float64 `json:"cash"`
	Position       float64 `json:"position"`
	PortfolioValue float64 `json:"portfolio_value"`
	Indicator      float64 `json:"indicator,omitempty"`
}

// Trade - закрытая сделка. После добавления в журнал не изменяется.
type Trade struct {
	PurchasePrice float64       `json:"purchase_price"`
	SalePrice     float64       `json:"sale_price"`
	PurchaseDate  time.Time     `json:"purchase_date"`
	SaleDate      time.Time     `json:"sale_date"`
	ProfitLoss    float64       `json:"profit_loss_dollars"`
	ProfitLossPct float64       `json:"profit_loss_percent"`
	Held          time.Duration `json:"time_held"`
	Forced        bool          `json:"forced,omitempty"`
}

// PortfolioSnapshot - стоимость портфеля и цена инструмента на шаге.
type PortfolioSnapshot struct {
	Time           time.Time `json:"time"`
	Value          float64   `json:"value"`
	ReferenceValue float64   `json:"stock_value"`
}

type BacktestResult struct {
	StartingCash        float64             `json:"starting_cash"`
	FinalCash           float64             `json:"final_cash"`
	Trades              []Trade             `json:"trades_history"`
	Snapshots           []PortfolioSnapshot `json:"portfolio_values_over_time"`
	TotalTrades         int                 `json:"total_trades"`
	TotalMoneyMade      float64             `json:"total_amount_of_money_made"`
	TotalPercentageGain float64             `json:"total_percentage_gain"`
	AverageYearlyGain   float64             `json:"average_yearly_percentage_gain"`
	AverageMonthlyGain  float64             `json:"average_monthly_percentage_gain"`
	AverageHold         time.Duration       `json:"average_time_holding_position"`
	LongestHold         time.Duration       `json:"longest_time_position_held"`
}

// Clone возвращает глубокую копию (журнал и ряд копируются).
func (r BacktestResult) Clone() BacktestResult {
	out := r
	out.Trades = append([]Trade(nil), r.Trades...)
	out.Snapshots = append([]PortfolioSnapshot(nil), r.Snapshots...)
	return out
}

// BacktestConfig - параметры счёта и издержек.
type BacktestConfig struct {
	StartingCash float64 `json:"starting_cash"`
	Commission   float64 `json:"commission"`
	Spread       float64 `json:"spread"`
}

func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		StartingCash: 1_000_000,
		Commission:   0.001,
		Spread:       0.01,
	}
}

func (c BacktestConfig) Validate() error {
	if c.StartingCash <= 0 {
		return errors.Wrap(ErrConfig, "starting cash must be positive")
	}
	if c.Commission < 0 || c.Commission >= 1 {
		return errors.Wrap(ErrConfig, "commission must be in [0, 1)")
	}
	if c.Spread < 0 {
		return errors.Wrap(ErrConfig, "spread must not be negative")
	}
	return nil
}

// Annotate сопоставляет свечам действия стратегии. Входные срезы не изменяются.
func Annotate(candles []Candle, actions []Action) ([]ActionSignal, error) {
	if len(candles) != len(actions) {
		return nil, errors.Errorf("strategy returned %d actions for %d candles", len(actions), len(candles))
	}
	signals := make([]ActionSignal, len(candles))
	for i, c := range candles {
		signals[i] = ActionSignal{Time: c.Time, Close: c.Close.ToFloat64(), Action: actions[i]}
	}
	return signals, nil
}

// account - денежный баланс и не более одной открытой позиции.
type account struct {
	cfg        BacktestConfig
	cash       float64
	position   float64
	entryPrice float64
	entryTime  time.Time
	trades     []Trade
	snapshots  []PortfolioSnapshot
}

func newAccount(cfg BacktestConfig, capacity int) *account {
	return &account{
		cfg:       cfg,
		cash:      cfg.StartingCash,
		snapshots: make([]PortfolioSnapshot, 0, capacity),
	}
}

func (a *account) holding() bool {
	return a.position > 0
}

// step применяет действие и записывает снимок портфеля.
func (a *account) step(s ActionSignal) AnnotatedSignal {
	switch s.Action {
	case BUY:
		if !a.holding() {
			a.open(s.Close, s.Time)
		}
	case SELL:
		if a.holding() {
			a.close(s.Close, s.Time, false)
		}
	}

	value := a.cash
	if a.holding() {
		value += a.position * s.Close
	}
	a.snapshots = append(a.snapshots, PortfolioSnapshot{Time: s.Time, Value: value, ReferenceValue: s.Close})

	return AnnotatedSignal{
		ActionSignal:   s,
		Cash:           a.cash,
		Position:       a.position,
		PortfolioValue: value,
	}
}

func (a *account) open(price float64, at time.Time) {
	buyPrice := price + a.cfg.Spread
	if buyPrice <= 0 {
		return
	}
	notional := a.cash * (1 - a.cfg.Commission)
	a.position = notional / buyPrice
	a.cash -= notional
	a.entryPrice = buyPrice
	a.entryTime = at
}

func (a *account) close(price float64, at time.Time, forced bool) {
	sellPrice := price - a.cfg.Spread
	proceeds := a.position * sellPrice * (1 - a.cfg.Commission)
	cost := a.position * a.entryPrice
	profit := proceeds - cost

	a.cash += proceeds
	a.trades = append(a.trades, Trade{
		PurchasePrice: a.entryPrice,
		SalePrice:     sellPrice,
		PurchaseDate:  a.entryTime,
		SaleDate:      at,
		ProfitLoss:    profit,
		ProfitLossPct: SafeDiv(profit, cost, 0),
		Held:          at.Sub(a.entryTime),
		Forced:        forced,
	})

	a.position = 0
	a.entryPrice = 0
	a.entryTime = time.Time{}
}

// finish закрывает открытую позицию по последней цене и собирает итоги.
func (a *account) finish(first, last ActionSignal, n int) BacktestResult {
	if n > 0 && a.holding() {
		a.close(last.Close, last.Time, true)
	}

	moneyMade := a.cash - a.cfg.StartingCash
	gain := moneyMade / a.cfg.StartingCash

	days := 1.0
	if n > 0 {
		if d := int(last.Time.Sub(first.Time).Hours() / 24); d > 0 {
			days = float64(d)
		}
	}

	avgHold, longest := holdStats(a.trades)

	return BacktestResult{
		StartingCash:        a.cfg.StartingCash,
		FinalCash:           a.cash,
		Trades:              a.trades,
		Snapshots:           a.snapshots,
		TotalTrades:         len(a.trades),
		TotalMoneyMade:      moneyMade,
		TotalPercentageGain: gain,
		AverageYearlyGain:   gain / (days / 365),
		AverageMonthlyGain:  gain / (days / 30),
		AverageHold:         avgHold,
		LongestHold:         longest,
	}
}

// holdStats считает среднее (по числу сделок) и максимальное время удержания.
func holdStats(trades []Trade) (time.Duration, time.Duration) {
	if len(trades) == 0 {
		return 0, 0
	}
	var total, longest time.Duration
	for _, t := range trades {
		total += t.Held
		if t.Held > longest {
			longest = t.Held
		}
	}
	return total / time.Duration(len(trades)), longest
}

// RunBacktest прогоняет последовательность сигналов через счёт.
// Пустая последовательность даёт нулевой результат без ошибки.
func RunBacktest(signals []ActionSignal, cfg BacktestConfig) (BacktestResult, []AnnotatedSignal) {
	ordered := append([]ActionSignal(nil), signals...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Time.Before(ordered[j].Time)
	})

	acc := newAccount(cfg, len(ordered))
	annotated := make([]AnnotatedSignal, 0, len(ordered))
	for _, s := range ordered {
		annotated = append(annotated, acc.step(s))
	}

	var first, last ActionSignal
	if len(ordered) > 0 {
		first, last = ordered[0], ordered[len(ordered)-1]
	}
	return acc.finish(first, last, len(ordered)), annotated
}

// RunCandles - удобная обёртка: свечи + действия стратегии.
func RunCandles(candles []Candle, actions []Action, cfg BacktestConfig) (BacktestResult, error) {
	signals, err := Annotate(candles, actions)
	if err != nil {
		return BacktestResult{}, err
	}
	result, _ := RunBacktest(signals, cfg)
	return result, nil
}
