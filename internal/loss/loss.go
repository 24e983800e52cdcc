// Package loss сводит результат бэктеста к одному числу. Меньше - лучше.
package loss

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/shep-analytics/gt-score-optimization/internal"
)

// Func - функция потерь над склеенным результатом.
type Func func(internal.CompiledResult) (float64, error)

var (
	// ErrInsufficientData - данных не хватает для расчёта.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrUnknownObjective - неизвестная цель регрессионной функции потерь.
	ErrUnknownObjective = errors.New("unknown loss objective")
	// ErrUnknownLoss - функция потерь с таким именем не зарегистрирована.
	ErrUnknownLoss = errors.New("unknown loss function")
)

// Objective - что минимизирует регрессионная функция потерь.
type Objective string

const (
	// ObjectiveMSE - среднеквадратичная ошибка прогноза следующей доходности.
	ObjectiveMSE Objective = "mse"
	// ObjectiveProfit - минус суммарная прибыль торговли по знаку прогноза.
	ObjectiveProfit Objective = "profit"
)

// ParseObjective проверяет строку цели до начала любой работы.
func ParseObjective(s string) (Objective, error) {
	switch o := Objective(s); o {
	case ObjectiveMSE, ObjectiveProfit:
		return o, nil
	}
	return "", errors.Wrapf(ErrUnknownObjective, "%q (want %q or %q)", s, ObjectiveMSE, ObjectiveProfit)
}

var registry = map[string]func() (Func, error){
	"simple": func() (Func, error) { return Simple, nil },
	"sharpe": func() (Func, error) { return Sharpe, nil },
	"ridge":  func() (Func, error) { return Ridge(string(ObjectiveMSE)) },
	"ridge_profit": func() (Func, error) {
		return Ridge(string(ObjectiveProfit))
	},
	"elastic_net": func() (Func, error) { return ElasticNet(string(ObjectiveMSE)) },
	"elastic_net_profit": func() (Func, error) {
		return ElasticNet(string(ObjectiveProfit))
	},
	"golden_ticket": func() (Func, error) { return GoldenTicket(DefaultGoldenTicketConfig()), nil },
	"golden_ticket_adaptive": func() (Func, error) {
		cfg := DefaultGoldenTicketConfig()
		cfg.Adaptive = true
		return GoldenTicket(cfg), nil
	},
}

// ByName возвращает функцию потерь по имени.
func ByName(name string) (Func, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownLoss, "%q (known: %v)", name, Names())
	}
	return ctor()
}

// Names возвращает имена зарегистрированных функций потерь.
func Names() []string {
	names := lo.Keys(registry)
	sort.Strings(names)
	return names
}
