package optimize

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/shep-analytics/gt-score-optimization/internal"
)

// GenerateFunc по ряду свечей и параметрам возвращает действие для каждой свечи.
type GenerateFunc func(candles []internal.Candle, params internal.Params) []internal.Action

// StrategySpec - описание стратегии-кандидата.
type StrategySpec struct {
	Name     string
	Generate GenerateFunc     // пакетная генерация сигналов
	Live     internal.LiveFunc // пошаговый вариант, используется при отсутствии Generate
	Defaults internal.Params
	Space    SearchSpace // для байесовского поиска
	Bounds   ParamBounds // для случайного и генетического поиска
}

// Validate проверяет описание стратегии.
func (s StrategySpec) Validate() error {
	if s.Name == "" {
		return errors.Wrap(internal.ErrConfig, "strategy without name")
	}
	if s.Generate == nil && s.Live == nil {
		return errors.Wrapf(internal.ErrConfig, "strategy %s: neither Generate nor Live is set", s.Name)
	}
	if err := s.Space.Validate(); err != nil {
		return errors.Wrapf(internal.ErrConfig, "strategy %s: %v", s.Name, err)
	}
	if err := s.Bounds.Validate(); err != nil {
		return errors.Wrapf(internal.ErrConfig, "strategy %s: %v", s.Name, err)
	}
	return nil
}

var (
	strategyMu       sync.RWMutex
	strategyRegistry = make(map[string]StrategySpec)
)

// RegisterStrategy добавляет стратегию в реестр. Вызывается из init пакетов стратегий.
func RegisterStrategy(spec StrategySpec) {
	if err := spec.Validate(); err != nil {
		panic(err)
	}
	strategyMu.Lock()
	defer strategyMu.Unlock()
	strategyRegistry[spec.Name] = spec
}

// Strategy возвращает зарегистрированную стратегию.
func Strategy(name string) (StrategySpec, bool) {
	strategyMu.RLock()
	defer strategyMu.RUnlock()
	spec, ok := strategyRegistry[name]
	return spec, ok
}

// StrategyNames возвращает имена зарегистрированных стратегий по алфавиту.
func StrategyNames() []string {
	strategyMu.RLock()
	defer strategyMu.RUnlock()
	names := lo.Keys(strategyRegistry)
	sort.Strings(names)
	return names
}

// Strategies разрешает список имён; пустой список означает все стратегии.
func Strategies(names ...string) ([]StrategySpec, error) {
	if len(names) == 0 {
		names = StrategyNames()
	}
	specs := make([]StrategySpec, 0, len(names))
	for _, name := range names {
		spec, ok := Strategy(name)
		if !ok {
			return nil, errors.Wrapf(internal.ErrConfig, "strategy %q is not registered (known: %v)", name, StrategyNames())
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
