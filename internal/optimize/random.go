package optimize

import (
	"github.com/samber/lo"

	"github.com/shep-analytics/gt-score-optimization/internal"
)

// RandomSearch - MaxEvals раундов; в каждом раунде для каждой стратегии
// параметры с диапазонами выбираются равномерно, остальные берутся по умолчанию.
type RandomSearch struct{}

// Budget - одна оценка на раунд.
func (RandomSearch) Budget(opts Options) int { return opts.MaxEvals }

// Run выполняет поиск. Кандидаты выбираются последовательно одним генератором,
// так что набор кандидатов не зависит от параллелизма.
func (RandomSearch) Run(s *Session, specs []StrategySpec) error {
	rng := s.Rand()
	batch := make([]Candidate, 0, s.Options().MaxEvals*len(specs))
	for round := 0; round < s.Options().MaxEvals; round++ {
		for _, spec := range specs {
			params := make(internal.Params, len(spec.Bounds))
			for _, name := range spec.Bounds.Names() {
				params[name] = spec.Bounds[name].Sample(rng)
			}
			batch = append(batch, Candidate{Spec: spec, Params: params})
		}
	}

	for _, chunk := range lo.Chunk(batch, max(s.Options().Parallelism, 1)*len(specs)) {
		if _, err := s.Evaluate(chunk); err != nil {
			return err
		}
	}
	return nil
}
