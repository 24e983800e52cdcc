package optimize

import (
	"math"
	"math/rand/v2"

	"github.com/samber/lo"

	"github.com/shep-analytics/gt-score-optimization/internal"
)

// Genetic - простой эволюционный алгоритм: турнирный отбор, двухточечное
// скрещивание и гауссова мутация с обрезкой по диапазонам. Поколений -
// MaxEvals, особей - PopulationSize.
type Genetic struct {
	CrossoverProb  float64
	MutationProb   float64
	MutationSigma  float64
	GeneProb       float64
	TournamentSize int
}

// DefaultGenetic возвращает параметры по умолчанию.
func DefaultGenetic() Genetic {
	return Genetic{
		CrossoverProb:  0.7,
		MutationProb:   0.3,
		MutationSigma:  1,
		GeneProb:       0.2,
		TournamentSize: 3,
	}
}

// Budget - верхняя оценка: начальная популяция и каждое поколение целиком.
func (g Genetic) Budget(opts Options) int {
	return opts.PopulationSize * (opts.MaxEvals + 1)
}

type individual struct {
	genes []float64
	loss  float64
	valid bool
}

func (ind individual) clone() individual {
	genes := make([]float64, len(ind.genes))
	copy(genes, ind.genes)
	return individual{genes: genes, loss: ind.loss, valid: ind.valid}
}

// Run ищет по каждой стратегии по очереди.
func (g Genetic) Run(s *Session, specs []StrategySpec) error {
	for _, spec := range specs {
		if err := g.runStrategy(s, spec); err != nil {
			return err
		}
	}
	return nil
}

func (g Genetic) runStrategy(s *Session, spec StrategySpec) error {
	names := spec.Bounds.Names()
	if len(names) == 0 {
		_, err := s.Evaluate([]Candidate{{Spec: spec, Params: internal.Params{}}})
		return err
	}
	bounds := lo.Map(names, func(name string, _ int) Bounds { return spec.Bounds[name] })
	rng := s.Rand()
	opts := s.Options()

	pop := make([]individual, opts.PopulationSize)
	for i := range pop {
		pop[i].genes = lo.Map(bounds, func(b Bounds, _ int) float64 { return b.Sample(rng) })
	}
	if err := g.evaluate(s, spec, names, pop); err != nil {
		return err
	}

	for gen := 1; gen <= opts.MaxEvals; gen++ {
		offspring := g.selectTournament(pop, len(pop), rng)
		g.vary(offspring, bounds, rng)
		if err := g.evaluate(s, spec, names, offspring); err != nil {
			return err
		}
		pop = offspring

		s.log.Debug().
			Str("strategy", spec.Name).
			Int("generation", gen).
			Float64("best", lo.MinBy(pop, func(a, b individual) bool { return a.loss < b.loss }).loss).
			Msg("Generation evaluated")
	}
	return nil
}

// evaluate оценивает особей без актуальной приспособленности.
func (g Genetic) evaluate(s *Session, spec StrategySpec, names []string, pop []individual) error {
	idx := make([]int, 0, len(pop))
	batch := make([]Candidate, 0, len(pop))
	for i, ind := range pop {
		if ind.valid {
			continue
		}
		params := make(internal.Params, len(names))
		for j, name := range names {
			params[name] = ind.genes[j]
		}
		idx = append(idx, i)
		batch = append(batch, Candidate{Spec: spec, Params: params})
	}
	if len(batch) == 0 {
		return nil
	}
	losses, err := s.Evaluate(batch)
	for k, l := range losses {
		pop[idx[k]].loss = l
		pop[idx[k]].valid = true
	}
	return err
}

// selectTournament выбирает n копий, каждая - лучшая из TournamentSize случайных особей.
func (g Genetic) selectTournament(pop []individual, n int, rng *rand.Rand) []individual {
	out := make([]individual, n)
	for i := range out {
		best := pop[rng.IntN(len(pop))]
		for k := 1; k < g.TournamentSize; k++ {
			if c := pop[rng.IntN(len(pop))]; c.loss < best.loss {
				best = c
			}
		}
		out[i] = best.clone()
	}
	return out
}

// vary применяет скрещивание к соседним парам и мутацию к каждой особи.
func (g Genetic) vary(off []individual, bounds []Bounds, rng *rand.Rand) {
	for i := 1; i < len(off); i += 2 {
		if rng.Float64() < g.CrossoverProb {
			if crossTwoPoint(off[i-1].genes, off[i].genes, rng) {
				off[i-1].valid, off[i].valid = false, false
			}
		}
	}
	for i := range off {
		if rng.Float64() < g.MutationProb {
			g.mutate(off[i].genes, bounds, rng)
			off[i].valid = false
		}
	}
}

// crossTwoPoint меняет местами отрезок генов между двумя точками разреза.
// Особям из одного гена скрещиваться нечем: возвращает false.
func crossTwoPoint(a, b []float64, rng *rand.Rand) bool {
	size := min(len(a), len(b))
	if size < 2 {
		return false
	}
	cx1 := 1 + rng.IntN(size)
	cx2 := 1 + rng.IntN(size-1)
	if cx2 >= cx1 {
		cx2++
	} else {
		cx1, cx2 = cx2, cx1
	}
	for i := cx1; i < cx2; i++ {
		a[i], b[i] = b[i], a[i]
	}
	return true
}

func (g Genetic) mutate(genes []float64, bounds []Bounds, rng *rand.Rand) {
	for i := range genes {
		if rng.Float64() < g.GeneProb {
			genes[i] += rng.NormFloat64() * g.MutationSigma
		}
		genes[i] = bounds[i].Clip(genes[i])
		if math.IsNaN(genes[i]) {
			genes[i] = bounds[i].Min
		}
	}
}
