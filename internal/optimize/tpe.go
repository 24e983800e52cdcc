package optimize

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/shep-analytics/gt-score-optimization/internal"
)

// TPE - байесовский поиск деревом оценок Парзена (tree-structured Parzen
// estimator). Первые StartupTrials испытаний берутся из априорного
// распределения, но не больше половины бюджета, чтобы при малом MaxEvals
// модель всё же работала. Дальше каждое следующее выбирается по максимуму l(x)/g(x),
// где l и g - смеси нормальных распределений по лучшей доле Gamma и остальным
// наблюдениям.
type TPE struct {
	StartupTrials int
	Gamma         float64
	Candidates    int
	PriorWeight   float64
}

// DefaultTPE возвращает параметры по умолчанию.
func DefaultTPE() TPE {
	return TPE{StartupTrials: 20, Gamma: 0.25, Candidates: 24, PriorWeight: 1}
}

// Budget - MaxEvals испытаний на стратегию.
func (t TPE) Budget(opts Options) int { return opts.MaxEvals }

type observation struct {
	params internal.Params
	loss   float64
}

// Run ищет по каждой стратегии по очереди.
func (t TPE) Run(s *Session, specs []StrategySpec) error {
	for _, spec := range specs {
		if err := t.runStrategy(s, spec); err != nil {
			return err
		}
	}
	return nil
}

func (t TPE) runStrategy(s *Session, spec StrategySpec) error {
	space := spec.Space
	if len(space) == 0 {
		space = spec.Bounds.Space()
	}
	names := space.Names()
	if len(names) == 0 {
		_, err := s.Evaluate([]Candidate{{Spec: spec, Params: internal.Params{}}})
		return err
	}

	rng := s.Rand()
	total := s.Options().MaxEvals
	var history []observation
	record := func(batch []Candidate, losses []float64) {
		for i, l := range losses {
			if !math.IsInf(l, 0) {
				history = append(history, observation{params: batch[i].Params, loss: l})
			}
		}
	}

	startup := t.startupTrials(total)
	batch := make([]Candidate, startup)
	for i := range batch {
		batch[i] = Candidate{Spec: spec, Params: samplePrior(space, names, rng)}
	}
	losses, err := s.Evaluate(batch)
	if err != nil {
		return err
	}
	record(batch, losses)

	for i := startup; i < total; i++ {
		next := []Candidate{{Spec: spec, Params: t.suggest(space, names, history, rng)}}
		losses, err := s.Evaluate(next)
		if err != nil {
			return err
		}
		record(next, losses)
	}
	return nil
}

// startupTrials - сколько испытаний из бюджета total берётся из априорного
// распределения.
func (t TPE) startupTrials(total int) int {
	if total <= 1 {
		return total
	}
	return max(1, min(t.StartupTrials, total/2))
}

func samplePrior(space SearchSpace, names []string, rng *rand.Rand) internal.Params {
	p := make(internal.Params, len(names))
	for _, name := range names {
		p[name] = space[name].Sample(rng)
	}
	return p
}

func (t TPE) suggest(space SearchSpace, names []string, history []observation, rng *rand.Rand) internal.Params {
	if len(history) < 2 {
		return samplePrior(space, names, rng)
	}

	sorted := make([]observation, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].loss < sorted[j].loss })

	nGood := int(math.Ceil(t.Gamma * float64(len(sorted))))
	nGood = max(1, min(nGood, len(sorted)-1))
	good, bad := sorted[:nGood], sorted[nGood:]

	p := make(internal.Params, len(names))
	for _, name := range names {
		d := space[name]
		gv, bv := column(good, name), column(bad, name)
		if d.Kind == KindChoice {
			p[name] = t.suggestChoice(d, gv, bv, rng)
		} else {
			p[name] = t.suggestNumeric(d, gv, bv, rng)
		}
	}
	return p
}

func column(obs []observation, name string) []float64 {
	out := make([]float64, 0, len(obs))
	for _, o := range obs {
		if v, ok := o.params[name]; ok {
			out = append(out, v)
		}
	}
	return out
}

func (t TPE) suggestNumeric(d Dimension, good, bad []float64, rng *rand.Rand) float64 {
	l := newParzen(good, d.Low, d.High, t.PriorWeight, rng)
	g := newParzen(bad, d.Low, d.High, t.PriorWeight, rng)

	best, bestScore := d.Sample(rng), math.Inf(-1)
	for k := 0; k < t.Candidates; k++ {
		x := d.Snap(l.sample(rng))
		if score := l.logDensity(x) - g.logDensity(x); score > bestScore {
			best, bestScore = x, score
		}
	}
	return best
}

func (t TPE) suggestChoice(d Dimension, good, bad []float64, rng *rand.Rand) float64 {
	pg := categorical(d.Options, good, t.PriorWeight)
	pb := categorical(d.Options, bad, t.PriorWeight)

	best, bestScore := 0, math.Inf(-1)
	for k := 0; k < t.Candidates; k++ {
		idx := weightedIndex(pg, rng)
		if score := math.Log(pg[idx]) - math.Log(pb[idx]); score > bestScore {
			best, bestScore = idx, score
		}
	}
	return d.Options[best]
}

// categorical - сглаженные частоты вариантов.
func categorical(options, observed []float64, prior float64) []float64 {
	w := make([]float64, len(options))
	for i := range w {
		w[i] = prior
	}
	for _, v := range observed {
		for i, o := range options {
			if o == v {
				w[i]++
				break
			}
		}
	}
	floats.Scale(1/floats.Sum(w), w)
	return w
}

func weightedIndex(weights []float64, rng *rand.Rand) int {
	u := rng.Float64() * floats.Sum(weights)
	for i, w := range weights {
		if u < w {
			return i
		}
		u -= w
	}
	return len(weights) - 1
}

// parzen - смесь нормальных распределений с центрами в наблюдениях и
// широкой априорной компонентой в середине диапазона.
type parzen struct {
	comps   []distuv.Normal
	weights []float64
}

func newParzen(obs []float64, low, high, priorWeight float64, src rand.Source) parzen {
	width := high - low
	if width <= 0 {
		width = 1
	}
	mus := make([]float64, len(obs))
	copy(mus, obs)
	sort.Float64s(mus)

	minSigma := width / math.Min(100, float64(1+len(mus)))
	p := parzen{
		comps:   []distuv.Normal{{Mu: (low + high) / 2, Sigma: width, Src: src}},
		weights: []float64{priorWeight},
	}
	for i, mu := range mus {
		left, right := mu-low, high-mu
		if i > 0 {
			left = mu - mus[i-1]
		}
		if i < len(mus)-1 {
			right = mus[i+1] - mu
		}
		sigma := internal.Clamp(math.Max(left, right), minSigma, width)
		p.comps = append(p.comps, distuv.Normal{Mu: mu, Sigma: sigma, Src: src})
		p.weights = append(p.weights, 1)
	}
	return p
}

func (p parzen) sample(rng *rand.Rand) float64 {
	return p.comps[weightedIndex(p.weights, rng)].Rand()
}

func (p parzen) logDensity(x float64) float64 {
	terms := make([]float64, len(p.comps))
	for i, c := range p.comps {
		terms[i] = math.Log(p.weights[i]) + c.LogProb(x)
	}
	return floats.LogSumExp(terms) - math.Log(floats.Sum(p.weights))
}
