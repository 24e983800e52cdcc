package optimize

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/shep-analytics/gt-score-optimization/internal"
)

// Kind - тип измерения пространства поиска.
type Kind int

const (
	KindUniform  Kind = iota // непрерывное [Low, High]
	KindQUniform             // [Low, High] с шагом Q
	KindChoice               // одно из Options
)

// Dimension - одно измерение пространства поиска.
type Dimension struct {
	Kind    Kind
	Low     float64
	High    float64
	Q       float64
	Options []float64
}

// Uniform - непрерывное равномерное измерение.
func Uniform(low, high float64) Dimension {
	return Dimension{Kind: KindUniform, Low: low, High: high}
}

// QUniform - равномерное измерение, округляемое до шага q.
func QUniform(low, high, q float64) Dimension {
	return Dimension{Kind: KindQUniform, Low: low, High: high, Q: q}
}

// Choice - выбор из конечного набора значений.
func Choice(options ...float64) Dimension {
	return Dimension{Kind: KindChoice, Options: options}
}

// Validate проверяет измерение.
func (d Dimension) Validate() error {
	switch d.Kind {
	case KindUniform:
		if !(d.Low <= d.High) {
			return errors.Errorf("uniform: low %v > high %v", d.Low, d.High)
		}
	case KindQUniform:
		if !(d.Low <= d.High) || d.Q <= 0 {
			return errors.Errorf("quniform: invalid [%v, %v] step %v", d.Low, d.High, d.Q)
		}
	case KindChoice:
		if len(d.Options) == 0 {
			return errors.New("choice: no options")
		}
	default:
		return errors.Errorf("unknown dimension kind %d", d.Kind)
	}
	return nil
}

// Sample возвращает значение из априорного распределения измерения.
func (d Dimension) Sample(rng *rand.Rand) float64 {
	if d.Kind == KindChoice {
		return d.Options[rng.IntN(len(d.Options))]
	}
	return d.Snap(d.Low + rng.Float64()*(d.High-d.Low))
}

// Snap приводит значение к допустимому: обрезка по границам и шаг.
func (d Dimension) Snap(x float64) float64 {
	switch d.Kind {
	case KindChoice:
		return lo.MinBy(d.Options, func(a, b float64) bool {
			return math.Abs(a-x) < math.Abs(b-x)
		})
	case KindQUniform:
		x = math.Round(internal.Clamp(x, d.Low, d.High)/d.Q) * d.Q
		if x > d.High {
			x -= d.Q
		}
	}
	return internal.Clamp(x, d.Low, d.High)
}

// SearchSpace - пространство поиска байесовского метода.
type SearchSpace map[string]Dimension

// Names возвращает имена измерений в детерминированном порядке.
func (s SearchSpace) Names() []string {
	names := lo.Keys(map[string]Dimension(s))
	sort.Strings(names)
	return names
}

// Validate проверяет все измерения.
func (s SearchSpace) Validate() error {
	for _, name := range s.Names() {
		if err := s[name].Validate(); err != nil {
			return errors.Wrapf(err, "dimension %s", name)
		}
	}
	return nil
}

// Bounds - диапазон параметра для случайного и генетического поиска.
type Bounds struct {
	Min float64
	Max float64
}

// Clip обрезает значение по диапазону.
func (b Bounds) Clip(x float64) float64 {
	return internal.Clamp(x, b.Min, b.Max)
}

// Sample - равномерное значение из диапазона.
func (b Bounds) Sample(rng *rand.Rand) float64 {
	return b.Min + rng.Float64()*(b.Max-b.Min)
}

// ParamBounds - диапазоны параметров стратегии.
type ParamBounds map[string]Bounds

// Names возвращает имена параметров в детерминированном порядке.
func (b ParamBounds) Names() []string {
	names := lo.Keys(map[string]Bounds(b))
	sort.Strings(names)
	return names
}

// Validate проверяет диапазоны.
func (b ParamBounds) Validate() error {
	for _, name := range b.Names() {
		if r := b[name]; !(r.Min <= r.Max) {
			return errors.Errorf("bounds %s: min %v > max %v", name, r.Min, r.Max)
		}
	}
	return nil
}

// Space переводит диапазоны в непрерывное пространство поиска.
func (b ParamBounds) Space() SearchSpace {
	return lo.MapValues(map[string]Bounds(b), func(r Bounds, _ string) Dimension { return Uniform(r.Min, r.Max) })
}
