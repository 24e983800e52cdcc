package internal

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Params - именованные числовые параметры стратегии.
// Оптимизаторы выдают float64, целочисленные параметры округляются при чтении.
type Params map[string]float64

// Clone создаёт копию набора параметров
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge возвращает копию p, дополненную отсутствующими ключами из defaults.
func (p Params) Merge(defaults Params) Params {
	out := p.Clone()
	for k, v := range defaults {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}

// Float возвращает значение или def, если ключ не задан.
func (p Params) Float(name string, def float64) float64 {
	if v, ok := p[name]; ok && !math.IsNaN(v) {
		return v
	}
	return def
}

// Int округляет значение до ближайшего целого.
func (p Params) Int(name string, def int) int {
	if v, ok := p[name]; ok && !math.IsNaN(v) {
		return int(math.Round(v))
	}
	return def
}

// Keys возвращает имена параметров в отсортированном порядке.
func (p Params) Keys() []string {
	keys := lo.Keys(map[string]float64(p))
	sort.Strings(keys)
	return keys
}

func (p Params) String() string {
	parts := lo.Map(p.Keys(), func(k string, _ int) string {
		return fmt.Sprintf("%s=%.4g", k, p[k])
	})
	return "{" + strings.Join(parts, ", ") + "}"
}
