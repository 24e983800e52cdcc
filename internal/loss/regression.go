package loss

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/shep-analytics/gt-score-optimization/internal"
)

const (
	lags = 5

	ridgeAlpha = 1.0

	elasticAlpha   = 0.5
	elasticL1Ratio = 0.5
	elasticMaxIter = 1000
	elasticTol     = 1e-4
)

// lagFeatures - стандартизованная матрица из lags предыдущих доходностей и
// целевая доходность следующего шага.
type lagFeatures struct {
	cols [][]float64 // по столбцу на лаг
	y    []float64
}

func (f lagFeatures) rows() int { return len(f.y) }

func (f lagFeatures) row(i int) []float64 {
	r := make([]float64, len(f.cols))
	for j, c := range f.cols {
		r[j] = c[i]
	}
	return r
}

func (f lagFeatures) dense() *mat.Dense {
	x := mat.NewDense(f.rows(), len(f.cols), nil)
	for j, c := range f.cols {
		x.SetCol(j, c)
	}
	return x
}

// buildLagFeatures строит признаки по ряду стоимости портфеля. Для одной
// строки нужно lags+1 доходностей.
func buildLagFeatures(r internal.CompiledResult) (lagFeatures, error) {
	returns := internal.PctChange(r.Values())
	if len(returns) < lags+1 {
		return lagFeatures{}, errors.Wrapf(ErrInsufficientData,
			"need at least %d returns for %d lags, got %d", lags+1, lags, len(returns))
	}

	n := len(returns) - lags
	f := lagFeatures{cols: make([][]float64, lags), y: make([]float64, n)}
	for j := range f.cols {
		f.cols[j] = make([]float64, n)
	}
	for k := 0; k < n; k++ {
		for j := 0; j < lags; j++ {
			f.cols[j][k] = returns[k+j]
		}
		f.y[k] = returns[k+lags]
	}

	for _, c := range f.cols {
		standardize(c)
	}
	return f, nil
}

// standardize приводит столбец к нулевому среднему и единичному
// (популяционному) отклонению. Постоянный столбец только центрируется.
func standardize(col []float64) {
	mean, std := stat.PopMeanStdDev(col, nil)
	if std == 0 || math.IsNaN(std) {
		std = 1
	}
	for i, v := range col {
		col[i] = (v - mean) / std
	}
}

// evaluate сводит прогноз к значению потерь по выбранной цели.
func evaluate(objective Objective, y, pred []float64) float64 {
	switch objective {
	case ObjectiveProfit:
		// торгуем по знаку прогноза, прибыль со знаком минус
		profit := 0.0
		for i, p := range pred {
			switch {
			case p > 0:
				profit += y[i]
			case p < 0:
				profit -= y[i]
			}
		}
		return -profit
	default:
		sq := 0.0
		for i, p := range pred {
			d := y[i] - p
			sq += d * d
		}
		return sq / float64(len(y))
	}
}

// Ridge - ошибка гребневой регрессии следующей доходности на lags прошлых.
func Ridge(objective string) (Func, error) {
	obj, err := ParseObjective(objective)
	if err != nil {
		return nil, err
	}
	return func(r internal.CompiledResult) (float64, error) {
		f, err := buildLagFeatures(r)
		if err != nil {
			return 0, err
		}
		pred, err := fitRidge(f, ridgeAlpha)
		if err != nil {
			return 0, errors.Wrap(err, "ridge fit")
		}
		return evaluate(obj, f.y, pred), nil
	}, nil
}

// fitRidge решает (XᵀX + αI)w = Xᵀ(y - ȳ) и возвращает прогноз на обучающих строках.
func fitRidge(f lagFeatures, alpha float64) ([]float64, error) {
	x := f.dense()
	yMean := stat.Mean(f.y, nil)
	yc := make([]float64, len(f.y))
	copy(yc, f.y)
	floats.AddConst(-yMean, yc)

	var gram mat.Dense
	gram.Mul(x.T(), x)
	for j := 0; j < lags; j++ {
		gram.Set(j, j, gram.At(j, j)+alpha)
	}

	var rhs mat.VecDense
	rhs.MulVec(x.T(), mat.NewVecDense(len(yc), yc))

	var w mat.VecDense
	if err := w.SolveVec(&gram, &rhs); err != nil {
		return nil, err
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &w)
	pred := make([]float64, f.rows())
	for i := range pred {
		pred[i] = fitted.AtVec(i) + yMean
	}
	return pred, nil
}

// ElasticNet - ошибка регрессии с L1+L2 регуляризацией.
func ElasticNet(objective string) (Func, error) {
	obj, err := ParseObjective(objective)
	if err != nil {
		return nil, err
	}
	return func(r internal.CompiledResult) (float64, error) {
		f, err := buildLagFeatures(r)
		if err != nil {
			return 0, err
		}
		pred := fitElasticNet(f, elasticAlpha, elasticL1Ratio)
		return evaluate(obj, f.y, pred), nil
	}, nil
}

// fitElasticNet - покоординатный спуск для
// 1/(2n)·|y - Xw|² + α·ρ·|w|₁ + α·(1-ρ)/2·|w|².
func fitElasticNet(f lagFeatures, alpha, l1Ratio float64) []float64 {
	n := float64(f.rows())
	yMean := stat.Mean(f.y, nil)

	resid := make([]float64, f.rows())
	copy(resid, f.y)
	floats.AddConst(-yMean, resid)

	w := make([]float64, len(f.cols))
	norms := make([]float64, len(f.cols))
	for j, c := range f.cols {
		norms[j] = floats.Dot(c, c) / n
	}

	l1 := alpha * l1Ratio
	l2 := alpha * (1 - l1Ratio)

	for iter := 0; iter < elasticMaxIter; iter++ {
		maxDelta, maxW := 0.0, 0.0
		for j, c := range f.cols {
			if norms[j] == 0 {
				continue
			}
			old := w[j]
			rho := floats.Dot(c, resid)/n + norms[j]*old
			w[j] = softThreshold(rho, l1) / (norms[j] + l2)

			if d := w[j] - old; d != 0 {
				floats.AddScaled(resid, -d, c)
			}
			maxDelta = math.Max(maxDelta, math.Abs(w[j]-old))
			maxW = math.Max(maxW, math.Abs(w[j]))
		}
		if maxW == 0 || maxDelta/maxW < elasticTol {
			break
		}
	}

	pred := make([]float64, f.rows())
	for i := range pred {
		pred[i] = floats.Dot(f.row(i), w) + yMean
	}
	return pred
}

func softThreshold(x, t float64) float64 {
	switch {
	case x > t:
		return x - t
	case x < -t:
		return x + t
	}
	return 0
}
