package loss

import (
	xgb "github.com/Elvenson/xgboost-go"
	"github.com/Elvenson/xgboost-go/activation"
	xgbmat "github.com/Elvenson/xgboost-go/mat"
	"github.com/pkg/errors"

	"github.com/shep-analytics/gt-score-optimization/internal"
)

// XGBoostConfig - параметры функции потерь на готовой модели XGBoost.
type XGBoostConfig struct {
	ModelPath string // JSON-дамп модели (booster.dump_model(..., dump_format="json"))
	MaxDepth  int    // максимальная глубина деревьев модели
	Objective string // "mse" или "profit"
}

const defaultXGBoostDepth = 6

// XGBoost загружает модель один раз и оценивает ей те же лаговые признаки,
// что и регрессионные функции потерь.
func XGBoost(cfg XGBoostConfig) (Func, error) {
	obj, err := ParseObjective(cfg.Objective)
	if err != nil {
		return nil, err
	}
	if cfg.ModelPath == "" {
		return nil, errors.Wrap(internal.ErrConfig, "xgboost: model path is empty")
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = defaultXGBoostDepth
	}

	ensemble, err := xgb.LoadXGBoostFromJSON(cfg.ModelPath, "", 1, cfg.MaxDepth, &activation.Raw{})
	if err != nil {
		return nil, errors.Wrapf(err, "xgboost: load model %s", cfg.ModelPath)
	}

	return func(r internal.CompiledResult) (float64, error) {
		f, err := buildLagFeatures(r)
		if err != nil {
			return 0, err
		}

		input := xgbmat.SparseMatrix{Vectors: make([]xgbmat.SparseVector, f.rows())}
		for i := range input.Vectors {
			vec := xgbmat.SparseVector{}
			for j, v := range f.row(i) {
				vec[j] = float32(v)
			}
			input.Vectors[i] = vec
		}

		out, err := ensemble.PredictProba(input)
		if err != nil {
			return 0, errors.Wrap(err, "xgboost: predict")
		}
		if len(out.Vectors) != f.rows() {
			return 0, errors.Errorf("xgboost: %d predictions for %d rows", len(out.Vectors), f.rows())
		}

		pred := make([]float64, f.rows())
		for i, v := range out.Vectors {
			if v == nil || len(*v) == 0 {
				return 0, errors.Errorf("xgboost: empty prediction for row %d", i)
			}
			pred[i] = float64((*v)[0])
		}
		return evaluate(obj, f.y, pred), nil
	}, nil
}
