package optimizer

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/shep-analytics/gt-score-optimization/internal"
	"github.com/shep-analytics/gt-score-optimization/internal/loss"
	"github.com/shep-analytics/gt-score-optimization/internal/optimize"
)

// MatrixRunner - оптимизирует стратегии на обучающих данных для каждой пары
// метод × функция потерь и проверяет лучший кандидат на тестовых
type MatrixRunner struct {
	config   Config
	printer  ResultPrinter
	log      zerolog.Logger
	registry *optimize.Registry
}

// NewMatrixRunner - конструктор для MatrixRunner
func NewMatrixRunner(config Config, printer ResultPrinter, logger zerolog.Logger) *MatrixRunner {
	return &MatrixRunner{config: config, printer: printer, log: logger}
}

// WithRegistry подменяет набор методов поиска.
func (r *MatrixRunner) WithRegistry(reg *optimize.Registry) *MatrixRunner {
	r.registry = reg
	return r
}

var (
	_ ReportRunner  = (*MatrixRunner)(nil)
	_ ResultPrinter = (*ConsolePrinter)(nil)
	_ ResultSaver   = (*FileSaver)(nil)
)

type namedLoss struct {
	name string
	fn   loss.Func
}

// Run - прогоняет всю матрицу. Пустой test пропускает проверочную фазу.
func (r *MatrixRunner) Run(ctx context.Context, train, test []optimize.Frame) ([]Result, error) {
	specs, err := optimize.Strategies(r.config.Strategies...)
	if err != nil {
		return nil, err
	}
	methods, err := r.methods()
	if err != nil {
		return nil, err
	}
	losses, err := r.losses()
	if err != nil {
		return nil, err
	}

	total := len(methods) * len(losses)
	results := make([]Result, 0, total)
	for _, method := range methods {
		for _, l := range losses {
			res, err := r.runOne(ctx, specs, method, l, train, test)
			switch {
			case errors.Is(err, optimize.ErrNoResult):
				r.log.Warn().Str("method", string(method)).Str("loss", l.name).Err(err).Msg("No valid candidate, row skipped")
			case err != nil:
				return results, errors.Wrapf(err, "%s/%s", method, l.name)
			default:
				results = append(results, res)
			}
			if r.printer != nil {
				r.printer.PrintProgress(len(results), total)
			}
		}
	}
	return results, nil
}

func (r *MatrixRunner) runOne(ctx context.Context, specs []optimize.StrategySpec, method optimize.Method, l namedLoss, train, test []optimize.Frame) (Result, error) {
	opts := optimize.DefaultOptions()
	opts.Method = method
	opts.MaxEvals = r.config.MaxEvals
	opts.PopulationSize = r.config.PopulationSize
	opts.Seed = r.config.Seed
	opts.Parallelism = max(r.config.Parallelism, 1)
	opts.EvalTimeout = r.config.EvalTimeout
	opts.Backtest = r.config.Backtest
	opts.Registry = r.registry
	logger := r.log.With().Str("loss", l.name).Logger()
	opts.Logger = &logger

	outcome, err := optimize.Optimize(ctx, specs, train, l.fn, opts)
	if err != nil {
		return Result{}, err
	}

	spec, _ := lo.Find(specs, func(s optimize.StrategySpec) bool { return s.Name == outcome.BestStrategy })
	best := optimize.Candidate{Spec: spec, Params: outcome.BestParams}

	training, err := r.compile(train, l.fn, best)
	if err != nil {
		return Result{}, errors.Wrap(err, "training replay")
	}
	res := Result{
		Report: Report{
			RunID:       outcome.RunID,
			Method:      method,
			Loss:        l.name,
			Strategy:    outcome.BestStrategy,
			Params:      outcome.BestParams,
			BestLoss:    outcome.BestLoss,
			Evaluations: outcome.Evaluations,
			Failed:      outcome.Failed,
			Duration:    outcome.Duration,
			Training:    phaseOf(training),
		},
		Training: training,
	}

	if len(test) > 0 {
		testing, err := r.compile(test, l.fn, best)
		if err != nil {
			return Result{}, errors.Wrap(err, "testing replay")
		}
		phase := phaseOf(testing)
		res.Testing = &testing
		res.Report.Testing = &phase
	}

	if r.config.Debug {
		r.log.Debug().
			Str("method", string(method)).
			Str("loss", l.name).
			Str("strategy", outcome.BestStrategy).
			Stringer("params", outcome.BestParams).
			Float64("money_made", training.TotalMoneyMade).
			Msg("Best candidate replayed")
	}
	return res, nil
}

func (r *MatrixRunner) compile(frames []optimize.Frame, fn loss.Func, c optimize.Candidate) (internal.CompiledResult, error) {
	e, err := optimize.NewEvaluator(frames, fn, r.config.Backtest, 0)
	if err != nil {
		return internal.CompiledResult{}, err
	}
	return e.Compile(c)
}

func (r *MatrixRunner) methods() ([]optimize.Method, error) {
	names := r.config.Methods
	if len(names) == 0 {
		names = []string{string(optimize.MethodRandom)}
	}
	methods := make([]optimize.Method, 0, len(names))
	for _, name := range names {
		m, err := optimize.ParseMethod(name)
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return lo.Uniq(methods), nil
}

func (r *MatrixRunner) losses() ([]namedLoss, error) {
	names := r.config.Losses
	if len(names) == 0 {
		names = loss.Names()
	}
	out := make([]namedLoss, 0, len(names))
	for _, name := range lo.Uniq(names) {
		fn, err := r.resolveLoss(name)
		if err != nil {
			return nil, err
		}
		out = append(out, namedLoss{name: name, fn: fn})
	}
	return out, nil
}

// resolveLoss дополняет реестр функций потерь моделью XGBoost из конфигурации.
func (r *MatrixRunner) resolveLoss(name string) (loss.Func, error) {
	if objective, ok := strings.CutPrefix(name, "xgboost"); ok {
		obj := string(loss.ObjectiveMSE)
		switch objective {
		case "":
		case "_profit":
			obj = string(loss.ObjectiveProfit)
		default:
			return nil, errors.Wrapf(loss.ErrUnknownLoss, "%q", name)
		}
		return loss.XGBoost(loss.XGBoostConfig{ModelPath: r.config.XGBoostModel, Objective: obj})
	}
	return loss.ByName(name)
}
