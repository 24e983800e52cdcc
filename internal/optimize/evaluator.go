package optimize

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/shep-analytics/gt-score-optimization/internal"
	"github.com/shep-analytics/gt-score-optimization/internal/loss"
)

// Frame - ряд свечей одного инструмента.
type Frame struct {
	Name    string
	Candles []internal.Candle
}

// Candidate - стратегия с конкретными параметрами.
type Candidate struct {
	Spec   StrategySpec
	Params internal.Params
}

// Evaluator прогоняет кандидата по всем инструментам, склеивает результаты
// и сводит их функцией потерь.
type Evaluator struct {
	frames  []Frame
	loss    loss.Func
	cfg     internal.BacktestConfig
	timeout time.Duration
}

// NewEvaluator создаёт оценщик.
func NewEvaluator(frames []Frame, lossFn loss.Func, cfg internal.BacktestConfig, timeout time.Duration) (*Evaluator, error) {
	if len(frames) == 0 {
		return nil, ErrNoData
	}
	for _, f := range frames {
		if len(f.Candles) == 0 {
			return nil, errors.Wrapf(ErrNoData, "frame %q is empty", f.Name)
		}
	}
	if lossFn == nil {
		return nil, errors.Wrap(internal.ErrConfig, "loss function is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Evaluator{frames: frames, loss: lossFn, cfg: cfg, timeout: timeout}, nil
}

// Evaluate оценивает кандидата. Паника и превышение времени возвращаются
// как ошибки ErrEvalPanic и ErrEvalTimeout.
func (e *Evaluator) Evaluate(ctx context.Context, c Candidate) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	type outcome struct {
		loss float64
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: errors.Wrap(ErrEvalPanic, fmt.Sprint(r))}
			}
		}()
		l, err := e.run(c)
		done <- outcome{loss: l, err: err}
	}()

	var timeout <-chan time.Time
	if e.timeout > 0 {
		timer := time.NewTimer(e.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case out := <-done:
		return out.loss, out.err
	case <-timeout:
		return 0, errors.Wrapf(ErrEvalTimeout, "after %s", e.timeout)
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (e *Evaluator) run(c Candidate) (float64, error) {
	compiled, err := e.Compile(c)
	if err != nil {
		return 0, err
	}
	l, err := e.loss(compiled)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(l) {
		return 0, errors.New("loss is NaN")
	}
	return l, nil
}

func (e *Evaluator) backtest(spec StrategySpec, f Frame, params internal.Params) (internal.BacktestResult, error) {
	if spec.Generate == nil {
		r, _ := internal.RunLiveSimulation(spec.Live, f.Candles, params, e.cfg)
		return r, nil
	}
	return internal.RunCandles(f.Candles, spec.Generate(f.Candles, params), e.cfg)
}

// Compile прогоняет кандидата и возвращает склеенный результат без свёртки
// функцией потерь.
func (e *Evaluator) Compile(c Candidate) (internal.CompiledResult, error) {
	params := c.Params.Merge(c.Spec.Defaults)
	results := make([]internal.BacktestResult, 0, len(e.frames))
	for _, f := range e.frames {
		r, err := e.backtest(c.Spec, f, params)
		if err != nil {
			return internal.CompiledResult{}, errors.Wrapf(err, "frame %s", f.Name)
		}
		results = append(results, r)
	}
	return internal.CompileSequential(results), nil
}

// Frames возвращает имена инструментов.
func (e *Evaluator) Frames() []string {
	return lo.Map(e.frames, func(f Frame, _ int) string { return f.Name })
}
