// Package optimize ищет параметры стратегий, минимизирующие функцию потерь.
package optimize

import (
	"context"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	lop "github.com/samber/lo/parallel"

	"github.com/shep-analytics/gt-score-optimization/internal"
	"github.com/shep-analytics/gt-score-optimization/internal/loss"
)

// Method - метод поиска.
type Method string

const (
	MethodRandom   Method = "random"
	MethodBayesian Method = "bayesian"
	MethodGenetic  Method = "genetic"
)

var methodAliases = map[string]Method{
	"random":   MethodRandom,
	"bayesian": MethodBayesian,
	"hyperopt": MethodBayesian,
	"tpe":      MethodBayesian,
	"genetic":  MethodGenetic,
	"ga":       MethodGenetic,
}

// ParseMethod разбирает имя метода.
func ParseMethod(s string) (Method, error) {
	m, ok := methodAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", errors.Wrapf(ErrUnknownMethod, "%q (use random, bayesian or genetic)", s)
	}
	return m, nil
}

// Search - реализация метода поиска.
type Search interface {
	// Budget - ожидаемое число оценок для одной стратегии.
	Budget(opts Options) int
	// Run ищет по всем стратегиям, отправляя кандидатов на оценку через сессию.
	Run(s *Session, specs []StrategySpec) error
}

// Registry - реестр доступных методов поиска.
type Registry struct {
	backends map[Method]Search
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[Method]Search)}
}

// DefaultRegistry - реестр со всеми встроенными методами.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(MethodRandom, RandomSearch{})
	r.Register(MethodBayesian, DefaultTPE())
	r.Register(MethodGenetic, DefaultGenetic())
	return r
}

// Register добавляет реализацию метода.
func (r *Registry) Register(m Method, s Search) {
	r.backends[m] = s
}

// Lookup возвращает реализацию метода.
func (r *Registry) Lookup(m Method) (Search, error) {
	if _, known := lo.FindKey(methodAliases, m); !known {
		return nil, errors.Wrapf(ErrUnknownMethod, "%q", m)
	}
	s, ok := r.backends[m]
	if !ok {
		return nil, errors.Wrapf(ErrBackendUnavailable, "method %s is not registered", m)
	}
	return s, nil
}

// Options - параметры запуска оптимизации.
type Options struct {
	Method         Method
	MaxEvals       int // раунды случайного поиска, испытания TPE, поколения GA
	PopulationSize int
	Seed           uint64
	Parallelism    int // одновременные оценки; 1 - последовательно
	EvalTimeout    time.Duration
	Backtest       internal.BacktestConfig
	Logger         *zerolog.Logger
	Registry       *Registry
	Progress       func(done, total int)
}

// DefaultOptions возвращает параметры по умолчанию.
func DefaultOptions() Options {
	return Options{
		Method:         MethodRandom,
		MaxEvals:       20,
		PopulationSize: 20,
		Seed:           42,
		Parallelism:    1,
		Backtest:       internal.DefaultBacktestConfig(),
	}
}

// Validate проверяет параметры.
func (o Options) Validate() error {
	if o.MaxEvals < 1 {
		return errors.Wrapf(internal.ErrConfig, "max evals must be positive, got %d", o.MaxEvals)
	}
	if o.Method == MethodGenetic && o.PopulationSize < 2 {
		return errors.Wrapf(internal.ErrConfig, "population size must be at least 2, got %d", o.PopulationSize)
	}
	if o.Parallelism < 0 {
		return errors.Wrapf(internal.ErrConfig, "parallelism must not be negative, got %d", o.Parallelism)
	}
	if o.EvalTimeout < 0 {
		return errors.Wrapf(internal.ErrConfig, "eval timeout must not be negative, got %s", o.EvalTimeout)
	}
	return o.Backtest.Validate()
}

// Trial - одна оценка кандидата.
type Trial struct {
	Ordinal  int             `json:"ordinal"`
	Strategy string          `json:"strategy"`
	Params   internal.Params `json:"params"`
	Loss     float64         `json:"loss"`
	Err      error           `json:"-"`
}

// Outcome - итог оптимизации.
type Outcome struct {
	RunID        string          `json:"run_id"`
	Method       Method          `json:"method"`
	BestLoss     float64         `json:"best_loss"`
	BestParams   internal.Params `json:"best_params"`
	BestStrategy string          `json:"best_strategy"`
	Evaluations  int             `json:"evaluations"`
	Failed       int             `json:"failed"`
	Trials       []Trial         `json:"trials"`
	Duration     time.Duration   `json:"duration"`
}

// Session - состояние одного запуска, общее для метода поиска.
type Session struct {
	ctx   context.Context
	eval  *Evaluator
	opts  Options
	rng   *rand.Rand
	log   zerolog.Logger
	best  Trial
	found bool
	total int

	trials []Trial
	failed int
}

// Rand - генератор случайных чисел запуска. Используется только последовательно.
func (s *Session) Rand() *rand.Rand { return s.rng }

// Options возвращает параметры запуска.
func (s *Session) Options() Options { return s.opts }

// Evaluate оценивает пачку кандидатов, параллельно не более чем по
// Parallelism штук, и учитывает их в порядке пачки. Ошибочные кандидаты
// получают потерю +Inf и пропускаются.
func (s *Session) Evaluate(batch []Candidate) ([]float64, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}

	type scored struct {
		loss float64
		err  error
	}
	eval := func(c Candidate, _ int) scored {
		l, err := s.eval.Evaluate(s.ctx, c)
		return scored{loss: l, err: err}
	}

	var results []scored
	if s.opts.Parallelism <= 1 {
		results = lo.Map(batch, eval)
	} else {
		for _, chunk := range lo.Chunk(batch, s.opts.Parallelism) {
			results = append(results, lop.Map(chunk, eval)...)
		}
	}

	losses := make([]float64, len(batch))
	for i, r := range results {
		losses[i] = s.observe(batch[i], r.loss, r.err)
	}
	if err := s.ctx.Err(); err != nil {
		return losses, err
	}
	return losses, nil
}

func (s *Session) observe(c Candidate, l float64, err error) float64 {
	t := Trial{
		Ordinal:  len(s.trials),
		Strategy: c.Spec.Name,
		Params:   c.Params.Merge(c.Spec.Defaults),
		Loss:     l,
		Err:      err,
	}
	s.trials = append(s.trials, t)
	if s.opts.Progress != nil {
		s.opts.Progress(len(s.trials), s.total)
	}

	if err != nil {
		s.failed++
		s.log.Warn().Err(err).
			Str("strategy", t.Strategy).
			Str("params", t.Params.String()).
			Msg("Candidate evaluation failed, skipping")
		return math.Inf(1)
	}

	if !s.found || l < s.best.Loss {
		s.best = t
		s.found = true
		s.log.Debug().
			Int("trial", t.Ordinal).
			Str("strategy", t.Strategy).
			Float64("loss", l).
			Msg("New best candidate")
	}
	return l
}

// Optimize ищет лучшую пару стратегия/параметры по всем стратегиям и
// инструментам. Минимум строгий: при равных потерях остаётся более ранний
// кандидат.
func Optimize(ctx context.Context, specs []StrategySpec, frames []Frame, lossFn loss.Func, opts Options) (Outcome, error) {
	if len(specs) == 0 {
		return Outcome{}, ErrNoStrategies
	}
	if err := opts.Validate(); err != nil {
		return Outcome{}, err
	}
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return Outcome{}, err
		}
	}

	registry := opts.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	backend, err := registry.Lookup(opts.Method)
	if err != nil {
		return Outcome{}, err
	}

	eval, err := NewEvaluator(frames, lossFn, opts.Backtest, opts.EvalTimeout)
	if err != nil {
		return Outcome{}, err
	}

	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	out := Outcome{RunID: uuid.NewString(), Method: opts.Method, BestLoss: math.Inf(1)}
	logger = logger.With().Str("run_id", out.RunID).Str("method", string(opts.Method)).Logger()

	s := &Session{
		ctx:   ctx,
		eval:  eval,
		opts:  opts,
		rng:   rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		log:   logger,
		total: backend.Budget(opts) * len(specs),
	}

	start := time.Now()
	logger.Info().
		Int("strategies", len(specs)).
		Int("frames", len(frames)).
		Int("max_evals", opts.MaxEvals).
		Int("parallelism", opts.Parallelism).
		Msg("Starting optimization")

	runErr := backend.Run(s, specs)

	out.Duration = time.Since(start)
	out.Trials = s.trials
	out.Evaluations = len(s.trials)
	out.Failed = s.failed
	if s.found {
		out.BestLoss = s.best.Loss
		out.BestParams = s.best.Params
		out.BestStrategy = s.best.Strategy
	}

	if runErr != nil {
		return out, errors.Wrapf(runErr, "%s search", opts.Method)
	}
	if !s.found {
		return out, errors.Wrapf(ErrNoResult, "%d evaluations, %d failed", out.Evaluations, out.Failed)
	}

	logger.Info().
		Int("evaluations", out.Evaluations).
		Int("failed", out.Failed).
		Str("best_strategy", out.BestStrategy).
		Float64("best_loss", out.BestLoss).
		Dur("duration", out.Duration).
		Msg("Optimization complete")
	return out, nil
}
