// main.go
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/shep-analytics/gt-score-optimization/internal"
	"github.com/shep-analytics/gt-score-optimization/internal/app/optimizer"
	"github.com/shep-analytics/gt-score-optimization/internal/config"
	"github.com/shep-analytics/gt-score-optimization/internal/logging"
	"github.com/shep-analytics/gt-score-optimization/internal/loss"
	"github.com/shep-analytics/gt-score-optimization/internal/optimize"

	_ "github.com/shep-analytics/gt-score-optimization/strategies/momentum"
	_ "github.com/shep-analytics/gt-score-optimization/strategies/oscillators"
	_ "github.com/shep-analytics/gt-score-optimization/strategies/trend"
	_ "github.com/shep-analytics/gt-score-optimization/strategies/volatility"
)

type flags struct {
	envFile    string
	train      string
	test       string
	strategies string
	losses     string
	methods    string
	evals      int
	pop        int
	seed       uint64
	out        string
	xgbModel   string
	debug      bool
	list       bool
}

// LoadCandlesFromFile читает {"candles":[...]} или голый массив свечей и сортирует по времени.
func LoadCandlesFromFile(filename string) ([]internal.Candle, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", filename)
	}

	var candles []internal.Candle
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &candles)
	} else {
		var wrapper struct {
			Candles []internal.Candle `json:"candles"`
		}
		err = json.Unmarshal(data, &wrapper)
		candles = wrapper.Candles
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", filename)
	}

	internal.SortCandles(candles)
	if err := internal.ValidateCandles(candles); err != nil {
		return nil, errors.Wrap(err, filename)
	}
	return candles, nil
}

func loadFrames(list string) ([]optimize.Frame, error) {
	var frames []optimize.Frame
	for _, file := range strings.Split(list, ",") {
		file = strings.TrimSpace(file)
		if file == "" {
			continue
		}
		candles, err := LoadCandlesFromFile(file)
		if err != nil {
			return nil, err
		}
		log.Info().Str("file", file).Int("candles", len(candles)).Msg("Candles loaded")
		frames = append(frames, optimize.Frame{
			Name:    strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)),
			Candles: candles,
		})
	}
	return frames, nil
}

func main() {
	f := parseFlags()

	if f.list {
		fmt.Println("strategies:", strings.Join(optimize.StrategyNames(), ", "))
		fmt.Println("losses:    ", strings.Join(append(loss.Names(), "xgboost", "xgboost_profit"), ", "))
		fmt.Println("methods:    random, bayesian (tpe, hyperopt), genetic (ga)")
		return
	}

	cfg, err := config.Load(f.envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌ Ошибка конфигурации:", err)
		os.Exit(2)
	}
	applyFlags(cfg, f)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "❌ Ошибка конфигурации:", err)
		os.Exit(2)
	}

	level := cfg.LogLevel
	if f.debug {
		level = "debug"
	}
	if _, err := logging.Setup(level, true); err != nil {
		fmt.Fprintln(os.Stderr, "❌ Ошибка конфигурации:", err)
		os.Exit(2)
	}

	train, err := loadFrames(f.train)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load training data")
	}
	if len(train) == 0 {
		log.Fatal().Msg("No training data: pass -train")
	}
	test, err := loadFrames(f.test)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load testing data")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer := optimizer.NewConsolePrinter(os.Stdout)
	runner := optimizer.NewMatrixRunner(optimizer.Config{
		Strategies:     cfg.Strategies,
		Losses:         cfg.Losses,
		Methods:        cfg.Methods,
		MaxEvals:       cfg.MaxEvals,
		PopulationSize: cfg.PopulationSize,
		Seed:           cfg.Seed,
		Parallelism:    cfg.Parallelism,
		EvalTimeout:    cfg.EvalTimeout,
		Backtest:       cfg.Backtest(),
		XGBoostModel:   cfg.XGBoostModel,
		Debug:          f.debug,
	}, printer, log.Logger)

	results, err := runner.Run(ctx, train, test)
	if err != nil {
		log.Error().Err(err).Msg("Optimization matrix aborted")
	}
	if len(results) == 0 {
		os.Exit(1)
	}

	reports := make([]optimizer.Report, len(results))
	for i, res := range results {
		reports[i] = res.Report
		printer.PrintReport(res.Report)
	}
	printer.PrintComparison(reports)

	paths, saveErr := optimizer.NewFileSaver(cfg.OutputDir).Save(results)
	if saveErr != nil {
		log.Error().Err(saveErr).Msg("Failed to save results")
	}
	for _, p := range paths {
		fmt.Printf("💾 Сохранено: %s\n", p)
	}
	if err != nil || saveErr != nil {
		os.Exit(1)
	}
}

// parseFlags - парсит командную строку
func parseFlags() flags {
	var f flags
	flag.StringVar(&f.envFile, "env", ".env", "Файл с переменными окружения")
	flag.StringVar(&f.train, "train", "", "JSON-файлы свечей для обучения через запятую")
	flag.StringVar(&f.test, "test", "", "JSON-файлы свечей для проверки через запятую")
	flag.StringVar(&f.strategies, "strategies", "", "Стратегии через запятую (пусто = GT_STRATEGIES или все)")
	flag.StringVar(&f.losses, "losses", "", "Функции потерь через запятую (пусто = GT_LOSSES)")
	flag.StringVar(&f.methods, "methods", "", "Методы поиска через запятую: random, bayesian, genetic")
	flag.IntVar(&f.evals, "evals", 0, "Раунды/испытания/поколения поиска (0 = GT_MAX_EVALS)")
	flag.IntVar(&f.pop, "pop", 0, "Размер популяции генетического поиска (0 = GT_POPULATION_SIZE)")
	flag.Uint64Var(&f.seed, "seed", 0, "Зерно генератора (0 = GT_SEED)")
	flag.StringVar(&f.out, "out", "", "Каталог для JSON-результатов (пусто = GT_OUTPUT_DIR)")
	flag.StringVar(&f.xgbModel, "xgb-model", "", "JSON-дамп модели XGBoost для функций потерь xgboost*")
	flag.BoolVar(&f.debug, "debug", false, "Включить детальное логирование")
	flag.BoolVar(&f.list, "list", false, "Показать доступные стратегии, функции потерь и методы")
	flag.Parse()
	return f
}

// applyFlags - флаги командной строки перекрывают окружение
func applyFlags(cfg *config.Config, f flags) {
	if list := splitList(f.strategies); len(list) > 0 {
		cfg.Strategies = list
	}
	if list := splitList(f.losses); len(list) > 0 {
		cfg.Losses = list
	}
	if list := splitList(f.methods); len(list) > 0 {
		cfg.Methods = list
	}
	if f.evals > 0 {
		cfg.MaxEvals = f.evals
	}
	if f.pop > 0 {
		cfg.PopulationSize = f.pop
	}
	if f.seed > 0 {
		cfg.Seed = f.seed
	}
	if f.out != "" {
		cfg.OutputDir = f.out
	}
	if f.xgbModel != "" {
		cfg.XGBoostModel = f.xgbModel
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
