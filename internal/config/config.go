// Package config читает настройки оптимизатора из окружения и файла .env.
package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/shep-analytics/gt-score-optimization/internal"
)

// Config - настройки запуска.
type Config struct {
	// Счёт
	StartingCash float64
	Commission   float64
	Spread       float64

	// Поиск
	MaxEvals       int
	PopulationSize int
	Seed           uint64
	Parallelism    int
	EvalTimeout    time.Duration

	// Что сравнивать (пусто - всё зарегистрированное)
	Strategies []string
	Losses     []string
	Methods    []string

	XGBoostModel string // JSON-дамп модели для функции потерь xgboost

	LogLevel  string
	OutputDir string
}

// Load читает .env (если есть) и переменные окружения.
func Load(files ...string) (*Config, error) {
	// отсутствие .env не ошибка, испорченный .env - ошибка
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(internal.ErrConfig, "load .env: %v", err)
	}

	defaults := internal.DefaultBacktestConfig()
	cfg := &Config{
		Strategies:   parseCommaList(getEnv("GT_STRATEGIES", "")),
		Losses:       parseCommaList(getEnv("GT_LOSSES", "simple,sharpe,golden_ticket")),
		Methods:      parseCommaList(getEnv("GT_METHODS", "random")),
		LogLevel:     getEnv("GT_LOG_LEVEL", "info"),
		OutputDir:    getEnv("GT_OUTPUT_DIR", "results"),
		XGBoostModel: getEnv("GT_XGBOOST_MODEL", ""),
	}

	var err error
	if cfg.StartingCash, err = getEnvFloat("GT_STARTING_CASH", defaults.StartingCash); err != nil {
		return nil, err
	}
	if cfg.Commission, err = getEnvFloat("GT_COMMISSION", defaults.Commission); err != nil {
		return nil, err
	}
	if cfg.Spread, err = getEnvFloat("GT_SPREAD", defaults.Spread); err != nil {
		return nil, err
	}
	if cfg.MaxEvals, err = getEnvInt("GT_MAX_EVALS", 20); err != nil {
		return nil, err
	}
	if cfg.PopulationSize, err = getEnvInt("GT_POPULATION_SIZE", 20); err != nil {
		return nil, err
	}
	if cfg.Parallelism, err = getEnvInt("GT_PARALLELISM", runtime.NumCPU()); err != nil {
		return nil, err
	}

	seed, err := strconv.ParseUint(getEnv("GT_SEED", "42"), 10, 64)
	if err != nil {
		return nil, errors.Wrapf(internal.ErrConfig, "invalid GT_SEED: %v", err)
	}
	cfg.Seed = seed

	timeout, err := time.ParseDuration(getEnv("GT_EVAL_TIMEOUT", "0s"))
	if err != nil {
		return nil, errors.Wrapf(internal.ErrConfig, "invalid GT_EVAL_TIMEOUT: %v", err)
	}
	cfg.EvalTimeout = timeout

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет значения.
func (c *Config) Validate() error {
	if err := c.Backtest().Validate(); err != nil {
		return err
	}
	if c.MaxEvals < 1 {
		return errors.Wrap(internal.ErrConfig, "GT_MAX_EVALS must be > 0")
	}
	if c.PopulationSize < 2 {
		return errors.Wrap(internal.ErrConfig, "GT_POPULATION_SIZE must be >= 2")
	}
	if c.Parallelism < 1 {
		return errors.Wrap(internal.ErrConfig, "GT_PARALLELISM must be > 0")
	}
	if c.EvalTimeout < 0 {
		return errors.Wrap(internal.ErrConfig, "GT_EVAL_TIMEOUT must not be negative")
	}
	return nil
}

// Backtest возвращает параметры счёта.
func (c *Config) Backtest() internal.BacktestConfig {
	return internal.BacktestConfig{
		StartingCash: c.StartingCash,
		Commission:   c.Commission,
		Spread:       c.Spread,
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.Wrapf(internal.ErrConfig, "invalid %s: %v", key, err)
	}
	return v, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrapf(internal.ErrConfig, "invalid %s: %v", key, err)
	}
	return v, nil
}

// parseCommaList разбирает список через запятую, пропуская пустые элементы.
func parseCommaList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			result = append(result, p)
		}
	}
	return result
}
