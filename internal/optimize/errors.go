package optimize

import "github.com/pkg/errors"

var (
	// ErrUnknownMethod - метод оптимизации не распознан.
	ErrUnknownMethod = errors.New("unknown optimization method")
	// ErrBackendUnavailable - метод известен, но его реализация не зарегистрирована.
	ErrBackendUnavailable = errors.New("optimization backend unavailable")
	// ErrNoStrategies - не передано ни одной стратегии.
	ErrNoStrategies = errors.New("no strategies to optimize")
	// ErrNoData - нет ни одного ряда свечей.
	ErrNoData = errors.New("no price data")
	// ErrNoResult - ни один кандидат не был успешно оценён.
	ErrNoResult = errors.New("no candidate evaluated successfully")
	// ErrEvalTimeout - оценка кандидата превысила лимит времени.
	ErrEvalTimeout = errors.New("evaluation timed out")
	// ErrEvalPanic - оценка кандидата завершилась паникой.
	ErrEvalPanic = errors.New("evaluation panicked")
)
