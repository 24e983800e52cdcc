package optimizer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ConsolePrinter - реализация вывода результатов в консоль
type ConsolePrinter struct {
	w io.Writer
}

// NewConsolePrinter - конструктор для ConsolePrinter; nil означает stdout
func NewConsolePrinter(w io.Writer) *ConsolePrinter {
	if w == nil {
		w = os.Stdout
	}
	return &ConsolePrinter{w: w}
}

// PrintComparison - выводит таблицу строк отчёта, лучшие по тестовой доходности вверху
func (p *ConsolePrinter) PrintComparison(reports []Report) {
	sorted := append([]Report(nil), reports...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return rankReturn(sorted[i]) > rankReturn(sorted[j])
	})

	fmt.Fprintln(p.w, "\n"+strings.Repeat("=", 120))
	fmt.Fprintln(p.w, "📊 СРАВНЕНИЕ ФУНКЦИЙ ПОТЕРЬ И МЕТОДОВ ПОИСКА")
	fmt.Fprintln(p.w, strings.Repeat("=", 120))
	fmt.Fprintf(p.w, "%-10s %-24s %-17s %-12s %-16s %-10s %-10s %-10s %-8s\n",
		"Метод", "Потери", "Стратегия", "Лучшая", "Прибыль, $", "Доход", "Рынок", "Тест", "Сделки")
	fmt.Fprintln(p.w, strings.Repeat("-", 120))

	for i, r := range sorted {
		testReturn := "-"
		if r.Testing != nil {
			testReturn = formatPct(r.Testing.TotalReturn)
		}
		fmt.Fprintf(p.w, "%-10s %-24s %-17s %-12s %-16s %-10s %-10s %-10s %-8d %s\n",
			r.Method,
			r.Loss,
			r.Strategy,
			decimal.NewFromFloat(r.BestLoss).StringFixed(4),
			formatMoney(r.Training.MoneyMade),
			formatPct(r.Training.TotalReturn),
			formatPct(r.Training.MarketReturn),
			testReturn,
			r.Training.Trades,
			medal(i))
	}
}

// PrintReport - подробности одной строки отчёта
func (p *ConsolePrinter) PrintReport(r Report) {
	fmt.Fprintf(p.w, "\n🔎 %s / %s: %s %s (потери %s, %d оценок, %d ошибок, %s)\n",
		r.Method, r.Loss, r.Strategy, r.Params, decimal.NewFromFloat(r.BestLoss).StringFixed(4),
		r.Evaluations, r.Failed, formatDuration(r.Duration))
	p.printPhase("Обучение", r.Training)
	if r.Testing != nil {
		p.printPhase("Проверка", *r.Testing)
	}
}

func (p *ConsolePrinter) printPhase(title string, ph Phase) {
	fmt.Fprintf(p.w, "  %s: прибыль $%s, доход %s, рынок %s, сделок %d, удержание %s, в год %s, сделок в год %s\n",
		title,
		formatMoney(ph.MoneyMade),
		formatPct(ph.TotalReturn),
		formatPct(ph.MarketReturn),
		ph.Trades,
		ph.AverageHold.Round(time.Hour),
		formatPct(ph.AnnualReturn),
		decimal.NewFromFloat(ph.TradesPerYear).StringFixed(1))
}

// PrintProgress - выводит прогресс матрицы
func (p *ConsolePrinter) PrintProgress(current, total int) {
	fmt.Fprintf(p.w, "📊 Прогресс: %d/%d строк отчёта готово\n", current, total)
}

func rankReturn(r Report) float64 {
	if r.Testing != nil {
		return r.Testing.TotalReturn
	}
	return r.Training.TotalReturn
}

func medal(i int) string {
	switch i {
	case 0:
		return "🥇"
	case 1:
		return "🥈"
	case 2:
		return "🥉"
	}
	return ""
}

// formatMoney - сумма с двумя знаками без ошибок округления float
func formatMoney(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// formatPct - доля в процентах со знаком
func formatPct(v float64) string {
	s := decimal.NewFromFloat(v).Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
	if v > 0 {
		return "+" + s
	}
	return s
}

// formatDuration - форматирует длительность в читаемый вид
func formatDuration(d time.Duration) string {
	if d > time.Second {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%.0fms", float64(d.Nanoseconds())/1e6)
}
