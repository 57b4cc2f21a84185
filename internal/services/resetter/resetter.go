// Package resetter ежедневно сбрасывает флаги отправленных напоминаний,
// чтобы повторяющиеся записи снова попадали в выборку сканера.
package resetter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/juridico/internal/lib/metrics"
	"github.com/magabrotheeeer/juridico/internal/models"
)

// Repository сбрасывает флаги и возвращает число изменённых строк.
type Repository interface {
	ResetTaskReminders(ctx context.Context) (int, error)
	ResetEntryAlerts(ctx context.Context) (int, error)
}

// Resetter сбрасывает флаги задач и финансовых записей.
type Resetter struct {
	repo Repository
	log  *slog.Logger
}

// New создает новый экземпляр Resetter.
func New(repo Repository, log *slog.Logger) *Resetter {
	return &Resetter{repo: repo, log: log}
}

// ResetFlags сбрасывает все выставленные флаги. Повторный вызов возвращает 0.
func (r *Resetter) ResetFlags(ctx context.Context, now time.Time) (int, error) {
	const op = "resetter.ResetFlags"
	log := r.log.With(slog.String("op", op), slog.Time("now", now))

	tasks, err := r.repo.ResetTaskReminders(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	metrics.FlagsReset.WithLabelValues(string(models.KindTask)).Add(float64(tasks))

	entries, err := r.repo.ResetEntryAlerts(ctx)
	if err != nil {
		return tasks, fmt.Errorf("%s: %w", op, err)
	}
	metrics.FlagsReset.WithLabelValues(string(models.KindFinancialEntry)).Add(float64(entries))

	log.Info("reminder flags reset", slog.Int("tasks", tasks), slog.Int("financial_entries", entries))
	return tasks + entries, nil
}
