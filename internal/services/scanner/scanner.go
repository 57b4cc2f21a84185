// Package scanner выбирает записи, по которым пора отправить напоминание:
// задачи со сроком сегодня и просроченные финансовые записи.
// Сканер ничего не изменяет в хранилище.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/juridico/internal/lib/metrics"
	"github.com/magabrotheeeer/juridico/internal/models"
)

// Repository источник задач и финансовых записей.
type Repository interface {
	DueTasks(ctx context.Context, from, to time.Time) ([]*models.DueTask, error)
	OverdueEntries(ctx context.Context, now time.Time) ([]*models.OverdueEntry, error)
}

// ScanError ошибка хранилища при сканировании. Прерывает только текущий цикл.
type ScanError struct {
	Kind models.ReminderKind
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Kind, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// Scanner выполняет выборки в часовом поясе планировщика.
type Scanner struct {
	repo Repository
	loc  *time.Location
	log  *slog.Logger
}

// New создает новый экземпляр Scanner.
func New(repo Repository, loc *time.Location, log *slog.Logger) *Scanner {
	return &Scanner{
		repo: repo,
		loc:  loc,
		log:  log,
	}
}

// DayBounds возвращает начало календарного дня now в loc и начало следующего.
// Длина дня может отличаться от 24 часов при переходе на летнее время.
func DayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// ScanDueTasks возвращает незавершённые задачи со сроком сегодня без отправленного напоминания.
func (s *Scanner) ScanDueTasks(ctx context.Context, now time.Time) ([]models.Reminder, error) {
	const op = "scanner.ScanDueTasks"
	log := s.log.With(slog.String("op", op))

	from, to := DayBounds(now, s.loc)
	tasks, err := s.repo.DueTasks(ctx, from, to)
	if err != nil {
		return nil, &ScanError{Kind: models.KindTask, Err: fmt.Errorf("%s: %w", op, err)}
	}

	result := make([]models.Reminder, 0, len(tasks))
	for _, t := range tasks {
		if t.Owner.Email == "" {
			log.Warn("skipping task without owner email", slog.String("task_id", t.ID.String()))
			continue
		}
		result = append(result, t)
	}
	metrics.ScanRecords.WithLabelValues(string(models.KindTask)).Add(float64(len(result)))
	log.Info("due tasks scanned", slog.Int("found", len(result)), slog.Time("from", from), slog.Time("to", to))
	return result, nil
}

// ScanOverdueEntries возвращает неоплаченные записи со сроком раньше now без отправленного уведомления.
func (s *Scanner) ScanOverdueEntries(ctx context.Context, now time.Time) ([]models.Reminder, error) {
	const op = "scanner.ScanOverdueEntries"
	log := s.log.With(slog.String("op", op))

	entries, err := s.repo.OverdueEntries(ctx, now)
	if err != nil {
		return nil, &ScanError{Kind: models.KindFinancialEntry, Err: fmt.Errorf("%s: %w", op, err)}
	}

	result := make([]models.Reminder, 0, len(entries))
	for _, e := range entries {
		if e.Owner.Email == "" {
			log.Warn("skipping financial entry without owner email", slog.String("entry_id", e.ID.String()))
			continue
		}
		result = append(result, e)
	}
	metrics.ScanRecords.WithLabelValues(string(models.KindFinancialEntry)).Add(float64(len(result)))
	log.Info("overdue entries scanned", slog.Int("found", len(result)))
	return result, nil
}
