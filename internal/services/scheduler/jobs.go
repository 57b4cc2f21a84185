package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/juridico/internal/config"
	"github.com/magabrotheeeer/juridico/internal/models"
	"github.com/magabrotheeeer/juridico/internal/services/dispatcher"
)

// Result итог одного запуска задачи.
type Result struct {
	Job   JobName `json:"job"`
	Found int     `json:"found"`
	dispatcher.Report
	Reset int `json:"reset"`
}

// Scanner выборка записей для напоминаний.
type Scanner interface {
	ScanDueTasks(ctx context.Context, now time.Time) ([]models.Reminder, error)
	ScanOverdueEntries(ctx context.Context, now time.Time) ([]models.Reminder, error)
}

// Dispatcher отправка пачки напоминаний.
type Dispatcher interface {
	DispatchAll(ctx context.Context, reminders []models.Reminder) dispatcher.Report
}

// Resetter ежедневный сброс флагов.
type Resetter interface {
	ResetFlags(ctx context.Context, now time.Time) (int, error)
}

// NotificationJobs собирает три ежедневные задачи: напоминания о задачах,
// уведомления о просроченных записях и сброс флагов.
func NotificationJobs(cfg config.Scheduler, sc Scanner, d Dispatcher, r Resetter) []Job {
	scanAndDispatch := func(scan func(context.Context, time.Time) ([]models.Reminder, error)) JobFunc {
		return func(ctx context.Context, now time.Time) (Result, error) {
			reminders, err := scan(ctx, now)
			if err != nil {
				return Result{}, err
			}
			return Result{Found: len(reminders), Report: d.DispatchAll(ctx, reminders)}, nil
		}
	}

	return []Job{
		{Name: JobTasks, At: cfg.TasksAt, Run: scanAndDispatch(sc.ScanDueTasks)},
		{Name: JobFinancial, At: cfg.FinancialAt, Run: scanAndDispatch(sc.ScanOverdueEntries)},
		{Name: JobReset, At: cfg.ResetAt, Run: func(ctx context.Context, now time.Time) (Result, error) {
			n, err := r.ResetFlags(ctx, now)
			return Result{Reset: n}, err
		}},
	}
}

// RegisterAll регистрирует список задач.
func (s *Scheduler) RegisterAll(jobs []Job) error {
	for _, j := range jobs {
		if err := s.Register(j); err != nil {
			return fmt.Errorf("scheduler.RegisterAll: %w", err)
		}
	}
	return nil
}
