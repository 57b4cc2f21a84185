// Package dispatcher отправляет по одному письму на каждую запись и
// помечает запись как отправленную. Флаг выставляется только после
// успешной отправки; при сбое запись будет обработана следующим циклом.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/juridico/internal/config"
	"github.com/magabrotheeeer/juridico/internal/lib/metrics"
	"github.com/magabrotheeeer/juridico/internal/lib/sl"
	"github.com/magabrotheeeer/juridico/internal/models"
)

// ErrTransportTimeout транспорт не ответил за отведённое время.
var ErrTransportTimeout = errors.New("transport timeout")

// Transport внешний канал доставки писем.
type Transport interface {
	Send(ctx context.Context, msg models.Message) error
}

// Marker условно выставляет флаги отправки. false означает, что флаг уже стоял.
type Marker interface {
	MarkTaskReminderSent(ctx context.Context, id uuid.UUID) (bool, error)
	MarkEntryAlertSent(ctx context.Context, id uuid.UUID) (bool, error)
}

// Status исход обработки одной записи.
type Status string

const (
	StatusSent    Status = metrics.OutcomeSent
	StatusFailed  Status = metrics.OutcomeFailed
	StatusSkipped Status = metrics.OutcomeSkipped
)

// DispatchFailure причина, по которой запись не отправлена или не помечена.
type DispatchFailure struct {
	RecordID uuid.UUID
	Kind     models.ReminderKind
	Reason   string
	Err      error
}

func (e *DispatchFailure) Error() string {
	return fmt.Sprintf("dispatch %s %s: %s: %v", e.Kind, e.RecordID, e.Reason, e.Err)
}

func (e *DispatchFailure) Unwrap() error { return e.Err }

// Outcome результат Dispatch. Err заполнен только для StatusFailed.
type Outcome struct {
	Status Status
	Err    *DispatchFailure
}

// Report итог обработки пачки записей.
type Report struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Dispatcher отправляет напоминания через Transport.
type Dispatcher struct {
	transport   Transport
	marker      Marker
	renderer    *Renderer
	limiter     *rate.Limiter
	workers     int
	sendTimeout time.Duration
	log         *slog.Logger
}

// New создает новый экземпляр Dispatcher.
func New(transport Transport, marker Marker, renderer *Renderer, cfg config.Notification, log *slog.Logger) *Dispatcher {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		transport:   transport,
		marker:      marker,
		renderer:    renderer,
		limiter:     rate.NewLimiter(limit, burst),
		workers:     workers,
		sendTimeout: timeout,
		log:         log,
	}
}

// Dispatch отправляет одно напоминание и помечает запись.
func (d *Dispatcher) Dispatch(ctx context.Context, rem models.Reminder) Outcome {
	const op = "dispatcher.Dispatch"
	log := d.log.With(
		slog.String("op", op),
		slog.String("kind", string(rem.Kind())),
		slog.String("record_id", rem.RecordID().String()),
	)

	out := d.dispatch(ctx, rem)
	switch out.Status {
	case StatusSent:
		log.Info("reminder sent", slog.String("to", rem.Recipient().Email))
	case StatusSkipped:
		log.Info("reminder already flagged, skipping")
	case StatusFailed:
		log.Error("reminder dispatch failed", slog.String("reason", out.Err.Reason), sl.Err(out.Err.Err))
	}
	metrics.DispatchTotal.WithLabelValues(string(rem.Kind()), string(out.Status)).Inc()
	return out
}

func (d *Dispatcher) dispatch(ctx context.Context, rem models.Reminder) Outcome {
	fail := func(reason string, err error) Outcome {
		return Outcome{Status: StatusFailed, Err: &DispatchFailure{
			RecordID: rem.RecordID(),
			Kind:     rem.Kind(),
			Reason:   reason,
			Err:      err,
		}}
	}

	msg, err := d.renderer.Render(rem)
	if err != nil {
		return fail("render", err)
	}
	if err := d.send(ctx, msg); err != nil {
		return fail("send", err)
	}

	var marked bool
	switch rem.Kind() {
	case models.KindTask:
		marked, err = d.marker.MarkTaskReminderSent(ctx, rem.RecordID())
	case models.KindFinancialEntry:
		marked, err = d.marker.MarkEntryAlertSent(ctx, rem.RecordID())
	default:
		err = fmt.Errorf("unsupported reminder kind %q", rem.Kind())
	}
	if err != nil {
		// письмо ушло, но флаг не записан: следующий цикл отправит повторно
		return fail("mark", err)
	}
	if !marked {
		return Outcome{Status: StatusSkipped}
	}
	return Outcome{Status: StatusSent}
}

// send ограничивает отправку sendTimeout даже если транспорт игнорирует ctx.
func (d *Dispatcher) send(ctx context.Context, msg models.Message) error {
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.transport.Send(sendCtx, msg)
	}()

	var err error
	select {
	case err = <-errCh:
	case <-sendCtx.Done():
		err = sendCtx.Err()
	}
	if err != nil && ctx.Err() == nil && errors.Is(sendCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %w", ErrTransportTimeout, d.sendTimeout, err)
	}
	return err
}

// DispatchAll обрабатывает записи независимо с ограниченным параллелизмом
// и общим лимитом частоты отправки. Сбой одной записи не прерывает остальные.
func (d *Dispatcher) DispatchAll(ctx context.Context, reminders []models.Reminder) Report {
	const op = "dispatcher.DispatchAll"
	outcomes := make([]Status, len(reminders))

	var g errgroup.Group
	g.SetLimit(d.workers)
	for i, rem := range reminders {
		i, rem := i, rem
		g.Go(func() error {
			if err := d.limiter.Wait(ctx); err != nil {
				outcomes[i] = StatusFailed
				metrics.DispatchTotal.WithLabelValues(string(rem.Kind()), metrics.OutcomeFailed).Inc()
				d.log.Warn("dispatch cancelled before send",
					slog.String("op", op),
					slog.String("record_id", rem.RecordID().String()),
					sl.Err(err))
				return nil
			}
			outcomes[i] = d.Dispatch(ctx, rem).Status
			return nil
		})
	}
	_ = g.Wait()

	var report Report
	for _, s := range outcomes {
		switch s {
		case StatusSent:
			report.Sent++
		case StatusSkipped:
			report.Skipped++
		default:
			report.Failed++
		}
	}
	d.log.Info("dispatch batch finished",
		slog.String("op", op),
		slog.Int("total", len(reminders)),
		slog.Int("sent", report.Sent),
		slog.Int("failed", report.Failed),
		slog.Int("skipped", report.Skipped))
	return report
}
