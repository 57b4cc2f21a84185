// Package scheduler запускает задачи уведомлений по расписанию в заданном
// часовом поясе. Экземпляр создаётся явно и проходит состояния
// Stopped -> Running -> Stopped.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/magabrotheeeer/juridico/internal/lib/metrics"
	"github.com/magabrotheeeer/juridico/internal/lib/sl"
)

var (
	ErrAlreadyRunning = errors.New("scheduler already running")
	ErrUnknownJob     = errors.New("unknown job")
	ErrJobRunning     = errors.New("job is already running")
)

// JobName имя задачи планировщика.
type JobName string

const (
	JobTasks     JobName = "tasks"
	JobFinancial JobName = "financial"
	JobReset     JobName = "reset"
)

// JobFunc тело задачи. now момент срабатывания.
type JobFunc func(ctx context.Context, now time.Time) (Result, error)

// Job задача, запускаемая ежедневно в At (HH:MM).
type Job struct {
	Name JobName
	At   string
	Run  JobFunc
}

// Locker распределённая блокировка запуска между репликами.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type registeredJob struct {
	Job
	spec string
	busy sync.Mutex
}

// Scheduler планировщик ежедневных задач.
type Scheduler struct {
	mu      sync.Mutex
	loc     *time.Location
	jobs    map[JobName]*registeredJob
	c       *cron.Cron
	baseCtx context.Context
	cancel  context.CancelFunc
	locker  Locker
	lockTTL time.Duration
	now     func() time.Time
	log     *slog.Logger
}

// Option настраивает Scheduler.
type Option func(*Scheduler)

// WithLocker включает блокировку запуска по ключу задача+минута.
func WithLocker(l Locker, ttl time.Duration) Option {
	return func(s *Scheduler) {
		s.locker = l
		s.lockTTL = ttl
	}
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New создает остановленный планировщик.
func New(loc *time.Location, log *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		loc:     loc,
		jobs:    map[JobName]*registeredJob{},
		lockTTL: 10 * time.Minute,
		now:     time.Now,
		log:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register добавляет задачу. Повторная регистрация заменяет задачу и
// вступает в силу при следующем Start.
func (s *Scheduler) Register(job Job) error {
	const op = "scheduler.Register"
	h, m, err := parseHHMM(job.At)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", op, job.Name, err)
	}
	if job.Run == nil {
		return fmt.Errorf("%s: %s: nil job func", op, job.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.Name] = &registeredJob{Job: job, spec: fmt.Sprintf("%d %d * * *", m, h)}
	return nil
}

// Start регистрирует задачи в cron и запускает его.
func (s *Scheduler) Start() error {
	const op = "scheduler.Start"
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return fmt.Errorf("%s: %w", op, ErrAlreadyRunning)
	}

	logger := cronLogger{log: s.log}
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	for _, j := range s.jobs {
		if _, err := c.AddFunc(j.spec, func() { s.fire(j) }); err != nil {
			return fmt.Errorf("%s: %s: %w", op, j.Name, err)
		}
	}

	s.baseCtx, s.cancel = context.WithCancel(context.Background())
	s.c = c
	c.Start()
	for _, e := range c.Entries() {
		s.log.Debug("job scheduled", slog.Time("next", e.Next))
	}
	s.log.Info("scheduler started", slog.String("tz", s.loc.String()), slog.Int("jobs", len(s.jobs)))
	return nil
}

// Stop отменяет будущие срабатывания и ждёт завершения выполняющихся задач.
// Если ctx истекает раньше, задачи получают отмену контекста.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel := s.c, s.cancel
	s.c, s.cancel = nil, nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	defer cancel()
	select {
	case <-c.Stop().Done():
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out, cancelling running jobs", sl.Err(ctx.Err()))
		return ctx.Err()
	}
}

// Running сообщает, запущен ли cron.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c != nil
}

// RunNow немедленно выполняет задачу в ctx, минуя расписание и блокировку реплик.
func (s *Scheduler) RunNow(ctx context.Context, name JobName) (Result, error) {
	const op = "scheduler.RunNow"
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return Result{}, fmt.Errorf("%s: %w: %s", op, ErrUnknownJob, name)
	}
	res, err := s.execute(ctx, j, s.now())
	if err != nil {
		return res, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

func (s *Scheduler) fire(j *registeredJob) {
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()
	if ctx == nil {
		return
	}

	now := s.now()
	log := s.log.With(slog.String("job", string(j.Name)))
	if s.locker != nil {
		key := fmt.Sprintf("scheduler:lock:%s:%s", j.Name, now.In(s.loc).Format("2006-01-02T15:04"))
		acquired, err := s.locker.TryLock(ctx, key, s.lockTTL)
		switch {
		case err != nil:
			log.Warn("run lock unavailable, running anyway", sl.Err(err))
		case !acquired:
			log.Info("job already run by another replica", slog.String("key", key))
			metrics.JobRuns.WithLabelValues(string(j.Name), "locked").Inc()
			return
		}
	}

	if _, err := s.execute(ctx, j, now); err != nil && !errors.Is(err, ErrJobRunning) {
		log.Error("scheduled job failed", sl.Err(err))
	}
}

func (s *Scheduler) execute(ctx context.Context, j *registeredJob, now time.Time) (res Result, err error) {
	if !j.busy.TryLock() {
		s.log.Warn("job still running, skipping", slog.String("job", string(j.Name)))
		metrics.JobRuns.WithLabelValues(string(j.Name), "skipped").Inc()
		return Result{Job: j.Name}, ErrJobRunning
	}
	defer j.busy.Unlock()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.Name, r)
		}
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.JobRuns.WithLabelValues(string(j.Name), result).Inc()
		metrics.JobDuration.WithLabelValues(string(j.Name)).Observe(time.Since(start).Seconds())
		s.log.Info("job finished",
			slog.String("job", string(j.Name)),
			slog.String("result", result),
			slog.Duration("duration", time.Since(start)))
	}()

	res, err = j.Run(ctx, now)
	res.Job = j.Name
	return res, err
}

// parseHHMM разбирает время суток в формате HH:MM.
func parseHHMM(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}

// cronLogger направляет журнал cron в slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, sl.Err(err))...)
}
