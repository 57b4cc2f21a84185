// Package notifier собирает общие зависимости процессов api и scheduler:
// хранилище, опциональный redis, транспорт уведомлений и планировщик с
// зарегистрированными задачами.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/juridico/internal/cache"
	"github.com/magabrotheeeer/juridico/internal/config"
	"github.com/magabrotheeeer/juridico/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/juridico/internal/lib/sl"
	"github.com/magabrotheeeer/juridico/internal/lib/smtp"
	"github.com/magabrotheeeer/juridico/internal/migrations"
	"github.com/magabrotheeeer/juridico/internal/models"
	"github.com/magabrotheeeer/juridico/internal/services/dispatcher"
	"github.com/magabrotheeeer/juridico/internal/services/resetter"
	"github.com/magabrotheeeer/juridico/internal/services/scanner"
	"github.com/magabrotheeeer/juridico/internal/services/scheduler"
	"github.com/magabrotheeeer/juridico/internal/services/sender"
	"github.com/magabrotheeeer/juridico/internal/storage/repository"
)

// Sender транспорт уведомлений с проверкой соединения.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg models.Message) error
	Verify(ctx context.Context) error
}

// Components общие зависимости процесса.
type Components struct {
	DB        *repository.Storage
	Cache     *cache.Cache // nil, если redis не настроен
	Sender    Sender
	Scheduler *scheduler.Scheduler

	conn *amqp.Connection
	ch   *amqp.Channel
	log  *slog.Logger
}

func waitForDB(ctx context.Context, db *repository.Storage) error {
	var err error
	for i := 0; i < 10; i++ {
		if err = repository.CheckDatabaseReady(ctx, db); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return fmt.Errorf("database not ready after retries: %w", err)
}

// Build подключает хранилище, применяет миграции и собирает планировщик.
// Планировщик возвращается остановленным.
func Build(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Components, error) {
	const op = "notifier.Build"

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c := &Components{log: log}

	c.DB, err = repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(c.DB.DB, cfg.MigrationsPath); err != nil {
		c.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = waitForDB(ctx, c.DB); err != nil {
		c.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cfg.RedisAddress != "" {
		c.Cache, err = cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		log.Info("redis connected", slog.String("addr", cfg.RedisAddress))
	} else {
		log.Warn("redis address is empty, run lock and entitlement cache disabled")
	}

	if err = c.buildSender(cfg); err != nil {
		c.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	renderer, err := dispatcher.NewRenderer(cfg.SenderName, cfg.FrontendURL, loc)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	opts := []scheduler.Option{}
	if c.Cache != nil {
		opts = append(opts, scheduler.WithLocker(c.Cache, cfg.LockTTL))
	}
	c.Scheduler = scheduler.New(loc, log.With(slog.String("component", "scheduler")), opts...)

	jobs := scheduler.NotificationJobs(
		cfg.Scheduler,
		scanner.New(c.DB, loc, log.With(slog.String("component", "scanner"))),
		dispatcher.New(c.Sender, c.DB, renderer, cfg.Notification, log.With(slog.String("component", "dispatcher"))),
		resetter.New(c.DB, log.With(slog.String("component", "resetter"))),
	)
	if err = c.Scheduler.RegisterAll(jobs); err != nil {
		c.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

func (c *Components) buildSender(cfg *config.Config) error {
	switch cfg.Transport {
	case "amqp":
		conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			return err
		}
		c.conn = conn
		queues := rabbitmq.GetNotificationQueues()
		ch, err := rabbitmq.SetupChannel(conn, queues)
		if err != nil {
			return err
		}
		c.ch = ch
		c.Sender = sender.NewQueueSender(ch, queues[0], c.log.With(slog.String("component", "sender")))
	case "smtp":
		transport := smtp.NewTransport(cfg.SMTP, c.log)
		c.Sender = sender.NewEmailSender(transport, cfg.SenderName, c.log.With(slog.String("component", "sender")))
	default:
		return errors.New("unknown notification transport " + cfg.Transport)
	}
	c.log.Info("notification transport configured", slog.String("transport", c.Sender.Name()))
	return nil
}

// Close освобождает соединения. Безопасен для частично собранных Components.
func (c *Components) Close() {
	if c.ch != nil {
		if err := c.ch.Close(); err != nil {
			c.log.Error("failed to close channel", sl.Err(err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.log.Error("failed to close connection", sl.Err(err))
		}
	}
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			c.log.Error("failed to close redis", sl.Err(err))
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.log.Error("failed to close storage", sl.Err(err))
		}
	}
}
