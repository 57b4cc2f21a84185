package sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/juridico/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/juridico/internal/models"
)

var (
	// ErrPublishNacked брокер отказался принять сообщение.
	ErrPublishNacked = errors.New("broker nacked message")
	// ErrConfirmsClosed канал подтверждений закрыт вместе с каналом AMQP.
	ErrConfirmsClosed = errors.New("publisher confirms channel closed")
)

// Channel подмножество методов *amqp.Channel, нужное QueueSender.
// Канал должен быть переведён в режим подтверждений (rabbitmq.SetupChannel).
type Channel interface {
	rabbitmq.Publisher
	QueueInspect(name string) (amqp.Queue, error)
	NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation
}

// QueueSender публикует готовые письма в обменник notifications
// для внешнего почтового воркера. Отправка успешна только после ack брокера.
type QueueSender struct {
	mu       sync.Mutex
	ch       Channel
	confirms chan amqp.Confirmation
	seq      uint64 // delivery tag последней публикации
	queue    rabbitmq.QueueConfig
	log      *slog.Logger
}

// NewQueueSender создает новый экземпляр QueueSender и подписывается на подтверждения публикаций.
func NewQueueSender(ch Channel, queue rabbitmq.QueueConfig, log *slog.Logger) *QueueSender {
	return &QueueSender{
		ch:       ch,
		confirms: ch.NotifyPublish(make(chan amqp.Confirmation, 64)),
		queue:    queue,
		log:      log,
	}
}

// Name возвращает имя транспорта.
func (s *QueueSender) Name() string { return "amqp" }

// Send публикует письмо и ждёт подтверждения брокера не дольше ctx.
// Ошибка публикации, nack и истечение ctx считаются неудачной отправкой.
func (s *QueueSender) Send(ctx context.Context, msg models.Message) error {
	const op = "sender.QueueSender.Send"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := rabbitmq.PublishMessage(s.ch, rabbitmq.NotificationsExchange, s.queue.RoutingKey, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.seq++
	if err := s.waitConfirm(ctx, s.seq); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Debug("email published", slog.String("op", op), slog.String("to", msg.To))
	return nil
}

// waitConfirm ждёт подтверждение с delivery tag = tag. Подтверждения
// более ранних публикаций, чьё ожидание истекло, пропускаются.
func (s *QueueSender) waitConfirm(ctx context.Context, tag uint64) error {
	for {
		select {
		case c, ok := <-s.confirms:
			if !ok {
				return ErrConfirmsClosed
			}
			if c.DeliveryTag < tag {
				continue
			}
			if !c.Ack {
				return ErrPublishNacked
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Verify проверяет, что очередь писем существует, и сообщает число её потребителей.
func (s *QueueSender) Verify(ctx context.Context) error {
	const op = "sender.QueueSender.Verify"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	q, err := s.ch.QueueInspect(s.queue.QueueName)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if q.Consumers == 0 {
		s.log.Warn("email queue has no consumers", slog.String("queue", q.Name), slog.Int("messages", q.Messages))
	}
	return nil
}
