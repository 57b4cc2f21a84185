// Package sender реализует транспорты уведомлений: прямую отправку
// по SMTP и публикацию готового письма в очередь RabbitMQ.
package sender

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/magabrotheeeer/juridico/internal/lib/sl"
	"github.com/magabrotheeeer/juridico/internal/lib/smtp"
	"github.com/magabrotheeeer/juridico/internal/models"
)

// EmailSender отправляет письма через SMTP сервер.
type EmailSender struct {
	transport  smtp.TransportInterface
	senderName string
	log        *slog.Logger
	now        func() time.Time
}

// NewEmailSender создает новый экземпляр EmailSender.
func NewEmailSender(transport smtp.TransportInterface, senderName string, log *slog.Logger) *EmailSender {
	return &EmailSender{
		transport:  transport,
		senderName: senderName,
		log:        log,
		now:        time.Now,
	}
}

// Name возвращает имя транспорта.
func (s *EmailSender) Name() string { return "smtp" }

// Send отправляет одно письмо. Сеанс SMTP ограничен дедлайном ctx.
func (s *EmailSender) Send(ctx context.Context, msg models.Message) error {
	const op = "sender.EmailSender.Send"
	log := s.log.With(slog.String("op", op), slog.String("to", msg.To))

	from := mail.Address{Name: s.senderName, Address: s.transport.GetSMTPUser()}
	body, err := smtp.BuildMessage(from, msg, s.now())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	client, err := s.transport.Connect(ctx)
	if err != nil {
		log.Error("failed to connect to SMTP server", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(from.Address); err != nil {
		log.Error("failed to set MAIL FROM", slog.String("from", from.Address), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		log.Error("failed to set RCPT TO", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	wc, err := client.Data()
	if err != nil {
		log.Error("failed to get Data writer", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err = wc.Write(body); err != nil {
		log.Error("failed to write email body", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = wc.Close(); err != nil {
		log.Error("failed to close Data writer", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = client.Quit(); err != nil {
		log.Error("failed to quit SMTP client", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Debug("email sent")
	return nil
}

// Verify проверяет, что сервер принимает соединение и учётные данные.
func (s *EmailSender) Verify(ctx context.Context) error {
	const op = "sender.EmailSender.Verify"
	client, err := s.transport.Connect(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := client.Quit(); err != nil {
		_ = client.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
