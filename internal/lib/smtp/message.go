package smtp

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"time"

	"github.com/magabrotheeeer/juridico/internal/models"
)

// BuildMessage собирает письмо в формате RFC 5322. При наличии HTML тело
// оформляется как multipart/alternative с текстовой и HTML частями.
func BuildMessage(from mail.Address, msg models.Message, now time.Time) ([]byte, error) {
	const op = "smtp.BuildMessage"
	var buf bytes.Buffer

	to := mail.Address{Address: msg.To}
	headers := []struct{ key, value string }{
		{"From", from.String()},
		{"To", to.String()},
		{"Subject", mime.QEncoding.Encode("utf-8", msg.Subject)},
		{"Date", now.Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
	}
	for _, h := range headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h.key, h.value)
	}

	if msg.HTML == "" {
		buf.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
		buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
		if err := writeQuoted(&buf, msg.Text); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return buf.Bytes(), nil
	}

	mw := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())

	parts := []struct{ contentType, body string }{
		{"text/plain; charset=\"UTF-8\"", msg.Text},
		{"text/html; charset=\"UTF-8\"", msg.HTML},
	}
	for _, p := range parts {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(p.body)); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := qp.Close(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return buf.Bytes(), nil
}

func writeQuoted(buf *bytes.Buffer, text string) error {
	qp := quotedprintable.NewWriter(buf)
	if _, err := qp.Write([]byte(text)); err != nil {
		return err
	}
	return qp.Close()
}
