// Package notify delivers customer notifications.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"storefront/internal/config"
)

// Message is a rendered HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier sends mail through an SMTP relay.
type SMTPNotifier struct {
	cfg  config.MailConfig
	send SendFunc
}

func NewSMTPNotifier(cfg config.MailConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, send: smtp.SendMail}
}

// WithSendFunc replaces the transport, used by tests.
func (n *SMTPNotifier) WithSendFunc(fn SendFunc) *SMTPNotifier {
	n.send = fn
	return n
}

func (n *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("notification %q has no recipient", msg.Subject)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	if err := n.send(addr, auth, envelopeAddress(n.cfg.From), []string{msg.To}, n.compose(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", msg.To, err)
	}
	return nil
}

func (n *SMTPNotifier) compose(msg Message) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	buf.WriteString(msg.HTML)
	return buf.Bytes()
}

// envelopeAddress strips a display name: "Shop <a@b>" becomes "a@b".
func envelopeAddress(from string) string {
	if i := strings.LastIndex(from, "<"); i >= 0 {
		if j := strings.LastIndex(from, ">"); j > i {
			return from[i+1 : j]
		}
	}
	return strings.TrimSpace(from)
}

// LogNotifier writes notifications to the standard logger instead of
// sending them.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, msg Message) error {
	log.Printf("notification to %s: %s (%d bytes)", msg.To, msg.Subject, len(msg.HTML))
	return nil
}

// New picks SMTP when a host is configured.
func New(cfg config.MailConfig) Notifier {
	if cfg.Host == "" {
		return LogNotifier{}
	}
	return NewSMTPNotifier(cfg)
}
