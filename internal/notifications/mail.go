package notifications

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/MimoJanra/UptimeGuard/internal/config"
)

// Mailer delivers composed messages. *gomail.Dialer satisfies it.
type Mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

type MailChannel struct {
	from   string
	to     []string
	mailer Mailer
}

func NewMailChannel(from string, to []string, mailer Mailer) *MailChannel {
	return &MailChannel{from: from, to: to, mailer: mailer}
}

// mailFromConfig dials implicit TLS on 465 and STARTTLS elsewhere, which is
// gomail's default behaviour.
func mailFromConfig(cfg config.MailConfig) *MailChannel {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password())
	return NewMailChannel(cfg.From, cfg.To, dialer)
}

func (c *MailChannel) Name() string { return "mail" }

func (c *MailChannel) Send(ctx context.Context, msg Message) error {
	if len(c.to) == 0 {
		return errors.New("mail: no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", c.from)
	m.SetHeader("To", c.to...)
	m.SetHeader("Subject", msg.Subject)
	if msg.HTML != "" {
		m.SetBody("text/html", msg.HTML)
		m.AddAlternative("text/plain", msg.Text)
	} else {
		m.SetBody("text/plain", msg.Text)
	}

	if err := c.mailer.DialAndSend(m); err != nil {
		return fmt.Errorf("mail: send to %v: %w", c.to, err)
	}
	return nil
}
