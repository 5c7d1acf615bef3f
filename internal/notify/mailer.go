package notify

import (
	"fmt"
	"log/slog"

	gomail "gopkg.in/gomail.v2"

	"github.com/beekhof/calwatch/internal/event"
	"github.com/beekhof/calwatch/internal/lib/logger/sl"
)

// Mailer delivers one rendered message. Implementations own the wire
// encoding of the dual-format body.
type Mailer interface {
	Send(recipient, subject, plainBody, htmlBody string) error
}

// SMTPMailer sends mail over SMTP with STARTTLS.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer creates a mailer for the given SMTP server. The
// username doubles as the From address.
func NewSMTPMailer(host string, port int, username, password string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   username,
	}
}

func (m *SMTPMailer) Send(recipient, subject, plainBody, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", plainBody)
	if htmlBody != "" {
		msg.AddAlternative("text/html", htmlBody)
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", recipient, err)
	}
	return nil
}

// Notifier composes and delivers change notifications. Delivery
// failures are logged and swallowed here: the snapshot has already
// been updated by the time a notification goes out, so a lost mail is
// accepted rather than retried.
type Notifier struct {
	log       *slog.Logger
	mailer    Mailer
	recipient string
}

func NewNotifier(log *slog.Logger, mailer Mailer, recipient string) *Notifier {
	return &Notifier{log: log, mailer: mailer, recipient: recipient}
}

// Notify renders one notification from the three partitions and hands
// it to the mailer. Nothing is sent when all partitions are empty.
func (n *Notifier) Notify(added []event.Event, removed []event.Stored, updated []event.Update) {
	msg := Compose(added, removed, updated)
	if msg == nil {
		return
	}

	if err := n.mailer.Send(n.recipient, msg.Subject, msg.PlainBody, msg.HTMLBody); err != nil {
		n.log.Error("failed to deliver notification", sl.Err(err), slog.String("recipient", n.recipient))
		return
	}
	n.log.Info("notification sent",
		slog.String("recipient", n.recipient),
		slog.String("subject", msg.Subject),
	)
}
