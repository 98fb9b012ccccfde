package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

const notificationSubject = "Room availability update"

// SMTPOptions parameterise the mail notifier.
type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTPNotifier 通过 SMTP (STARTTLS) 投递 HTML 告警邮件。
type SMTPNotifier struct {
	opts   SMTPOptions
	logger zerolog.Logger
}

// NewSMTPNotifier 构造邮件告警器。
func NewSMTPNotifier(opts SMTPOptions, logger zerolog.Logger) *SMTPNotifier {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Port <= 0 {
		opts.Port = 587
	}
	if opts.Username == "" {
		opts.Username = opts.From
	}

	return &SMTPNotifier{
		opts:   opts,
		logger: logger.With().Str("component", "alert_smtp").Logger(),
	}
}

// Notify renders the change report and sends it to the sender plus all
// configured recipients.
func (n *SMTPNotifier) Notify(ctx context.Context, note Notification) error {
	if n.opts.Host == "" {
		return errors.New("smtp host not configured")
	}
	if n.opts.From == "" {
		return errors.New("smtp from address not configured")
	}

	msg := mail.NewMsg()
	if err := msg.From(n.opts.From); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	recipients := append([]string{n.opts.From}, note.Recipients...)
	if err := msg.To(recipients...); err != nil {
		return fmt.Errorf("set recipients: %w", err)
	}
	msg.Subject(notificationSubject)
	msg.SetBodyString(mail.TypeTextHTML, renderBody(note))

	client, err := mail.NewClient(n.opts.Host,
		mail.WithPort(n.opts.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(n.opts.Username),
		mail.WithPassword(n.opts.Password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
		mail.WithTimeout(n.opts.Timeout),
	)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	n.logger.Info().
		Int("changes", len(note.Changes)).
		Int("recipients", len(recipients)).
		Msg("告警已发送 (SMTP)")
	return nil
}

var _ Notifier = (*SMTPNotifier)(nil)
