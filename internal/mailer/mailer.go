// Package mailer relays contact submissions to the site owner over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"cherrycake/internal/config"
)

const implicitTLSPort = 465

// ErrDisabled is returned by Send when SMTP is not configured.
var ErrDisabled = errors.New("smtp relay not configured")

// Message is the content relayed for one submission.
type Message struct {
	Name    string
	Email   string
	Body    string
	SentAt  time.Time
	Subject string
}

// Mailer sends submissions through the configured SMTP server.
type Mailer struct {
	settings config.SMTP
	timeout  time.Duration
	location *time.Location
}

// New returns a mailer for cfg. Enabled reports whether it can send.
func New(cfg *config.Config) *Mailer {
	m := &Mailer{location: seoul()}
	if cfg == nil {
		return m
	}
	m.settings = cfg.Contact.SMTP
	m.timeout = config.Seconds(cfg.Contact.RelayTimeout)
	if !cfg.SMTPEnabled() {
		m.settings.Host = ""
	}
	return m
}

// Enabled reports whether host, user and password are configured.
func (m *Mailer) Enabled() bool {
	return m != nil && m.settings.Host != ""
}

// Recipient returns the configured destination address.
func (m *Mailer) Recipient() string {
	if m == nil {
		return ""
	}
	return m.settings.To
}

// Compose builds the outgoing message without sending it.
func (m *Mailer) Compose(msg Message) (*mail.Msg, error) {
	out := mail.NewMsg()
	if err := out.From(m.settings.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := out.To(m.settings.To); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	if err := out.ReplyTo(msg.Email); err != nil {
		return nil, fmt.Errorf("reply-to address: %w", err)
	}
	out.Subject(Subject(msg.Name))
	sentAt := msg.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	out.SetDateWithValue(sentAt)
	out.SetMessageID()
	out.SetBodyString(mail.TypeTextPlain, plainBody(msg))
	out.AddAlternativeString(mail.TypeTextHTML, htmlBody(msg, sentAt.In(m.location)))
	return out, nil
}

// Send relays msg. It returns ErrDisabled when SMTP is not configured.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if !m.Enabled() {
		return ErrDisabled
	}
	out, err := m.Compose(msg)
	if err != nil {
		return err
	}
	client, err := m.client()
	if err != nil {
		return err
	}
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	if err := client.DialAndSendWithContext(ctx, out); err != nil {
		return fmt.Errorf("send mail via %s:%d: %w", m.settings.Host, m.settings.Port, err)
	}
	return nil
}

func (m *Mailer) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(m.settings.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.settings.User),
		mail.WithPassword(m.settings.Password),
	}
	if m.timeout > 0 {
		opts = append(opts, mail.WithTimeout(m.timeout))
	}
	if m.settings.Port == implicitTLSPort {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}
	client, err := mail.NewClient(m.settings.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return client, nil
}

// Subject returns the subject line for a submission from name.
func Subject(name string) string {
	return "[cherrycake.me] " + displayName(name, "Anonymous")
}

func plainBody(msg Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", displayName(msg.Name, "(not given)"))
	fmt.Fprintf(&b, "Email: %s\n\n", msg.Email)
	b.WriteString("Message:\n")
	b.WriteString(msg.Body)
	return b.String()
}

func htmlBody(msg Message, sentAt time.Time) string {
	body := strings.ReplaceAll(html.EscapeString(msg.Body), "\n", "<br>")
	return fmt.Sprintf(`<h2>New message from cherrycake.me</h2>
<p><strong>Name:</strong> %s</p>
<p><strong>Email:</strong> %s</p>
<p><strong>Message:</strong></p>
<p style="white-space: pre-wrap;">%s</p>
<hr>
<p style="color: #666; font-size: 12px;">Sent: %s</p>
`,
		html.EscapeString(displayName(msg.Name, "(not given)")),
		html.EscapeString(msg.Email),
		body,
		sentAt.Format("2006-01-02 15:04:05 MST"),
	)
}

func displayName(name, fallback string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return fallback
}

func seoul() *time.Location {
	if loc, err := time.LoadLocation("Asia/Seoul"); err == nil {
		return loc
	}
	return time.FixedZone("KST", 9*60*60)
}
