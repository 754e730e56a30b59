package mailer_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cherrycake/internal/config"
	"cherrycake/internal/mailer"
)

func smtpConfig() config.Config {
	cfg := config.Default()
	cfg.Contact.SMTP = config.SMTP{
		Host:     "smtp.example.com",
		Port:     587,
		User:     "owner@example.com",
		Password: "secret",
		From:     "owner@example.com",
		To:       "inbox@example.com",
	}
	return cfg
}

func TestSubject(t *testing.T) {
	tests := map[string]string{
		"Ada":  "[cherrycake.me] Ada",
		"  ":   "[cherrycake.me] Anonymous",
		"":     "[cherrycake.me] Anonymous",
		" Bo ": "[cherrycake.me] Bo",
	}
	for name, want := range tests {
		if got := mailer.Subject(name); got != want {
			t.Fatalf("Subject(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestDisabledWithoutCredentials(t *testing.T) {
	cfg := config.Default()
	m := mailer.New(&cfg)
	if m.Enabled() {
		t.Fatal("expected mailer disabled without smtp settings")
	}
	err := m.Send(context.Background(), mailer.Message{Email: "a@b.cd", Body: "hi"})
	if !errors.Is(err, mailer.ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestComposeSetsHeadersAndBodies(t *testing.T) {
	cfg := smtpConfig()
	m := mailer.New(&cfg)
	if !m.Enabled() || m.Recipient() != "inbox@example.com" {
		t.Fatalf("unexpected mailer state enabled=%v to=%q", m.Enabled(), m.Recipient())
	}

	msg, err := m.Compose(mailer.Message{
		Name:   "Ada",
		Email:  "ada@example.com",
		Body:   "line one\n<b>line two</b>",
		SentAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	raw := buf.String()
	for _, want := range []string{
		"Subject: [cherrycake.me] Ada",
		"Reply-To: <ada@example.com>",
		"To: <inbox@example.com>",
		"text/plain",
		"text/html",
	} {
		if !strings.Contains(raw, want) {
			t.Fatalf("expected %q in message:\n%s", want, raw)
		}
	}
	if !strings.Contains(raw, "&lt;b&gt;line two&lt;/b&gt;") {
		t.Fatal("html body must escape submitted markup")
	}
}

func TestComposeRejectsBadReplyTo(t *testing.T) {
	cfg := smtpConfig()
	if _, err := mailer.New(&cfg).Compose(mailer.Message{Email: "not an address", Body: "x"}); err == nil {
		t.Fatal("expected reply-to error")
	}
}
