package config

import (
	"errors"
	"fmt"
	"net"
	"net/mail"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateLoop(); err != nil {
		return err
	}
	if err := c.validatePresentation(); err != nil {
		return err
	}
	if err := c.validateContact(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		return fmt.Errorf("server.bind must be host:port: %w", err)
	}
	return ensurePositiveMap(map[string]int{
		"datasets.request_timeout":      c.Datasets.RequestTimeout,
		"server.read_header_timeout":    c.Server.ReadHeaderTimeout,
		"server.read_timeout":           c.Server.ReadTimeout,
		"server.write_timeout":          c.Server.WriteTimeout,
		"server.idle_timeout":           c.Server.IdleTimeout,
		"server.shutdown_timeout":       c.Server.ShutdownTimeout,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateLoop() error {
	if err := ensurePositiveMap(map[string]int{
		"loop.display_hz":           c.Loop.DisplayHz,
		"loop.tension_seconds":      c.Loop.TensionSeconds,
		"loop.counterpoint_seconds": c.Loop.CounterpointSeconds,
		"loop.motif_seconds":        c.Loop.MotifSeconds,
		"loop.tonnetz_seconds":      c.Loop.TonnetzSeconds,
		"loop.form_seconds":         c.Loop.FormSeconds,
	}); err != nil {
		return err
	}
	if c.Loop.DisplayHz > 240 {
		return errors.New("loop.display_hz must be at most 240")
	}
	return nil
}

func (c *Config) validatePresentation() error {
	if err := ensurePositiveMap(map[string]int{
		"presentation.full_width":   c.Presentation.FullWidth,
		"presentation.full_height":  c.Presentation.FullHeight,
		"presentation.full_fps":     c.Presentation.FullFPS,
		"presentation.embed_width":  c.Presentation.EmbedWidth,
		"presentation.embed_height": c.Presentation.EmbedHeight,
		"presentation.embed_fps":    c.Presentation.EmbedFPS,
	}); err != nil {
		return err
	}
	if c.Presentation.FullFPS > c.Loop.DisplayHz || c.Presentation.EmbedFPS > c.Loop.DisplayHz {
		return errors.New("presentation fps must not exceed loop.display_hz")
	}
	return nil
}

func (c *Config) validateContact() error {
	if c.Contact.RatePerMinute < 0 {
		return errors.New("contact.rate_per_minute must be >= 0")
	}
	if c.Contact.RatePerMinute > 0 && c.Contact.Burst < 1 {
		return errors.New("contact.burst must be >= 1 when contact.rate_per_minute is set")
	}
	if c.Contact.RelayTimeout <= 0 {
		return errors.New("contact.relay_timeout must be positive")
	}
	if c.Contact.SMTP.Port <= 0 || c.Contact.SMTP.Port > 65535 {
		return errors.New("contact.smtp.port must be a valid TCP port")
	}
	if c.SMTPEnabled() {
		if _, err := mail.ParseAddress(c.Contact.SMTP.From); err != nil {
			return fmt.Errorf("contact.smtp.from is not a valid address: %w", err)
		}
		if _, err := mail.ParseAddress(c.Contact.SMTP.To); err != nil {
			return fmt.Errorf("contact.smtp.to is not a valid address: %w", err)
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
