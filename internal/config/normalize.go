package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeDatasets(); err != nil {
		return err
	}
	c.normalizeServer()
	if err := c.normalizeSMTP(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDatasets() error {
	source := strings.TrimSpace(c.Datasets.Source)
	if source == "" {
		if value, ok := os.LookupEnv("CHERRYCAKE_DATASETS"); ok {
			source = strings.TrimSpace(value)
		}
	}
	switch {
	case source == "":
		c.Datasets.Source = c.Paths.DataDir
	case isHTTPURL(source):
		c.Datasets.Source = strings.TrimRight(source, "/")
	default:
		expanded, err := expandPath(source)
		if err != nil {
			return fmt.Errorf("datasets.source: %w", err)
		}
		c.Datasets.Source = expanded
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	if c.Server.APIToken == "" {
		if value, ok := os.LookupEnv("CHERRYCAKE_API_TOKEN"); ok {
			c.Server.APIToken = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeSMTP() error {
	smtp := &c.Contact.SMTP
	lookup := func(field *string, key string) {
		*field = strings.TrimSpace(*field)
		if *field != "" {
			return
		}
		if value, ok := os.LookupEnv(key); ok {
			*field = strings.TrimSpace(value)
		}
	}
	lookup(&smtp.Host, "SMTP_HOST")
	lookup(&smtp.User, "SMTP_USER")
	lookup(&smtp.From, "SMTP_FROM")
	lookup(&smtp.To, "SMTP_TO")
	if smtp.Password == "" {
		if value, ok := os.LookupEnv("SMTP_PASSWORD"); ok {
			smtp.Password = value
		}
	}
	if value, ok := os.LookupEnv("SMTP_PORT"); ok && strings.TrimSpace(value) != "" && (smtp.Port == 0 || smtp.Port == defaultSMTPPort) {
		port, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("SMTP_PORT: %w", err)
		}
		smtp.Port = port
	}
	if smtp.Port <= 0 {
		smtp.Port = defaultSMTPPort
	}
	if smtp.From == "" {
		smtp.From = smtp.User
	}
	if smtp.To == "" {
		smtp.To = smtp.User
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
