package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"cherrycake/internal/config"
	"cherrycake/internal/logging"
	"cherrycake/internal/view"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// logger returns a stderr logger for one-shot commands. Only warnings and
// errors are shown unless the config asks for debug.
func (c *commandContext) logger(w io.Writer) *slog.Logger {
	cfg, err := c.ensureConfig()
	if err != nil {
		return logging.NewNop()
	}
	level := "warn"
	if strings.EqualFold(cfg.Logging.Level, "debug") {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{Level: level, Format: cfg.Logging.Format, Writer: w})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func (c *commandContext) library(cmd *cobra.Command) (*view.Library, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return view.NewLibrary(view.NewLoader(cfg), view.Catalog(cfg), c.logger(cmd.ErrOrStderr())), nil
}

func (c *commandContext) definition(name string) (*config.Config, view.Definition, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, view.Definition{}, err
	}
	def, ok := view.Lookup(view.Catalog(cfg), name)
	if !ok {
		return nil, view.Definition{}, fmt.Errorf("unknown visualization %q (available: %s)", name, strings.Join(view.Names(view.Catalog(cfg)), ", "))
	}
	return cfg, def, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
