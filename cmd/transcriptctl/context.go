package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/codebuildervaibhav/transcript-console/internal/apiclient"
	"github.com/codebuildervaibhav/transcript-console/internal/config"
	"github.com/codebuildervaibhav/transcript-console/internal/logger"
	"github.com/codebuildervaibhav/transcript-console/internal/storage"
)

const defaultConfigPath = "config/config.yaml"

type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *zap.Logger

	backendOnce sync.Once
	backend     *apiclient.Backend
	backendErr  error

	prefsOnce sync.Once
	prefs     *storage.PreferencesDB
	prefsErr  error
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag != nil {
		if path := strings.TrimSpace(*c.configFlag); path != "" {
			return path
		}
	}
	if env := strings.TrimSpace(os.Getenv("CONSOLE_CONFIG")); env != "" {
		return env
	}
	return defaultConfigPath
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) log() *zap.Logger {
	c.loggerOnce.Do(func() {
		level := "warn"
		if c.verboseFlag != nil && *c.verboseFlag {
			level = "debug"
		}
		c.logger = logger.MustNewLogger(logger.Options{Level: level}, nil)
	})
	return c.logger
}

// ensureBackend builds the service clients over the shared token file, so a
// login made here is visible to the console server and the other way round.
func (c *commandContext) ensureBackend() (*apiclient.Backend, error) {
	c.backendOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.backendErr = err
			return
		}
		backend, err := apiclient.NewBackend(apiclient.BackendConfig{
			AuthURL:        cfg.Services.AuthURL,
			DiarizationURL: cfg.Services.DiarizationURL,
			Timeout:        cfg.HTTPTimeout(),
		}, apiclient.NewFileTokenStore(cfg.Session.TokenFile), c.log())
		if err != nil {
			c.backendErr = err
			return
		}
		backend.Session.OnSessionExpired = func() {
			fmt.Fprintln(os.Stderr, "Session expired; run `transcriptctl login` again")
		}
		c.backend = backend
	})
	return c.backend, c.backendErr
}

func (c *commandContext) ensurePreferences() (*storage.PreferencesDB, error) {
	c.prefsOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.prefsErr = err
			return
		}
		c.prefs, c.prefsErr = storage.NewPreferencesDB(cfg.Storage.Database, storage.DefaultSearchHistory)
	})
	return c.prefs, c.prefsErr
}

func (c *commandContext) close() {
	if c.prefs != nil {
		c.prefs.Close()
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// isTerminalWriter reports whether w is an interactive terminal.
func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
