package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/duyyudus/video-tools/internal/batch"
	"github.com/duyyudus/video-tools/internal/config"
	"github.com/duyyudus/video-tools/internal/history"
	"github.com/duyyudus/video-tools/internal/jobrun"
	"github.com/duyyudus/video-tools/internal/logging"
)

type commandContext struct {
	configFlag *string
	verbose    *bool
	jsonOutput *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string, verbose, jsonOutput *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
		jsonOutput: jsonOutput,
	}
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

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) verboseEnabled() bool {
	return c.verbose != nil && *c.verbose
}

func (c *commandContext) jsonEnabled() bool {
	return c.jsonOutput != nil && *c.jsonOutput
}

// ensureLogger builds the process logger once. --verbose forces debug level.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logCfg := *cfg
		if c.verboseEnabled() {
			logCfg.Logging.Level = "debug"
		}
		logger, err := logging.NewFromConfig(&logCfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) openHistory() (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

// newProcessor wires a batch processor for one command invocation. The
// returned func releases the history store.
func (c *commandContext) newProcessor(cmd *cobra.Command, observer batch.Observer, progress func(jobrun.Progress)) (*batch.Processor, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}

	runner := jobrun.New(cfg, logger)
	runner.Progress = progress
	if c.verboseEnabled() {
		runner.Verbose = cmd.ErrOrStderr()
	}

	opts := []batch.Option{batch.WithRunner(runner), batch.WithObserver(observer)}
	release := func() {}
	if cfg.History.Enabled {
		store, err := history.Open(cfg)
		if err != nil {
			logging.WarnWithContext(logger, "job history unavailable", "history_open_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check paths.state_dir or set history.enabled = false"),
				logging.String(logging.FieldImpact, "this batch will not be recorded"),
			)
		} else {
			opts = append(opts, batch.WithHistory(store))
			release = func() { _ = store.Close() }
		}
	}
	return batch.New(cfg, logger, opts...), release, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
