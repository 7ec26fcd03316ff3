package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"proxyoda/internal/config"
	"proxyoda/internal/encoderctl"
	"proxyoda/internal/logging"
	"proxyoda/internal/scan"
	"proxyoda/internal/services/ame"
)

type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger

	// Overrides used by tests; nil means the OS-backed default.
	controller     encoderctl.ProcessController
	prober         scan.Prober
	sleep          func(context.Context, time.Duration) error
	loggerOverride *slog.Logger
}

type contextOption func(*commandContext)

func withController(controller encoderctl.ProcessController) contextOption {
	return func(c *commandContext) { c.controller = controller }
}

func withProber(prober scan.Prober) contextOption {
	return func(c *commandContext) { c.prober = prober }
}

func withSleeper(sleep func(context.Context, time.Duration) error) contextOption {
	return func(c *commandContext) { c.sleep = sleep }
}

func withLogger(logger *slog.Logger) contextOption {
	return func(c *commandContext) { c.loggerOverride = logger }
}

func newCommandContext(configFlag, logLevelFlag, logFormatFlag *string, opts ...contextOption) *commandContext {
	c := &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.TrimSpace(*c.logLevelFlag)
		}
		if c.logFormatFlag != nil && strings.TrimSpace(*c.logFormatFlag) != "" {
			cfg.Logging.Format = strings.TrimSpace(*c.logFormatFlag)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) loggerValue() *slog.Logger {
	c.loggerOnce.Do(func() {
		if c.loggerOverride != nil {
			c.logger = c.loggerOverride
			return
		}
		logger, err := logging.NewFromConfig(c.config)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) processController() encoderctl.ProcessController {
	if c.controller != nil {
		return c.controller
	}
	return encoderctl.NewOSController()
}

func (c *commandContext) mediaProber(cfg *config.Config) scan.Prober {
	if c.prober != nil {
		return c.prober
	}
	return scan.NewProber(cfg)
}

func (c *commandContext) ameClient(cfg *config.Config) *ame.Client {
	return ame.NewClient(
		ame.EndpointFromConfig(cfg),
		ame.WithLogger(c.loggerValue()),
		ame.WithSocketResetPolicy(cfg.WebService.SocketResetPolicy),
	)
}

func (c *commandContext) supervisor(cfg *config.Config, client *ame.Client) *encoderctl.Supervisor {
	opts := []encoderctl.Option{
		encoderctl.WithController(c.processController()),
		encoderctl.WithLogger(c.loggerValue()),
	}
	if c.sleep != nil {
		opts = append(opts, encoderctl.WithClock(time.Now, c.sleep))
	}
	return encoderctl.NewSupervisor(cfg, client, opts...)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
