package newrelic

import (
	"os"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"

	"inviqa/request-basket/log"
)

const (
	shutdownTimeout   = time.Second * 10
	defaultAppName    = "request-basket"
	envKeyNewRelicEnv = "NEW_RELIC_ENV"
	envKeyLogLevel    = "NEW_RELIC_LOG_LEVEL"
)

// StartAgent starts the New Relic agent from NEW_RELIC_* environment
// variables. Without a licence key the agent is disabled and a nil
// application is returned, which every caller in this module accepts.
func StartAgent() (*newrelic.Application, func()) {
	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(defaultAppName),
		newrelic.ConfigFromEnvironment(),
		agentLoggingConfig(),
		func(cfg *newrelic.Config) {
			cfg.Labels = map[string]string{
				"env": os.Getenv(envKeyNewRelicEnv),
			}
			if cfg.License == "" {
				cfg.Enabled = false
			}
		},
	)
	if err != nil {
		log.Logger.WithError(err).Error("unable to start New Relic agent, continuing without it")
		return nil, func() {}
	}
	return app, func() {
		log.Logger.Info("shutting down newrelic agent")
		app.Shutdown(shutdownTimeout)
	}
}

func agentLoggingConfig() newrelic.ConfigOption {
	if os.Getenv(envKeyLogLevel) == "debug" {
		return newrelic.ConfigDebugLogger(log.Writer())
	}
	return newrelic.ConfigInfoLogger(log.Writer())
}
