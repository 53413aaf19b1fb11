package credentials

import (
	"github.com/goliatone/go-logger/glog"
)

// Logger is the structured logger used across the package.
type Logger = glog.Logger

// LoggerProvider hands out named loggers.
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// Config holds credentials options
type Config interface {
	GetAppName() string
	GetHomeURL() string
	GetBaseURL() string
	GetLoginURL() string
	GetMailFrom() string
	GetDefaultGroup() string
	GetBcryptCost() int
	GetActivationThrottle() ThrottleConfig
	GetResendThrottle() ThrottleConfig
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// ResolveLogger returns the provider and the scoped logger for name.
// A provider that yields no logger for name falls back to logger.
func ResolveLogger(name string, provider LoggerProvider, logger Logger) (LoggerProvider, Logger) {
	if provider == nil {
		if logger == nil {
			logger = defaultLogger()
		}
		provider = glog.ProviderFromLogger(logger)
	}

	if scoped := provider.GetLogger(name); scoped != nil {
		return provider, scoped
	}

	if logger == nil {
		logger = defaultLogger()
	}

	return fixedLoggerProvider{logger: logger}, logger
}

type fixedLoggerProvider struct {
	logger Logger
}

func (p fixedLoggerProvider) GetLogger(string) Logger {
	return p.logger
}

func defaultLogger() Logger {
	return glog.NewLogger(
		glog.WithName("credentials"),
		glog.WithLoggerTypePretty(),
		glog.WithAddSource(false),
	)
}
