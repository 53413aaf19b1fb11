package credentials

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ThrottleConfig bounds the attempts a client can make within a window.
type ThrottleConfig struct {
	Limit  int
	Window time.Duration
}

// Settings is the default Config implementation.
type Settings struct {
	AppName            string
	HomeURL            string
	BaseURL            string
	LoginURL           string
	MailFrom           string
	DefaultGroup       string
	BcryptCost         int
	ActivationThrottle ThrottleConfig
	ResendThrottle     ThrottleConfig
}

var _ Config = (*Settings)(nil)

const (
	keyAppName            = "app.name"
	keyHomeURL            = "app.home_url"
	keyBaseURL            = "app.base_url"
	keyLoginURL           = "app.login_url"
	keyMailFrom           = "mail.from"
	keyDefaultGroup       = "groups.default"
	keyBcryptCost         = "passwords.bcrypt_cost"
	keyActivationLimit    = "throttle.activation.limit"
	keyActivationWindow   = "throttle.activation.window"
	keyResendLimit        = "throttle.resend.limit"
	keyResendWindow       = "throttle.resend.window"
	defaultSettingsName   = "credentials"
	defaultSettingsPrefix = "CREDENTIALS"
)

// DefaultSettings returns the settings used when no configuration is provided.
func DefaultSettings() *Settings {
	return &Settings{
		AppName:      "Credentials",
		HomeURL:      "/",
		BaseURL:      "http://localhost:3000",
		LoginURL:     "/account/login",
		MailFrom:     "no-reply@localhost",
		DefaultGroup: "Users",
		BcryptCost:   14,
		ActivationThrottle: ThrottleConfig{
			Limit:  10,
			Window: 10 * time.Minute,
		},
		ResendThrottle: ThrottleConfig{
			Limit:  5,
			Window: 30 * time.Minute,
		},
	}
}

// LoadSettings reads settings from a YAML file and CREDENTIALS_* environment
// variables. An empty path looks for credentials.yaml in the working directory;
// a missing file is not an error.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	setSettingsDefaults(v, DefaultSettings())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(defaultSettingsName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(defaultSettingsPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return settingsFromViper(v), nil
}

func setSettingsDefaults(v *viper.Viper, s *Settings) {
	v.SetDefault(keyAppName, s.AppName)
	v.SetDefault(keyHomeURL, s.HomeURL)
	v.SetDefault(keyBaseURL, s.BaseURL)
	v.SetDefault(keyLoginURL, s.LoginURL)
	v.SetDefault(keyMailFrom, s.MailFrom)
	v.SetDefault(keyDefaultGroup, s.DefaultGroup)
	v.SetDefault(keyBcryptCost, s.BcryptCost)
	v.SetDefault(keyActivationLimit, s.ActivationThrottle.Limit)
	v.SetDefault(keyActivationWindow, s.ActivationThrottle.Window)
	v.SetDefault(keyResendLimit, s.ResendThrottle.Limit)
	v.SetDefault(keyResendWindow, s.ResendThrottle.Window)
}

func settingsFromViper(v *viper.Viper) *Settings {
	return &Settings{
		AppName:      v.GetString(keyAppName),
		HomeURL:      v.GetString(keyHomeURL),
		BaseURL:      strings.TrimRight(v.GetString(keyBaseURL), "/"),
		LoginURL:     v.GetString(keyLoginURL),
		MailFrom:     v.GetString(keyMailFrom),
		DefaultGroup: v.GetString(keyDefaultGroup),
		BcryptCost:   v.GetInt(keyBcryptCost),
		ActivationThrottle: ThrottleConfig{
			Limit:  v.GetInt(keyActivationLimit),
			Window: v.GetDuration(keyActivationWindow),
		},
		ResendThrottle: ThrottleConfig{
			Limit:  v.GetInt(keyResendLimit),
			Window: v.GetDuration(keyResendWindow),
		},
	}
}

func (s *Settings) GetAppName() string                    { return s.AppName }
func (s *Settings) GetHomeURL() string                    { return s.HomeURL }
func (s *Settings) GetBaseURL() string                    { return s.BaseURL }
func (s *Settings) GetLoginURL() string                   { return s.LoginURL }
func (s *Settings) GetMailFrom() string                   { return s.MailFrom }
func (s *Settings) GetDefaultGroup() string               { return s.DefaultGroup }
func (s *Settings) GetBcryptCost() int                    { return s.BcryptCost }
func (s *Settings) GetActivationThrottle() ThrottleConfig { return s.ActivationThrottle }
func (s *Settings) GetResendThrottle() ThrottleConfig     { return s.ResendThrottle }

// URL joins path onto the configured base URL.
func (s *Settings) URL(path string) string {
	return absoluteURL(s.BaseURL, path)
}

func absoluteURL(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	base = strings.TrimRight(base, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
