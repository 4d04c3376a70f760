package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvConfig maps AUTH_* environment variables. Pointer fields stay nil when
// the variable is unset, so only variables that are present override.
type EnvConfig struct {
	HTTPAddr                          *string        `env:"AUTH_HTTP_ADDR"`
	DatabaseDriver                    *string        `env:"AUTH_DATABASE_DRIVER"`
	DatabaseDSN                       *string        `env:"AUTH_DATABASE_DSN"`
	SecretKey                         *string        `env:"AUTH_SECRET_KEY"`
	SessionTokenValidityDuration      *time.Duration `env:"AUTH_SESSION_TOKEN_TTL"`
	VerificationTokenValidityDuration *time.Duration `env:"AUTH_VERIFICATION_TOKEN_TTL"`
	PublicBaseURL                     *string        `env:"AUTH_PUBLIC_BASE_URL"`
	FrontendURL                       *string        `env:"AUTH_FRONTEND_URL"`
	GoogleClientID                    *string        `env:"AUTH_GOOGLE_CLIENT_ID"`
	MailProvider                      *string        `env:"AUTH_MAIL_PROVIDER"`
	MailFrom                          *string        `env:"AUTH_MAIL_FROM"`
	SMTPHost                          *string        `env:"AUTH_SMTP_HOST"`
	SMTPPort                          *int           `env:"AUTH_SMTP_PORT"`
	SMTPUser                          *string        `env:"AUTH_SMTP_USER"`
	SMTPPassword                      *string        `env:"AUTH_SMTP_PASSWORD"`
	SESRegion                         *string        `env:"AUTH_SES_REGION"`
	NotifyTimeout                     *time.Duration `env:"AUTH_NOTIFY_TIMEOUT"`
	SESAccessKeyID                    *string        `env:"AUTH_SES_ACCESS_KEY_ID"`
	SESSecretAccessKey                *string        `env:"AUTH_SES_SECRET_ACCESS_KEY"`
	SESEndpoint                       *string        `env:"AUTH_SES_ENDPOINT"`
	LogBackend                        *string        `env:"AUTH_LOG_BACKEND"`
	LogFormat                         *string        `env:"AUTH_LOG_FORMAT"`
	LogLevel                          *string        `env:"AUTH_LOG_LEVEL"`
	Environment                       *string        `env:"AUTH_ENV"`
	TelemetryEndpoint                 *string        `env:"AUTH_OTEL_ENDPOINT"`
	ServiceName                       *string        `env:"AUTH_SERVICE_NAME"`
}

// parseEnv overlays AUTH_* environment variables onto config. A variable
// that fails to parse (for example a malformed duration) panics.
func parseEnv(config *Config) {
	var c EnvConfig
	if err := env.Parse(&c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setStdDuration(&config.SessionTokenValidityDuration, c.SessionTokenValidityDuration)
	setStdDuration(&config.VerificationTokenValidityDuration, c.VerificationTokenValidityDuration)
	setString(&config.PublicBaseURL, c.PublicBaseURL)
	setString(&config.FrontendURL, c.FrontendURL)
	setString(&config.GoogleClientID, c.GoogleClientID)
	setString(&config.MailProvider, c.MailProvider)
	setString(&config.MailFrom, c.MailFrom)
	setString(&config.SMTPHost, c.SMTPHost)
	if c.SMTPPort != nil {
		config.SMTPPort = *c.SMTPPort
	}
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.SESRegion, c.SESRegion)
	setStdDuration(&config.NotifyTimeout, c.NotifyTimeout)
	setString(&config.SESAccessKeyID, c.SESAccessKeyID)
	setString(&config.SESSecretAccessKey, c.SESSecretAccessKey)
	setString(&config.SESEndpoint, c.SESEndpoint)
	setString(&config.LogBackend, c.LogBackend)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.Environment, c.Environment)
	setString(&config.TelemetryEndpoint, c.TelemetryEndpoint)
	setString(&config.ServiceName, c.ServiceName)
}

func setStdDuration(dst *time.Duration, src *time.Duration) {
	if src != nil {
		*dst = *src
	}
}
