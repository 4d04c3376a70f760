package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/janndizz/test-plogg/internal/flagx"
	"github.com/janndizz/test-plogg/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Every field is
// optional; only keys present in the file override the current value.
type JsonConfig struct {
	HTTPAddr                          *string         `json:"http_addr"`
	DatabaseDriver                    *string         `json:"database_driver"`
	DatabaseDSN                       *string         `json:"database_dsn"`
	SecretKey                         *string         `json:"secret_key"`
	SessionTokenValidityDuration      *timex.Duration `json:"session_token_validity_duration"`
	VerificationTokenValidityDuration *timex.Duration `json:"verification_token_validity_duration"`
	PublicBaseURL                     *string         `json:"public_base_url"`
	FrontendURL                       *string         `json:"frontend_url"`
	GoogleClientID                    *string         `json:"google_client_id"`
	MailProvider                      *string         `json:"mail_provider"`
	MailFrom                          *string         `json:"mail_from"`
	SMTPHost                          *string         `json:"smtp_host"`
	SMTPPort                          *int            `json:"smtp_port"`
	SMTPUser                          *string         `json:"smtp_user"`
	SMTPPassword                      *string         `json:"smtp_password"`
	SESRegion                         *string         `json:"ses_region"`
	NotifyTimeout                     *timex.Duration `json:"notify_timeout"`
	SESAccessKeyID                    *string         `json:"ses_access_key_id"`
	SESSecretAccessKey                *string         `json:"ses_secret_access_key"`
	SESEndpoint                       *string         `json:"ses_endpoint"`
	LogBackend                        *string         `json:"log_backend"`
	LogFormat                         *string         `json:"log_format"`
	LogLevel                          *string         `json:"log_level"`
	Environment                       *string         `json:"environment"`
	TelemetryEndpoint                 *string         `json:"telemetry_endpoint"`
	ServiceName                       *string         `json:"service_name"`
}

// parseJson overlays the JSON file named by -c/-config (or AUTH_CONFIG) onto
// config. Nothing happens when no file is named. An unreadable file or
// invalid JSON panics.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigPath(args, configPathEnv)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.SessionTokenValidityDuration, c.SessionTokenValidityDuration)
	setDuration(&config.VerificationTokenValidityDuration, c.VerificationTokenValidityDuration)
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
	setDuration(&config.NotifyTimeout, c.NotifyTimeout)
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

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *timex.Duration) {
	if src != nil {
		*dst = src.Duration
	}
}
