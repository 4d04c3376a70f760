package config

import (
	"flag"
	"io"

	"github.com/janndizz/test-plogg/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string     HTTP bind address (e.g. ":5000")
//	-k string     database driver: postgres or sqlite
//	-d string     database DSN
//	-s string     session token HMAC secret
//	-t duration   session token validity (e.g. "720h")
//	-v duration   verification token validity (e.g. "5m")
//	-b string     public base URL used in verification links
//	-f string     frontend URL (redirects and CORS origin)
//	-g string     Google OAuth client id
//	-m string     mail provider: log, smtp or ses
//	-l string     log level
//
// Only these flags are looked at; anything else in args is ignored so the
// config file flags and flags of other components can coexist.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-k", "-d", "-s", "-t", "-v", "-b", "-f", "-g", "-m", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDriver, "k", config.DatabaseDriver, "database driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.SessionTokenValidityDuration, "t", config.SessionTokenValidityDuration, "session token validity")
	fs.DurationVar(&config.VerificationTokenValidityDuration, "v", config.VerificationTokenValidityDuration, "verification token validity")
	fs.StringVar(&config.PublicBaseURL, "b", config.PublicBaseURL, "public base URL")
	fs.StringVar(&config.FrontendURL, "f", config.FrontendURL, "frontend URL")
	fs.StringVar(&config.GoogleClientID, "g", config.GoogleClientID, "Google client id")
	fs.StringVar(&config.MailProvider, "m", config.MailProvider, "mail provider")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
