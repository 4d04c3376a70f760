// Package server initializes and runs the auth server. It builds every
// collaborator once from the configuration, serves the HTTP API and drains
// pending verification emails on shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/janndizz/test-plogg/internal/logging"
	"github.com/janndizz/test-plogg/internal/server/auth"
	"github.com/janndizz/test-plogg/internal/server/config"
	httpserver "github.com/janndizz/test-plogg/internal/server/http"
	"github.com/janndizz/test-plogg/internal/server/identity"
	"github.com/janndizz/test-plogg/internal/server/notify"
	"github.com/janndizz/test-plogg/internal/server/repositories/repomanager"
	"github.com/janndizz/test-plogg/internal/server/services"
	"github.com/janndizz/test-plogg/internal/server/telemetry"
)

const drainTimeout = 15 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	closeLogger func() error
	db          *sql.DB
	telemetry   *telemetry.Provider
	dispatcher  *notify.Dispatcher
	server      *httpserver.HTTPServer
}

// NewApp wires the application. On error everything opened so far is closed.
func NewApp(ctx context.Context, c *config.Config) (app *App, err error) {
	logger, closeLogger, err := logging.New(logging.Options{
		Backend: c.LogBackend,
		Format:  c.LogFormat,
		Level:   c.LogLevel,
		Output:  os.Stdout,
	})
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}
	logger = logger.With("service", c.ServiceName, "env", c.Environment)

	app = &App{config: c, logger: logger, closeLogger: closeLogger}
	defer func() {
		if err != nil {
			_ = app.close(context.Background())
			app = nil
		}
	}()

	if c.UsesDefaultSecret() {
		logger.Warn(ctx, "using the default secret key, set AUTH_SECRET_KEY")
	}

	rm, err := repomanager.New(c.DatabaseDriver)
	if err != nil {
		return app, err
	}
	dsn := c.DatabaseDSN
	if rm.DriverName() == repomanager.DriverSQLite {
		dsn = repomanager.SQLiteDSN(dsn)
	}
	app.db, err = repomanager.Open(ctx, rm, dsn)
	if err != nil {
		return app, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, app.db); err != nil {
		return app, fmt.Errorf("migrations error: %w", err)
	}

	app.telemetry, err = telemetry.New(ctx, telemetry.Options{
		Endpoint:    c.TelemetryEndpoint,
		ServiceName: c.ServiceName,
		Environment: c.Environment,
	}, logger)
	if err != nil {
		return app, fmt.Errorf("telemetry init error: %w", err)
	}

	sender, err := newSender(ctx, c, logger)
	if err != nil {
		return app, fmt.Errorf("mail init error: %w", err)
	}
	app.dispatcher = notify.NewDispatcher(notify.NewMailer(sender, c.MailFrom), logger, c.NotifyTimeout)

	codec := auth.NewCodec([]byte(c.SecretKey), c.SessionTokenValidityDuration, c.VerificationTokenValidityDuration)

	svc := services.NewAuthService(services.Dependencies{
		DB:            app.db,
		Repos:         rm,
		Codec:         codec,
		Verifier:      newVerifier(ctx, c, logger),
		Notifications: app.dispatcher,
		Logger:        logger,
		Tracer:        app.telemetry.Tracer(),
		PublicBaseURL: c.PublicBaseURL,
	})

	handler := httpserver.NewHandler(svc, app.db, c.FrontendURL, logger)
	router := httpserver.NewRouter(handler, httpserver.RouterOptions{
		FrontendURL:    c.FrontendURL,
		ServiceName:    c.ServiceName,
		TracerProvider: app.telemetry.TracerProvider(),
		Logger:         logger,
	})
	app.server = httpserver.NewHTTPServer(router)

	return app, nil
}

// newSender picks the mail transport. The log sender only records that a
// message would have been sent.
func newSender(ctx context.Context, c *config.Config, logger logging.Logger) (notify.Sender, error) {
	switch c.MailProvider {
	case config.MailProviderSMTP:
		return notify.NewSMTPSender(notify.SMTPConfig{
			Host:     c.SMTPHost,
			Port:     c.SMTPPort,
			User:     c.SMTPUser,
			Password: c.SMTPPassword,
		}), nil
	case config.MailProviderSES:
		return notify.NewSESSender(ctx, notify.SESConfig{
			Region:          c.SESRegion,
			AccessKeyID:     c.SESAccessKeyID,
			SecretAccessKey: c.SESSecretAccessKey,
			Endpoint:        c.SESEndpoint,
		})
	case config.MailProviderLog, "":
		return notify.NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("unsupported mail provider %q", c.MailProvider)
	}
}

func newVerifier(ctx context.Context, c *config.Config, logger logging.Logger) identity.Verifier {
	if c.GoogleClientID == "" {
		logger.Warn(ctx, "google sign-in disabled: no client id configured")
		return identity.Disabled{}
	}
	return identity.NewGoogleVerifier(ctx, c.GoogleClientID)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// shuts down and releases every resource.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	app.logger.Info(ctx, "starting auth server", "addr", app.config.HTTPAddr, "db", app.config.DatabaseDriver)

	err := app.server.Run(ctx, app.config.HTTPAddr)
	if err != nil {
		app.logger.Error(ctx, "http server stopped", "error", err)
	}

	app.logger.Info(context.Background(), "shutting down")
	return errors.Join(err, app.close(context.Background()))
}

func (app *App) close(ctx context.Context) error {
	var errs []error

	if app.dispatcher != nil {
		drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
		if err := app.dispatcher.Wait(drainCtx); err != nil {
			app.logger.Warn(ctx, "pending emails not delivered", "error", err)
			errs = append(errs, err)
		}
		cancel()
	}
	if app.telemetry != nil {
		if err := app.telemetry.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("db close: %w", err))
		}
	}
	if app.closeLogger != nil {
		_ = app.closeLogger()
	}
	return errors.Join(errs...)
}
