package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lborres/agora"
	fiberadapter "github.com/lborres/agora/adapters/fiber"
	"github.com/lborres/agora/adapters/mail"
	"github.com/lborres/agora/adapters/memory"
	pgxadapter "github.com/lborres/agora/adapters/pgx"
	"github.com/lborres/agora/core"
	"github.com/lborres/agora/internal/config"
	"github.com/lborres/agora/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func logFormat() string {
	format := []string{
		// Timestamp & Request ID
		"${time}|${requestid}",

		// Response metadata
		"${status}|${latency}",

		// Client info
		"${ip}",

		// Request details
		"${method}|${path}",

		// errors
		"${error}",
	}
	return strings.Join(format, "|") + "\n"
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	zl, err := logging.Init(logging.Config{Level: cfg.LogLevel, Dev: cfg.LogDev})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer zl.Sync() //nolint:errcheck
	log := logging.NewZapLogger(zl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	app := fiber.New(fiber.Config{AppName: "agora"})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format:     logFormat(),
		TimeFormat: "2006/01/02 15:04:05",
		TimeZone:   "Local",
	}))

	httpAdapter := fiberadapter.New(app)
	_, err = agora.New(agora.Config{
		Secret:      cfg.Secret,
		Database:    store,
		HTTP:        httpAdapter,
		Mailer:      newMailer(cfg, log),
		ResetConfig: &core.ResetConfig{BaseURL: cfg.BaseURL, ExposeDevLinks: cfg.ExposeResetLinks},
		Cookies:     &core.CookieConfig{Secure: cfg.SecureCookies, Domain: cfg.CookieDomain},
		Providers:   providers(cfg),
		Logger:      log,
	})
	if err != nil {
		return fmt.Errorf("could not create agora instance: %w", err)
	}
	app.Use(httpAdapter.PageGuard())

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", cfg.Addr, "env", cfg.Environment)
		errCh <- app.Listen(cfg.Addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStore connects to PostgreSQL and migrates it, or falls back to the
// in-memory store when no DSN is configured.
func openStore(ctx context.Context, cfg *config.Config, log logging.Logger) (core.StorageAdapter, func(), error) {
	if cfg.DatabaseDSN == "" {
		if cfg.Environment == config.EnvProduction {
			return nil, nil, errors.New("DATABASE_URL is required in production")
		}
		log.Warn(ctx, "no database configured, using in-memory store")
		return memory.New(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("database ping: %w", err)
	}
	if err := pgxadapter.MigratePool(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pgxadapter.New(pool), pool.Close, nil
}

// newMailer picks Resend when a key is set. Without one, development logs
// reset links and production drops them.
func newMailer(cfg *config.Config, log logging.Logger) core.Mailer {
	if cfg.ResendAPIKey == "" {
		if cfg.Environment == config.EnvProduction {
			log.Warn(context.Background(), "RESEND_API_KEY not set, password reset mail disabled")
			return mail.NewUnconfigured(log)
		}
		return mail.NewLogMailer(log)
	}
	return mail.NewResend(mail.ResendConfig{APIKey: cfg.ResendAPIKey, From: cfg.ResendFrom}, log)
}

func providers(cfg *config.Config) []core.ProviderConfig {
	creds := cfg.Providers()
	out := agora.DefaultProviders()
	for i := range out {
		c := creds[out[i].Name]
		out[i].ClientID, out[i].ClientSecret = c.ClientID, c.ClientSecret
	}
	return out
}
