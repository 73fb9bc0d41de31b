// Package main is the entrypoint for the Eventide RSVP API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/eventide/rsvp/internal/cache"
	"github.com/eventide/rsvp/internal/config"
	"github.com/eventide/rsvp/internal/handler"
	"github.com/eventide/rsvp/internal/mailer"
	"github.com/eventide/rsvp/internal/metrics"
	"github.com/eventide/rsvp/internal/refresh"
	"github.com/eventide/rsvp/internal/repository"
	"github.com/eventide/rsvp/internal/server"
	"github.com/eventide/rsvp/internal/service"
)

// rsvpStore is what every store driver provides.
type rsvpStore interface {
	service.Store
	Ping(ctx context.Context) error
	Close() error
}

type shutdownHook struct {
	name string
	fn   server.ShutdownFunc
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open rsvp store",
			slog.String("driver", cfg.StoreDriver),
			slog.String("error", sanitizeError(err, cfg.DatabaseURL, cfg.SupabaseAnonKey)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("rsvp store ready", "driver", cfg.StoreDriver)

	recorder := metrics.NewInMemory()

	var (
		lookupCache service.LookupCache
		cacheCheck  handler.HealthChecker
		notifiers   []refresh.Notifier
		cacheClient *cache.Cache
	)

	if cfg.CacheEnabled() {
		cacheClient, err = cache.New(ctx, cfg.RedisURL, cache.WithLookupTTL(cfg.LookupCacheTTL))
		if err != nil {
			logger.Error("failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			_ = store.Close()
			os.Exit(1)
		}
		logger.Info("connected to Redis")

		lookupCache = cacheClient
		cacheCheck = cacheClient
		notifiers = append(notifiers, refresh.NewCacheInvalidator(cacheClient, logger))
	}

	// Hooks run in reverse order: the store outlives everything that writes to it.
	hooks := []shutdownHook{
		{"store", func(context.Context) error { return store.Close() }},
	}

	if cacheClient != nil {
		hooks = append(hooks, shutdownHook{"redis", func(context.Context) error { return cacheClient.Close() }})

		stream := refresh.NewStreamPublisher(cacheClient.Client(), logger, recorder)
		notifiers = append(notifiers, stream)
		hooks = append(hooks, shutdownHook{"rsvp-stream", stream.Wait})
	}

	if cfg.RevalidateEnabled() {
		revalidator := refresh.NewRevalidator(cfg.RevalidateURL, cfg.RevalidateSecret, logger, recorder)
		notifiers = append(notifiers, revalidator)
		hooks = append(hooks, shutdownHook{"revalidator", revalidator.Wait})
		logger.Info("front-end revalidation enabled")
	}

	confirmations := mailer.NewConfirmationNotifier(mailer.New(mailer.Config{
		Provider:    cfg.MailProvider,
		FromAddress: cfg.MailFromAddress,
		FromName:    cfg.MailFromName,
		SES: mailer.SESConfig{
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		},
	}, logger), logger, recorder)
	notifiers = append(notifiers, confirmations)
	hooks = append(hooks, shutdownHook{"mailer", confirmations.Wait})

	rsvpService := service.NewRSVPService(store, lookupCache, refresh.Combine(notifiers...), recorder, logger)

	router := handler.NewRouter(handler.RouterConfig{
		Logger:         logger,
		RSVP:           handler.NewRSVPHandler(rsvpService, logger),
		Health:         handler.NewHealthHandler(cfg.StoreDriver, store, cacheCheck),
		Metrics:        handler.NewMetricsHandler(recorder),
		AllowedOrigins: cfg.GetCORSAllowedOrigins(),
		MaxBodySize:    cfg.MaxRequestBodySize,
		IsDevelopment:  cfg.IsDevelopment(),
	})

	srv := server.New(router, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)
	for _, hook := range hooks {
		srv.OnShutdown(hook.name, hook.fn)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"store", cfg.StoreDriver,
		"cache", cfg.CacheEnabled(),
		"mail_provider", cfg.MailProvider,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// openStore connects the store selected by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config) (rsvpStore, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		repo, err := repository.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case config.StoreDriverPostgREST:
		repo, err := repository.NewRESTRepository(cfg.SupabaseURL, cfg.SupabaseAnonKey, nil)
		if err != nil {
			return nil, err
		}
		if err := repo.Ping(ctx); err != nil {
			return nil, fmt.Errorf("ping postgrest: %w", err)
		}
		return repo, nil
	case config.StoreDriverBolt:
		repo, err := repository.NewBoltRepository(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "eventide-rsvp")
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s&]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			username = "redacted"
		}
		parsed.User = url.User(username)
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" || redacted == secret {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
