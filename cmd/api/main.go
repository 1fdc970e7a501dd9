package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/campushub/smartmail/internal/config"
	"github.com/campushub/smartmail/internal/handler"
	"github.com/campushub/smartmail/internal/infra/postgresql"
	"github.com/campushub/smartmail/internal/infra/postgresql/migrations"
	infraredis "github.com/campushub/smartmail/internal/infra/redis"
	"github.com/campushub/smartmail/internal/joblock"
	"github.com/campushub/smartmail/internal/mailer"
	"github.com/campushub/smartmail/internal/observability"
	"github.com/campushub/smartmail/internal/provider"
	"github.com/campushub/smartmail/internal/repository"
	"github.com/campushub/smartmail/internal/service"
	"github.com/campushub/smartmail/internal/template"
	"github.com/campushub/smartmail/internal/transport"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	// Redis is optional: it only backs the distributed reminder lock.
	// Without it a process-local lock is used, which is correct for a
	// single replica.
	var rdb *goredis.Client
	var lock joblock.Lock = joblock.NewLocalLock()
	if cfg.RedisURL != "" {
		rdb, err = infraredis.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis initialization failed", zap.Error(err))
		}
		defer rdb.Close()

		lock, err = infraredis.NewRedisJobLock(rdb)
		if err != nil {
			logger.Fatal("redis job lock init failed", zap.Error(err))
		}
	}

	specs, adapters, err := buildProviders(cfg)
	if err != nil {
		logger.Fatal("provider wiring failed", zap.Error(err))
	}

	renderer, err := template.NewRenderer(cfg.CommunityName)
	if err != nil {
		logger.Fatal("template renderer init failed", zap.Error(err))
	}

	usageRepo := repository.NewGormUsageRepo(db)
	sendLogRepo := repository.NewGormSendLogRepo(db)
	eventRepo := repository.NewGormEventRepo(db)
	electionRepo := repository.NewGormElectionRepo(db)
	sessionRepo := repository.NewGormSessionRepo(db)
	tokenRepo := repository.NewGormTokenRepo(db)

	metrics := observability.NewMetrics()

	dispatcher, err := mailer.NewDispatcher(specs, adapters, usageRepo, sendLogRepo, renderer, logger)
	if err != nil {
		logger.Fatal("dispatcher init failed", zap.Error(err))
	}
	dispatcher.SetMetrics(metrics)

	stats, err := mailer.NewStatsService(specs, usageRepo, sendLogRepo)
	if err != nil {
		logger.Fatal("stats service init failed", zap.Error(err))
	}
	stats.SetMetrics(metrics)

	reminders, err := service.NewReminderService(eventRepo, dispatcher, logger)
	if err != nil {
		logger.Fatal("reminder service init failed", zap.Error(err))
	}

	scheduler, err := service.NewScheduler(
		electionRepo,
		sessionRepo,
		tokenRepo,
		reminders,
		lock,
		service.SchedulerConfig{
			SessionLifetime: time.Duration(cfg.SessionLifetimeMinutes) * time.Minute,
			DeepSweepAt:     cfg.SessionDeepSweepAt,
			TokenSweepAt:    cfg.TokenSweepAt,
		},
		logger,
	)
	if err != nil {
		logger.Fatal("scheduler init failed", zap.Error(err))
	}
	scheduler.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		ErrorHandler:          transport.ErrorHandler(logger),
		DisableStartupMessage: true,
	})
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterMailAdminRoutes(app, stats); err != nil {
		logger.Fatal("admin route registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("smartmail api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})
	g.Go(func() error {
		return scheduler.Start(groupCtx)
	})
	g.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("smartmail api stopped", zap.Error(err))
		return
	}
	logger.Info("smartmail api stopped")
}

// buildProviders assembles the priority-ordered quota specs and their
// transport adapters from configuration. Providers without the minimum
// transport settings are skipped so a deployment can run on SMTP alone.
func buildProviders(cfg *config.Config) ([]mailer.ProviderSpec, []provider.Provider, error) {
	available := map[string]struct {
		limit int
		build func() (provider.Provider, error)
	}{
		config.ProviderSMTPPrimary: {
			limit: cfg.SMTPDailyLimit,
			build: func() (provider.Provider, error) {
				return provider.NewSMTPProvider(provider.SMTPConfig{
					ID:          config.ProviderSMTPPrimary,
					Host:        cfg.SMTPHost,
					Port:        cfg.SMTPPort,
					Username:    cfg.SMTPUser,
					Password:    cfg.SMTPPassword,
					FromAddress: cfg.MailFromAddress,
					FromName:    cfg.MailFromName,
				})
			},
		},
		config.ProviderBrevo: {
			limit: cfg.BrevoDailyLimit,
			build: func() (provider.Provider, error) {
				return provider.NewAPIProvider(provider.APIConfig{
					ID:          config.ProviderBrevo,
					Endpoint:    cfg.BrevoEndpoint,
					APIKey:      cfg.BrevoAPIKey,
					FromAddress: cfg.MailFromAddress,
					FromName:    cfg.MailFromName,
				})
			},
		},
		config.ProviderSMTPBackup: {
			limit: cfg.BackupSMTPDailyLimit,
			build: func() (provider.Provider, error) {
				return provider.NewSMTPProvider(provider.SMTPConfig{
					ID:          config.ProviderSMTPBackup,
					Host:        cfg.BackupSMTPHost,
					Port:        cfg.BackupSMTPPort,
					Username:    cfg.BackupSMTPUser,
					Password:    cfg.BackupSMTPPassword,
					FromAddress: cfg.MailFromAddress,
					FromName:    cfg.MailFromName,
				})
			},
		},
	}

	configured := map[string]bool{
		config.ProviderSMTPPrimary: cfg.SMTPHost != "",
		config.ProviderBrevo:       cfg.BrevoAPIKey != "",
		config.ProviderSMTPBackup:  cfg.BackupSMTPHost != "",
	}

	var specs []mailer.ProviderSpec
	var adapters []provider.Provider
	for _, id := range cfg.ProviderOrder() {
		entry, ok := available[id]
		if !ok {
			return nil, nil, fmt.Errorf("unknown provider id %q in MAIL_PROVIDER_ORDER", id)
		}
		if !configured[id] {
			continue
		}

		adapter, err := entry.build()
		if err != nil {
			return nil, nil, err
		}

		specs = append(specs, mailer.ProviderSpec{ID: id, DailyLimit: entry.limit})
		adapters = append(adapters, adapter)
	}

	if len(specs) == 0 {
		return nil, nil, fmt.Errorf("no mail provider is configured")
	}
	return specs, adapters, nil
}
