package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/brightsmile/dental-ai-platform/cmd/mainconfig"
	"github.com/brightsmile/dental-ai-platform/internal/api/router"
	"github.com/brightsmile/dental-ai-platform/internal/appointments"
	"github.com/brightsmile/dental-ai-platform/internal/archive"
	appconfig "github.com/brightsmile/dental-ai-platform/internal/config"
	"github.com/brightsmile/dental-ai-platform/internal/dentists"
	"github.com/brightsmile/dental-ai-platform/internal/http/handlers"
	"github.com/brightsmile/dental-ai-platform/internal/identity"
	"github.com/brightsmile/dental-ai-platform/internal/notify"
	"github.com/brightsmile/dental-ai-platform/internal/observability/metrics"
	"github.com/brightsmile/dental-ai-platform/internal/patients"
	"github.com/brightsmile/dental-ai-platform/internal/voice"
	"github.com/brightsmile/dental-ai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting dental-ai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	m := metrics.NewBookingMetrics(nil)

	idClient, err := identity.New(identity.Config{
		BaseURL: cfg.IdentityAPIBaseURL,
		APIKey:  cfg.IdentityAPIKey,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to configure identity client", "error", err)
		os.Exit(1)
	}

	// Booking confirmation pipeline: queue plus background sender.
	var queue notify.Queue
	switch {
	case cfg.UseMemoryQueue:
		queue = notify.NewMemoryQueue(0)
		logger.Info("using in-memory confirmation queue")
	case cfg.NotifyQueueURL != "":
		queue = notify.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.NotifyQueueURL)
	default:
		logger.Warn("booking confirmations disabled: no queue configured")
	}

	var notifier appointments.Notifier
	if queue != nil {
		notifier = notify.NewPublisher(queue, logger)

		var sender notify.EmailSender
		switch cfg.EmailProvider {
		case "ses":
			sender = notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
				FromEmail: cfg.FromEmail,
				FromName:  cfg.FromName,
			}, logger)
		default:
			sender = notify.NewSendGridSender(notify.SendGridConfig{
				APIKey:    cfg.SendGridAPIKey,
				FromEmail: cfg.FromEmail,
				FromName:  cfg.FromName,
			}, logger)
		}
		if sender == nil {
			logger.Warn("email provider not configured, using stub sender", "provider", cfg.EmailProvider)
			sender = notify.NewStubEmailSender(logger)
		}

		worker := notify.NewWorker(queue, sender, logger, notify.WithWorkerCount(cfg.WorkerCount))
		worker.Start(ctx)
		defer worker.Wait()
	}

	patientsRepo := patients.NewRepository(pool)
	patientsSvc := patients.NewService(patientsRepo, idClient, cfg.ProfileRetryAttempts, cfg.ProfileRetryDelay, logger)

	apptRepo := appointments.NewRepository(pool)
	apptSvc := appointments.NewService(apptRepo, idClient, notifier, cfg.SlotMenu, m, logger)

	voiceStore := voice.NewStore(redisClient, cfg.VoiceSessionTTL)
	archiveStore := archive.NewStore(s3.NewFromConfig(awsCfg), cfg.TranscriptArchiveBucket, logger)

	routerCfg := &router.Config{
		Logger:              logger,
		PatientsHandler:     patients.NewHandler(patientsSvc, logger),
		DentistsHandler:     dentists.NewHandler(dentists.NewRepository(pool), logger),
		AppointmentsHandler: appointments.NewHandler(apptSvc, logger),
		VoiceHandler:        voice.NewHandler(voiceStore, archiveStore, cfg.VoiceAssistantID, m, logger),
		AdminDashboard:      handlers.NewAdminDashboardHandler(sqlDB, logger),
		MetricsHandler:      promhttp.Handler(),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		IdentityIssuerURL:   cfg.IdentityIssuerURL,
		IdentityAudience:    cfg.IdentityAudience,
		AdminAuthSecret:     cfg.AdminJWTSecret,
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.New(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	cancel() // stop confirmation workers
	logger.Info("server stopped")
}
