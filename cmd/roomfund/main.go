package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"roomfund/internal/amqp"
	"roomfund/internal/backend"
	"roomfund/internal/cli"
	apphttp "roomfund/internal/http"
	applog "roomfund/internal/log"
	"roomfund/internal/metrics"
	"roomfund/internal/services"
	"roomfund/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	boot := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.ConfigureLogger(cfg, applog.ComponentApp)

	m := metrics.New()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger, m).
		CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize record store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	opts := []services.Option{
		services.WithObserver(m),
		services.WithLocation(cfg.Location()),
		services.WithLogger(logger.WithComponent(applog.ComponentHousehold).Logger),
	}

	// Change events are optional; without a broker the spreadsheet mirror
	// simply never hears about writes.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without change events", "error", err)
		} else {
			opts = append(opts, services.WithPublisher(amqpClient))
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	household := services.NewHousehold(storage.NewRecords(res.Store), opts...)

	srv := apphttp.NewServer(":"+cfg.Port, household, apphttp.Options{
		Metrics:            m,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger.WithComponent(applog.ComponentHTTP),
	})

	// Configure server timeouts and limits. Event streams clear their own
	// write deadline.
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", "error", err)
			}
		}
		if err := res.Cleanup(); err != nil {
			logger.Warn("Record store close error", "error", err)
		}
	})

	logger.Info("Starting roomfund server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", amqpClient != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
