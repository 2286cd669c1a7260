package main

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"roomfund/internal/amqp"
	"roomfund/internal/backend"
	"roomfund/internal/cli"
	applog "roomfund/internal/log"
	"roomfund/internal/metrics"
	"roomfund/internal/sheets"
	gsheet "roomfund/internal/sheets/google"
	memsheet "roomfund/internal/sheets/memory"
	"roomfund/internal/storage"
	"roomfund/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	boot := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.ConfigureLogger(cfg, applog.ComponentWorker)

	logger.Info("Starting roomfund-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	if cfg.DataBackend == string(backend.MemoryBackend) {
		logger.Warn("Memory backend is private to this process; the mirror will not see the server's writes")
	}

	m := metrics.New()
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	// The worker reads each collection once per event, so the cache would
	// only hold stale snapshots written by another process.
	backendCfg.CacheSize = 0
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger, m).
		CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize record store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer res.Cleanup()

	var writer sheets.SummaryWriter
	if cfg.SheetsEnabled() {
		creds := gsheet.CredentialsFromEnv()
		creds.OAuthClientJSON = cfg.GoogleOAuthClientJSON
		creds.OAuthClientFile = cfg.GoogleOAuthClientFile
		creds.OAuthTokenJSON = cfg.GoogleOAuthTokenJSON
		creds.OAuthTokenFile = cfg.GoogleOAuthTokenFile
		client, err := gsheet.NewFromCredentials(context.Background(), cfg.GoogleSpreadsheetID, creds)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = memsheet.New()
		logger.Info("Google Sheets disabled - summaries are kept in memory only")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	mirror := worker.NewMirrorWorker(storage.NewRecords(res.Store), writer,
		worker.WithObserver(m),
		worker.WithClock(func() time.Time { return time.Now().In(cfg.Location()) }),
		worker.WithLogger(logger.WithComponent(applog.ComponentWorker).Logger),
		worker.WithAccounts(accountsFromEnv()...),
	)

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, nil)

	if err := mirror.ResyncAll(ctx); err != nil {
		logger.Warn("Startup resync incomplete", "error", err)
	}

	go mirror.Run(ctx, cfg.SyncInterval)

	go func() {
		err := amqpClient.ConsumeChanges(ctx, mirror.HandleChange)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}

// accountsFromEnv reads WORKER_ACCOUNTS, a comma separated list of accounts
// to resync before any change event arrives.
func accountsFromEnv() []string {
	var out []string
	for _, a := range strings.Split(os.Getenv("WORKER_ACCOUNTS"), ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
