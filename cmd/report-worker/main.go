package main

import (
	"context"
	"errors"
	"os"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/backend"
	"bilancio/internal/cli"
	"bilancio/internal/export"
	"bilancio/internal/log"
	"bilancio/internal/ports"
	"bilancio/internal/report"
	gsheet "bilancio/internal/sheets/google"
	"bilancio/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), log.ComponentWorker)
	logger.Info("Starting report-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the report worker")
		os.Exit(1)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	store, err := backend.NewFactory(logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	opts := []worker.Option{
		worker.WithEvents(amqpClient, cfg.AMQPEventsRoutingKey),
		worker.WithTimeout(cfg.WorkerMessageTimeout),
	}
	if exporter := newExporter(cfg.GoogleSpreadsheetID, cfg.GoogleReportSheetPrefix, cfg.ExportDir, logger); exporter != nil {
		opts = append(opts, worker.WithExporter(exporter))
	}

	gen := report.NewGenerator(store.Sources, store.Store, logger)
	w := worker.NewReportWorker(gen, logger, opts...)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	if err := amqpClient.ConsumeReportRequests(ctx, w.HandleReportRequest); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Report worker stopped")
}

// newExporter prefers Google Sheets, then a local directory. It returns nil
// when neither is configured.
func newExporter(spreadsheetID, sheetPrefix, dir string, logger *log.Logger) ports.ReportExporter {
	if spreadsheetID != "" {
		client, err := gsheet.New(context.Background(), spreadsheetID, sheetPrefix, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		logger.Info("Exporting reports to Google Sheets", "spreadsheet_id", spreadsheetID)
		return client
	}
	if dir != "" {
		exporter, err := export.NewDirExporter(dir)
		if err != nil {
			logger.Error("Failed to initialize export directory", "error", err, "dir", dir)
			os.Exit(1)
		}
		logger.Info("Exporting reports to directory", "dir", dir)
		return exporter
	}
	logger.Info("Report export disabled - no GOOGLE_SPREADSHEET_ID or EXPORT_DIR provided")
	return nil
}
