package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ledgerbot-dev/ledgerbot/internal/config"
	"github.com/ledgerbot-dev/ledgerbot/internal/extract/ollama"
	"github.com/ledgerbot-dev/ledgerbot/internal/metrics"
	"github.com/ledgerbot-dev/ledgerbot/internal/notify"
	"github.com/ledgerbot-dev/ledgerbot/internal/platform/sqlite"
	"github.com/ledgerbot-dev/ledgerbot/internal/queue"
	"github.com/ledgerbot-dev/ledgerbot/internal/repository"
	"github.com/ledgerbot-dev/ledgerbot/internal/session"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the extraction pipeline scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			return runServe(cfgPath)
		},
	}
}

func runServe(cfgPath string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	jobRepo := repository.NewJobRepository(db.DB, logger)
	txRepo := repository.NewTransactionRepository(db.DB, logger)
	receiptRepo := repository.NewReceiptRepository(db.DB, logger)

	extractor := ollama.NewClient(ollama.Config{
		BaseURL:     cfg.Extractor.BaseURL,
		Model:       cfg.Extractor.Model,
		Temperature: cfg.Extractor.Temperature,
		TopP:        cfg.Extractor.TopP,
		Timeout:     cfg.ExtractorTimeout(),
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if models, err := extractor.Health(ctx); err != nil {
		logger.Warn("extraction service unreachable at startup", "error", err)
	} else {
		logger.Info("extraction service healthy", "models", models)
	}

	collector := metrics.NewCollector()
	sessions := session.NewStore()
	notifier := notify.NewLogNotifier(logger)

	sched := queue.NewScheduler(jobRepo, queue.Config{
		PollInterval:  cfg.PollInterval(),
		MaxConcurrent: cfg.Queue.MaxConcurrent,
		MaxAttempts:   cfg.Queue.MaxAttempts,
		Retention:     cfg.Retention(),
	}, collector, logger)
	sched.Register(queue.NewReceiptHandler(receiptRepo, txRepo, extractor, notifier, sessions, cfg.DefaultCurrency, logger))
	sched.Register(queue.NewEmailHandler(logger))

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}
	go func() {
		logger.Info("metrics listening", "addr", cfg.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	sched.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	return nil
}
