package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"homebudget/internal/amqp"
	"homebudget/internal/auth"
	"homebudget/internal/cli"
	"homebudget/internal/files"
	apphttp "homebudget/internal/http"
	"homebudget/internal/services"
)

func main() {
	logger := cli.SetupLogger()
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	uploads, err := files.NewStore(cfg.UploadDir)
	if err != nil {
		logger.Error("Failed to initialize upload store", "error", err, "dir", cfg.UploadDir)
		os.Exit(1)
	}

	// AMQP is optional; without a URL close-out events simply are not
	// published.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Error("Failed to connect to AMQP broker", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("AMQP event publishing enabled", "exchange", cfg.AMQPExchange)
	}

	closeout := services.NewCloseOutService(repo, publisher)
	reports := services.NewReportService(repo)
	tokens := auth.NewTokenService(cfg.SessionSecret, cfg.SessionTTL)

	srv := apphttp.NewServer(":"+cfg.Port, repo, closeout, reports, tokens, uploads)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting homebudget server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped gracefully")
}
