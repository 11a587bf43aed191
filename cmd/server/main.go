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

	"github.com/lmittmann/tint"

	"invoicefetch/internal/classifier"
	"invoicefetch/internal/config"
	"invoicefetch/internal/decoder"
	"invoicefetch/internal/delivery"
	"invoicefetch/internal/ledger"
	"invoicefetch/internal/mailbox"
	"invoicefetch/internal/pipeline"
	"invoicefetch/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting invoice fetcher", "mailbox", cfg.IMAPMailbox)

	newSource := func() pipeline.MailSource {
		return mailbox.NewClient(mailbox.ClientConfig{
			Server:      cfg.IMAPServer,
			Username:    cfg.IMAPUsername,
			Password:    cfg.IMAPPassword,
			Mailbox:     cfg.IMAPMailbox,
			DialTimeout: cfg.DialTimeout,
		}, logger)
	}

	forwarder := delivery.NewForwarder(delivery.Config{
		ScriptID:     cfg.AppsScriptID,
		BaseFolderID: cfg.DriveBaseFolderID,
		Timeout:      cfg.HTTPTimeout,
	})

	runner := pipeline.NewRunner(
		newSource,
		decoder.New(logger),
		classifier.New(classifier.NewPDFExtractor()),
		forwarder,
		cfg.FetchBatchSize,
		logger,
	)

	fetchLog := ledger.New(cfg.FetchLogPath)
	server := web.NewServer(runner, fetchLog, config.KeywordFolders(), logger)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Handler(),
	}

	// Graceful shutdown on SIGINT/SIGTERM
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		logger.Info("received shutdown signal", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("failed to shut down cleanly", "error", err)
		}
	}()

	logger.Info("web server listening", "addr", cfg.ListenAddr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("web server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func setupLogger(level, format string) *slog.Logger {
	var handler slog.Handler
	logLevel := parseLevel(level)

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		})
	} else {
		// Pretty colored output for console
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.DateTime,
			NoColor:    false,
		})
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
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
