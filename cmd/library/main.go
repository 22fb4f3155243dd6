// Package main запускает HTTP-сервер библиотечного сервиса.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/library-system/internal/config"
	"github.com/mmeshcher/library-system/internal/handler"
	"github.com/mmeshcher/library-system/internal/ledger"
	"github.com/mmeshcher/library-system/internal/repository"
	"github.com/mmeshcher/library-system/internal/service"
)

func main() {
	bootstrap, _ := zap.NewProduction()

	cfg, err := config.Parse()
	if err != nil {
		bootstrap.Sugar().Fatalw("configuration error", "error", err.Error())
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		bootstrap.Sugar().Fatalw("logger initialization error", "error", err.Error())
	}
	defer logger.Sync()

	sugar := logger.Sugar()

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	svc := service.NewService(repo, logger,
		service.WithLoanPeriod(cfg.LoanPeriod),
		service.WithPolicy(ledger.PolicyFromLimit(cfg.CreditLimit)),
	)
	defer svc.Close()

	h := handler.NewHandler(svc, logger, cfg.RateLimitRPS)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting library server",
			"addr", cfg.RunAddress,
			"loan_period", cfg.LoanPeriod.String(),
			"credit_limit", cfg.CreditLimit,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)

	return zcfg.Build()
}
