package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/api-sage/core-banking-engine/src/internal/adapter/http/controller"
	"github.com/api-sage/core-banking-engine/src/internal/adapter/http/middleware"
	"github.com/api-sage/core-banking-engine/src/internal/adapter/http/router"
	"github.com/api-sage/core-banking-engine/src/internal/config"
	"github.com/api-sage/core-banking-engine/src/internal/domain"
	"github.com/api-sage/core-banking-engine/src/internal/events"
	"github.com/api-sage/core-banking-engine/src/internal/logger"
	"github.com/api-sage/core-banking-engine/src/internal/observers"
	"github.com/api-sage/core-banking-engine/src/internal/telemetry"
	"github.com/api-sage/core-banking-engine/src/internal/usecase/services"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
)

const serviceName = "core-banking-engine"

func main() {
	if err := run(); err != nil {
		logger.Error("server exited", err, nil)
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error("shutdown telemetry", err, nil)
		}
	}()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	chain, err := domain.NewApprovalChain(domain.ApprovalThresholds{
		AutoApproveMax:     cfg.AutoApproveThreshold,
		EmployeeApproveMax: cfg.EmployeeApproveThreshold,
	})
	if err != nil {
		return fmt.Errorf("build approval chain: %w", err)
	}

	inbox := observers.NewInbox()
	reporting := observers.NewReportingObserver(cfg.ReportLocation())

	bus := events.NewBus()
	defer func() {
		if err := bus.Close(); err != nil {
			logger.Error("close event bus", err, nil)
		}
	}()
	for _, observer := range []events.Observer{
		observers.NewAuditLogObserver(store.audit),
		observers.NewNotificationObserver(inbox, language.English),
		reporting,
	} {
		if err := bus.Register(observer); err != nil {
			return fmt.Errorf("register %s observer: %w", observer.Name(), err)
		}
	}

	locks := services.NewLocks()
	accountService := services.NewAccountService(store.accounts, bus, services.WithSharedLocks(locks))
	approvalService := services.NewApprovalService(store.accounts, store.transactions, chain, bus, services.WithSharedLocks(locks))

	handler := router.New(
		middleware.BearerAuth([]byte(cfg.AuthSigningKey), cfg.AuthIssuer),
		controller.NewAccountController(accountService),
		controller.NewTransactionController(approvalService),
		controller.NewReportController(reporting, store.audit, inbox, cfg.ReportLocation()),
	)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("http server listening", logger.Fields{
			"addr":        cfg.HTTPAddr,
			"environment": cfg.Environment,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("http server shutting down", logger.Fields{"timeout": cfg.ShutdownTimeout.String()})

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	return group.Wait()
}
