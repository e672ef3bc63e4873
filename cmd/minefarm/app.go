package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ovoronin/minefarm/internal/handlers"
	"github.com/ovoronin/minefarm/internal/logger"
	"github.com/ovoronin/minefarm/internal/repository"
	"github.com/ovoronin/minefarm/internal/repository/postgres"
	"github.com/ovoronin/minefarm/internal/service/auth"
	"github.com/ovoronin/minefarm/internal/service/earnings"
	"github.com/ovoronin/minefarm/internal/service/notify"
	"github.com/ovoronin/minefarm/internal/service/wallet"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger     logger.Logger
	dispatcher *notify.Dispatcher
	engine     *earnings.Engine
	cronSpec   string
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	var log logger.Logger
	switch c.Environment {
	case "dev", "development":
		log = logger.NewLogger(c.LogLevel)
	default:
		log = logger.NewJSONLogger(c.LogLevel)
	}

	minDeposit, minWithdraw, withdrawFee, err := c.ParseLimits()
	if err != nil {
		return nil, fmt.Errorf("error while parsing wallet limits. Err: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := repository.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	storage := postgres.NewStorage(pool)

	authService, err := auth.NewService(auth.Config{SecretKey: c.SecretKey}, storage.User(), storage.Refresh())
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	dispatcher := notify.NewDispatcher(notify.LogSender{Logger: log}, log)

	walletService := wallet.NewService(storage, wallet.Limits{
		MinDeposit:     minDeposit,
		MinWithdraw:    minWithdraw,
		WithdrawFee:    withdrawFee,
		DepositAddress: c.DepositAddress,
	}, dispatcher, log)

	engine := earnings.NewEngine(storage, log, earnings.WithWorkers(c.EarningsWorkers))

	mux := handlers.NewRouter(
		authService,
		walletService,
		walletService,
		walletService,
		engine,
		log,
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		logger:     log,
		dispatcher: dispatcher,
		engine:     engine,
		cronSpec:   c.EarningsCron,
	}, nil
}

// Run starts the http server, the notification dispatcher and the earnings
// schedule, and closes everything gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	dispatcherStopped := s.dispatcher.Run(srvCtx)

	crontab := cron.New()
	_, err := crontab.AddFunc(s.cronSpec, func() {
		result, err := s.engine.Run(srvCtx, time.Now())
		if err != nil {
			s.logger.Error("Daily earnings run failed", "error", err)
			return
		}
		s.logger.Info("Daily earnings run finished",
			"processed", result.Processed,
			"totalReward", result.TotalReward.String(),
		)
	})
	if err != nil {
		return fmt.Errorf("invalid earnings schedule %q. Err: %w", s.cronSpec, err)
	}
	crontab.Start()

	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "addr", s.ListenAddr)
	err = httpServer.ListenAndServe()
	srvCtxCancel()

	<-crontab.Stop().Done()
	<-dispatcherStopped
	<-idleConnsClosed

	return err
}
