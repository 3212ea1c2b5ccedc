// Package main is the entry point for the Magasin API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"magasin/internal/core/numerator"
	"magasin/internal/core/tx"
	"magasin/internal/domain/audit"
	"magasin/internal/domain/auth"
	"magasin/internal/domain/directory"
	"magasin/internal/domain/invoice"
	"magasin/internal/domain/notification"
	"magasin/internal/domain/purchasing/order"
	"magasin/internal/domain/purchasing/request"
	"magasin/internal/domain/registers/stock"
	"magasin/internal/infrastructure/config"
	"magasin/internal/infrastructure/email"
	v1 "magasin/internal/infrastructure/http/v1"
	"magasin/internal/infrastructure/http/v1/handlers"
	pgnumerator "magasin/internal/infrastructure/numerator"
	"magasin/internal/infrastructure/storage/memory"
	"magasin/internal/infrastructure/storage/postgres"
	"magasin/internal/infrastructure/storage/postgres/directory_repo"
	"magasin/internal/infrastructure/storage/postgres/invoice_repo"
	"magasin/internal/infrastructure/storage/postgres/purchasing_repo"
	"magasin/internal/infrastructure/storage/postgres/register_repo"
	"magasin/pkg/logger"
	"magasin/pkg/metrics"
)

// backend is the set of repositories behind the services.
type backend struct {
	db       handlers.Pinger
	txm      tx.Manager
	dir      directory.Reader
	requests request.Repository
	orders   order.Repository
	stock    stock.Repository
	invoices invoice.Repository
	audit    audit.Recorder
	numbers  numerator.Generator
	close    func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	log.Infow("starting magasin server", "env", cfg.App.Env, "storage", cfg.Storage.Driver)

	be, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer be.close()

	biz, err := metrics.NewGlobal()
	if err != nil {
		log.Fatalw("failed to create metrics", "error", err)
	}

	notifier := notification.NewNotifier(email.NewFromConfig(email.Config{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
	}), cfg.Notification.Timeout, biz)

	stockService := stock.NewService(be.stock, be.txm, be.dir, biz)
	routerCfg := v1.RouterConfig{
		Logger:   log,
		DB:       be.db,
		Requests: request.NewService(be.requests, be.txm, be.dir, be.audit),
		Orders: order.NewService(order.Deps{
			Orders:   be.orders,
			Requests: be.requests,
			TxM:      be.txm,
			Dir:      be.dir,
			Stock:    stockService,
			Numbers:  be.numbers,
			Mailer:   notifier,
			Audit:    be.audit,
			Metrics:  biz,
		}),
		Stock:    stockService,
		Invoices: invoice.NewService(be.invoices, be.orders, be.txm, be.dir, be.numbers, be.audit, biz),
	}
	if cfg.JWT.Secret != "" {
		jwtCfg := auth.DefaultJWTConfig(cfg.JWT.Secret)
		jwtCfg.Issuer = cfg.JWT.Issuer
		routerCfg.JWTValidator = auth.NewJWTService(jwtCfg)
		routerCfg.RequireAuth = cfg.JWT.Required
	}

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      v1.NewRouter(routerCfg),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Infow("server starting", "port", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	// Let in-flight supplier emails finish before the process exits.
	notifier.Wait()
	log.Info("server stopped")
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	if cfg.Storage.Driver == config.DriverMemory {
		mem := memory.New()
		if cfg.Storage.SeedDemo {
			demo := memory.SeedDemo(ctx, mem)
			logger.Info(ctx, "demo data loaded",
				"store_id", demo.Store.ID,
				"supplier_id", demo.Supplier.ID,
				"responsible_id", demo.Responsible,
			)
		}
		return &backend{
			db:       mem,
			txm:      mem.TxManager(),
			dir:      mem.Directory(),
			requests: mem.Requests(),
			orders:   mem.Orders(),
			stock:    mem.Stock(),
			invoices: mem.Invoices(),
			audit:    mem.Audit(),
			numbers:  mem.Numbers(),
			close:    func() {},
		}, nil
	}

	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN())
	poolCfg.MaxConns = int32(cfg.Database.MaxConns)
	poolCfg.MinConns = int32(cfg.Database.MinConns)
	poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	pool.LogStats(ctx)

	txm := postgres.NewTxManager(pool)
	recorder, err := postgres.NewAuditRecorder(txm)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &backend{
		db:       txm,
		txm:      txm,
		dir:      directory_repo.NewRepo(txm),
		requests: purchasing_repo.NewRequestRepo(txm),
		orders:   purchasing_repo.NewOrderRepo(txm),
		stock:    register_repo.NewStockRepo(txm),
		invoices: invoice_repo.NewRepo(txm),
		audit:    recorder,
		numbers:  pgnumerator.NewFromTxManager(txm),
		close:    pool.Close,
	}, nil
}
