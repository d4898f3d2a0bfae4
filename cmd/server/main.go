package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/skundu/blood-market/internal/config"
	"github.com/skundu/blood-market/internal/identity"
	"github.com/skundu/blood-market/internal/inventory"
	"github.com/skundu/blood-market/internal/messaging"
	"github.com/skundu/blood-market/internal/orders"
	"github.com/skundu/blood-market/internal/postgres"
	"github.com/skundu/blood-market/internal/redisx"
	"github.com/skundu/blood-market/internal/reports"
	"github.com/skundu/blood-market/internal/telemetry"

	"github.com/skundu/blood-market/internal/domain"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg := config.Load()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

	db, err := postgres.Connect(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	rdb := redisx.New(cfg.RedisAddr)
	defer func() { _ = rdb.Close() }()
	if err := redisx.Ping(ctx, rdb); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	identityRepo := identity.NewRepository(db)
	if cfg.AdminPassword != "" {
		hash, err := identity.HashPassword(cfg.AdminPassword)
		if err != nil {
			logger.Error("failed to hash admin password", "error", err)
			os.Exit(1)
		}
		if err := identityRepo.EnsureAdmin(ctx, cfg.AdminEmail, hash); err != nil {
			logger.Error("failed to seed admin account", "error", err)
			os.Exit(1)
		}
	}

	sessions := identity.NewSessionStore(rdb, cfg.SessionTTL)
	identityService := identity.NewService(identityRepo, sessions)
	identityHandler := identity.NewHandler(identityService, logger)
	auth := identity.NewAuth(sessions, logger)

	var placedProducer, cancelledProducer *messaging.Producer
	if len(cfg.KafkaBrokers) > 0 {
		placedProducer = messaging.NewProducer(cfg.KafkaBrokers, messaging.TopicOrderPlaced)
		defer func() { _ = placedProducer.Close() }()
		cancelledProducer = messaging.NewProducer(cfg.KafkaBrokers, messaging.TopicOrderCancelled)
		defer func() { _ = cancelledProducer.Close() }()
	}

	inventoryHandler := inventory.NewHandler(inventory.NewRepository(db), logger)

	ordersHandler, err := orders.NewHandler(orders.NewRepository(db), orders.SimulatedGateway{},
		placedProducer, cancelledProducer, logger)
	if err != nil {
		logger.Error("failed to create orders handler", "error", err)
		os.Exit(1)
	}

	reportsHandler := reports.NewHandler(reports.NewRepository(db), rdb,
		cfg.ReportCacheTTL, cfg.LowStockThreshold, logger)

	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, telemetry.WithHTTPRoute(h))
	}

	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	handle("POST /auth/signup", identityHandler.HandleSignup)
	handle("POST /auth/login", identityHandler.HandleLogin)
	handle("POST /auth/logout", identityHandler.HandleLogout)

	handle("GET /blood-types", inventoryHandler.HandleBloodTypes)

	// customer portal
	handle("GET /market/batches", auth.Require(domain.RoleCustomer, inventoryHandler.HandleBrowse))
	handle("POST /orders", auth.Require(domain.RoleCustomer, ordersHandler.HandlePlace))
	handle("GET /orders", auth.Require(domain.RoleCustomer, ordersHandler.HandleListCustomerOrders))
	handle("GET /orders/{id}", auth.Require(domain.RoleCustomer, ordersHandler.HandleGet))
	handle("POST /orders/{id}/pay", auth.Require(domain.RoleCustomer, ordersHandler.HandleCompletePayment))
	handle("POST /ratings", auth.Require(domain.RoleCustomer, reportsHandler.HandleSubmitRating))

	// retailer dashboard
	handle("GET /retailer/inventory", auth.Require(domain.RoleRetailer, inventoryHandler.HandleListInventory))
	handle("POST /retailer/inventory", auth.Require(domain.RoleRetailer, inventoryHandler.HandleAddBatch))
	handle("GET /retailer/donations", auth.Require(domain.RoleRetailer, inventoryHandler.HandleListDonations))
	handle("POST /retailer/donations", auth.Require(domain.RoleRetailer, inventoryHandler.HandleRecordDonation))
	handle("GET /retailer/orders", auth.Require(domain.RoleRetailer, ordersHandler.HandleListRetailerOrders))
	handle("PATCH /retailer/orders/{id}/status", auth.Require(domain.RoleRetailer, ordersHandler.HandleUpdateStatus))

	// reports, scoped to the caller; admins see the whole platform
	handle("GET /reports/sales", auth.Require(domain.RoleRetailer, reportsHandler.HandleSales))
	handle("GET /reports/low-stock", auth.Require(domain.RoleRetailer, reportsHandler.HandleLowStock))
	handle("GET /reports/ratings", auth.Require(domain.RoleRetailer, reportsHandler.HandleRatings))
	handle("GET /reports/sales-by-blood-type", auth.Require(domain.RoleRetailer, reportsHandler.HandleSalesByBloodType))
	handle("GET /reports/top-donors", auth.Require(domain.RoleRetailer, reportsHandler.HandleTopDonors))
	handle("GET /reports/retailer-performance", auth.Require(domain.RoleAdmin, reportsHandler.HandleRetailerPerformance))

	server := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: otelhttp.NewHandler(mux, cfg.ServiceName,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
