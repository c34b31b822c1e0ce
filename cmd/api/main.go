package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/stockflow/stockflow/internal/auth"
	"github.com/stockflow/stockflow/internal/catalog"
	"github.com/stockflow/stockflow/internal/company"
	"github.com/stockflow/stockflow/internal/config"
	"github.com/stockflow/stockflow/internal/messaging"
	"github.com/stockflow/stockflow/internal/notifications"
	"github.com/stockflow/stockflow/internal/orders"
	"github.com/stockflow/stockflow/internal/redisx"
	"github.com/stockflow/stockflow/internal/telemetry"
	"github.com/stockflow/stockflow/internal/workflow"
)

const serviceVersion = "0.1.0"

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg := config.Load()

	if cfg.PostgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.ServiceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.ServiceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	var sink *notifications.KafkaSink
	if len(cfg.KafkaBrokers) > 0 {
		producer := messaging.NewProducer(cfg.KafkaBrokers, notifications.Topic)
		defer func() { _ = producer.Close() }()
		sink = notifications.NewKafkaSink(producer)
	} else {
		logger.Warn("KAFKA_BROKERS not set, notification fan-out disabled")
	}

	rdb := redisx.New(cfg.RedisAddr)
	var idem orders.IdempotencyStore
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		if err := redisx.Ping(ctx, rdb); err != nil {
			logger.Warn("redis unreachable, idempotency fast-path degraded", "error", err)
		}
		idem = redisx.NewIdempotencyStore(rdb)
	}

	productRepo := catalog.NewProductRepository(db)
	companyRepo := company.NewCompanyRepository(db)
	orderRepo := orders.NewOrderRepository(db)
	notificationRepo := notifications.NewNotificationRepository(db)

	var orderSink orders.Sink
	var catalogSink catalog.Sink
	if sink != nil {
		orderSink = sink
		catalogSink = sink
	}

	validator := orders.NewValidator(companyRepo, productRepo)
	orderService := orders.NewService(validator, orderRepo, orderSink, logger)

	orderHandler := orders.NewHandler(orderService, orderRepo, idem, logger)
	catalogHandler := catalog.NewHandler(productRepo, catalogSink, logger)
	companyHandler := company.NewHandler(companyRepo, logger)
	notificationHandler := notifications.NewHandler(notificationRepo, logger)

	var workflowClient *workflow.Client
	if cfg.WorkflowAPIURL != "" {
		workflowClient = workflow.NewClient(
			cfg.WorkflowTokenURL,
			cfg.WorkflowAPIURL,
			cfg.WorkflowClientID,
			cfg.WorkflowClientSecret,
			cfg.WorkflowDefinitionID,
			&http.Client{
				Timeout:   10 * time.Second,
				Transport: otelhttp.NewTransport(http.DefaultTransport),
			},
		)
	}
	workflowHandler := workflow.NewHandler(workflowClient, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /orders", telemetry.WithHTTPRoute(orderHandler.HandlePlace))
	mux.HandleFunc("DELETE /orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleCancel))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(orderHandler.HandleList))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleGet))

	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(catalogHandler.HandleList))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(catalogHandler.HandleGet))
	mux.HandleFunc("POST /products", telemetry.WithHTTPRoute(catalogHandler.HandleCreate))
	mux.HandleFunc("PUT /products/{id}", telemetry.WithHTTPRoute(catalogHandler.HandleUpdate))
	mux.HandleFunc("DELETE /products/{id}", telemetry.WithHTTPRoute(catalogHandler.HandleDelete))

	mux.HandleFunc("GET /companies", telemetry.WithHTTPRoute(companyHandler.HandleList))
	mux.HandleFunc("POST /companies", telemetry.WithHTTPRoute(companyHandler.HandleCreate))
	mux.HandleFunc("PUT /companies/{id}", telemetry.WithHTTPRoute(companyHandler.HandleUpdate))
	mux.HandleFunc("DELETE /companies/{id}", telemetry.WithHTTPRoute(companyHandler.HandleDelete))

	mux.HandleFunc("GET /notifications", telemetry.WithHTTPRoute(notificationHandler.HandleList))
	mux.HandleFunc("POST /notifications/{id}/read", telemetry.WithHTTPRoute(notificationHandler.HandleMarkRead))
	mux.HandleFunc("POST /notifications/read-all", telemetry.WithHTTPRoute(notificationHandler.HandleMarkAllRead))

	mux.HandleFunc("POST /workflows/sales-orders", telemetry.WithHTTPRoute(workflowHandler.HandleCreateSalesOrder))

	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(auth.Middleware(mux), cfg.ServiceName,
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
		logger.Info("starting api service", "port", cfg.Port)
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
