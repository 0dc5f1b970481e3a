package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mlucero/catering-orders/internal/catalog"
	"github.com/mlucero/catering-orders/internal/clients"
	"github.com/mlucero/catering-orders/internal/messaging"
	"github.com/mlucero/catering-orders/internal/orders"
	"github.com/mlucero/catering-orders/internal/telemetry"
)

const (
	serviceName    = "catering-orders"
	serviceVersion = "0.1.0"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", postgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var producer *messaging.Producer
	if kafkaBrokers := os.Getenv("KAFKA_BROKERS"); kafkaBrokers != "" {
		producer = messaging.NewProducer(strings.Split(kafkaBrokers, ","), messaging.OrderEventsTopic)
		defer func() { _ = producer.Close() }()
	}

	catalogHandler := catalog.NewHandler(catalog.NewProductRepository(db), logger)
	clientsHandler := clients.NewHandler(clients.NewClientRepository(db), logger)
	ordersHandler := orders.NewHandler(orders.NewOrderRepository(db), producer, logger)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metricsHandler)

	mux.HandleFunc("GET /api/products", telemetry.WithHTTPRoute(catalogHandler.HandleList))
	mux.HandleFunc("POST /api/products", telemetry.WithHTTPRoute(catalogHandler.HandleCreate))
	mux.HandleFunc("PUT /api/products/{id}", telemetry.WithHTTPRoute(catalogHandler.HandleUpdate))
	mux.HandleFunc("DELETE /api/products/{id}", telemetry.WithHTTPRoute(catalogHandler.HandleDelete))

	mux.HandleFunc("GET /api/clients", telemetry.WithHTTPRoute(clientsHandler.HandleList))
	mux.HandleFunc("POST /api/clients", telemetry.WithHTTPRoute(clientsHandler.HandleCreate))
	mux.HandleFunc("PUT /api/clients/{id}", telemetry.WithHTTPRoute(clientsHandler.HandleUpdate))
	mux.HandleFunc("DELETE /api/clients/{id}", telemetry.WithHTTPRoute(clientsHandler.HandleDelete))

	mux.HandleFunc("GET /api/orders", telemetry.WithHTTPRoute(ordersHandler.HandleList))
	mux.HandleFunc("POST /api/orders", telemetry.WithHTTPRoute(ordersHandler.HandleCreate))
	mux.HandleFunc("GET /api/orders/{id}", telemetry.WithHTTPRoute(ordersHandler.HandleGet))
	mux.HandleFunc("PUT /api/orders/{id}", telemetry.WithHTTPRoute(ordersHandler.HandleUpdate))
	mux.HandleFunc("PUT /api/orders/{id}/payment", telemetry.WithHTTPRoute(ordersHandler.HandleUpdatePayment))
	mux.HandleFunc("DELETE /api/orders/{id}", telemetry.WithHTTPRoute(ordersHandler.HandleDelete))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, serviceName,
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
		logger.Info("starting catering-orders service", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
