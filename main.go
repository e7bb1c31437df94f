package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthonycursewl/wheek-fulfillment/internal/application/fulfillment"
	"github.com/anthonycursewl/wheek-fulfillment/internal/application/shipping"
	"github.com/anthonycursewl/wheek-fulfillment/internal/config"
	"github.com/anthonycursewl/wheek-fulfillment/internal/domain/event"
	domainOrder "github.com/anthonycursewl/wheek-fulfillment/internal/domain/order"
	domainShipment "github.com/anthonycursewl/wheek-fulfillment/internal/domain/shipment"
	domainStock "github.com/anthonycursewl/wheek-fulfillment/internal/domain/stock"
	"github.com/anthonycursewl/wheek-fulfillment/internal/infrastructure/bus"
	"github.com/anthonycursewl/wheek-fulfillment/internal/infrastructure/httptransport"
	"github.com/anthonycursewl/wheek-fulfillment/internal/infrastructure/id"
	"github.com/anthonycursewl/wheek-fulfillment/internal/infrastructure/memory"
	mysqlstore "github.com/anthonycursewl/wheek-fulfillment/internal/infrastructure/mysql"
	redisstore "github.com/anthonycursewl/wheek-fulfillment/internal/infrastructure/redis"
	"github.com/anthonycursewl/wheek-fulfillment/internal/infrastructure/wompi"
	"github.com/anthonycursewl/wheek-fulfillment/internal/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	baseLogger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpDurations := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	fulfillmentRuns := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_runs_total",
			Help: "Total number of fulfillment saga runs by outcome.",
		},
		[]string{"outcome"},
	)
	stepDurations := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fulfillment_step_duration_seconds",
			Help:    "Duration of each saga step in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)
	prometheus.MustRegister(httpRequests, httpDurations, fulfillmentRuns, stepDurations)

	var (
		stockRepo    domainStock.Repository
		orderRepo    domainOrder.Repository
		shipmentRepo domainShipment.Repository
		txm          fulfillment.TxManager
	)
	switch cfg.Store {
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			baseLogger.Fatal("mysql_open_failed", zap.Error(err))
		}
		defer db.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := db.PingContext(pingCtx); err != nil {
			cancel()
			baseLogger.Fatal("mysql_ping_failed", zap.Error(err))
		}
		cancel()
		stockRepo = mysqlstore.NewStockRepository(db)
		orderRepo = mysqlstore.NewOrderRepository(db)
		shipmentRepo = mysqlstore.NewShipmentRepository(db)
		txm = mysqlstore.NewTxManager(db)
	default:
		memStock := memory.NewStockRepository()
		seedDemoItems(memStock, baseLogger)
		stockRepo = memStock
		orderRepo = memory.NewOrderRepository()
		shipmentRepo = memory.NewShipmentRepository()
		txm = memory.NewTxManager()
	}

	idGenerator := id.NewUUIDGenerator()
	gateway := wompi.NewClient(wompi.Config{
		BaseURL:         cfg.Payment.BaseURL,
		PublicKey:       cfg.Payment.PublicKey,
		PrivateKey:      cfg.Payment.PrivateKey,
		IntegritySecret: cfg.Payment.IntegritySecret,
		PollInterval:    cfg.Payment.PollInterval,
		PollMaxAttempts: cfg.Payment.PollMaxAttempts,
	}, nil)

	shippingService := shipping.NewService(orderRepo, shipmentRepo, idGenerator)

	eventBus := bus.New(baseLogger)
	eventBus.Start(context.Background())
	defer eventBus.Stop(context.Background())
	subscribeOutcomeLogging(eventBus, baseLogger)

	opts := []fulfillment.Option{
		fulfillment.WithPublisher(eventBus),
		fulfillment.WithTracer(otel.Tracer("fulfillment")),
		fulfillment.WithMetrics(&fulfillment.Metrics{
			Runs:         fulfillmentRuns,
			StepDuration: stepDurations,
		}),
	}
	if cfg.RedisAddr != "" {
		idem := redisstore.NewIdempotencyStore(cfg.RedisAddr, cfg.ServiceName)
		defer idem.Close()
		opts = append(opts, fulfillment.WithIdempotencyStore(idem))
	}

	fulfillmentService := fulfillment.NewService(
		stockRepo, orderRepo, gateway, shippingService, txm, idGenerator,
		cfg.Payment.Currency, opts...,
	)

	handler := httptransport.NewHandler(fulfillmentService, shippingService, orderRepo)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router(baseLogger, httpRequests, httpDurations))

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("http_server_start",
			zap.String("addr", server.Addr),
			zap.String("store", cfg.Store),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Error("http_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		baseLogger.Info("http_server_stopped")
	}
}

// seedDemoItems gives the in-memory store something to sell in dev mode.
func seedDemoItems(repo *memory.StockRepository, logger *zap.Logger) {
	demo := []struct {
		id, name string
		price    string
		quantity int
	}{
		{"item-coffee-250g", "Coffee Beans 250g", "35000.00", 50},
		{"item-mug-classic", "Classic Mug", "18500.00", 120},
	}
	for _, d := range demo {
		price, _ := decimal.NewFromString(d.price)
		item, err := domainStock.NewItem(d.id, d.name, price, d.quantity)
		if err != nil {
			logger.Warn("demo_item_skip", zap.String("item_id", d.id), zap.Error(err))
			continue
		}
		repo.Seed(item)
	}
	logger.Info("memory_store_seeded", zap.Int("items", len(demo)))
}

func subscribeOutcomeLogging(b *bus.Bus, logger *zap.Logger) {
	b.Subscribe(domainOrder.OrderApprovedEvent{}.EventName(), func(_ context.Context, e event.Event) error {
		if ev, ok := e.(domainOrder.OrderApprovedEvent); ok {
			logger.Info("order_approved",
				zap.String("order_id", ev.OrderID),
				zap.String("payment_ref", ev.PaymentRef),
			)
		}
		return nil
	})
	b.Subscribe(domainOrder.OrderRejectedEvent{}.EventName(), func(_ context.Context, e event.Event) error {
		if ev, ok := e.(domainOrder.OrderRejectedEvent); ok {
			logger.Warn("order_rejected",
				zap.String("order_id", ev.OrderID),
				zap.String("reason", ev.Reason),
			)
		}
		return nil
	})
	b.Subscribe(domainShipment.ShipmentCreatedEvent{}.EventName(), func(_ context.Context, e event.Event) error {
		if ev, ok := e.(domainShipment.ShipmentCreatedEvent); ok {
			logger.Info("shipment_created",
				zap.String("shipment_id", ev.ShipmentID),
				zap.String("order_id", ev.OrderID),
			)
		}
		return nil
	})
}
