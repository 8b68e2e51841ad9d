package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("ℹ️ Arquivo .env não encontrado, usando variáveis de ambiente")
	}

	// Initialize OpenTelemetry
	tp, err := initTracer()
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	mp, err := initMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down meter: %v", err)
		}
	}()

	// Initialize database
	dbPool, err := initDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbPool.Close()

	// Initialize Redis (carrinhos)
	redisClient, err := initRedis()
	if err != nil {
		log.Fatalf("Failed to initialize redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize Kafka publisher (eventos de pedido)
	var publisher EventPublisher = NoopPublisher{}
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		kafkaPublisher := NewKafkaPublisher(strings.Split(brokers, ","))
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		log.Printf("📨 Kafka publisher habilitado: %s", brokers)
	} else {
		log.Println("ℹ️ KAFKA_BROKERS não definido, eventos de pedido desabilitados")
	}

	// Initialize ops notifier (webhooks de operação)
	var notifier OpsNotifier = NoopNotifier{}
	if webhookURL := getEnv("OPS_WEBHOOK_URL", ""); webhookURL != "" {
		notifier = NewWebhookNotifier(webhookURL)
		log.Printf("🔔 Notificador de operações habilitado: %s", webhookURL)
	}

	orderTTL, err := time.ParseDuration(getEnv("ORDER_TTL", "15m"))
	if err != nil {
		log.Fatalf("ORDER_TTL inválido: %v", err)
	}
	cartTTL, err := time.ParseDuration(getEnv("CART_TTL", "72h"))
	if err != nil {
		log.Fatalf("CART_TTL inválido: %v", err)
	}
	reaperInterval, err := time.ParseDuration(getEnv("REAPER_INTERVAL", "1m"))
	if err != nil {
		log.Fatalf("REAPER_INTERVAL inválido: %v", err)
	}

	// Initialize dependencies
	tracer := tp.Tracer("store-service")

	stockRepository := NewStockRepository(dbPool)
	orderRepository := NewOrderRepository(dbPool)
	catalogRepository := NewCatalogRepository(dbPool)
	cartRepository := NewCartRepository(redisClient, cartTTL)

	ledger := NewStockLedger(stockRepository, tracer)
	orderUseCase := NewOrderUseCase(ledger, orderRepository, publisher, notifier, tracer, orderTTL)
	catalogUseCase := NewCatalogUseCase(catalogRepository)
	cartUseCase := NewCartUseCase(cartRepository)

	handler := NewStoreHandler(ledger, orderUseCase, cartUseCase, catalogUseCase, tracer)

	// Reaper de pedidos vencidos: pedidos PENDING_PAYMENT além do TTL
	// são expirados e suas reservas devolvidas ao estoque
	reaperCtx, stopReaper := context.WithCancel(context.Background())
	defer stopReaper()
	go runExpiryReaper(reaperCtx, orderUseCase, reaperInterval)

	// Setup Gin router
	r := gin.Default()
	r.Use(otelgin.Middleware("store-service"))

	setupRoutes(r, handler)

	port := getEnv("PORT", "8080")
	log.Printf("🚀 Store Service listening on port %s", port)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// runExpiryReaper executa ExpireOverdueOrders a cada intervalo até o
// contexto ser cancelado
func runExpiryReaper(ctx context.Context, orders *OrderUseCase, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := orders.ExpireOverdueOrders(ctx)
			if err != nil {
				log.Printf("⚠️ [REAPER] falha ao expirar pedidos: %v", err)
				continue
			}
			if expired > 0 {
				log.Printf("⏰ [REAPER] %d pedido(s) expirado(s)", expired)
			}
		}
	}
}

func initDB() (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable&pool_max_conns=25&pool_min_conns=5",
		getEnv("DATABASE_USER", "root"),
		getEnv("DATABASE_PASSWORD", "pass"),
		getEnv("DATABASE_HOST", "localhost"),
		getEnv("DATABASE_PORT", "5432"),
		getEnv("DATABASE_NAME", "store_db"),
	)

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Configure connection pool
	config.MaxConns = 30
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Wait for database to be ready
	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			log.Println("✅ Connected to store database with connection pool")
			return pool, nil
		}
		log.Printf("⏳ Waiting for database... (%d/30)", i+1)
		time.Sleep(1 * time.Second)
	}

	pool.Close()
	return nil, fmt.Errorf("failed to connect to database after 30 attempts")
}

func initRedis() (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Println("✅ Connected to Redis")
	return client, nil
}

func initTracer() (*sdktrace.TracerProvider, error) {
	ctx := context.Background()

	otlpEndpoint := getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(otlpEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(getEnv("SERVICE_NAME", "store-service")),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	otel.SetTracerProvider(tp)

	return tp, nil
}

func initMetrics() (*sdkmetric.MeterProvider, error) {
	ctx := context.Background()

	otlpEndpoint := getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")

	exporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(otlpEndpoint),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(getEnv("SERVICE_NAME", "store-service")),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	return mp, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
