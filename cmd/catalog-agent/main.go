package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/distriar/catalog-sync/pkg/idempotency"
	"github.com/distriar/catalog-sync/pkg/logging"
	"github.com/distriar/catalog-sync/pkg/shutdown"
	"github.com/distriar/catalog-sync/pkg/tracing"

	"github.com/distriar/catalog-sync/internal/api"
	cartapp "github.com/distriar/catalog-sync/internal/cart/application"
	cartredis "github.com/distriar/catalog-sync/internal/cart/infrastructure/redis"
	catalogapp "github.com/distriar/catalog-sync/internal/catalog/application"
	catalogdom "github.com/distriar/catalog-sync/internal/catalog/domain"
	"github.com/distriar/catalog-sync/internal/catalog/infrastructure/httpfetch"
	"github.com/distriar/catalog-sync/internal/checkout"
	syncapp "github.com/distriar/catalog-sync/internal/sync/application"
	synckafka "github.com/distriar/catalog-sync/internal/sync/infrastructure/kafka"
	"github.com/distriar/catalog-sync/internal/sync/infrastructure/redismirror"
	syncws "github.com/distriar/catalog-sync/internal/sync/infrastructure/ws"
)

func main() {
	_ = godotenv.Load()
	log := logging.New("catalog-agent")

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	// Configuration
	apiBase := env("API_BASE", "http://localhost:8000")
	productSnapshots := envList("PRODUCT_SNAPSHOTS", "products.json")
	promoSnapshots := envList("PROMO_SNAPSHOTS", "promotions.json")
	redisAddr := env("REDIS_ADDR", "localhost:6379")
	wsURL := env("WS_URL", "")
	kafkaAddr := env("KAFKA_ADDR", "")
	kafkaTopic := env("KAFKA_TOPIC", "catalog.products")
	httpAddr := env("HTTP_ADDR", ":8080")
	otlpURL := env("OTLP_URL", "")
	phone := env("WHATSAPP_PHONE", "5492616838446")
	pollInterval := envSeconds("POLL_INTERVAL_SECONDS", 3)
	mirrorPollInterval := envSeconds("MIRROR_POLL_INTERVAL_SECONDS", 2)

	agentID := uuid.NewString()

	if otlpURL != "" {
		tp, err := tracing.Init(ctx, "catalog-agent", otlpURL, log)
		if err != nil {
			log.Error("otel init failed", "err", err)
			os.Exit(1)
		}
		defer func() { _ = tp.Shutdown(ctx) }()
	}

	// Redis holds the durable cart slot and the admin promotions mirror
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	images := catalogdom.ImageResolver{
		Base:    apiBase,
		Default: env("IMAGE_DEFAULT", "/images/default.png"),
	}
	fetcher := httpfetch.NewClient(log, httpfetch.Config{
		APIBase:          apiBase,
		ProductSnapshots: productSnapshots,
		PromoSnapshots:   promoSnapshots,
		Images:           images,
	})

	catalog := catalogapp.NewStore()
	cartRepo := cartredis.NewRepository(rdb, env("CART_KEY", cartredis.DefaultCartKey))
	cart := cartapp.NewStore(log, cartRepo, catalog)

	mirror := redismirror.New(log, rdb,
		env("PROMO_MIRROR_KEY", redismirror.DefaultMirrorKey),
		env("PROMO_CHANNEL", redismirror.DefaultBroadcastChannel),
		agentID, images)

	recon := syncapp.NewReconciler(log, catalog, fetcher, fetcher, mirror,
		syncapp.WithPollInterval(pollInterval),
		syncapp.WithMirrorPollInterval(mirrorPollInterval),
	)

	recon.Bootstrap(ctx)
	go recon.Run(ctx)
	go mirror.Watch(ctx, recon)

	// Push channel: Kafka when a broker is configured, WebSocket otherwise
	switch {
	case kafkaAddr != "":
		idem := idempotency.NewStore(rdb, agentID, 24*time.Hour)
		consumer := synckafka.NewConsumer(log, []string{kafkaAddr}, kafkaTopic, "catalog-agent-"+agentID, images, recon, idem)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				log.Error("push consumer stopped with error", "err", err)
			}
		}()
	case wsURL != "":
		go syncws.NewClient(log, wsURL, images, recon).Run(ctx)
	default:
		log.Info("no push channel configured, relying on snapshot polling")
	}

	handler := api.NewHandler(log, catalog, cart, recon, checkout.NewBuilder(phone, catalog))

	r := chi.NewRouter()
	r.Mount("/", handler.Routes())
	srv := &http.Server{
		Addr:         httpAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http listening", "addr", httpAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("catalog-agent shutdown complete")
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envList(k, def string) []string {
	raw := env(k, def)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envSeconds(k string, def int) time.Duration {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(def) * time.Second
}
