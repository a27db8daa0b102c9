package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	catalogdom "github.com/distriar/catalog-sync/internal/catalog/domain"
	"github.com/distriar/catalog-sync/pkg/idempotency"
	"github.com/distriar/catalog-sync/pkg/tracing"
)

// Applier mirrors the websocket transport's view of the reconciler.
type Applier interface {
	ApplyProductPush(action string, p catalogdom.Product)
	ApplyPromotionsUpdate(promos []catalogdom.Promotion)
	SetPushLive(live bool)
}

type message struct {
	Action  string                    `json:"action"`
	Product *catalogdom.ProductRow    `json:"product"`
	Promos  []catalogdom.PromotionRow `json:"promos"`
}

// Consumer is the Kafka rendition of the push channel, for deployments
// that publish product change events to a topic instead of running a
// WebSocket endpoint. Each agent instance consumes the full stream under
// its own group id; the idempotency store drops redeliveries so catalog
// events do not fire twice.
type Consumer struct {
	log     *slog.Logger
	reader  *kafka.Reader
	images  catalogdom.ImageResolver
	applier Applier
	idem    *idempotency.Store
	tracer  trace.Tracer
}

func NewConsumer(log *slog.Logger, brokers []string, topic, group string, images catalogdom.ImageResolver, applier Applier, idem *idempotency.Store) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return &Consumer{
		log:     log,
		reader:  r,
		images:  images,
		applier: applier,
		idem:    idem,
		tracer:  otel.Tracer("catalog-push-consumer"),
	}
}

// Run consumes until the context is canceled, retrying fetch failures
// indefinitely with backoff. Liveness is reported only once a fetch has
// actually succeeded and withdrawn while reconnecting, so an unreachable
// broker never pauses the snapshot poll.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	live := false
	defer func() {
		if live {
			c.applier.SetPushLive(false)
		}
	}()

	attempt := 0
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if live {
				live = false
				c.applier.SetPushLive(false)
			}
			delay := backoff(attempt)
			attempt++
			c.log.Warn("push channel fetch failed", "retry_in", delay, "err", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			continue
		}
		if !live {
			live = true
			attempt = 0
			c.applier.SetPushLive(true)
		}

		key := c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
		seen, err := c.idem.Seen(ctx, key)
		if err != nil {
			c.log.Error("idempotency check failed", "err", err)
			continue
		}
		if seen {
			c.log.Info("duplicate push message skipped", "key", key)
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}

		msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
		_, span := c.tracer.Start(msgCtx, "ConsumeCatalogPush")
		c.dispatch(msg.Value)
		span.End()
		_ = c.reader.CommitMessages(ctx, msg)
	}
}

func (c *Consumer) dispatch(data []byte) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.log.Error("invalid push message", "err", err)
		return
	}
	switch msg.Action {
	case "created", "updated", "deleted":
		if msg.Product == nil {
			c.log.Error("push message missing product", "action", msg.Action)
			return
		}
		c.applier.ApplyProductPush(msg.Action, catalogdom.MapProduct(*msg.Product, c.images))
	case "promotions-updated":
		c.applier.ApplyPromotionsUpdate(catalogdom.MapPromotions(msg.Promos, c.images))
	default:
		c.log.Warn("unknown push action", "action", msg.Action)
	}
}

func backoff(attempt int) time.Duration {
	const maxDelay = 30 * time.Second
	base := math.Pow(2, float64(attempt)) * float64(time.Second)
	if base > float64(maxDelay) {
		return maxDelay
	}
	jitter := rand.Float64() * float64(time.Second)
	d := time.Duration(base + jitter)
	if d > maxDelay {
		return maxDelay
	}
	return d
}
