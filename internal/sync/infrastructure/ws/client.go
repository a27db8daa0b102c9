package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/gorilla/websocket"

	catalogdom "github.com/distriar/catalog-sync/internal/catalog/domain"
)

// Applier is the slice of the reconciler the push channel needs.
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

// Client consumes the product push channel over a WebSocket. Reconnects
// forever with exponential backoff plus jitter, capped at 30s: a
// long-lived agent never abandons the channel. While connected it reports
// liveness so the snapshot poll pauses.
type Client struct {
	log     *slog.Logger
	url     string
	images  catalogdom.ImageResolver
	applier Applier
}

func NewClient(log *slog.Logger, url string, images catalogdom.ImageResolver, applier Applier) *Client {
	return &Client{log: log, url: url, images: images, applier: applier}
}

func (c *Client) Run(ctx context.Context) {
	attempt := 0
	for ctx.Err() == nil {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			delay := backoff(attempt)
			c.log.Warn("push channel dial failed", "url", c.url, "retry_in", delay, "err", err)
			attempt++
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}

		c.log.Info("push channel connected", "url", c.url)
		attempt = 0
		c.applier.SetPushLive(true)
		c.readLoop(ctx, conn)
		c.applier.SetPushLive(false)
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.log.Warn("push channel closed", "err", err)
			}
			return
		}
		c.dispatch(data)
	}
}

func (c *Client) dispatch(data []byte) {
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
