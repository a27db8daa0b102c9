package redismirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	catalogdom "github.com/distriar/catalog-sync/internal/catalog/domain"
)

const (
	DefaultMirrorKey        = "admin_promotions_v1"
	DefaultBroadcastChannel = "promo_channel"
)

// Applier is the slice of the reconciler the mirror watcher drives.
type Applier interface {
	ApplyPromotionsUpdate(promos []catalogdom.Promotion)
	ApplyMirrorChange(ctx context.Context)
}

// Mirror reads the admin-maintained promotions slot and watches for
// changes two ways: the promo broadcast channel (the admin tool publishes
// promotions-updated there) and keyspace notifications on the mirror key.
// Both are best-effort; the reconciler's raw-snapshot polling covers
// deployments where notifications are unavailable.
type Mirror struct {
	log     *slog.Logger
	rdb     *redis.Client
	key     string
	channel string
	selfID  string
	images  catalogdom.ImageResolver
}

func New(log *slog.Logger, rdb *redis.Client, key, channel, selfID string, images catalogdom.ImageResolver) *Mirror {
	if key == "" {
		key = DefaultMirrorKey
	}
	if channel == "" {
		channel = DefaultBroadcastChannel
	}
	return &Mirror{log: log, rdb: rdb, key: key, channel: channel, selfID: selfID, images: images}
}

// Load reads the mirror slot. Absent and malformed payloads both come back
// as an empty collection: cross-process writes are untrusted input and
// must never crash a read. The raw payload is returned for change polling.
func (m *Mirror) Load(ctx context.Context) ([]catalogdom.Promotion, string, error) {
	raw, err := m.rdb.Get(ctx, m.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("mirror get failed: %w", err)
	}

	var rows []catalogdom.PromotionRow
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		m.log.Warn("mirror payload malformed, treating as empty", "err", err)
		return nil, raw, nil
	}
	return catalogdom.MapPromotions(rows, m.images), raw, nil
}

type broadcast struct {
	Action string                    `json:"action"`
	Promos []catalogdom.PromotionRow `json:"promos"`
	Origin string                    `json:"origin"`
}

// Watch blocks until the context is canceled, feeding broadcast payloads
// and mirror change notifications into the applier.
func (m *Mirror) Watch(ctx context.Context, applier Applier) {
	sub := m.rdb.PSubscribe(ctx, m.channel, "__keyspace@*__:"+m.key)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg.Channel == m.channel {
				m.handleBroadcast(msg.Payload, applier)
			} else {
				m.log.Info("mirror key changed", "key", m.key)
				applier.ApplyMirrorChange(ctx)
			}
		}
	}
}

func (m *Mirror) handleBroadcast(payload string, applier Applier) {
	var b broadcast
	if err := json.Unmarshal([]byte(payload), &b); err != nil {
		m.log.Warn("broadcast payload malformed", "err", err)
		return
	}
	if b.Origin != "" && b.Origin == m.selfID {
		return
	}
	if b.Action != "promotions-updated" {
		return
	}
	m.log.Info("promotions broadcast received", "count", len(b.Promos))
	applier.ApplyPromotionsUpdate(catalogdom.MapPromotions(b.Promos, m.images))
}
