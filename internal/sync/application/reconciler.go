package application

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	catalogapp "github.com/distriar/catalog-sync/internal/catalog/application"
	catalogdom "github.com/distriar/catalog-sync/internal/catalog/domain"
)

// Reconciler merges product and promotion data arriving from four
// channels (startup fetch, push messages, snapshot polling, admin-mirror
// changes) into the catalog store. Precedence for promotions, highest
// first: push broadcast, mirror change notification, remote fetch merged
// with the mirror (mirror wins by id), mirror fallback when nothing
// remote responds. Applies are serialized through one mutex, and every
// push apply bumps a generation counter so a snapshot poll that raced a
// push discards its stale result.
type Reconciler struct {
	log      *slog.Logger
	catalog  *catalogapp.Store
	products ProductSource
	promos   PromotionSource
	mirror   PromotionMirror

	pollInterval       time.Duration
	mirrorPollInterval time.Duration

	pushLive atomic.Bool

	mu            sync.Mutex
	generation    uint64
	lastProductFP string
	lastPromoFP   string
	lastMirrorRaw string

	subMu sync.Mutex
	subs  []chan Event
}

type Option func(*Reconciler)

func WithPollInterval(d time.Duration) Option {
	return func(r *Reconciler) { r.pollInterval = d }
}

func WithMirrorPollInterval(d time.Duration) Option {
	return func(r *Reconciler) { r.mirrorPollInterval = d }
}

func NewReconciler(log *slog.Logger, catalog *catalogapp.Store, products ProductSource, promos PromotionSource, mirror PromotionMirror, opts ...Option) *Reconciler {
	r := &Reconciler{
		log:                log,
		catalog:            catalog,
		products:           products,
		promos:             promos,
		mirror:             mirror,
		pollInterval:       3 * time.Second,
		mirrorPollInterval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe returns a channel of reconciliation events. Delivery is
// best-effort: a subscriber that stops draining loses events rather than
// blocking reconciliation.
func (r *Reconciler) Subscribe() <-chan Event {
	ch := make(chan Event, 16)
	r.subMu.Lock()
	r.subs = append(r.subs, ch)
	r.subMu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe. Unknown
// channels are ignored.
func (r *Reconciler) Unsubscribe(ch <-chan Event) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for i, c := range r.subs {
		if c == ch {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			close(c)
			return
		}
	}
}

func (r *Reconciler) publish(ev Event) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Bootstrap performs the initial load: products snapshot-first, then the
// promotions pipeline. A total failure leaves the catalog empty but valid;
// a later poll populates it without restart.
func (r *Reconciler) Bootstrap(ctx context.Context) {
	list, fp, err := r.products.FetchProducts(ctx)
	if err != nil {
		r.log.Error("initial product fetch failed, starting empty", "err", err)
	} else {
		r.mu.Lock()
		r.catalog.ReplaceProducts(list)
		r.lastProductFP = fp
		r.mu.Unlock()
		r.log.Info("products loaded", "count", len(list))
	}
	r.RefreshPromotions(ctx)
}

// RefreshPromotions runs the promotions fetch pipeline: remote/snapshot
// fetch merged with the admin mirror (mirror entries override remote by
// id); if nothing remote responds, fall back to the mirror alone when it
// has entries, otherwise retain last-known state. Also the manual
// force-refresh entry point.
func (r *Reconciler) RefreshPromotions(ctx context.Context) {
	remote, fp, err := r.promos.FetchPromotions(ctx)
	if err != nil {
		local, raw, lerr := r.mirror.Load(ctx)
		if lerr != nil {
			r.log.Warn("promotions mirror read failed", "err", lerr)
			return
		}
		if len(local) == 0 {
			// Nothing remote and nothing local: keep whatever we have.
			r.log.Warn("promotions fetch failed, retaining last-known", "err", err)
			return
		}
		r.mu.Lock()
		r.catalog.ReplacePromotions(local)
		r.lastMirrorRaw = raw
		r.mu.Unlock()
		r.publish(Event{Type: EventPromotionsRefreshed})
		r.log.Info("promotions loaded from mirror fallback", "count", len(local))
		return
	}
	r.applyRemotePromotions(ctx, remote, fp)
}

func (r *Reconciler) applyRemotePromotions(ctx context.Context, remote []catalogdom.Promotion, fp string) {
	local, raw, lerr := r.mirror.Load(ctx)
	if lerr != nil {
		r.log.Warn("promotions mirror read failed, merging remote only", "err", lerr)
		local, raw = nil, ""
	}
	merged := catalogdom.MergePromotions(remote, local)

	r.mu.Lock()
	r.catalog.ReplacePromotions(merged)
	r.lastPromoFP = fp
	if raw != "" {
		r.lastMirrorRaw = raw
	}
	r.mu.Unlock()
	r.publish(Event{Type: EventPromotionsRefreshed})
	r.log.Info("promotions reconciled", "remote", len(remote), "local", len(local), "merged", len(merged))
}

// ApplyPromotionsUpdate handles a push-channel promotions-updated payload.
// The payload is authoritative: wholesale replace, nothing preserved.
func (r *Reconciler) ApplyPromotionsUpdate(promos []catalogdom.Promotion) {
	r.mu.Lock()
	r.catalog.ReplacePromotions(promos)
	r.mu.Unlock()
	r.publish(Event{Type: EventPromotionsRefreshed})
	r.log.Info("promotions replaced from push channel", "count", len(promos))
}

// ApplyMirrorChange handles a change notification for the admin mirror
// key. The mirror is authoritative for this event, even when empty.
func (r *Reconciler) ApplyMirrorChange(ctx context.Context) {
	local, raw, err := r.mirror.Load(ctx)
	if err != nil {
		r.log.Warn("mirror change read failed", "err", err)
		return
	}
	r.mu.Lock()
	r.catalog.ReplacePromotions(local)
	r.lastMirrorRaw = raw
	r.mu.Unlock()
	r.publish(Event{Type: EventPromotionsRefreshed})
	r.log.Info("promotions replaced from mirror change", "count", len(local))
}

// ApplyProductPush handles a single push-channel product message. Created
// and updated both upsert, so re-delivery converges; the event emitted
// reflects whether the product was already known, keeping user-facing
// notifications from double-firing.
func (r *Reconciler) ApplyProductPush(action string, p catalogdom.Product) {
	r.mu.Lock()
	r.generation++
	var ev *Event
	switch action {
	case ActionCreated:
		if existed := r.catalog.UpsertProduct(p); existed {
			ev = &Event{Type: EventProductUpdated, Product: &p}
		} else {
			ev = &Event{Type: EventProductAdded, Product: &p}
		}
	case ActionUpdated:
		r.catalog.UpsertProduct(p)
		ev = &Event{Type: EventProductUpdated, Product: &p}
	case ActionDeleted:
		if r.catalog.RemoveProduct(p.ID) {
			ev = &Event{Type: EventProductRemoved, Product: &p}
		}
	default:
		r.log.Warn("unknown push action", "action", action)
	}
	r.mu.Unlock()

	if ev != nil {
		r.publish(*ev)
		r.log.Info("product push applied", "action", action, "id", p.ID)
	}
}

// SetPushLive pauses or resumes the product snapshot poll. Promotions and
// mirror polling continue regardless: they serve the admin-sync path,
// which is independent of push-channel availability.
func (r *Reconciler) SetPushLive(live bool) {
	r.pushLive.Store(live)
	r.log.Info("push channel liveness changed", "live", live)
}

// PollProducts is one snapshot-poll pass: fetch, fingerprint
// short-circuit, id-set diff for the new-product notification, wholesale
// replace. A pass that raced a push apply discards its result instead of
// overwriting newer data.
func (r *Reconciler) PollProducts(ctx context.Context) {
	if r.pushLive.Load() {
		return
	}
	r.mu.Lock()
	startGen := r.generation
	r.mu.Unlock()

	list, fp, err := r.products.SnapshotProducts(ctx)
	if err != nil {
		return // no snapshot available this round
	}

	r.mu.Lock()
	if r.generation != startGen {
		r.mu.Unlock()
		r.log.Debug("snapshot poll superseded by push, discarding")
		return
	}
	if fp == r.lastProductFP {
		r.mu.Unlock()
		return
	}
	prev := r.catalog.ProductIDs()
	r.catalog.ReplaceProducts(list)
	r.lastProductFP = fp
	var added *catalogdom.Product
	for i := range list {
		if !prev[list[i].ID] {
			added = &list[i]
			break
		}
	}
	r.mu.Unlock()

	if added != nil {
		r.publish(Event{Type: EventProductAdded, Product: added})
	} else {
		r.publish(Event{Type: EventCatalogRefreshed})
	}
	r.log.Info("catalog replaced from snapshot poll", "count", len(list))
}

// PollPromotions re-fetches the promotions listing and runs the merge
// pipeline only when the raw payload changed.
func (r *Reconciler) PollPromotions(ctx context.Context) {
	remote, fp, err := r.promos.FetchPromotions(ctx)
	if err != nil {
		return
	}
	r.mu.Lock()
	unchanged := fp == r.lastPromoFP
	r.mu.Unlock()
	if unchanged {
		return
	}
	r.applyRemotePromotions(ctx, remote, fp)
}

// PollMirror re-reads the admin mirror and adopts it when its raw payload
// changed. Covers deployments where change notifications are unavailable.
func (r *Reconciler) PollMirror(ctx context.Context) {
	_, raw, err := r.mirror.Load(ctx)
	if err != nil {
		return
	}
	r.mu.Lock()
	unchanged := raw == r.lastMirrorRaw
	r.mu.Unlock()
	if unchanged {
		return
	}
	r.log.Info("admin mirror change detected by polling")
	r.ApplyMirrorChange(ctx)
}

// Run drives the periodic polls until the context is canceled.
func (r *Reconciler) Run(ctx context.Context) {
	snapshotTick := time.NewTicker(r.pollInterval)
	promoTick := time.NewTicker(r.pollInterval)
	mirrorTick := time.NewTicker(r.mirrorPollInterval)
	defer snapshotTick.Stop()
	defer promoTick.Stop()
	defer mirrorTick.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("reconciler stopping")
			return
		case <-snapshotTick.C:
			r.PollProducts(ctx)
		case <-promoTick.C:
			r.PollPromotions(ctx)
		case <-mirrorTick.C:
			r.PollMirror(ctx)
		}
	}
}
