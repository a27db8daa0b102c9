package kafka

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogdom "github.com/distriar/catalog-sync/internal/catalog/domain"
	"github.com/distriar/catalog-sync/pkg/idempotency"
)

type recordingApplier struct {
	mu      sync.Mutex
	live    []bool
	pushes  []string
	promos  int
	product catalogdom.Product
}

func (a *recordingApplier) ApplyProductPush(action string, p catalogdom.Product) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pushes = append(a.pushes, action)
	a.product = p
}

func (a *recordingApplier) ApplyPromotionsUpdate(promos []catalogdom.Promotion) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.promos++
}

func (a *recordingApplier) SetPushLive(live bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.live = append(a.live, live)
}

func (a *recordingApplier) liveCalls() []bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]bool(nil), a.live...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRunUnreachableBrokerNeverReportsLive(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	applier := &recordingApplier{}
	c := NewConsumer(testLogger(), []string{"127.0.0.1:1"}, "catalog.products", "test-group",
		catalogdom.ImageResolver{}, applier, idempotency.NewStore(nil, "test", time.Minute))

	require.NoError(t, c.Run(ctx))

	assert.NotContains(t, applier.liveCalls(), true,
		"liveness must wait for a confirmed fetch; pausing the snapshot poll with no broker loses updates")
}

func TestDispatchProductActions(t *testing.T) {
	applier := &recordingApplier{}
	c := &Consumer{log: testLogger(), applier: applier}

	c.dispatch([]byte(`{"action":"created","product":{"id":1,"name":"Yerba","price":100}}`))
	c.dispatch([]byte(`{"action":"updated","product":{"id":1,"name":"Yerba","price":120}}`))
	c.dispatch([]byte(`{"action":"deleted","product":{"id":1}}`))

	assert.Equal(t, []string{"created", "updated", "deleted"}, applier.pushes)
	assert.Equal(t, int64(1), applier.product.ID)
}

func TestDispatchPromotionsUpdate(t *testing.T) {
	applier := &recordingApplier{}
	c := &Consumer{log: testLogger(), applier: applier}

	c.dispatch([]byte(`{"action":"promotions-updated","promos":[{"id":1,"name":"Combo"}]}`))

	assert.Equal(t, 1, applier.promos)
}

func TestDispatchIgnoresMalformedPayloads(t *testing.T) {
	applier := &recordingApplier{}
	c := &Consumer{log: testLogger(), applier: applier}

	c.dispatch([]byte(`{not json`))
	c.dispatch([]byte(`{"action":"created"}`)) // missing product
	c.dispatch([]byte(`{"action":"restocked","product":{"id":1}}`))

	assert.Empty(t, applier.pushes)
	assert.Zero(t, applier.promos)
}

func TestBackoffCapsAtThirtySeconds(t *testing.T) {
	for attempt := 0; attempt < 64; attempt++ {
		d := backoff(attempt)
		assert.LessOrEqual(t, d, 30*time.Second, "attempt %d", attempt)
		assert.Positive(t, d)
	}
}
