package application

import catalogdom "github.com/distriar/catalog-sync/internal/catalog/domain"

// Push-channel message actions.
const (
	ActionCreated           = "created"
	ActionUpdated           = "updated"
	ActionDeleted           = "deleted"
	ActionPromotionsUpdated = "promotions-updated"
)

type EventType string

const (
	EventProductAdded        EventType = "product-added"
	EventProductUpdated      EventType = "product-updated"
	EventProductRemoved      EventType = "product-removed"
	EventCatalogRefreshed    EventType = "catalog-refreshed"
	EventPromotionsRefreshed EventType = "promotions-refreshed"
)

// Event is what subscribers (the presentation layer) receive after a
// reconciliation pass: the catalog store is already fully updated by the
// time an event is delivered, so renders never observe a partial update.
type Event struct {
	Type    EventType
	Product *catalogdom.Product // set for per-product events
}
