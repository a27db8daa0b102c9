package application

import (
	"context"

	catalogdom "github.com/distriar/catalog-sync/internal/catalog/domain"
)

// ProductSource fetches the product listing. FetchProducts tries snapshots
// then the live endpoint (startup ordering); SnapshotProducts consults
// snapshots only and is what the periodic poll uses. Both return a
// fingerprint of the raw payload for change detection.
type ProductSource interface {
	FetchProducts(ctx context.Context) ([]catalogdom.Product, string, error)
	SnapshotProducts(ctx context.Context) ([]catalogdom.Product, string, error)
}

type PromotionSource interface {
	FetchPromotions(ctx context.Context) ([]catalogdom.Promotion, string, error)
}

// PromotionMirror reads the admin-maintained promotions slot. Cross-tab
// writes are untrusted input: implementations parse defensively and report
// malformed or absent data as an empty collection, never an error the
// reconciler has to handle. The raw payload string is returned for
// change-polling fingerprints.
type PromotionMirror interface {
	Load(ctx context.Context) ([]catalogdom.Promotion, string, error)
}
