package domain

import (
	"fmt"

	catalogdom "github.com/distriar/catalog-sync/internal/catalog/domain"
)

type LineKind string

const (
	KindSimple     LineKind = "simple"
	KindPromoGroup LineKind = "promo_group"
)

// AppliedPromo is the promotion descriptor attached to a cart line,
// snapshotted at add time.
type AppliedPromo struct {
	ID    int64                `json:"id"`
	Name  string               `json:"name,omitempty"`
	Type  catalogdom.PromoType `json:"type"`
	Value float64              `json:"value"`
}

// SamePromo is the line fingerprint equality: two nil promos match, nil
// never matches non-nil, otherwise id, type and value must all agree.
func SamePromo(a, b *AppliedPromo) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.ID == b.ID && a.Type == b.Type && a.Value == b.Value
}

// Line is a tagged union with two variants. Simple lines carry ProductID;
// promotion-group lines carry the member product ids snapshotted when the
// group was added (later promotion edits never alter lines already in the
// cart) plus the Expanded display flag, which persists with the cart.
type Line struct {
	Kind            LineKind      `json:"kind"`
	ProductID       int64         `json:"productId,omitempty"`
	Quantity        int           `json:"qty"`
	Promo           *AppliedPromo `json:"promo,omitempty"`
	PromoProductIDs []int64       `json:"promoProductIds,omitempty"`
	Expanded        bool          `json:"expanded,omitempty"`
}

// SyntheticID identifies a line for display purposes.
func (l Line) SyntheticID() string {
	if l.Kind == KindPromoGroup && l.Promo != nil {
		return fmt.Sprintf("promo-%d", l.Promo.ID)
	}
	return fmt.Sprintf("product-%d", l.ProductID)
}

func NewSimpleLine(productID int64, qty int, promo *AppliedPromo) Line {
	if qty < 1 {
		qty = 1
	}
	return Line{Kind: KindSimple, ProductID: productID, Quantity: qty, Promo: promo}
}

func NewPromoGroupLine(promo catalogdom.Promotion, qty int) Line {
	if qty < 1 {
		qty = 1
	}
	name := promo.Name
	if name == "" {
		name = fmt.Sprintf("promo-%d", promo.ID)
	}
	return Line{
		Kind:            KindPromoGroup,
		Quantity:        qty,
		Promo:           &AppliedPromo{ID: promo.ID, Name: name, Type: promo.Type, Value: promo.Value},
		PromoProductIDs: append([]int64(nil), promo.ProductIDs...),
	}
}
