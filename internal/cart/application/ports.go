package application

import (
	"context"
	"errors"

	cartdom "github.com/distriar/catalog-sync/internal/cart/domain"
	catalogdom "github.com/distriar/catalog-sync/internal/catalog/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// Repository persists the cart line list to the durable local slot. Load
// must return ErrCartNotFound when the slot is empty or its contents do
// not parse; the store treats both as an empty cart.
type Repository interface {
	Load(ctx context.Context) ([]cartdom.Line, error)
	Save(ctx context.Context, lines []cartdom.Line) error
	Delete(ctx context.Context) error
}

// ProductResolver looks up products for pricing. Catalog data may lag cart
// data, so a miss is expected and the affected line is priced as zero.
type ProductResolver interface {
	FindByID(id int64) (catalogdom.Product, bool)
}
