package domain

import "strings"

type Product struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Brand    string  `json:"brand"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
}

// ProductRow is the wire shape returned by /products and the products
// snapshot file. Image may arrive under either key; Active defaults to true
// when absent.
type ProductRow struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Brand    string  `json:"brand"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"image_url"`
	Image    string  `json:"image"`
	Active   *bool   `json:"active,omitempty"`
}

// ImageResolver turns relative image paths from the backend into URLs the
// presentation layer can load directly.
type ImageResolver struct {
	Base    string // scheme://host of the backend, may be empty
	Default string // placeholder used when a row carries no image
}

func (r ImageResolver) Resolve(raw string) string {
	if raw == "" {
		return r.Default
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") || strings.HasPrefix(raw, "//") {
		return raw
	}
	base := strings.TrimSuffix(r.Base, "/")
	if strings.HasPrefix(raw, "/") {
		return base + raw
	}
	return base + "/" + raw
}

func MapProduct(row ProductRow, images ImageResolver) Product {
	category := row.Category
	if category == "" {
		category = "general"
	}
	img := row.ImageURL
	if img == "" {
		img = row.Image
	}
	return Product{
		ID:       row.ID,
		Name:     row.Name,
		Category: category,
		Brand:    row.Brand,
		Price:    row.Price,
		Image:    images.Resolve(img),
	}
}

// MapProducts drops rows explicitly marked inactive before any other
// processing.
func MapProducts(rows []ProductRow, images ImageResolver) []Product {
	out := make([]Product, 0, len(rows))
	for _, row := range rows {
		if row.Active != nil && !*row.Active {
			continue
		}
		out = append(out, MapProduct(row, images))
	}
	return out
}
