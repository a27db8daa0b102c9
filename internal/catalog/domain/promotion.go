package domain

type PromoType string

const (
	PromoPercent   PromoType = "percent"
	PromoTwoForOne PromoType = "2x1"
)

// Promotion is delivered read-only from admin tooling; the catalog never
// mutates one, only replaces the whole collection.
type Promotion struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ProductIDs  []int64   `json:"productIds"`
	Image       string    `json:"image,omitempty"`
	Type        PromoType `json:"type"`
	Value       float64   `json:"value"` // percent rate; ignored for 2x1
}

type PromotionRow struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ProductIDs  []int64  `json:"productIds"`
	Image       string   `json:"image"`
	Type        string   `json:"type"`
	Value       *float64 `json:"value"`
}

func MapPromotion(row PromotionRow, images ImageResolver) Promotion {
	typ := PromoType(row.Type)
	if typ == "" {
		typ = PromoPercent
	}
	var value float64
	if row.Value != nil {
		value = *row.Value
	}
	img := ""
	if row.Image != "" {
		img = images.Resolve(row.Image)
	}
	return Promotion{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		ProductIDs:  row.ProductIDs,
		Image:       img,
		Type:        typ,
		Value:       value,
	}
}

func MapPromotions(rows []PromotionRow, images ImageResolver) []Promotion {
	out := make([]Promotion, 0, len(rows))
	for _, row := range rows {
		out = append(out, MapPromotion(row, images))
	}
	return out
}

// MergePromotions combines a remote collection with the locally mirrored
// admin collection, deduplicating by id with local entries overriding
// remote ones. Remote-only entries keep their relative order, followed by
// local-only entries in their order.
func MergePromotions(remote, local []Promotion) []Promotion {
	override := make(map[int64]Promotion, len(local))
	seen := make(map[int64]bool, len(local))
	for _, p := range local {
		override[p.ID] = p
	}

	merged := make([]Promotion, 0, len(remote)+len(local))
	for _, p := range remote {
		if lp, ok := override[p.ID]; ok {
			merged = append(merged, lp)
		} else {
			merged = append(merged, p)
		}
		seen[p.ID] = true
	}
	for _, p := range local {
		if !seen[p.ID] {
			merged = append(merged, p)
			seen[p.ID] = true
		}
	}
	return merged
}
