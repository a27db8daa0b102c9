package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool       { return &b }
func floatPtr(f float64) *float64 { return &f }

func TestMapProductsDropsInactive(t *testing.T) {
	images := ImageResolver{Base: "http://api.local", Default: "/images/default.png"}
	rows := []ProductRow{
		{ID: 1, Name: "Yerba", Category: "almacen", Price: 100},
		{ID: 2, Name: "Retired", Price: 50, Active: boolPtr(false)},
		{ID: 3, Name: "Azucar", Price: 80, Active: boolPtr(true)},
	}

	got := MapProducts(rows, images)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)
	assert.Equal(t, "general", got[1].Category, "missing category defaults")
}

func TestImageResolver(t *testing.T) {
	r := ImageResolver{Base: "http://api.local/", Default: "/images/default.png"}

	assert.Equal(t, "/images/default.png", r.Resolve(""))
	assert.Equal(t, "https://cdn.example/p.png", r.Resolve("https://cdn.example/p.png"))
	assert.Equal(t, "//cdn.example/p.png", r.Resolve("//cdn.example/p.png"))
	assert.Equal(t, "http://api.local/uploads/p.png", r.Resolve("/uploads/p.png"))
	assert.Equal(t, "http://api.local/uploads/p.png", r.Resolve("uploads/p.png"))
}

func TestMapProductImageKeyFallback(t *testing.T) {
	images := ImageResolver{Base: "http://api.local"}

	withURL := MapProduct(ProductRow{ID: 1, ImageURL: "/a.png", Image: "/b.png"}, images)
	assert.Equal(t, "http://api.local/a.png", withURL.Image, "image_url wins over image")

	withImage := MapProduct(ProductRow{ID: 1, Image: "/b.png"}, images)
	assert.Equal(t, "http://api.local/b.png", withImage.Image)
}

func TestMapPromotionDefaults(t *testing.T) {
	images := ImageResolver{}

	pr := MapPromotion(PromotionRow{ID: 7, Name: "Combo"}, images)
	assert.Equal(t, PromoPercent, pr.Type, "missing type defaults to percent")
	assert.Zero(t, pr.Value)

	pr = MapPromotion(PromotionRow{ID: 8, Type: "2x1", Value: floatPtr(15)}, images)
	assert.Equal(t, PromoTwoForOne, pr.Type)
	assert.Equal(t, 15.0, pr.Value)
}

func TestMergePromotionsLocalWins(t *testing.T) {
	remote := []Promotion{
		{ID: 1, Name: "X"},
		{ID: 2, Name: "remote-only"},
	}
	local := []Promotion{
		{ID: 1, Name: "Y"},
		{ID: 9, Name: "local-only"},
	}

	merged := MergePromotions(remote, local)
	require.Len(t, merged, 3)
	assert.Equal(t, "Y", merged[0].Name, "local entry overrides remote by id")
	assert.Equal(t, "remote-only", merged[1].Name)
	assert.Equal(t, "local-only", merged[2].Name)
}

func TestMergePromotionsEmptySides(t *testing.T) {
	remote := []Promotion{{ID: 1, Name: "X"}}

	assert.Equal(t, remote, MergePromotions(remote, nil))
	assert.Equal(t, remote, MergePromotions(nil, remote))
}
