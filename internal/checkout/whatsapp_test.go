package checkout

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartdom "github.com/distriar/catalog-sync/internal/cart/domain"
	catalogdom "github.com/distriar/catalog-sync/internal/catalog/domain"
)

type mapResolver map[int64]catalogdom.Product

func (m mapResolver) FindByID(id int64) (catalogdom.Product, bool) {
	p, ok := m[id]
	return p, ok
}

func testResolver() mapResolver {
	return mapResolver{
		1: {ID: 1, Name: "Yerba Mate 1kg", Price: 100},
		2: {ID: 2, Name: "Azucar 1kg", Price: 200},
	}
}

// Formatted prices use es-AR conventions, so tests assert structure and
// substrings rather than exact decimal rendering.

func TestMessageGreetingAndFooter(t *testing.T) {
	b := NewBuilder("5491100000000", testResolver())

	msg := b.Message(nil)

	assert.True(t, strings.HasPrefix(msg, "Hola! Me gustaría pedir los siguientes productos:\n"))
	assert.Contains(t, msg, "\nTotal: $ ")
	assert.True(t, strings.HasSuffix(msg, "Gracias!"))
}

func TestMessageSimpleLines(t *testing.T) {
	b := NewBuilder("5491100000000", testResolver())
	lines := []cartdom.Line{
		cartdom.NewSimpleLine(1, 2, nil),
		cartdom.NewSimpleLine(2, 1, &cartdom.AppliedPromo{ID: 7, Type: catalogdom.PromoPercent, Value: 10}),
	}

	msg := b.Message(lines)

	assert.Contains(t, msg, "- Yerba Mate 1kg x2 = $ ")
	assert.Contains(t, msg, "- Azucar 1kg x1 (-10%) = $ ")
}

func TestMessageTwoForOneLabel(t *testing.T) {
	b := NewBuilder("5491100000000", testResolver())
	lines := []cartdom.Line{
		cartdom.NewSimpleLine(1, 3, &cartdom.AppliedPromo{ID: 7, Type: catalogdom.PromoTwoForOne}),
	}

	msg := b.Message(lines)

	assert.Contains(t, msg, "- Yerba Mate 1kg x3 (2x1) = $ ")
}

func TestMessageZeroPercentHasNoLabel(t *testing.T) {
	b := NewBuilder("5491100000000", testResolver())
	lines := []cartdom.Line{
		cartdom.NewSimpleLine(1, 1, &cartdom.AppliedPromo{ID: 7, Type: catalogdom.PromoPercent, Value: 0}),
	}

	msg := b.Message(lines)

	assert.Contains(t, msg, "- Yerba Mate 1kg x1 = $ ")
	assert.NotContains(t, msg, "%")
}

func TestMessagePromoGroupLine(t *testing.T) {
	b := NewBuilder("5491100000000", testResolver())
	promo := catalogdom.Promotion{ID: 9, Name: "Combo Mate", Type: catalogdom.PromoPercent, Value: 20, ProductIDs: []int64{1, 2}}
	lines := []cartdom.Line{cartdom.NewPromoGroupLine(promo, 2)}

	msg := b.Message(lines)

	assert.Contains(t, msg, "- Promoción Combo Mate x2 (-20%) = $ ")
	assert.NotContains(t, msg, "  - ", "collapsed group omits member breakdown")
}

func TestMessageExpandedGroupListsMembersAtFullPrice(t *testing.T) {
	b := NewBuilder("5491100000000", testResolver())
	promo := catalogdom.Promotion{ID: 9, Name: "Combo Mate", Type: catalogdom.PromoPercent, Value: 20, ProductIDs: []int64{1, 2}}
	line := cartdom.NewPromoGroupLine(promo, 2)
	line.Expanded = true

	msg := b.Message([]cartdom.Line{line})

	assert.Contains(t, msg, "  - Yerba Mate 1kg x2 = $ ")
	assert.Contains(t, msg, "  - Azucar 1kg x2 = $ ")
}

func TestMessageSkipsUnresolvableLines(t *testing.T) {
	b := NewBuilder("5491100000000", testResolver())
	lines := []cartdom.Line{
		cartdom.NewSimpleLine(99, 1, nil),
		cartdom.NewSimpleLine(1, 1, nil),
	}

	msg := b.Message(lines)

	require.Contains(t, msg, "Yerba Mate 1kg")
	assert.Equal(t, 1, strings.Count(msg, "\n- "), "only the resolvable line is rendered")
}

func TestMessageGroupWithNoResolvableMembersIsSkipped(t *testing.T) {
	b := NewBuilder("5491100000000", testResolver())
	promo := catalogdom.Promotion{ID: 9, Name: "Ghost", Type: catalogdom.PromoPercent, Value: 20, ProductIDs: []int64{98, 99}}

	msg := b.Message([]cartdom.Line{cartdom.NewPromoGroupLine(promo, 1)})

	assert.NotContains(t, msg, "Ghost")
}

func TestLinkEscapesMessage(t *testing.T) {
	b := NewBuilder("5492616838446", testResolver())
	lines := []cartdom.Line{cartdom.NewSimpleLine(1, 2, nil)}

	link := b.Link(lines)

	require.True(t, strings.HasPrefix(link, "https://wa.me/5492616838446?text="), link)
	assert.NotContains(t, link, " ", "message must be URL-encoded")
	assert.NotContains(t, link, "\n")

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, b.Message(lines), u.Query().Get("text"))
}
