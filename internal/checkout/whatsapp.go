// Package checkout renders the cart into a pre-filled WhatsApp message for
// order placement. Plain string templating over the reconciled data model;
// no pricing logic of its own beyond calling the engine.
package checkout

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	cartapp "github.com/distriar/catalog-sync/internal/cart/application"
	cartdom "github.com/distriar/catalog-sync/internal/cart/domain"
	catalogdom "github.com/distriar/catalog-sync/internal/catalog/domain"
	"github.com/distriar/catalog-sync/internal/pricing"
)

type Builder struct {
	phone    string
	products cartapp.ProductResolver
	printer  *message.Printer
}

func NewBuilder(phone string, products cartapp.ProductResolver) *Builder {
	return &Builder{
		phone:    phone,
		products: products,
		printer:  message.NewPrinter(language.MustParse("es-AR")),
	}
}

// Message renders the order text. Lines whose products cannot be resolved
// are skipped, matching the cart total.
func (b *Builder) Message(lines []cartdom.Line) string {
	var sb strings.Builder
	sb.WriteString("Hola! Me gustaría pedir los siguientes productos:\n")

	var total float64
	for _, l := range lines {
		switch l.Kind {
		case cartdom.KindPromoGroup:
			total += b.writeGroupLine(&sb, l)
		default:
			total += b.writeSimpleLine(&sb, l)
		}
	}

	sb.WriteString(fmt.Sprintf("\nTotal: %s\nGracias!", b.price(total)))
	return sb.String()
}

// Link is the wa.me deep link with the message pre-filled.
func (b *Builder) Link(lines []cartdom.Line) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", b.phone, url.QueryEscape(b.Message(lines)))
}

func (b *Builder) writeGroupLine(sb *strings.Builder, l cartdom.Line) float64 {
	var members []catalogdom.Product
	for _, id := range l.PromoProductIDs {
		if p, ok := b.products.FindByID(id); ok {
			members = append(members, p)
		}
	}
	if len(members) == 0 {
		return 0
	}
	prices := make([]float64, len(members))
	for i, p := range members {
		prices[i] = p.Price
	}

	groupTotal := pricing.GroupTotal(prices, l.Quantity, enginePromo(l.Promo))
	name := ""
	if l.Promo != nil {
		name = l.Promo.Name
	}
	fmt.Fprintf(sb, "- Promoción %s x%d%s = %s\n", name, l.Quantity, promoLabel(l.Promo), b.price(groupTotal))
	if l.Expanded {
		for _, p := range members {
			fmt.Fprintf(sb, "  - %s x%d = %s\n", p.Name, l.Quantity, b.price(p.Price*float64(l.Quantity)))
		}
	}
	return groupTotal
}

func (b *Builder) writeSimpleLine(sb *strings.Builder, l cartdom.Line) float64 {
	p, ok := b.products.FindByID(l.ProductID)
	if !ok {
		return 0
	}
	itemTotal := pricing.SimpleTotal(p.Price, l.Quantity, enginePromo(l.Promo))
	fmt.Fprintf(sb, "- %s x%d%s = %s\n", p.Name, l.Quantity, promoLabel(l.Promo), b.price(itemTotal))
	return itemTotal
}

func (b *Builder) price(v float64) string {
	return b.printer.Sprintf("$ %.2f", v)
}

func promoLabel(p *cartdom.AppliedPromo) string {
	if p == nil {
		return ""
	}
	switch p.Type {
	case catalogdom.PromoTwoForOne:
		return " (2x1)"
	case catalogdom.PromoPercent:
		if p.Value != 0 {
			return fmt.Sprintf(" (-%g%%)", p.Value)
		}
	}
	return ""
}

func enginePromo(p *cartdom.AppliedPromo) *pricing.Promo {
	if p == nil {
		return nil
	}
	return &pricing.Promo{Type: pricing.PromoType(p.Type), Value: p.Value}
}
