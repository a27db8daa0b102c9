// Package pricing computes per-line and promotion-group totals. It is pure:
// no I/O, no catalog access, callers pass resolved unit prices.
package pricing

import "math"

type PromoType string

const (
	Percent   PromoType = "percent"
	TwoForOne PromoType = "2x1"
)

// Promo describes the discount attached to a line. Value is the percent
// rate and is ignored for 2x1.
type Promo struct {
	Type  PromoType
	Value float64
}

// PercentTotal applies a flat percent discount. A zero or negative rate
// yields the undiscounted total; rates above 100 are passed through (the
// computed total is still floored at zero).
func PercentTotal(unit float64, qty int, value float64) float64 {
	if value < 0 {
		value = 0
	}
	return clamp(unit * float64(qty) * (1 - value/100))
}

// TwoForOneTotal charges ceil(qty/2) units: every second unit is free.
func TwoForOneTotal(unit float64, qty int) float64 {
	charge := math.Ceil(float64(qty) / 2)
	return clamp(unit * charge)
}

// SimpleTotal prices a single-product line under an optional promotion.
func SimpleTotal(unit float64, qty int, promo *Promo) float64 {
	switch {
	case promo == nil:
		return clamp(unit * float64(qty))
	case promo.Type == Percent:
		return PercentTotal(unit, qty, promo.Value)
	case promo.Type == TwoForOne:
		return TwoForOneTotal(unit, qty)
	default:
		return clamp(unit * float64(qty))
	}
}

// GroupTotal prices a promotion-group line spanning several products at a
// shared group quantity. Percent applies to the summed member prices; 2x1
// applies per product independently, each chargeable quantity derived from
// the group quantity.
func GroupTotal(unitPrices []float64, qty int, promo *Promo) float64 {
	if promo != nil && promo.Type == TwoForOne {
		var total float64
		for _, unit := range unitPrices {
			total += TwoForOneTotal(unit, qty)
		}
		return clamp(total)
	}
	var sum float64
	for _, unit := range unitPrices {
		sum += unit
	}
	if promo != nil && promo.Type == Percent {
		return PercentTotal(sum, qty, promo.Value)
	}
	return clamp(sum * float64(qty))
}

// GroupOriginal is the pre-discount group price, kept computable for
// was/now display.
func GroupOriginal(unitPrices []float64, qty int) float64 {
	var sum float64
	for _, unit := range unitPrices {
		sum += unit
	}
	return clamp(sum * float64(qty))
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
