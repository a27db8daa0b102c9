package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	cartdom "github.com/distriar/catalog-sync/internal/cart/domain"
	catalogdom "github.com/distriar/catalog-sync/internal/catalog/domain"
	"github.com/distriar/catalog-sync/internal/pricing"
)

// Store owns the cart line list. Every mutation persists synchronously and
// recomputes the display aggregates; persistence failures are logged and
// swallowed so the in-memory cart keeps working (storage quota and the
// like must never surface to the shopper).
type Store struct {
	log      *slog.Logger
	repo     Repository
	products ProductResolver

	mu    sync.Mutex
	lines []cartdom.Line
	badge int
	total float64
}

// Summary is the aggregate view the presentation layer renders: the badge
// unit count and the grand total.
type Summary struct {
	UnitCount int     `json:"unitCount"`
	Total     float64 `json:"total"`
}

func NewStore(log *slog.Logger, repo Repository, products ProductResolver) *Store {
	s := &Store{log: log, repo: repo, products: products}
	lines, err := repo.Load(context.Background())
	if err != nil {
		if !errors.Is(err, ErrCartNotFound) {
			log.Warn("cart load failed, starting empty", "err", err)
		}
		lines = nil
	}
	s.lines = lines
	s.recompute()
	return s
}

// AddSimple increments an existing line matching (productID, promo
// fingerprint) or appends a new one.
func (s *Store) AddSimple(ctx context.Context, productID int64, qty int, promo *cartdom.AppliedPromo) {
	if qty < 1 {
		qty = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		l := &s.lines[i]
		if l.Kind == cartdom.KindSimple && l.ProductID == productID && cartdom.SamePromo(l.Promo, promo) {
			l.Quantity += qty
			s.commit(ctx)
			return
		}
	}
	s.lines = append(s.lines, cartdom.NewSimpleLine(productID, qty, promo))
	s.commit(ctx)
}

// AddPromotionGroup increments the existing group line for the promotion
// or appends one, snapshotting the promotion's member products.
func (s *Store) AddPromotionGroup(ctx context.Context, promo catalogdom.Promotion, qty int) {
	if qty < 1 {
		qty = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		l := &s.lines[i]
		if l.Kind == cartdom.KindPromoGroup && l.Promo != nil && l.Promo.ID == promo.ID {
			l.Quantity += qty
			s.commit(ctx)
			return
		}
	}
	s.lines = append(s.lines, cartdom.NewPromoGroupLine(promo, qty))
	s.commit(ctx)
}

// SetQuantity applies a delta to the line at index, clamping the result to
// the quantity floor of 1. Out-of-range indexes are ignored.
func (s *Store) SetQuantity(ctx context.Context, index, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.lines) {
		return
	}
	q := s.lines[index].Quantity + delta
	if q < 1 {
		q = 1
	}
	if q == s.lines[index].Quantity {
		return
	}
	s.lines[index].Quantity = q
	s.commit(ctx)
}

// SetExpanded toggles the display flag on a promotion-group line.
func (s *Store) SetExpanded(ctx context.Context, index int, expanded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.lines) || s.lines[index].Kind != cartdom.KindPromoGroup {
		return
	}
	s.lines[index].Expanded = expanded
	s.commit(ctx)
}

func (s *Store) Remove(ctx context.Context, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.lines) {
		return
	}
	s.lines = append(s.lines[:index], s.lines[index+1:]...)
	s.commit(ctx)
}

func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	s.commit(ctx)
}

func (s *Store) Lines() []cartdom.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]cartdom.Line(nil), s.lines...)
}

// TotalUnitCount is the badge count: simple lines count their quantity,
// group lines count quantity times member products.
func (s *Store) TotalUnitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recompute()
	return s.badge
}

// GrandTotal sums engine output across lines. Lines whose products can no
// longer be resolved are silently excluded: catalog data may lag cart data.
func (s *Store) GrandTotal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recompute()
	return s.total
}

// Summary recomputes before returning: catalog data may have changed since
// the last cart mutation.
func (s *Store) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recompute()
	return Summary{UnitCount: s.badge, Total: s.total}
}

// commit persists and recomputes aggregates. Callers hold s.mu.
func (s *Store) commit(ctx context.Context) {
	if err := s.repo.Save(ctx, s.lines); err != nil {
		s.log.Warn("cart persist failed, continuing in memory", "err", err)
	}
	s.recompute()
}

func (s *Store) recompute() {
	badge := 0
	var total float64
	for _, l := range s.lines {
		switch l.Kind {
		case cartdom.KindPromoGroup:
			badge += l.Quantity * len(l.PromoProductIDs)
			prices := s.memberPrices(l.PromoProductIDs)
			if len(prices) == 0 {
				continue
			}
			total += pricing.GroupTotal(prices, l.Quantity, enginePromo(l.Promo))
		default:
			badge += l.Quantity
			p, ok := s.products.FindByID(l.ProductID)
			if !ok {
				continue
			}
			total += pricing.SimpleTotal(p.Price, l.Quantity, enginePromo(l.Promo))
		}
	}
	s.badge = badge
	s.total = total
}

func (s *Store) memberPrices(ids []int64) []float64 {
	prices := make([]float64, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.products.FindByID(id); ok {
			prices = append(prices, p.Price)
		}
	}
	return prices
}

func enginePromo(p *cartdom.AppliedPromo) *pricing.Promo {
	if p == nil {
		return nil
	}
	return &pricing.Promo{Type: pricing.PromoType(p.Type), Value: p.Value}
}
