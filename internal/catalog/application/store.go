package application

import (
	"strings"
	"sync"

	"github.com/distriar/catalog-sync/internal/catalog/domain"
)

// Store owns the reconciled product and promotion collections. All reads
// return copies; writers replace wholesale except for the single-product
// upsert used by push updates.
type Store struct {
	mu         sync.RWMutex
	products   []domain.Product
	promotions []domain.Promotion
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) ReplaceProducts(list []domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = append([]domain.Product(nil), list...)
}

func (s *Store) ReplacePromotions(list []domain.Promotion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promotions = append([]domain.Promotion(nil), list...)
}

// UpsertProduct replaces the product with the same id, or appends it when
// absent. Reports whether the product was already known.
func (s *Store) UpsertProduct(p domain.Product) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == p.ID {
			s.products[i] = p
			return true
		}
	}
	s.products = append(s.products, p)
	return false
}

func (s *Store) RemoveProduct(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == id {
			s.products = append(s.products[:i], s.products[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Store) FindByID(id int64) (domain.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

func (s *Store) FindPromotionByID(id int64) (domain.Promotion, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, pr := range s.promotions {
		if pr.ID == id {
			return pr, true
		}
	}
	return domain.Promotion{}, false
}

func (s *Store) Products() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Product(nil), s.products...)
}

func (s *Store) Promotions() []domain.Promotion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Promotion(nil), s.promotions...)
}

func (s *Store) ProductIDs() map[int64]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make(map[int64]bool, len(s.products))
	for _, p := range s.products {
		ids[p.ID] = true
	}
	return ids
}

// Filter returns products in source order matching the category (the value
// "all" bypasses category matching) and a case-insensitive substring query
// over name and brand.
func (s *Store) Filter(category, query string) []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if category != "all" && p.Category != category {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Brand), q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FilterPromotions matches the query against name and description.
func (s *Store) FilterPromotions(query string) []domain.Promotion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.Promotion, 0, len(s.promotions))
	for _, pr := range s.promotions {
		if q != "" && !strings.Contains(strings.ToLower(pr.Name), q) && !strings.Contains(strings.ToLower(pr.Description), q) {
			continue
		}
		out = append(out, pr)
	}
	return out
}
