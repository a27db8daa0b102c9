package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	cartapp "github.com/distriar/catalog-sync/internal/cart/application"
	cartdom "github.com/distriar/catalog-sync/internal/cart/domain"
	catalogapp "github.com/distriar/catalog-sync/internal/catalog/application"
	"github.com/distriar/catalog-sync/internal/checkout"
	syncapp "github.com/distriar/catalog-sync/internal/sync/application"
)

// Handler is the consumption surface for the presentation layer: catalog
// queries, cart mutations, the manual promotions refresh and the checkout
// deep link.
type Handler struct {
	log      *slog.Logger
	catalog  *catalogapp.Store
	cart     *cartapp.Store
	recon    *syncapp.Reconciler
	checkout *checkout.Builder
	tracer   trace.Tracer
}

func NewHandler(log *slog.Logger, catalog *catalogapp.Store, cart *cartapp.Store, recon *syncapp.Reconciler, checkout *checkout.Builder) *Handler {
	return &Handler{
		log:      log,
		catalog:  catalog,
		cart:     cart,
		recon:    recon,
		checkout: checkout,
		tracer:   otel.Tracer("catalog-api"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/catalog/products", h.listProducts)
	r.Get("/catalog/promotions", h.listPromotions)
	r.Post("/promotions/refresh", h.refreshPromotions)
	r.Get("/cart", h.getCart)
	r.Post("/cart/items", h.addItem)
	r.Post("/cart/promotions", h.addPromotion)
	r.Patch("/cart/items/{index}", h.updateItem)
	r.Delete("/cart/items/{index}", h.removeItem)
	r.Delete("/cart", h.clearCart)
	r.Get("/cart/checkout-link", h.checkoutLink)

	return r
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		category = "all"
	}
	writeJSON(w, http.StatusOK, h.catalog.Filter(category, r.URL.Query().Get("q")))
}

func (h *Handler) listPromotions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.FilterPromotions(r.URL.Query().Get("q")))
}

func (h *Handler) refreshPromotions(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RefreshPromotions")
	defer span.End()

	h.recon.RefreshPromotions(ctx)
	writeJSON(w, http.StatusOK, map[string]int{"count": len(h.catalog.Promotions())})
}

type cartView struct {
	Lines   []cartdom.Line  `json:"lines"`
	Summary cartapp.Summary `json:"summary"`
}

func (h *Handler) getCart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, cartView{Lines: h.cart.Lines(), Summary: h.cart.Summary()})
}

type addItemReq struct {
	ProductID int64                 `json:"productId"`
	Quantity  int                   `json:"qty"`
	Promo     *cartdom.AppliedPromo `json:"promo,omitempty"`
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AddCartItem")
	defer span.End()

	var req addItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if _, ok := h.catalog.FindByID(req.ProductID); !ok {
		http.Error(w, "unknown product", http.StatusNotFound)
		return
	}
	h.cart.AddSimple(ctx, req.ProductID, req.Quantity, req.Promo)
	writeJSON(w, http.StatusOK, h.cart.Summary())
}

type addPromotionReq struct {
	PromotionID int64 `json:"promotionId"`
	Quantity    int   `json:"qty"`
}

func (h *Handler) addPromotion(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AddCartPromotion")
	defer span.End()

	var req addPromotionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	promo, ok := h.catalog.FindPromotionByID(req.PromotionID)
	if !ok {
		http.Error(w, "unknown promotion", http.StatusNotFound)
		return
	}
	h.cart.AddPromotionGroup(ctx, promo, req.Quantity)
	writeJSON(w, http.StatusOK, h.cart.Summary())
}

type updateItemReq struct {
	Delta    *int  `json:"delta,omitempty"`
	Expanded *bool `json:"expanded,omitempty"`
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateCartItem")
	defer span.End()

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "invalid index", http.StatusBadRequest)
		return
	}
	var req updateItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Delta != nil {
		h.cart.SetQuantity(ctx, index, *req.Delta)
	}
	if req.Expanded != nil {
		h.cart.SetExpanded(ctx, index, *req.Expanded)
	}
	writeJSON(w, http.StatusOK, h.cart.Summary())
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RemoveCartItem")
	defer span.End()

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "invalid index", http.StatusBadRequest)
		return
	}
	h.cart.Remove(ctx, index)
	writeJSON(w, http.StatusOK, h.cart.Summary())
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ClearCart")
	defer span.End()

	h.cart.Clear(ctx)
	writeJSON(w, http.StatusOK, h.cart.Summary())
}

func (h *Handler) checkoutLink(w http.ResponseWriter, _ *http.Request) {
	lines := h.cart.Lines()
	if len(lines) == 0 {
		http.Error(w, "cart is empty", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"link": h.checkout.Link(lines)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
