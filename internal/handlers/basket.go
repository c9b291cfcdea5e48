package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	domain "github.com/shutterworks/api/internal/domain"
	"github.com/shutterworks/api/internal/platform/httpx"
	"github.com/shutterworks/api/internal/services"
)

const (
	maxBasketBodySize = 16 * 1024

	// basketIDHeader carries the opaque basket identifier between requests.
	basketIDHeader = "X-Basket-ID"
)

// BasketHandlers exposes the basket endpoints keyed by the client-held basket ID.
type BasketHandlers struct {
	carts services.CartService
	newID func() string
}

// NewBasketHandlers constructs handlers backed by the cart service.
func NewBasketHandlers(carts services.CartService) *BasketHandlers {
	return &BasketHandlers{
		carts: carts,
		newID: func() string { return ulid.Make().String() },
	}
}

// Routes wires the basket endpoints onto the provided router.
func (h *BasketHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getBasket)
	r.Post("/items", h.addItem)
	r.Delete("/items/{itemKey}", h.removeItem)
	r.Post("/recalculate", h.recalculate)
}

type addItemRequest struct {
	ProductID     int64             `json:"product_id"`
	Width         float64           `json:"width"`
	Drop          float64           `json:"drop"`
	Unit          string            `json:"unit"`
	Quantity      int               `json:"quantity"`
	ExpectedPrice *float64          `json:"expected_price,omitempty"`
	CustomFields  map[string]string `json:"custom_fields,omitempty"`
	EntryID       string            `json:"entry_id,omitempty"`
}

type addItemResponse struct {
	CartCount int               `json:"cart_count"`
	CartURL   string            `json:"cart_url"`
	CartHash  string            `json:"cart_hash"`
	Fragments map[string]string `json:"fragments"`
	ItemKey   string            `json:"item_key"`
}

type basketItemPayload struct {
	Key          string            `json:"key"`
	ProductID    int64             `json:"product_id"`
	ProductName  string            `json:"product_name"`
	Quantity     int               `json:"quantity"`
	Width        float64           `json:"width"`
	Drop         float64           `json:"drop"`
	Unit         string            `json:"unit"`
	Price        string            `json:"price"`
	RegularPrice string            `json:"regular_price"`
	IsOnSale     bool              `json:"is_on_sale"`
	LineTotal    string            `json:"line_total"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
	AddedAt      string            `json:"added_at"`
}

type basketPayload struct {
	ID              string              `json:"id"`
	Items           []basketItemPayload `json:"items"`
	Subtotal        string              `json:"subtotal"`
	RegularSubtotal string              `json:"regular_subtotal"`
	Savings         string              `json:"savings"`
	ItemCount       int                 `json:"item_count"`
	UpdatedAt       string              `json:"updated_at"`
}

func (h *BasketHandlers) getBasket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		writeBasketError(ctx, w, services.ErrCartUnavailable)
		return
	}

	basketID := strings.TrimSpace(r.Header.Get(basketIDHeader))
	if basketID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "X-Basket-ID header is required", http.StatusBadRequest))
		return
	}

	cart, err := h.carts.GetOrCreateCart(ctx, basketID)
	if err != nil {
		writeBasketError(ctx, w, err)
		return
	}

	w.Header().Set(basketIDHeader, cart.ID)
	writeJSONResponse(w, http.StatusOK, buildBasketPayload(cart))
}

func (h *BasketHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		writeBasketError(ctx, w, services.ErrCartUnavailable)
		return
	}

	basketID := strings.TrimSpace(r.Header.Get(basketIDHeader))
	if basketID == "" {
		basketID = h.newID()
	}

	body, err := readLimitedBody(r, maxBasketBodySize)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
		return
	}

	var req addItemRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is not valid JSON", http.StatusBadRequest))
		return
	}

	unit, _ := domain.ParseMeasurementUnit(req.Unit)
	result, err := h.carts.AddItem(ctx, services.AddItemCommand{
		CartID:        basketID,
		ProductID:     req.ProductID,
		Width:         req.Width,
		Drop:          req.Drop,
		Unit:          unit,
		Quantity:      req.Quantity,
		ExpectedPrice: req.ExpectedPrice,
		CustomFields:  req.CustomFields,
		EntryID:       req.EntryID,
	})
	if err != nil {
		writeBasketError(ctx, w, err)
		return
	}

	w.Header().Set(basketIDHeader, result.Cart.ID)
	writeJSONResponse(w, http.StatusCreated, addItemResponse{
		CartCount: result.CartCount,
		CartURL:   result.CartURL,
		CartHash:  result.CartHash,
		Fragments: result.Fragments,
		ItemKey:   result.ItemKey,
	})
}

func (h *BasketHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		writeBasketError(ctx, w, services.ErrCartUnavailable)
		return
	}

	basketID := strings.TrimSpace(r.Header.Get(basketIDHeader))
	if basketID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "X-Basket-ID header is required", http.StatusBadRequest))
		return
	}

	itemKey := strings.TrimSpace(chi.URLParam(r, "itemKey"))
	if itemKey == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "item key is required", http.StatusBadRequest))
		return
	}

	cart, err := h.carts.RemoveItem(ctx, basketID, itemKey)
	if err != nil {
		writeBasketError(ctx, w, err)
		return
	}

	w.Header().Set(basketIDHeader, cart.ID)
	writeJSONResponse(w, http.StatusOK, buildBasketPayload(cart))
}

func (h *BasketHandlers) recalculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		writeBasketError(ctx, w, services.ErrCartUnavailable)
		return
	}

	basketID := strings.TrimSpace(r.Header.Get(basketIDHeader))
	if basketID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "X-Basket-ID header is required", http.StatusBadRequest))
		return
	}

	cart, err := h.carts.RecalculateTotals(ctx, basketID)
	if err != nil {
		writeBasketError(ctx, w, err)
		return
	}

	w.Header().Set(basketIDHeader, cart.ID)
	writeJSONResponse(w, http.StatusOK, buildBasketPayload(cart))
}

func buildBasketPayload(cart domain.Cart) basketPayload {
	items := make([]basketItemPayload, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, basketItemPayload{
			Key:          item.Key,
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			Quantity:     item.Quantity,
			Width:        item.Width,
			Drop:         item.Drop,
			Unit:         string(item.Unit),
			Price:        formatPrice(item.Quote.Price),
			RegularPrice: formatPrice(item.Quote.RegularPrice),
			IsOnSale:     item.Quote.IsOnSale,
			LineTotal:    formatPrice(item.LineTotal()),
			CustomFields: item.CustomFields,
			AddedAt:      formatTimestamp(item.AddedAt),
		})
	}
	return basketPayload{
		ID:              cart.ID,
		Items:           items,
		Subtotal:        formatPrice(cart.Totals.Subtotal),
		RegularSubtotal: formatPrice(cart.Totals.RegularSubtotal),
		Savings:         formatPrice(cart.Totals.Savings),
		ItemCount:       cart.Totals.ItemCount,
		UpdatedAt:       formatTimestamp(cart.UpdatedAt),
	}
}

func writeBasketError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCartProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product does not exist", http.StatusNotFound))
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_dimensions", "submitted dimensions are invalid", http.StatusBadRequest))
	case errors.Is(err, services.ErrCartNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("basket_not_found", "basket does not exist", http.StatusNotFound))
	case errors.Is(err, services.ErrCartItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("item_not_found", "basket item does not exist", http.StatusNotFound))
	case errors.Is(err, services.ErrCartAddFailed):
		httpx.WriteError(ctx, w, httpx.NewError("add_to_cart_failed", "item could not be added", http.StatusInternalServerError))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_unavailable", "basket backend is unavailable", http.StatusServiceUnavailable))
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
