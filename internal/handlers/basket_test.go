package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/shutterworks/api/internal/domain"
	"github.com/shutterworks/api/internal/services"
)

func newBasketRouter(carts services.CartService, newID func() string) chi.Router {
	h := NewBasketHandlers(carts)
	if newID != nil {
		h.newID = newID
	}
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func sampleCart() domain.Cart {
	added := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return domain.Cart{
		ID: "basket_1",
		Items: []domain.CartItem{{
			Key:         "item_1",
			ProductID:   101,
			ProductName: "Full Height Shutter",
			Quantity:    2,
			Width:       100,
			Drop:        200,
			Unit:        domain.UnitCentimeters,
			Quote:       saleQuote(),
			AddedAt:     added,
		}},
		Totals: domain.CartTotals{
			Subtotal:        120,
			RegularSubtotal: 200,
			Savings:         80,
			ItemCount:       2,
		},
		UpdatedAt: added,
	}
}

func TestBasketAddItem(t *testing.T) {
	t.Run("commits the item and echoes the basket id", func(t *testing.T) {
		carts := &stubCartService{result: services.AddItemResult{
			Cart:      sampleCart(),
			ItemKey:   "item_1",
			CartCount: 2,
			CartHash:  "deadbeef",
			CartURL:   "https://shop.example.com/basket",
			Fragments: map[string]string{"cart_count": "2"},
		}}
		router := newBasketRouter(carts, nil)

		req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(
			`{"product_id":101,"width":1000,"drop":2000,"unit":"mm","quantity":2,"expected_price":60.00}`))
		req.Header.Set(basketIDHeader, "basket_1")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}
		if rr.Header().Get(basketIDHeader) != "basket_1" {
			t.Fatalf("expected basket id echoed, got %q", rr.Header().Get(basketIDHeader))
		}

		var body map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("expected JSON body: %v", err)
		}
		if body["cart_count"] != float64(2) {
			t.Fatalf("expected cart_count 2, got %v", body["cart_count"])
		}
		if body["cart_hash"] != "deadbeef" {
			t.Fatalf("expected cart_hash deadbeef, got %v", body["cart_hash"])
		}
		if body["item_key"] != "item_1" {
			t.Fatalf("expected item_key item_1, got %v", body["item_key"])
		}

		if carts.lastAdd.CartID != "basket_1" {
			t.Fatalf("expected cart id forwarded, got %q", carts.lastAdd.CartID)
		}
		if carts.lastAdd.Unit != domain.UnitMillimeters {
			t.Fatalf("expected millimetre unit forwarded, got %s", carts.lastAdd.Unit)
		}
		if carts.lastAdd.ExpectedPrice == nil || *carts.lastAdd.ExpectedPrice != 60 {
			t.Fatalf("expected client price forwarded, got %v", carts.lastAdd.ExpectedPrice)
		}
	})

	t.Run("generates a basket id when the header is absent", func(t *testing.T) {
		carts := &stubCartService{result: services.AddItemResult{ItemKey: "item_1"}}
		router := newBasketRouter(carts, func() string { return "basket_generated" })

		req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(
			`{"product_id":101,"width":100,"drop":200,"unit":"cm"}`))
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d", rr.Code)
		}
		if rr.Header().Get(basketIDHeader) != "basket_generated" {
			t.Fatalf("expected generated basket id, got %q", rr.Header().Get(basketIDHeader))
		}
	})

	t.Run("maps service errors to wire codes", func(t *testing.T) {
		cases := []struct {
			name       string
			err        error
			wantStatus int
			wantCode   string
		}{
			{"product missing", services.ErrCartProductNotFound, http.StatusNotFound, "product_not_found"},
			{"invalid dimensions", services.ErrCartInvalidInput, http.StatusBadRequest, "invalid_dimensions"},
			{"commit failed", services.ErrCartAddFailed, http.StatusInternalServerError, "add_to_cart_failed"},
			{"backend down", services.ErrCartUnavailable, http.StatusServiceUnavailable, "cart_unavailable"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				router := newBasketRouter(&stubCartService{err: tc.err}, nil)

				req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(
					`{"product_id":101,"width":100,"drop":200,"unit":"cm"}`))
				req.Header.Set(basketIDHeader, "basket_1")
				rr := httptest.NewRecorder()

				router.ServeHTTP(rr, req)

				if rr.Code != tc.wantStatus {
					t.Fatalf("expected status %d, got %d", tc.wantStatus, rr.Code)
				}
				assertErrorCode(t, rr.Body.Bytes(), tc.wantCode)
			})
		}
	})
}

func TestBasketGet(t *testing.T) {
	t.Run("renders the basket payload", func(t *testing.T) {
		router := newBasketRouter(&stubCartService{cart: sampleCart()}, nil)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(basketIDHeader, "basket_1")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var body map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("expected JSON body: %v", err)
		}
		if body["subtotal"] != "120.00" {
			t.Fatalf("expected subtotal 120.00, got %v", body["subtotal"])
		}
		if body["savings"] != "80.00" {
			t.Fatalf("expected savings 80.00, got %v", body["savings"])
		}
		items, ok := body["items"].([]any)
		if !ok || len(items) != 1 {
			t.Fatalf("expected one item, got %v", body["items"])
		}
		item := items[0].(map[string]any)
		if item["price"] != "60.00" {
			t.Fatalf("expected item price 60.00, got %v", item["price"])
		}
		if item["line_total"] != "120.00" {
			t.Fatalf("expected line_total 120.00, got %v", item["line_total"])
		}
	})

	t.Run("missing header yields 400", func(t *testing.T) {
		router := newBasketRouter(&stubCartService{cart: sampleCart()}, nil)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rr.Code)
		}
		assertErrorCode(t, rr.Body.Bytes(), "invalid_request")
	})
}

func TestBasketRemoveItem(t *testing.T) {
	t.Run("removes the item and renders the remaining basket", func(t *testing.T) {
		carts := &stubCartService{cart: sampleCart()}
		router := newBasketRouter(carts, nil)

		req := httptest.NewRequest(http.MethodDelete, "/items/item_1", nil)
		req.Header.Set(basketIDHeader, "basket_1")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if carts.lastRemovedKey != "item_1" {
			t.Fatalf("expected item key forwarded, got %q", carts.lastRemovedKey)
		}
		if rr.Header().Get(basketIDHeader) != "basket_1" {
			t.Fatalf("expected basket id echoed, got %q", rr.Header().Get(basketIDHeader))
		}

		var body map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("expected JSON body: %v", err)
		}
		if body["subtotal"] != "120.00" {
			t.Fatalf("expected subtotal 120.00, got %v", body["subtotal"])
		}
	})

	t.Run("missing header yields 400", func(t *testing.T) {
		router := newBasketRouter(&stubCartService{cart: sampleCart()}, nil)

		req := httptest.NewRequest(http.MethodDelete, "/items/item_1", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rr.Code)
		}
		assertErrorCode(t, rr.Body.Bytes(), "invalid_request")
	})

	t.Run("unknown item yields 404", func(t *testing.T) {
		router := newBasketRouter(&stubCartService{err: services.ErrCartItemNotFound}, nil)

		req := httptest.NewRequest(http.MethodDelete, "/items/item_99", nil)
		req.Header.Set(basketIDHeader, "basket_1")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rr.Code)
		}
		assertErrorCode(t, rr.Body.Bytes(), "item_not_found")
	})

	t.Run("unknown basket yields 404", func(t *testing.T) {
		router := newBasketRouter(&stubCartService{err: services.ErrCartNotFound}, nil)

		req := httptest.NewRequest(http.MethodDelete, "/items/item_1", nil)
		req.Header.Set(basketIDHeader, "missing")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rr.Code)
		}
		assertErrorCode(t, rr.Body.Bytes(), "basket_not_found")
	})
}

func TestBasketRecalculate(t *testing.T) {
	t.Run("returns the refreshed basket", func(t *testing.T) {
		router := newBasketRouter(&stubCartService{cart: sampleCart()}, nil)

		req := httptest.NewRequest(http.MethodPost, "/recalculate", nil)
		req.Header.Set(basketIDHeader, "basket_1")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var body map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("expected JSON body: %v", err)
		}
		if body["item_count"] != float64(2) {
			t.Fatalf("expected item_count 2, got %v", body["item_count"])
		}
	})

	t.Run("unknown basket yields 404", func(t *testing.T) {
		router := newBasketRouter(&stubCartService{err: services.ErrCartNotFound}, nil)

		req := httptest.NewRequest(http.MethodPost, "/recalculate", nil)
		req.Header.Set(basketIDHeader, "missing")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rr.Code)
		}
		assertErrorCode(t, rr.Body.Bytes(), "basket_not_found")
	})
}
