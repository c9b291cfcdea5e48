package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/shutterworks/api/internal/domain"
)

func newPricingRouter(calculator *stubCalculator, catalog *stubCatalog) chi.Router {
	r := chi.NewRouter()
	NewPricingHandlers(calculator, catalog).Routes(r)
	return r
}

func saleQuote() domain.PriceQuote {
	return domain.PriceQuote{
		Price:         60,
		RegularPrice:  100,
		SalePrice:     60,
		IsOnSale:      true,
		WidthCm:       100,
		DropCm:        200,
		AreaM2:        2,
		RegularRateM2: 50,
		SaleRateM2:    30,
		Unit:          domain.UnitCentimeters,
	}
}

func TestPricingQuote(t *testing.T) {
	catalog := &stubCatalog{products: map[int64]domain.Product{
		101: {ID: 101, Name: "Full Height Shutter", RegularRateM2: 50, SaleRateM2: 30, Active: true},
	}}

	t.Run("returns the computed quote", func(t *testing.T) {
		calculator := &stubCalculator{quote: saleQuote()}
		router := newPricingRouter(calculator, catalog)

		req := httptest.NewRequest(http.MethodPost, "/quote", strings.NewReader(
			`{"width":1000,"drop":2000,"unit":"mm","product_id":101}`))
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var body map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("expected JSON body: %v", err)
		}
		if body["price"] != "60.00" {
			t.Fatalf("expected price 60.00, got %v", body["price"])
		}
		if body["regular_price"] != "100.00" {
			t.Fatalf("expected regular_price 100.00, got %v", body["regular_price"])
		}
		if body["is_on_sale"] != true {
			t.Fatalf("expected is_on_sale true, got %v", body["is_on_sale"])
		}
		if body["savings_percent"] != float64(40) {
			t.Fatalf("expected savings_percent 40, got %v", body["savings_percent"])
		}
		if body["area"] != float64(2) {
			t.Fatalf("expected area 2, got %v", body["area"])
		}

		if calculator.lastCmd.Unit != domain.UnitMillimeters {
			t.Fatalf("expected millimetre unit forwarded, got %s", calculator.lastCmd.Unit)
		}
		if calculator.lastCmd.ProductID != 101 {
			t.Fatalf("expected product 101 forwarded, got %d", calculator.lastCmd.ProductID)
		}
	})

	t.Run("unknown unit falls back to centimetres", func(t *testing.T) {
		calculator := &stubCalculator{quote: saleQuote()}
		router := newPricingRouter(calculator, catalog)

		req := httptest.NewRequest(http.MethodPost, "/quote", strings.NewReader(
			`{"width":100,"drop":200,"unit":"furlongs","product_id":101}`))
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		if calculator.lastCmd.Unit != domain.UnitCentimeters {
			t.Fatalf("expected centimetre fallback, got %s", calculator.lastCmd.Unit)
		}
	})

	t.Run("rejects non-positive dimensions", func(t *testing.T) {
		calculator := &stubCalculator{quote: saleQuote()}
		router := newPricingRouter(calculator, catalog)

		req := httptest.NewRequest(http.MethodPost, "/quote", strings.NewReader(
			`{"width":0,"drop":200,"unit":"cm","product_id":101}`))
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rr.Code)
		}
		assertErrorCode(t, rr.Body.Bytes(), "invalid_dimensions")
		if calculator.callouts != 0 {
			t.Fatalf("expected calculator untouched, got %d calls", calculator.callouts)
		}
	})

	t.Run("unknown product yields 404", func(t *testing.T) {
		router := newPricingRouter(&stubCalculator{quote: saleQuote()}, catalog)

		req := httptest.NewRequest(http.MethodPost, "/quote", strings.NewReader(
			`{"width":100,"drop":200,"unit":"cm","product_id":999}`))
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rr.Code)
		}
		assertErrorCode(t, rr.Body.Bytes(), "product_not_found")
	})

	t.Run("catalog outage yields 503", func(t *testing.T) {
		router := newPricingRouter(&stubCalculator{quote: saleQuote()}, &stubCatalog{err: errors.New("backend down")})

		req := httptest.NewRequest(http.MethodPost, "/quote", strings.NewReader(
			`{"width":100,"drop":200,"unit":"cm","product_id":101}`))
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected status 503, got %d", rr.Code)
		}
		assertErrorCode(t, rr.Body.Bytes(), "cart_unavailable")
	})

	t.Run("empty quote yields 400", func(t *testing.T) {
		router := newPricingRouter(&stubCalculator{quote: domain.EmptyPriceQuote()}, catalog)

		req := httptest.NewRequest(http.MethodPost, "/quote", strings.NewReader(
			`{"width":100,"drop":200,"unit":"cm","product_id":101}`))
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rr.Code)
		}
		assertErrorCode(t, rr.Body.Bytes(), "invalid_dimensions")
	})

	t.Run("missing body yields 400", func(t *testing.T) {
		router := newPricingRouter(&stubCalculator{quote: saleQuote()}, catalog)

		req := httptest.NewRequest(http.MethodPost, "/quote", strings.NewReader(""))
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rr.Code)
		}
		assertErrorCode(t, rr.Body.Bytes(), "invalid_request")
	})
}

func assertErrorCode(t *testing.T, raw []byte, want string) {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("expected JSON error body: %v", err)
	}
	if body["error"] != want {
		t.Fatalf("expected error %s, got %v", want, body["error"])
	}
}
