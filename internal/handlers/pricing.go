package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/shutterworks/api/internal/domain"
	"github.com/shutterworks/api/internal/platform/httpx"
	"github.com/shutterworks/api/internal/services"
)

const maxPricingBodySize = 8 * 1024

// PricingHandlers serves interactive price estimates. Estimates are display
// only; nothing computed here is persisted.
type PricingHandlers struct {
	calculator services.PriceCalculator
	catalog    services.CatalogService
}

// NewPricingHandlers constructs handlers backed by the shared calculator.
func NewPricingHandlers(calculator services.PriceCalculator, catalog services.CatalogService) *PricingHandlers {
	return &PricingHandlers{calculator: calculator, catalog: catalog}
}

// Routes wires the pricing endpoints onto the provided router.
func (h *PricingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/quote", h.quote)
}

type quoteRequest struct {
	Width     float64 `json:"width"`
	Drop      float64 `json:"drop"`
	Unit      string  `json:"unit"`
	ProductID int64   `json:"product_id"`
}

type quoteResponse struct {
	Price          string  `json:"price"`
	RegularPrice   string  `json:"regular_price"`
	SalePrice      string  `json:"sale_price"`
	IsOnSale       bool    `json:"is_on_sale"`
	Area           float64 `json:"area"`
	WidthCm        float64 `json:"width_cm"`
	DropCm         float64 `json:"drop_cm"`
	Unit           string  `json:"unit"`
	SavingsPercent int     `json:"savings_percent,omitempty"`
	Calculation    string  `json:"calculation,omitempty"`
}

func (h *PricingHandlers) quote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.calculator == nil || h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_unavailable", "pricing is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxPricingBodySize)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
		return
	}

	var req quoteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is not valid JSON", http.StatusBadRequest))
		return
	}

	if req.Width <= 0 || req.Drop <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_dimensions", "width and drop must be positive", http.StatusBadRequest))
		return
	}

	exists, err := h.catalog.ProductExists(ctx, req.ProductID)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_unavailable", "catalog is unavailable", http.StatusServiceUnavailable))
		return
	}
	if !exists {
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product does not exist", http.StatusNotFound))
		return
	}

	unit, _ := domain.ParseMeasurementUnit(req.Unit)
	quote := h.calculator.Calculate(ctx, services.QuoteCommand{
		Width:     req.Width,
		Drop:      req.Drop,
		Unit:      unit,
		ProductID: req.ProductID,
	})
	if quote.IsZero() {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_dimensions", "dimensions could not be priced", http.StatusBadRequest))
		return
	}

	writeJSONResponse(w, http.StatusOK, buildQuoteResponse(quote))
}

func buildQuoteResponse(quote domain.PriceQuote) quoteResponse {
	return quoteResponse{
		Price:          formatPrice(quote.Price),
		RegularPrice:   formatPrice(quote.RegularPrice),
		SalePrice:      formatPrice(quote.SalePrice),
		IsOnSale:       quote.IsOnSale,
		Area:           quote.AreaM2,
		WidthCm:        quote.WidthCm,
		DropCm:         quote.DropCm,
		Unit:           string(quote.Unit),
		SavingsPercent: quote.SavingsPercent(),
		Calculation:    quote.CalculationText(),
	}
}
