package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/shutterworks/api/internal/domain"
	"github.com/shutterworks/api/internal/platform/httpx"
	"github.com/shutterworks/api/internal/services"
)

const maxAdminBodySize = 32 * 1024

// AdminHandlers exposes the authenticated management surface for products
// and per-form calculator configuration.
type AdminHandlers struct {
	catalog services.CatalogService
	forms   services.FormService
}

// NewAdminHandlers constructs the admin handlers.
func NewAdminHandlers(catalog services.CatalogService, forms services.FormService) *AdminHandlers {
	return &AdminHandlers{catalog: catalog, forms: forms}
}

// Routes wires the admin endpoints onto the provided router.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.listProducts)
	r.Get("/products/{productID}", h.getProduct)
	r.Put("/products/{productID}", h.upsertProduct)
	r.Get("/forms/{formID}/calculator", h.getConfig)
	r.Put("/forms/{formID}/calculator", h.saveConfig)
}

type productRequest struct {
	Name          string  `json:"name"`
	RegularRateM2 float64 `json:"regular_rate_m2"`
	SaleRateM2    float64 `json:"sale_rate_m2"`
	Active        bool    `json:"active"`
}

type productPayload struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	RegularRateM2 string `json:"regular_rate_m2"`
	SaleRateM2    string `json:"sale_rate_m2"`
	Active        bool   `json:"active"`
	IsOnSale      bool   `json:"is_on_sale"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

type productListPayload struct {
	Products []productPayload `json:"products"`
}

type configRequest struct {
	ProductID          int64          `json:"product_id"`
	WidthFieldID       int            `json:"width_field_id"`
	DropFieldID        int            `json:"drop_field_id"`
	PriceFieldID       int            `json:"price_field_id"`
	UnitFieldID        int            `json:"unit_field_id"`
	Quantity           int            `json:"quantity"`
	CustomFieldIDs     map[string]int `json:"custom_field_ids,omitempty"`
	ShowCalculation    bool           `json:"show_calculation"`
	ShowSaleComparison bool           `json:"show_sale_comparison"`
	CurrencySymbol     string         `json:"currency_symbol"`
	PricePrefix        string         `json:"price_prefix,omitempty"`
	PriceSuffix        string         `json:"price_suffix,omitempty"`
}

type configValidationPayload struct {
	Config     domain.CalculatorConfig `json:"config"`
	Validation domain.ValidationResult `json:"validation"`
}

func (h *AdminHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeAdminCatalogError(ctx, w, services.ErrCatalogUnavailable)
		return
	}

	products, err := h.catalog.ListActiveProducts(ctx)
	if err != nil {
		writeAdminCatalogError(ctx, w, err)
		return
	}

	payload := productListPayload{Products: make([]productPayload, 0, len(products))}
	for _, p := range products {
		payload.Products = append(payload.Products, buildProductPayload(p))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *AdminHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeAdminCatalogError(ctx, w, services.ErrCatalogUnavailable)
		return
	}

	productID, err := parsePathID(r, "productID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id must be a positive integer", http.StatusBadRequest))
		return
	}

	product, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		writeAdminCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildProductPayload(product))
}

func (h *AdminHandlers) upsertProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeAdminCatalogError(ctx, w, services.ErrCatalogUnavailable)
		return
	}

	productID, err := parsePathID(r, "productID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id must be a positive integer", http.StatusBadRequest))
		return
	}

	var req productRequest
	if !decodeAdminBody(ctx, w, r, &req) {
		return
	}

	product, err := h.catalog.UpsertProduct(ctx, services.UpsertProductCommand{
		ID:            productID,
		Name:          req.Name,
		RegularRateM2: req.RegularRateM2,
		SaleRateM2:    req.SaleRateM2,
		Active:        req.Active,
	})
	if err != nil {
		writeAdminCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildProductPayload(product))
}

func (h *AdminHandlers) getConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.forms == nil {
		writeAdminFormError(ctx, w, services.ErrFormUnavailable)
		return
	}

	formID, err := parsePathID(r, "formID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "form id must be a positive integer", http.StatusBadRequest))
		return
	}

	config, err := h.forms.GetConfig(ctx, formID)
	if err != nil {
		writeAdminFormError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, config)
}

// saveConfig persists the mapping after validation. A failing validation is a
// 422 carrying the full result so the admin UI can surface per-field warnings.
func (h *AdminHandlers) saveConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.forms == nil {
		writeAdminFormError(ctx, w, services.ErrFormUnavailable)
		return
	}

	formID, err := parsePathID(r, "formID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "form id must be a positive integer", http.StatusBadRequest))
		return
	}

	var req configRequest
	if !decodeAdminBody(ctx, w, r, &req) {
		return
	}

	config, validation, err := h.forms.SaveConfig(ctx, services.SaveConfigCommand{
		Config: domain.CalculatorConfig{
			FormID:             formID,
			ProductID:          req.ProductID,
			WidthFieldID:       req.WidthFieldID,
			DropFieldID:        req.DropFieldID,
			PriceFieldID:       req.PriceFieldID,
			UnitFieldID:        req.UnitFieldID,
			Quantity:           req.Quantity,
			CustomFieldIDs:     req.CustomFieldIDs,
			ShowCalculation:    req.ShowCalculation,
			ShowSaleComparison: req.ShowSaleComparison,
			CurrencySymbol:     req.CurrencySymbol,
			PricePrefix:        req.PricePrefix,
			PriceSuffix:        req.PriceSuffix,
		},
	})
	if err != nil {
		writeAdminFormError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if validation.Failed() {
		status = http.StatusUnprocessableEntity
	}
	writeJSONResponse(w, status, configValidationPayload{Config: config, Validation: validation})
}

func decodeAdminBody(ctx context.Context, w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := readLimitedBody(r, maxAdminBodySize)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
			return false
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is not valid JSON", http.StatusBadRequest))
		return false
	}
	return true
}

func buildProductPayload(p domain.Product) productPayload {
	payload := productPayload{
		ID:            p.ID,
		Name:          p.Name,
		RegularRateM2: formatPrice(p.RegularRateM2),
		SaleRateM2:    formatPrice(p.SaleRateM2),
		Active:        p.Active,
		IsOnSale:      p.IsOnSale(),
	}
	if !p.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTimestamp(p.UpdatedAt)
	}
	return payload
}

func parsePathID(r *http.Request, param string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func writeAdminCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCatalogProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product does not exist", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product payload is invalid", http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_unavailable", "catalog backend is unavailable", http.StatusServiceUnavailable))
	}
}

func writeAdminFormError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrFormConfigMissing):
		httpx.WriteError(ctx, w, httpx.NewError("calculator_not_configured", "form has no calculator configuration", http.StatusNotFound))
	case errors.Is(err, services.ErrFormInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "configuration payload is invalid", http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_unavailable", "configuration backend is unavailable", http.StatusServiceUnavailable))
	}
}
