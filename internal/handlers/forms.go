package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/shutterworks/api/internal/platform/httpx"
	"github.com/shutterworks/api/internal/services"
)

const maxFormBodySize = 32 * 1024

// FormHandlers maps form submissions onto the calculator pipeline.
type FormHandlers struct {
	forms services.FormService
	newID func() string
}

// NewFormHandlers constructs handlers backed by the form service.
func NewFormHandlers(forms services.FormService) *FormHandlers {
	return &FormHandlers{
		forms: forms,
		newID: func() string { return ulid.Make().String() },
	}
}

// Routes wires the form endpoints onto the provided router.
func (h *FormHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/{formID}/calculator", h.calculator)
	r.Post("/{formID}/submissions", h.submit)
}

type submissionRequest struct {
	EntryID     string            `json:"entry_id,omitempty"`
	FieldValues map[string]string `json:"field_values"`
}

type submissionResponse struct {
	Quote  quoteResponse   `json:"quote"`
	Basket addItemResponse `json:"basket"`
}

type calculatorResponse struct {
	FormID             int64                 `json:"form_id"`
	ProductID          int64                 `json:"product_id"`
	ProductName        string                `json:"product_name,omitempty"`
	Units              []unitChoicePayload   `json:"units,omitempty"`
	ShowCalculation    bool                  `json:"show_calculation"`
	ShowSaleComparison bool                  `json:"show_sale_comparison"`
	Currency           currencyDisplayFields `json:"currency"`
}

type unitChoicePayload struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Step        string `json:"step"`
	Placeholder string `json:"placeholder"`
	Selected    bool   `json:"selected"`
}

type currencyDisplayFields struct {
	Symbol string `json:"symbol"`
	Prefix string `json:"prefix,omitempty"`
	Suffix string `json:"suffix,omitempty"`
}

func (h *FormHandlers) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.forms == nil {
		writeFormError(ctx, w, services.ErrFormUnavailable)
		return
	}

	formID, err := parseFormID(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "form id must be a positive integer", http.StatusBadRequest))
		return
	}

	basketID := strings.TrimSpace(r.Header.Get(basketIDHeader))
	if basketID == "" {
		basketID = h.newID()
	}

	body, err := readLimitedBody(r, maxFormBodySize)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
		return
	}

	var req submissionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is not valid JSON", http.StatusBadRequest))
		return
	}

	result, err := h.forms.HandleSubmission(ctx, services.SubmissionCommand{
		FormID:      formID,
		CartID:      basketID,
		EntryID:     req.EntryID,
		FieldValues: req.FieldValues,
	})
	if err != nil {
		writeFormError(ctx, w, err)
		return
	}

	w.Header().Set(basketIDHeader, result.Basket.Cart.ID)
	writeJSONResponse(w, http.StatusCreated, submissionResponse{
		Quote: buildQuoteResponse(result.Quote),
		Basket: addItemResponse{
			CartCount: result.Basket.CartCount,
			CartURL:   result.Basket.CartURL,
			CartHash:  result.Basket.CartHash,
			Fragments: result.Basket.Fragments,
			ItemKey:   result.Basket.ItemKey,
		},
	})
}

func (h *FormHandlers) calculator(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.forms == nil {
		writeFormError(ctx, w, services.ErrFormUnavailable)
		return
	}

	formID, err := parseFormID(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "form id must be a positive integer", http.StatusBadRequest))
		return
	}

	view, err := h.forms.CalculatorViewForForm(ctx, formID)
	if err != nil {
		writeFormError(ctx, w, err)
		return
	}

	units := make([]unitChoicePayload, 0, len(view.UnitChoices))
	for _, choice := range view.UnitChoices {
		units = append(units, unitChoicePayload{
			Value:       choice.Value,
			Label:       choice.Label,
			Step:        choice.Step,
			Placeholder: choice.Placeholder,
			Selected:    choice.Selected,
		})
	}

	writeJSONResponse(w, http.StatusOK, calculatorResponse{
		FormID:             view.FormID,
		ProductID:          view.ProductID,
		ProductName:        view.ProductName,
		Units:              units,
		ShowCalculation:    view.ShowCalculation,
		ShowSaleComparison: view.ShowSaleComparison,
		Currency: currencyDisplayFields{
			Symbol: view.CurrencySymbol,
			Prefix: view.PricePrefix,
			Suffix: view.PriceSuffix,
		},
	})
}

func parseFormID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "formID"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid form id")
	}
	return id, nil
}

func writeFormError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrFormConfigMissing):
		httpx.WriteError(ctx, w, httpx.NewError("calculator_not_configured", "form has no calculator configuration", http.StatusNotFound))
	case errors.Is(err, services.ErrFormInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_dimensions", "submitted values are invalid", http.StatusBadRequest))
	case errors.Is(err, services.ErrCartProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product does not exist", http.StatusNotFound))
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_dimensions", "submitted dimensions are invalid", http.StatusBadRequest))
	case errors.Is(err, services.ErrCartAddFailed):
		httpx.WriteError(ctx, w, httpx.NewError("add_to_cart_failed", "item could not be added", http.StatusInternalServerError))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_unavailable", "backend is unavailable", http.StatusServiceUnavailable))
	}
}
