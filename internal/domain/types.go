package domain

import (
	"strings"
	"time"
)

// Product is a catalog entry whose prices are expressed per square metre.
// SaleRateM2 of zero means the product is not on sale.
type Product struct {
	ID            int64     `firestore:"-" json:"id"`
	Name          string    `firestore:"name" json:"name"`
	RegularRateM2 float64   `firestore:"regularRateM2" json:"regular_rate_m2"`
	SaleRateM2    float64   `firestore:"saleRateM2" json:"sale_rate_m2"`
	Active        bool      `firestore:"active" json:"active"`
	CreatedAt     time.Time `firestore:"createdAt" json:"created_at"`
	UpdatedAt     time.Time `firestore:"updatedAt" json:"updated_at"`
}

// IsOnSale reports whether the sale rate undercuts the regular rate.
func (p Product) IsOnSale() bool {
	return p.SaleRateM2 > 0 && p.SaleRateM2 < p.RegularRateM2
}

// CartItem is one configured product instance in a basket. The quote stored
// at commit time is the single source of truth for the item's price; cart
// recalculation re-derives totals from it and never consults the catalog.
type CartItem struct {
	Key          string            `firestore:"-" json:"key"`
	ProductID    int64             `firestore:"productId" json:"product_id"`
	ProductName  string            `firestore:"productName" json:"product_name"`
	Quantity     int               `firestore:"quantity" json:"quantity"`
	Width        float64           `firestore:"width" json:"width"`
	Drop         float64           `firestore:"drop" json:"drop"`
	Unit         MeasurementUnit   `firestore:"unit" json:"unit"`
	Quote        PriceQuote        `firestore:"quote" json:"quote"`
	CustomFields map[string]string `firestore:"customFields,omitempty" json:"custom_fields,omitempty"`
	EntryID      string            `firestore:"entryId,omitempty" json:"entry_id,omitempty"`
	AddedAt      time.Time         `firestore:"addedAt" json:"added_at"`
}

// LineTotal is the charged amount for this line: the stored final price times
// quantity. Exact at two decimal places since the price is already rounded.
func (i CartItem) LineTotal() float64 {
	if i.Quantity <= 0 {
		return 0
	}
	return RoundPrice(i.Quote.Price * float64(i.Quantity))
}

// LineRegularTotal is the pre-sale amount for this line.
func (i CartItem) LineRegularTotal() float64 {
	if i.Quantity <= 0 {
		return 0
	}
	price := i.Quote.RegularPrice
	if price <= 0 {
		price = i.Quote.Price
	}
	return RoundPrice(price * float64(i.Quantity))
}

// CartTotals aggregates a basket's derived amounts.
type CartTotals struct {
	Subtotal        float64 `firestore:"subtotal" json:"subtotal"`
	RegularSubtotal float64 `firestore:"regularSubtotal" json:"regular_subtotal"`
	Savings         float64 `firestore:"savings" json:"savings"`
	ItemCount       int     `firestore:"itemCount" json:"item_count"`
}

// Cart is a session-scoped basket keyed by an opaque identifier the client
// carries between requests.
type Cart struct {
	ID        string     `firestore:"-" json:"id"`
	Items     []CartItem `firestore:"-" json:"items"`
	Totals    CartTotals `firestore:"totals" json:"totals"`
	CreatedAt time.Time  `firestore:"createdAt" json:"created_at"`
	UpdatedAt time.Time  `firestore:"updatedAt" json:"updated_at"`
}

// ItemCount sums line quantities.
func (c Cart) ItemCount() int {
	total := 0
	for _, item := range c.Items {
		if item.Quantity > 0 {
			total += item.Quantity
		}
	}
	return total
}

// CalculatorConfig maps a form's field IDs onto the calculator's inputs. It is
// validated once when saved, not re-parsed from loose metadata per request.
// A UnitFieldID of zero means the form has no unit selector and submissions
// are read as centimetres.
type CalculatorConfig struct {
	FormID             int64          `firestore:"-" json:"form_id"`
	ProductID          int64          `firestore:"productId" json:"product_id"`
	WidthFieldID       int            `firestore:"widthFieldId" json:"width_field_id"`
	DropFieldID        int            `firestore:"dropFieldId" json:"drop_field_id"`
	PriceFieldID       int            `firestore:"priceFieldId" json:"price_field_id"`
	UnitFieldID        int            `firestore:"unitFieldId" json:"unit_field_id"`
	Quantity           int            `firestore:"quantity" json:"quantity"`
	CustomFieldIDs     map[string]int `firestore:"customFieldIds,omitempty" json:"custom_field_ids,omitempty"`
	ShowCalculation    bool           `firestore:"showCalculation" json:"show_calculation"`
	ShowSaleComparison bool           `firestore:"showSaleComparison" json:"show_sale_comparison"`
	CurrencySymbol     string         `firestore:"currencySymbol" json:"currency_symbol"`
	PricePrefix        string         `firestore:"pricePrefix,omitempty" json:"price_prefix,omitempty"`
	PriceSuffix        string         `firestore:"priceSuffix,omitempty" json:"price_suffix,omitempty"`
	UpdatedAt          time.Time      `firestore:"updatedAt" json:"updated_at"`
}

// HasUnitField reports whether the form carries a unit selector.
func (c CalculatorConfig) HasUnitField() bool {
	return c.UnitFieldID > 0
}

// IsComplete reports whether every required mapping is present.
func (c CalculatorConfig) IsComplete() bool {
	return c.FormID > 0 &&
		c.ProductID > 0 &&
		c.WidthFieldID > 0 &&
		c.DropFieldID > 0 &&
		c.PriceFieldID > 0
}

// ValidationCode is a machine-readable configuration problem identifier.
type ValidationCode string

const (
	ValidationMissingConfig    ValidationCode = "missing_config"
	ValidationInvalidFieldID   ValidationCode = "invalid_field_id"
	ValidationDuplicateFieldID ValidationCode = "duplicate_field_id"
	ValidationMissingProduct   ValidationCode = "missing_product"
	ValidationProductInactive  ValidationCode = "product_inactive"
)

// ValidationError is a single structured configuration warning.
type ValidationError struct {
	Code    ValidationCode `json:"code"`
	Field   string         `json:"field,omitempty"`
	Message string         `json:"message"`
}

// ValidationResult collects the outcome of validating a calculator config.
// Configuration problems surface as admin warnings and are never fatal to
// the storefront.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// Passed reports whether validation succeeded.
func (r ValidationResult) Passed() bool { return r.Valid }

// Failed reports whether validation produced errors.
func (r ValidationResult) Failed() bool { return !r.Valid }

// Messages flattens the error messages for logging.
func (r ValidationResult) Messages() []string {
	if len(r.Errors) == 0 {
		return nil
	}
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.Message)
	}
	return out
}

// ValidationSuccess is the passing result.
func ValidationSuccess() ValidationResult {
	return ValidationResult{Valid: true}
}

// ValidationFailure wraps the collected errors.
func ValidationFailure(errs []ValidationError) ValidationResult {
	return ValidationResult{Valid: false, Errors: errs}
}

// CloneStringMap copies a flat string map, dropping empty keys.
func CloneStringMap(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		if strings.TrimSpace(k) == "" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
