package services

import (
	"context"

	domain "github.com/shutterworks/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Product            = domain.Product
	PriceQuote         = domain.PriceQuote
	Cart               = domain.Cart
	CartItem           = domain.CartItem
	CartTotals         = domain.CartTotals
	CalculatorConfig   = domain.CalculatorConfig
	MeasurementUnit    = domain.MeasurementUnit
	ValidationResult   = domain.ValidationResult
	SystemHealthReport = domain.SystemHealthReport
)

// EventPublisher emits best-effort domain events. Publish failures are logged
// by callers and never fail the request that raised the event.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// QuoteCommand carries the dimensional inputs for a price calculation.
type QuoteCommand struct {
	Width     float64
	Drop      float64
	Unit      MeasurementUnit
	ProductID int64
}

// PriceCalculator computes a price from dimensions. It fails soft: invalid
// dimensions or an unresolvable product yield the empty quote, never an error.
// The same calculator backs interactive estimates and basket commits so the
// two can never disagree.
type PriceCalculator interface {
	Calculate(ctx context.Context, cmd QuoteCommand) PriceQuote
}

// CatalogService fronts product lookups with a read-through cache and owns
// admin product writes.
type CatalogService interface {
	GetProduct(ctx context.Context, productID int64) (Product, error)
	ProductExists(ctx context.Context, productID int64) (bool, error)
	ProductName(ctx context.Context, productID int64) (string, error)
	ListActiveProducts(ctx context.Context) ([]Product, error)
	UpsertProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error)
}

// UpsertProductCommand carries an admin product write.
type UpsertProductCommand struct {
	ID            int64
	Name          string
	RegularRateM2 float64
	SaleRateM2    float64
	Active        bool
}

// AddItemCommand carries a basket commit. ExpectedPrice is the client's
// displayed estimate; it is only compared against the server recomputation
// for tamper logging and never charged.
type AddItemCommand struct {
	CartID        string
	ProductID     int64
	Width         float64
	Drop          float64
	Unit          MeasurementUnit
	Quantity      int
	ExpectedPrice *float64
	CustomFields  map[string]string
	EntryID       string
}

// AddItemResult mirrors the wire contract the basket widget refresh expects.
type AddItemResult struct {
	Cart      Cart
	ItemKey   string
	CartCount int
	CartHash  string
	CartURL   string
	Fragments map[string]string
}

// PrepareItemCommand carries the inputs for assembling a line-item payload
// ahead of a basket commit.
type PrepareItemCommand struct {
	ProductID    int64
	Width        float64
	Drop         float64
	Unit         MeasurementUnit
	CustomFields map[string]string
}

// CartService owns basket mutation and the recalculation pass. Line items
// carry their committed quote; recalculation re-derives totals from those
// stored quotes and is idempotent.
type CartService interface {
	GetOrCreateCart(ctx context.Context, cartID string) (Cart, error)
	AddItem(ctx context.Context, cmd AddItemCommand) (AddItemResult, error)
	RemoveItem(ctx context.Context, cartID, itemKey string) (Cart, error)
	RecalculateTotals(ctx context.Context, cartID string) (Cart, error)

	// PrepareItemData assembles the payload a line item carries: canonical
	// dimensions, the computed prices, and the caller's custom fields. Custom
	// fields never overwrite the calculator-owned keys.
	PrepareItemData(ctx context.Context, cmd PrepareItemCommand) (map[string]string, error)

	ProductExists(ctx context.Context, productID int64) (bool, error)
	ProductName(ctx context.Context, productID int64) (string, error)
}

// SubmissionCommand is a parsed form submission: field values keyed by the
// numeric field ID as submitted, plus the basket the result lands in.
type SubmissionCommand struct {
	FormID      int64
	CartID      string
	EntryID     string
	FieldValues map[string]string
}

// SubmissionResult reports the basket state after a form-driven commit.
type SubmissionResult struct {
	Quote  PriceQuote
	Basket AddItemResult
}

// CalculatorView bundles what the estimator widget needs to render for a form.
type CalculatorView struct {
	FormID             int64
	ProductID          int64
	ProductName        string
	UnitChoices        []domain.MeasurementUnitChoice
	ShowCalculation    bool
	ShowSaleComparison bool
	CurrencySymbol     string
	PricePrefix        string
	PriceSuffix        string
}

// SaveConfigCommand carries an admin calculator-configuration write.
type SaveConfigCommand struct {
	Config CalculatorConfig
}

// FormService maps form submissions onto the calculator pipeline and owns the
// typed per-form configuration.
type FormService interface {
	HandleSubmission(ctx context.Context, cmd SubmissionCommand) (SubmissionResult, error)
	CalculatorViewForForm(ctx context.Context, formID int64) (CalculatorView, error)
	GetConfig(ctx context.Context, formID int64) (CalculatorConfig, error)
	SaveConfig(ctx context.Context, cmd SaveConfigCommand) (CalculatorConfig, ValidationResult, error)
}

// SystemService exposes operational health and build metadata.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}
