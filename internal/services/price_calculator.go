package services

import (
	"context"
	"errors"
	"time"

	domain "github.com/shutterworks/api/internal/domain"
)

// PriceCalculatorDeps wires the catalog and observability dependencies.
type PriceCalculatorDeps struct {
	Catalog   CatalogService
	Publisher EventPublisher
	Clock     func() time.Time
	Logger    func(context.Context, string, map[string]any)
}

type priceCalculator struct {
	catalog   CatalogService
	publisher EventPublisher
	now       func() time.Time
	logger    func(context.Context, string, map[string]any)
}

// NewPriceCalculator constructs the calculator enforcing dependency validation.
func NewPriceCalculator(deps PriceCalculatorDeps) (PriceCalculator, error) {
	if deps.Catalog == nil {
		return nil, errors.New("price calculator: catalog is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &priceCalculator{
		catalog:   deps.Catalog,
		publisher: deps.Publisher,
		now:       func() time.Time { return clock().UTC() },
		logger:    logger,
	}, nil
}

// Calculate prices the given dimensions against the product's square-metre
// rates. Non-positive dimensions and unresolvable products yield the empty
// quote; the caller decides whether a zero price is an error at its boundary.
func (c *priceCalculator) Calculate(ctx context.Context, cmd QuoteCommand) PriceQuote {
	if cmd.Width <= 0 || cmd.Drop <= 0 {
		return domain.EmptyPriceQuote()
	}

	unit := cmd.Unit
	if unit == "" {
		unit = domain.DefaultMeasurementUnit
	}

	product, err := c.catalog.GetProduct(ctx, cmd.ProductID)
	if err != nil {
		if !errors.Is(err, ErrCatalogProductNotFound) {
			c.logger(ctx, "pricing.catalog_lookup_failed", map[string]any{
				"productId": cmd.ProductID,
				"error":     err.Error(),
			})
		}
		return domain.EmptyPriceQuote()
	}

	widthCm := unit.ToCentimeters(cmd.Width)
	dropCm := unit.ToCentimeters(cmd.Drop)

	// Area stays unrounded; only prices are rounded.
	areaM2 := (widthCm / 100) * (dropCm / 100)

	isOnSale := product.IsOnSale()
	regularPrice := domain.RoundPrice(areaM2 * product.RegularRateM2)
	salePrice := 0.0
	if isOnSale {
		salePrice = domain.RoundPrice(areaM2 * product.SaleRateM2)
	}
	price := regularPrice
	if isOnSale {
		price = salePrice
	}

	quote := PriceQuote{
		Price:         price,
		RegularPrice:  regularPrice,
		SalePrice:     salePrice,
		IsOnSale:      isOnSale,
		WidthCm:       widthCm,
		DropCm:        dropCm,
		AreaM2:        areaM2,
		RegularRateM2: product.RegularRateM2,
		SaleRateM2:    product.SaleRateM2,
		Unit:          unit,
	}

	if c.publisher != nil {
		event := domain.PriceCalculatedEvent{
			ProductID:  product.ID,
			WidthCm:    widthCm,
			DropCm:     dropCm,
			AreaM2:     areaM2,
			Price:      price,
			IsOnSale:   isOnSale,
			OccurredAt: c.now(),
		}
		if err := c.publisher.Publish(ctx, event); err != nil {
			c.logger(ctx, "pricing.event_publish_failed", map[string]any{
				"productId": product.ID,
				"error":     err.Error(),
			})
		}
	}

	return quote
}
