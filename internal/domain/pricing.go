package domain

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// displayPrinter renders customer-facing amounts with locale-aware grouping.
var displayPrinter = message.NewPrinter(language.BritishEnglish)

// RoundPrice rounds a monetary amount half-up to two decimal places. Area is
// never rounded before multiplication; only final prices pass through here.
func RoundPrice(value float64) float64 {
	return math.Round(value*100) / 100
}

// PriceQuote is the immutable result of pricing a width/drop pair against a
// product's per-square-metre rates. A zero-valued quote signals "not enough
// input to price" rather than an error; see IsZero.
type PriceQuote struct {
	Price         float64         `firestore:"price" json:"price"`
	RegularPrice  float64         `firestore:"regularPrice" json:"regular_price"`
	SalePrice     float64         `firestore:"salePrice" json:"sale_price"`
	IsOnSale      bool            `firestore:"isOnSale" json:"is_on_sale"`
	WidthCm       float64         `firestore:"widthCm" json:"width_cm"`
	DropCm        float64         `firestore:"dropCm" json:"drop_cm"`
	AreaM2        float64         `firestore:"areaM2" json:"area_m2"`
	RegularRateM2 float64         `firestore:"regularRateM2" json:"regular_rate_m2"`
	SaleRateM2    float64         `firestore:"saleRateM2" json:"sale_rate_m2"`
	Unit          MeasurementUnit `firestore:"unit" json:"unit"`
}

// EmptyPriceQuote is the canonical soft-fail result for invalid dimensions or
// an unresolvable product.
func EmptyPriceQuote() PriceQuote {
	return PriceQuote{Unit: DefaultMeasurementUnit}
}

// IsZero reports whether the quote carries no price.
func (q PriceQuote) IsZero() bool {
	return q.Price == 0 && q.RegularPrice == 0 && q.AreaM2 == 0
}

// SavingsPercent returns the rounded percentage saved against the regular
// price, 0 when the product is not on sale.
func (q PriceQuote) SavingsPercent() int {
	if !q.IsOnSale || q.RegularPrice <= 0 {
		return 0
	}
	return int(math.Round(((q.RegularPrice - q.SalePrice) / q.RegularPrice) * 100))
}

// CalculationText renders the dimension breakdown in the unit the customer
// entered, e.g. "120.0cm × 180.0cm = 2.16m²".
func (q PriceQuote) CalculationText() string {
	width := q.Unit.FromCentimeters(q.WidthCm)
	drop := q.Unit.FromCentimeters(q.DropCm)
	return fmt.Sprintf("%.1f%s × %.1f%s = %.2fm²", width, q.Unit, drop, q.Unit, q.AreaM2)
}

// FormattedPrice renders the final price for display with the given currency
// symbol, grouped per locale (e.g. "£1,234.50").
func (q PriceQuote) FormattedPrice(symbol string) string {
	return FormatAmount(symbol, q.Price)
}

// FormatAmount renders any monetary amount for customer display.
func FormatAmount(symbol string, value float64) string {
	return displayPrinter.Sprintf("%s%.2f", symbol, value)
}
